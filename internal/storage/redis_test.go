package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRedisStorage(mr.Addr(), logger), mr
}

func testCase() *mystery.Case {
	return &mystery.Case{
		CaseID:   "case-test-1",
		Title:    "The Study Incident",
		Setting:  mystery.Setting{Location: "old manor", TimeWindow: "21:00-23:00", Summary: "A storm cut the power."},
		KillerID: "c2",
		LiarID:   "c3",
		Motive:   "an old debt",
		Method:   "blunt instrument",
		Trick:    "clock tampering",
		Victim:   mystery.Victim{ID: "v1", Name: "Edmund Gray", Occupation: "collector", CauseOfDeath: "head trauma", FoundState: "slumped at the desk"},
		Characters: []mystery.Character{
			{ID: "c1", Name: "Alice Monroe", Role: "housekeeper", Alibi: "in the kitchen"},
			{ID: "c2", Name: "Victor Hale", Role: "business partner", Alibi: "in the library", IsKiller: true},
			{ID: "c3", Name: "Nina Ford", Role: "niece", Alibi: "in the garden", IsLiar: true},
			{ID: "c4", Name: "Tom Reed", Role: "driver", Alibi: "in the garage"},
		},
		Timeline: []mystery.TimelineEvent{{Time: "21:30", Event: "lights went out"}},
		Evidence: []mystery.EvidenceItem{
			{ID: "e1", Name: "stopped clock", Detail: "stopped at 21:40", Relevance: "trick"},
			{ID: "e2", Name: "muddy shoes", Detail: "found in the hall", Relevance: "movement"},
			{ID: "e3", Name: "torn letter", Detail: "mentions a loan", Relevance: "motive"},
			{ID: "e4", Name: "brass bookend", Detail: "recently wiped", Relevance: "weapon"},
			{ID: "e5", Name: "spare key", Detail: "missing from its hook", Relevance: "access"},
		},
		Truth:   mystery.Truth{Solution: "Victor struck Edmund over the debt.", WhyRoomWasLocked: "spare key", HowAlibiWasFaked: "clock set back"},
		GMRules: mystery.GMRules{DisclosurePolicy: "never reveal the killer", LiarPolicy: "one liar", Safety: "no gore"},
	}
}

func TestRedisStorage_GameLifecycle(t *testing.T) {
	s, mr := setupTestRedis(t)
	defer mr.Close()
	defer func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close storage: %v", err)
		}
	}()

	ctx := context.Background()
	g := game.New(game.LanguageJA, 12)
	c := testCase()

	if err := s.CreateGame(ctx, g, c); err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}

	loaded, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("Failed to get game: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected game, got nil")
	}
	if loaded.Status != game.StatusPlaying {
		t.Errorf("Expected status %s, got %s", game.StatusPlaying, loaded.Status)
	}
	if loaded.RemainingQuestions != 12 {
		t.Errorf("Expected 12 remaining questions, got %d", loaded.RemainingQuestions)
	}

	loadedCase, err := s.GetCase(ctx, g.ID)
	if err != nil {
		t.Fatalf("Failed to get case: %v", err)
	}
	if loadedCase == nil {
		t.Fatal("Expected case, got nil")
	}
	if loadedCase.KillerID != c.KillerID {
		t.Errorf("Expected killer %s, got %s", c.KillerID, loadedCase.KillerID)
	}
	if len(loadedCase.Evidence) != len(c.Evidence) {
		t.Errorf("Expected %d evidence items, got %d", len(c.Evidence), len(loadedCase.Evidence))
	}

	// Update and re-read
	loaded.ConsumeQuestion()
	loaded.Status = game.StatusGuessing
	if err := s.SaveGame(ctx, loaded); err != nil {
		t.Fatalf("Failed to save game: %v", err)
	}

	reloaded, err := s.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("Failed to reload game: %v", err)
	}
	if reloaded.Status != game.StatusGuessing {
		t.Errorf("Expected status %s, got %s", game.StatusGuessing, reloaded.Status)
	}
	if reloaded.RemainingQuestions != 11 {
		t.Errorf("Expected 11 remaining questions, got %d", reloaded.RemainingQuestions)
	}
}

func TestRedisStorage_NotFound(t *testing.T) {
	s, mr := setupTestRedis(t)
	defer mr.Close()
	defer s.Close()

	ctx := context.Background()

	g, err := s.GetGame(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetGame on missing id should not error: %v", err)
	}
	if g != nil {
		t.Error("Expected nil game for missing id")
	}

	c, err := s.GetCase(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetCase on missing id should not error: %v", err)
	}
	if c != nil {
		t.Error("Expected nil case for missing id")
	}

	guess, err := s.GetGuess(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetGuess on missing id should not error: %v", err)
	}
	if guess != nil {
		t.Error("Expected nil guess for missing id")
	}
}

func TestRedisStorage_Messages(t *testing.T) {
	s, mr := setupTestRedis(t)
	defer mr.Close()
	defer s.Close()

	ctx := context.Background()
	gameID := uuid.New()

	questions := []string{"Where was Victor?", "What stopped the clock?", "Who held the spare key?"}
	for _, q := range questions {
		msg := &game.Message{
			ID:         uuid.New(),
			GameID:     gameID,
			Question:   q,
			AnswerText: "answer to: " + q,
			Language:   game.LanguageEN,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("Failed to append message: %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx, gameID)
	if err != nil {
		t.Fatalf("Failed to list messages: %v", err)
	}
	if len(msgs) != len(questions) {
		t.Fatalf("Expected %d messages, got %d", len(questions), len(msgs))
	}
	for i, q := range questions {
		if msgs[i].Question != q {
			t.Errorf("Message %d out of order: expected %q, got %q", i, q, msgs[i].Question)
		}
	}

	// Empty history is not an error
	empty, err := s.ListMessages(ctx, uuid.New())
	if err != nil {
		t.Fatalf("ListMessages on missing game should not error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no messages, got %d", len(empty))
	}
}

func TestRedisStorage_GuessUpsert(t *testing.T) {
	s, mr := setupTestRedis(t)
	defer mr.Close()
	defer s.Close()

	ctx := context.Background()
	gameID := uuid.New()

	first := &game.Guess{
		GameID:          gameID,
		Killer:          "Alice Monroe",
		Motive:          "jealousy",
		Method:          "poison",
		Trick:           "none",
		Score:           20,
		Grade:           "C",
		Feedback:        "wide of the mark",
		WeaknessesTop3:  []string{"wrong killer", "wrong motive", "wrong method"},
		SolutionSummary: "Victor struck Edmund over the debt.",
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.UpsertGuess(ctx, first); err != nil {
		t.Fatalf("Failed to upsert guess: %v", err)
	}

	second := *first
	second.Killer = "Victor Hale"
	second.Score = 60
	second.Grade = "B"
	if err := s.UpsertGuess(ctx, &second); err != nil {
		t.Fatalf("Failed to upsert second guess: %v", err)
	}

	loaded, err := s.GetGuess(ctx, gameID)
	if err != nil {
		t.Fatalf("Failed to get guess: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected guess, got nil")
	}
	if loaded.Killer != "Victor Hale" {
		t.Errorf("Expected overwritten killer, got %q", loaded.Killer)
	}
	if loaded.Score != 60 {
		t.Errorf("Expected overwritten score 60, got %d", loaded.Score)
	}
	if len(loaded.WeaknessesTop3) != 3 {
		t.Errorf("Expected 3 weaknesses, got %d", len(loaded.WeaknessesTop3))
	}
}
