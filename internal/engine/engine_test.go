package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/mystery-engine/internal/services"
	"github.com/jwebster45206/mystery-engine/internal/storage"
	"github.com/jwebster45206/mystery-engine/pkg/apperr"
	"github.com/jwebster45206/mystery-engine/pkg/followup"
	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func validCase() *mystery.Case {
	return &mystery.Case{
		CaseID:   "case-fixture-1",
		Title:    "The Gallery Incident",
		Setting:  mystery.Setting{Location: "private gallery", TimeWindow: "20:00-22:00", Summary: "A blackout hit during the reception."},
		KillerID: "c2",
		LiarID:   "c3",
		Motive:   "a buried inheritance dispute",
		Method:   "a blow with a bronze statuette",
		Trick:    "the wall clock was set back",
		Victim:   mystery.Victim{ID: "v1", Name: "Harold Lane", Occupation: "art dealer", CauseOfDeath: "head trauma", FoundState: "collapsed by the display case"},
		Characters: []mystery.Character{
			{ID: "c1", Name: "Mara Ellison", Role: "curator", Alibi: "checking the storage room"},
			{ID: "c2", Name: "Dorian Voss", Role: "rival dealer", Alibi: "smoking on the terrace", IsKiller: true},
			{ID: "c3", Name: "Iris Chen", Role: "assistant", Alibi: "greeting guests at the door", IsLiar: true},
			{ID: "c4", Name: "Paul Grady", Role: "security guard", Alibi: "watching the monitors"},
		},
		Timeline: []mystery.TimelineEvent{
			{Time: "20:40", Event: "the lights went out"},
			{Time: "20:55", Event: "a crash was heard"},
		},
		Evidence: []mystery.EvidenceItem{
			{ID: "e1", Name: "bronze statuette", Detail: "recently wiped clean", Relevance: "weapon"},
			{ID: "e2", Name: "stopped wall clock", Detail: "reads 20:25", Relevance: "trick"},
			{ID: "e3", Name: "terrace door", Detail: "unlocked from inside", Relevance: "access"},
			{ID: "e4", Name: "inheritance letter", Detail: "names Dorian as disinherited", Relevance: "motive"},
			{ID: "e5", Name: "guest ledger", Detail: "one signature missing", Relevance: "movement"},
		},
		Truth:   mystery.Truth{Solution: "Dorian struck Harold during the blackout.", WhyRoomWasLocked: "terrace door latch", HowAlibiWasFaked: "clock set back"},
		GMRules: mystery.GMRules{DisclosurePolicy: "never reveal the killer directly", LiarPolicy: "one liar only", Safety: "no graphic detail"},
	}
}

func noContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*services.ContradictionResult, error) {
	return &services.ContradictionResult{Contradiction: false}, nil
}

func newTestEngine(t *testing.T, provider *services.MockProvider) (*Engine, *storage.MockStorage) {
	t.Helper()
	store := storage.NewMockStorage()
	return New(store, provider, 12, testLogger()), store
}

// createFixtureGame opens a game backed by the fixture case.
func createFixtureGame(t *testing.T, e *Engine) uuid.UUID {
	t.Helper()
	result, err := e.CreateGame(context.Background(), game.LanguageEN)
	require.NoError(t, err)
	return result.GameID
}

func fixtureProvider() *services.MockProvider {
	p := services.NewMockProvider()
	p.GenerateCaseFunc = func(ctx context.Context, lang game.Language) (*mystery.Case, error) {
		return validCase(), nil
	}
	p.CheckContradictionFunc = noContradiction
	return p
}

func TestCreateGame(t *testing.T) {
	provider := fixtureProvider()
	e, store := newTestEngine(t, provider)

	result, err := e.CreateGame(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	assert.Equal(t, game.StatusPlaying, result.InitialState)
	assert.Equal(t, 12, result.RemainingQuestions)
	assert.Equal(t, game.LanguageEN, result.Language)
	assert.Equal(t, "The Gallery Incident", result.CaseSummary.Title)
	assert.Equal(t, "Harold Lane", result.CaseSummary.VictimName)
	assert.Len(t, result.Characters, 4)

	g, err := store.GetGame(context.Background(), result.GameID)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, game.StatusPlaying, g.Status)

	c, err := store.GetCase(context.Background(), result.GameID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "case-fixture-1", c.CaseID)
}

func TestCreateGame_PublicViewHidesTruth(t *testing.T) {
	provider := fixtureProvider()
	e, _ := newTestEngine(t, provider)

	result, err := e.CreateGame(context.Background(), game.LanguageEN)
	require.NoError(t, err)

	for _, ch := range result.Characters {
		assert.NotEmpty(t, ch.ID)
		assert.NotEmpty(t, ch.Name)
	}
	// The public payload must not carry alibis, secrets, or truth flags;
	// the type itself only has id, name, role, and traits.
}

func TestCreateGame_ProviderErrorAbortsImmediately(t *testing.T) {
	provider := services.NewMockProvider()
	provider.GenerateCaseFunc = func(ctx context.Context, lang game.Language) (*mystery.Case, error) {
		return nil, services.NewProviderError(503, "backend overloaded", nil)
	}
	e, _ := newTestEngine(t, provider)

	_, err := e.CreateGame(context.Background(), game.LanguageJA)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUpstream))
	// No regeneration on provider failure: the provider layer already
	// retried transport errors.
	assert.Equal(t, 1, provider.GenerateCaseCalls)
}

func TestCreateGame_InvalidCaseRegeneratesOnce(t *testing.T) {
	provider := services.NewMockProvider()
	provider.GenerateCaseFunc = func(ctx context.Context, lang game.Language) (*mystery.Case, error) {
		c := validCase()
		c.Characters = c.Characters[:2] // below the minimum cast size
		return c, nil
	}
	e, _ := newTestEngine(t, provider)

	_, err := e.CreateGame(context.Background(), game.LanguageJA)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUpstream))
	assert.Equal(t, 2, provider.GenerateCaseCalls)
}

func TestAsk_FullPipeline(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return followup.Encode(
			"Mara Ellison says she was in the storage room when the lights failed.",
			[]string{"Who locked the terrace door?", "When did the crash happen?"},
			lang,
		), nil
	}
	e, store := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	result, err := e.Ask(context.Background(), gameID, "Where was the curator?")
	require.NoError(t, err)

	assert.Equal(t, "Mara Ellison says she was in the storage room when the lights failed.", result.AnswerText)
	assert.Equal(t, []string{"Who locked the terrace door?", "When did the crash happen?"}, result.FollowUpQuestions)
	assert.Equal(t, 11, result.RemainingQuestions)
	assert.Equal(t, game.StatusPlaying, result.Status)
	require.NotNil(t, result.UnlockedEvidence)
	assert.Equal(t, "e1", result.UnlockedEvidence.ID)

	// Stored message keeps the protocol wrapping.
	msgs, err := store.ListMessages(context.Background(), gameID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].AnswerText, followup.OpenTag)
	assert.Equal(t, "Where was the curator?", msgs[0].Question)
}

func TestAsk_HeuristicFollowUpsWhenAbsent(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Paul Grady saw nothing unusual on the monitors.", nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	result, err := e.Ask(context.Background(), gameID, "What did the guard see?")
	require.NoError(t, err)
	assert.Len(t, result.FollowUpQuestions, followup.MaxQuestions)
}

func TestAsk_RewritesAnswerNamingNoActor(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Someone was definitely in the room, but it is hard to say who.", nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	result, err := e.Ask(context.Background(), gameID, "Where was everyone during the blackout?")
	require.NoError(t, err)

	// The vague answer is replaced with one that names cast members.
	assert.Contains(t, result.AnswerText, "Mara Ellison")
	assert.Contains(t, result.AnswerText, "Dorian Voss")
}

func TestAsk_ContradictionRewriteApplied(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Iris Chen was on the terrace all evening.", nil
	}
	provider.CheckContradictionFunc = func(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*services.ContradictionResult, error) {
		return &services.ContradictionResult{
			Contradiction: true,
			Reason:        "terrace conflicts with the door log",
			FixedAnswer:   "Iris Chen was greeting guests at the door, not on the terrace.",
		}, nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	result, err := e.Ask(context.Background(), gameID, "Where was the assistant?")
	require.NoError(t, err)
	assert.Equal(t, "Iris Chen was greeting guests at the door, not on the terrace.", result.AnswerText)
}

func TestAsk_ContradictionCheckFailureKeepsAnswer(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Paul Grady left the monitors at 20:50.", nil
	}
	provider.CheckContradictionFunc = func(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*services.ContradictionResult, error) {
		return nil, services.NewProviderError(500, "checker down", nil)
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	result, err := e.Ask(context.Background(), gameID, "When did the guard leave?")
	require.NoError(t, err)
	assert.Equal(t, "Paul Grady left the monitors at 20:50.", result.AnswerText)
}

func TestAsk_ProviderErrorSurfacesAsUpstream(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "", services.NewProviderError(502, "bad gateway", nil)
	}
	e, store := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	_, err := e.Ask(context.Background(), gameID, "Who found the body?")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUpstream))

	// Budget untouched on failure.
	g, err := store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, 12, g.RemainingQuestions)
}

func TestAsk_BudgetExhaustionForcesGuessing(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Mara Ellison repeats her account.", nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	var last *AskResult
	for i := 0; i < 12; i++ {
		result, err := e.Ask(context.Background(), gameID, fmt.Sprintf("Question number %d?", i+1))
		require.NoError(t, err)
		last = result
	}
	assert.Equal(t, 0, last.RemainingQuestions)
	assert.Equal(t, game.StatusGuessing, last.Status)

	_, err := e.Ask(context.Background(), gameID, "One more question?")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidState))
}

func TestAsk_EvidenceUnlocksStopAtEnd(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Mara Ellison repeats her account.", nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	// Five evidence items; the sixth answer onward unlocks nothing.
	for i := 0; i < 5; i++ {
		result, err := e.Ask(context.Background(), gameID, fmt.Sprintf("Evidence question %d?", i+1))
		require.NoError(t, err)
		require.NotNil(t, result.UnlockedEvidence, "answer %d should unlock evidence", i+1)
	}
	result, err := e.Ask(context.Background(), gameID, "A sixth question?")
	require.NoError(t, err)
	assert.Nil(t, result.UnlockedEvidence)
}

func TestAsk_GameNotFound(t *testing.T) {
	e, _ := newTestEngine(t, fixtureProvider())
	_, err := e.Ask(context.Background(), uuid.New(), "Anyone there?")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestAsk_RejectsOversizedQuestion(t *testing.T) {
	e, _ := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)

	_, err := e.Ask(context.Background(), gameID, strings.Repeat("a", game.MaxQuestionLen+1))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeBadRequest))
}

func TestSubmitGuess_LocalScoring(t *testing.T) {
	e, store := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)
	require.NoError(t, e.MoveToGuessing(context.Background(), gameID))

	c := validCase()
	input := &game.GuessInput{
		Killer:    "Dorian Voss",
		Motive:    c.Motive,
		Method:    c.Method,
		Trick:     c.Trick,
		Reasoning: "The blackout gave Dorian cover to reach the display case.",
	}

	result, err := e.SubmitGuess(context.Background(), gameID, input)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, "S", result.Grade)
	assert.True(t, result.Matches.Killer)
	assert.Len(t, result.WeaknessesTop3, 3)
	assert.NotEmpty(t, result.SolutionSummary)

	g, err := store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusResult, g.Status)

	stored, err := store.GetGuess(context.Background(), gameID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 100, stored.Score)
	assert.Equal(t, "Dorian Voss", stored.Killer)
}

func TestSubmitGuess_RemoteResultUsedWhenComplete(t *testing.T) {
	provider := fixtureProvider()
	provider.ScoreGuessFunc = func(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
		return &scoring.Result{
			Score:           82,
			Grade:           "A",
			Matches:         scoring.Matches{Killer: true, Motive: true},
			Feedback:        "Close, but the trick eluded you.",
			Contradictions:  []string{},
			WeaknessesTop3:  []string{"trick unexplained", "method vague", "timeline thin"},
			SolutionSummary: "Dorian struck Harold during the blackout.",
		}, nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)
	require.NoError(t, e.MoveToGuessing(context.Background(), gameID))

	result, err := e.SubmitGuess(context.Background(), gameID, &game.GuessInput{
		Killer: "Dorian Voss", Motive: "money", Method: "a blow", Trick: "clock", Reasoning: "blackout timing",
	})
	require.NoError(t, err)
	assert.Equal(t, 82, result.Score)
	assert.Equal(t, "A", result.Grade)
}

func TestSubmitGuess_ScorerErrorFallsBackLocally(t *testing.T) {
	provider := fixtureProvider()
	provider.ScoreGuessFunc = func(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
		return nil, services.NewProviderError(500, "scorer down", nil)
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)
	require.NoError(t, e.MoveToGuessing(context.Background(), gameID))

	result, err := e.SubmitGuess(context.Background(), gameID, &game.GuessInput{
		Killer: "Mara Ellison", Motive: "jealousy", Method: "poison", Trick: "none", Reasoning: "a hunch",
	})
	require.NoError(t, err)
	assert.False(t, result.Matches.Killer)
	assert.Equal(t, "C", result.Grade)
}

func TestSubmitGuess_ResubmissionOverwrites(t *testing.T) {
	provider := fixtureProvider()
	e, store := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)
	require.NoError(t, e.MoveToGuessing(context.Background(), gameID))

	first := &game.GuessInput{Killer: "Mara Ellison", Motive: "x", Method: "y", Trick: "z", Reasoning: "r"}
	_, err := e.SubmitGuess(context.Background(), gameID, first)
	require.NoError(t, err)

	// Force the game back into GUESSING and resubmit.
	g, err := store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	g.Status = game.StatusGuessing
	require.NoError(t, store.SaveGame(context.Background(), g))

	second := &game.GuessInput{Killer: "Dorian Voss", Motive: "x", Method: "y", Trick: "z", Reasoning: "r"}
	_, err = e.SubmitGuess(context.Background(), gameID, second)
	require.NoError(t, err)

	stored, err := store.GetGuess(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "Dorian Voss", stored.Killer)
}

func TestSubmitGuess_RequiresGuessingState(t *testing.T) {
	e, _ := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)

	_, err := e.SubmitGuess(context.Background(), gameID, &game.GuessInput{
		Killer: "Dorian Voss", Motive: "x", Method: "y", Trick: "z", Reasoning: "r",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidState))
}

func TestSummarize_EmptyHistory(t *testing.T) {
	e, _ := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)

	summary, err := e.Summarize(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "unknown from conversation", summary.Killer)
	assert.Equal(t, []string{"No chat messages yet."}, summary.Highlights)
}

func TestSummarize_NormalizesHighlights(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return "Mara Ellison answers.", nil
	}
	provider.SummarizeConversationFunc = func(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*services.ConversationSummary, error) {
		return &services.ConversationSummary{
			Killer: "  Dorian Voss  ",
			Method: "",
			Motive: "inheritance",
			Trick:  "clock",
			Highlights: []string{" the clock stopped ", "the clock stopped", "", "the door was open", "the crash at 20:55", "a fifth highlight"},
		}, nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	_, err := e.Ask(context.Background(), gameID, "Anything?")
	require.NoError(t, err)

	summary, err := e.Summarize(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, "Dorian Voss", summary.Killer)
	assert.Equal(t, "unknown from conversation", summary.Method)
	assert.Equal(t, []string{"the clock stopped", "the door was open", "the crash at 20:55"}, summary.Highlights)
}

func TestSummarize_RefusedWhenEnded(t *testing.T) {
	e, _ := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)
	require.NoError(t, e.EndGame(context.Background(), gameID))

	_, err := e.Summarize(context.Background(), gameID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidState))
}

func TestGetGame_UnwrapsStoredMessages(t *testing.T) {
	provider := fixtureProvider()
	provider.AnswerQuestionFunc = func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
		return followup.Encode("Iris Chen saw the crash.", []string{"What fell?"}, lang), nil
	}
	e, _ := newTestEngine(t, provider)
	gameID := createFixtureGame(t, e)

	_, err := e.Ask(context.Background(), gameID, "Who heard the crash?")
	require.NoError(t, err)

	state, err := e.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, 11, state.RemainingQuestions)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "Iris Chen saw the crash.", state.Messages[0].AnswerText)
	assert.NotContains(t, state.Messages[0].AnswerText, followup.OpenTag)
	assert.Equal(t, []string{"What fell?"}, state.Messages[0].FollowUpQuestions)
	require.Len(t, state.UnlockedEvidence, 1)
	assert.Equal(t, "e1", state.UnlockedEvidence[0].ID)
}

func TestPatchLanguage(t *testing.T) {
	e, store := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)

	require.NoError(t, e.PatchLanguage(context.Background(), gameID, game.LanguageJA))

	g, err := store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, game.LanguageJA, g.Language)

	require.NoError(t, e.EndGame(context.Background(), gameID))
	err = e.PatchLanguage(context.Background(), gameID, game.LanguageEN)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidState))
}

func TestMoveToGuessing(t *testing.T) {
	e, store := newTestEngine(t, fixtureProvider())
	gameID := createFixtureGame(t, e)

	require.NoError(t, e.MoveToGuessing(context.Background(), gameID))
	g, err := store.GetGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusGuessing, g.Status)

	// Not allowed twice.
	err = e.MoveToGuessing(context.Background(), gameID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidState))
}

func TestEndGame_FromAnyState(t *testing.T) {
	e, store := newTestEngine(t, fixtureProvider())

	for _, setup := range []func(id uuid.UUID){
		func(id uuid.UUID) {},
		func(id uuid.UUID) { require.NoError(t, e.MoveToGuessing(context.Background(), id)) },
	} {
		gameID := createFixtureGame(t, e)
		setup(gameID)
		require.NoError(t, e.EndGame(context.Background(), gameID))

		g, err := store.GetGame(context.Background(), gameID)
		require.NoError(t, err)
		assert.Equal(t, game.StatusEnded, g.Status)
	}
}
