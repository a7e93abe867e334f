// Package game holds the mutable game aggregate: the session state, its
// message log, and the player's final guess.
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/pkg/mystery"
)

// Status is the game lifecycle state. Transitions only ever move forward:
// INIT -> PLAYING -> GUESSING -> RESULT -> ENDED. ENDED is terminal and
// reachable from any state.
type Status string

const (
	StatusInit     Status = "INIT"
	StatusPlaying  Status = "PLAYING"
	StatusGuessing Status = "GUESSING"
	StatusResult   Status = "RESULT"
	StatusEnded    Status = "ENDED"
)

// Game is the root aggregate. It owns exactly one case, an ordered list of
// messages, and at most one guess. The engine assumes callers serialize
// state-mutating operations per game id.
type Game struct {
	ID                 uuid.UUID `json:"id"`
	Status             Status    `json:"status"`
	RemainingQuestions int       `json:"remaining_questions"`
	Language           Language  `json:"language_mode"`
	UnlockedEvidence   int       `json:"unlocked_evidence_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Message is one question/answer exchange. AnswerText stores the raw
// protocol-wrapped answer and is never mutated after creation.
type Message struct {
	ID         uuid.UUID `json:"id"`
	GameID     uuid.UUID `json:"game_id"`
	Question   string    `json:"question"`
	AnswerText string    `json:"answer_text"`
	Language   Language  `json:"language_mode"`
	CreatedAt  time.Time `json:"created_at"`
}

// Exchange is one unwrapped question/answer pair used as conversation
// history for the generator.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Guess is the player's final deduction plus its grading. At most one
// exists per game; resubmission overwrites it.
type Guess struct {
	GameID          uuid.UUID `json:"game_id"`
	Killer          string    `json:"killer"`
	Motive          string    `json:"motive"`
	Method          string    `json:"method"`
	Trick           string    `json:"trick"`
	Reasoning       string    `json:"reasoning"`
	Score           int       `json:"score"`
	Grade           string    `json:"grade"`
	Feedback        string    `json:"feedback"`
	WeaknessesTop3  []string  `json:"weaknesses_top3"`
	SolutionSummary string    `json:"solution_summary"`
	CreatedAt       time.Time `json:"created_at"`
}

// Input size limits, shared by the API layer and the engine.
const (
	MaxQuestionLen  = 500
	MaxKillerLen    = 255
	MaxClaimLen     = 1000
	MaxReasoningLen = 2000
)

// GuessInput is the player's free-text deduction as submitted.
type GuessInput struct {
	Killer    string `json:"killer"`
	Motive    string `json:"motive"`
	Method    string `json:"method"`
	Trick     string `json:"trick"`
	Reasoning string `json:"reasoning"`
}

// Validate enforces the guess field bounds.
func (g *GuessInput) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"killer", g.Killer, MaxKillerLen},
		{"motive", g.Motive, MaxClaimLen},
		{"method", g.Method, MaxClaimLen},
		{"trick", g.Trick, MaxClaimLen},
		{"reasoning", g.Reasoning, MaxReasoningLen},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s must not be empty", f.name)
		}
		if len([]rune(f.value)) > f.max {
			return fmt.Errorf("%s exceeds %d characters", f.name, f.max)
		}
	}
	return nil
}

// ValidateQuestion enforces the ask question bounds.
func ValidateQuestion(question string) error {
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}
	if len([]rune(question)) > MaxQuestionLen {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLen)
	}
	return nil
}

// New creates a fresh game in PLAYING state with the full question budget.
func New(lang Language, maxQuestions int) *Game {
	now := time.Now().UTC()
	return &Game{
		ID:                 uuid.New(),
		Status:             StatusPlaying,
		RemainingQuestions: maxQuestions,
		Language:           lang,
		UnlockedEvidence:   0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ConsumeQuestion decrements the question counter, floored at zero, and
// forces the GUESSING state once the budget is exhausted.
func (g *Game) ConsumeQuestion() {
	if g.RemainingQuestions > 0 {
		g.RemainingQuestions--
	}
	if g.RemainingQuestions == 0 {
		g.Status = StatusGuessing
	}
}

// CaseSummary is the spoiler-free case header shown to the player.
type CaseSummary struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	TimeWindow string `json:"time_window"`
	Summary    string `json:"summary"`
	VictimName string `json:"victim_name"`
	FoundState string `json:"found_state"`
}

// PublicCharacter is a character view with the hidden truth flags and
// secrets stripped.
type PublicCharacter struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Traits []string `json:"traits"`
}

// SummaryOf builds the public case summary.
func SummaryOf(c *mystery.Case) CaseSummary {
	return CaseSummary{
		Title:      c.Title,
		Location:   c.Setting.Location,
		TimeWindow: c.Setting.TimeWindow,
		Summary:    c.Setting.Summary,
		VictimName: c.Victim.Name,
		FoundState: c.Victim.FoundState,
	}
}

// PublicCharacters builds the spoiler-free character list.
func PublicCharacters(c *mystery.Case) []PublicCharacter {
	out := make([]PublicCharacter, 0, len(c.Characters))
	for _, ch := range c.Characters {
		out = append(out, PublicCharacter{
			ID:     ch.ID,
			Name:   ch.Name,
			Role:   ch.Role,
			Traits: ch.Traits,
		})
	}
	return out
}
