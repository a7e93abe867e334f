package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// MockProvider is a test double for GenerationProvider. Behavior is
// overridden per call via the Func fields; defaults delegate to a seeded
// LocalProvider so unconfigured mocks still produce valid cases.
type MockProvider struct {
	GenerateCaseFunc          func(ctx context.Context, lang game.Language) (*mystery.Case, error)
	AnswerQuestionFunc        func(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error)
	CheckContradictionFunc    func(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error)
	ScoreGuessFunc            func(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error)
	SummarizeConversationFunc func(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error)

	// Call counts per operation, for asserting retry and fallback paths.
	GenerateCaseCalls          int
	AnswerQuestionCalls        int
	CheckContradictionCalls    int
	ScoreGuessCalls            int
	SummarizeConversationCalls int

	fallback *LocalProvider
	mu       sync.Mutex
}

var _ GenerationProvider = (*MockProvider)(nil)

// NewMockProvider creates a mock with deterministic default behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{fallback: NewLocalProvider(1)}
}

func (m *MockProvider) GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	m.mu.Lock()
	m.GenerateCaseCalls++
	fn := m.GenerateCaseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, lang)
	}
	return m.fallback.GenerateCase(ctx, lang)
}

func (m *MockProvider) AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	m.mu.Lock()
	m.AnswerQuestionCalls++
	fn := m.AnswerQuestionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, c, question, history, lang)
	}
	return m.fallback.AnswerQuestion(ctx, c, question, history, lang)
}

func (m *MockProvider) CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error) {
	m.mu.Lock()
	m.CheckContradictionCalls++
	fn := m.CheckContradictionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, c, question, answer, lang)
	}
	return m.fallback.CheckContradiction(ctx, c, question, answer, lang)
}

func (m *MockProvider) ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
	m.mu.Lock()
	m.ScoreGuessCalls++
	fn := m.ScoreGuessFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, c, guess, lang)
	}
	return nil, nil
}

func (m *MockProvider) SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	m.mu.Lock()
	m.SummarizeConversationCalls++
	fn := m.SummarizeConversationFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, c, history, lang)
	}
	return m.fallback.SummarizeConversation(ctx, c, history, lang)
}
