package services

import (
	"context"
	"log/slog"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// FallbackProvider composes a primary and a secondary provider. Any
// primary failure, retryable or not, is swallowed and the call delegates
// to the secondary. The substitution is visible only in logs.
type FallbackProvider struct {
	primary   GenerationProvider
	secondary GenerationProvider
	logger    *slog.Logger
}

var _ GenerationProvider = (*FallbackProvider)(nil)

// NewFallbackProvider wraps primary with secondary as its substitute.
func NewFallbackProvider(primary, secondary GenerationProvider, logger *slog.Logger) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *FallbackProvider) GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	c, err := f.primary.GenerateCase(ctx, lang)
	if err != nil {
		f.logger.Warn("primary provider failed in generate_case, using fallback", "error", err)
		return f.secondary.GenerateCase(ctx, lang)
	}
	return c, nil
}

func (f *FallbackProvider) AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	answer, err := f.primary.AnswerQuestion(ctx, c, question, history, lang)
	if err != nil {
		f.logger.Warn("primary provider failed in answer_question, using fallback", "error", err)
		return f.secondary.AnswerQuestion(ctx, c, question, history, lang)
	}
	return answer, nil
}

func (f *FallbackProvider) CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error) {
	result, err := f.primary.CheckContradiction(ctx, c, question, answer, lang)
	if err != nil {
		f.logger.Warn("primary provider failed in check_contradiction, using fallback", "error", err)
		return f.secondary.CheckContradiction(ctx, c, question, answer, lang)
	}
	return result, nil
}

func (f *FallbackProvider) ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
	result, err := f.primary.ScoreGuess(ctx, c, guess, lang)
	if err != nil {
		f.logger.Warn("primary provider failed in score_guess, using fallback", "error", err)
		return f.secondary.ScoreGuess(ctx, c, guess, lang)
	}
	return result, nil
}

func (f *FallbackProvider) SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	result, err := f.primary.SummarizeConversation(ctx, c, history, lang)
	if err != nil {
		f.logger.Warn("primary provider failed in summarize_conversation, using fallback", "error", err)
		return f.secondary.SummarizeConversation(ctx, c, history, lang)
	}
	return result, nil
}
