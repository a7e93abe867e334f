package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// GenerationProvider is the capability interface for mystery generation.
// Remote backends, the deterministic local backend, and the retry and
// fallback decorators all implement it, so callers cannot tell where a
// response came from.
type GenerationProvider interface {
	// GenerateCase produces a raw case payload. The caller validates it;
	// providers do not repair invalid cases.
	GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error)

	// AnswerQuestion answers a player question in character. The returned
	// text may embed a follow-up protocol block.
	AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error)

	// CheckContradiction reviews an answer against the case truth and may
	// propose a replacement.
	CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error)

	// ScoreGuess grades a guess remotely. A nil result with nil error
	// means the provider has no usable payload and the caller should
	// score locally.
	ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error)

	// SummarizeConversation condenses the exchange history so far.
	SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error)
}

// ContradictionResult is the outcome of a contradiction check.
// FixedAnswer is only meaningful when Contradiction is true.
type ContradictionResult struct {
	Contradiction bool   `json:"contradiction"`
	Reason        string `json:"reason"`
	FixedAnswer   string `json:"fixed_answer"`
}

// ConversationSummary is the provider's digest of the conversation.
type ConversationSummary struct {
	Killer     string   `json:"killer"`
	Method     string   `json:"method"`
	Motive     string   `json:"motive"`
	Trick      string   `json:"trick"`
	Highlights []string `json:"highlights"`
}

// retryableStatusCodes are the upstream status categories worth retrying:
// timeout, rate limiting, and server-side failures.
var retryableStatusCodes = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// ProviderError is a classified failure from a generation backend.
// StatusCode zero means the failure happened before or after the HTTP
// exchange (bad payload, empty response) and is treated as retryable,
// matching how transient decode noise behaves in practice.
type ProviderError struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure is worth another attempt.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return retryableStatusCodes[e.StatusCode]
}

// NewProviderError builds a classified provider failure.
func NewProviderError(statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{StatusCode: statusCode, Message: message, cause: cause}
}

// IsRetryable reports whether err is a retryable provider failure.
// Context cancellation and deadline expiry are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}
