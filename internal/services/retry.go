package services

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 800 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// RetryPolicy bounds the retry loop of a RetryProvider.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// RetryProvider decorates a GenerationProvider with bounded retry and
// exponential backoff. Only classified retryable failures are retried;
// anything else, and attempt exhaustion, surfaces the last error.
type RetryProvider struct {
	next   GenerationProvider
	policy RetryPolicy
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ GenerationProvider = (*RetryProvider)(nil)

// NewRetryProvider wraps next with the given retry policy.
func NewRetryProvider(next GenerationProvider, policy RetryPolicy, logger *slog.Logger) *RetryProvider {
	return &RetryProvider{
		next:   next,
		policy: policy.withDefaults(),
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// delay computes the backoff for attempt k: min(maxDelay, base*2^k +
// uniform jitter in [0, base)). The jitter spreads retries from
// concurrent games apart.
func (r *RetryProvider) delay(attempt int) time.Duration {
	backoff := r.policy.BaseDelay << attempt

	r.mu.Lock()
	jitter := time.Duration(r.rng.Int63n(int64(r.policy.BaseDelay)))
	r.mu.Unlock()

	if d := backoff + jitter; d < r.policy.MaxDelay {
		return d
	}
	return r.policy.MaxDelay
}

// sleep waits for the backoff delay or until ctx is done, whichever comes
// first. An external deadline therefore aborts pending sleeps, not just
// in-flight calls.
func (r *RetryProvider) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryCall[T any](ctx context.Context, r *RetryProvider, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= r.policy.MaxAttempts-1 || !IsRetryable(err) {
			break
		}

		d := r.delay(attempt)
		r.logger.Warn("provider call failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"max_attempts", r.policy.MaxAttempts,
			"delay", d,
			"error", err)

		if sleepErr := r.sleep(ctx, d); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, lastErr
}

func (r *RetryProvider) GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	return retryCall(ctx, r, "generate_case", func() (*mystery.Case, error) {
		return r.next.GenerateCase(ctx, lang)
	})
}

func (r *RetryProvider) AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	return retryCall(ctx, r, "answer_question", func() (string, error) {
		return r.next.AnswerQuestion(ctx, c, question, history, lang)
	})
}

func (r *RetryProvider) CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error) {
	return retryCall(ctx, r, "check_contradiction", func() (*ContradictionResult, error) {
		return r.next.CheckContradiction(ctx, c, question, answer, lang)
	})
}

func (r *RetryProvider) ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
	return retryCall(ctx, r, "score_guess", func() (*scoring.Result, error) {
		return r.next.ScoreGuess(ctx, c, guess, lang)
	})
}

func (r *RetryProvider) SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	return retryCall(ctx, r, "summarize_conversation", func() (*ConversationSummary, error) {
		return r.next.SummarizeConversation(ctx, c, history, lang)
	})
}
