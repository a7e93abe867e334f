package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/prompts"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

const (
	DefaultOpenAIModel     = openai.GPT4TurboPreview
	DefaultOpenAIMaxTokens = 4096
)

// OpenAIService implements GenerationProvider on the OpenAI chat
// completion API.
type OpenAIService struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

var _ GenerationProvider = (*OpenAIService)(nil)

// NewOpenAIService creates an OpenAI-backed provider.
func NewOpenAIService(apiKey, modelName string, logger *slog.Logger) *OpenAIService {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	return &OpenAIService{
		client:    openai.NewClient(apiKey),
		modelName: modelName,
		logger:    logger,
	}
}

// completion runs one chat completion. jsonMode constrains the model to a
// JSON object response.
func (o *OpenAIService) completion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     o.modelName,
		MaxTokens: DefaultOpenAIMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError(0, "empty response choices", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", NewProviderError(0, "empty response text", nil)
	}
	return content, nil
}

// classifyOpenAIError attaches the upstream status code so the retry
// decorator can tell transient failures from permanent ones.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return NewProviderError(0, "request failed", err)
}

func (o *OpenAIService) GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	raw, err := o.completion(ctx, prompts.CaseGeneration(lang), true)
	if err != nil {
		return nil, err
	}

	var c mystery.Case
	if err := extractJSON(raw, &c); err != nil {
		return nil, NewProviderError(0, "case payload is not valid JSON", err)
	}
	return &c, nil
}

func (o *OpenAIService) AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	return o.completion(ctx, prompts.Answer(c, question, history, lang), false)
}

func (o *OpenAIService) CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error) {
	raw, err := o.completion(ctx, prompts.Contradiction(c, question, answer, lang), true)
	if err != nil {
		return nil, err
	}

	var result ContradictionResult
	if err := extractJSON(raw, &result); err != nil {
		return nil, NewProviderError(0, "contradiction payload is not valid JSON", err)
	}
	return &result, nil
}

func (o *OpenAIService) ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
	raw, err := o.completion(ctx, prompts.Scoring(c, guess, lang), true)
	if err != nil {
		return nil, err
	}
	result := decodeScorePayload(raw)
	if result == nil {
		o.logger.Warn("remote score payload incomplete, deferring to local scorer")
	}
	return result, nil
}

func (o *OpenAIService) SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	raw, err := o.completion(ctx, prompts.Summary(c, history, lang), true)
	if err != nil {
		return nil, err
	}

	var summary ConversationSummary
	if err := extractJSON(raw, &summary); err != nil {
		return nil, NewProviderError(0, "summary payload is not valid JSON", err)
	}
	return &summary, nil
}
