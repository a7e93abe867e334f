package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/prompts"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.4
)

// GeminiService implements GenerationProvider against the Gemini REST
// API. It classifies transport failures by status code and leaves retry
// policy to the RetryProvider decorator.
type GeminiService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ GenerationProvider = (*GeminiService)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates a Gemini-backed provider.
func NewGeminiService(apiKey, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// generateContent makes one generation request and returns the response
// text. Failures carry the upstream status code for retry classification.
func (g *GeminiService) generateContent(ctx context.Context, prompt string, mimeType string) (string, error) {
	if g.apiKey == "" {
		return "", NewProviderError(http.StatusUnauthorized, "missing Gemini API key", nil)
	}

	geminiReq := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      DefaultGeminiTemperature,
			ResponseMimeType: mimeType,
		},
	}

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, g.modelName, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewProviderError(0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewProviderError(0, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewProviderError(resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", NewProviderError(0, "failed to parse response", err)
	}

	if geminiResp.Error != nil {
		return "", NewProviderError(geminiResp.Error.Code, geminiResp.Error.Message, nil)
	}

	for _, candidate := range geminiResp.Candidates {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
			return trimmed, nil
		}
	}

	if fb := geminiResp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", NewProviderError(0, "response blocked by safety filter: "+fb.BlockReason, nil)
	}
	return "", NewProviderError(0, "empty response text", nil)
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON tolerates markdown fences and prose around the JSON object
// a model was asked to return.
func extractJSON(raw string, v any) error {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = regexp.MustCompile("^```[a-zA-Z]*").ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "```", ""))
	}
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	match := jsonObjectRe.FindString(cleaned)
	if match == "" {
		return fmt.Errorf("response is not valid JSON")
	}
	return json.Unmarshal([]byte(match), v)
}

func (g *GeminiService) GenerateCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	raw, err := g.generateContent(ctx, prompts.CaseGeneration(lang), "application/json")
	if err != nil {
		return nil, err
	}

	var c mystery.Case
	if err := extractJSON(raw, &c); err != nil {
		return nil, NewProviderError(0, "case payload is not valid JSON", err)
	}
	return &c, nil
}

func (g *GeminiService) AnswerQuestion(ctx context.Context, c *mystery.Case, question string, history []game.Exchange, lang game.Language) (string, error) {
	return g.generateContent(ctx, prompts.Answer(c, question, history, lang), "")
}

func (g *GeminiService) CheckContradiction(ctx context.Context, c *mystery.Case, question, answer string, lang game.Language) (*ContradictionResult, error) {
	raw, err := g.generateContent(ctx, prompts.Contradiction(c, question, answer, lang), "application/json")
	if err != nil {
		return nil, err
	}

	var result ContradictionResult
	if err := extractJSON(raw, &result); err != nil {
		return nil, NewProviderError(0, "contradiction payload is not valid JSON", err)
	}
	return &result, nil
}

func (g *GeminiService) ScoreGuess(ctx context.Context, c *mystery.Case, guess *game.GuessInput, lang game.Language) (*scoring.Result, error) {
	raw, err := g.generateContent(ctx, prompts.Scoring(c, guess, lang), "application/json")
	if err != nil {
		return nil, err
	}
	result := decodeScorePayload(raw)
	if result == nil {
		g.logger.Warn("remote score payload incomplete, deferring to local scorer")
	}
	return result, nil
}

func (g *GeminiService) SummarizeConversation(ctx context.Context, c *mystery.Case, history []game.Exchange, lang game.Language) (*ConversationSummary, error) {
	raw, err := g.generateContent(ctx, prompts.Summary(c, history, lang), "application/json")
	if err != nil {
		return nil, err
	}

	var summary ConversationSummary
	if err := extractJSON(raw, &summary); err != nil {
		return nil, NewProviderError(0, "summary payload is not valid JSON", err)
	}
	return &summary, nil
}
