// Package engine orchestrates the mystery game: case generation, the
// question/answer pipeline, guess grading, and the state machine that
// ties them together. It owns the game rules; handlers only translate
// HTTP to engine calls.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/internal/services"
	"github.com/jwebster45206/mystery-engine/internal/storage"
	"github.com/jwebster45206/mystery-engine/pkg/apperr"
	"github.com/jwebster45206/mystery-engine/pkg/followup"
	"github.com/jwebster45206/mystery-engine/pkg/game"
	"github.com/jwebster45206/mystery-engine/pkg/mystery"
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// caseValidationAttempts bounds how many fresh generations are tried
// when a provider returns structurally invalid cases. Provider errors
// abort immediately; the provider layer already retried transport
// failures, and regenerating on top of that invites retry storms.
const caseValidationAttempts = 2

type Engine struct {
	storage      storage.Storage
	provider     services.GenerationProvider
	maxQuestions int
	logger       *slog.Logger
}

func New(s storage.Storage, p services.GenerationProvider, maxQuestions int, logger *slog.Logger) *Engine {
	return &Engine{
		storage:      s,
		provider:     p,
		maxQuestions: maxQuestions,
		logger:       logger,
	}
}

// NewGameResult is the player-facing payload for a freshly created game.
type NewGameResult struct {
	GameID             uuid.UUID              `json:"game_id"`
	CaseSummary        game.CaseSummary       `json:"case_summary"`
	Characters         []game.PublicCharacter `json:"characters"`
	InitialState       game.Status            `json:"initial_state"`
	RemainingQuestions int                    `json:"remaining_questions"`
	Language           game.Language          `json:"language_mode"`
}

// AskResult is the outcome of one question.
type AskResult struct {
	AnswerText         string                `json:"answer_text"`
	FollowUpQuestions  []string              `json:"follow_up_questions"`
	RemainingQuestions int                   `json:"remaining_questions"`
	Status             game.Status           `json:"status"`
	UnlockedEvidence   *mystery.EvidenceItem `json:"unlocked_evidence"`
}

// MessageView is a stored exchange with the follow-up block unwrapped.
type MessageView struct {
	ID                uuid.UUID     `json:"id"`
	Question          string        `json:"question"`
	AnswerText        string        `json:"answer_text"`
	FollowUpQuestions []string      `json:"follow_up_questions"`
	Language          game.Language `json:"language_mode"`
	CreatedAt         time.Time     `json:"created_at"`
}

// GameState is the full resumable view of a game.
type GameState struct {
	GameID             uuid.UUID              `json:"game_id"`
	Status             game.Status            `json:"status"`
	RemainingQuestions int                    `json:"remaining_questions"`
	Language           game.Language          `json:"language_mode"`
	CaseSummary        game.CaseSummary       `json:"case_summary"`
	Characters         []game.PublicCharacter `json:"characters"`
	UnlockedEvidence   []mystery.EvidenceItem `json:"unlocked_evidence"`
	Messages           []MessageView          `json:"messages"`
}

// CreateGame generates a validated case and opens a game around it.
func (e *Engine) CreateGame(ctx context.Context, lang game.Language) (*NewGameResult, error) {
	c, err := e.generateValidatedCase(ctx, lang)
	if err != nil {
		return nil, err
	}

	g := game.New(lang, e.maxQuestions)
	if err := e.storage.CreateGame(ctx, g, c); err != nil {
		return nil, apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}

	e.logger.Info("Game created", "game_id", g.ID, "case_id", c.CaseID, "language", lang)

	return &NewGameResult{
		GameID:             g.ID,
		CaseSummary:        game.SummaryOf(c),
		Characters:         game.PublicCharacters(c),
		InitialState:       g.Status,
		RemainingQuestions: g.RemainingQuestions,
		Language:           g.Language,
	}, nil
}

// generateValidatedCase asks the provider for a case and validates it,
// regenerating once on validation failure. A provider error aborts
// immediately.
func (e *Engine) generateValidatedCase(ctx context.Context, lang game.Language) (*mystery.Case, error) {
	var causes []string
	for attempt := 0; attempt < caseValidationAttempts; attempt++ {
		c, err := e.provider.GenerateCase(ctx, lang)
		if err != nil {
			causes = append(causes, err.Error())
			break
		}
		if err := c.Validate(); err != nil {
			e.logger.Warn("Generated case failed validation", "attempt", attempt+1, "error", err)
			causes = append(causes, err.Error())
			continue
		}
		return c, nil
	}
	return nil, apperr.Upstream("case generation failed, please retry", nil).
		WithDetail("cause", strings.Join(causes, " | "))
}

// Ask runs one question through the full answer pipeline and consumes
// a question from the budget.
func (e *Engine) Ask(ctx context.Context, gameID uuid.UUID, question string) (*AskResult, error) {
	if err := game.ValidateQuestion(question); err != nil {
		return nil, apperr.BadRequest(err.Error(), nil)
	}

	g, c, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusPlaying {
		return nil, apperr.InvalidState("questions are only allowed in PLAYING state", string(g.Status))
	}

	history, err := e.historyOf(ctx, gameID)
	if err != nil {
		return nil, err
	}

	raw, err := e.provider.AnswerQuestion(ctx, c, question, history, g.Language)
	if err != nil {
		return nil, apperr.Upstream("generation failed, please retry", err)
	}

	answer, followUps := followup.Decode(raw, g.Language, false)
	if len(followUps) == 0 {
		followUps = followup.Heuristic(c, g.Language, len(history))
	}

	// A failed contradiction check keeps the original answer; the game
	// must not stall on an advisory pass.
	contradiction, err := e.provider.CheckContradiction(ctx, c, question, answer, g.Language)
	if err != nil {
		e.logger.Warn("Contradiction check failed; using original answer without rewrite", "error", err)
		contradiction = nil
	}
	if contradiction != nil && contradiction.Contradiction && contradiction.FixedAnswer != "" {
		rewritten, rewrittenFollowUps := followup.Decode(contradiction.FixedAnswer, g.Language, false)
		answer = rewritten
		if len(rewrittenFollowUps) > 0 {
			followUps = rewrittenFollowUps
		} else if len(followUps) == 0 {
			followUps = followup.Heuristic(c, g.Language, len(history))
		}
	}

	// Every answer must name at least one cast member, or the player has
	// nothing to interrogate next.
	if !c.NamesAnyCharacter(answer) {
		answer = explicitActorAnswer(c, question, g.Language)
	}

	g.ConsumeQuestion()
	unlocked := e.unlockNextEvidence(g, c)

	msg := &game.Message{
		ID:         uuid.New(),
		GameID:     g.ID,
		Question:   question,
		AnswerText: followup.Encode(answer, followUps, g.Language),
		Language:   g.Language,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.storage.AppendMessage(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to persist message", map[string]any{"cause": err.Error()})
	}
	if err := e.storage.SaveGame(ctx, g); err != nil {
		return nil, apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}

	return &AskResult{
		AnswerText:         answer,
		FollowUpQuestions:  followUps,
		RemainingQuestions: g.RemainingQuestions,
		Status:             g.Status,
		UnlockedEvidence:   unlocked,
	}, nil
}

// SubmitGuess grades the player's deduction and moves the game to
// RESULT. A remote scoring failure or incomplete payload falls back to
// the deterministic local scorer; submission never fails on grading.
func (e *Engine) SubmitGuess(ctx context.Context, gameID uuid.UUID, input *game.GuessInput) (*scoring.Result, error) {
	if err := input.Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error(), nil)
	}

	g, c, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusGuessing {
		return nil, apperr.InvalidState("guesses are only allowed in GUESSING state", string(g.Status))
	}

	result, err := e.provider.ScoreGuess(ctx, c, input, g.Language)
	if err != nil {
		e.logger.Warn("Remote scoring failed; scoring locally", "error", err)
		result = nil
	}
	if result == nil {
		result = scoring.Evaluate(c, input, g.Language)
	}

	guess := &game.Guess{
		GameID:          g.ID,
		Killer:          input.Killer,
		Motive:          input.Motive,
		Method:          input.Method,
		Trick:           input.Trick,
		Reasoning:       input.Reasoning,
		Score:           result.Score,
		Grade:           result.Grade,
		Feedback:        result.Feedback,
		WeaknessesTop3:  result.WeaknessesTop3,
		SolutionSummary: result.SolutionSummary,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.storage.UpsertGuess(ctx, guess); err != nil {
		return nil, apperr.Internal("failed to persist guess", map[string]any{"cause": err.Error()})
	}

	g.Status = game.StatusResult
	if err := e.storage.SaveGame(ctx, g); err != nil {
		return nil, apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}

	return result, nil
}

// Summarize condenses the conversation so far into a short digest the
// player can resume from.
func (e *Engine) Summarize(ctx context.Context, gameID uuid.UUID) (*services.ConversationSummary, error) {
	g, c, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status == game.StatusEnded {
		return nil, apperr.InvalidState("ended games cannot be summarized", string(g.Status))
	}

	unknown := "会話からは不明"
	noMessages := "まだ会話ログがありません。"
	if g.Language == game.LanguageEN {
		unknown = "unknown from conversation"
		noMessages = "No chat messages yet."
	}

	history, err := e.historyOf(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return &services.ConversationSummary{
			Killer:     unknown,
			Method:     unknown,
			Motive:     unknown,
			Trick:      unknown,
			Highlights: []string{noMessages},
		}, nil
	}

	raw, err := e.provider.SummarizeConversation(ctx, c, history, g.Language)
	if err != nil {
		return nil, apperr.Upstream("conversation summary failed, please retry", err)
	}

	highlights := make([]string, 0, 3)
	for _, h := range raw.Highlights {
		cleaned := strings.TrimSpace(h)
		if cleaned == "" || containsString(highlights, cleaned) {
			continue
		}
		highlights = append(highlights, cleaned)
		if len(highlights) >= 3 {
			break
		}
	}

	return &services.ConversationSummary{
		Killer:     orUnknown(raw.Killer, unknown),
		Method:     orUnknown(raw.Method, unknown),
		Motive:     orUnknown(raw.Motive, unknown),
		Trick:      orUnknown(raw.Trick, unknown),
		Highlights: highlights,
	}, nil
}

// GetGame returns the full resumable state view, with stored answers
// unwrapped from the follow-up protocol.
func (e *Engine) GetGame(ctx context.Context, gameID uuid.UUID) (*GameState, error) {
	g, c, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	unlocked := make([]mystery.EvidenceItem, 0, g.UnlockedEvidence)
	for i := 0; i < g.UnlockedEvidence && i < len(c.Evidence); i++ {
		unlocked = append(unlocked, c.Evidence[i])
	}

	msgs, err := e.storage.ListMessages(ctx, gameID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", map[string]any{"cause": err.Error()})
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		body, followUps := followup.Decode(m.AnswerText, m.Language, false)
		views = append(views, MessageView{
			ID:                m.ID,
			Question:          m.Question,
			AnswerText:        body,
			FollowUpQuestions: followUps,
			Language:          m.Language,
			CreatedAt:         m.CreatedAt,
		})
	}

	return &GameState{
		GameID:             g.ID,
		Status:             g.Status,
		RemainingQuestions: g.RemainingQuestions,
		Language:           g.Language,
		CaseSummary:        game.SummaryOf(c),
		Characters:         game.PublicCharacters(c),
		UnlockedEvidence:   unlocked,
		Messages:           views,
	}, nil
}

// PatchLanguage switches the game's language. Ended games are frozen.
func (e *Engine) PatchLanguage(ctx context.Context, gameID uuid.UUID, lang game.Language) error {
	g, err := e.getGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status == game.StatusEnded {
		return apperr.InvalidState("ended games cannot be updated", string(g.Status))
	}

	g.Language = lang
	if err := e.storage.SaveGame(ctx, g); err != nil {
		return apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}
	return nil
}

// MoveToGuessing skips the remaining questions. Only valid from PLAYING.
func (e *Engine) MoveToGuessing(ctx context.Context, gameID uuid.UUID) error {
	g, err := e.getGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != game.StatusPlaying {
		return apperr.InvalidState("only games in PLAYING state can move to guessing", string(g.Status))
	}

	g.Status = game.StatusGuessing
	if err := e.storage.SaveGame(ctx, g); err != nil {
		return apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}
	return nil
}

// EndGame terminates a game from any state.
func (e *Engine) EndGame(ctx context.Context, gameID uuid.UUID) error {
	g, err := e.getGame(ctx, gameID)
	if err != nil {
		return err
	}

	g.Status = game.StatusEnded
	if err := e.storage.SaveGame(ctx, g); err != nil {
		return apperr.Internal("failed to persist game", map[string]any{"cause": err.Error()})
	}
	return nil
}

func (e *Engine) getGame(ctx context.Context, gameID uuid.UUID) (*game.Game, error) {
	g, err := e.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, apperr.Internal("failed to load game", map[string]any{"cause": err.Error()})
	}
	if g == nil {
		return nil, apperr.NotFound("game not found", map[string]any{"game_id": gameID.String()})
	}
	return g, nil
}

func (e *Engine) loadGame(ctx context.Context, gameID uuid.UUID) (*game.Game, *mystery.Case, error) {
	g, err := e.getGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	c, err := e.storage.GetCase(ctx, gameID)
	if err != nil {
		return nil, nil, apperr.Internal("failed to load case", map[string]any{"cause": err.Error()})
	}
	if c == nil {
		return nil, nil, apperr.Internal("game has no case data", map[string]any{"game_id": gameID.String()})
	}
	return g, c, nil
}

// historyOf rebuilds the question/answer history with follow-up blocks
// stripped, in message creation order.
func (e *Engine) historyOf(ctx context.Context, gameID uuid.UUID) ([]game.Exchange, error) {
	msgs, err := e.storage.ListMessages(ctx, gameID)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", map[string]any{"cause": err.Error()})
	}

	history := make([]game.Exchange, 0, len(msgs))
	for _, m := range msgs {
		body, _ := followup.Decode(m.AnswerText, m.Language, false)
		history = append(history, game.Exchange{Question: m.Question, Answer: body})
	}
	return history, nil
}

// unlockNextEvidence reveals the next evidence item in case order, one
// per answered question, until the list is exhausted.
func (e *Engine) unlockNextEvidence(g *game.Game, c *mystery.Case) *mystery.EvidenceItem {
	if g.UnlockedEvidence >= len(c.Evidence) {
		return nil
	}
	item := c.Evidence[g.UnlockedEvidence]
	g.UnlockedEvidence++
	return &item
}

func orUnknown(value, unknown string) string {
	if cleaned := strings.TrimSpace(value); cleaned != "" {
		return cleaned
	}
	return unknown
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
