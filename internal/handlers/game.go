package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/mystery-engine/internal/engine"
	"github.com/jwebster45206/mystery-engine/pkg/apperr"
	"github.com/jwebster45206/mystery-engine/pkg/game"
)

// ErrorResponse is the JSON error body for all endpoints.
type ErrorResponse struct {
	Code      apperr.Code    `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Detail    map[string]any `json:"detail,omitempty"`
}

type GameHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewGameHandler(e *engine.Engine, logger *slog.Logger) *GameHandler {
	return &GameHandler{engine: e, logger: logger}
}

// ServeHTTP routes game requests.
// Routes:
// POST  /api/game/new                  - Create a new game
// GET   /api/game/{id}                 - Read full game state
// POST  /api/game/{id}/ask             - Ask a question
// POST  /api/game/{id}/summarize       - Summarize the conversation
// POST  /api/game/{id}/guess           - Submit the final deduction
// PATCH /api/game/{id}/language        - Switch language
// POST  /api/game/{id}/ready-to-guess  - Skip remaining questions
// POST  /api/game/{id}/end             - End the game
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/game"), "/")

	if path == "new" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	gameID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		h.writeError(w, apperr.BadRequest("invalid game ID format", nil))
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, gameID)
	case action == "ask" && r.Method == http.MethodPost:
		h.handleAsk(w, r, gameID)
	case action == "summarize" && r.Method == http.MethodPost:
		h.handleSummarize(w, r, gameID)
	case action == "guess" && r.Method == http.MethodPost:
		h.handleGuess(w, r, gameID)
	case action == "language" && r.Method == http.MethodPatch:
		h.handlePatchLanguage(w, r, gameID)
	case action == "ready-to-guess" && r.Method == http.MethodPost:
		h.handleReadyToGuess(w, r, gameID)
	case action == "end" && r.Method == http.MethodPost:
		h.handleEnd(w, r, gameID)
	default:
		h.methodNotAllowed(w, r)
	}
}

type CreateGameRequest struct {
	Language string `json:"language_mode"`
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	// An empty body defaults the language.
	var req CreateGameRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, apperr.BadRequest("invalid request body", nil))
			return
		}
	}

	lang, err := game.ParseLanguage(req.Language)
	if err != nil {
		h.writeError(w, apperr.BadRequest(err.Error(), nil))
		return
	}

	result, err := h.engine.CreateGame(r.Context(), lang)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *GameHandler) handleGet(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	state, err := h.engine.GetGame(r.Context(), gameID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

type AskRequest struct {
	Question string `json:"question"`
}

func (h *GameHandler) handleAsk(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.BadRequest("invalid request body", nil))
		return
	}

	result, err := h.engine.Ask(r.Context(), gameID, req.Question)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *GameHandler) handleSummarize(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	summary, err := h.engine.Summarize(r.Context(), gameID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *GameHandler) handleGuess(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req game.GuessInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.BadRequest("invalid request body", nil))
		return
	}

	result, err := h.engine.SubmitGuess(r.Context(), gameID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type PatchLanguageRequest struct {
	Language string `json:"language_mode"`
}

type PatchLanguageResponse struct {
	GameID   uuid.UUID     `json:"game_id"`
	Language game.Language `json:"language_mode"`
}

func (h *GameHandler) handlePatchLanguage(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req PatchLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.BadRequest("invalid request body", nil))
		return
	}
	if req.Language == "" {
		h.writeError(w, apperr.BadRequest("language_mode is required", nil))
		return
	}

	lang, err := game.ParseLanguage(req.Language)
	if err != nil {
		h.writeError(w, apperr.BadRequest(err.Error(), nil))
		return
	}

	if err := h.engine.PatchLanguage(r.Context(), gameID, lang); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, PatchLanguageResponse{GameID: gameID, Language: lang})
}

func (h *GameHandler) handleReadyToGuess(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if err := h.engine.MoveToGuessing(r.Context(), gameID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) handleEnd(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	if err := h.engine.EndGame(r.Context(), gameID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("Unsupported route for game endpoint", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	response := ErrorResponse{
		Code:    apperr.CodeBadRequest,
		Message: "unsupported method or path",
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}

func (h *GameHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *GameHandler) writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.Code == apperr.CodeInternal {
		h.logger.Error("Request failed", "error", err)
	}
	w.WriteHeader(appErr.HTTPStatus())
	response := ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
		Detail:    appErr.Detail,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
