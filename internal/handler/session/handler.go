package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	sessionModel "github.com/zephyrhk/answer-machine/backend/internal/model/session"
	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
	sessionService "github.com/zephyrhk/answer-machine/backend/internal/service/session"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// Warning texts shown to the user when a request cannot be acted on. The
// wording matches what the frontend displays next to the ask box.
const (
	WarnEmptyQuestion   = "Please enter a question."
	WarnNothingToReroll = "No previous question to reroll. Ask first."
)

// Handler 問答會話的HTTP處理器
type Handler struct {
	sessions *sessionService.Service
}

// New 創建會話處理器
func New(sessions *sessionService.Service) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 註冊會話相關的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Post("/ask", h.handleAsk)
		r.Post("/reroll", h.handleReroll)
		r.Post("/preset", h.handlePreset)
		r.Get("/history", h.handleHistory)
		r.Delete("/history", h.handleClearHistory)
	})
}

// outcomeResponse is the wire form of an ask, reroll or preset result. The
// error field is present when the answer text is a rendered failure message.
type outcomeResponse struct {
	Session sessionModel.Session `json:"session"`
	Answer  string               `json:"answer"`
	Error   *resolve.Error       `json:"error,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	// An empty body selects the default persona.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.sessions.Create(r.Context(), payload.PersonaID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question    string   `json:"question"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"maxTokens"`
	}

	// An empty body falls through to the empty-question warning.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.sessions.Ask(r.Context(), chi.URLParam(r, "sessionID"), payload.Question, requestParams(payload.Temperature, payload.MaxTokens))
	if err != nil {
		h.respondActionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, outcomeResponse{Session: outcome.Session, Answer: outcome.Answer, Error: outcome.ResolveErr})
}

func (h *Handler) handleReroll(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"maxTokens"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.sessions.Reroll(r.Context(), chi.URLParam(r, "sessionID"), requestParams(payload.Temperature, payload.MaxTokens))
	if err != nil {
		h.respondActionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, outcomeResponse{Session: outcome.Session, Answer: outcome.Answer, Error: outcome.ResolveErr})
}

func (h *Handler) handlePreset(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question    string   `json:"question"`
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"maxTokens"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.sessions.AskPreset(r.Context(), chi.URLParam(r, "sessionID"), payload.Question, requestParams(payload.Temperature, payload.MaxTokens))
	if err != nil {
		h.respondActionError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, outcomeResponse{Session: outcome.Session, Answer: outcome.Answer, Error: outcome.ResolveErr})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sessions.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.ClearHistory(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

// respondActionError maps service sentinels onto HTTP. Input problems come
// back as warnings the frontend can show verbatim.
func (h *Handler) respondActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, sessionService.ErrEmptyQuestion):
		utils.RespondWarning(w, WarnEmptyQuestion)
	case errors.Is(err, sessionService.ErrNothingToReroll):
		utils.RespondWarning(w, WarnNothingToReroll)
	case errors.Is(err, sessionService.ErrUnknownPreset):
		utils.RespondError(w, http.StatusBadRequest, "not a preset question")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// requestParams converts optional body fields into resolver parameters. Both
// absent means the resolver defaults apply unchanged.
func requestParams(temperature *float64, maxTokens *int) *sessionModel.Params {
	if temperature == nil && maxTokens == nil {
		return nil
	}

	params := &sessionModel.Params{Temperature: sessionModel.DefaultTemperature}
	if temperature != nil {
		params.Temperature = *temperature
	}
	if maxTokens != nil {
		params.MaxTokens = *maxTokens
	}
	return params
}
