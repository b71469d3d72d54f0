package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	sessionModel "github.com/zephyrhk/answer-machine/backend/internal/model/session"
	sessionService "github.com/zephyrhk/answer-machine/backend/internal/service/session"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// Handler streams ask outcomes over Server-Sent Events. The session mutation
// is identical to a plain ask; only the delivery differs.
type Handler struct {
	sessions *sessionService.Service
	personas persona.Store
}

// New creates a new stream handler.
func New(sessions *sessionService.Service, personas persona.Store) *Handler {
	return &Handler{sessions: sessions, personas: personas}
}

// StreamResponse represents a streaming response chunk.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest answers a question over SSE. Validation failures are
// returned before any stream bytes go out so the caller can respond with a
// regular status; once the stream is open, failures travel as error events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, question string, params *sessionModel.Params) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming unsupported")
	}

	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(question) == "" {
		return sessionService.ErrEmptyQuestion
	}

	utils.SetupSSEHeaders(w)

	if p, ok := h.personas.FindByID(sess.PersonaID); ok {
		h.send(w, flusher, StreamResponse{
			Event:     "start",
			SessionID: sessionID,
			Content:   fmt.Sprintf("%s的回應:", p.Name),
		})
	}

	outcome, err := h.sessions.AskStream(ctx, sessionID, question, params, func(delta string) {
		h.send(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		// The session went away mid-flight.
		h.send(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return nil
	}

	if outcome.ResolveErr != nil {
		h.send(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     outcome.ResolveErr.Message,
		})
	} else {
		h.send(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   outcome.Answer,
		})
	}

	h.send(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	log.Printf("[stream] completed response for session=%s persona=%s", sessionID, sess.PersonaID)
	return nil
}

// ParamsFromQuery reads optional temperature and maxTokens query parameters.
// Absent values leave the resolver defaults in charge.
func ParamsFromQuery(query url.Values) (*sessionModel.Params, error) {
	rawTemperature := query.Get("temperature")
	rawMaxTokens := query.Get("maxTokens")
	if rawTemperature == "" && rawMaxTokens == "" {
		return nil, nil
	}

	params := &sessionModel.Params{Temperature: sessionModel.DefaultTemperature}
	if rawTemperature != "" {
		temperature, err := strconv.ParseFloat(rawTemperature, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid temperature %q", rawTemperature)
		}
		params.Temperature = temperature
	}
	if rawMaxTokens != "" {
		maxTokens, err := strconv.Atoi(rawMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("invalid maxTokens %q", rawMaxTokens)
		}
		params.MaxTokens = maxTokens
	}
	return params, nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
