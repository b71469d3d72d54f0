package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	"github.com/zephyrhk/answer-machine/backend/internal/model/preset"
	"github.com/zephyrhk/answer-machine/backend/internal/model/session"
	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPersonaUnknown  = errors.New("unknown persona")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNothingToReroll = errors.New("no question to reroll")
	ErrUnknownPreset   = errors.New("not a preset question")
)

// Resolver produces the answer text for a question asked in a persona's
// voice. Failures are reported as *resolve.Error values; the store keeps the
// session alive and records the rendered message as the answer either way.
type Resolver interface {
	Resolve(ctx context.Context, personaID, question string, params session.Params) (string, error)
	DefaultParams() session.Params
}

// StreamResolver is implemented by resolvers that can deliver the answer
// incrementally while still returning the complete final text.
type StreamResolver interface {
	Resolver
	StreamingEnabled() bool
	ResolveStream(ctx context.Context, personaID, question string, params session.Params, onDelta func(string)) (string, error)
}

// Config controls session defaults and retention.
type Config struct {
	DefaultPersona string
	TTL            time.Duration
}

// Outcome bundles the mutated session snapshot with the resolution result of
// the action that produced it. ResolveErr is non-nil when the answer text is
// a rendered failure message rather than a generated answer.
type Outcome struct {
	Session    session.Session
	Answer     string
	ResolveErr *resolve.Error
}

// Service owns every live question/answer session. One shared implementation
// serves all resolver flavors; the resolver is the only injected behavior.
type Service struct {
	resolver Resolver
	personas persona.Store
	presets  preset.Store
	cfg      Config

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewService bootstraps the in-memory session service.
func NewService(resolver Resolver, personas persona.Store, presets preset.Store, cfg Config) *Service {
	return &Service{
		resolver: resolver,
		personas: personas,
		presets:  presets,
		cfg:      cfg,
		sessions: make(map[string]*session.Session),
	}
}

// Create provisions an empty session bound to a persona. An empty personaID
// selects the configured default.
func (s *Service) Create(_ context.Context, personaID string) (session.Session, error) {
	if personaID == "" {
		personaID = s.cfg.DefaultPersona
	}
	if _, ok := s.personas.FindByID(personaID); !ok {
		return session.Session{}, ErrPersonaUnknown
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return snapshot(sess), nil
}

// Get retrieves a session snapshot by identifier.
func (s *Service) Get(_ context.Context, sessionID string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

// Delete ends a session explicitly.
func (s *Service) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Ask submits a new question: the resolver runs, the current question and
// answer are replaced, the reroll counter resets and a fresh history entry is
// appended. A whitespace-only question is rejected before any call with no
// mutation at all.
func (s *Service) Ask(ctx context.Context, sessionID, question string, params *session.Params) (Outcome, error) {
	personaID, err := s.personaFor(sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(question) == "" {
		return Outcome{}, ErrEmptyQuestion
	}

	answer, rerr := s.resolveAnswer(ctx, personaID, question, params)
	return s.applyAsk(sessionID, question, answer, rerr)
}

// AskStream behaves exactly like Ask but delivers the answer incrementally
// through onDelta when the resolver supports streaming. With streaming
// unavailable or disabled it falls back to a plain Ask.
func (s *Service) AskStream(ctx context.Context, sessionID, question string, params *session.Params, onDelta func(string)) (Outcome, error) {
	sr, ok := s.resolver.(StreamResolver)
	if !ok || !sr.StreamingEnabled() {
		return s.Ask(ctx, sessionID, question, params)
	}

	personaID, err := s.personaFor(sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(question) == "" {
		return Outcome{}, ErrEmptyQuestion
	}

	answer, streamErr := sr.ResolveStream(ctx, personaID, question, s.params(params), onDelta)
	var rerr *resolve.Error
	if streamErr != nil {
		rerr = toResolveError(streamErr)
		answer = rerr.Message
		log.Printf("[session] stream resolve failed kind=%s: %s", rerr.Kind, rerr.Message)
	}

	return s.applyAsk(sessionID, question, answer, rerr)
}

// Reroll re-resolves the current question. The counter advances, the answer
// is replaced and the last history entry is overwritten in place; history
// never grows. Without a prior question the call is rejected unmutated.
func (s *Service) Reroll(ctx context.Context, sessionID string, params *session.Params) (Outcome, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	var personaID, question string
	if ok {
		personaID, question = sess.PersonaID, sess.Question
	}
	s.mu.RUnlock()

	if !ok {
		return Outcome{}, ErrSessionNotFound
	}
	if question == "" {
		return Outcome{}, ErrNothingToReroll
	}

	answer, rerr := s.resolveAnswer(ctx, personaID, question, params)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok = s.sessions[sessionID]
	if !ok {
		return Outcome{}, ErrSessionNotFound
	}

	sess.Reroll++
	sess.Answer = answer
	if n := len(sess.History); n > 0 {
		sess.History[n-1].Answer = answer
		sess.History[n-1].Rerolls = sess.Reroll
	}
	sess.UpdatedAt = time.Now().UTC()

	return Outcome{Session: snapshot(sess), Answer: answer, ResolveErr: rerr}, nil
}

// AskPreset resolves one of the fixed preset questions. Preset answers land
// in history only; the current question/answer/reroll display fields stay as
// they were.
func (s *Service) AskPreset(ctx context.Context, sessionID, question string, params *session.Params) (Outcome, error) {
	personaID, err := s.personaFor(sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if !s.presets.Contains(question) {
		return Outcome{}, ErrUnknownPreset
	}

	answer, rerr := s.resolveAnswer(ctx, personaID, question, params)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{}, ErrSessionNotFound
	}

	sess.History = append(sess.History, session.HistoryEntry{Question: question, Answer: answer, Rerolls: 0})
	sess.HasAsked = true
	sess.UpdatedAt = time.Now().UTC()

	return Outcome{Session: snapshot(sess), Answer: answer, ResolveErr: rerr}, nil
}

// History returns the session's history entries in insertion order.
func (s *Service) History(_ context.Context, sessionID string) ([]session.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	entries := make([]session.HistoryEntry, len(sess.History))
	copy(entries, sess.History)
	return entries, nil
}

// ClearHistory resets the session to its freshly created state: question,
// answer, reroll, history and the has-asked flag all return to their zero
// values. It never fails for an existing session and is idempotent.
func (s *Service) ClearHistory(_ context.Context, sessionID string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}

	sess.Question = ""
	sess.Answer = ""
	sess.Reroll = 0
	sess.History = nil
	sess.HasAsked = false
	sess.UpdatedAt = time.Now().UTC()

	return snapshot(sess), nil
}

// StartJanitor launches a background sweep of idle sessions, stopping when
// ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.cfg.TTL <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweep(time.Now().UTC()); removed > 0 {
					log.Printf("[session] swept %d idle sessions", removed)
				}
			}
		}
	}()
}

// sweep removes sessions idle past the TTL and reports how many went away.
func (s *Service) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.cfg.TTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// applyAsk writes the outcome of a fresh ask into the session.
func (s *Service) applyAsk(sessionID, question, answer string, rerr *resolve.Error) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{}, ErrSessionNotFound
	}

	sess.Question = question
	sess.Answer = answer
	sess.Reroll = 0
	sess.History = append(sess.History, session.HistoryEntry{Question: question, Answer: answer, Rerolls: 0})
	sess.HasAsked = true
	sess.UpdatedAt = time.Now().UTC()

	return Outcome{Session: snapshot(sess), Answer: answer, ResolveErr: rerr}, nil
}

// resolveAnswer runs the resolver and converts a failure into the stored
// answer text plus its typed form.
func (s *Service) resolveAnswer(ctx context.Context, personaID, question string, params *session.Params) (string, *resolve.Error) {
	answer, err := s.resolver.Resolve(ctx, personaID, question, s.params(params))
	if err != nil {
		re := toResolveError(err)
		log.Printf("[session] resolve failed kind=%s: %s", re.Kind, re.Message)
		return re.Message, re
	}
	return answer, nil
}

// params picks the request's generation parameters or the resolver defaults.
func (s *Service) params(params *session.Params) session.Params {
	if params == nil {
		return s.resolver.DefaultParams()
	}
	return params.Clamp()
}

func (s *Service) personaFor(sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	return sess.PersonaID, nil
}

func toResolveError(err error) *resolve.Error {
	if re, ok := resolve.AsError(err); ok {
		return re
	}
	return resolve.NewCapability(err.Error(), err)
}

// snapshot copies the session so callers never share the live history slice.
func snapshot(sess *session.Session) session.Session {
	copied := *sess
	copied.History = make([]session.HistoryEntry, len(sess.History))
	copy(copied.History, sess.History)
	return copied
}
