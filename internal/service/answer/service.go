package answer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	"github.com/zephyrhk/answer-machine/backend/internal/model/session"
	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
)

// Service turns a life question into a short persona-styled answer by running
// the configured chat model through an eino chain. The chain is compiled on
// first use so a missing API key surfaces as a per-call failure instead of
// preventing startup.
type Service struct {
	personas persona.Store
	cfg      config.AIConfig
	newModel func(ctx context.Context) (model.BaseChatModel, error)

	mu    sync.Mutex
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates an answer service backed by the configured model.
func NewService(personas persona.Store, cfg config.AIConfig) *Service {
	return &Service{personas: personas, cfg: cfg, newModel: cfg.NewChatModel}
}

// StreamingEnabled indicates whether SSE streaming output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// DefaultParams returns the generation parameters used when a request does
// not carry its own, with configuration overrides applied.
func (s *Service) DefaultParams() session.Params {
	p := session.Params{
		Temperature: session.DefaultTemperature,
		MaxTokens:   session.DefaultMaxTokens,
	}
	if s.cfg.Temperature != nil {
		p.Temperature = *s.cfg.Temperature
	}
	if s.cfg.MaxTokens != nil {
		p.MaxTokens = *s.cfg.MaxTokens
	}
	return p.Clamp()
}

// Resolve produces the answer for question in the voice of the persona.
// Failures come back as *resolve.Error so callers can keep the session alive
// and show the message as the answer.
func (s *Service) Resolve(ctx context.Context, personaID, question string, params session.Params) (string, error) {
	p, chain, err := s.prepare(ctx, personaID)
	if err != nil {
		return "", err
	}

	response, err := chain.Invoke(ctx, chainInput(p, question), callOptions(params))
	if err != nil {
		return "", resolve.NewCapability(fmt.Sprintf("Error calling completion API: %v", err), err)
	}

	answer := strings.TrimSpace(response.Content)
	log.Printf("[answer] resolved persona=%s question_len=%d answer_len=%d", p.ID, len(question), len(answer))
	return answer, nil
}

// ResolveStream produces the answer incrementally, invoking onDelta for each
// non-empty chunk, and returns the concatenated final answer. The final text
// is what callers must store; the deltas exist only for live display.
func (s *Service) ResolveStream(ctx context.Context, personaID, question string, params session.Params, onDelta func(string)) (string, error) {
	p, chain, err := s.prepare(ctx, personaID)
	if err != nil {
		return "", err
	}

	reader, err := chain.Stream(ctx, chainInput(p, question), callOptions(params))
	if err != nil {
		return "", resolve.NewCapability(fmt.Sprintf("Error calling completion API: %v", err), err)
	}
	defer reader.Close()

	chunks := make([]*schema.Message, 0, 16)
	for {
		chunk, err := reader.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", resolve.NewCapability(fmt.Sprintf("Error calling completion API: %v", err), err)
		}

		chunks = append(chunks, chunk)
		if onDelta != nil && chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", resolve.NewCapability(fmt.Sprintf("Error calling completion API: %v", err), err)
	}

	answer := strings.TrimSpace(full.Content)
	log.Printf("[answer] streamed persona=%s chunks=%d answer_len=%d", p.ID, len(chunks), len(answer))
	return answer, nil
}

// prepare picks the persona and returns the compiled chain. An unknown id
// degrades to the configured default persona rather than failing the ask.
func (s *Service) prepare(ctx context.Context, personaID string) (persona.Persona, compose.Runnable[map[string]any, *schema.Message], error) {
	if personaID == "" {
		personaID = s.cfg.DefaultPersona
	}

	p, ok := s.personas.FindByID(personaID)
	if !ok {
		log.Printf("[answer] unknown persona %q, using default %q", personaID, s.cfg.DefaultPersona)
		p, ok = s.personas.FindByID(s.cfg.DefaultPersona)
	}
	if !ok {
		return persona.Persona{}, nil, resolve.NewConfiguration(fmt.Sprintf("unknown persona %q", personaID), nil)
	}

	chain, err := s.ensureChain(ctx)
	if err != nil {
		return persona.Persona{}, nil, err
	}
	return p, chain, nil
}

// ensureChain compiles the prompt+model chain once and caches it. Compilation
// is retried on the next call after a failure.
func (s *Service) ensureChain(ctx context.Context) (compose.Runnable[map[string]any, *schema.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain != nil {
		return s.chain, nil
	}

	if !s.cfg.Configured() {
		return nil, resolve.NewConfiguration(resolve.MissingKeyMessage, nil)
	}

	chatModel, err := s.newModel(ctx)
	if err != nil {
		return nil, resolve.NewConfiguration(fmt.Sprintf("Failed to initialize OpenAI client: %v", err), err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, resolve.NewConfiguration(fmt.Sprintf("Failed to initialize OpenAI client: %v", err), err)
	}

	s.chain = runnable
	return runnable, nil
}

func chainInput(p persona.Persona, question string) map[string]any {
	return map[string]any{
		"system": p.SystemPrompt,
		"query":  question,
	}
}

// callOptions maps per-request generation parameters onto the chat model.
func callOptions(params session.Params) compose.Option {
	params = params.Clamp()
	return compose.WithChatModelOption(
		model.WithTemperature(float32(params.Temperature)),
		model.WithMaxTokens(params.MaxTokens),
	)
}
