package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	"github.com/zephyrhk/answer-machine/backend/internal/model/session"
	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
)

type fakeChatModel struct {
	reply        string
	chunks       []string
	err          error
	lastMessages []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.lastMessages = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.lastMessages = input
	if m.err != nil {
		return nil, m.err
	}

	messages := make([]*schema.Message, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		messages = append(messages, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(messages), nil
}

func newTestService(cfg config.AIConfig, fake model.BaseChatModel) *Service {
	svc := NewService(persona.NewMemoryStore(persona.Seed()), cfg)
	svc.newModel = func(context.Context) (model.BaseChatModel, error) { return fake, nil }
	return svc
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		APIKey:         "test-key",
		Model:          "gpt-3.5-turbo",
		DefaultPersona: "street-sage",
		StreamResponse: true,
	}
}

func TestResolveMissingKey(t *testing.T) {
	svc := NewService(persona.NewMemoryStore(persona.Seed()), config.AIConfig{DefaultPersona: "street-sage"})
	factoryCalls := 0
	svc.newModel = func(context.Context) (model.BaseChatModel, error) {
		factoryCalls++
		return nil, errors.New("should not be reached")
	}

	_, err := svc.Resolve(context.Background(), "", "anything", session.Params{})
	re, ok := resolve.AsError(err)
	if !ok {
		t.Fatalf("expected *resolve.Error, got %v", err)
	}
	if re.Kind != resolve.KindConfiguration {
		t.Fatalf("expected configuration kind, got %s", re.Kind)
	}
	if re.Message != resolve.MissingKeyMessage {
		t.Fatalf("unexpected message: %q", re.Message)
	}
	if factoryCalls != 0 {
		t.Fatalf("model factory must not run without a key, got %d calls", factoryCalls)
	}
}

func TestResolveTrimsAnswerAndBuildsPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "  chill and vibe, bro.  \n"}
	svc := newTestService(testAIConfig(), fake)

	answer, err := svc.Resolve(context.Background(), "street-sage", "How can I be happy?", session.Params{Temperature: 0.4, MaxTokens: 300})
	if err != nil {
		t.Fatalf("Resolve err: %v", err)
	}
	if answer != "chill and vibe, bro." {
		t.Fatalf("answer should be trimmed, got %q", answer)
	}

	if len(fake.lastMessages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(fake.lastMessages))
	}
	system := fake.lastMessages[0]
	if system.Role != schema.System || !strings.Contains(system.Content, "close friend giving advice on life questions") {
		t.Fatalf("unexpected system message: role=%s content=%q", system.Role, system.Content)
	}
	user := fake.lastMessages[1]
	if user.Role != schema.User || user.Content != "How can I be happy?" {
		t.Fatalf("unexpected user message: role=%s content=%q", user.Role, user.Content)
	}
}

func TestResolveWrapsCallFailure(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("connection refused")}
	svc := newTestService(testAIConfig(), fake)

	_, err := svc.Resolve(context.Background(), "", "q", session.Params{})
	re, ok := resolve.AsError(err)
	if !ok {
		t.Fatalf("expected *resolve.Error, got %v", err)
	}
	if re.Kind != resolve.KindCapability {
		t.Fatalf("expected capability kind, got %s", re.Kind)
	}
	if !strings.HasPrefix(re.Message, "Error calling completion API: ") {
		t.Fatalf("unexpected message: %q", re.Message)
	}
	if !strings.Contains(re.Message, "connection refused") {
		t.Fatalf("message should carry the cause, got %q", re.Message)
	}
}

func TestResolveUnknownPersonaUsesDefault(t *testing.T) {
	fake := &fakeChatModel{reply: "still answered"}
	svc := newTestService(testAIConfig(), fake)

	answer, err := svc.Resolve(context.Background(), "somebody-else", "q", session.Params{})
	if err != nil {
		t.Fatalf("Resolve err: %v", err)
	}
	if answer != "still answered" {
		t.Fatalf("unexpected answer %q", answer)
	}

	defaultPersona, _ := persona.NewMemoryStore(persona.Seed()).FindByID("street-sage")
	if got := fake.lastMessages[0].Content; got != defaultPersona.SystemPrompt {
		t.Fatalf("expected default persona prompt, got %q", got)
	}
}

func TestResolveReusesCompiledChain(t *testing.T) {
	fake := &fakeChatModel{reply: "fine"}
	svc := NewService(persona.NewMemoryStore(persona.Seed()), testAIConfig())
	factoryCalls := 0
	svc.newModel = func(context.Context) (model.BaseChatModel, error) {
		factoryCalls++
		return fake, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(context.Background(), "", "q", session.Params{}); err != nil {
			t.Fatalf("Resolve #%d err: %v", i+1, err)
		}
	}
	if factoryCalls != 1 {
		t.Fatalf("chain should compile once, factory ran %d times", factoryCalls)
	}
}

func TestResolveStreamConcatsDeltas(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Be ", "kind ", "to yourself."}}
	svc := newTestService(testAIConfig(), fake)

	var deltas []string
	answer, err := svc.ResolveStream(context.Background(), "", "how?", session.Params{}, func(delta string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("ResolveStream err: %v", err)
	}
	if answer != "Be kind to yourself." {
		t.Fatalf("unexpected final answer: %q", answer)
	}
	if len(deltas) != 3 {
		t.Fatalf("expected 3 deltas, got %d: %v", len(deltas), deltas)
	}
}

func TestDefaultParams(t *testing.T) {
	svc := NewService(persona.NewMemoryStore(persona.Seed()), testAIConfig())
	got := svc.DefaultParams()
	if got.Temperature != session.DefaultTemperature || got.MaxTokens != session.DefaultMaxTokens {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	temp := 0.9
	tokens := 150
	cfg := testAIConfig()
	cfg.Temperature = &temp
	cfg.MaxTokens = &tokens
	svc = NewService(persona.NewMemoryStore(persona.Seed()), cfg)
	got = svc.DefaultParams()
	if got.Temperature != 0.9 || got.MaxTokens != 150 {
		t.Fatalf("configuration overrides should win: %+v", got)
	}
}
