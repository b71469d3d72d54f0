package image

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	"github.com/zephyrhk/answer-machine/backend/internal/model/session"
	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
)

const promptPrefix = "accord to the user prompt to genertate an image:"

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// colorAccents maps the frontend's Traditional Chinese color picks to the
// English words used in fallback prompts.
var colorAccents = map[string]string{
	"紅色":  "red",
	"橙色":  "orange",
	"黃色":  "yellow",
	"綠色":  "green",
	"藍色":  "blue",
	"紫色":  "purple",
	"粉紅色": "pink",
	"白色":  "white",
	"黑色":  "black",
	"金色":  "gold",
}

// Request describes one image generation ask. Subject and ColorHint are
// optional structured hints that only influence the fallback prompt.
type Request struct {
	Prompt    string `json:"prompt"`
	Subject   string `json:"subject,omitempty"`
	ColorHint string `json:"colorHint,omitempty"`
}

// Service turns a character description into an image URL via the configured
// chat-style image model. A failed primary attempt is retried exactly once
// with a deterministic simplified prompt.
type Service struct {
	cfg      config.AIConfig
	imgCfg   config.ImageConfig
	newModel func() model.BaseChatModel

	mu        sync.Mutex
	chatModel model.BaseChatModel
}

// NewService creates an image service backed by the configured model.
func NewService(cfg config.AIConfig, imgCfg config.ImageConfig) *Service {
	s := &Service{cfg: cfg, imgCfg: imgCfg}
	s.newModel = func() model.BaseChatModel { return newChatModel(cfg, imgCfg) }
	return s
}

// ResolveImage resolves req to an image URL. A response without a parsable
// URL counts as a stage failure and triggers the fallback, the same as a
// call error; there is never a third call. Failures come back as
// *resolve.Error with the rendered message.
func (s *Service) ResolveImage(ctx context.Context, req Request) (string, error) {
	m, err := s.ensureModel()
	if err != nil {
		return "", err
	}

	url, raw, primaryErr := s.generate(ctx, m, promptPrefix+req.Prompt)
	if primaryErr == nil && url != "" {
		log.Printf("[image] resolved prompt_len=%d", len(req.Prompt))
		return url, nil
	}
	if primaryErr != nil {
		log.Printf("[image] primary attempt failed: %v", primaryErr)
	} else {
		log.Printf("[image] primary attempt returned no URL, content_len=%d", len(raw))
	}

	url, raw, fallbackErr := s.generate(ctx, m, fallbackPrompt(req))
	if fallbackErr == nil && url != "" {
		log.Printf("[image] resolved via fallback prompt_len=%d", len(req.Prompt))
		return url, nil
	}
	if fallbackErr != nil {
		return "", resolve.NewCapability(fmt.Sprintf("Error generating image: %v", fallbackErr), fallbackErr)
	}
	return "", resolve.NewCapability(fmt.Sprintf("Error generating image: no image URL in response: %s", snippet(raw)), nil)
}

// Resolve lets the image service stand in as a session resolver: the question
// text is the character description. Generation parameters do not apply to
// image calls and are ignored.
func (s *Service) Resolve(ctx context.Context, _, question string, _ session.Params) (string, error) {
	return s.ResolveImage(ctx, Request{Prompt: question})
}

// DefaultParams satisfies the resolver contract; image calls carry no
// generation parameters, so the model defaults are returned as-is.
func (s *Service) DefaultParams() session.Params {
	return session.Params{
		Temperature: session.DefaultTemperature,
		MaxTokens:   session.DefaultMaxTokens,
	}
}

// generate performs one model call and scans the content for the first URL.
func (s *Service) generate(ctx context.Context, m model.BaseChatModel, prompt string) (url, raw string, err error) {
	response, err := m.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", "", err
	}

	content := strings.TrimSpace(response.Content)
	return urlPattern.FindString(content), content, nil
}

// ensureModel builds the image model once. The missing-key case surfaces
// here, before any call is issued.
func (s *Service) ensureModel() (model.BaseChatModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatModel != nil {
		return s.chatModel, nil
	}
	if !s.cfg.Configured() {
		return nil, resolve.NewConfiguration(resolve.MissingKeyMessage, nil)
	}

	s.chatModel = s.newModel()
	return s.chatModel, nil
}

// fallbackPrompt builds the simplified retry prompt from the structured
// request fields. Equal requests always produce the same prompt.
func fallbackPrompt(req Request) string {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = shortSubject(req.Prompt)
	}

	var b strings.Builder
	b.WriteString("A simple cartoon illustration of ")
	b.WriteString(subject)
	if color := colorAccents[strings.TrimSpace(req.ColorHint)]; color != "" {
		b.WriteString(" with ")
		b.WriteString(color)
		b.WriteString(" color accents")
	}
	b.WriteString(", clean lines, plain background, high quality")
	return b.String()
}

// shortSubject keeps the first few words of the free-form description.
func shortSubject(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func snippet(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
