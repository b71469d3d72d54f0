package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
)

// chatModel is a minimal OpenAI-compatible chat client. The image endpoint
// expects top-level aspect and quality fields in the request body, which the
// standard component has no way to express, so the call is made by hand.
type chatModel struct {
	baseURL string
	apiKey  string
	model   string
	aspect  string
	quality string
	client  *http.Client
}

func newChatModel(cfg config.AIConfig, imgCfg config.ImageConfig) *chatModel {
	return &chatModel{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   imgCfg.Model,
		aspect:  imgCfg.Aspect,
		quality: imgCfg.Quality,
		client:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
	Aspect   string              `json:"aspect"`
	Quality  string              `json:"quality"`
	Stream   bool                `json:"stream"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// Generate posts a single chat completion and returns the assistant message.
func (m *chatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	messages := make([]completionMessage, 0, len(input))
	for _, msg := range input {
		messages = append(messages, completionMessage{Role: string(msg.Role), Content: msg.Content})
	}

	payload, err := json.Marshal(completionRequest{
		Model:    m.model,
		Messages: messages,
		Aspect:   m.aspect,
		Quality:  m.quality,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid API response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("API response contained no choices")
	}

	return schema.AssistantMessage(parsed.Choices[0].Message.Content, nil), nil
}

// Stream is unsupported; image generation always runs non-streaming.
func (m *chatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported for image generation")
}
