package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

const (
	defaultBaseURL     = "https://api.poe.com/v1"
	defaultModel       = "gpt-3.5-turbo"
	defaultImageModel  = "Imagen-4"
	defaultAspect      = "3:2"
	defaultQuality     = "high"
	defaultPersonaID   = "street-sage"
	defaultSecretsFile = "secrets.toml"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Image   ImageConfig
	Session SessionConfig
}

// Load reads configuration from environment variables, falling back to the
// secrets file for the API key.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Image:   loadImageConfig(),
		Session: session,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		// PORT may be a bare port number or a full listen address.
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	origins := []string{"*"}
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	rateLimit := 5.0
	if override, err := parseOptionalFloatEnv("RATE_LIMIT"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		rateLimit = *override
	}

	rateBurst := 10
	if override, err := parseOptionalIntEnv("RATE_BURST"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		rateBurst = *override
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: origins,
		RateLimit:      rateLimit,
		RateBurst:      rateBurst,
	}, nil
}

// AIConfig describes the upstream completion API and answer generation.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultPersona string
	Temperature    *float64
	MaxTokens      *int
	StreamResponse bool
	Timeout        int
}

// Configured reports whether an API key is available. The resolvers surface
// the missing-key case per call instead of refusing to start.
func (c AIConfig) Configured() bool {
	return c.APIKey != ""
}

// NewChatModel builds an eino chat model bound to the configured endpoint.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("missing API key")
	}

	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Model:   c.Model,
		Timeout: time.Duration(c.Timeout) * time.Second,
	})
}

func loadAIConfig() (AIConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("API_KEY"))
	if apiKey == "" {
		fromFile, err := readSecretsKey(getEnvOrDefault("SECRETS_FILE", defaultSecretsFile))
		if err != nil {
			return AIConfig{}, err
		}
		apiKey = fromFile
	}

	baseURL := strings.TrimSpace(os.Getenv("API_BASE"))
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv("POE_BASE_URL"))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	temperature, err := parseOptionalFloatEnv("ANSWER_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ANSWER_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ANSWER_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	timeout := 60
	if override, err := parseOptionalIntEnv("REQUEST_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = *override
	}

	return AIConfig{
		APIKey:         apiKey,
		BaseURL:        baseURL,
		Model:          getEnvOrDefault("MODEL", defaultModel),
		DefaultPersona: getEnvOrDefault("PERSONA", defaultPersonaID),
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
		Timeout:        timeout,
	}, nil
}

// ImageConfig describes the portrait generation model.
type ImageConfig struct {
	Model   string
	Aspect  string
	Quality string
}

func loadImageConfig() ImageConfig {
	return ImageConfig{
		Model:   getEnvOrDefault("IMAGE_MODEL", defaultImageModel),
		Aspect:  getEnvOrDefault("IMAGE_ASPECT", defaultAspect),
		Quality: getEnvOrDefault("IMAGE_QUALITY", defaultQuality),
	}
}

// SessionConfig describes session retention.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	cfg := SessionConfig{TTL: time.Hour, SweepInterval: 5 * time.Minute}

	ttl, err := parseOptionalDurationEnv("SESSION_TTL")
	if err != nil {
		return SessionConfig{}, err
	}
	if ttl != nil && *ttl > 0 {
		cfg.TTL = *ttl
	}

	sweep, err := parseOptionalDurationEnv("SESSION_SWEEP")
	if err != nil {
		return SessionConfig{}, err
	}
	if sweep != nil && *sweep > 0 {
		cfg.SweepInterval = *sweep
	}

	return cfg, nil
}

type secretsFile struct {
	APIKey string `toml:"API_KEY"`
}

// readSecretsKey pulls API_KEY from the optional TOML secrets file. A missing
// file is fine; a malformed one is a startup error.
func readSecretsKey(path string) (string, error) {
	var secrets secretsFile
	if _, err := toml.DecodeFile(path, &secrets); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	return strings.TrimSpace(secrets.APIKey), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
