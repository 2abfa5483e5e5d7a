package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/homewiz/lease-concierge/backend/internal/service/gateway"
)

// Assistant backends.
const (
	BackendRemote = "remote"
	BackendArk    = "ark"
)

// Config aggregates every setting the concierge reads at start-up.
type Config struct {
	Server    ServerConfig
	Gateway   GatewayConfig
	Assistant AssistantConfig
	Catalog   CatalogConfig
	Limits    LimitsConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	limits, err := loadLimitsConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Gateway:   GatewayConfig{Endpoint: getEnvOrDefault("CONCIERGE_API_URL", gateway.DefaultEndpoint)},
		Assistant: assistant,
		Catalog:   CatalogConfig{StepsFile: strings.TrimSpace(os.Getenv("STEPS_FILE"))},
		Limits:    limits,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	Env            string
	AllowedOrigins []string
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := ServerConfig{
		Env:            strings.ToLower(getEnvOrDefault("APP_ENV", "development")),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted as-is.
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// GatewayConfig points at the leasing endpoint.
type GatewayConfig struct {
	Endpoint string
}

// CatalogConfig optionally overrides the built-in onboarding steps.
type CatalogConfig struct {
	StepsFile string
}

// LimitsConfig bounds request rates and session lifetimes.
type LimitsConfig struct {
	RatePerMinute  int
	Burst          int
	SessionIdleTTL time.Duration
}

func loadLimitsConfig() (LimitsConfig, error) {
	rate, err := parseOptionalIntEnv("RATE_LIMIT_PER_MINUTE")
	if err != nil {
		return LimitsConfig{}, err
	}
	burst, err := parseOptionalIntEnv("RATE_LIMIT_BURST")
	if err != nil {
		return LimitsConfig{}, err
	}
	ttl, err := parseOptionalDurationEnv("SESSION_IDLE_TTL")
	if err != nil {
		return LimitsConfig{}, err
	}

	cfg := LimitsConfig{RatePerMinute: 60, Burst: 10, SessionIdleTTL: 2 * time.Hour}
	if rate != nil {
		cfg.RatePerMinute = *rate
	}
	if burst != nil {
		cfg.Burst = *burst
	}
	if ttl != nil {
		cfg.SessionIdleTTL = *ttl
	}
	if cfg.RatePerMinute < 0 || cfg.Burst < 0 {
		return LimitsConfig{}, fmt.Errorf("rate limits must not be negative")
	}
	return cfg, nil
}

// AssistantConfig selects who answers free-form messages.
type AssistantConfig struct {
	Backend     string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// UsesArk reports whether free-form messages go to the Ark chat model.
func (c AssistantConfig) UsesArk() bool {
	return c.Backend == BackendArk
}

// ArkReady reports whether the credentials required by Ark are present.
func (c AssistantConfig) ArkReady() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model described by the config.
func (c AssistantConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkReady() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL and ARK_API_KEY or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAssistantConfig() (AssistantConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("ASSISTANT_BACKEND", BackendRemote))
	if backend != BackendRemote && backend != BackendArk {
		return AssistantConfig{}, fmt.Errorf("invalid ASSISTANT_BACKEND value %q", backend)
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AssistantConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AssistantConfig{}, err
	}

	return AssistantConfig{
		Backend:     backend,
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
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
