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
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// Config aggregates every configuration section of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Market  MarketConfig
	Kite    KiteConfig
	Client  ClientConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	market, err := loadMarketConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Storage: StorageConfig{HoldingsDB: getEnvOrDefault("HOLDINGS_DB", "zerodha_holdings.db")},
		Market:  market,
		Kite: KiteConfig{
			APIKey:   strings.TrimSpace(os.Getenv("ZERODHA_API_KEY")),
			LoginURL: getEnvOrDefault("KITE_LOGIN_URL", "https://kite.zerodha.com/connect/login"),
		},
		Client: client,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr        string
	FrontendURL string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	frontend := getEnvOrDefault("FRONTEND_URL", "http://localhost:5173")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// ":8000" or "127.0.0.1:8000" are taken as is.
		return ServerConfig{Addr: port, FrontendURL: frontend}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, FrontendURL: frontend}, nil
}

// AIConfig describes the language model backends.
type AIConfig struct {
	Provider    string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

// ArkEnabled reports whether the Ark credentials are complete.
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// GeminiEnabled reports whether a Gemini key is configured.
func (c AIConfig) GeminiEnabled() bool {
	return c.GeminiAPIKey != "" && c.GeminiModel != ""
}

// Enabled reports whether the selected provider can be used.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.ArkEnabled()
	case ProviderGemini:
		return c.GeminiEnabled()
	default:
		return false
	}
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("missing Ark credentials: set ARK_API_KEY and Model, or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("Model")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	switch provider {
	case "":
		// Ark stays the default; Gemini is picked only when it is the sole option.
		provider = ProviderArk
		if !cfg.ArkEnabled() && cfg.GeminiEnabled() {
			provider = ProviderGemini
		}
	case ProviderArk, ProviderGemini:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}
	cfg.Provider = provider

	return cfg, nil
}

// StorageConfig locates the holdings database.
type StorageConfig struct {
	HoldingsDB string
}

// MarketConfig holds the third party market data services.
type MarketConfig struct {
	FMPAPIKey      string
	FMPBaseURL     string
	TavilyAPIKey   string
	TavilyBaseURL  string
	NewsTopHolding int
}

func loadMarketConfig() (MarketConfig, error) {
	top := 5
	if override, err := parseOptionalIntEnv("NEWS_TOP_HOLDINGS"); err != nil {
		return MarketConfig{}, err
	} else if override != nil {
		if *override < 1 {
			top = 1
		} else {
			top = *override
		}
	}

	return MarketConfig{
		FMPAPIKey:      strings.TrimSpace(os.Getenv("FMP_API_KEY")),
		FMPBaseURL:     getEnvOrDefault("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		TavilyAPIKey:   strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TavilyBaseURL:  getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
		NewsTopHolding: top,
	}, nil
}

// KiteConfig describes the broker login redirect.
type KiteConfig struct {
	APIKey   string
	LoginURL string
}

// ClientConfig configures the terminal dashboard.
type ClientConfig struct {
	BaseURL        string
	Transport      string
	RequestTimeout time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	timeout, err := parseDurationEnv("CHAT_REQUEST_TIMEOUT", 0)
	if err != nil {
		return ClientConfig{}, err
	}

	transport := strings.ToLower(getEnvOrDefault("CHAT_TRANSPORT", "http"))
	if transport != "http" && transport != "ws" {
		return ClientConfig{}, fmt.Errorf("invalid CHAT_TRANSPORT value %q", transport)
	}

	return ClientConfig{
		BaseURL:        strings.TrimRight(getEnvOrDefault("DASHBOARD_API", "http://localhost:8000"), "/"),
		Transport:      transport,
		RequestTimeout: timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
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
