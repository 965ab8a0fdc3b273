package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

const (
	defaultBaseURL       = "https://api.groq.com/openai/v1"
	defaultModel         = "openai/gpt-oss-20b"
	defaultTemperature   = 0.7
	defaultTimeout       = 30 * time.Second
	defaultGreeting      = "Hello! I'm MediC, your AI medical consultant. I'm here to help answer your health questions and provide general guidance. How can I assist you today?"
	defaultResetGreeting = "How can I help you 😁😷😁"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Agent     AgentConfig
	Chat      ChatConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// Load 从环境变量加载配置。凭证缺失不在这里报错，由 Agent.Validate 负责。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	chatCfg, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Agent: agent, Chat: chatCfg, Log: logCfg, Telemetry: telemetry}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig describes the hosted completion endpoint. It is built once at
// startup and never mutated.
type AgentConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	Temperature  float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
	Stream       bool
}

// Validate checks the agent configuration eagerly so a bad deployment fails
// before any request reaches the network.
func (c AgentConfig) Validate() error {
	if c.APIKey == "" {
		return chat.NewError(chat.KindConfiguration, "MEDIC_API_KEY is not set", nil)
	}
	if c.Model == "" {
		return chat.NewError(chat.KindConfiguration, "MEDIC_MODEL is empty", nil)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return chat.NewError(chat.KindConfiguration, fmt.Sprintf("invalid MEDIC_BASE_URL %q", c.BaseURL), err)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return chat.NewError(chat.KindConfiguration, fmt.Sprintf("MEDIC_TEMPERATURE %.2f out of range [0, 2]", c.Temperature), nil)
	}
	if c.Timeout <= 0 {
		return chat.NewError(chat.KindConfiguration, "MEDIC_TIMEOUT must be positive", nil)
	}
	return nil
}

// NewChatModel 使用配置创建一个模型实例。调用方需先通过 Validate 校验配置。
func (c AgentConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	temperature := float32(c.Temperature)

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

	timeout := c.Timeout
	noRetry := 0

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		TopP:        topP,
		Timeout:     &timeout,
		RetryTimes:  &noRetry,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAgentConfig() (AgentConfig, error) {
	temperature := defaultTemperature
	if override, err := parseOptionalFloatEnv("MEDIC_TEMPERATURE"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	topP, err := parseOptionalFloatEnv("MEDIC_TOP_P")
	if err != nil {
		return AgentConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("MEDIC_MAX_TOKENS")
	if err != nil {
		return AgentConfig{}, err
	}

	timeout := defaultTimeout
	if seconds, err := parseOptionalIntEnv("MEDIC_TIMEOUT"); err != nil {
		return AgentConfig{}, err
	} else if seconds != nil {
		timeout = time.Duration(*seconds) * time.Second
	}

	stream, err := parseBoolEnv("MEDIC_STREAM", false)
	if err != nil {
		return AgentConfig{}, err
	}

	return AgentConfig{
		APIKey:       strings.TrimSpace(os.Getenv("MEDIC_API_KEY")),
		Model:        getEnvOrDefault("MEDIC_MODEL", defaultModel),
		BaseURL:      strings.TrimRight(getEnvOrDefault("MEDIC_BASE_URL", defaultBaseURL), "/"),
		SystemPrompt: strings.TrimSpace(os.Getenv("MEDIC_SYSTEM_PROMPT")),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Timeout:      timeout,
		Stream:       stream,
	}, nil
}

// ChatConfig 描述会话的初始内容与上下文策略。
type ChatConfig struct {
	Greeting      string
	ResetGreeting string
	RetainContext bool
	HistoryLimit  int
}

func loadChatConfig() (ChatConfig, error) {
	retain, err := parseBoolEnv("MEDIC_RETAIN_CONTEXT", true)
	if err != nil {
		return ChatConfig{}, err
	}

	historyLimit := 0
	if override, err := parseOptionalIntEnv("MEDIC_HISTORY_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return ChatConfig{}, fmt.Errorf("invalid MEDIC_HISTORY_LIMIT value %d: must not be negative", *override)
		}
		historyLimit = *override
	}

	// An explicitly empty greeting means an empty seed.
	greeting, ok := os.LookupEnv("MEDIC_GREETING")
	if !ok {
		greeting = defaultGreeting
	}
	resetGreeting, ok := os.LookupEnv("MEDIC_RESET_GREETING")
	if !ok {
		resetGreeting = defaultResetGreeting
	}

	return ChatConfig{
		Greeting:      strings.TrimSpace(greeting),
		ResetGreeting: strings.TrimSpace(resetGreeting),
		RetainContext: retain,
		HistoryLimit:  historyLimit,
	}, nil
}

// LogConfig selects the log level and an optional rotating log file.
type LogConfig struct {
	Level slog.Level
	File  string
}

func loadLogConfig() (LogConfig, error) {
	var level slog.Level
	raw := getEnvOrDefault("LOG_LEVEL", "info")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q: %w", raw, err)
	}
	return LogConfig{
		Level: level,
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}, nil
}

// TelemetryConfig 控制 OpenTelemetry 导出。
type TelemetryConfig struct {
	Enabled bool
	Dir     string
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	enabled, err := parseBoolEnv("OTEL_ENABLED", false)
	if err != nil {
		return TelemetryConfig{}, err
	}
	return TelemetryConfig{
		Enabled: enabled,
		Dir:     getEnvOrDefault("OTEL_DIR", "logs"),
	}, nil
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
