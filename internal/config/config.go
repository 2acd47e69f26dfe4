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

	"github.com/zhouzirui/opencode-chat/internal/model/provider"
)

// Config 聚合后端服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Broker BrokerConfig
	Store  StoreConfig
	Shell  ShellConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	shell, err := loadShellConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Broker: BrokerConfig{
			RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
			TopicPrefix: getEnvOrDefault("BROKER_TOPIC_PREFIX", "opencode-chat:"),
		},
		Store: StoreConfig{
			DBPath: strings.TrimSpace(os.Getenv("CHAT_DB_PATH")),
		},
		Shell: shell,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// loadServerConfig 解析服务器监听地址、CORS 与限流设置。
func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}

	rateLimit := 2.0
	if override, err := parseOptionalFloatEnv("CHAT_RATE_LIMIT"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		rateLimit = *override
	}

	rateBurst := 5
	if override, err := parseOptionalIntEnv("CHAT_RATE_BURST"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		if *override < 1 {
			rateBurst = 1
		} else {
			rateBurst = *override
		}
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RateLimit:      rateLimit,
		RateBurst:      rateBurst,
	}, nil
}

func parseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	Models      []string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	AutoStart   bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// Providers 返回可供客户端选择的提供方及其模型列表。
func (c AIConfig) Providers() []provider.Provider {
	ids := c.Models
	if len(ids) == 0 && c.Model != "" {
		ids = []string{c.Model}
	}

	p := provider.DefaultProvider()
	for _, id := range ids {
		p.Models = append(p.Models, provider.Model{ID: id, Name: id})
	}
	return []provider.Provider{p}
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
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

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return chatModel, nil
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

	autoStart, err := parseBoolEnv("ENGINE_AUTO_START", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		Models:      splitList(os.Getenv("ARK_MODELS")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		AutoStart:   autoStart,
	}, nil
}

// BrokerConfig 描述广播通道的后端。REDIS_URL 为空时使用进程内 broker。
type BrokerConfig struct {
	RedisURL    string
	TopicPrefix string
}

// StoreConfig 描述会话记录的存储。DBPath 为空时仅保存在内存中。
type StoreConfig struct {
	DBPath string
}

// ShellConfig 控制 /shell 命令。
type ShellConfig struct {
	Enabled bool
	WorkDir string
	Timeout time.Duration
}

func loadShellConfig() (ShellConfig, error) {
	enabled, err := parseBoolEnv("SHELL_COMMANDS_ENABLED", false)
	if err != nil {
		return ShellConfig{}, err
	}

	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("SHELL_TIMEOUT"); err != nil {
		return ShellConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return ShellConfig{
		Enabled: enabled,
		WorkDir: getEnvOrDefault("SHELL_WORKDIR", os.TempDir()),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
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
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}
