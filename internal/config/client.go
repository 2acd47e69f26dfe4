package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClientConfig 描述终端聊天客户端的配置。
type ClientConfig struct {
	ServerURL      string
	PrefsPath      string
	HistoryPath    string
	RequestTimeout time.Duration
}

// LoadClient 从环境变量加载客户端配置，命令行参数可以在之后覆盖。
func LoadClient() (*ClientConfig, error) {
	timeout := 15 * time.Second
	if override, err := parseOptionalDurationEnv("CHAT_REQUEST_TIMEOUT"); err != nil {
		return nil, err
	} else if override != nil {
		timeout = *override
	}

	dir := clientDir()
	cfg := &ClientConfig{
		ServerURL:      getEnvOrDefault("CHAT_SERVER_URL", "http://localhost:8080"),
		PrefsPath:      getEnvOrDefault("CHAT_PREFS_PATH", filepath.Join(dir, "prefs.toml")),
		HistoryPath:    getEnvOrDefault("CHAT_HISTORY_PATH", filepath.Join(dir, "history")),
		RequestTimeout: timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查服务地址是否可用。
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid CHAT_SERVER_URL %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid CHAT_SERVER_URL %q: scheme must be http or https", c.ServerURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CHAT_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// WebSocketURL 返回与 ServerURL 对应的 broker 地址。
func (c *ClientConfig) WebSocketURL() string {
	base := strings.TrimRight(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

func clientDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "opencode-chat")
}
