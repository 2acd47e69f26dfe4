package config

import (
	"testing"
	"time"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"default port", "", ":8080", false},
		{"bare port", "9000", ":9000", false},
		{"host and port", "127.0.0.1:9000", "127.0.0.1:9000", false},
		{"colon port", ":7000", ":7000", false},
		{"space", "80 80", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAddr(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAddr err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHAT_RATE_LIMIT", "")
	t.Setenv("CHAT_RATE_BURST", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SHELL_COMMANDS_ENABLED", "")
	t.Setenv("SHELL_TIMEOUT", "")
	t.Setenv("ENGINE_AUTO_START", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.RateBurst != 5 {
		t.Fatalf("unexpected burst %d", cfg.Server.RateBurst)
	}
	if cfg.Shell.Enabled {
		t.Fatal("expected shell commands disabled by default")
	}
	if cfg.Shell.Timeout != 30*time.Second {
		t.Fatalf("unexpected shell timeout %v", cfg.Shell.Timeout)
	}
}

func TestLoadRejectsInvalidBool(t *testing.T) {
	t.Setenv("SHELL_COMMANDS_ENABLED", "sometimes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestAIConfigProviders(t *testing.T) {
	cfg := AIConfig{Model: "m-default"}
	providers := cfg.Providers()
	if len(providers) != 1 || len(providers[0].Models) != 1 || providers[0].Models[0].ID != "m-default" {
		t.Fatalf("unexpected providers %+v", providers)
	}

	cfg.Models = []string{"a", "b"}
	providers = cfg.Providers()
	if len(providers[0].Models) != 2 {
		t.Fatalf("expected configured models, got %+v", providers[0].Models)
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if (AIConfig{Model: "m"}).Enabled() {
		t.Fatal("expected disabled without credentials")
	}
	if !(AIConfig{Model: "m", APIKey: "k"}).Enabled() {
		t.Fatal("expected enabled with api key")
	}
	if !(AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Fatal("expected enabled with AK/SK")
	}
}

func TestClientWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://chat.example.com/", "wss://chat.example.com/ws"},
	}

	for _, tc := range tests {
		cfg := &ClientConfig{ServerURL: tc.server, RequestTimeout: time.Second}
		if got := cfg.WebSocketURL(); got != tc.want {
			t.Fatalf("WebSocketURL(%q) = %q, want %q", tc.server, got, tc.want)
		}
	}
}

func TestClientValidate(t *testing.T) {
	cfg := &ClientConfig{ServerURL: "ftp://example.com", RequestTimeout: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ftp scheme")
	}

	cfg = &ClientConfig{ServerURL: "http://example.com", RequestTimeout: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestLoadClientTimeoutOverride(t *testing.T) {
	t.Setenv("CHAT_SERVER_URL", "http://127.0.0.1:9999")
	t.Setenv("CHAT_REQUEST_TIMEOUT", "3s")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout)
	}
	if cfg.ServerURL != "http://127.0.0.1:9999" {
		t.Fatalf("unexpected server url %q", cfg.ServerURL)
	}
}
