package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/opencode-chat/internal/broker"
	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/handler/chat"
	"github.com/zhouzirui/opencode-chat/internal/handler/provider"
	"github.com/zhouzirui/opencode-chat/internal/handler/ws"
	"github.com/zhouzirui/opencode-chat/internal/middleware"
	chatmodel "github.com/zhouzirui/opencode-chat/internal/model/chat"
	providermodel "github.com/zhouzirui/opencode-chat/internal/model/provider"
)

type stubEngine struct{ running bool }

func (e *stubEngine) Start(context.Context) error { e.running = true; return nil }
func (e *stubEngine) Stop()                       { e.running = false }
func (e *stubEngine) Running() bool               { return e.running }

type stubProcessor struct{}

func (stubProcessor) Process(_ context.Context, msg chatmodel.ChatMessage) chatmodel.ChatResponse {
	return chatmodel.AssistantResponse("ok: "+msg.Content, "s-1")
}

func (stubProcessor) NewSession(context.Context) (chatmodel.Session, error) {
	return chatmodel.Session{ID: "s-1"}, nil
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) http.Handler {
	t.Helper()
	b := broker.NewMemoryBroker()
	t.Cleanup(func() { b.Close() })

	providers := providermodel.NewMemoryStore([]providermodel.Provider{{
		ID:     "ark",
		Name:   "Ark",
		Models: []providermodel.Model{{ID: "m1", Name: "m1"}},
	}})

	return NewRouter(config.ServerConfig{AllowedOrigins: []string{"*"}}, Handlers{
		Chat:      chat.New(&stubEngine{}, stubProcessor{}, "http://localhost:8080"),
		Providers: provider.New(providers),
		WebSocket: ws.New(stubProcessor{}, b),
		Limiter:   limiter,
	})
}

func TestRouterMountsAPIRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success   bool                     `json:"success"`
		Providers []providermodel.Provider `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.True(t, body.Success)
	require.Len(t, body.Providers, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRateLimitsSendOnly(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1, time.Minute)
	defer limiter.Close()
	router := newTestRouter(t, limiter)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/send",
			jsonBody(t, chatmodel.NewChatMessage("/help", "", "")))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusTooManyRequests, send())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
