package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

type fakeEngine struct {
	running  bool
	startErr error
}

func (e *fakeEngine) Start(context.Context) error {
	if e.startErr != nil {
		return e.startErr
	}
	e.running = true
	return nil
}

func (e *fakeEngine) Stop()         { e.running = false }
func (e *fakeEngine) Running() bool { return e.running }

type fakeProcessor struct {
	received []chat.ChatMessage
	failNew  bool
}

func (p *fakeProcessor) Process(_ context.Context, msg chat.ChatMessage) chat.ChatResponse {
	p.received = append(p.received, msg)
	return chat.AssistantResponse("ok: "+msg.Content, "s-1")
}

func (p *fakeProcessor) NewSession(context.Context) (chat.Session, error) {
	if p.failNew {
		return chat.Session{}, errors.New("store unavailable")
	}
	return chat.Session{ID: "s-new"}, nil
}

func setupRouter(engine *fakeEngine, processor *fakeProcessor) *chi.Mux {
	r := chi.NewRouter()
	New(engine, processor, "http://localhost:8080").RegisterRoutes(r)
	return r
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestStartStopStatus(t *testing.T) {
	engine := &fakeEngine{}
	r := setupRouter(engine, &fakeProcessor{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/server/start", nil))
	body := decode(t, resp)
	if body["success"] != true || body["running"] != true || body["url"] != "http://localhost:8080" {
		t.Fatalf("unexpected start body %v", body)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/server/status", nil))
	if body := decode(t, resp); body["running"] != true {
		t.Fatalf("expected running status, got %v", body)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/server/stop", nil))
	body = decode(t, resp)
	if body["success"] != true || body["running"] != false {
		t.Fatalf("unexpected stop body %v", body)
	}
	if engine.running {
		t.Fatal("engine should be stopped")
	}
}

func TestStartFailure(t *testing.T) {
	r := setupRouter(&fakeEngine{startErr: errors.New("missing ARK_API_KEY")}, &fakeProcessor{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/server/start", nil))
	body := decode(t, resp)
	if body["success"] != false || body["error"] != "missing ARK_API_KEY" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestNewSession(t *testing.T) {
	r := setupRouter(&fakeEngine{}, &fakeProcessor{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/session/new", nil))
	body := decode(t, resp)
	if body["success"] != true || body["sessionId"] != "s-new" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestNewSessionFailure(t *testing.T) {
	r := setupRouter(&fakeEngine{}, &fakeProcessor{failNew: true})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/session/new", nil))
	body := decode(t, resp)
	if body["success"] != false || body["error"] != "store unavailable" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendMessageClassifiesUntypedContent(t *testing.T) {
	processor := &fakeProcessor{}
	r := setupRouter(&fakeEngine{}, processor)

	payload, _ := json.Marshal(map[string]string{"content": "/help"})
	req := httptest.NewRequest(http.MethodPost, "/chat/send", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(processor.received) != 1 || processor.received[0].Type != chat.TypeCommand {
		t.Fatalf("unexpected messages %+v", processor.received)
	}

	var reply chat.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if reply.Content != "ok: /help" || reply.SessionID != "s-1" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestSendMessageInvalidBody(t *testing.T) {
	r := setupRouter(&fakeEngine{}, &fakeProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/chat/send", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHealth(t *testing.T) {
	r := setupRouter(&fakeEngine{running: true}, &fakeProcessor{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	body := decode(t, resp)
	if body["status"] != "UP" || body["engine"] != "running" {
		t.Fatalf("unexpected body %v", body)
	}
}
