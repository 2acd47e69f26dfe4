// Package transport delivers chat messages to the backend, over the
// persistent broker channel when one is attached and over plain HTTP
// otherwise.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	"github.com/zhouzirui/opencode-chat/internal/model/provider"
)

// ServerStatus is the reply of the start, stop and status endpoints.
type ServerStatus struct {
	Success bool   `json:"success"`
	Running bool   `json:"running"`
	URL     string `json:"url,omitempty"`
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// API is the request/response client for the backend's REST endpoints.
type API struct {
	baseURL string
	client  *http.Client
	// sendClient carries chat sends, which have no client-side deadline.
	sendClient *http.Client
}

// NewAPI returns a client for baseURL. timeout bounds every call except SendChat.
func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		sendClient: &http.Client{},
	}
}

// BaseURL returns the server root the client talks to.
func (a *API) BaseURL() string {
	return a.baseURL
}

// StartServer asks the backend to start its engine.
func (a *API) StartServer(ctx context.Context) (ServerStatus, error) {
	var out ServerStatus
	err := a.do(ctx, a.client, "start server", http.MethodPost, "/api/server/start", nil, &out)
	return out, err
}

// StopServer asks the backend to stop its engine.
func (a *API) StopServer(ctx context.Context) (ServerStatus, error) {
	var out ServerStatus
	err := a.do(ctx, a.client, "stop server", http.MethodPost, "/api/server/stop", nil, &out)
	return out, err
}

// Status reports whether the backend engine is running.
func (a *API) Status(ctx context.Context) (ServerStatus, error) {
	var out ServerStatus
	err := a.do(ctx, a.client, "server status", http.MethodGet, "/api/server/status", nil, &out)
	return out, err
}

// NewSession creates a backend session and returns its id.
func (a *API) NewSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := a.do(ctx, a.client, "new session", http.MethodPost, "/api/session/new", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &ApplicationError{Op: "new session", Message: "server returned no session id"}
	}
	return out.SessionID, nil
}

// Providers lists the available providers.
func (a *API) Providers(ctx context.Context) ([]provider.Provider, error) {
	var out struct {
		Providers []provider.Provider `json:"providers"`
	}
	err := a.do(ctx, a.client, "load providers", http.MethodGet, "/api/providers", nil, &out)
	return out.Providers, err
}

// Models lists the models of one provider.
func (a *API) Models(ctx context.Context, providerID string) ([]provider.Model, error) {
	var out struct {
		Models []provider.Model `json:"models"`
	}
	path := "/api/models/" + url.PathEscape(providerID)
	err := a.do(ctx, a.client, "load models", http.MethodGet, path, nil, &out)
	return out.Models, err
}

// SendChat posts msg and returns the backend's reply. An ERROR-typed reply
// is a valid reply, not an error.
func (a *API) SendChat(ctx context.Context, msg chat.ChatMessage) (*chat.ChatResponse, error) {
	var out chat.ChatResponse
	if err := a.doRaw(ctx, a.sendClient, "send message", http.MethodPost, "/api/chat/send", msg, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, client *http.Client, op, method, path string, in, out any) error {
	return a.doRaw(ctx, client, op, method, path, in, out, true)
}

func (a *API) doRaw(ctx context.Context, client *http.Client, op, method, path string, in, out any, checkSuccess bool) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var env envelope
	envErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		if envErr == nil && env.Error != "" {
			return &ApplicationError{Op: op, Message: env.Error}
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if envErr != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", envErr)}
	}
	if checkSuccess && env.Success != nil && !*env.Success {
		return &ApplicationError{Op: op, Message: env.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
