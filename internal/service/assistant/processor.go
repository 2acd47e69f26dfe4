// Package assistant turns incoming chat messages into replies: commands are
// handled locally, everything else goes to the LLM engine.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	"github.com/zhouzirui/opencode-chat/internal/model/provider"
	"github.com/zhouzirui/opencode-chat/internal/service/ai"
	chatservice "github.com/zhouzirui/opencode-chat/internal/service/chat"
)

// ErrEmptyMessage is returned for blank content.
var ErrEmptyMessage = errors.New("message content is empty")

// Engine generates assistant replies.
type Engine interface {
	Running() bool
	Generate(ctx context.Context, req ai.Request) (*schema.Message, error)
}

// Processor handles messages for the backend's current session. The first
// message after start or after /new opens a fresh session.
type Processor struct {
	engine    Engine
	sessions  *chatservice.Service
	providers provider.Store
	shell     *shellRunner

	mu        sync.Mutex
	currentID string
}

// NewProcessor wires a processor.
func NewProcessor(engine Engine, sessions *chatservice.Service, providers provider.Store, shell config.ShellConfig) *Processor {
	return &Processor{
		engine:    engine,
		sessions:  sessions,
		providers: providers,
		shell:     newShellRunner(shell),
	}
}

// NewSession opens a session and makes it current.
func (p *Processor) NewSession(ctx context.Context) (chat.Session, error) {
	session, err := p.sessions.CreateSession(ctx, fmt.Sprintf("Chat Session %d", time.Now().UnixMilli()))
	if err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}

	p.mu.Lock()
	p.currentID = session.ID
	p.mu.Unlock()

	log.Printf("[chat] new session created: %s", session.ID)
	return session, nil
}

// CurrentSession returns the current session id, or "" when none is open.
func (p *Processor) CurrentSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentID
}

func (p *Processor) ensureSession(ctx context.Context) (string, error) {
	if id := p.CurrentSession(); id != "" {
		return id, nil
	}
	session, err := p.NewSession(ctx)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Process answers msg. Failures are reported as ERROR replies.
func (p *Processor) Process(ctx context.Context, msg chat.ChatMessage) chat.ChatResponse {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return chat.ErrorResponse("Error: "+ErrEmptyMessage.Error(), p.CurrentSession())
	}

	sessionID, err := p.ensureSession(ctx)
	if err != nil {
		log.Printf("[chat] process message: %v", err)
		return chat.ErrorResponse("Error: "+err.Error(), "")
	}

	var resp chat.ChatResponse
	if chat.IsCommand(content) {
		resp = p.runCommand(ctx, sessionID, content)
	} else {
		resp = p.generate(ctx, sessionID, msg.ProviderID, msg.ModelID, content)
	}

	if commandName(content) == "/new" {
		p.mu.Lock()
		if p.currentID == sessionID {
			p.currentID = ""
		}
		p.mu.Unlock()
	}
	return resp
}

func (p *Processor) generate(ctx context.Context, sessionID, providerID, modelID, content string) chat.ChatResponse {
	if _, ok := p.providers.FindByID(providerID); !ok {
		return chat.ErrorResponse(fmt.Sprintf("Error: %s: %s", provider.ErrNotFound, providerID), sessionID)
	}
	if !p.engine.Running() {
		return chat.ErrorResponse("Error: "+ai.ErrEngineStopped.Error(), sessionID)
	}

	history, err := p.sessions.LoadTranscript(ctx, sessionID)
	if err != nil {
		return chat.ErrorResponse("Error: "+err.Error(), sessionID)
	}
	if _, err := p.save(ctx, sessionID, chat.SenderUser, content); err != nil {
		return chat.ErrorResponse("Error: "+err.Error(), sessionID)
	}

	reply, err := p.engine.Generate(ctx, ai.Request{
		SessionID: sessionID,
		ModelID:   modelID,
		History:   history,
		Query:     content,
	})
	if err != nil {
		log.Printf("[chat] generate reply for session=%s: %v", sessionID, err)
		return chat.ErrorResponse("Error: "+err.Error(), sessionID)
	}

	return p.reply(ctx, sessionID, reply.Content)
}

func (p *Processor) reply(ctx context.Context, sessionID, content string) chat.ChatResponse {
	resp := chat.AssistantResponse(content, sessionID)
	saved, err := p.save(ctx, sessionID, chat.SenderAssistant, content)
	if err != nil {
		log.Printf("[chat] save reply for session=%s: %v", sessionID, err)
		return resp
	}
	resp.MessageID = saved.ID
	return resp
}

func (p *Processor) save(ctx context.Context, sessionID, sender, content string) (chat.Message, error) {
	return p.sessions.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
	})
}
