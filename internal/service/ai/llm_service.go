package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

// ErrEngineStopped is returned by Generate while the engine is not running.
var ErrEngineStopped = errors.New("engine is not running")

// ModelFactory builds the chat model when the engine starts.
type ModelFactory func(ctx context.Context) (model.BaseChatModel, error)

// Request is one turn to generate a reply for.
type Request struct {
	SessionID string
	ModelID   string
	History   []chat.Message
	Query     string
}

// Service is the LLM engine. It owns a compiled chat chain between Start
// and Stop.
type Service struct {
	factory ModelFactory
	prompts *PromptManager

	mu        sync.RWMutex
	chain     compose.Runnable[map[string]any, *schema.Message]
	startedAt time.Time
}

// NewService creates an engine backed by the configured Ark model.
func NewService(cfg config.AIConfig) *Service {
	return NewServiceWithFactory(cfg.NewChatModel)
}

// NewServiceWithFactory creates an engine that builds its model with factory.
func NewServiceWithFactory(factory ModelFactory) *Service {
	return &Service{
		factory: factory,
		prompts: NewPromptManager(),
	}
}

// Start builds the model and compiles the chain. Starting a running engine
// is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain != nil {
		return nil
	}

	chatModel, err := s.factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile chat chain: %w", err)
	}

	s.chain = runnable
	s.startedAt = time.Now()
	log.Printf("[ai] engine started")
	return nil
}

// Stop releases the chain. Stopping a stopped engine is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		return
	}
	s.chain = nil
	log.Printf("[ai] engine stopped after %s", time.Since(s.startedAt).Round(time.Second))
}

// Running reports whether the engine accepts requests.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain != nil
}

// Generate produces the assistant reply for req.
func (s *Service) Generate(ctx context.Context, req Request) (*schema.Message, error) {
	s.mu.RLock()
	chain := s.chain
	s.mu.RUnlock()

	if chain == nil {
		return nil, ErrEngineStopped
	}

	var opts []compose.Option
	if req.ModelID != "" {
		opts = append(opts, compose.WithChatModelOption(model.WithModel(req.ModelID)))
	}

	response, err := chain.Invoke(ctx, s.buildChainInput(req), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated response for session=%s, model=%s, length=%d", req.SessionID, req.ModelID, len(response.Content))
	return response, nil
}

func (s *Service) buildChainInput(req Request) map[string]any {
	return map[string]any{
		"system":  s.prompts.BuildSystemPrompt(req.ModelID),
		"history": buildHistoryMessages(req.History),
		"query":   req.Query,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.SenderAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
