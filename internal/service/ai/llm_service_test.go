package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

type fakeChatModel struct {
	mu        sync.Mutex
	lastInput []*schema.Message
	lastModel string
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastInput = input
	m.lastModel = ""
	if options := model.GetCommonOptions(&model.Options{}, opts...); options.Model != nil {
		m.lastModel = *options.Model
	}
	return schema.AssistantMessage("echo: "+input[len(input)-1].Content, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func newTestService(m *fakeChatModel) *Service {
	return NewServiceWithFactory(func(context.Context) (model.BaseChatModel, error) {
		return m, nil
	})
}

func TestGenerateRequiresRunningEngine(t *testing.T) {
	svc := newTestService(&fakeChatModel{})

	if _, err := svc.Generate(context.Background(), Request{Query: "hi"}); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	svc := newTestService(&fakeChatModel{})
	ctx := context.Background()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("second Start err: %v", err)
	}
	if !svc.Running() {
		t.Fatal("expected engine running")
	}

	svc.Stop()
	svc.Stop()
	if svc.Running() {
		t.Fatal("expected engine stopped")
	}
}

func TestStartFactoryFailure(t *testing.T) {
	svc := NewServiceWithFactory(func(context.Context) (model.BaseChatModel, error) {
		return nil, errors.New("missing credentials")
	})

	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected start failure")
	}
	if svc.Running() {
		t.Fatal("engine must stay stopped")
	}
}

func TestGeneratePassesHistoryAndModel(t *testing.T) {
	fake := &fakeChatModel{}
	svc := newTestService(fake)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}

	history := []chat.Message{
		{Sender: chat.SenderUser, Content: "first"},
		{Sender: chat.SenderAssistant, Content: "reply"},
	}
	resp, err := svc.Generate(context.Background(), Request{
		SessionID: "s-1",
		ModelID:   "doubao-seed-1-6",
		History:   history,
		Query:     "second",
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if resp.Content != "echo: second" {
		t.Fatalf("unexpected content %q", resp.Content)
	}

	if fake.lastModel != "doubao-seed-1-6" {
		t.Fatalf("model option not forwarded, got %q", fake.lastModel)
	}
	if len(fake.lastInput) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(fake.lastInput))
	}
	if fake.lastInput[0].Role != schema.System || !strings.Contains(fake.lastInput[0].Content, "Formatting rules") {
		t.Fatalf("unexpected system message %+v", fake.lastInput[0])
	}
	if fake.lastInput[2].Role != schema.Assistant {
		t.Fatalf("expected assistant history turn, got %s", fake.lastInput[2].Role)
	}
}

func TestBuildHistoryMessagesKeepsTail(t *testing.T) {
	var messages []chat.Message
	for i := 0; i < 15; i++ {
		messages = append(messages, chat.Message{Sender: chat.SenderUser, Content: string(rune('a' + i))})
	}

	history := buildHistoryMessages(messages)
	if len(history) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(history))
	}
	if history[0].Content != "f" {
		t.Fatalf("expected tail to start at f, got %s", history[0].Content)
	}
}
