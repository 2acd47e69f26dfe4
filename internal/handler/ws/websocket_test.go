package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/opencode-chat/internal/broker"
	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	"github.com/zhouzirui/opencode-chat/internal/transport"
)

type echoProcessor struct {
	mu       sync.Mutex
	received []chat.ChatMessage
}

func (p *echoProcessor) Process(_ context.Context, msg chat.ChatMessage) chat.ChatResponse {
	p.mu.Lock()
	p.received = append(p.received, msg)
	p.mu.Unlock()
	return chat.AssistantResponse("echo: "+msg.Content, "s-1")
}

func newServer(t *testing.T, p Processor) string {
	t.Helper()
	b := broker.NewMemoryBroker()
	t.Cleanup(func() { b.Close() })

	r := chi.NewRouter()
	New(p, b).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func nextEvent(t *testing.T, ch *transport.Channel) transport.Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return transport.Event{}
	}
}

func TestRepliesArriveInSendOrder(t *testing.T) {
	p := &echoProcessor{}
	url := newServer(t, p)

	ctx := context.Background()
	ch, err := transport.Dial(ctx, url)
	require.NoError(t, err)
	defer ch.Close()

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, ch.Publish(ctx, chat.NewChatMessage(content, "ark", "m")))
	}

	for _, want := range []string{"echo: one", "echo: two", "echo: three"} {
		ev := nextEvent(t, ch)
		require.NoError(t, ev.Err)
		require.Equal(t, want, ev.Response.Content)
		require.Equal(t, "s-1", ev.Response.SessionID)
	}
}

func TestRepliesAreBroadcastToEverySubscriber(t *testing.T) {
	url := newServer(t, &echoProcessor{})
	ctx := context.Background()

	sender, err := transport.Dial(ctx, url)
	require.NoError(t, err)
	defer sender.Close()
	watcher, err := transport.Dial(ctx, url)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, sender.Publish(ctx, chat.NewChatMessage("/help", "", "")))

	require.Equal(t, "echo: /help", nextEvent(t, sender).Response.Content)
	require.Equal(t, "echo: /help", nextEvent(t, watcher).Response.Content)
}

func TestUntypedSendIsClassified(t *testing.T) {
	p := &echoProcessor{}
	url := newServer(t, p)
	ctx := context.Background()

	ch, err := transport.Dial(ctx, url)
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.Publish(ctx, chat.ChatMessage{Content: "/new"}))
	nextEvent(t, ch)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.received, 1)
	require.Equal(t, chat.TypeCommand, p.received[0].Type)
}

func TestHandshakeRequiresConnect(t *testing.T) {
	url := newServer(t, &echoProcessor{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(broker.Frame{Command: broker.CommandSubscribe, Destination: broker.MessagesTopic}))

	var frame broker.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, broker.CommandError, frame.Command)
	require.Contains(t, frame.Message, "CONNECT")
}

func TestUnknownDestinationIsRejected(t *testing.T) {
	url := newServer(t, &echoProcessor{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(broker.Frame{Command: broker.CommandConnect}))
	var frame broker.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, broker.CommandConnected, frame.Command)
	require.NotEmpty(t, frame.ID)

	send, err := broker.NewFrame(broker.CommandSend, "/app/other", chat.NewChatMessage("hi", "a", "b"))
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(send))

	frame = broker.Frame{}
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, broker.CommandError, frame.Command)
	require.Contains(t, frame.Message, "unknown destination")
}
