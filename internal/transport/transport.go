package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

// ErrSelectionRequired is returned for a chat message sent without a
// provider and model.
var ErrSelectionRequired = errors.New("provider and model are required")

// Link is a persistent, subscribed connection to the broker.
type Link interface {
	Publish(ctx context.Context, msg chat.ChatMessage) error
	Events() <-chan Event
	Connected() bool
	Close() error
}

// Dialer opens a Link.
type Dialer func(ctx context.Context) (Link, error)

// Sender is the request/response fallback path.
type Sender interface {
	SendChat(ctx context.Context, msg chat.ChatMessage) (*chat.ChatResponse, error)
}

// Delivery names the path a message took.
type Delivery int

const (
	DeliveredOnChannel Delivery = iota + 1
	DeliveredOverHTTP
)

func (d Delivery) String() string {
	switch d {
	case DeliveredOnChannel:
		return "channel"
	case DeliveredOverHTTP:
		return "http"
	default:
		return "none"
	}
}

// Transport picks the delivery path for each message based on link state.
type Transport struct {
	mu     sync.Mutex
	sender Sender
	dial   Dialer
	link   Link
}

// New returns a Transport using sender for the fallback path and dial to
// open persistent links.
func New(sender Sender, dial Dialer) *Transport {
	return &Transport{sender: sender, dial: dial}
}

// Connect opens and subscribes a persistent link, replacing any previous one.
func (t *Transport) Connect(ctx context.Context) (Link, error) {
	if t.dial == nil {
		return nil, &NetworkError{Op: "connect", Err: errors.New("no dialer configured")}
	}

	link, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	previous := t.link
	t.link = link
	t.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return link, nil
}

// Disconnect closes the current link. Later sends use the fallback path.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	link := t.link
	t.link = nil
	t.mu.Unlock()

	if link != nil {
		link.Close()
	}
}

// Release drops link if it is still the current one.
func (t *Transport) Release(link Link) {
	t.mu.Lock()
	if t.link != link {
		t.mu.Unlock()
		return
	}
	t.link = nil
	t.mu.Unlock()

	link.Close()
}

// Connected reports whether sends currently go over the persistent link.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link != nil && t.link.Connected()
}

// Send delivers msg. Over the channel the reply arrives later as an Event
// and the returned response is nil; over HTTP the reply is returned.
func (t *Transport) Send(ctx context.Context, msg chat.ChatMessage) (Delivery, *chat.ChatResponse, error) {
	if !msg.Sendable() {
		return 0, nil, ErrSelectionRequired
	}

	t.mu.Lock()
	link := t.link
	t.mu.Unlock()

	if link != nil && link.Connected() {
		return DeliveredOnChannel, nil, link.Publish(ctx, msg)
	}

	resp, err := t.sender.SendChat(ctx, msg)
	return DeliveredOverHTTP, resp, err
}
