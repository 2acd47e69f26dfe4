package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/opencode-chat/internal/broker"
	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 10 * time.Second
	eventBuffer      = 16
)

// Event is one item delivered by a persistent link: a reply, or an error.
// Lost marks the final event of a link that broke underneath its owner.
type Event struct {
	Response *chat.ChatResponse
	Err      error
	Lost     bool
}

// Channel is a persistent broker link over a WebSocket, subscribed to the
// broadcast topic.
type Channel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	subscriptionID string
	events         chan Event
	done           chan struct{}
	closeOnce      sync.Once
	closed         atomic.Bool
}

// ChannelDialer returns a Dialer that opens a Channel to wsURL.
func ChannelDialer(wsURL string) Dialer {
	return func(ctx context.Context) (Link, error) {
		return Dial(ctx, wsURL)
	}
}

// Dial connects to the broker endpoint, performs the CONNECT handshake and
// subscribes to the broadcast topic. It returns once the subscription has
// been acknowledged.
func Dial(ctx context.Context, wsURL string) (*Channel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &NetworkError{Op: "connect", Err: err}
	}

	c := &Channel{
		conn:           conn,
		subscriptionID: uuid.NewString(),
		events:         make(chan Event, eventBuffer),
		done:           make(chan struct{}),
	}

	if err := c.handshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go c.readLoop()
	return c, nil
}

func (c *Channel) handshake(ctx context.Context) error {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetReadDeadline(deadline)
	c.conn.SetWriteDeadline(deadline)
	defer c.conn.SetWriteDeadline(time.Time{})

	if err := c.conn.WriteJSON(broker.Frame{Command: broker.CommandConnect}); err != nil {
		return &NetworkError{Op: "connect", Err: err}
	}
	if err := c.expect(broker.CommandConnected, ""); err != nil {
		return err
	}

	receipt := uuid.NewString()
	subscribe := broker.Frame{
		Command:     broker.CommandSubscribe,
		ID:          c.subscriptionID,
		Destination: broker.MessagesTopic,
		Receipt:     receipt,
	}
	if err := c.conn.WriteJSON(subscribe); err != nil {
		return &NetworkError{Op: "subscribe", Err: err}
	}
	return c.expect(broker.CommandReceipt, receipt)
}

func (c *Channel) expect(cmd broker.Command, receipt string) error {
	var frame broker.Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		return &NetworkError{Op: "connect", Err: err}
	}
	switch {
	case frame.Command == broker.CommandError:
		return &ProtocolError{Message: frame.Message}
	case frame.Command != cmd:
		return &ProtocolError{Message: fmt.Sprintf("expected %s frame, got %s", cmd, frame.Command)}
	case receipt != "" && frame.Receipt != receipt:
		return &ProtocolError{Message: fmt.Sprintf("unexpected receipt %q", frame.Receipt)}
	}
	return nil
}

func (c *Channel) readLoop() {
	defer close(c.events)

	for {
		var frame broker.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if c.closed.Swap(true) {
				return
			}
			c.emit(Event{Err: &ProtocolError{Message: "connection lost", Err: err}, Lost: true})
			c.conn.Close()
			return
		}

		switch frame.Command {
		case broker.CommandMessage:
			var resp chat.ChatResponse
			if err := frame.DecodeBody(&resp); err != nil {
				c.emit(Event{Err: &ProtocolError{Message: "malformed message", Err: err}})
				continue
			}
			c.emit(Event{Response: &resp})
		case broker.CommandError:
			c.emit(Event{Err: &ProtocolError{Message: frame.Message}})
		case broker.CommandReceipt:
		default:
			log.Printf("[ws] ignoring %s frame", frame.Command)
		}
	}
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Events returns the stream of replies and errors. It is closed when the
// link ends.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Connected reports whether the link is still usable.
func (c *Channel) Connected() bool {
	return !c.closed.Load()
}

// Publish sends msg to the chat destination.
func (c *Channel) Publish(ctx context.Context, msg chat.ChatMessage) error {
	if c.closed.Load() {
		return &ProtocolError{Message: "channel closed"}
	}

	frame, err := broker.NewFrame(broker.CommandSend, broker.ChatDestination, msg)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(frame); err != nil {
		return &NetworkError{Op: "publish", Err: err}
	}
	return nil
}

// Close unsubscribes, says goodbye and closes the socket.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closed.Swap(true) {
			return
		}

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.conn.WriteJSON(broker.Frame{Command: broker.CommandUnsubscribe, ID: c.subscriptionID})
		_ = c.conn.WriteJSON(broker.Frame{Command: broker.CommandDisconnect})
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		c.conn.Close()
	})
	return nil
}
