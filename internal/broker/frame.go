// Package broker carries chat traffic between the backend and its clients:
// a small STOMP-like frame vocabulary spoken over a WebSocket, and topic
// brokers that fan published payloads out to every subscriber.
package broker

import (
	"encoding/json"
	"fmt"
)

// Command names a frame kind.
type Command string

const (
	CommandConnect     Command = "CONNECT"
	CommandConnected   Command = "CONNECTED"
	CommandSubscribe   Command = "SUBSCRIBE"
	CommandUnsubscribe Command = "UNSUBSCRIBE"
	CommandSend        Command = "SEND"
	CommandMessage     Command = "MESSAGE"
	CommandReceipt     Command = "RECEIPT"
	CommandError       Command = "ERROR"
	CommandDisconnect  Command = "DISCONNECT"
)

const (
	// ChatDestination receives ChatMessage bodies from clients.
	ChatDestination = "/app/chat"
	// MessagesTopic is the broadcast topic carrying ChatResponse bodies.
	MessagesTopic = "/topic/messages"
)

// Frame is one JSON message on the persistent channel.
type Frame struct {
	Command     Command         `json:"command"`
	ID          string          `json:"id,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Receipt     string          `json:"receipt,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// NewFrame builds a frame whose body is the JSON encoding of v.
func NewFrame(cmd Command, destination string, v any) (Frame, error) {
	frame := Frame{Command: cmd, Destination: destination}
	if v == nil {
		return frame, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s body: %w", cmd, err)
	}
	frame.Body = body
	return frame, nil
}

// ErrorFrame builds an ERROR frame.
func ErrorFrame(message string) Frame {
	return Frame{Command: CommandError, Message: message}
}

// DecodeBody unmarshals the frame body into v.
func (f Frame) DecodeBody(v any) error {
	if len(f.Body) == 0 {
		return fmt.Errorf("%s frame has no body", f.Command)
	}
	if err := json.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("decode %s body: %w", f.Command, err)
	}
	return nil
}
