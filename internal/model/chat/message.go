package chat

import (
	"strings"
	"time"
)

// MessageType distinguishes conversational input from client directives.
type MessageType string

const (
	TypeChat    MessageType = "CHAT"
	TypeCommand MessageType = "COMMAND"
)

// CommandPrefix marks a message as a command.
const CommandPrefix = "/"

// ChatMessage is what the client sends, over the broker or over REST.
type ChatMessage struct {
	Content    string      `json:"content"`
	ProviderID string      `json:"providerId"`
	ModelID    string      `json:"modelId"`
	Type       MessageType `json:"type"`
}

// IsCommand reports whether content is a command directive.
func IsCommand(content string) bool {
	return strings.HasPrefix(content, CommandPrefix)
}

// NewChatMessage classifies content and builds the outgoing message.
func NewChatMessage(content, providerID, modelID string) ChatMessage {
	msgType := TypeChat
	if IsCommand(content) {
		msgType = TypeCommand
	}
	return ChatMessage{
		Content:    content,
		ProviderID: providerID,
		ModelID:    modelID,
		Type:       msgType,
	}
}

// Sendable reports whether the message satisfies the provider/model rule:
// chat messages need both ids, commands need neither.
func (m ChatMessage) Sendable() bool {
	if m.Type == TypeCommand {
		return true
	}
	return m.ProviderID != "" && m.ModelID != ""
}

// Message persists individual turns of a backend session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)
