package chat

// ResponseType selects how a reply is rendered.
type ResponseType string

const (
	TypeAssistant ResponseType = "ASSISTANT"
	TypeError     ResponseType = "ERROR"
	TypeSystem    ResponseType = "SYSTEM"
)

// ChatResponse is the reply to a ChatMessage, pushed on the broadcast topic
// or returned by the REST fallback.
type ChatResponse struct {
	Type      ResponseType `json:"type"`
	Content   string       `json:"content"`
	SessionID string       `json:"sessionId,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
	Success   bool         `json:"success"`
}

// AssistantResponse builds a successful reply.
func AssistantResponse(content, sessionID string) ChatResponse {
	return ChatResponse{Type: TypeAssistant, Content: content, SessionID: sessionID, Success: true}
}

// ErrorResponse builds a failed reply.
func ErrorResponse(content, sessionID string) ChatResponse {
	return ChatResponse{Type: TypeError, Content: content, SessionID: sessionID, Success: false}
}

// SystemResponse builds an informational reply.
func SystemResponse(content string) ChatResponse {
	return ChatResponse{Type: TypeSystem, Content: content, Success: true}
}
