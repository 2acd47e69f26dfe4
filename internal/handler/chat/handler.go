package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/opencode-chat/internal/model/chat"
	"github.com/zhouzirui/opencode-chat/pkg/utils"
)

// Engine is the startable LLM engine.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Processor answers chat messages within the backend's current session.
type Processor interface {
	Process(ctx context.Context, msg chat.ChatMessage) chat.ChatResponse
	NewSession(ctx context.Context) (chat.Session, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	engine    Engine
	processor Processor
	serverURL string
}

// New 创建聊天处理器
func New(engine Engine, processor Processor, serverURL string) *Handler {
	return &Handler{
		engine:    engine,
		processor: processor,
		serverURL: serverURL,
	}
}

// RegisterRoutes 注册聊天相关的路由，sendMiddlewares 仅作用于消息发送接口
func (h *Handler) RegisterRoutes(r chi.Router, sendMiddlewares ...func(http.Handler) http.Handler) {
	r.Post("/server/start", h.handleStartServer)
	r.Post("/server/stop", h.handleStopServer)
	r.Get("/server/status", h.handleServerStatus)
	r.Post("/session/new", h.handleNewSession)
	r.With(sendMiddlewares...).Post("/chat/send", h.handleSendMessage)
	r.Get("/health", h.handleHealth)
}

// handleStartServer 启动引擎
func (h *Handler) handleStartServer(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Start(r.Context()); err != nil {
		log.Printf("[chat] failed to start engine: %v", err)
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"running": false,
			"url":     h.serverURL,
			"error":   err.Error(),
		})
		return
	}

	log.Printf("[chat] engine started on request")
	utils.RespondOK(w, map[string]any{
		"running": true,
		"url":     h.serverURL,
	})
}

// handleStopServer 停止引擎
func (h *Handler) handleStopServer(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	log.Printf("[chat] engine stop requested")
	utils.RespondOK(w, map[string]any{"running": false})
}

// handleServerStatus 查询引擎状态
func (h *Handler) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"running": h.engine.Running(),
		"url":     h.serverURL,
	})
}

// handleNewSession 创建会话
func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.processor.NewSession(r.Context())
	if err != nil {
		log.Printf("[chat] failed to create session: %v", err)
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	utils.RespondOK(w, map[string]any{"sessionId": session.ID})
}

// handleSendMessage 处理 REST 方式发送的消息
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var msg chat.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg.Type == "" {
		msg = chat.NewChatMessage(msg.Content, msg.ProviderID, msg.ModelID)
	}

	log.Printf("[chat] REST message received: type=%s length=%d", msg.Type, len(msg.Content))
	utils.RespondJSON(w, http.StatusOK, h.processor.Process(r.Context(), msg))
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, engine := "DOWN", "stopped"
	if h.engine.Running() {
		status, engine = "UP", "running"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "opencode-chat",
		"engine":  engine,
	})
}
