package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/opencode-chat/internal/broker"
	"github.com/zhouzirui/opencode-chat/internal/model/chat"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	sendQueue    = 16
)

// Processor answers chat messages.
type Processor interface {
	Process(ctx context.Context, msg chat.ChatMessage) chat.ChatResponse
}

// Handler 是 broker 的 WebSocket 入口：客户端订阅广播主题，向 /app/chat 发送消息，
// 处理结果发布到 /topic/messages。
type Handler struct {
	processor Processor
	broker    broker.Broker
	upgrader  websocket.Upgrader
}

// New 创建WebSocket处理器
func New(processor Processor, b broker.Broker) *Handler {
	return &Handler{
		processor: processor,
		broker:    b,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// connection 保存单个连接的写锁与订阅
type connection struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]*broker.Subscription
}

func (c *connection) write(frame broker.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *connection) sendError(message string) {
	if err := c.write(broker.ErrorFrame(message)); err != nil {
		log.Printf("[ws] write error failed: %v", err)
	}
}

func (c *connection) receipt(frame broker.Frame) {
	if frame.Receipt == "" {
		return
	}
	if err := c.write(broker.Frame{Command: broker.CommandReceipt, Receipt: frame.Receipt}); err != nil {
		log.Printf("[ws] write receipt failed: %v", err)
	}
}

func (c *connection) closeSubscriptions() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, sub := range c.subs {
		sub.Close()
		delete(c.subs, id)
	}
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	c := &connection{
		id:   uuid.NewString(),
		conn: ws,
		subs: make(map[string]*broker.Subscription),
	}
	defer c.closeSubscriptions()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	if !h.handshake(c) {
		return
	}
	log.Printf("[ws] new connection: %s", c.id)

	go h.pingLoop(ctx, c)

	sends := make(chan chat.ChatMessage, sendQueue)
	defer close(sends)
	go h.processLoop(ctx, sends)

	for {
		var frame broker.Frame
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		switch frame.Command {
		case broker.CommandSubscribe:
			h.handleSubscribe(ctx, c, frame)
		case broker.CommandUnsubscribe:
			h.handleUnsubscribe(c, frame)
		case broker.CommandSend:
			msg, err := decodeSend(frame)
			if err != nil {
				c.sendError(err.Error())
				continue
			}
			select {
			case sends <- msg:
			default:
				c.sendError("too many pending messages")
			}
		case broker.CommandDisconnect:
			c.receipt(frame)
			log.Printf("[ws] connection %s disconnected", c.id)
			return
		default:
			c.sendError("unsupported command: " + string(frame.Command))
		}
	}
}

func (h *Handler) handshake(c *connection) bool {
	var frame broker.Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		log.Printf("[ws] handshake read failed: %v", err)
		return false
	}
	if frame.Command != broker.CommandConnect {
		c.sendError("expected CONNECT frame")
		return false
	}
	if err := c.write(broker.Frame{Command: broker.CommandConnected, ID: c.id}); err != nil {
		log.Printf("[ws] handshake write failed: %v", err)
		return false
	}
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	return true
}

func (h *Handler) handleSubscribe(ctx context.Context, c *connection, frame broker.Frame) {
	if !strings.HasPrefix(frame.Destination, "/topic/") {
		c.sendError("unknown destination: " + frame.Destination)
		return
	}
	subID := frame.ID
	if subID == "" {
		subID = uuid.NewString()
	}

	sub, err := h.broker.Subscribe(ctx, frame.Destination)
	if err != nil {
		c.sendError(fmt.Sprintf("subscribe failed: %v", err))
		return
	}

	c.subsMu.Lock()
	if previous, ok := c.subs[subID]; ok {
		previous.Close()
	}
	c.subs[subID] = sub
	c.subsMu.Unlock()

	c.receipt(frame)
	go h.forward(c, subID, sub)
}

func (h *Handler) handleUnsubscribe(c *connection, frame broker.Frame) {
	c.subsMu.Lock()
	sub, ok := c.subs[frame.ID]
	delete(c.subs, frame.ID)
	c.subsMu.Unlock()

	if ok {
		sub.Close()
	}
	c.receipt(frame)
}

// forward 将订阅到的消息按发布顺序写回客户端
func (h *Handler) forward(c *connection, subID string, sub *broker.Subscription) {
	for {
		select {
		case <-sub.Done():
			return
		case payload := <-sub.C():
			frame := broker.Frame{
				Command:     broker.CommandMessage,
				ID:          subID,
				Destination: sub.Topic,
				Body:        payload,
			}
			if err := c.write(frame); err != nil {
				log.Printf("[ws] forward to %s failed: %v", c.id, err)
				sub.Close()
				return
			}
		}
	}
}

// processLoop 串行处理同一连接的消息，保证回复顺序与发送顺序一致
func (h *Handler) processLoop(ctx context.Context, sends <-chan chat.ChatMessage) {
	for msg := range sends {
		resp := h.processor.Process(ctx, msg)

		payload, err := json.Marshal(resp)
		if err != nil {
			log.Printf("[ws] encode response failed: %v", err)
			continue
		}
		if err := h.broker.Publish(ctx, broker.MessagesTopic, payload); err != nil {
			log.Printf("[ws] publish response failed: %v", err)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func decodeSend(frame broker.Frame) (chat.ChatMessage, error) {
	if frame.Destination != broker.ChatDestination {
		return chat.ChatMessage{}, fmt.Errorf("unknown destination: %s", frame.Destination)
	}

	var msg chat.ChatMessage
	if err := frame.DecodeBody(&msg); err != nil {
		return chat.ChatMessage{}, err
	}
	if msg.Type == "" {
		msg = chat.NewChatMessage(msg.Content, msg.ProviderID, msg.ModelID)
	}
	return msg, nil
}
