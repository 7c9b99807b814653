package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/founder-game/internal/game"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
// 订阅排行榜推送源，每次榜单变化把整张榜单广播给所有连接
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 排行榜推送源
	feed *game.LeaderboardFeed

	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 游戏消息
	MessageTypeLeaderboard = "leaderboard_update"
	MessageTypeState       = "state_update"
)

// NewHub 创建Hub
func NewHub(feed *game.LeaderboardFeed, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		feed:       feed,
		logger:     logger,
	}
}

// Run 运行Hub直到ctx取消
func (h *Hub) Run(ctx context.Context) {
	rows, cancelFeed := h.feed.Subscribe()
	defer cancelFeed()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case update, ok := <-rows:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcastLeaderboard(update)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))

	// 连接成功后先推一份当前榜单
	h.sendToClient(client, MessageTypeConnected, json.RawMessage(`{"message":"连接成功"}`))
	if data, err := json.Marshal(h.feed.Latest()); err == nil {
		h.sendToClient(client, MessageTypeLeaderboard, data)
	}
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

// broadcastLeaderboard 广播榜单更新
func (h *Hub) broadcastLeaderboard(rows []game.LeaderboardRow) {
	data, err := json.Marshal(rows)
	if err != nil {
		h.logger.Error("序列化榜单失败", zap.Error(err))
		return
	}

	msg, err := json.Marshal(&Message{
		Type:      MessageTypeLeaderboard,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// 发送缓冲区满，丢弃本次推送，下次榜单变化会再推
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// sendToClient 发送消息给指定客户端
func (h *Hub) sendToClient(client *Client, msgType string, data json.RawMessage) {
	msg, err := json.Marshal(&Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}

	select {
	case client.Send <- msg:
	default:
		h.logger.Warn("客户端发送缓冲区满",
			zap.String("client_id", client.ID))
	}
}

// SendToSession 发送消息给指定游戏会话的所有客户端
func (h *Hub) SendToSession(sessionID string, msgType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(&Message{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	sent := false
	for _, client := range h.clients {
		if client.SessionID == sessionID {
			select {
			case client.Send <- msg:
				sent = true
			default:
				h.logger.Warn("会话客户端发送缓冲区满",
					zap.String("client_id", client.ID),
					zap.String("session_id", sessionID))
			}
		}
	}

	if !sent {
		return ErrSessionNotConnected
	}
	return nil
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// closeAll 关闭所有客户端连接
func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
