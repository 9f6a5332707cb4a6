package websocket

import (
	"sync"
)

// Hub 管理全部在线连接,注册、注销和全量广播都经由 Run 循环串行处理
type Hub struct {
	clients map[*Client]struct{}

	// Broadcast 全量广播
	Broadcast chan []byte

	// Register / Unregister 客户端上下线
	Register   chan *Client
	Unregister chan *Client

	mu sync.Mutex
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run 事件循环,由调用方放入独立 goroutine
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.Broadcast:
			h.broadcastAll(message)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
	h.mu.Unlock()
}

// broadcastAll 发送队列占满的客户端视为失联,直接摘除
func (h *Hub) broadcastAll(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			delete(h.clients, client)
			close(client.Send)
		}
	}
}

// BroadcastToUser 向某个用户的全部连接投递消息
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			delete(h.clients, client)
			close(client.Send)
		}
	}
}

// HasClient 按连接 ID 查找客户端
func (h *Hub) HasClient(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 在线连接数
func (h *Hub) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
