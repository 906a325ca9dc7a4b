package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/apk-analysis/apk-fingerprint-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ScanEventMessage 推送给 WebSocket 客户端的消息
type ScanEventMessage struct {
	service.ScanEvent
	Timestamp int64 `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan ScanEventMessage
}

// ScanEventHandler 扫描事件的 WebSocket 推送
type ScanEventHandler struct {
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
	clients     map[*wsClient]struct{}
	clientMutex sync.RWMutex
	broadcast   chan ScanEventMessage
}

// NewScanEventHandler 创建扫描事件处理器
func NewScanEventHandler(logger *logrus.Logger) *ScanEventHandler {
	return &ScanEventHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan ScanEventMessage, 100),
	}
}

// Start 启动广播服务
func (h *ScanEventHandler) Start(ctx context.Context) {
	go h.runBroadcaster(ctx)
}

// runBroadcaster 运行广播器，慢客户端的消息直接丢弃
func (h *ScanEventHandler) runBroadcaster(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.broadcast:
			h.clientMutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					h.logger.Warn("WebSocket client is too slow, dropping message")
				}
			}
			h.clientMutex.RUnlock()
		}
	}
}

// Notify 实现 service.Notifier
func (h *ScanEventHandler) Notify(event service.ScanEvent) {
	msg := ScanEventMessage{ScanEvent: event, Timestamp: time.Now().Unix()}

	select {
	case h.broadcast <- msg:
		h.logger.WithField("type", event.Type).Debug("Scan event broadcasted")
	default:
		h.logger.Warn("Broadcast channel is full, dropping message")
	}
}

// ClientCount 当前连接数
func (h *ScanEventHandler) ClientCount() int {
	h.clientMutex.RLock()
	defer h.clientMutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket 处理WebSocket连接
// GET /ws/scans
func (h *ScanEventHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	client := &wsClient{conn: conn, send: make(chan ScanEventMessage, 16)}

	h.clientMutex.Lock()
	h.clients[client] = struct{}{}
	h.clientMutex.Unlock()

	h.logger.WithField("remote", c.ClientIP()).Info("WebSocket client connected")

	done := make(chan struct{})
	go h.writePump(client, done)

	// 只读取控制帧，客户端消息忽略
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Warn("WebSocket error")
			}
			break
		}
	}

	h.clientMutex.Lock()
	delete(h.clients, client)
	h.clientMutex.Unlock()
	close(done)
	conn.Close()

	h.logger.Info("WebSocket client disconnected")
}

func (h *ScanEventHandler) writePump(client *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				h.logger.WithError(err).Warn("Failed to write to WebSocket client")
				client.conn.Close()
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.conn.Close()
				return
			}
		}
	}
}
