package websockets

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		send:       make(chan DirectMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run owns connection bookkeeping and writes until ctx is cancelled.
func (manager *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(manager.done)
			manager.mu.Lock()
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()

		case conn := <-manager.unregister:
			manager.mu.Lock()
			if client, exists := manager.clients[conn]; exists {
				delete(manager.clients, conn)
				conn.Close()
				log.Printf("[WS]: client %s disconnected", client.UserID)
			}
			manager.mu.Unlock()

		case direct := <-manager.send:
			manager.mu.Lock()
			for _, client := range manager.clients {
				if client.UserID != direct.ReceiverID {
					continue
				}
				if err := client.Conn.WriteMessage(websocket.TextMessage, direct.Message); err != nil {
					client.Conn.Close()
					delete(manager.clients, client.Conn)
				}
			}
			manager.mu.Unlock()
		}
	}
}

// HandleConnections upgrades an authenticated request and keeps the socket
// registered for userID until the client goes away.
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[WS]: upgrade error:", err)
		return
	}

	select {
	case manager.register <- &Client{Conn: conn, UserID: userID}:
	case <-manager.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			log.Println("[WS]: invalid JSON:", err)
			continue
		}

		if message.Type == MsgTypePing {
			_ = manager.SendToUser(userID, MsgTypePong, nil)
		}
	}
}

// Connections returns how many sockets userID has open.
func (manager *WebSocketManager) Connections(userID uuid.UUID) int {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	n := 0
	for _, client := range manager.clients {
		if client.UserID == userID {
			n++
		}
	}
	return n
}

// SendToUser queues a message for every connection of userID.
func (manager *WebSocketManager) SendToUser(userID uuid.UUID, msgType string, payload interface{}) error {
	data, err := json.Marshal(Envelope{Type: msgType, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "encode websocket message")
	}

	select {
	case manager.send <- DirectMessage{ReceiverID: userID, Message: data}:
		return nil
	default:
		return errors.New("websocket send queue full")
	}
}

// Alert shows a zone alert in the user's open app.
func (manager *WebSocketManager) Alert(userID uuid.UUID, a model.Alert) error {
	return manager.SendToUser(userID, MsgTypeZoneAlert, a)
}

// Push forwards a notification to the user's open app.
func (manager *WebSocketManager) Push(userID uuid.UUID, n model.Notification) error {
	return manager.SendToUser(userID, MsgTypeNotification, n)
}
