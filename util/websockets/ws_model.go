package websockets

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeZoneAlert    = "zone_alert"
	MsgTypeNotification = "notification"
	MsgTypePing         = "ping"
	MsgTypePong         = "pong"
)

// Client represents a connected WebSocket user
type Client struct {
	Conn   *websocket.Conn
	UserID uuid.UUID
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	send       chan DirectMessage
	done       chan struct{}
	mu         sync.Mutex
}

// DirectMessage is a payload addressed to every connection of one user.
type DirectMessage struct {
	ReceiverID uuid.UUID
	Message    []byte
}

// Envelope is what clients receive.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Message struct for incoming WebSocket messages
type Message struct {
	Type string `json:"type"`
}
