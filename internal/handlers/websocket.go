package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"rating-engine/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	topicLobby        = "lobby"
	topicPlayerPrefix = "player:"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer
	},
}

// Broadcaster relays a topic message to the other server instances.
type Broadcaster interface {
	PublishBroadcast(topic string, message []byte)
}

type WebSocketHandler struct {
	hub *Hub
	bus Broadcaster
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := NewHub()
	go hub.Run()
	return &WebSocketHandler{hub: hub}
}

// SetEventBus enables cross-instance delivery.
func (h *WebSocketHandler) SetEventBus(bus Broadcaster) {
	h.bus = bus
}

// Hub tracks connections by topic and fans messages out to them.
type Hub struct {
	topics map[string]map[*Client]bool
	mu     sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
}

type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

type BroadcastMessage struct {
	Topic   string
	Message []byte
}

type WSMessage struct {
	Type   string                     `json:"type"`
	Rating *models.RatingUpdateResult `json:"rating,omitempty"`
	RoomID string                     `json:"roomId,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.topics[client.topic] == nil {
				h.topics[client.topic] = make(map[*Client]bool)
			}
			h.topics[client.topic][client] = true
			h.mu.Unlock()
			log.Printf("[WebSocket] Client subscribed: topic=%s", client.topic)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			log.Printf("[WebSocket] Client unsubscribed: topic=%s", client.topic)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[msg.Topic] {
				select {
				case client.send <- msg.Message:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}
}

func (h *Hub) BroadcastToTopic(topic string, message []byte) {
	h.broadcast <- &BroadcastMessage{Topic: topic, Message: message}
}

// Subscribers returns the number of connections listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Read error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleRatings streams a player's rating updates.
// GET /ws/ratings/{playerId}
func (h *WebSocketHandler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]
	if playerID == "" {
		http.Error(w, "Missing playerId", http.StatusBadRequest)
		return
	}
	h.subscribe(w, r, topicPlayerPrefix+playerID)
}

// HandleLobby streams ranked room announcements.
// GET /ws/lobby
func (h *WebSocketHandler) HandleLobby(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, topicLobby)
}

func (h *WebSocketHandler) subscribe(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h.hub,
		conn:  conn,
		topic: topic,
		send:  make(chan []byte, 64),
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// NotifyRatingUpdate pushes a rating change to the player's subscribers on
// every instance.
func (h *WebSocketHandler) NotifyRatingUpdate(result models.RatingUpdateResult) {
	h.publish(topicPlayerPrefix+result.PlayerID, WSMessage{Type: "rating_update", Rating: &result})
}

// NotifyRoomCreated announces a freshly opened ranked room to the lobby.
func (h *WebSocketHandler) NotifyRoomCreated(roomID string) {
	h.publish(topicLobby, WSMessage{Type: "room_created", RoomID: roomID})
}

// BroadcastLocal delivers a message relayed from another instance.
func (h *WebSocketHandler) BroadcastLocal(topic string, message []byte) {
	h.hub.BroadcastToTopic(topic, message)
}

// GetHub returns the hub for use by other handlers
func (h *WebSocketHandler) GetHub() *Hub {
	return h.hub
}

func (h *WebSocketHandler) publish(topic string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal %s: %v", msg.Type, err)
		return
	}
	h.hub.BroadcastToTopic(topic, data)
	if h.bus != nil {
		h.bus.PublishBroadcast(topic, data)
	}
}
