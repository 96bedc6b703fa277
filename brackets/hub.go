package brackets

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TournamentChannel — имя канала подписки для турнира.
func TournamentChannel(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// Типы событий, рассылаемых подписчикам турнира.
const (
	EventRoomCompleted       = "ROOM_COMPLETED"
	EventRoundCompleted      = "ROUND_COMPLETED"
	EventFinaleStarted       = "FINALE_STARTED"
	EventTournamentCompleted = "TOURNAMENT_COMPLETED"
)

// ProgressEvent — сообщение о переходе состояния турнира.
type ProgressEvent struct {
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client — одно websocket-подключение, подписанное на канал турнира.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Channel string

	mu       sync.Mutex
	isClosed bool
}

// Hub ведёт подписки по каналам турниров и рассылает события прогресса.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu       sync.RWMutex
	channels map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		channels:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.channels[client.Channel]; !ok {
				h.channels[client.Channel] = make(map[*Client]bool)
			}
			h.channels[client.Channel][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.channels[client.Channel]; ok {
				if _, found := clients[client]; found {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.channels, client.Channel)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToTournament отправляет событие всем подписчикам турнира.
// Лучшая попытка: медленные клиенты пропускаются, а не блокируют рассылку.
func (h *Hub) BroadcastToTournament(channel string, event ProgressEvent) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: failed to marshal event for channel %s: %v", channel, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[channel] {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("hub: send channel full for channel %s, dropping event", channel)
		}
		client.mu.Unlock()
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

// ReadPump читает (и игнорирует) входящие сообщения, поддерживая соединение
// живым через pong-хендлер. Завершение чтения снимает подписку.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: unexpected close on channel %s: %v", c.Channel, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
