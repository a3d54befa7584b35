package controller

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// NotifyHub pushes new-mail notifications to connected clients and tracks
// whether any client is actually looking at the page, so the poll worker can
// go quiet when nobody is.
type NotifyHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool // value = client reported visible
	logger  *log.Logger
}

func NewNotifyHub(logger *log.Logger) *NotifyHub {
	return &NotifyHub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

type clientState struct {
	Visible bool `json:"visible"`
}

type newMailEvent struct {
	Type      string `json:"type"`
	AccountID uint   `json:"account_id"`
}

// Handler is the websocket endpoint. Clients report visibility changes as
// small JSON frames; the connection closing drops them from the hub.
func (h *NotifyHub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		h.mu.Lock()
		h.clients[c] = true
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.Close()
		}()

		for {
			_, payload, err := c.ReadMessage()
			if err != nil {
				return
			}
			var state clientState
			if err := json.Unmarshal(payload, &state); err != nil {
				h.logger.Printf("bad ws frame: %v", err)
				continue
			}
			h.mu.Lock()
			h.clients[c] = state.Visible
			h.mu.Unlock()
		}
	}
}

// AnyVisible reports whether at least one connected client has the page in
// the foreground.
func (h *NotifyHub) AnyVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, visible := range h.clients {
		if visible {
			return true
		}
	}
	return false
}

// BroadcastNewMail tells every client that an account has new mail.
func (h *NotifyHub) BroadcastNewMail(accountID uint) {
	payload, err := json.Marshal(newMailEvent{Type: "new_mail", AccountID: accountID})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Printf("ws write failed, dropping client: %v", err)
			delete(h.clients, c)
			c.Close()
		}
	}
}
