package ws

import (
	"log"
	"sync"
)

type outbound struct {
	userID  int64
	message []byte
}

// Hub fans events out to the websocket clients of each user.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[int64]map[*Client]bool
	send       chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[int64]map[*Client]bool),
		send:       make(chan outbound, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]bool)
			h.byUser = make(map[int64]map[*Client]bool)
			h.mutex.Unlock()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			h.clients[client] = true
			if h.byUser[client.userID] == nil {
				h.byUser[client.userID] = make(map[*Client]bool)
			}
			h.byUser[client.userID][client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			if h.logger != nil {
				h.logger.Printf("[WS] Connected user_id=%d client_id=%s total_clients=%d", client.userID, client.id, total)
			}

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.remove(client)

		case msg := <-h.send:
			h.mutex.RLock()
			targets := make([]*Client, 0, len(h.byUser[msg.userID]))
			for c := range h.byUser[msg.userID] {
				targets = append(targets, c)
			}
			h.mutex.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- msg.message:
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		if set := h.byUser[client.userID]; set != nil {
			delete(set, client)
			if len(set) == 0 {
				delete(h.byUser, client.userID)
			}
		}
		close(client.send)
	}
	total := len(h.clients)
	h.mutex.Unlock()
	if h.logger != nil {
		h.logger.Printf("[WS] Disconnected user_id=%d client_id=%s total_clients=%d", client.userID, client.id, total)
	}
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser queues message for every client of userID. Messages are dropped
// when the hub is saturated.
func (h *Hub) SendToUser(userID int64, message []byte) {
	if h == nil {
		return
	}
	select {
	case h.send <- outbound{userID: userID, message: message}:
	default:
		if h.logger != nil {
			h.logger.Printf("[WS] Message dropped user_id=%d reason=buffer_full", userID)
		}
	}
}

func (h *Hub) ClientCount(userID int64) int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.byUser[userID])
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.done) })
}
