package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"studynotes/internal/notes/model"
	"studynotes/pkg/logger"
)

const (
	NotesReplacedType = "NOTES_REPLACED" // Whole document was replaced
	ClientsType       = "CLIENTS"        // Number of open tabs changed
)

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DocumentLoader is the read side of the notes store.
type DocumentLoader interface {
	Load(ctx context.Context) (model.Document, error)
}

// Hub fans the current notes document out to every open browser tab so a
// save in one tab is visible in the others.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	loader DocumentLoader
	done   chan struct{}
	mu     sync.Mutex
	// Last document sent to clients, compact JSON
	current json.RawMessage
}

func NewHub(loader DocumentLoader) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 16),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		loader:     loader,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.current == nil {
				// First tab: load the document from the store.
				doc, err := h.loader.Load(ctx)
				if err != nil {
					logger.Sugar.Errorf("Failed to load notes for new client: %v", err)
				}
				h.current = encodeDocument(doc)
			}
			h.Clients[client] = true
			currentContent := h.current
			h.mu.Unlock()

			initial, _ := json.Marshal(WSMessage{Type: NotesReplacedType, Payload: currentContent})
			client.Send <- initial
			h.broadcastClientCount()

		case client := <-h.Unregister:
			h.mu.Lock()
			_, ok := h.Clients[client]
			if ok {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			if ok {
				h.broadcastClientCount()
			}

		case msg := <-h.Broadcast:
			h.mu.Lock()
			if msg.Type == NotesReplacedType {
				if bytes.Equal(h.current, msg.Payload) {
					// Our own save echoed back by the file watcher.
					h.mu.Unlock()
					continue
				}
				h.current = msg.Payload
			}

			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				h.mu.Unlock()
				continue
			}
			clientsToSend := make([]*Client, 0, len(h.Clients))
			for client := range h.Clients {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.ID)
					go func(c *Client) {
						select {
						case h.Unregister <- c:
						case <-h.done:
						}
					}(client)
				}
			}
		}
	}
}

// BroadcastDocument queues doc for every connected tab. It never blocks the
// caller; if the queue is full the update is dropped and logged.
func (h *Hub) BroadcastDocument(doc model.Document) {
	msg := WSMessage{Type: NotesReplacedType, Payload: encodeDocument(doc)}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warn("Broadcast queue is full, dropping notes update")
	}
}

// Reload re-reads the store and broadcasts the result. Called when the notes
// file changes on disk. An unreadable file is not pushed to clients.
func (h *Hub) Reload(ctx context.Context) {
	doc, err := h.loader.Load(ctx)
	if err != nil {
		logger.Sugar.Warnf("Skipping broadcast of unreadable notes file: %v", err)
		return
	}
	logger.Sugar.Infof("Notes changed on disk, broadcasting %d sections", doc.Len())
	h.BroadcastDocument(doc)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Clients)
}

func (h *Hub) broadcastClientCount() {
	h.mu.Lock()
	count := len(h.Clients)
	clientsToSend := make([]*Client, 0, count)
	for client := range h.Clients {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}
	payload, _ := json.Marshal(map[string]int{"count": count})
	msg, _ := json.Marshal(WSMessage{Type: ClientsType, Payload: payload})
	for _, client := range clientsToSend {
		select {
		case client.Send <- msg:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during client count update.", client.ID)
		}
	}
}

func encodeDocument(doc model.Document) json.RawMessage {
	if doc == nil {
		doc = model.Document{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling notes document: %v", err)
		return json.RawMessage(`{}`)
	}
	return b
}
