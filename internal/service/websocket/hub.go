package websocket

import (
	"encoding/json"
	"sync"

	"aerodetect/internal/config"
	"aerodetect/internal/dto"
	"aerodetect/internal/logger"

	"github.com/gorilla/websocket"
)

// broadcastQueue bounds pending progress messages; Broadcast drops beyond it.
const broadcastQueue = 64

// HubService fans video progress events out to connected websocket clients.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(config *config.Config, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until Stop is called.
func (h *HubService) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Progress client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Progress client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending progress: %v", err)
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *HubService) removeLocked(client *websocket.Conn) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
	}
}

// Stop terminates Run and closes every client.
func (h *HubService) Stop() {
	close(h.done)
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a progress event for every client. It never blocks the
// caller; when the queue is full the event is dropped.
func (h *HubService) Broadcast(progress dto.VideoProgress) {
	message, err := json.Marshal(progress)
	if err != nil {
		h.logger.Error("Error encoding progress: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Progress queue full, dropping update for job %s", progress.Job)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
