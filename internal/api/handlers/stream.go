package handlers

import (
	"delivery-trajectory-service/internal/api/dto"
	"delivery-trajectory-service/internal/domain"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamSendBuffer = 256
)

// StreamHub is a RenderSink that pushes frames and camera moves to
// WebSocket clients watching a subject. A client that cannot keep up
// loses messages instead of stalling playback.
type StreamHub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*streamClient
	closed  bool
}

type streamClient struct {
	id      string
	subject string
	send    chan []byte
}

func NewStreamHub() *StreamHub {
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[string]*streamClient),
	}
}

func (h *StreamHub) RenderFrame(f domain.Frame) {
	msg := dto.StreamMessage{
		Type:        "frame",
		SubjectKey:  f.SubjectKey,
		LegID:       f.LegID,
		Position:    f.Position.CoordsToList(),
		Heading:     f.Heading,
		IsAnimating: f.IsAnimating,
		Status:      string(f.Status),
	}
	msg.PartialPath = pathToLists(f.PartialPath)
	if len(f.CompletedPath) > 0 {
		msg.CompletedPath = pathToLists(f.CompletedPath)
	}
	h.broadcast(f.SubjectKey, msg)
}

func pathToLists(p domain.Path) [][]float64 {
	out := make([][]float64, 0, len(p))
	for _, c := range p {
		out = append(out, c.CoordsToList())
	}
	return out
}

func (h *StreamHub) MoveCamera(ev domain.CameraEvent) {
	h.broadcast(ev.SubjectKey, dto.StreamMessage{
		Type:       "camera",
		SubjectKey: ev.SubjectKey,
		Position:   ev.Center.CoordsToList(),
		AnimatePan: ev.ShouldAnimatePan,
	})
}

func (h *StreamHub) broadcast(subject string, msg dto.StreamMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Printf("stream: marshal %s: %v", msg.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.subject != subject {
			continue
		}
		select {
		case c.send <- b:
		default:
			// Slow client; drop rather than block the drain goroutine.
		}
	}
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams the subject named in the path.
func (h *StreamHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.PathValue("key"))
	if subject == "" {
		writeError(w, r, http.StatusBadRequest, "subject key is required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Printf("stream: upgrade subject=%s: %v", subject, err)
		return
	}

	c := &streamClient{
		id:      uuid.NewString(),
		subject: subject,
		send:    make(chan []byte, streamSendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	log.Printf("stream: client=%s subject=%s connected", c.id, subject)

	go c.writeLoop(conn)
	c.readLoop(conn)

	h.unregister(c)
	log.Printf("stream: client=%s subject=%s disconnected", c.id, subject)
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// readLoop discards client messages and returns when the peer goes away.
func (c *streamClient) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writeLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
