package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

// ErrNoStreamClients is returned when no connected client accepted a match
var ErrNoStreamClients = errors.New("no stream client accepted the match")

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame sent to delivery clients
type StreamMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StreamMatch is the payload of a "match" frame
type StreamMatch struct {
	Recipient string              `json:"recipient"`
	Identity  string              `json:"identity"`
	Server    models.ServerRecord `json:"server"`
}

type streamClient struct {
	conn       *websocket.Conn
	subscriber string // empty receives every match
	writeMu    sync.Mutex
}

func (c *streamClient) accepts(recipient string) bool {
	return c.subscriber == "" || c.subscriber == recipient
}

func (c *streamClient) send(msg StreamMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return c.conn.WriteJSON(msg)
}

// MatchStream pushes match notifications to delivery-layer clients over
// WebSocket. Clients connect to /ws/matches, optionally with ?subscriber=<id>
// to receive only that subscriber's matches.
type MatchStream struct {
	clients map[*streamClient]struct{}
	mu      sync.RWMutex
}

// NewMatchStream creates an empty stream hub
func NewMatchStream() *MatchStream {
	return &MatchStream{
		clients: make(map[*streamClient]struct{}),
	}
}

// HandleConnection upgrades the request and registers the client
// GET /ws/matches
func (s *MatchStream) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Info("MatchStream: Failed to upgrade connection", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := &streamClient{conn: conn, subscriber: c.Query("subscriber")}
	s.register(client)

	go s.handleClientMessages(client)
}

func (s *MatchStream) register(client *streamClient) {
	s.mu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()

	logger.Info("MatchStream: Client connected", map[string]interface{}{
		"subscriber":    client.subscriber,
		"total_clients": total,
	})
}

func (s *MatchStream) unregister(client *streamClient) {
	s.mu.Lock()
	_, ok := s.clients[client]
	delete(s.clients, client)
	total := len(s.clients)
	s.mu.Unlock()

	if ok {
		client.conn.Close()
		logger.Info("MatchStream: Client disconnected", map[string]interface{}{
			"total_clients": total,
		})
	}
}

// handleClientMessages keeps the connection alive and drops it once the
// client goes away
func (s *MatchStream) handleClientMessages(client *streamClient) {
	defer s.unregister(client)

	conn := client.conn
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Info("MatchStream: Unexpected close error", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
	}
}

// Deliver sends a match for recipient to every client accepting it. It fails
// when no client received the frame.
func (s *MatchStream) Deliver(ctx context.Context, recipient string, server models.ServerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := StreamMessage{
		Type:      "match",
		Timestamp: time.Now(),
		Data: StreamMatch{
			Recipient: recipient,
			Identity:  server.Identity().String(),
			Server:    server,
		},
	}

	s.mu.RLock()
	targets := make([]*streamClient, 0, len(s.clients))
	for client := range s.clients {
		if client.accepts(recipient) {
			targets = append(targets, client)
		}
	}
	s.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if err := client.send(msg); err != nil {
			logger.Info("MatchStream: Failed to send message", map[string]interface{}{
				"error": err.Error(),
			})
			s.unregister(client)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return ErrNoStreamClients
	}
	return nil
}

// ClientCount returns the number of connected clients
func (s *MatchStream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client
func (s *MatchStream) Close() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*streamClient]struct{})
	s.mu.Unlock()

	for client := range clients {
		_ = client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		client.conn.Close()
	}
}
