// Package stream pushes lead cache changes to connected clients over
// Server-Sent Events.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"leadtracker_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// EventType represents different types of stream events
type EventType string

const (
	EventConnected    EventType = "connected"
	EventLeadsChanged EventType = "leads_changed"
	EventSignedOut    EventType = "signed_out"
)

const clientBuffer = 32

// Event represents a stream event payload
type Event struct {
	Type    EventType `json:"type"`
	Version uint64    `json:"version,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// client represents a connected stream client
type client struct {
	userID string
	events chan Event
}

// Service manages stream connections and event delivery per user.
type Service struct {
	log *logger.Logger

	seq     atomic.Uint64
	mu      sync.RWMutex
	clients map[string][]*client
}

func New(log *logger.Logger) *Service {
	return &Service{log: log, clients: make(map[string][]*client)}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

// removeClient unregisters c and closes its channel. It is a no-op when the
// client was already dropped by Close.
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i:i], clients[i+1:]...)
			if len(s.clients[c.userID]) == 0 {
				delete(s.clients, c.userID)
			}
			close(c.events)
			return
		}
	}
}

// Publish sends an event to every connection of a user. Slow clients drop
// events rather than block the publisher. Events without a version are
// stamped with the next value of a service-wide sequence.
func (s *Service) Publish(userID string, event Event) {
	if event.Version == 0 {
		event.Version = s.seq.Add(1)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("stream buffer full", "user_id", userID, "event", event.Type)
		}
	}
}

// Connections reports the number of open connections of a user.
func (s *Service) Connections(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

// Handler returns a Gin handler streaming the caller's events.
func (s *Service) Handler(getUserID func(*gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{userID: userID, events: make(chan Event, clientBuffer)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent(string(EventConnected), gin.H{"userId": userID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[string][]*client)
}
