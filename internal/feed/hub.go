// Package feed streams graded answers to websocket subscribers, with learner
// IDs replaced by salted pseudonyms.
package feed

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-adaptive/internal/interaction"
)

const (
	// messageBuffer is how many messages may queue for one subscriber before
	// it is dropped as too slow.
	messageBuffer = 16
	writeTimeout  = 5 * time.Second
)

// Message is the JSON frame sent to subscribers.
type Message struct {
	Type          string    `json:"type"`
	Learner       string    `json:"learner"`
	ContentID     string    `json:"content_id"`
	QuestionIndex int       `json:"question_index"`
	Correct       bool      `json:"correct"`
	At            time.Time `json:"at"`
}

// Message types.
const (
	TypeAnswer  = "answer"
	TypeLevelUp = "level_up"
)

// Hub fans interaction events out to connected websocket clients. It
// implements interaction.Subscriber and http.Handler.
type Hub struct {
	salt []byte

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	done        chan struct{}
	closeOnce   sync.Once
}

type subscriber struct {
	msgs      chan []byte
	closeSlow func()
}

// NewHub creates a hub. The salt keys the pseudonym hash and may be at most
// 64 bytes.
func NewHub(salt string) (*Hub, error) {
	if len(salt) > blake2b.Size {
		return nil, fmt.Errorf("feed salt longer than %d bytes", blake2b.Size)
	}
	return &Hub{
		salt:        []byte(salt),
		subscribers: make(map[*subscriber]struct{}),
		done:        make(chan struct{}),
	}, nil
}

// Pseudonym returns a stable, salted stand-in for a learner ID.
func (h *Hub) Pseudonym(learnerID string) string {
	mac, err := blake2b.New256(h.salt)
	if err != nil {
		// NewHub bounds the salt, so the key is always valid.
		panic(err)
	}
	mac.Write([]byte(learnerID))
	return "learner-" + hex.EncodeToString(mac.Sum(nil)[:6])
}

// Publish sends an event to every subscriber. Subscribers whose buffer is
// full are disconnected instead of blocking the caller.
func (h *Hub) Publish(event interaction.Event) {
	msg := Message{
		Type:          TypeAnswer,
		Learner:       h.Pseudonym(event.LearnerID),
		ContentID:     event.ContentID,
		QuestionIndex: event.QuestionIndex,
		Correct:       event.Correct,
		At:            event.CreatedAt,
	}
	if event.LevelUp {
		msg.Type = TypeLevelUp
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode feed message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subscribers {
		select {
		case s.msgs <- data:
		default:
			go s.closeSlow()
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP upgrades the request to a websocket and streams messages until
// the client goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	default:
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("feed upgrade failed", "error", err)
		return
	}
	defer c.CloseNow()

	err = h.serve(r.Context(), c)
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		slog.Warn("feed subscriber dropped", "error", err)
	}
}

func (h *Hub) serve(ctx context.Context, c *websocket.Conn) error {
	// Clients only listen; CloseRead handles control frames and cancels ctx
	// once the peer disconnects.
	ctx = c.CloseRead(ctx)

	s := &subscriber{
		msgs: make(chan []byte, messageBuffer),
		closeSlow: func() {
			c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
		},
	}
	h.add(s)
	defer h.remove(s)

	slog.Debug("feed subscriber connected")
	for {
		select {
		case data := <-s.msgs:
			if err := write(ctx, c, data); err != nil {
				return err
			}
		case <-h.done:
			return c.Close(websocket.StatusGoingAway, "server shutting down")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	h.mu.Unlock()
}

func write(ctx context.Context, c *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, data)
}
