package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks live sessions. Every session is in the broadcast group; a
// session that sent join_room is also in that user's room.
type Hub struct {
	mu        sync.RWMutex
	sessions  map[*Session]struct{}
	rooms     map[string]map[*Session]struct{}
	queueSize int
	logger    *slog.Logger
}

func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions:  make(map[*Session]struct{}),
		rooms:     make(map[string]map[*Session]struct{}),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Session is one connected client.
type Session struct {
	ID     string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	userID string
}

// Done is closed once the session has been removed from the hub.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) setUserID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.userID
	s.userID = id
	return prev
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

// Register adds a new session to the broadcast group.
func (h *Hub) Register() *Session {
	s := &Session{
		ID:   uuid.NewString(),
		send: make(chan []byte, h.queueSize),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unregister removes the session from its room and the broadcast group.
// Safe to call more than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	h.removeLocked(s)
	h.mu.Unlock()
	s.close()
}

func (h *Hub) removeLocked(s *Session) {
	delete(h.sessions, s)
	if uid := s.UserID(); uid != "" {
		if room, ok := h.rooms[uid]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, uid)
			}
		}
	}
}

// Join puts the session in userID's room, leaving any previous room.
func (h *Hub) Join(s *Session, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.sessions[s]; !live {
		return
	}
	if prev := s.setUserID(userID); prev != "" && prev != userID {
		if room, ok := h.rooms[prev]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, prev)
			}
		}
	}
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[userID] = room
	}
	room[s] = struct{}{}
}

func (h *Hub) SendToUser(ctx context.Context, userID, event string, payload any) error {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.rooms[userID]))
	for s := range h.rooms[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()
	h.deliver(targets, event, msg)
	return nil
}

func (h *Hub) Broadcast(ctx context.Context, event string, payload any) error {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()
	h.deliver(targets, event, msg)
	return nil
}

// Reply sends one frame to a single session.
func (h *Hub) Reply(s *Session, event string, payload any) error {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	h.deliver([]*Session{s}, event, msg)
	return nil
}

// deliver never blocks. A session whose queue is full is too slow to keep
// up and is dropped.
func (h *Hub) deliver(targets []*Session, event string, msg []byte) {
	for _, s := range targets {
		select {
		case <-s.done:
			continue
		default:
		}
		select {
		case s.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket session", "session", s.ID, "user_id", s.UserID(), "event", event)
			h.Unregister(s)
		}
	}
}

// Counts returns the number of live sessions and of sessions in userID's room.
func (h *Hub) Counts(userID string) (sessions, inRoom int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions), len(h.rooms[userID])
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
