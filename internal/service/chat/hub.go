// Package chat binds authenticated streams to match-scoped rooms and relays
// persisted messages between the parties of a match.
package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/oggyb/muzz-match/internal/api"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// Sender is the sending half of a stream.
type Sender interface {
	Send(*api.ServerEvent) error
}

// Conn is one live stream bound to a user. Events reach the client through
// a buffered outbox drained by a single writer, since a stream's Send must
// not be called concurrently.
type Conn struct {
	id     string
	userID uint64
	outbox chan *api.ServerEvent

	done      chan struct{}
	closeOnce sync.Once
	metrics   *metrics.Metrics
}

func newConn(userID uint64, outboxSize int, m *metrics.Metrics) *Conn {
	if outboxSize <= 0 {
		outboxSize = 1
	}
	return &Conn{
		id:      uuid.NewString(),
		userID:  userID,
		outbox:  make(chan *api.ServerEvent, outboxSize),
		done:    make(chan struct{}),
		metrics: m,
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() uint64 { return c.userID }

// deliver queues ev without blocking. A closed connection or a full outbox
// drops the event for this connection only.
func (c *Conn) deliver(ev *api.ServerEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- ev:
		return true
	default:
		c.metrics.ChatEventDropped()
		return false
	}
}

// writeLoop sends queued events until the connection closes or Send fails.
// Events already queued when the connection closes are still flushed.
func (c *Conn) writeLoop(s Sender) error {
	for {
		select {
		case ev := <-c.outbox:
			if err := s.Send(ev); err != nil {
				return err
			}
		case <-c.done:
			for {
				select {
				case ev := <-c.outbox:
					if err := s.Send(ev); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub tracks room membership. Rooms are keyed by match id.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Conn]struct{}
	joined map[*Conn]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Conn]struct{}),
		joined: make(map[*Conn]map[string]struct{}),
	}
}

// Join subscribes c to room. Joining twice is a no-op.
func (h *Hub) Join(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	rooms, ok := h.joined[c]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[c] = rooms
	}
	rooms[room] = struct{}{}
}

// Leave unsubscribes c from room.
func (h *Hub) Leave(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll unsubscribes c from every room it joined.
func (h *Hub) LeaveAll(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[c] {
		h.leaveLocked(room, c)
	}
	delete(h.joined, c)
}

func (h *Hub) leaveLocked(room string, c *Conn) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.joined[c]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.joined, c)
		}
	}
}

// Broadcast queues ev for every member of room except the given connection
// and returns how many connections accepted it.
func (h *Hub) Broadcast(room string, except *Conn, ev *api.ServerEvent) int {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.deliver(ev) {
			delivered++
		}
	}
	return delivered
}

// Members returns the number of connections in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
