package arena

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/obslog"
)

// Registry maps room identifiers to their sessions. It is owned by the
// process and injected where needed; rooms are created on demand and live
// for the process lifetime.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Session
	notice NoticeFunc
}

// NewRegistry returns an empty registry. notice may be nil.
func NewRegistry(notice NoticeFunc) *Registry {
	return &Registry{rooms: make(map[string]*Session), notice: notice}
}

// Create allocates a fresh room with an unused opaque identifier.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	s := NewSession(id, r.notice)
	r.rooms[id] = s
	obslog.L().Info("room_create", zap.String("room_id", id))
	return s
}

// GetOrCreate resolves a room, creating it if never seen. Concurrent calls
// with the same fresh id converge on one session: the first creation wins
// and later callers join it.
func (r *Registry) GetOrCreate(roomID string) *Session {
	r.mu.RLock()
	s, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rooms[roomID]; ok {
		return s
	}
	s = NewSession(roomID, r.notice)
	r.rooms[roomID] = s
	obslog.L().Info("room_create", zap.String("room_id", roomID), zap.Bool("on_demand", true))
	return s
}

// Get resolves an existing room without creating it.
func (r *Registry) Get(roomID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[roomID]
	return s, ok
}

// Exists reports whether a room id resolves, for validating externally
// supplied ids before handing a client into a room page.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}
