package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"EagleChat/internal/storage"
)

// Store owns the saved session list and the active transcript, and mediates
// every read and write of the list to durable storage.
type Store struct {
	kv     storage.KV
	key    string
	logger *slog.Logger

	mu         sync.Mutex
	sessions   List
	transcript []Message
	activeID   int64
	active     bool // false = new, unsaved conversation
}

// NewStore creates a Store persisting the session list under key.
func NewStore(kv storage.KV, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:       kv,
		key:      key,
		logger:   logger,
		sessions: List{},
	}
}

// Initialize loads the persisted session list. A missing or malformed value
// leaves the store with an empty list.
func (s *Store) Initialize(ctx context.Context) {
	sessions := s.load(ctx)

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	s.logger.Info("sessions loaded", "count", len(sessions))
}

func (s *Store) load(ctx context.Context) List {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return List{}
	}
	if err != nil {
		s.logger.Warn("failed to read saved sessions", "key", s.key, "error", err)
		return List{}
	}

	var sessions List
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.logger.Warn("saved sessions are malformed, starting empty", "key", s.key, "error", err)
		return List{}
	}
	if sessions == nil {
		sessions = List{}
	}
	return sessions
}

// Persist writes the full session list to durable storage.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	sessions := s.sessions
	if sessions == nil {
		sessions = List{}
	}
	data, err := json.Marshal(sessions)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	s.logger.Debug("sessions persisted", "count", len(sessions), "bytes", len(data))
	return nil
}

// StartNewChat clears the transcript and the active session id.
func (s *Store) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
	s.activeID = 0
	s.active = false
}

// LoadSession makes sess the active conversation.
func (s *Store) LoadSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = cloneMessages(sess.History)
	s.activeID = sess.ID
	s.active = true
}

// Append adds msg to the end of the transcript and returns a copy of it.
func (s *Store) Append(msg Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msg)
	return cloneMessages(s.transcript)
}

// AppendTo appends msg only while id is still the active session. It
// reports whether the transcript changed.
func (s *Store) AppendTo(id int64, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.activeID != id {
		return false
	}
	s.transcript = append(s.transcript, msg)
	return true
}

// EnsureActiveID assigns an id derived from now when the active
// conversation has none yet, and returns the active id.
func (s *Store) EnsureActiveID(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.activeID = now.UnixMilli()
		s.active = true
	}
	return s.activeID
}

// Upsert moves sess to the front of the list, replacing any entry with the
// same id.
func (s *Store) Upsert(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = s.sessions.Upsert(sess.Clone())
}

// Delete removes the session with the given id. Deleting the active
// session also resets the transcript.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions.Find(id); !ok {
		return false
	}
	s.sessions = s.sessions.Remove(id)
	if s.active && s.activeID == id {
		s.transcript = nil
		s.activeID = 0
		s.active = false
	}
	return true
}

// Transcript returns a copy of the active transcript.
func (s *Store) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.transcript)
}

// ActiveID returns the active session id, 0 for a new conversation. Use
// HasActive to tell a new conversation from a saved session with id 0.
func (s *Store) ActiveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// HasActive reports whether the transcript belongs to a saved or
// id-assigned session.
func (s *Store) HasActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Sessions returns a copy of the session list.
func (s *Store) Sessions() List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Clone()
}
