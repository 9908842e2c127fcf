package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"EagleChat/internal/backend"
)

// CachedResponse represents a cached API response
type CachedResponse struct {
	Response  string
	Timestamp time.Time
}

// GenerateCacheKey generates a cache key from messages
func GenerateCacheKey(messages []backend.ChatMessage) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Service answers repeated histories from memory and forwards everything
// else to the wrapped service. Failed calls are never cached.
type Service struct {
	backend.Service
	entries sync.Map
	logger  *slog.Logger
}

var _ backend.Service = (*Service)(nil)

// Wrap decorates next with a reply cache.
func Wrap(next backend.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Service: next, logger: logger}
}

func (s *Service) Chat(ctx context.Context, history []backend.ChatMessage) (string, error) {
	key := GenerateCacheKey(history)
	if val, ok := s.entries.Load(key); ok {
		cached := val.(CachedResponse)
		s.logger.Info("cache hit", "key", key[:16], "age", time.Since(cached.Timestamp))
		return cached.Response, nil
	}

	reply, err := s.Service.Chat(ctx, history)
	if err != nil {
		return "", err
	}

	s.entries.Store(key, CachedResponse{Response: reply, Timestamp: time.Now()})
	s.logger.Info("cached response", "key", key[:16])
	return reply, nil
}
