// Package pending parks quick-add candidates that collided with an
// existing subscription until the user picks a resolution. Entries are
// in-memory only and expire after a fixed window; losing one on restart
// just means the user retypes the line.
package pending

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"subtrack/internal/cache"
	"subtrack/internal/core"
)

// DefaultTTL is how long a parked candidate stays decidable.
const DefaultTTL = 60 * time.Minute

const defaultCapacity = 4096

type item struct {
	userID int64
	cand   core.QuickAddCandidate
}

// Store is an owner-scoped TTL store keyed by opaque ids. A read with
// the wrong owner behaves exactly like a miss, so keys leak nothing
// across users.
type Store struct {
	cache *cache.Cache[string, item]
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache.New[string, item](defaultCapacity, ttl)}
}

func (s *Store) Put(userID int64, cand core.QuickAddCandidate) string {
	key := uuid.NewString()
	s.cache.Set(key, item{userID: userID, cand: cand})
	return key
}

func (s *Store) Get(userID int64, key string) (core.QuickAddCandidate, bool) {
	it, ok := s.cache.Get(key)
	if !ok || it.userID != userID {
		return core.QuickAddCandidate{}, false
	}
	return it.cand, true
}

func (s *Store) Delete(key string) {
	s.cache.Delete(key)
}

func (s *Store) Len() int {
	return s.cache.Len()
}

// RunCleanup sweeps expired entries on an interval until the context is
// cancelled. The store works without it; the sweep only keeps memory
// flat when keys are abandoned.
func (s *Store) RunCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.cache.CleanExpired(); n > 0 {
				logger.Debug("pending entries expired", "removed", n)
			}
		}
	}
}
