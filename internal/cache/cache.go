package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the lookup surface shared by the cache implementations.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically removes expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Start runs the cleanup loop until ctx is cancelled. Wait blocks until the
// loop has exited.
func (j *Janitor) Start(ctx context.Context, interval time.Duration) {
	j.done = make(chan struct{})
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cleaned := 0
				for _, c := range j.caches {
					cleaned += c.CleanExpired()
				}
				if cleaned > 0 {
					slog.DebugContext(ctx, "Expired cache entries removed", "count", cleaned)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (j *Janitor) Wait() {
	if j.done != nil {
		<-j.done
	}
}
