package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/multierr"

	"github.com/leengari/tree-tutor/internal/storage"
)

// Defaults for the session registry
const (
	DefaultCapacity = 1000
	DefaultTTL      = 48 * time.Hour
)

// Registry manages the live sessions in a thread-safe way. Sessions
// expire a fixed time after they were created, and the least recently
// used one is dropped when the registry is full. A dropped session's
// store is closed and its directory removed.
type Registry struct {
	mu        sync.Mutex // serializes get-or-create
	basePath  string
	cache     *ttlcache.Cache[string, *Cursor]
	observers []Observer
	closed    bool
}

// NewRegistry creates a registry keeping session directories under basePath.
// Leftover session directories from an earlier run are removed.
func NewRegistry(basePath string, capacity uint64, ttl time.Duration, observers ...Observer) (*Registry, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	stale, err := storage.ListSessionDirectories(basePath)
	if err != nil {
		return nil, err
	}
	for _, dir := range stale {
		if err := storage.RemoveDirectory(dir); err != nil {
			return nil, err
		}
	}

	cache := ttlcache.New[string, *Cursor](
		ttlcache.WithTTL[string, *Cursor](ttl),
		ttlcache.WithCapacity[string, *Cursor](capacity),
		// sessions expire after write, reads do not extend them
		ttlcache.WithDisableTouchOnHit[string, *Cursor](),
	)

	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Cursor]) {
		if err := release(item.Value()); err != nil {
			slog.Error("failed to release session",
				slog.String("uid", item.Key()),
				slog.Any("error", err),
			)
			return
		}
		slog.Info("session evicted",
			slog.String("uid", item.Key()),
			slog.Int("reason", int(reason)),
		)
	})

	go cache.Start()

	return &Registry{
		basePath:  basePath,
		cache:     cache,
		observers: observers,
	}, nil
}

// Get returns the session for uid, creating it when it does not exist
func (r *Registry) Get(uid string) (*Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item := r.cache.Get(uid); item != nil {
		return item.Value(), nil
	}

	dir, err := storage.NewSessionDirectory(r.basePath, uid)
	if err != nil {
		return nil, err
	}
	cursor := NewCursor(uid, dir, r.observers...)
	r.cache.Set(uid, cursor, ttlcache.DefaultTTL)

	slog.Info("session created",
		slog.String("uid", uid),
		slog.String("dir", dir),
	)
	return cursor, nil
}

// Lookup returns an existing session without creating one
func (r *Registry) Lookup(uid string) (*Cursor, bool) {
	item := r.cache.Get(uid)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Remove ends a session now
func (r *Registry) Remove(uid string) {
	r.cache.Delete(uid)
}

// Len reports the number of live sessions
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close stops expiry and releases every session (call on shutdown)
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.cache.Stop()

	var errs error
	for uid, item := range r.cache.Items() {
		if err := release(item.Value()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", uid, err))
		}
	}
	r.cache.DeleteAll()
	return errs
}

func release(c *Cursor) error {
	return multierr.Combine(
		c.Close(),
		storage.RemoveDirectory(c.Dir()),
	)
}
