// Package cache is a time-expiring typed cache over a storage.Store.
//
// Entries are stored as {"data": <T>, "timestamp": <unix ms>}. Expiry is
// lazy: an entry older than the TTL is treated as a miss and removed on the
// read that finds it. There is no background sweep and no size bound.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"repograph/internal/cachekey"
	apperrors "repograph/internal/errors"
	"repograph/internal/storage"
)

// Miss reasons passed to Recorder.Miss.
const (
	MissAbsent  = "absent"
	MissExpired = "expired"
	MissCorrupt = "corrupt"
)

// Recorder observes cache traffic. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Hit(kind string)
	Miss(kind, reason string)
	Evict(kind string)
	Set(kind string)
}

type entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// storedEntry is the read side of entry. Both fields are checked for
// presence before the payload is decoded into T.
type storedEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"`
}

// decodeEntry parses raw into a payload and its write time. An entry with a
// missing or null payload, or a missing or non-positive timestamp, does not
// have the expected shape and is rejected.
func decodeEntry[T any](raw []byte) (T, int64, error) {
	var zero T
	var se storedEntry
	if err := json.Unmarshal(raw, &se); err != nil {
		return zero, 0, err
	}
	if len(se.Data) == 0 || bytes.Equal(bytes.TrimSpace(se.Data), []byte("null")) {
		return zero, 0, errMissingData
	}
	if se.Timestamp == nil || *se.Timestamp <= 0 {
		return zero, 0, errMissingTimestamp
	}
	var data T
	if err := json.Unmarshal(se.Data, &data); err != nil {
		return zero, 0, err
	}
	return data, *se.Timestamp, nil
}

var (
	errMissingData      = errors.New("entry has no data")
	errMissingTimestamp = errors.New("entry has no timestamp")
)

type settings struct {
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Cache.
type Option func(*settings)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithRecorder reports hits, misses, evictions and writes to r.
func WithRecorder(r Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

// WithLogger sets the logger used for eviction failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Cache stores values of type T under keys built by package cachekey.
type Cache[T any] struct {
	store    storage.Store
	kind     cachekey.Kind
	ttl      time.Duration
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

// New creates a cache over store. A ttl <= 0 disables expiry.
func New[T any](store storage.Store, kind cachekey.Kind, ttl time.Duration, opts ...Option) *Cache[T] {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return &Cache[T]{
		store:    store,
		kind:     kind,
		ttl:      ttl,
		now:      s.now,
		recorder: s.recorder,
		logger:   s.logger,
	}
}

// Kind returns the key kind this cache serves.
func (c *Cache[T]) Kind() cachekey.Kind { return c.kind }

// TTL returns the expiry window.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get returns the live value stored under key. Expired entries and entries
// that do not decode to {data, timestamp} are removed and reported as
// misses. Values that encode to JSON null therefore never read back as hits. Only a failing store read
// produces an error.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, false, apperrors.New(apperrors.StorageError, "cache read failed", err)
	}
	if !found {
		c.miss(MissAbsent)
		return zero, false, nil
	}

	data, ts, err := decodeEntry[T](raw)
	if err != nil {
		c.logger.Warn("Discarding undecodable cache entry", "kind", c.kind, "key", key, "error", err)
		c.evict(ctx, key)
		c.miss(MissCorrupt)
		return zero, false, nil
	}

	if c.expired(ts) {
		c.evict(ctx, key)
		c.miss(MissExpired)
		return zero, false, nil
	}

	if c.recorder != nil {
		c.recorder.Hit(string(c.kind))
	}
	return data, true, nil
}

// Set stores data under key stamped with the current time. The last write
// wins. Store failures are returned as STORAGE_ERROR without retry.
func (c *Cache[T]) Set(ctx context.Context, key string, data T) error {
	raw, err := json.Marshal(entry[T]{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return apperrors.New(apperrors.InternalError, "cache entry not encodable", err)
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		return apperrors.New(apperrors.StorageError, "cache write failed", err)
	}
	if c.recorder != nil {
		c.recorder.Set(string(c.kind))
	}
	return nil
}

// expired reports whether an entry written at ts (unix ms) is past the TTL.
// An entry exactly ttl old is still live.
func (c *Cache[T]) expired(ts int64) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().UnixMilli()-ts > c.ttl.Milliseconds()
}

// evict removes key. A failed removal is logged and otherwise ignored; the
// next read will try again.
func (c *Cache[T]) evict(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, key); err != nil {
		c.logger.Warn("Failed to evict cache entry", "kind", c.kind, "key", key, "error", err)
		return
	}
	if c.recorder != nil {
		c.recorder.Evict(string(c.kind))
	}
}

func (c *Cache[T]) miss(reason string) {
	if c.recorder != nil {
		c.recorder.Miss(string(c.kind), reason)
	}
}
