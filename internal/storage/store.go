// Package storage provides the durable string-keyed stores behind the
// repograph caches: in-memory, SQLite, a JSON file on disk, a NATS
// JetStream bucket and an S3 bucket.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Store is a durable key-value store addressed by string keys.
// Get reports found=false for a missing key. Set overwrites unconditionally.
// Remove of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendNATS   = "nats"
	BackendS3     = "s3"
)

// OpError records the failed store operation and key.
type OpError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s store %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// encodeKey maps an arbitrary cache key onto the restricted alphabet
// accepted by NATS subjects and friendly to S3 object names.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
