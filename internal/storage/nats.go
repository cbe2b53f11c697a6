package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSStore keeps entries in a NATS JetStream key-value bucket. Keys are
// base64url-encoded because bucket keys cannot contain '|' or ':'.
type NATSStore struct {
	conn *nats.Conn
	kv   nats.KeyValue
}

// NewNATSStore connects to url and binds the bucket, creating it when it
// does not exist yet.
func NewNATSStore(url, bucket string, opts ...nats.Option) (*NATSStore, error) {
	defaults := []nats.Option{
		nats.Name("repograph-cache"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "repograph cache entries",
			History:     1,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("binding key-value bucket %s: %w", bucket, err)
	}

	return &NATSStore{conn: nc, kv: kv}, nil
}

func (s *NATSStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(encodeKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &OpError{Backend: BackendNATS, Op: "get", Key: key, Err: err}
	}
	return entry.Value(), true, nil
}

func (s *NATSStore) Set(_ context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(encodeKey(key), value); err != nil {
		return &OpError{Backend: BackendNATS, Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *NATSStore) Remove(_ context.Context, key string) error {
	err := s.kv.Delete(encodeKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return &OpError{Backend: BackendNATS, Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Close closes the NATS connection
func (s *NATSStore) Close() error {
	s.conn.Close()
	return nil
}
