package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"repograph/internal/config"
)

// OpenStore builds the Store selected by cfg.Cache.Backend. The returned
// closer releases connections or files and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, io.Closer, error) {
	cc := cfg.Cache
	switch cc.Backend {
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil

	case BackendSQLite, "":
		db, err := Open(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteStore(db), db, nil

	case BackendFile:
		path := cc.FilePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "cache.json")
		}
		fs, err := NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nopCloser{}, nil

	case BackendNATS:
		ns, err := NewNATSStore(cc.NATS.URL, cc.NATS.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return ns, ns, nil

	case BackendS3:
		s3s, err := NewS3Store(ctx, cc.S3.Bucket, cc.S3.Prefix, cc.S3.Region, cc.S3.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return s3s, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cc.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
