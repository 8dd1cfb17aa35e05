// Package fs is the filesystem model store used by local, infrastructure-free
// deployments: model documents live under one directory with the same object
// naming as the MinIO store.
package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/internal/infrastructure/storage/minio"
	"github.com/turtacn/MolScore/pkg/errors"
)

type modelStore struct {
	dir    string
	logger logging.Logger
}

// NewModelStore returns a ModelStore rooted at dir, creating it if needed.
func NewModelStore(dir string, log logging.Logger) (minio.ModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "cannot create model directory").
			WithDetail(dir)
	}
	return &modelStore{dir: dir, logger: log.Named("fsstore")}, nil
}

func (s *modelStore) path(kind string, radius int) string {
	return filepath.Join(s.dir, filepath.FromSlash(minio.ObjectName(kind, radius)))
}

func (s *modelStore) Save(_ context.Context, kind string, radius int, doc []byte) (string, error) {
	path := s.path(kind, radius)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot create model directory").
			WithDetail(filepath.Dir(path))
	}

	// Write-then-rename so readers never observe a torn document.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot write model document")
	}
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot write model document")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot write model document")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot write model document").
			WithDetail(path)
	}

	digest := minio.ContentDigest(doc)
	s.logger.Info("model document written",
		logging.String("path", path),
		logging.String("digest", digest))
	return digest, nil
}

func (s *modelStore) Load(_ context.Context, kind string, radius int) ([]byte, error) {
	doc, err := os.ReadFile(s.path(kind, radius))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeModelNotFound,
				"no stored model for kind %s radius %d", kind, radius)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "cannot read model document").
			WithDetail(s.path(kind, radius))
	}
	return doc, nil
}

func (s *modelStore) Digest(ctx context.Context, kind string, radius int) (string, error) {
	doc, err := s.Load(ctx, kind, radius)
	if err != nil {
		return "", err
	}
	return minio.ContentDigest(doc), nil
}

func (s *modelStore) Delete(_ context.Context, kind string, radius int) error {
	if err := os.Remove(s.path(kind, radius)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeStorageError, "cannot delete model document").
			WithDetail(s.path(kind, radius))
	}
	return nil
}
