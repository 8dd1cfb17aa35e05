package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MolScore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolScore/pkg/errors"
)

// ModelStore persists serialized model documents.  Models are addressed by
// kind and radius; each save overwrites the previous version of that slot
// and returns the content digest that identifies the new version.
type ModelStore interface {
	// Save stores a model document and returns its sha256 content digest.
	Save(ctx context.Context, kind string, radius int, doc []byte) (digest string, err error)

	// Load returns the stored document, or a model-not-found error.
	Load(ctx context.Context, kind string, radius int) ([]byte, error)

	// Digest returns the content digest of the stored document without
	// downloading it.
	Digest(ctx context.Context, kind string, radius int) (string, error)

	// Delete removes a stored model.  Deleting an absent model is not an
	// error.
	Delete(ctx context.Context, kind string, radius int) error
}

// ObjectName builds the object key for a model slot.
func ObjectName(kind string, radius int) string {
	return fmt.Sprintf("models/%s/radius_%d.json", kind, radius)
}

// ContentDigest is the digest stored as object metadata and used for score
// cache keying.
func ContentDigest(doc []byte) string {
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

const digestMetaKey = "Model-Digest"

type modelStore struct {
	client *Client
	logger logging.Logger
}

// NewModelStore builds a ModelStore on a connected Client.
func NewModelStore(client *Client, log logging.Logger) ModelStore {
	return &modelStore{client: client, logger: log}
}

func (s *modelStore) Save(ctx context.Context, kind string, radius int, doc []byte) (string, error) {
	digest := ContentDigest(doc)
	name := ObjectName(kind, radius)

	_, err := s.client.mc.PutObject(ctx, s.client.bucket, name,
		bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{digestMetaKey: digest},
		})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "storing model document")
	}

	s.logger.Info("model document stored",
		logging.String("object", name),
		logging.String("digest", digest),
		logging.Int("bytes", len(doc)))
	return digest, nil
}

func (s *modelStore) Load(ctx context.Context, kind string, radius int) ([]byte, error) {
	name := ObjectName(kind, radius)

	obj, err := s.client.mc.GetObject(ctx, s.client.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "opening model document")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.Newf(errors.ErrCodeModelNotFound,
				"no stored model for kind %s radius %d", kind, radius)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "reading model document")
	}
	return data, nil
}

func (s *modelStore) Digest(ctx context.Context, kind string, radius int) (string, error) {
	name := ObjectName(kind, radius)

	info, err := s.client.mc.StatObject(ctx, s.client.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", errors.Newf(errors.ErrCodeModelNotFound,
				"no stored model for kind %s radius %d", kind, radius)
		}
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "checking model document")
	}

	if digest, ok := info.UserMetadata[digestMetaKey]; ok && digest != "" {
		return digest, nil
	}
	// Objects written by other tools lack the metadata; fall back to the
	// ETag, which changes with content just the same.
	return info.ETag, nil
}

func (s *modelStore) Delete(ctx context.Context, kind string, radius int) error {
	name := ObjectName(kind, radius)
	if err := s.client.mc.RemoveObject(ctx, s.client.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "deleting model document")
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey"
}
