// Package blob stores captured signature images on S3-compatible storage.
// When no bucket is configured the in-memory store is used, which keeps
// development and tests free of external dependencies.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tverlinden/sla-service/internal/config"
)

// SignatureStore persists a signature image and returns a stable reference
// for embedding in the contract record and the work order.
type SignatureStore interface {
	Put(ctx context.Context, contractID uuid.UUID, image []byte) (ref string, err error)
}

// Signatures are keyed by contract id so a finalize retry overwrites the
// previous upload instead of orphaning it.
func objectKey(contractID uuid.UUID) string {
	return fmt.Sprintf("signatures/%s.png", contractID)
}

type S3SignatureStore struct {
	client *minio.Client
	bucket string
}

func (s *S3SignatureStore) Put(ctx context.Context, contractID uuid.UUID, image []byte) (string, error) {
	key := objectKey(contractID)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(image), int64(len(image)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("upload signature: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// MemorySignatureStore holds signatures in memory, for development and tests.
type MemorySignatureStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemorySignatureStore() *MemorySignatureStore {
	return &MemorySignatureStore{objects: make(map[string][]byte)}
}

func (s *MemorySignatureStore) Put(_ context.Context, contractID uuid.UUID, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := objectKey(contractID)
	stored := make([]byte, len(image))
	copy(stored, image)
	s.objects[key] = stored
	return "mem://" + key, nil
}

// Get returns a stored signature; test helper.
func (s *MemorySignatureStore) Get(contractID uuid.UUID) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	image, ok := s.objects[objectKey(contractID)]
	return image, ok
}

// NewSignatureStore picks the S3 store when a bucket is configured, the
// in-memory store otherwise.
func NewSignatureStore(cfg config.BlobConfig) (SignatureStore, error) {
	if cfg.Bucket == "" {
		return NewMemorySignatureStore(), nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3SignatureStore{client: client, bucket: cfg.Bucket}, nil
}
