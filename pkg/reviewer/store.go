package reviewer

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// EvidenceStore persists screenshot artifacts for checklist transitions.
// Each run owns one uniquely-named bucket; references returned by SaveImage
// are bucket-relative paths suitable for storing on checklist entries.
type EvidenceStore interface {
	// CreateBucket allocates a fresh run-scoped bucket and returns its id.
	CreateBucket() (string, error)

	// SaveImage writes one PNG into the bucket and returns its reference.
	SaveImage(bucket string, png []byte) (string, error)
}

// FSStore is a filesystem-backed evidence store rooted at a directory.
type FSStore struct {
	root string
}

// NewFSStore creates a store writing under the given root directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// CreateBucket creates a UUID-named directory under the root.
func (s *FSStore) CreateBucket() (string, error) {
	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Join(s.root, id), 0o750); err != nil {
		return "", fmt.Errorf("failed to create evidence bucket: %w", err)
	}
	return id, nil
}

// SaveImage writes the PNG under a fresh UUID name and returns the
// bucket-relative reference.
func (s *FSStore) SaveImage(bucket string, png []byte) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("evidence bucket not allocated")
	}
	name := uuid.New().String() + ".png"
	if err := os.WriteFile(filepath.Join(s.root, bucket, name), png, 0o600); err != nil {
		return "", fmt.Errorf("failed to save evidence image: %w", err)
	}
	return path.Join(bucket, name), nil
}
