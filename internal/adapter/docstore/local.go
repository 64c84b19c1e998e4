package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps uploaded KYC documents on local disk and serves stable
// URLs under baseURL. It stands in for the object-storage collaborator in
// development; the interface it satisfies is the system boundary.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a new LocalStore rooted at dir
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put stores one document and returns a stable URL for it
func (s *LocalStore) Put(ctx context.Context, slot, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s-%s%s", slot, uuid.NewString(), filepath.Ext(filename))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create document file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
