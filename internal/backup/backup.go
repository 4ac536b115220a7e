package backup

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"rollcall/internal/store"
)

// Manager moves the whole store file in and out as a base64 blob. This is a
// cold file-level clone: no schema logic runs and nothing guards against
// importing a store from an incompatible schema version.
type Manager struct {
	store *store.Store
}

// New creates a manager over the given store.
func New(st *store.Store) *Manager {
	return &Manager{store: st}
}

// Export checkpoints the write-ahead log so the main file is a complete
// snapshot, then returns the file base64-encoded.
func (m *Manager) Export(ctx context.Context) (string, error) {
	if err := m.store.Checkpoint(ctx); err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}
	raw, err := os.ReadFile(m.store.Path())
	if err != nil {
		return "", fmt.Errorf("read db file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Import decodes the blob and overwrites the store file with it, reopening
// the connection pool on the new contents.
func (m *Manager) Import(ctx context.Context, data string) error {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode backup: %w", err)
	}
	return m.store.Replace(raw)
}
