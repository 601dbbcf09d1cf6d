package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stemsi/exstem-portal/internal/model"
)

// MemorySnapshotStore keeps the serialized snapshot in process memory. It
// does not survive a restart and is meant for tests and throwaway runs.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemorySnapshotStore creates an empty MemorySnapshotStore.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// ReadSnapshot returns the stored snapshot or nil.
func (r *MemorySnapshotStore) ReadSnapshot(ctx context.Context) (*model.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil, nil
	}
	return decodeSnapshot(r.data)
}

// WriteSnapshot replaces the stored snapshot.
func (r *MemorySnapshotStore) WriteSnapshot(ctx context.Context, snap *model.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

// ClearSnapshot drops the stored snapshot.
func (r *MemorySnapshotStore) ClearSnapshot(ctx context.Context) error {
	r.mu.Lock()
	r.data = nil
	r.mu.Unlock()
	return nil
}

func decodeSnapshot(data []byte) (*model.SessionSnapshot, error) {
	var snap model.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
