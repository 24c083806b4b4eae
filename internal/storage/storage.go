// Package storage keeps the relay's latest snapshot per match so a restarted
// relay resumes sequence numbering where it left off.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/DoyleJ11/cricket-live/internal/types"
)

var ErrNotFound = errors.New("snapshot not found")

type Repository interface {
	SaveSnapshot(ctx context.Context, snap types.Snapshot) error
	LoadSnapshot(ctx context.Context, matchID string) (types.Snapshot, error)
}

var _ Repository = (*Memory)(nil)

type Memory struct {
	mu    sync.RWMutex
	snaps map[string]types.Snapshot
}

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]types.Snapshot)}
}

// SaveSnapshot ignores writes older than what is already stored.
func (m *Memory) SaveSnapshot(_ context.Context, snap types.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.snaps[snap.MatchID]; ok && cur.Seq > snap.Seq {
		return nil
	}
	snap.State = snap.State.Clone()
	m.snaps[snap.MatchID] = snap
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context, matchID string) (types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[matchID]
	if !ok {
		return types.Snapshot{}, ErrNotFound
	}
	snap.State = snap.State.Clone()
	return snap, nil
}
