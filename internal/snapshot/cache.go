package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotCached = errors.New("no cached snapshot")

// cacheEntry is the on-disk record.
type cacheEntry struct {
	MatchID string       `msgpack:"match_id"`
	Seq     int64        `msgpack:"seq"`
	SavedAt time.Time    `msgpack:"saved_at"`
	State   engine.State `msgpack:"state"`
}

// FileCache keeps the last good snapshot of each match on disk, one file
// per match.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(matchID string) string {
	return filepath.Join(c.dir, safeName(matchID)+".msgpack")
}

func (c *FileCache) Save(snap itypes.Snapshot) error {
	b, err := msgpack.Marshal(cacheEntry{MatchID: snap.MatchID, Seq: snap.Seq, SavedAt: time.Now().UTC(), State: snap.State})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(snap.MatchID))
}

func (c *FileCache) Load(matchID string) (itypes.Snapshot, error) {
	b, err := os.ReadFile(c.path(matchID))
	if errors.Is(err, fs.ErrNotExist) {
		return itypes.Snapshot{}, ErrNotCached
	}
	if err != nil {
		return itypes.Snapshot{}, err
	}

	var e cacheEntry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return itypes.Snapshot{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.MatchID != matchID {
		return itypes.Snapshot{}, ErrNotCached
	}
	return itypes.Snapshot{MatchID: e.MatchID, Seq: e.Seq, State: e.State}, nil
}

// safeName keeps match ids from escaping the cache directory.
func safeName(id string) string {
	out := []byte(id)
	for i, ch := range out {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
