// Package index is the stat cache consulted by the tree builder: it remembers
// the blob digest of every file it has seen together with the file's size and
// modification time, so unchanged files are not read and hashed again.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mgit/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

const formatVersion = 1

// Entry is one cached file.
type Entry struct {
	Path    string     `cbor:"1,keyasint"`
	Hash    types.Hash `cbor:"2,keyasint"`
	Size    int64      `cbor:"3,keyasint"`
	ModTime int64      `cbor:"4,keyasint"` // unix nanoseconds
}

type fileFormat struct {
	Version int              `cbor:"1,keyasint"`
	Entries map[string]Entry `cbor:"2,keyasint"`
}

var encMode, _ = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	IndefLength: cbor.IndefLengthForbidden,
}.EncMode()

var decMode, _ = cbor.DecOptions{
	MaxMapPairs:     1 << 24,
	MaxNestedLevels: 16,
	IndefLength:     cbor.IndefLengthForbidden,
	DupMapKey:       cbor.DupMapKeyEnforcedAPF,
}.DecMode()

// Index is safe for concurrent use.
type Index struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
	// savedAt is the index file's own mtime in unix nanoseconds, 0 before
	// the first save.
	savedAt int64
}

// Open loads the index at path, or returns an empty one if the file does not
// exist yet.
func Open(path string) (*Index, error) {
	idx := &Index{
		path:    path,
		entries: make(map[string]Entry),
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}
	idx.savedAt = info.ModTime().UnixNano()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var ff fileFormat
	if err := decMode.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("corrupted index file: %w", err)
	}
	if ff.Version != formatVersion {
		return nil, fmt.Errorf("unsupported index version %d", ff.Version)
	}
	if ff.Entries != nil {
		idx.entries = ff.Entries
	}
	return idx, nil
}

// Lookup returns the cached digest when path was recorded with the same size
// and modification time. Entries not older than the index file itself are
// racily clean: a same-size edit within the mtime granularity would go
// unnoticed, so they always miss.
func (i *Index) Lookup(path string, size int64, modTime time.Time) (types.Hash, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.entries[CleanPath(path)]
	if !ok || e.Size != size || e.ModTime != modTime.UnixNano() {
		return "", false
	}
	if i.savedAt != 0 && e.ModTime >= i.savedAt {
		return "", false
	}
	return e.Hash, true
}

func (i *Index) Add(path string, hash types.Hash, size int64, modTime time.Time) {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries[key] = Entry{
		Path:    key,
		Hash:    hash,
		Size:    size,
		ModTime: modTime.UnixNano(),
	}
	i.dirty = true
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Save writes the index atomically. It is a no-op when nothing changed.
func (i *Index) Save() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.dirty {
		return nil
	}

	data, err := encMode.Marshal(fileFormat{Version: formatVersion, Entries: i.entries})
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	dir := filepath.Dir(i.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "index-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		return err
	}
	i.dirty = false
	if info, err := os.Stat(i.path); err == nil {
		i.savedAt = info.ModTime().UnixNano()
	}
	return nil
}

func CleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
