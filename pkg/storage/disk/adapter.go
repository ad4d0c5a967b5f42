package disk

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mgit/pkg/core"
	"mgit/pkg/storage"
	"mgit/pkg/types"
)

// Adapter implements storage.Store on a local directory:
// root/<first 2 hex>/<remaining 38 hex>, each file a zlib stream.
type Adapter struct {
	rootPath string // e.g. /home/user/project/.mgit/objects
	policy   storage.WritePolicy

	// locks serialize writes to the same digest; striped by first byte.
	locks [256]sync.Mutex
}

type Option func(*Adapter)

// WithWritePolicy selects what Put does for an already stored digest.
func WithWritePolicy(p storage.WritePolicy) Option {
	return func(a *Adapter) { a.policy = p }
}

// NewAdapter creates the root directory if needed.
func NewAdapter(root string, opts ...Option) (*Adapter, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	a := &Adapter{rootPath: root, policy: storage.PolicySkip}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (s *Adapter) Root() string                { return s.rootPath }
func (s *Adapter) Policy() storage.WritePolicy { return s.policy }

// Locate returns the physical path of a digest.
// Example: hash "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) Locate(hash types.Hash) string {
	dir, file := storage.ShardKey(hash)
	return filepath.Join(s.rootPath, dir, file)
}

func (s *Adapter) lockFor(hash types.Hash) *sync.Mutex {
	b, err := hex.DecodeString(string(hash[:2]))
	if err != nil || len(b) == 0 {
		return &s.locks[0]
	}
	return &s.locks[b[0]]
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hash := obj.ID()
	if !hash.IsValid() {
		return fmt.Errorf("%w: %w: %q", storage.ErrWritingFile, types.ErrInvalidFormat, hash)
	}

	mu := s.lockFor(hash)
	mu.Lock()
	defer mu.Unlock()

	targetPath := s.Locate(hash)

	// 1. existing digest: policy decides
	if _, err := os.Stat(targetPath); err == nil {
		if s.policy == storage.PolicyStrict {
			return storage.AlreadyExists(hash)
		}
		slog.Debug("object already stored", slog.String("hash", hash.String()))
		return nil
	}

	// 2. fan-out directory (idempotent)
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", storage.ErrWritingFile, dir, err)
	}

	compressed, err := storage.Compress(obj.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}

	// 3. atomic write: temp file then rename, so a reader sees either
	// nothing or the complete object.
	tempFile, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrWritingFile, err)
	}
	tmpName := tempFile.Name()
	defer os.Remove(tmpName)

	if _, err := tempFile.Write(compressed); err != nil {
		tempFile.Close()
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}
	if err := os.Chmod(tmpName, 0o444); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}

	// 4. move into place
	if err := os.Rename(tmpName, targetPath); err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrWritingFile, hash, err)
	}
	return nil
}

// Get validates the id before touching the filesystem, then inflates the
// stored stream.
func (s *Adapter) Get(ctx context.Context, hash types.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash, err := types.ValidateFormat(string(hash))
	if err != nil {
		return nil, err
	}

	compressed, err := os.ReadFile(s.Locate(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", hash, err)
	}

	data, err := storage.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", hash, err)
	}
	return data, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	if !hash.IsValid() {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidFormat, hash)
	}
	_, err := os.Stat(s.Locate(types.Hash(strings.ToLower(string(hash)))))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ExpandHash scans the prefix's fan-out directory for matching files.
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	prefix, err := types.ValidatePrefix(string(short))
	if err != nil {
		return "", err
	}
	p := string(prefix)

	entries, err := os.ReadDir(filepath.Join(s.rootPath, p[:2]))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if err != nil {
		return "", err
	}

	var match types.Hash
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, p[2:]) {
			continue
		}
		candidate := types.Hash(p[:2] + name)
		if !candidate.IsValid() {
			continue // temp files
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", storage.ErrAmbiguousHash, p)
		}
		match = candidate
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	return match, nil
}
