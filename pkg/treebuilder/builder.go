package treebuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mgit/pkg/core"
	"mgit/pkg/index"
	"mgit/pkg/storage"
	"mgit/pkg/types"
	"mgit/pkg/worktree"

	"golang.org/x/sync/errgroup"
)

// Builder snapshots a directory into stored blobs and trees, bottom-up:
// every child is persisted before the tree that references it is hashed.
type Builder struct {
	store       storage.Store
	lister      worktree.Lister
	idx         *index.Index
	root        string
	concurrency int
}

type Option func(*Builder)

// WithIndex enables the stat cache. Paths are recorded relative to root.
func WithIndex(idx *index.Index, root string) Option {
	return func(b *Builder) {
		b.idx = idx
		b.root = root
	}
}

// WithConcurrency hashes up to n children of each directory at once.
// n <= 1 keeps the build sequential.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		b.concurrency = n
	}
}

func NewBuilder(store storage.Store, lister worktree.Lister, opts ...Option) *Builder {
	b := &Builder{store: store, lister: lister, concurrency: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build stores dir recursively and returns its tree. Any failure aborts the
// build; the tree of a directory that failed is never written.
func (b *Builder) Build(ctx context.Context, dir string) (*core.Tree, error) {
	return b.buildDir(ctx, dir)
}

func (b *Builder) buildDir(ctx context.Context, dir string) (*core.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := b.lister.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	dirs, err := b.lister.ListDirs(dir)
	if err != nil {
		return nil, err
	}

	// fixed slots so concurrent children never share state
	entries := make([]core.TreeEntry, len(files)+len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.concurrency, 1))

	for i, f := range files {
		g.Go(func() error {
			hash, err := b.blobFor(gctx, filepath.Join(dir, f.Name), f)
			if err != nil {
				return err
			}
			entries[i] = core.NewFileEntry(f.Name, hash)
			return nil
		})
	}
	for j, name := range dirs {
		g.Go(func() error {
			sub, err := b.buildDir(gctx, filepath.Join(dir, name))
			if err != nil {
				return err
			}
			entries[len(files)+j] = core.NewDirectoryEntry(name, sub.ID())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree, err := core.NewTree(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree object for %s: %w", dir, err)
	}
	if err := b.put(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to store tree for %s: %w", dir, err)
	}

	slog.Debug("tree stored",
		slog.String("dir", dir),
		slog.String("hash", tree.ID().String()),
		slog.Int("entries", len(entries)),
	)
	return tree, nil
}

// blobFor returns the digest of the file at path, storing it as a blob.
// With a stat cache, unchanged files whose blob is still present are not read.
func (b *Builder) blobFor(ctx context.Context, path string, f worktree.File) (types.Hash, error) {
	rel := b.relPath(path)
	if b.idx != nil {
		if hash, ok := b.idx.Lookup(rel, f.Size, f.ModTime); ok {
			found, err := b.store.Has(ctx, hash)
			if err != nil {
				return "", err
			}
			if found {
				return hash, nil
			}
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	blob := core.NewBlob(content)
	if err := b.put(ctx, blob); err != nil {
		return "", fmt.Errorf("failed to store blob for %s: %w", path, err)
	}

	if b.idx != nil {
		b.idx.Add(rel, blob.ID(), f.Size, f.ModTime)
	}
	return blob.ID(), nil
}

// put stores obj. Under a strict write policy a snapshot still succeeds when
// it meets content that is already stored.
func (b *Builder) put(ctx context.Context, obj core.Object) error {
	err := b.store.Put(ctx, obj)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (b *Builder) relPath(path string) string {
	if b.root == "" {
		return path
	}
	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		return path
	}
	return rel
}
