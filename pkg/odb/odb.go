// Package odb is the caller-facing object database: typed reads of stored
// objects and the operations that create them.
package odb

import (
	"context"
	"fmt"
	"os"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/storage"
	"mgit/pkg/treebuilder"
	"mgit/pkg/types"
	"mgit/pkg/worktree"
)

type Database struct {
	store     storage.Store
	lister    worktree.Lister
	buildOpts []treebuilder.Option
	identity  core.Identity
	now       func() time.Time
}

type Option func(*Database)

// WithClock replaces time.Now as the source of commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

// WithLister sets how WriteTree enumerates directories. Without it a plain
// worktree.FS rooted at the written directory is used.
func WithLister(l worktree.Lister) Option {
	return func(d *Database) { d.lister = l }
}

func WithBuildOptions(opts ...treebuilder.Option) Option {
	return func(d *Database) { d.buildOpts = append(d.buildOpts, opts...) }
}

// New returns a Database over store. identity signs every commit it creates.
func New(store storage.Store, identity core.Identity, opts ...Option) *Database {
	d := &Database{
		store:    store,
		identity: identity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Database) Store() storage.Store { return d.store }

// Resolve turns a full or abbreviated digest into a stored object's digest.
// Full digests are only format-checked, not looked up.
func (d *Database) Resolve(ctx context.Context, id string) (types.Hash, error) {
	if len(id) == types.HexLen {
		return types.ValidateFormat(id)
	}
	return d.store.ExpandHash(ctx, types.HashPrefix(id))
}

// ReadObject returns the type and payload of any stored object.
func (d *Database) ReadObject(ctx context.Context, id string) (core.ObjectType, []byte, error) {
	data, err := d.read(ctx, id)
	if err != nil {
		return "", nil, err
	}
	t, payload, err := core.SplitEnvelope(data)
	if err != nil {
		return "", nil, fmt.Errorf("object %s: %w", id, err)
	}
	return t, payload, nil
}

func (d *Database) GetBlob(ctx context.Context, id string) (*core.Blob, error) {
	data, err := d.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.DecodeBlob(data)
}

func (d *Database) GetTree(ctx context.Context, id string) (*core.Tree, error) {
	data, err := d.read(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.DecodeTree(data)
}

// GenerateBlob reads the file at path and stores it as a blob.
func (d *Database) GenerateBlob(ctx context.Context, path string) (*core.Blob, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	blob := core.NewBlob(content)
	if err := d.store.Put(ctx, blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// WriteTree snapshots dir and returns its root tree.
func (d *Database) WriteTree(ctx context.Context, dir string) (*core.Tree, error) {
	lister := d.lister
	if lister == nil {
		lister = worktree.NewFS(dir, nil)
	}
	return treebuilder.NewBuilder(d.store, lister, d.buildOpts...).Build(ctx, dir)
}

// CommitTree stores a commit of tree with an optional parent ("" for a root
// commit). The tree must be stored as a tree and the parent as a commit.
func (d *Database) CommitTree(ctx context.Context, tree, parent, message string) (*core.Commit, error) {
	treeHash, err := types.ValidateFormat(tree)
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	if _, err := d.GetTree(ctx, string(treeHash)); err != nil {
		return nil, fmt.Errorf("tree %s: %w", treeHash, err)
	}

	var parentHash types.Hash
	if parent != "" {
		parentHash, err = types.ValidateFormat(parent)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		kind, _, err := d.ReadObject(ctx, string(parentHash))
		if err != nil {
			return nil, fmt.Errorf("parent %s: %w", parentHash, err)
		}
		if kind != core.TypeCommit {
			return nil, fmt.Errorf("parent %s: %w: got %q, want %q", parentHash, core.ErrTypeMismatch, kind, core.TypeCommit)
		}
	}

	commit, err := core.NewCommit(treeHash, parentHash, d.identity, message, d.now())
	if err != nil {
		return nil, err
	}
	if err := d.store.Put(ctx, commit); err != nil {
		return nil, err
	}
	return commit, nil
}

// read validates id before the store is touched.
func (d *Database) read(ctx context.Context, id string) ([]byte, error) {
	hash, err := types.ValidateFormat(id)
	if err != nil {
		return nil, err
	}
	return d.store.Get(ctx, hash)
}
