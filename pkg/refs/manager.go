package refs

import (
	"context"
	"errors"
	"fmt"

	"mgit/pkg/meta"
	"mgit/pkg/types"
)

const HeadRef = "HEAD"

var (
	ErrNoHead    = errors.New("HEAD not found (clean repo)")
	ErrStaleHead = errors.New("HEAD moved since it was read")
)

// Manager reads and moves HEAD. Updates are compare-and-swap on the ref's
// version, so two writers racing from the same HEAD cannot both win.
type Manager struct {
	repo *meta.Repository
}

func NewManager(repo *meta.Repository) *Manager {
	return &Manager{repo: repo}
}

// GetHead returns the commit HEAD points at and the version to pass to
// UpdateHead. A fresh repository yields ErrNoHead.
func (m *Manager) GetHead(ctx context.Context) (types.Hash, int64, error) {
	ref, err := m.repo.GetRef(ctx, HeadRef)
	if errors.Is(err, meta.ErrRefNotFound) {
		return "", 0, ErrNoHead
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return ref.CommitHash, ref.Version, nil
}

// UpdateHead moves HEAD to commitHash if it is still at oldVersion
// (0 when there is no HEAD yet).
func (m *Manager) UpdateHead(ctx context.Context, commitHash types.Hash, oldVersion int64) error {
	hash, err := types.ValidateFormat(string(commitHash))
	if err != nil {
		return err
	}
	err = m.repo.UpdateRef(ctx, HeadRef, hash, oldVersion)
	if errors.Is(err, meta.ErrConcurrentUpdate) {
		return fmt.Errorf("%w: %w", ErrStaleHead, err)
	}
	return err
}
