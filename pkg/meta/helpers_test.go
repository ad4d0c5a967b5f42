package meta

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func mockHash(input string) types.Hash {
	sum := sha1.Sum([]byte(input))
	return types.Hash(hex.EncodeToString(sum[:]))
}

func mustNewCommit(t *testing.T, treeHash, parent types.Hash, author, msg string, unix int64, msgAndArgs ...any) *core.Commit {
	t.Helper()
	who := core.Identity{Name: author, Email: author + "@example.com"}
	c, err := core.NewCommit(treeHash, parent, who, msg, time.Unix(unix, 0).UTC())
	require.NoError(t, err, msgAndArgs...)
	return c
}

func mustIndexCommit(t *testing.T, repo *Repository, c *core.Commit, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.IndexCommit(context.Background(), c), msgAndArgs...)
}

func mustUpdateRef(t *testing.T, repo *Repository, name string, newHash types.Hash, oldVersion int64, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.UpdateRef(context.Background(), name, newHash, oldVersion), msgAndArgs...)
}
