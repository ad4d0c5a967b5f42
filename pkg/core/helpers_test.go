package core

import (
	"encoding/hex"
	"testing"
	"time"

	"mgit/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// mockHash returns a valid 40-char digest derived from input.
func mockHash(input string) types.Hash {
	return DigestOf([]byte(input))
}

var testIdentity = Identity{Name: "Ada", Email: "ada@example.com"}

// fixedTime is 1700000000 at UTC+2.
func fixedTime() time.Time {
	return time.Unix(1700000000, 0).In(time.FixedZone("", 2*3600))
}

func mustNewTree(t *testing.T, entries []TreeEntry, msgAndArgs ...any) *Tree {
	t.Helper()
	tr, err := NewTree(entries)
	require.NoError(t, err, msgAndArgs...)
	return tr
}

func mustNewCommit(t *testing.T, tree, parent types.Hash, msg string, msgAndArgs ...any) *Commit {
	t.Helper()
	c, err := NewCommit(tree, parent, testIdentity, msg, fixedTime())
	require.NoError(t, err, msgAndArgs...)
	return c
}

// rawEntry writes a single tree entry without any validation, for building
// encodings NewTree would refuse.
func rawEntry(mode, path string, hash types.Hash) []byte {
	raw, err := hex.DecodeString(string(hash))
	if err != nil {
		panic(err)
	}
	out := []byte(mode + " " + path + "\x00")
	return append(out, raw...)
}
