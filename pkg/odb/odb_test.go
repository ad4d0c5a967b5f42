package odb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/storage"
	"mgit/pkg/storage/disk"
	"mgit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helloBlobHash = "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"
	aTxtTreeHash  = "65829399355e5929e44741d637d52c614ac21bc3"
	rootCommit    = "bfdc6e51d5e44898c34986a19674ad973ee9d4b4"
)

var testIdentity = core.Identity{Name: "Ada", Email: "ada@example.com"}

func fixedClock() time.Time {
	return time.Unix(1700000000, 0).In(time.FixedZone("", 2*3600))
}

func setup(t *testing.T, opts ...disk.Option) (*Database, *disk.Adapter) {
	t.Helper()
	store, err := disk.NewAdapter(filepath.Join(t.TempDir(), "objects"), opts...)
	require.NoError(t, err)
	return New(store, testIdentity, WithClock(fixedClock)), store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestGenerateBlob_GetBlob(t *testing.T) {
	ctx := context.Background()
	db, store := setup(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "hello")

	blob, err := db.GenerateBlob(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, types.Hash(helloBlobHash), blob.ID())

	_, err = os.Stat(store.Locate(blob.ID()))
	require.NoError(t, err)

	got, err := db.GetBlob(ctx, helloBlobHash)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content())

	// upper-case ids address the same object
	got, err = db.GetBlob(ctx, strings.ToUpper(helloBlobHash))
	require.NoError(t, err)
	assert.Equal(t, blob.ID(), got.ID())
}

func TestGenerateBlob_MissingFile(t *testing.T) {
	db, _ := setup(t)
	_, err := db.GenerateBlob(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateBlob_WritePolicy(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "hello")

	skip, _ := setup(t)
	_, err := skip.GenerateBlob(ctx, path)
	require.NoError(t, err)
	_, err = skip.GenerateBlob(ctx, path)
	assert.NoError(t, err)

	strict, _ := setup(t, disk.WithWritePolicy(storage.PolicyStrict))
	_, err = strict.GenerateBlob(ctx, path)
	require.NoError(t, err)
	_, err = strict.GenerateBlob(ctx, path)
	assert.ErrorIs(t, err, storage.ErrWritingFile)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestGet_Errors(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	_, err := db.GetBlob(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	_, err = db.GetTree(ctx, strings.Repeat("z", 40))
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	_, err = db.GetBlob(ctx, helloBlobHash)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGet_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")

	tree, err := db.WriteTree(ctx, root)
	require.NoError(t, err)

	_, err = db.GetBlob(ctx, tree.ID().String())
	assert.ErrorIs(t, err, core.ErrBlobParse)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)

	_, err = db.GetTree(ctx, helloBlobHash)
	assert.ErrorIs(t, err, core.ErrTreeParse)
}

func TestWriteTree_GetTree(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	writeFile(t, filepath.Join(root, ".mgit", "HEAD"), "ignored")

	tree, err := db.WriteTree(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, types.Hash(aTxtTreeHash), tree.ID())

	got, err := db.GetTree(ctx, aTxtTreeHash)
	require.NoError(t, err)
	entries := got.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, core.ModeFile, entries[0].Mode)
	assert.Equal(t, types.Hash(helloBlobHash), entries[0].Hash)
}

func TestCommitTree(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	_, err := db.WriteTree(ctx, root)
	require.NoError(t, err)

	first, err := db.CommitTree(ctx, aTxtTreeHash, "", "initial")
	require.NoError(t, err)
	assert.Equal(t, types.Hash(rootCommit), first.ID())
	assert.NotContains(t, string(first.Bytes()), "\nparent ")

	typ, payload, err := db.ReadObject(ctx, rootCommit)
	require.NoError(t, err)
	assert.Equal(t, core.TypeCommit, typ)
	assert.True(t, strings.HasPrefix(string(payload), "tree "+aTxtTreeHash+"\n"))

	second, err := db.CommitTree(ctx, aTxtTreeHash, rootCommit, "second")
	require.NoError(t, err)
	body := string(second.Bytes())
	assert.Equal(t, 1, strings.Count(body, "parent "))
	assert.Less(t, strings.Index(body, "parent "+rootCommit), strings.Index(body, "author "))
}

func TestCommitTree_Rejects(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)

	_, err := db.CommitTree(ctx, "short", "", "m")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	_, err = db.CommitTree(ctx, aTxtTreeHash, "", "m")
	assert.ErrorIs(t, err, storage.ErrNotFound, "tree must be stored")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")
	_, err = db.WriteTree(ctx, root)
	require.NoError(t, err)

	_, err = db.CommitTree(ctx, aTxtTreeHash, "not-a-digest", "m")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	_, err = db.CommitTree(ctx, aTxtTreeHash, strings.Repeat("f", 40), "m")
	assert.ErrorIs(t, err, storage.ErrNotFound, "parent must exist")

	_, err = db.CommitTree(ctx, aTxtTreeHash, aTxtTreeHash, "m")
	assert.ErrorIs(t, err, core.ErrTypeMismatch, "a tree is not a parent")

	_, err = db.CommitTree(ctx, aTxtTreeHash, "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0", "m")
	assert.ErrorIs(t, err, core.ErrTypeMismatch, "a blob is not a parent")
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	db, _ := setup(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "hello")
	_, err := db.GenerateBlob(ctx, path)
	require.NoError(t, err)

	got, err := db.Resolve(ctx, "b6fc4c")
	require.NoError(t, err)
	assert.Equal(t, types.Hash(helloBlobHash), got)

	got, err = db.Resolve(ctx, strings.ToUpper(helloBlobHash))
	require.NoError(t, err)
	assert.Equal(t, types.Hash(helloBlobHash), got)

	_, err = db.Resolve(ctx, "abc")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)
}
