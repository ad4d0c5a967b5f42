package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mgit/pkg/app"
	"mgit/pkg/storage"
	"mgit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helloBlobHash = "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"
	aTxtTreeHash  = "65829399355e5929e44741d637d52c614ac21bc3"
)

// testRepo is a working tree plus a config file private to one test.
type testRepo struct {
	t    *testing.T
	root string
	cfg  string
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	root := t.TempDir()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
user:
  name: Ada
  email: ada@example.com
log:
  level: warn
`), 0644))
	return &testRepo{t: t, root: root, cfg: cfg}
}

// mgit runs one command line and returns its stdout.
func (r *testRepo) mgit(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", r.cfg, "--repo", r.root}, args...)
	err := run(full, &stdout, &stderr)
	return stdout.String(), err
}

func (r *testRepo) mustMgit(args ...string) string {
	r.t.Helper()
	out, err := r.mgit(args...)
	require.NoError(r.t, err, "mgit %s", strings.Join(args, " "))
	return out
}

func (r *testRepo) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.root, filepath.FromSlash(rel))
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0644))
}

func TestIntegration_ObjectPlumbing(t *testing.T) {
	r := newTestRepo(t)

	out := r.mustMgit("init")
	assert.Contains(t, out, "Initialized empty mgit repository")
	out = r.mustMgit("init")
	assert.Contains(t, out, "Reinitialized existing mgit repository")

	r.write("a.txt", "hello")
	a := filepath.Join(r.root, "a.txt")

	// hashing without -w stores nothing
	assert.Equal(t, helloBlobHash+"\n", r.mustMgit("hash-object", a))
	_, err := r.mgit("cat-file", "-t", helloBlobHash)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, helloBlobHash+"\n", r.mustMgit("hash-object", "-w", a))
	assert.Equal(t, "blob\n", r.mustMgit("cat-file", "-t", helloBlobHash))
	assert.Equal(t, "5\n", r.mustMgit("cat-file", "-s", "b6fc4c"))
	assert.Equal(t, "hello", r.mustMgit("cat-file", "-p", strings.ToUpper(helloBlobHash)))

	assert.Equal(t, aTxtTreeHash+"\n", r.mustMgit("write-tree"))
	assert.Equal(t, "tree\n", r.mustMgit("cat-file", "-t", aTxtTreeHash))
	assert.Equal(t, "100644 blob "+helloBlobHash+" a.txt\n", r.mustMgit("cat-file", "-p", aTxtTreeHash))

	root := strings.TrimSpace(r.mustMgit("commit-tree", aTxtTreeHash, "-m", "initial"))
	assert.True(t, types.Hash(root).IsValid())
	body := r.mustMgit("cat-file", "-p", root)
	assert.True(t, strings.HasPrefix(body, "tree "+aTxtTreeHash+"\nauthor Ada <ada@example.com> "))
	assert.NotContains(t, body, "parent ")

	child := strings.TrimSpace(r.mustMgit("commit-tree", aTxtTreeHash[:8], "-p", root, "-m", "child"))
	body = r.mustMgit("cat-file", "-p", child)
	assert.Contains(t, body, "\nparent "+root+"\n")

	// commit-tree indexes but does not move HEAD
	assert.Equal(t, "No commits yet.\n", r.mustMgit("log"))
	assert.Contains(t, r.mustMgit("log", child), "    initial\n")
}

func TestIntegration_CommitLogCheckout(t *testing.T) {
	r := newTestRepo(t)
	r.mustMgit("init")

	r.write("a.txt", "hello")
	r.write("x_dir/a.txt", "hello")
	r.write(".mgitignore", "*.log\n")
	r.write("debug.log", "noise")

	out := r.mustMgit("commit", "-m", "first")
	assert.Regexp(t, `^\[\(root-commit\) [0-9a-f]{7}\] first\n$`, out)

	assert.Equal(t, "nothing to commit, working tree clean\n", r.mustMgit("commit", "-m", "again"))

	r.write("a.txt", "hello, world")
	out = r.mustMgit("commit", "-m", "second")
	assert.Regexp(t, `^\[[0-9a-f]{7}\] second\n$`, out)

	log := r.mustMgit("log")
	assert.Equal(t, 2, strings.Count(log, "commit "))
	assert.Less(t, strings.Index(log, "    second"), strings.Index(log, "    first"))
	assert.Contains(t, log, "Author: Ada <ada@example.com>")

	oneLine := r.mustMgit("log", "-n", "1")
	assert.Equal(t, 1, strings.Count(oneLine, "commit "))
	head := strings.TrimPrefix(strings.SplitN(oneLine, "\n", 2)[0], "commit ")

	byAda := r.mustMgit("log", "--author", "Ada")
	assert.Equal(t, 2, strings.Count(byAda, "commit "))
	assert.Contains(t, byAda, "    first\n")
	assert.Contains(t, byAda, "    second\n")
	assert.Empty(t, r.mustMgit("log", "--author", "Grace"))
	assert.Equal(t, 1, strings.Count(r.mustMgit("log", "--author", "Ada", "-n", "1"), "commit "))
	_, err := r.mgit("log", "--author", "Ada", head)
	assert.ErrorContains(t, err, "--author")

	dst := filepath.Join(t.TempDir(), "restored")
	out = r.mustMgit("checkout", head[:10], dst)
	assert.Contains(t, out, "Restored 3 files")

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))
	got, err = os.ReadFile(filepath.Join(dst, "x_dir", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	_, err = os.Stat(filepath.Join(dst, "debug.log"))
	assert.ErrorIs(t, err, os.ErrNotExist, "ignored files are not snapshotted")

	// a blob cannot be checked out
	_, err = r.mgit("checkout", helloBlobHash, dst)
	assert.ErrorContains(t, err, "not a tree or commit")
}

func TestIntegration_Errors(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.mgit("write-tree")
	assert.ErrorIs(t, err, app.ErrNotInitialized)
	assert.ErrorContains(t, err, "mgit init")

	r.mustMgit("init")

	_, err = r.mgit("cat-file", "-t", "../../../../etc/passwd")
	assert.ErrorIs(t, err, types.ErrInvalidFormat)

	_, err = r.mgit("cat-file", helloBlobHash)
	assert.Error(t, err, "one of -t, -s, -p is required")

	_, err = r.mgit("commit-tree", aTxtTreeHash, "-m", "no tree yet")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = r.mgit("commit")
	assert.ErrorContains(t, err, "message")
}
