package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"mgit/pkg/types"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides whether a working-tree path is left out of snapshots.
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// defaultRules always apply, with or without an ignore file.
var defaultRules = []string{
	// the repository's own metadata must never be snapshotted,
	// it would recurse into itself
	types.MetaDir,
	".git",

	".DS_Store",
	"Thumbs.db",
}

// NewMatcher compiles the default rules plus rootPath/.mgitignore when present.
func NewMatcher(rootPath string) (*Matcher, error) {
	var ignorer *gitignore.GitIgnore
	var err error

	ignoreFilePath := filepath.Join(rootPath, types.IgnoreFile)
	if _, errStat := os.Stat(ignoreFilePath); errStat == nil {
		ignorer, err = gitignore.CompileIgnoreFileAndLines(ignoreFilePath, defaultRules...)
	} else {
		ignorer = gitignore.CompileIgnoreLines(defaultRules...)
	}
	if err != nil {
		return nil, err
	}

	return &Matcher{ignorer: ignorer}, nil
}

// Matches reports whether path (slash-separated, relative to the root)
// should be skipped. A nil Matcher ignores nothing.
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	path = strings.TrimSuffix(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}
	return m.ignorer.MatchesPath(path)
}
