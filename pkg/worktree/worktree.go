// Package worktree lists the immediate contents of working-tree directories.
package worktree

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mgit/pkg/ignore"
	"mgit/pkg/types"
)

// File is a regular file found directly inside a directory.
type File struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Lister is the directory listing capability the tree builder depends on.
// Both methods return immediate children only, sorted by name.
type Lister interface {
	ListFiles(dir string) ([]File, error)
	ListDirs(dir string) ([]string, error)
}

// FS lists the real filesystem. The metadata directory is always excluded;
// other paths are filtered through the optional ignore matcher, whose rules
// are relative to root.
type FS struct {
	root    string
	matcher *ignore.Matcher
}

var _ Lister = (*FS)(nil)

func NewFS(root string, matcher *ignore.Matcher) *FS {
	return &FS{root: root, matcher: matcher}
}

func (f *FS) ListFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", dir, err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || f.skip(dir, e.Name()) {
			continue
		}
		if !e.Type().IsRegular() {
			slog.Debug("skipping non-regular file",
				slog.String("path", filepath.Join(dir, e.Name())),
				slog.String("type", e.Type().String()),
			)
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Join(dir, e.Name()), err)
		}
		files = append(files, File{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (f *FS) ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list dirs in %s: %w", dir, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == types.MetaDir || f.skip(dir, e.Name()) {
			continue
		}
		dirs = append(dirs, e.Name())
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (f *FS) skip(dir, name string) bool {
	if f.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(f.root, filepath.Join(dir, name))
	if err != nil {
		return false
	}
	return f.matcher.Matches(rel)
}
