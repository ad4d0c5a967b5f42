package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mgit/pkg/core"
	"mgit/pkg/types"
)

// ErrUnsafePath reports a tree entry that would land outside its directory.
var ErrUnsafePath = errors.New("tree entry escapes target directory")

// ObjectReader is the read side of the object database.
type ObjectReader interface {
	GetBlob(ctx context.Context, id string) (*core.Blob, error)
	GetTree(ctx context.Context, id string) (*core.Tree, error)
}

type Exporter struct {
	objects ObjectReader
}

func NewExporter(objects ObjectReader) *Exporter {
	return &Exporter{objects: objects}
}

// ExportFile writes the content of the blob hash to writer.
func (e *Exporter) ExportFile(ctx context.Context, hash types.Hash, writer io.Writer) error {
	blob, err := e.objects.GetBlob(ctx, hash.String())
	if err != nil {
		return fmt.Errorf("failed to get blob %s: %w", hash, err)
	}
	if _, err := writer.Write(blob.Content()); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", hash, err)
	}
	return nil
}

// RestoreCallback is invoked after each file is written.
type RestoreCallback func(path string, hash types.Hash, size int64)

// RestoreTree recreates the tree treeHash under targetDir. Existing files
// are overwritten; files not in the tree are left alone.
func (e *Exporter) RestoreTree(ctx context.Context, treeHash types.Hash, targetDir string, onRestore RestoreCallback) error {
	tree, err := e.objects.GetTree(ctx, treeHash.String())
	if err != nil {
		return fmt.Errorf("failed to get tree %s: %w", treeHash, err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", targetDir, err)
	}

	for _, entry := range tree.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fullPath, err := entryPath(targetDir, entry.Path)
		if err != nil {
			return err
		}

		switch entry.Kind {
		case core.KindTree:
			if err := e.RestoreTree(ctx, entry.Hash, fullPath, onRestore); err != nil {
				return err
			}
		case core.KindBlob:
			size, err := e.restoreFile(ctx, entry, fullPath)
			if err != nil {
				return err
			}
			if onRestore != nil {
				onRestore(fullPath, entry.Hash, size)
			}
		default:
			slog.Warn("skipping entry of unknown kind",
				slog.String("path", fullPath),
				slog.String("mode", entry.Mode),
			)
		}
	}
	return nil
}

// entryPath joins name under dir and requires the result to be a direct child.
func entryPath(dir, name string) (string, error) {
	full := filepath.Join(dir, name)
	if filepath.Dir(full) != filepath.Clean(dir) || filepath.Base(full) != name {
		return "", fmt.Errorf("%w: %q under %s", ErrUnsafePath, name, dir)
	}
	return full, nil
}

func (e *Exporter) restoreFile(ctx context.Context, entry core.TreeEntry, path string) (int64, error) {
	perm := os.FileMode(0644)
	if entry.Mode == "100755" {
		perm = 0755
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	blob, err := e.objects.GetBlob(ctx, entry.Hash.String())
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("failed to get blob %s: %w", entry.Hash, err)
	}
	if _, err := file.Write(blob.Content()); err != nil {
		file.Close()
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return blob.Size(), file.Close()
}
