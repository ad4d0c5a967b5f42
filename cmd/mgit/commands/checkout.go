package commands

import (
	"fmt"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/exporter"
	"mgit/pkg/types"

	"github.com/spf13/cobra"
)

func (c *cli) newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <tree|commit> <dir>",
		Short: "Restore a stored tree into a directory",
		Long:  `Write the files of a tree, or of the tree a commit points at, into dir. Existing files are overwritten; other files are left in place.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			start := time.Now()

			hash, err := a.ODB.Resolve(ctx, args[0])
			if err != nil {
				return fmt.Errorf("invalid object '%s': %w", args[0], err)
			}
			typ, _, err := a.ODB.ReadObject(ctx, hash.String())
			if err != nil {
				return err
			}

			treeHash := hash
			switch typ {
			case core.TypeTree:
			case core.TypeCommit:
				// commits are not decoded; the metadata index knows their tree
				commit, err := a.Repository.GetCommit(ctx, hash)
				if err != nil {
					return err
				}
				treeHash = commit.TreeHash
			default:
				return fmt.Errorf("%s is a %s, not a tree or commit", hash.Short(), typ)
			}

			var files int
			var total int64
			err = a.Exporter.RestoreTree(ctx, treeHash, args[1], func(path string, _ types.Hash, size int64) {
				files++
				total += size
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d files (%s) from %s in %s\n",
				files, exporter.FormatSize(total), treeHash.Short(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
