package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) newWriteTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree [dir]",
		Short: "Store a directory as a tree",
		Long:  `Recursively store every file below dir (default: the working tree root) as blobs and trees, and print the root tree digest.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			dir := c.settings.Repo.Path
			if len(args) > 0 {
				dir = args[0]
			}

			start := time.Now()
			tree, err := a.ODB.WriteTree(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("failed to build tree: %w", err)
			}
			slog.Debug("write-tree done",
				slog.String("dir", dir),
				slog.Duration("took", time.Since(start)),
			)
			fmt.Fprintln(cmd.OutOrStdout(), tree.ID())
			return nil
		},
	}
}
