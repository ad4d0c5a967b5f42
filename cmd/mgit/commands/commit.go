package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mgit/pkg/refs"
	"mgit/pkg/types"

	"github.com/spf13/cobra"
)

func (c *cli) newCommitCmd() *cobra.Command {
	var message string
	var allowEmpty bool
	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Snapshot the working tree and move HEAD",
		Long:  `Store the working tree as a tree, commit it on top of HEAD, record the commit in the metadata index and move HEAD to it.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			start := time.Now()
			out := cmd.OutOrStdout()

			tree, err := a.ODB.WriteTree(ctx, c.settings.Repo.Path)
			if err != nil {
				return fmt.Errorf("failed to build tree: %w", err)
			}

			head, headVersion, err := a.Refs.GetHead(ctx)
			if err != nil && !errors.Is(err, refs.ErrNoHead) {
				return fmt.Errorf("failed to resolve HEAD: %w", err)
			}

			if !head.IsZero() && !allowEmpty {
				prev, err := a.Repository.GetCommit(ctx, head)
				if err != nil {
					return fmt.Errorf("failed to read HEAD commit: %w", err)
				}
				if prev.TreeHash == tree.ID() {
					fmt.Fprintln(out, "nothing to commit, working tree clean")
					return nil
				}
			}

			commit, err := a.ODB.CommitTree(ctx, tree.ID().String(), head.String(), message)
			if err != nil {
				return err
			}
			if err := a.Repository.IndexCommit(ctx, commit); err != nil {
				return err
			}
			if err := a.Refs.UpdateHead(ctx, commit.ID(), headVersion); err != nil {
				return fmt.Errorf("failed to update HEAD: %w", err)
			}

			slog.Debug("commit done",
				slog.String("tree", tree.ID().String()),
				slog.Duration("took", time.Since(start)),
			)
			fmt.Fprintf(out, "[%s%s] %s\n", rootMarker(head), commit.ID().Short(), message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "commit even if the tree did not change")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func rootMarker(parent types.Hash) string {
	if parent.IsZero() {
		return "(root-commit) "
	}
	return ""
}
