package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newCommitTreeCmd() *cobra.Command {
	var parent, message string
	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>] -m <message>",
		Short: "Create a commit object for a stored tree",
		Long:  `Store a commit of the given tree and print its digest. HEAD is not moved.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			tree, err := a.ODB.Resolve(ctx, args[0])
			if err != nil {
				return fmt.Errorf("invalid tree '%s': %w", args[0], err)
			}
			parentID := ""
			if parent != "" {
				p, err := a.ODB.Resolve(ctx, parent)
				if err != nil {
					return fmt.Errorf("invalid parent '%s': %w", parent, err)
				}
				parentID = p.String()
			}

			commit, err := a.ODB.CommitTree(ctx, tree.String(), parentID, message)
			if err != nil {
				return err
			}
			if err := a.Repository.IndexCommit(ctx, commit); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), commit.ID())
			return nil
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent commit")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
