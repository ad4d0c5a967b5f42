package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"mgit/pkg/meta"
	"mgit/pkg/refs"
	"mgit/pkg/types"

	"github.com/spf13/cobra"
)

func (c *cli) newLogCmd() *cobra.Command {
	var (
		limit  int
		author string
	)
	cmd := &cobra.Command{
		Use:   "log [commit] | log --author <name>",
		Short: "Show commit history",
		Long: `Display the first-parent history starting from the given commit, or HEAD.
With --author, list every indexed commit by that author, newest first.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if author != "" {
				if len(args) > 0 {
					return errors.New("--author cannot be combined with a starting commit")
				}
				found, err := a.Repository.FindCommitsByAuthor(ctx, author, limit)
				if err != nil {
					return err
				}
				for i := range found {
					printCommitLog(out, &found[i])
				}
				return nil
			}

			var start types.Hash
			if len(args) > 0 {
				start, err = a.ODB.Resolve(ctx, args[0])
				if err != nil {
					return fmt.Errorf("invalid commit argument '%s': %w", args[0], err)
				}
			} else {
				start, _, err = a.Refs.GetHead(ctx)
				if errors.Is(err, refs.ErrNoHead) {
					fmt.Fprintln(out, "No commits yet.")
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to read HEAD: %w", err)
				}
			}

			history, err := a.Repository.History(ctx, start, limit)
			for i := range history {
				printCommitLog(out, &history[i])
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")
	cmd.Flags().StringVar(&author, "author", "", "show commits by this author name")
	return cmd
}

func printCommitLog(w io.Writer, c *meta.CommitModel) {
	fmt.Fprintf(w, "commit %s\n", c.Hash)
	fmt.Fprintf(w, "Author: %s <%s>\n", c.AuthorName, c.AuthorEmail)
	fmt.Fprintf(w, "Date:   %s\n", c.Time().Format(time.RFC1123Z))
	fmt.Fprintln(w)
	for _, line := range strings.Split(c.Message, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	fmt.Fprintln(w)
}
