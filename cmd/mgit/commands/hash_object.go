package commands

import (
	"fmt"
	"os"

	"mgit/pkg/core"

	"github.com/spf13/cobra"
)

func (c *cli) newHashObjectCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "hash-object [-w] <file>",
		Short: "Compute the blob digest of a file",
		Long:  `Print the digest the file would have as a blob. With -w the blob is also written to the object store.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var blob *core.Blob
			if write {
				a, err := c.open(cmd)
				if err != nil {
					return err
				}
				blob, err = a.ODB.GenerateBlob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			} else {
				content, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				blob = core.NewBlob(content)
			}
			fmt.Fprintln(cmd.OutOrStdout(), blob.ID())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blob into the object store")
	return cmd
}
