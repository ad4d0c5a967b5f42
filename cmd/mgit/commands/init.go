package commands

import (
	"fmt"

	"mgit/pkg/app"

	"github.com/spf13/cobra"
)

func (c *cli) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository",
		Long:  `Create the .mgit metadata directory, the object store and the metadata database, or reinitialize an existing repository.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := app.Init(cmd.Context(), c.settings)
			if err != nil {
				return err
			}
			if existed {
				fmt.Fprintf(cmd.OutOrStdout(), "Reinitialized existing mgit repository in %s\n", c.settings.MetaDir())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty mgit repository in %s\n", c.settings.MetaDir())
			}
			return nil
		},
	}
}
