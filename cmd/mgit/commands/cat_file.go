package commands

import (
	"fmt"

	"mgit/pkg/core"
	"mgit/pkg/exporter"

	"github.com/spf13/cobra"
)

func (c *cli) newCatFileCmd() *cobra.Command {
	var showType, showSize, pretty bool
	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) <object>",
		Short: "Show type, size or content of a stored object",
		Long:  `Inspect a stored object. The object may be given as a full digest or an unambiguous prefix of at least 4 characters.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			hash, err := a.ODB.Resolve(ctx, args[0])
			if err != nil {
				return fmt.Errorf("invalid object '%s': %w", args[0], err)
			}
			data, err := a.Store.Get(ctx, hash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case pretty:
				if typ, _, err := core.SplitEnvelope(data); err == nil && typ == core.TypeBlob {
					return a.Exporter.ExportFile(ctx, hash, out)
				}
				return exporter.PrintObject(data, out)
			default:
				typ, payload, err := core.SplitEnvelope(data)
				if err != nil {
					return fmt.Errorf("object %s: %w", hash, err)
				}
				if showType {
					fmt.Fprintln(out, typ)
				} else {
					fmt.Fprintln(out, len(payload))
				}
				return nil
			}
		},
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the payload size")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object")
	cmd.MarkFlagsMutuallyExclusive("type", "size", "pretty")
	cmd.MarkFlagsOneRequired("type", "size", "pretty")
	return cmd
}
