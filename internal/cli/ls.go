package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <path>",
		Short: "List a node's children in sorted order",
		Long: `List the direct children of a node, one per line, in ascending
lexicographic order. Fixed-width sequence suffixes make sequential siblings
come out in creation order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := rootOpts.Connect()
			if err != nil {
				return err
			}
			defer release()

			children, err := client.SortedChildren(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, child := range children {
				fmt.Fprintln(out, child)
			}
			return nil
		},
	}
	return cmd
}
