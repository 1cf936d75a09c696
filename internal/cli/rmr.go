package cli

import (
	"github.com/spf13/cobra"
)

// RmrOptions holds flags for the rmr command.
type RmrOptions struct {
	*RootOptions
	ChildrenOnly bool
}

// NewRmrCommand creates the rmr command.
func NewRmrCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RmrOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rmr <path>",
		Short: "Recursively delete a node and its descendants",
		Long: `Delete a node's entire subtree, deepest nodes first. A path that no
longer exists counts as already deleted. Children created concurrently while
the command runs are deleted as well, retrying until the subtree is gone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := opts.Connect()
			if err != nil {
				return err
			}
			defer release()
			return client.DeleteChildren(cmd.Context(), args[0], !opts.ChildrenOnly)
		},
	}

	cmd.Flags().BoolVar(&opts.ChildrenOnly, "children-only", false, "delete only the descendants, keeping the node itself")

	return cmd
}
