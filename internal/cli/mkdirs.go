package cli

import (
	"github.com/spf13/cobra"
)

// MkdirsOptions holds flags for the mkdirs command.
type MkdirsOptions struct {
	*RootOptions
	ParentsOnly bool
}

// NewMkdirsCommand creates the mkdirs command.
func NewMkdirsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MkdirsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mkdirs <path>",
		Short: "Create a path and any missing ancestors",
		Long: `Create every missing node along a path, parent before child. Nodes that
already exist, or that appear concurrently while the command runs, are left
as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := opts.Connect()
			if err != nil {
				return err
			}
			defer release()
			return client.Mkdirs(cmd.Context(), args[0], !opts.ParentsOnly)
		},
	}

	cmd.Flags().BoolVar(&opts.ParentsOnly, "parents-only", false, "create only the ancestors, not the final node")

	return cmd
}
