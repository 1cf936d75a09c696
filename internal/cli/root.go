// Package cli wires the zktree tree operations to a command-line interface
// for use against a live ensemble.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zktools/zktree"
	"github.com/zktools/zktree/config"
	"github.com/zktools/zktree/internal/util"
	"github.com/zktools/zktree/store/zkstore"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Servers          []string
	SessionTimeout   time.Duration
	ConfigPath       string
	Verbose          int
	UseContainers    bool
	MaxDeleteRetries int

	// connect is replaced by tests to run commands against a fake store.
	connect func() (*zktree.Client, func(), error)
}

// Connect returns a ready tree client and a release func for its
// connection.
func (o *RootOptions) Connect() (*zktree.Client, func(), error) {
	if o.connect != nil {
		return o.connect()
	}
	store, err := zkstore.Connect(o.Servers, o.SessionTimeout)
	if err != nil {
		return nil, nil, err
	}
	var opts []zktree.Option
	if o.UseContainers {
		opts = append(opts, zktree.WithContainers())
	}
	if o.MaxDeleteRetries > 0 {
		opts = append(opts, zktree.WithMaxDeleteRetries(o.MaxDeleteRetries))
	}
	return zktree.New(store, opts...), store.Close, nil
}

// NewRootCommand creates the zktree root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zktree",
		Short: "Recursive tree operations for ZooKeeper namespaces",
		Long: `zktree runs race-tolerant recursive operations against a ZooKeeper
ensemble: create a path with all of its ancestors, delete a subtree, or list
a node's children in sorted order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRoot(cmd, opts)
		},
	}

	defaults := config.NewDefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringSliceVarP(&opts.Servers, "server", "s", defaults.Servers, "ensemble address, repeatable")
	flags.DurationVar(&opts.SessionTimeout, "session-timeout", defaults.SessionTimeout, "session timeout for the connection")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML or JSON config file")
	flags.IntVarP(&opts.Verbose, "verbose", "v", 3, "log verbosity between 1 (error) and 5 (trace)")
	flags.BoolVar(&opts.UseContainers, "containers", defaults.UseContainers, "create intermediate nodes as containers when supported")
	flags.IntVar(&opts.MaxDeleteRetries, "max-delete-retries", defaults.MaxDeleteRetries, "bound on delete-conflict retries, 0 retries forever")

	cmd.AddCommand(
		NewMkdirsCommand(opts),
		NewRmrCommand(opts),
		NewLsCommand(opts),
	)
	return cmd
}

// setupRoot resolves the config file, if any, into flags the caller did not
// set explicitly, then initializes logging.
func setupRoot(cmd *cobra.Command, opts *RootOptions) error {
	if opts.ConfigPath != "" {
		cfg, err := config.NewConfigFromFile(opts.ConfigPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("server") {
			opts.Servers = cfg.Servers
		}
		if !flags.Changed("session-timeout") {
			opts.SessionTimeout = cfg.SessionTimeout
		}
		if !flags.Changed("containers") {
			opts.UseContainers = cfg.UseContainers
		}
		if !flags.Changed("max-delete-retries") {
			opts.MaxDeleteRetries = cfg.MaxDeleteRetries
		}
	}

	verbose := min(max(opts.Verbose, 1), 5)
	logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	util.InitializeLogger(logLvls[verbose-1])
	return nil
}
