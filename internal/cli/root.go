package cli

import (
	"os"

	"github.com/spf13/cobra"

	"HTMX-Todo/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// load reads the configuration named by --config, or the defaults when no
// file is given.
func (o *RootOptions) load() (*config.Config, error) {
	return config.Load(o.ConfigPath)
}

// NewRootCommand creates the root command. Running it without a subcommand
// starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	serve := NewServeCommand(opts)

	cmd := &cobra.Command{
		Use:           "todod",
		Short:         "Server-rendered HTMX to-do list",
		Long:          "todod serves a to-do list as HTML pages and HTMX fragments backed by memory, SQL or Redis storage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("TODO_CONFIG"),
		"path to a JSON or YAML config file (env TODO_CONFIG)")
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}
