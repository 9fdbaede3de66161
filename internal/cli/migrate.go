package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"HTMX-Todo/internal/storage/sqldb"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to the configured SQL database",
		Long: `Apply the embedded schema migrations to the SQL database named by
storage.driver and storage.dsn, then exit. Already applied migrations are
skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if !cfg.Storage.IsSQL() {
				return fmt.Errorf("存储驱动 %s 不需要迁移", cfg.Storage.Driver)
			}
			db, err := sqldb.Open(cmd.Context(), sqlConfig(cfg.Storage))
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", db.Dialect())
			return nil
		},
	}
	return cmd
}
