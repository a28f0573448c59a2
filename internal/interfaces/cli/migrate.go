package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lawrns/flavatix/internal/infrastructure/database/postgres"
)

// newMigrateCommand creates the migrate command group: up, down, status.
func newMigrateCommand() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "",
		"migrations source (default: database.migration_path from config)")

	resolve := func(cmd *cobra.Command) (dbURL, path string, err error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return "", "", err
		}
		path = migrationsPath
		if path == "" {
			path = cliCtx.Config.Database.MigrationPath
		}
		if path == "" {
			return "", "", fmt.Errorf("no migrations path configured; set --path or database.migration_path")
		}
		return postgres.BuildDSN(cliCtx.Config.Database), path, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := resolve(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(dbURL, path); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := resolve(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(dbURL, path, steps); err != nil {
				return err
			}
			fmt.Printf("rolled back %d step(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migration steps to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, path, err := resolve(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(dbURL, path)
			if err != nil {
				return err
			}
			if version == 0 && !dirty {
				fmt.Println("no migrations applied")
				return nil
			}
			fmt.Printf("version: %d  dirty: %t\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}
