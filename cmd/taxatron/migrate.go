package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if status {
				version, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Schema version: %d (expected: %d)\n",
					version, storage.ExpectedSchemaVersion)
				return nil
			}

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			cmd.Println("Database is up to date.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the current schema version without migrating")
	return cmd
}
