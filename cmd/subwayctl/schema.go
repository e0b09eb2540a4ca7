package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/you/subway/repository"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		postgres, _ := cmd.Flags().GetBool("postgres")
		if postgres {
			fmt.Fprint(cmd.OutOrStdout(), repository.PostgresSchema())
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), repository.SQLiteSchema())
		return nil
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the SQLite database and apply the schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("db")
		store, err := repository.NewSQLiteDB(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(initDBCmd)

	schemaCmd.Flags().Bool("postgres", false, "Print the PostgreSQL schema instead")
}
