package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/you/subway/config"
)

var rootCmd = &cobra.Command{
	Use:   "subwayctl",
	Short: "Inspect and initialise the subway line database",
	Long: `subwayctl works directly against the SQLite database used by the
subway API. It can print or apply the schema and show a line's stations
in travel order.`,
	SilenceUsage: true,
}

func init() {
	config.LoadEnvFiles(".")
	rootCmd.PersistentFlags().String("db", config.Load().SQLitePath, "SQLite database path")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
