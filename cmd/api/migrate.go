package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/octobees/localpros/api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply embedded migrations, or roll back one step with down",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := database.Up
		if len(args) == 1 {
			dir = database.Direction(args[0])
		}
		if cfg.DatabaseURL == "" {
			return eris.New("DATABASE_URL is required")
		}
		return database.Migrate(cfg.DatabaseURL, dir)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
