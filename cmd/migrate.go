package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "init-db-migrate",
	Short: "Initialize tables and run database migrations",
	Long:  `This job ensures the agent_runs table exists and then runs goose migrations.`,
	Run: func(cmd *cobra.Command, args []string) {

		// Load .env and the config file and set the log level
		commonSetUp()

		if appCfg.Database.Source == "" {
			log.Fatal().Msg("No database configured; set DATABASE_URL or database.source")
		}

		runDB := openRunDB()

		// Set up the database
		defer runDB.Close()

		// Run the migrations
		log.Info().Msgf("Running migrations...")
		if err := runDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		log.Info().Msg("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
