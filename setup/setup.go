// Package setup walks first-run configuration and writes config.yaml for
// the other commands.
package setup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure steno",
	Long:  `Prompt for API keys and the optional archive database, then write config.yaml.`,
	Run: func(cmd *cobra.Command, args []string) {
		Run()
	},
}

func Run() {
	log.Info("Starting steno setup...")

	var speechmaticsKey, openaiKey, dbURL string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Enter your Speechmatics API key").
				Value(&speechmaticsKey),
			huh.NewInput().
				Title("Enter your OpenAI API key (optional, enables summaries)").
				Value(&openaiKey),
			huh.NewInput().
				Title("Enter a Postgres URL for the session archive (optional)").
				Value(&dbURL),
		),
	)

	if err := form.Run(); err != nil {
		log.Fatal("Error during setup", "error", err)
	}

	if speechmaticsKey == "" {
		log.Fatal("A Speechmatics API key is required")
	}

	if dbURL != "" {
		if err := checkDatabase(dbURL); err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		log.Info("Successfully connected to the database")
	}

	viper.Set("speechmatics_api_key", speechmaticsKey)
	if openaiKey != "" {
		viper.Set("openai_api_key", openaiKey)
	}
	if dbURL != "" {
		viper.Set("database_url", dbURL)
	}

	if err := saveConfig(); err != nil {
		log.Fatal("Error saving configuration", "error", err)
	}

	log.Info("Setup completed successfully!")
}

func saveConfig() error {
	err := viper.SafeWriteConfig()
	if _, exists := err.(viper.ConfigFileAlreadyExistsError); exists {
		err = viper.WriteConfig()
	}
	return err
}

func checkDatabase(url string) error {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	defer pool.Close()
	return pool.Ping(ctx)
}
