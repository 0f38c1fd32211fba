package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steno-audio/steno/setup"
)

var logger *log.Logger

var rootCmd = &cobra.Command{
	Use:   "steno",
	Short: "Steno relays live speech to text",
	Long: `Steno accepts raw microphone audio from its clients over TCP, streams it
to a cloud recognition engine, and publishes formatted transcript sentences
to the terminal dashboard, the web board, and the session archive.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(setup.SetupCmd)

	rootCmd.PersistentFlags().
		String("speechmatics-api-key", "", "Speechmatics API key")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().
		String("db", "", "Postgres URL for the session archive")

	viper.BindPFlag(
		"speechmatics_api_key",
		rootCmd.PersistentFlags().Lookup("speechmatics-api-key"),
	)
	viper.BindPFlag(
		"openai_api_key",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
}

func createLoggers() (mainLogger, relayLogger, hearLogger, dataLogger *log.Logger) {
	logLevel := log.DebugLevel

	logger.SetLevel(logLevel)
	logger.SetReportCaller(true)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)

	mainLogger = logger.With().WithPrefix("main")
	relayLogger = logger.With().WithPrefix("relay")
	hearLogger = logger.With().WithPrefix("hear")
	dataLogger = logger.With().WithPrefix("data")

	return
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
