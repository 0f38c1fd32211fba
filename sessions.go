package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steno-audio/steno/archive"
	"github.com/steno-audio/steno/llm"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived sessions",
	Run:   runSessions,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <session-id>",
	Short: "Print the transcript of an archived session",
	Args:  cobra.ExactArgs(1),
	Run:   runTranscript,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <session-id>",
	Short: "Summarize an archived session using OpenAI",
	Args:  cobra.ExactArgs(1),
	Run:   runSummarize,
}

func openArchive(ctx context.Context, mainLogger, dataLogger *log.Logger) *archive.Store {
	dbURL := viper.GetString("database_url")
	if dbURL == "" {
		mainLogger.Fatal("missing DATABASE_URL or --db=")
	}

	store, err := archive.Open(ctx, dbURL, dataLogger)
	if err != nil {
		mainLogger.Fatal("open archive", "error", err.Error())
	}
	return store
}

func runSessions(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers()

	ctx := context.Background()
	store := openArchive(ctx, mainLogger, dataLogger)
	defer store.Close()

	sessions, err := store.Sessions(ctx)
	if err != nil {
		mainLogger.Fatal("list sessions", "error", err.Error())
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Language", "Started At", "Ended At"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, s := range sessions {
		endedAt := "live"
		if s.EndedAt != nil {
			endedAt = s.EndedAt.Format("2006-01-02 15:04:05")
		}
		table.Append([]string{
			s.ID,
			s.Name,
			s.Language,
			s.StartedAt.Format("2006-01-02 15:04:05"),
			endedAt,
		})
	}

	table.Render()
}

func runTranscript(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers()

	ctx := context.Background()
	store := openArchive(ctx, mainLogger, dataLogger)
	defer store.Close()

	transcript, err := store.Transcript(ctx, args[0])
	if err != nil {
		mainLogger.Fatal("load transcript", "error", err.Error())
	}

	fmt.Println(transcript)
}

func runSummarize(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger := createLoggers()

	openaiAPIKey := viper.GetString("openai_api_key")
	if openaiAPIKey == "" {
		mainLogger.Fatal("missing OPENAI_API_KEY or --openai-api-key=")
	}

	ctx := context.Background()
	store := openArchive(ctx, mainLogger, dataLogger)
	defer store.Close()

	transcript, err := store.Transcript(ctx, args[0])
	if err != nil {
		mainLogger.Fatal("load transcript", "error", err.Error())
	}

	summary, err := llm.SummarizeTranscript(ctx, openaiAPIKey, transcript)
	if err != nil {
		mainLogger.Fatal("summarize transcript", "error", err.Error())
	}

	fmt.Println(summary)
}
