package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steno-audio/steno/archive"
	"github.com/steno-audio/steno/board"
	"github.com/steno-audio/steno/bus"
	"github.com/steno-audio/steno/relay"
	"github.com/steno-audio/steno/speechmatics"
	"github.com/steno-audio/steno/ui"
	"github.com/steno-audio/steno/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Accept client audio streams over TCP, transcribe them through
Speechmatics, and serve the merged transcript over HTTP.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().
		IntP("port", "p", relay.DefaultPort, "TCP port to accept audio streams on")
	serveCmd.Flags().Int("http", 8080, "HTTP port for the web board")
	serveCmd.Flags().
		String("lang", relay.DefaultLanguage, "Language for clients that do not send one")
	serveCmd.Flags().Bool("ui", false, "Show the terminal dashboard")
}

func runServe(cmd *cobra.Command, args []string) {
	mainLogger, relayLogger, hearLogger, dataLogger := createLoggers()

	apiKey := viper.GetString("speechmatics_api_key")
	if apiKey == "" {
		mainLogger.Fatal(
			"missing SPEECHMATICS_API_KEY or --speechmatics-api-key=",
		)
	}

	port, _ := cmd.Flags().GetInt("port")
	httpPort, _ := cmd.Flags().GetInt("http")
	lang, _ := cmd.Flags().GetString("lang")
	withUI, _ := cmd.Flags().GetBool("ui")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New()
	brd := board.New()

	engine := &speechmatics.LiveTranscriber{
		APIKey: apiKey,
		Logger: hearLogger,
	}

	var store *archive.Store
	if dbURL := viper.GetString("database_url"); dbURL != "" {
		s, err := archive.Open(ctx, dbURL, dataLogger)
		if err != nil {
			mainLogger.Fatal("open archive", "error", err.Error())
		}
		store = s
		defer store.Close()

		records, _ := b.Subscribe(256)
		go store.Record(ctx, records)
	}

	listener := relay.NewListener(
		relay.Config{Port: port, DefaultLanguage: lang},
		b,
		engine,
		relayLogger,
	)
	if err := listener.Start(ctx); err != nil {
		mainLogger.Fatal("start listener", "error", err.Error())
	}
	defer listener.Stop()

	handler := web.NewHandler(brd, store, mainLogger)
	go func() {
		if err := handler.Serve(httpPort); err != nil {
			mainLogger.Error("http server", "error", err.Error())
		}
	}()

	events, unsubscribe := b.Subscribe(256)
	defer unsubscribe()

	if withUI {
		// The dashboard is the board's only writer while it runs.
		p := tea.NewProgram(ui.NewDashboard(brd, events))
		if _, err := p.Run(); err != nil {
			mainLogger.Fatal("run dashboard", "error", err.Error())
		}
		return
	}

	go brd.Run(events)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	mainLogger.Info("shutting down")
}
