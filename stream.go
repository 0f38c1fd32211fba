package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/steno-audio/steno/capture"
	"github.com/steno-audio/steno/relay"
	"github.com/steno-audio/steno/ui"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Capture the microphone and stream it to a relay server",
	Run:   runStream,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Run:   runDevices,
}

func init() {
	streamCmd.Flags().String("server", capture.DefaultHost, "Relay server host")
	streamCmd.Flags().IntP("port", "p", capture.DefaultPort, "Relay server port")
	streamCmd.Flags().
		String("name", "", "Display name sent to the server (default client-<timestamp>)")
	streamCmd.Flags().
		String("lang", relay.DefaultLanguage, "Language code sent to the server")
	streamCmd.Flags().
		Int("device", -1, "Input device index from `steno devices` (-1 for the system default)")
	streamCmd.Flags().Bool("ui", false, "Show the level meter")
}

func defaultClientName() string {
	return fmt.Sprintf("client-%d", time.Now().Unix())
}

func runStream(cmd *cobra.Command, args []string) {
	mainLogger, _, _, _ := createLoggers()

	host, _ := cmd.Flags().GetString("server")
	port, _ := cmd.Flags().GetInt("port")
	name, _ := cmd.Flags().GetString("name")
	lang, _ := cmd.Flags().GetString("lang")
	device, _ := cmd.Flags().GetInt("device")
	withUI, _ := cmd.Flags().GetBool("ui")

	if name == "" {
		name = defaultClientName()
	}

	streamer := capture.New(capture.Config{
		Host:     host,
		Port:     port,
		Name:     name,
		Language: lang,
		Device:   device,
	})
	streamer.Start()

	if withUI {
		p := tea.NewProgram(ui.NewMeter(streamer))
		if _, err := p.Run(); err != nil {
			mainLogger.Fatal("run meter", "error", err.Error())
		}
		streamer.Stop()
		return
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	for {
		select {
		case ev := <-streamer.Events():
			switch ev := ev.(type) {
			case capture.Status:
				mainLogger.Info(ev.Message)
			case capture.Fatal:
				mainLogger.Error("capture failed", "error", ev.Err.Error())
			case capture.Finished:
				return
			}
		case <-sc:
			mainLogger.Info("stopping")
			streamer.Stop()
		}
	}
}

func runDevices(cmd *cobra.Command, args []string) {
	mainLogger, _, _, _ := createLoggers()

	devices, err := capture.ListDevices()
	if err != nil {
		mainLogger.Fatal("list devices", "error", err.Error())
	}

	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Index", "Name", "Channels", "Default"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		table.Append([]string{
			strconv.Itoa(d.Index),
			d.Name,
			strconv.Itoa(d.Channels),
			def,
		})
	}

	table.Render()
}
