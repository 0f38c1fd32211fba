package speechmatics

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/steno-audio/steno/relay"
)

// readChunk matches the capture client's pull size in bytes.
const readChunk = 4096

// LiveTranscriber adapts the realtime API to the relay's engine interface.
// One Stream call is one websocket session.
type LiveTranscriber struct {
	APIKey string
	URL    string // empty means RealtimeURL
	Logger *log.Logger
}

func (t *LiveTranscriber) Stream(ctx context.Context, language string, source relay.AudioSource, onWord func(string)) error {
	client := NewClient(t.APIKey)
	if t.URL != "" {
		client.URL = t.URL
	}

	config := TranscriptionConfig{
		Language:       language,
		OperatingPoint: OperatingPointEnhanced,
		EnablePartials: false,
		MaxDelay:       1,
		EnableEntities: true,
	}
	format := AudioFormat{Type: "raw", Encoding: "pcm_s16le", SampleRate: 16000}

	if err := client.Connect(ctx, config, format); err != nil {
		return err
	}
	defer client.Close()

	// The sender stops on its own once the source drains. If recognition
	// fails first it lingers in source.Read until the relay closes the
	// client socket, then falls out here too.
	go func() {
		for {
			chunk := source.Read(readChunk)
			if len(chunk) == 0 {
				_ = client.EndStream()
				return
			}
			if err := client.SendAudio(chunk); err != nil {
				return
			}
		}
	}()

	for {
		msg, err := client.ReadMessage()
		if err != nil {
			return fmt.Errorf("engine socket: %w", err)
		}
		switch msg.Message {
		case "AddTranscript":
			for _, result := range msg.Results {
				if len(result.Alternatives) == 0 {
					continue
				}
				onWord(result.Alternatives[0].Content)
			}
		case "EndOfTranscript":
			return nil
		case "Error":
			return fmt.Errorf("engine error: %s (%s)", msg.Type, msg.Reason)
		case "Warning":
			if t.Logger != nil {
				t.Logger.Warn("engine warning", "type", msg.Type, "reason", msg.Reason)
			}
		}
	}
}
