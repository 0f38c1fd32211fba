// Package speechmatics speaks the Speechmatics realtime API: one websocket
// per recognition session, JSON control messages out, JSON transcript
// messages back, raw audio as binary frames in between.
package speechmatics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	RealtimeURL  = "wss://eu2.rt.speechmatics.com/v2"
	PingInterval = 30 * time.Second
	PongTimeout  = 60 * time.Second
)

type OperatingPoint string

const (
	OperatingPointStandard OperatingPoint = "standard"
	OperatingPointEnhanced OperatingPoint = "enhanced"
)

// TranscriptionConfig is the transcription_config block of StartRecognition.
// EnablePartials has no omitempty so an explicit false still goes on the
// wire.
type TranscriptionConfig struct {
	Language       string         `json:"language"`
	OperatingPoint OperatingPoint `json:"operating_point,omitempty"`
	EnablePartials bool           `json:"enable_partials"`
	MaxDelay       float64        `json:"max_delay,omitempty"`
	EnableEntities bool           `json:"enable_entities,omitempty"`
}

type AudioFormat struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type StartRecognition struct {
	Message             string              `json:"message"`
	AudioFormat         AudioFormat         `json:"audio_format"`
	TranscriptionConfig TranscriptionConfig `json:"transcription_config"`
}

type EndOfStream struct {
	Message   string `json:"message"`
	LastSeqNo int    `json:"last_seq_no"`
}

// ServerMessage is any inbound frame; Message discriminates. Unused fields
// stay zero.
type ServerMessage struct {
	Message string   `json:"message"`
	ID      string   `json:"id,omitempty"`
	Type    string   `json:"type,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Results []Result `json:"results,omitempty"`
}

type Result struct {
	Type         string        `json:"type"`
	StartTime    float64       `json:"start_time"`
	EndTime      float64       `json:"end_time"`
	Alternatives []Alternative `json:"alternatives"`
}

type Alternative struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// Client is one realtime session. The protocol needs exactly one sender and
// one receiver goroutine and the client is safe for that split, nothing
// more.
type Client struct {
	APIKey string
	URL    string // defaults to RealtimeURL; tests point it at a local server

	conn *websocket.Conn
	seq  int
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, URL: RealtimeURL}
}

// Connect dials the per-language endpoint and sends StartRecognition. A
// keepalive pinger runs until ctx is done or the connection drops.
func (c *Client) Connect(ctx context.Context, config TranscriptionConfig, format AudioFormat) error {
	header := http.Header{}
	header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	base := c.URL
	if base == "" {
		base = RealtimeURL
	}
	url := fmt.Sprintf("%s/%s", base, config.Language)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn

	go c.keepAlive(ctx)

	start := StartRecognition{
		Message:             "StartRecognition",
		AudioFormat:         format,
		TranscriptionConfig: config,
	}
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		return fmt.Errorf("send StartRecognition: %w", err)
	}
	return nil
}

func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(PongTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				return
			}
		}
	}
}

// SendAudio ships one binary AddAudio frame and bumps the sequence counter
// EndStream reports.
func (c *Client) SendAudio(data []byte) error {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	c.seq++
	return nil
}

// EndStream tells the service no more audio is coming.
func (c *Client) EndStream() error {
	end := EndOfStream{Message: "EndOfStream", LastSeqNo: c.seq}
	if err := c.conn.WriteJSON(end); err != nil {
		return fmt.Errorf("send EndOfStream: %w", err)
	}
	return nil
}

// ReadMessage blocks for the next server frame.
func (c *Client) ReadMessage() (ServerMessage, error) {
	var msg ServerMessage
	if err := c.conn.ReadJSON(&msg); err != nil {
		return ServerMessage{}, err
	}
	return msg, nil
}

// Close is safe to call while the sender and receiver are still running;
// it unblocks both.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
