package speechmatics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

type scriptedSource struct {
	chunks [][]byte
}

func (s *scriptedSource) Read(maxBytes int) []byte {
	if len(s.chunks) == 0 {
		return nil
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk
}

func TestAddTranscriptParsing(t *testing.T) {
	payload := `{
		"message": "AddTranscript",
		"format": "2.9",
		"results": [
			{
				"type": "word",
				"start_time": 0.54,
				"end_time": 0.9,
				"alternatives": [{"content": "hello", "confidence": 0.98}]
			},
			{
				"type": "punctuation",
				"start_time": 0.9,
				"end_time": 0.9,
				"alternatives": [{"content": ".", "confidence": 1.0}]
			}
		]
	}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Message != "AddTranscript" {
		t.Errorf("expected AddTranscript, got %q", msg.Message)
	}
	if len(msg.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(msg.Results))
	}
	if got := msg.Results[0].Alternatives[0].Content; got != "hello" {
		t.Errorf("expected content hello, got %q", got)
	}
	if got := msg.Results[0].Alternatives[0].Confidence; got != 0.98 {
		t.Errorf("expected confidence 0.98, got %v", got)
	}
	if got := msg.Results[1].Type; got != "punctuation" {
		t.Errorf("expected punctuation result, got %q", got)
	}
}

func TestLiveTranscriberStream(t *testing.T) {
	type report struct {
		path    string
		auth    string
		start   string
		audio   int
		lastSeq int64
	}
	reports := make(chan report, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		rep := report{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read StartRecognition: %v", err)
			return
		}
		rep.start = string(data)

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("read audio: %v", err)
				return
			}
			if kind == websocket.BinaryMessage {
				rep.audio += len(data)
				continue
			}
			if gjson.GetBytes(data, "message").String() == "EndOfStream" {
				rep.lastSeq = gjson.GetBytes(data, "last_seq_no").Int()
				break
			}
		}
		reports <- rep

		conn.WriteJSON(map[string]any{
			"message": "AddTranscript",
			"results": []map[string]any{
				{"type": "word", "alternatives": []map[string]any{{"content": "hello", "confidence": 0.99}}},
				{"type": "word", "alternatives": []map[string]any{{"content": "there", "confidence": 0.97}}},
				{"type": "punctuation", "alternatives": []map[string]any{{"content": ".", "confidence": 1.0}}},
				{"type": "word"},
			},
		})
		conn.WriteJSON(map[string]any{"message": "EndOfTranscript"})
	}))
	defer srv.Close()

	source := &scriptedSource{chunks: [][]byte{
		make([]byte, 4096),
		make([]byte, 4096),
		make([]byte, 2048),
	}}

	var words []string
	tr := &LiveTranscriber{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
	err := tr.Stream(context.Background(), "en", source, func(w string) {
		words = append(words, w)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	rep := <-reports
	if rep.path != "/en" {
		t.Errorf("expected dial path /en, got %q", rep.path)
	}
	if rep.auth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", rep.auth)
	}
	if got := gjson.Get(rep.start, "message").String(); got != "StartRecognition" {
		t.Errorf("expected StartRecognition, got %q", got)
	}
	if got := gjson.Get(rep.start, "transcription_config.operating_point").String(); got != "enhanced" {
		t.Errorf("expected enhanced operating point, got %q", got)
	}
	partials := gjson.Get(rep.start, "transcription_config.enable_partials")
	if !partials.Exists() || partials.Bool() {
		t.Errorf("expected enable_partials explicitly false, got %v", partials)
	}
	if got := gjson.Get(rep.start, "transcription_config.max_delay").Float(); got != 1 {
		t.Errorf("expected max_delay 1, got %v", got)
	}
	if !gjson.Get(rep.start, "transcription_config.enable_entities").Bool() {
		t.Error("expected enable_entities true")
	}
	if got := gjson.Get(rep.start, "audio_format.encoding").String(); got != "pcm_s16le" {
		t.Errorf("expected pcm_s16le encoding, got %q", got)
	}
	if got := gjson.Get(rep.start, "audio_format.sample_rate").Int(); got != 16000 {
		t.Errorf("expected 16000 sample rate, got %d", got)
	}
	if want := 4096 + 4096 + 2048; rep.audio != want {
		t.Errorf("expected %d audio bytes, got %d", want, rep.audio)
	}
	if rep.lastSeq != 3 {
		t.Errorf("expected last_seq_no 3, got %d", rep.lastSeq)
	}

	want := []string{"hello", "there", "."}
	if len(words) != len(want) {
		t.Fatalf("expected words %q, got %q", want, words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d: expected %q, got %q", i, want[i], words[i])
		}
	}
}

func TestLiveTranscriberEngineError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("read StartRecognition: %v", err)
			return
		}
		conn.WriteJSON(map[string]any{
			"message": "Error",
			"type":    "not_authorised",
			"reason":  "invalid api key",
		})
	}))
	defer srv.Close()

	tr := &LiveTranscriber{
		APIKey: "bad-key",
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
	err := tr.Stream(context.Background(), "en", &scriptedSource{}, func(string) {})
	if err == nil {
		t.Fatal("expected an engine error")
	}
	if !strings.Contains(err.Error(), "not_authorised") {
		t.Errorf("expected not_authorised in error, got %v", err)
	}
}
