package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

func TestSummarizeTranscript(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"alice TALKED about the weather."}}]}`)
	}))
	defer srv.Close()

	summary, err := SummarizeTranscript(
		context.Background(),
		"test-key",
		"[10:30] alice: Hello world.",
		option.WithBaseURL(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("SummarizeTranscript: %v", err)
	}
	if summary != "alice TALKED about the weather." {
		t.Errorf("summary = %q", summary)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}

	body := string(gotBody)
	if got := gjson.Get(body, "model").String(); got != "gpt-4o" {
		t.Errorf("model = %q", got)
	}
	if got := gjson.Get(body, "max_tokens").Int(); got != 500 {
		t.Errorf("max_tokens = %d", got)
	}
	if got := gjson.Get(body, "messages.0.role").String(); got != "system" {
		t.Errorf("first message role = %q", got)
	}
	if got := gjson.Get(body, "messages.1.content").String(); got != "[10:30] alice: Hello world." {
		t.Errorf("user message = %q", got)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	summary, err := SummarizeTranscript(context.Background(), "test-key", "   ")
	if err != nil {
		t.Fatalf("SummarizeTranscript: %v", err)
	}
	if summary != "Nothing was said in this session" {
		t.Errorf("summary = %q", summary)
	}
}
