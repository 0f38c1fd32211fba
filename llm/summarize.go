// Package llm turns finished session transcripts into short narrative
// summaries via the OpenAI chat completion API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const summaryPrompt = "Analyze the following session transcript and provide a narrative synopsis. " +
	"Write punchy single sentence paragraphs, each one prefixed by a relevant emoji, different ones. " +
	"Emphasize key words and salient concepts with CAPS. " +
	"Keep it real, authentic, and not too long. Write in lower case weird style."

// SummarizeTranscript sends the transcript to the chat completion API and
// returns the model's synopsis. Extra request options are applied after the
// API key, so tests can point the client at a fake server.
func SummarizeTranscript(ctx context.Context, apiKey, transcript string, opts ...option.RequestOption) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "Nothing was said in this session", nil
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModelGPT4o,
		MaxTokens: openai.Int(500),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(transcript),
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
