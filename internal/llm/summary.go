package llm

import (
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SummarizeRun asks the oracle for a short markdown report of a finished run.
func (c *OpenAIClient) SummarizeRun(input SummaryInput) (string, error) {
	resp, err := c.complete(openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSummaryPrompt(input)},
		},
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildSummaryPrompt(in SummaryInput) string {
	var sb strings.Builder
	section := func(label, body string) {
		if body == "" {
			return
		}
		fmt.Fprintf(&sb, "%s:\n%s\n\n", label, body)
	}

	section("TASK", in.Task)
	section("APP", in.App)
	section("EXIT_REASON", in.ExitReason)
	section("DURATION", in.Duration)
	section("STATES_CAPTURED", strconv.Itoa(in.States))
	section("FINAL_URL", in.FinalURL)
	section("STEPS", strings.Join(in.Steps, "\n"))
	return strings.TrimRight(sb.String(), "\n")
}
