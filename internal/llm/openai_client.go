package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nbenliogludev/go-workflow-agent/internal/config"
)

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// chatCompleter is the slice of the go-openai client we use.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIClient struct {
	client  chatCompleter
	cfg     config.OracleConfig
	limits  PromptLimits
	limiter *rate.Limiter
	logger  *zap.Logger

	backoffBase time.Duration
}

func NewOpenAIClient(cfg config.OracleConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIClient(openai.NewClientWithConfig(clientCfg), cfg, logger), nil
}

func newOpenAIClient(cc chatCompleter, cfg config.OracleConfig, logger *zap.Logger) *OpenAIClient {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	return &OpenAIClient{
		client:      cc,
		cfg:         cfg,
		limits:      DefaultPromptLimits,
		limiter:     rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		logger:      logger.Named("oracle"),
		backoffBase: 3 * time.Second,
	}
}

// WithPromptLimits overrides how much page context is sent per request.
func (c *OpenAIClient) WithPromptLimits(l PromptLimits) *OpenAIClient {
	c.limits = l.orDefault()
	return c
}

// DecideAction asks the model for the next action. Transport failures and
// malformed replies both come back as SafeDecision with a nil error so the
// loop keeps going.
func (c *OpenAIClient) DecideAction(input DecisionInput) (*ActionDecision, error) {
	image, err := FitImage(input.Image, c.cfg.MaxImageBytes)
	if err != nil {
		c.logger.Warn("screenshot could not be fitted, sending without image", zap.Error(err))
		image = nil
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: buildDecisionPrompt(input, c.limits)},
	}
	if len(image) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := c.complete(openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: decisionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		c.logger.Error("oracle request failed", zap.Error(err))
		return SafeDecision(fmt.Sprintf("API error: %v", err)), nil
	}

	content := resp.Choices[0].Message.Content
	decision, err := ParseDecision(content)
	if err != nil {
		c.logger.Warn("oracle reply rejected", zap.Error(err), zap.String("content", preview(content, 200)))
		return SafeDecision(fmt.Sprintf("Failed to parse oracle response: %v", err)), nil
	}
	return decision, nil
}

// complete sends one chat request, pacing through the limiter and retrying
// rate-limit responses with exponential backoff.
func (c *OpenAIClient) complete(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if werr := c.limiter.Wait(ctx); werr != nil {
			cancel()
			return resp, fmt.Errorf("rate limiter: %w", werr)
		}
		resp, err = c.client.CreateChatCompletion(ctx, req)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return resp, fmt.Errorf("no choices")
			}
			return resp, nil
		}
		if !isRateLimited(err) || attempt == maxRetries-1 {
			break
		}

		wait := time.Duration(float64(c.backoffBase) * math.Pow(2, float64(attempt)))
		c.logger.Warn("rate limited by oracle, backing off",
			zap.Int("attempt", attempt+1), zap.Duration("wait", wait))
		time.Sleep(wait)
	}
	return resp, err
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
