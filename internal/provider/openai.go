package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 60 * time.Second

// OpenAIOptions configures the OpenAI-compatible generator.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string        // Optional; OpenAI-compatible endpoint.
	Timeout     time.Duration // Per call; defaults to 60s.
	MaxTokens   int
	Temperature float32
}

// OpenAI generates answers with the chat completions API.
type OpenAI struct {
	client      *openai.Client
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewOpenAI constructs an OpenAI generator.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("provider: missing openai api key")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		timeout:     timeout,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, prompt Prompt, model string) (Completion, error) {
	ctxCall, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(prompt.Platform, prompt.Version)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.Question},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	started := time.Now()
	resp, errCall := o.client.CreateChatCompletion(ctxCall, req)
	if errCall != nil {
		log.WithError(errCall).WithField("model", model).Warn("provider: chat completion failed")
		return Completion{}, apierr.Wrap(apierr.UpstreamUnavailable, "AI service is temporarily unavailable. Please try again shortly.", errCall)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		log.WithField("model", model).Warn("provider: empty completion")
		return Completion{}, apierr.New(apierr.EmptyResponse, "The AI model returned an empty response. Please try again with a different question.")
	}
	log.WithFields(log.Fields{
		"model":         model,
		"finish_reason": resp.Choices[0].FinishReason,
		"latency":       time.Since(started),
	}).Debug("provider: completion received")

	return Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Sources:          []string{},
	}, nil
}
