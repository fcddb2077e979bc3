package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the OpenAI API root the chat completion path is appended to
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when no model is configured
	DefaultModel = openai.GPT4oMini
	// DefaultTemperature and DefaultMaxTokens match the request body of the analysis call
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 500
)

// OpenAIClient is an implementation of the LLMClient interface using the
// OpenAI chat completion API
type OpenAIClient struct {
	baseURL     string
	httpClient  *http.Client
	apiKey      string
	modelName   string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client. apiKey is optional; when it is
// set the client does not ask for a stored credential.
func NewOpenAIClient(
	baseURL string,
	httpClient *http.Client,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &OpenAIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		apiKey:      strings.TrimSpace(apiKey),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// ModelName returns the chat model
func (c *OpenAIClient) ModelName() string {
	return c.modelName
}

// RequiresCredential is false when an API key was configured directly
func (c *OpenAIClient) RequiresCredential() bool {
	return c.apiKey == ""
}

// BaseURL returns the API root, used for the reachability probe
func (c *OpenAIClient) BaseURL() string {
	return c.baseURL
}

// Complete sends the email content as a chat completion and returns the
// content of the first choice
func (c *OpenAIClient) Complete(ctx context.Context, emailContent string, credential string) (string, error) {
	if credential == "" {
		credential = c.apiKey
	}

	cfg := openai.DefaultConfig(credential)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: core.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: core.BuildUserPrompt(emailContent),
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	c.logger.Debug("Sending chat completion request",
		zap.String("model", c.modelName),
		zap.Int("content_size", len(emailContent)))

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", core.ErrMalformedResponse)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: first choice has no content", core.ErrMalformedResponse)
	}

	c.logger.Debug("Received chat completion",
		zap.String("id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return content, nil
}

// mapError translates go-openai and transport errors into core errors
func mapError(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", core.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &apiErr):
		return core.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message)
	case errors.As(err, &reqErr):
		return core.NewHTTPError(reqErr.HTTPStatusCode, "")
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", core.ErrNetwork, err)
	default:
		return err
	}
}
