package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// DefaultModel is used when no Gemini model is configured
const DefaultModel = "gemini-1.5-flash"

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	logger    *zap.Logger
}

// NewGeminiClient creates a new Gemini client. Extra options are passed to
// the underlying SDK client.
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*GeminiClient, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(core.SystemPrompt)},
	}

	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// ModelName returns the Gemini model
func (c *GeminiClient) ModelName() string {
	return c.modelName
}

// RequiresCredential is false, the Gemini key comes from configuration
func (c *GeminiClient) RequiresCredential() bool {
	return false
}

// Complete generates the analysis for the email content. The credential
// argument is ignored.
func (c *GeminiClient) Complete(ctx context.Context, emailContent string, credential string) (string, error) {
	c.logger.Debug("Sending Gemini request",
		zap.String("model", c.modelName),
		zap.Int("content_size", len(emailContent)))

	resp, err := c.model.GenerateContent(ctx, genai.Text(core.BuildUserPrompt(emailContent)))
	if err != nil {
		return "", mapError(err)
	}

	return extractText(resp)
}

// Close releases the SDK client
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// extractText joins the text parts of the first candidate
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", core.ErrMalformedResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: candidate has no content", core.ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: candidate has no text", core.ErrMalformedResponse)
	}
	return sb.String(), nil
}

// mapError translates SDK and transport errors into core errors
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}

	if apiErr, ok := apierror.FromError(err); ok {
		return core.NewHTTPError(statusOf(apiErr), messageOf(apiErr))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", core.ErrNetwork, err)
	}
	return err
}

// statusOf returns the HTTP status of an API error, derived from the gRPC
// code when the error did not come over HTTP
func statusOf(apiErr *apierror.APIError) int {
	if apiErr.Reason() == "API_KEY_INVALID" {
		return http.StatusUnauthorized
	}
	if code := apiErr.HTTPCode(); code > 0 {
		return code
	}
	if apiErr.GRPCStatus() == nil {
		return http.StatusInternalServerError
	}

	switch apiErr.GRPCStatus().Code() {
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(apiErr *apierror.APIError) string {
	if s := apiErr.GRPCStatus(); s != nil {
		return s.Message()
	}
	var httpErr *googleapi.Error
	if errors.As(apiErr, &httpErr) {
		return httpErr.Message
	}
	return ""
}
