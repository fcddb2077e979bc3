package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// InvokeModelAPI is the part of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient interface using Amazon Bedrock
type BedrockClient struct {
	client      InvokeModelAPI
	modelID     string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client InvokeModelAPI,
	modelID string,
	maxTokens int,
	temperature float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// ModelName returns the Bedrock model ID
func (c *BedrockClient) ModelName() string {
	return c.modelID
}

// RequiresCredential is false, AWS credentials come from the default chain
func (c *BedrockClient) RequiresCredential() bool {
	return false
}

func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.")
}

func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.Contains(c.modelID, "amazon.titan")
}

// Complete invokes the model with the analysis prompt. The credential
// argument is ignored.
func (c *BedrockClient) Complete(ctx context.Context, emailContent string, credential string) (string, error) {
	payload, err := c.buildPayload(core.BuildUserPrompt(emailContent))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	c.logger.Debug("Invoking Bedrock model",
		zap.String("model_id", c.modelID),
		zap.Int("payload_size", len(payload)))

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", mapError(err)
	}

	return c.parseResponse(resp.Body)
}

// buildPayload renders the request body in the format of the model family
func (c *BedrockClient) buildPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": anthropicVersion,
			"max_tokens":        c.maxTokens,
			"temperature":       c.temperature,
			"system":            core.SystemPrompt,
			"messages": []map[string]interface{}{
				{
					"role": "user",
					"content": []map[string]string{
						{"type": "text", "text": prompt},
					},
				},
			},
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": core.SystemPrompt + "\n\n" + prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      core.SystemPrompt + "\n\n" + prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
		})
	}
}

// parseResponse extracts the generated text from the model family's response body
func (c *BedrockClient) parseResponse(body []byte) (string, error) {
	var text string

	switch {
	case c.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
		}
		var sb strings.Builder
		for _, block := range claudeResp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		text = sb.String()
	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
		}
		if len(titanResp.Results) > 0 {
			text = titanResp.Results[0].OutputText
		}
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
		}
		switch {
		case genericResp.Output != "":
			text = genericResp.Output
		case genericResp.Text != "":
			text = genericResp.Text
		default:
			text = genericResp.Response
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response from model %s", core.ErrMalformedResponse, c.modelID)
	}
	return text, nil
}

// mapError translates AWS SDK and transport errors into core errors
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		message := ""
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.ErrorMessage()
		}
		return core.NewHTTPError(respErr.HTTPStatusCode(), message)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", core.ErrNetwork, err)
	}
	return fmt.Errorf("failed to invoke Bedrock model: %w", err)
}
