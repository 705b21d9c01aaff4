// internal/common/aws/bedrock.go
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dreamforge-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var (
	ErrModelInvocation = errors.New("MODEL_INVOCATION_FAILED")
	ErrModelResponse   = errors.New("MODEL_RESPONSE_INVALID")
	ErrNoModels        = errors.New("NO_MODEL_CONFIGURED")
)

const jsonOnlySuffix = "\nReturn ONLY valid JSON. No prose, no markdown fences."

// BedrockAPI is the subset of the bedrock runtime client used here.
type BedrockAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// ModelOptions configures text generation.
type ModelOptions struct {
	TextModelID     string
	TextFallbackIDs []string
	Temperature     float64
	TopP            float64
	MaxTokens       int
}

// ModelClient asks bedrock models for JSON objects and raw image payloads.
type ModelClient struct {
	api    BedrockAPI
	opts   ModelOptions
	logger logger.Logger
}

func NewModelClient(cfg aws.Config, opts ModelOptions, log logger.Logger) *ModelClient {
	return NewModelClientWithAPI(bedrockruntime.NewFromConfig(cfg), opts, log)
}

func NewModelClientWithAPI(api BedrockAPI, opts ModelOptions, log logger.Logger) *ModelClient {
	return &ModelClient{
		api:    api,
		opts:   opts,
		logger: log.With(map[string]interface{}{"component": "bedrock"}),
	}
}

func (c *ModelClient) modelIDs() []string {
	ids := make([]string, 0, 1+len(c.opts.TextFallbackIDs))
	seen := make(map[string]bool)
	for _, id := range append([]string{c.opts.TextModelID}, c.opts.TextFallbackIDs...) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// InvokeJSON sends one system/user exchange and decodes the first JSON object in the reply.
// The primary text model is tried first, then each fallback in order.
func (c *ModelClient) InvokeJSON(ctx context.Context, system, user, schemaHint string) (map[string]interface{}, error) {
	ids := c.modelIDs()
	if len(ids) == 0 {
		return nil, ErrNoModels
	}

	system += jsonOnlySuffix
	if schemaHint != "" {
		user += "\n\nJSON schema:\n" + schemaHint
	}

	var lastErr error
	for _, id := range ids {
		text, err := c.converse(ctx, id, system, user)
		if err != nil {
			lastErr = fmt.Errorf("%w: %s: %v", ErrModelInvocation, id, err)
			c.logger.Warn("model invocation failed", map[string]interface{}{
				"modelId": id,
				"error":   err,
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		obj, err := ExtractJSONObject(text)
		if err != nil {
			lastErr = err
			c.logger.Warn("model returned no JSON object", map[string]interface{}{
				"modelId": id,
				"error":   err,
			})
			continue
		}
		return obj, nil
	}
	return nil, lastErr
}

func (c *ModelClient) converse(ctx context.Context, modelID, system, user string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: user}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(c.opts.Temperature)),
			TopP:        aws.Float32(float32(c.opts.TopP)),
		},
	}
	if c.opts.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(c.opts.MaxTokens))
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return "", err
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected converse output %T", out.Output)
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	return sb.String(), nil
}

// InvokeImage posts a vendor-specific JSON body to an image model and returns the raw response body.
func (c *ModelClient) InvokeImage(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelInvocation, modelID, err)
	}
	return out.Body, nil
}

// ExtractJSONObject decodes the first balanced {...} object found in text.
// Markdown fences and surrounding prose are ignored.
func ExtractJSONObject(text string) (map[string]interface{}, error) {
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, fmt.Errorf("%w: no object in reply", ErrModelResponse)
	}

	depth, inString, escaped := 0, false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var obj map[string]interface{}
				if err := json.Unmarshal([]byte(text[start:i+1]), &obj); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrModelResponse, err)
				}
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: unterminated object", ErrModelResponse)
}
