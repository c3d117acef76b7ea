package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for Anthropic Claude
type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(cfg Config) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Configured reports whether an API key is present.
func (p *AnthropicProvider) Configured() bool {
	return p.cfg.APIKey != ""
}

// Complete makes an API call to Anthropic Claude
func (p *AnthropicProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	// Convert messages to Anthropic format
	systemPrompt := ""
	anthropicMessages := []anthropic.MessageParam{}

	for _, msg := range request.Messages {
		// System messages are handled separately
		if msg.Role == "system" {
			systemPrompt = msg.Content
			continue
		}

		// Handle tool results
		if msg.Role == "tool" {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
			continue
		}

		// Handle assistant messages with tool calls
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 {
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, rawArguments(tc.Arguments), tc.Name))
			}
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
			continue
		}

		// Handle regular messages
		if msg.Role == "user" {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		} else if msg.Role == "assistant" {
			anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		}
	}

	// Build request parameters
	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		Messages:  anthropicMessages,
		MaxTokens: int64(p.cfg.MaxTokens),
	}

	if systemPrompt != "" {
		reqParams.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	if p.cfg.Temperature > 0 {
		reqParams.Temperature = anthropic.Float(p.cfg.Temperature)
	}

	// Add tools if provided
	if len(request.Tools) > 0 {
		tools := []anthropic.ToolUnionParam{}
		for _, tool := range request.Tools {
			toolParam := anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.InputSchema["properties"],
				},
			}

			if required, ok := tool.InputSchema["required"]; ok {
				if reqSlice, ok := required.([]interface{}); ok {
					strSlice := make([]string, 0, len(reqSlice))
					for _, v := range reqSlice {
						if s, ok := v.(string); ok {
							strSlice = append(strSlice, s)
						}
					}
					toolParam.InputSchema.Required = strSlice
				}
			}

			tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		reqParams.Tools = tools
	}

	// Make API call
	response, err := p.client.Messages.New(ctx, reqParams)
	if err != nil {
		return nil, fmt.Errorf("message completion failed: %w", err)
	}

	// Extract content and tool calls
	content := ""
	toolCalls := []ToolCall{}

	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += b.Text
		case anthropic.ToolUseBlock:
			toolCalls = append(toolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: b.JSON.Input.Raw(),
			})
		}
	}

	return &Response{
		Content:   content,
		ToolCalls: toolCalls,
	}, nil
}

// HealthCheck probes the API with a minimal completion request
func (p *AnthropicProvider) HealthCheck(ctx context.Context) bool {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: 5,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("test")),
		},
	})
	return err == nil
}

// rawArguments passes model-produced argument JSON through unchanged,
// substituting an empty object when the payload is not valid JSON.
func rawArguments(arguments string) json.RawMessage {
	if !json.Valid([]byte(arguments)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(arguments)
}
