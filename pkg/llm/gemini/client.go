// pkg/llm/gemini/client.go
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/pkg/llm"
)

// Client implements the llm.Provider interface on top of the Google GenAI SDK.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New creates a Gemini-backed client with the given configuration.
func New(ctx context.Context, config *llm.Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		client:      client,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}, nil
}

// Complete sends a chat completion request and returns the full response.
// System messages are lifted into the system instruction; Gemini does not
// accept them inside the conversation contents.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	var system strings.Builder
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	genConfig := &genai.GenerateContentConfig{}
	if c.maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(c.maxTokens)
	}
	if c.temperature != 0 {
		temp := c.temperature
		genConfig.Temperature = &temp
	}
	if system.Len() > 0 {
		genConfig.SystemInstruction = genai.NewContentFromText(system.String(), genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	resp := &llm.Response{Content: text.String()}
	if result.UsageMetadata != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}
