package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/purplefish/interviewchat/internal/models"
)

// OpenAI speaks the chat-completions protocol, so it also works with
// compatible gateways through BaseURL.
type OpenAI struct {
	apiKey      string
	base        string
	model       string
	temperature float32
	maxTokens   int
	http        *http.Client
}

type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

func NewOpenAI(o OpenAIOptions) *OpenAI {
	c := &OpenAI{
		apiKey:      o.APIKey,
		base:        strings.TrimRight(o.BaseURL, "/"),
		model:       o.Model,
		temperature: o.Temperature,
		maxTokens:   o.MaxTokens,
		http:        o.HTTPClient,
	}
	if c.base == "" {
		c.base = "https://api.openai.com/v1"
	}
	if c.model == "" {
		c.model = "gpt-4o-mini"
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 500
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role      string  `json:"role"`
			Content   *string `json:"content"`
			ToolCalls []struct {
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func openAITools() []chatTool {
	out := make([]chatTool, 0, len(tools))
	for _, t := range tools {
		prop := map[string]any{"type": "string", "description": t.Param.Description}
		if len(t.Param.Enum) > 0 {
			prop["enum"] = t.Param.Enum
		}
		out = append(out, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{t.Param.Name: prop},
					"required":   []string{t.Param.Name},
				},
			},
		})
	}
	return out
}

func (c *OpenAI) Generate(ctx context.Context, req Request) (*Reply, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	msgs := make([]chatMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, chatMessage{Role: "system", Content: systemOf(req)})
	for _, m := range req.Messages {
		role := "assistant"
		if m.Role == models.RoleUser {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}

	b, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Tools:       openAITools(),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Authorization", "Bearer "+c.apiKey)
	r.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Provider: "openai", Status: resp.StatusCode, Body: string(body)}
	}

	var ch chatResponse
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if len(ch.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedReply)
	}

	msg := ch.Choices[0].Message
	var text string
	if msg.Content != nil {
		text = CleanText(*msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == ToolEndInterview {
			reason, err := EndReasonFromArgs(tc.Function.Arguments)
			if err != nil {
				return nil, err
			}
			return &Reply{Text: text, EndReason: reason}, nil
		}
	}
	return &Reply{Text: text}, nil
}

func (c *OpenAI) Close() error { return nil }
