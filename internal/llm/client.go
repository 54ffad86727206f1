// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = "gpt-oss-120b"
	DefaultVisionModel = "gemma3-27b"
)

var ErrEmptyResponse = errors.New("llm: empty response")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// Client wraps go-openai with the three call shapes the agent uses.
type Client struct {
	api         *openai.Client
	model       string
	visionModel string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: API key not set; provide OPENAI_API_KEY or AI_TOKEN")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = DefaultVisionModel
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       model,
		visionModel: vision,
	}, nil
}

// Complete returns the assistant's text reply.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	return c.create(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  textMessages(system, user),
		MaxTokens: maxTokens,
	})
}

// CompleteJSON asks for a JSON object and decodes it into out.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, maxTokens int, out any) error {
	content, err := c.create(ctx, openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       textMessages(system, user),
		MaxTokens:      maxTokens,
		ResponseFormat: jsonObject(),
	})
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

// CompleteImageJSON sends text plus an image (as a data URL) to the vision
// model and decodes the JSON reply into out.
func (c *Client) CompleteImageJSON(ctx context.Context, system, text, imageURL string, maxTokens int, out any) error {
	content, err := c.create(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: text},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
		MaxTokens:      maxTokens,
		ResponseFormat: jsonObject(),
	})
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

func (c *Client) create(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion (%s): %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func textMessages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func jsonObject() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}

// DecodeJSON strips a surrounding Markdown code fence, if any, and decodes
// the remaining JSON object into out.
func DecodeJSON(content string, out any) error {
	s := StripCodeFence(content)
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("llm: decode JSON reply: %w", err)
	}
	return nil
}

// StripCodeFence removes ```json ... ``` wrapping from s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
