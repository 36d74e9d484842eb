// Package copilot talks to the OpenAI Responses API and turns replies
// into structured actions against projects, tickets, and sessions.
package copilot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// SystemPrompt instructs the model to answer with an action envelope.
const SystemPrompt = "You are SWEfoundry Copilot. You help manage projects, tickets, and sessions. " +
	`When you can perform actions, respond with JSON: {"reply": string, "actions": [..]} . ` +
	`Each action is {"type": string, "payload": object}. Supported types: ` +
	"create_ticket, update_ticket, delete_ticket, assign_ticket, add_project_memory, update_project."

// Message is one turn of conversation context sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a thin Responses API client: retrying transport underneath,
// resty on top.
type Client struct {
	http   *resty.Client
	model  string
	logger *zap.Logger
}

// New builds a client. baseURL defaults to the public OpenAI endpoint.
func New(apiKey, model, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{http: httpClient, model: model, logger: logger}
}

// Responses API wire shapes, trimmed to the fields consumed here.
type responsesRequest struct {
	Model string    `json:"model"`
	Input []Message `json:"input"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type responsesResponse struct {
	Output []outputItem `json:"output"`
}

// Query sends the conversation and returns the assistant's reply text.
func (c *Client) Query(ctx context.Context, messages []Message) (string, error) {
	body, err := sonic.Marshal(responsesRequest{Model: c.model, Input: messages})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/responses")
	if err != nil {
		return "", fmt.Errorf("responses api: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("responses api error",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return "", fmt.Errorf("responses api: status %d", resp.StatusCode())
	}

	var parsed responsesResponse
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return extractText(parsed), nil
}

// extractText joins every assistant output_text part.
func extractText(resp responsesResponse) string {
	var texts []string
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}
