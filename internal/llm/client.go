// Package llm implements the OpenRouter chat-completions client used to
// produce structured paper summaries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paperlens-ai/paperlens/internal/domain"
	"github.com/paperlens-ai/paperlens/internal/observability"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client handles communication with the OpenRouter API.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	referer     string
	appName     string
	temperature float64
	httpClient  *http.Client
	logger      *observability.Logger
	retry       *RetryConfig
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Referer     string
	AppName     string
	Temperature float64
	Timeout     time.Duration
	Logger      *observability.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects the completion output mode.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request represents the chat-completions request body.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response represents the chat-completions response body.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// NewClient creates a new LLM client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = observability.DefaultLogger()
	}

	return &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		referer:     opts.Referer,
		appName:     opts.AppName,
		temperature: opts.Temperature,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		logger:      opts.Logger.WithComponent("llm"),
		retry:       DefaultRetryConfig(),
	}
}

// Analyze sends the analysis prompt and parses the structured summary out of
// the model's JSON response. The first attempt requests JSON mode; some
// OpenRouter models reject response_format, so a failed first attempt is
// retried without it and the JSON object is salvaged from the raw text.
func (c *Client) Analyze(ctx context.Context, prompt string) (*domain.Summary, json.RawMessage, error) {
	summary, raw, err := c.complete(ctx, prompt, true)
	if err == nil {
		return summary, raw, nil
	}

	c.logger.Warn().Err(err).Msg("JSON-mode completion failed, retrying without response_format")

	summary, raw, err = c.complete(ctx, prompt, false)
	if err != nil {
		return nil, nil, domain.APIError("OpenRouter API error", err)
	}
	return summary, raw, nil
}

func (c *Client) complete(ctx context.Context, prompt string, jsonMode bool) (*domain.Summary, json.RawMessage, error) {
	system := systemPrompt
	if !jsonMode {
		system = systemPromptStrict
	}

	reqBody := Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	}
	if jsonMode {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, domain.APIError("failed to marshal request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.referer != "" {
			httpReq.Header.Set("HTTP-Referer", c.referer)
		}
		if c.appName != "" {
			httpReq.Header.Set("X-Title", c.appName)
		}

		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, nil, domain.APIError("failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, nil, domain.APIError(
			fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, nil, domain.APIError("failed to parse API response", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, nil, domain.APIError("no choices in API response", nil)
	}

	content := apiResp.Choices[0].Message.Content
	return parseSummary(content)
}

// parseSummary extracts the summary JSON object from the model output.
// Models sometimes wrap the JSON in code fences or prose, so the first
// balanced {...} block is used.
func parseSummary(content string) (*domain.Summary, json.RawMessage, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, nil, fmt.Errorf("no JSON object found in response")
	}

	raw := json.RawMessage(content[start : end+1])

	var summary domain.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, nil, fmt.Errorf("failed to parse summary JSON: %w", err)
	}

	if summary.IsEmpty() {
		return nil, nil, fmt.Errorf("model returned an empty analysis")
	}

	return &summary, raw, nil
}
