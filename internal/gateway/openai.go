package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/session"
)

// OpenAI talks to an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Log     *logger.Logger
}

// NewOpenAI creates a client. An empty baseURL means api.openai.com.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration, log *logger.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OpenAI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
	}
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []session.Turn `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat any            `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request. Models that reject
// response_format are retried once without it.
func (c *OpenAI) Complete(ctx context.Context, req Request) (Reply, error) {
	if c.APIKey == "" {
		return Reply{}, errors.NewService(fmt.Errorf("OPENAI_API_KEY is not set"))
	}
	start := time.Now()

	reply, out, status, raw, err := c.do(ctx, req, req.JSON)
	if err != nil {
		return Reply{}, errors.NewService(err)
	}
	if !ok(status) && req.JSON && out != nil && out.Error != nil &&
		strings.Contains(strings.ToLower(out.Error.Message), "response_format") {
		reply, out, status, raw, err = c.do(ctx, req, false)
		if err != nil {
			return Reply{}, errors.NewService(err)
		}
	}
	if !ok(status) {
		if out != nil && out.Error != nil && out.Error.Message != "" {
			return Reply{}, errors.NewServiceStatus(status, out.Error.Message)
		}
		return Reply{}, errors.NewServiceStatus(status, truncate(string(raw), 200))
	}

	c.Log.Info("gateway call",
		"model", c.Model,
		"prompt_tokens", reply.Usage.PromptTokens,
		"completion_tokens", reply.Usage.CompletionTokens,
		"total_tokens", reply.Usage.TotalTokens,
		"duration", time.Since(start),
	)
	return reply, nil
}

func (c *OpenAI) do(ctx context.Context, req Request, forceJSON bool) (Reply, *chatCompletionResponse, int, []byte, error) {
	body := chatCompletionRequest{
		Model:       c.Model,
		Messages:    req.Messages(),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if forceJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return Reply{}, nil, 0, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return Reply{}, nil, 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Reply{}, nil, 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, nil, resp.StatusCode, nil, err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if !ok(resp.StatusCode) {
			return Reply{}, nil, resp.StatusCode, raw, nil
		}
		return Reply{}, nil, resp.StatusCode, raw, fmt.Errorf("decode response: %w", err)
	}
	if !ok(resp.StatusCode) {
		return Reply{}, &out, resp.StatusCode, raw, nil
	}
	if len(out.Choices) == 0 {
		return Reply{}, &out, resp.StatusCode, raw, fmt.Errorf("openai: empty choices")
	}

	return Reply{Text: out.Choices[0].Message.Content, Usage: out.Usage}, &out, resp.StatusCode, raw, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
