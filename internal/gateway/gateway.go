// Package gateway is the boundary to the language model.
package gateway

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/session"
)

// Request is one chat completion call.
type Request struct {
	// System is sent as the leading system turn when non-empty.
	System string
	// History follows the system turn in order.
	History []session.Turn

	Temperature float64
	MaxTokens   int

	// JSON asks the model for a single JSON object.
	JSON bool
}

// Usage is the token accounting of one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is the model's answer.
type Reply struct {
	Text  string
	Usage Usage
}

// Gateway completes a conversation. Transport, quota and auth failures are
// reported as SERVICE_ERROR.
type Gateway interface {
	Complete(ctx context.Context, req Request) (Reply, error)
}

// Func adapts a function to Gateway.
type Func func(ctx context.Context, req Request) (Reply, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, req Request) (Reply, error) {
	return f(ctx, req)
}

// Messages flattens a request into the turn list sent over the wire.
func (r Request) Messages() []session.Turn {
	out := make([]session.Turn, 0, len(r.History)+1)
	if r.System != "" {
		out = append(out, session.System(r.System))
	}
	return append(out, r.History...)
}

// StripCodeFence removes a markdown code fence the model may wrap a JSON
// reply in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
