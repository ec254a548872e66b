package pipeline

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/session"
)

// Step is the outcome of one dialogue turn.
type Step struct {
	// Question is the next question; empty when Complete.
	Question string `json:"question,omitempty"`
	// Complete is true once the model has nothing left to ask.
	Complete bool `json:"complete"`
	// Transcript is the input transcript plus the new assistant turn.
	Transcript session.Transcript `json:"transcript"`
}

// Engine drives the question loop. It has two states: asking, and complete
// once the model replies with the completion token.
type Engine struct {
	gw     gateway.Gateway
	src    TemplateSource
	params config.CallParams
	token  string
	log    *logger.Logger
}

// CompletionToken returns the reserved reply that ends the dialogue.
func (e *Engine) CompletionToken() string {
	return e.token
}

// IsComplete reports whether a reply is the completion token. Surrounding
// whitespace and quotes are ignored.
func (e *Engine) IsComplete(reply string) bool {
	return cleanFilename(reply) == e.token
}

// Next asks for the next question about sel given the dialogue so far. On
// error the caller's transcript is untouched and the turn can be replayed.
func (e *Engine) Next(ctx context.Context, sel session.Selection, tr session.Transcript) (Step, error) {
	if err := sel.Validate(); err != nil {
		return Step{}, errors.NewInvalidRequest(err.Error())
	}

	dialogue := tr.Dialogue()
	for _, t := range dialogue {
		if t.Role == session.RoleAssistant && e.IsComplete(t.Content) {
			return Step{Complete: true, Transcript: session.NewTranscript(dialogue...)}, nil
		}
	}

	doc, err := e.src.Document(ctx, scopeOf(sel), sel.Filename)
	if err != nil {
		return Step{}, err
	}

	history := make([]session.Turn, 0, len(dialogue)+1)
	history = append(history, templateTurn(doc.Text()))
	history = append(history, dialogue...)

	reply, err := e.gw.Complete(ctx, gateway.Request{
		System:      questionPrompt(e.token),
		History:     history,
		Temperature: e.params.Temperature,
		MaxTokens:   e.params.MaxTokens,
	})
	if err != nil {
		return Step{}, errors.AsService(err)
	}

	current := session.NewTranscript(dialogue...)
	if e.IsComplete(reply.Text) {
		e.log.Info("dialogue complete", "template", sel.Key(), "turns", len(dialogue))
		return Step{Complete: true, Transcript: current}, nil
	}

	question := strings.TrimSpace(reply.Text)
	if question == "" {
		return Step{}, errors.NewMalformedAIOutput("empty question")
	}
	return Step{Question: question, Transcript: current.Append(session.Assistant(question))}, nil
}
