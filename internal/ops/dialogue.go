package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/session"
)

// StartInput contains parameters for the Start operation.
type StartInput struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
	Issue    string `json:"user_input"`
}

// StartOutput contains the selected template and the first question.
type StartOutput struct {
	Token      string             `json:"token"`
	Filename   string             `json:"filename"`
	Question   string             `json:"question,omitempty"`
	Complete   bool               `json:"complete"`
	Transcript session.Transcript `json:"messages"`
}

// Start selects the template that best fits the issue and asks the first
// question about it.
func Start(ctx context.Context, rt *Runtime, input StartInput) (*StartOutput, error) {
	scope := scopeOf(input.Category, input.Subtype)
	if scope.Category == "" {
		return nil, errors.NewInvalidRequest("category is required")
	}

	sel, err := rt.Pipeline.Selector.Select(ctx, scope, input.Issue)
	if err != nil {
		return nil, err
	}

	step, err := rt.Pipeline.Engine.Next(ctx, sel, session.Transcript{})
	if err != nil {
		return nil, err
	}

	return &StartOutput{
		Token:      sel.Token(),
		Filename:   sel.Filename,
		Question:   step.Question,
		Complete:   step.Complete,
		Transcript: step.Transcript,
	}, nil
}

// NextInput contains parameters for the Next operation.
type NextInput struct {
	SelectionInput
	Messages session.Transcript `json:"messages"`
}

// NextOutput contains the next question, or Complete once the model has
// collected enough answers. Reply carries the raw reply the way older
// clients expect it: the question, or the completion token.
type NextOutput struct {
	Reply      string             `json:"reply"`
	Question   string             `json:"question,omitempty"`
	Complete   bool               `json:"complete"`
	Transcript session.Transcript `json:"messages"`
}

// Next continues the dialogue for a selected template.
func Next(ctx context.Context, rt *Runtime, input NextInput) (*NextOutput, error) {
	sel, err := input.Resolve()
	if err != nil {
		return nil, err
	}

	step, err := rt.Pipeline.Engine.Next(ctx, sel, input.Messages)
	if err != nil {
		return nil, err
	}

	reply := step.Question
	if step.Complete {
		reply = rt.Pipeline.Engine.CompletionToken()
	}
	return &NextOutput{
		Reply:      reply,
		Question:   step.Question,
		Complete:   step.Complete,
		Transcript: step.Transcript,
	}, nil
}

// CompleteInput contains parameters for the Complete operation.
type CompleteInput struct {
	SelectionInput
	Messages session.Transcript `json:"messages"`
}

// CompleteOutput holds either the filled document or one more question.
type CompleteOutput struct {
	DocumentID   string             `json:"document_id,omitempty"`
	DownloadName string             `json:"download_name,omitempty"`
	Path         string             `json:"path,omitempty"`
	Unresolved   []string           `json:"unresolved"`
	NextQuestion string             `json:"next_question,omitempty"`
	Transcript   session.Transcript `json:"messages"`

	Data []byte `json:"-"`
	Text string `json:"-"`
}

// HasDocument reports whether the output carries a filled document.
func (o *CompleteOutput) HasDocument() bool {
	return o.NextQuestion == ""
}

// UnresolvedHeader joins the unresolved labels for a response header.
func (o *CompleteOutput) UnresolvedHeader() string {
	return strings.Join(o.Unresolved, ", ")
}

// Complete fills the selected template from the dialogue and stores the
// result.
func Complete(ctx context.Context, rt *Runtime, input CompleteInput) (*CompleteOutput, error) {
	sel, err := input.Resolve()
	if err != nil {
		return nil, err
	}

	outcome, err := rt.Pipeline.Resolver.Fill(ctx, sel, input.Messages)
	if err != nil {
		return nil, err
	}

	out := &CompleteOutput{
		Unresolved: []string{},
		Transcript: outcome.Transcript,
	}
	if outcome.Document == nil {
		out.NextQuestion = outcome.NextQuestion
		return out, nil
	}

	doc := outcome.Document
	out.DownloadName = doc.DownloadName()
	out.Data = doc.Data
	out.Text = doc.Text
	if len(doc.Unresolved) > 0 {
		out.Unresolved = doc.Unresolved
	}
	if doc.Artifact != nil {
		out.DocumentID = doc.Artifact.ID
		out.Path = doc.Artifact.Path
	}
	return out, nil
}
