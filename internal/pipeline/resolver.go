package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/placeholder"
	"github.com/hpungsan/clerk/internal/session"
)

// FilledDocument is a template with its placeholders substituted. The
// source template is never modified.
type FilledDocument struct {
	Selection  session.Selection
	Data       []byte
	Text       string
	Unresolved []string
	Artifact   *artifact.Artifact
}

// DownloadName is the user-facing file name, "filled_<template>".
func (f *FilledDocument) DownloadName() string {
	return artifact.DownloadName(f.Selection.Filename)
}

// Outcome is either a filled document or, under the whole-document strategy,
// one more question.
type Outcome struct {
	Document     *FilledDocument
	NextQuestion string
	Transcript   session.Transcript
}

// Resolver fills templates from a transcript.
type Resolver struct {
	gw    gateway.Gateway
	src   TemplateSource
	store Persister
	opts  Options
	log   *logger.Logger
}

// Fill produces the filled document for sel.
func (r *Resolver) Fill(ctx context.Context, sel session.Selection, tr session.Transcript) (Outcome, error) {
	if err := sel.Validate(); err != nil {
		return Outcome{}, errors.NewInvalidRequest(err.Error())
	}
	doc, err := r.src.Document(ctx, scopeOf(sel), sel.Filename)
	if err != nil {
		return Outcome{}, err
	}

	var unresolved []string
	switch r.opts.Strategy {
	case config.StrategyWhole:
		question, missing, err := r.rewrite(ctx, doc, tr)
		if err != nil {
			return Outcome{}, err
		}
		if question != "" {
			return Outcome{NextQuestion: question, Transcript: tr.Append(session.Assistant(question))}, nil
		}
		unresolved = missing
	default:
		unresolved, err = r.extract(ctx, doc, tr)
		if err != nil {
			return Outcome{}, err
		}
	}

	for _, label := range unresolved {
		r.log.Warn("missing value for placeholder", "placeholder", placeholder.Token(label), "template", sel.Key())
	}

	data, err := doc.Bytes()
	if err != nil {
		return Outcome{}, errors.NewInternal(err)
	}
	filled := &FilledDocument{
		Selection:  sel,
		Data:       data,
		Text:       doc.Text(),
		Unresolved: unresolved,
	}

	if r.store != nil {
		a, err := r.store.Persist(ctx, artifact.Input{
			Category:   sel.Category,
			Subtype:    sel.Subtype,
			Template:   sel.Filename,
			Strategy:   r.opts.Strategy,
			Unresolved: unresolved,
			Data:       data,
		})
		if err != nil {
			return Outcome{}, err
		}
		filled.Artifact = a
	}
	return Outcome{Document: filled, Transcript: tr}, nil
}

// extract asks for a label -> value map and substitutes it into every
// paragraph and table cell. It returns the distinct unanswered labels.
func (r *Resolver) extract(ctx context.Context, doc *docx.Document, tr session.Transcript) ([]string, error) {
	reply, err := r.gw.Complete(ctx, gateway.Request{
		System:      extractionPrompt,
		History:     []session.Turn{session.User(extractionInput(doc.Text(), tr))},
		Temperature: r.opts.Extract.Temperature,
		MaxTokens:   r.opts.Extract.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, errors.AsService(err)
	}

	values, err := parseAnswerMap(reply.Text)
	if err != nil {
		return nil, err
	}
	answers := session.NewAnswerSet(values)
	r.log.Info("answers extracted", "keys", answers.Keys(), "exchanges", len(tr.Exchanges()))
	return fillParagraphs(doc, answers), nil
}

func fillParagraphs(doc *docx.Document, answers session.AnswerSet) []string {
	var unresolved []string
	seen := make(map[string]bool)
	doc.Walk(func(p docx.Paragraph) {
		replacements, missing := placeholder.Resolve(p.Text(), answers)
		if len(replacements) > 0 {
			p.ReplaceAll(placeholder.NewReplacer(replacements))
		}
		unresolved = appendUnseen(unresolved, seen, missing)
	})
	return unresolved
}

func appendUnseen(out []string, seen map[string]bool, labels []string) []string {
	for _, label := range labels {
		key := placeholder.NormalizeKey(label)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, label)
	}
	return out
}

type rewriteReply struct {
	Status   string `json:"status"`
	Question string `json:"question"`
	Document string `json:"document"`
}

// rewrite asks the model for either one more question or the whole filled
// body. On a body it replaces the document content and returns the
// placeholders still left in it.
func (r *Resolver) rewrite(ctx context.Context, doc *docx.Document, tr session.Transcript) (string, []string, error) {
	reply, err := r.gw.Complete(ctx, gateway.Request{
		System:      rewritePrompt(),
		History:     []session.Turn{session.User(rewriteInput(doc.Text(), tr))},
		Temperature: r.opts.Rewrite.Temperature,
		MaxTokens:   r.opts.Rewrite.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return "", nil, errors.AsService(err)
	}

	var out rewriteReply
	if err := json.Unmarshal([]byte(gateway.StripCodeFence(reply.Text)), &out); err != nil {
		return "", nil, errors.NewMalformedAIOutput("invalid JSON: " + err.Error())
	}

	switch strings.ToLower(strings.TrimSpace(out.Status)) {
	case "question":
		q := strings.TrimSpace(out.Question)
		if q == "" {
			return "", nil, errors.NewMalformedAIOutput("question status without a question")
		}
		return q, nil, nil
	case "document":
		if strings.TrimSpace(out.Document) == "" {
			return "", nil, errors.NewMalformedAIOutput("document status without a document")
		}
		body := strings.ReplaceAll(out.Document, "\r\n", "\n")
		doc.ReplaceBody(strings.Split(body, "\n"))
		return "", appendUnseen(nil, make(map[string]bool), placeholder.Unique(body)), nil
	default:
		return "", nil, errors.NewMalformedAIOutput(fmt.Sprintf("unknown status %q", out.Status))
	}
}

// parseAnswerMap decodes the model's label -> value object. Scalars are
// rendered as text (numbers verbatim, never through float64), nulls are treated as unanswered; anything else, an empty
// object or invalid JSON is malformed output.
func parseAnswerMap(text string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(gateway.StripCodeFence(text)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewMalformedAIOutput("invalid JSON: " + err.Error())
	}
	if dec.More() {
		return nil, errors.NewMalformedAIOutput("invalid JSON: trailing data after object")
	}
	if len(raw) == 0 {
		return nil, errors.NewMalformedAIOutput("empty answer object")
	}

	values := make(map[string]string, len(raw))
	for label, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			values[label] = val
		case json.Number:
			values[label] = val.String()
		case bool:
			values[label] = strconv.FormatBool(val)
		default:
			return nil, errors.NewMalformedAIOutput(fmt.Sprintf("value for %q is not a string", label))
		}
	}
	return values, nil
}
