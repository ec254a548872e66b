// Package pipeline picks a template for an issue, runs the question loop
// against it and fills the template from the collected answers.
package pipeline

import (
	"context"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/templates"
)

// TemplateSource is the read side of the template store.
type TemplateSource interface {
	Catalog(ctx context.Context, scope templates.Scope) ([]templates.Descriptor, error)
	Document(ctx context.Context, scope templates.Scope, filename string) (*docx.Document, error)
}

// Persister stores a filled document under a unique name.
type Persister interface {
	Persist(ctx context.Context, in artifact.Input) (*artifact.Artifact, error)
}

// Options configures every stage of the pipeline.
type Options struct {
	Strategy        string
	CompletionToken string

	Select   config.CallParams
	Question config.CallParams
	Extract  config.CallParams
	Rewrite  config.CallParams
}

// OptionsFromConfig copies the pipeline settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Strategy:        cfg.Strategy,
		CompletionToken: cfg.CompletionToken,
		Select:          cfg.Select,
		Question:        cfg.Question,
		Extract:         cfg.Extract,
		Rewrite:         cfg.Rewrite,
	}
}

// DefaultOptions returns the options of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// Pipeline bundles the three stages over one gateway and template source.
type Pipeline struct {
	Selector *Selector
	Engine   *Engine
	Resolver *Resolver
}

// New wires a pipeline.
func New(gw gateway.Gateway, src TemplateSource, store Persister, opts Options, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if opts.CompletionToken == "" {
		opts.CompletionToken = config.DefaultCompletionToken
	}
	if opts.Strategy == "" {
		opts.Strategy = config.StrategyExtract
	}
	return &Pipeline{
		Selector: &Selector{gw: gw, src: src, params: opts.Select, log: log},
		Engine:   &Engine{gw: gw, src: src, params: opts.Question, token: opts.CompletionToken, log: log},
		Resolver: &Resolver{gw: gw, src: src, store: store, opts: opts, log: log},
	}
}

func scopeOf(sel session.Selection) templates.Scope {
	return templates.Scope{Category: sel.Category, Subtype: sel.Subtype}
}
