package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/pipeline"
	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/storage"
	"github.com/hpungsan/clerk/internal/summarize"
	"github.com/hpungsan/clerk/internal/templates"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Runtime holds everything the operations need. Every adapter (HTTP, MCP,
// CLI) builds one and calls the same operations on it.
type Runtime struct {
	Templates  *templates.Store
	Documents  *storage.Store
	Pipeline   *pipeline.Pipeline
	Summarizer *summarize.Summarizer
	Log        *logger.Logger
}

// NewRuntime wires the template store, document storage and pipeline from cfg.
func NewRuntime(cfg *config.Config, database *sql.DB, gw gateway.Gateway, log *logger.Logger) (*Runtime, error) {
	if log == nil {
		log = logger.Nop()
	}
	tpl := templates.New(cfg.TemplatesDir, time.Duration(cfg.CatalogCacheSeconds)*time.Second)
	docs, err := storage.New(database, cfg.OutputDir, log)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Templates:  tpl,
		Documents:  docs,
		Pipeline:   pipeline.New(gw, tpl, docs, pipeline.OptionsFromConfig(cfg), log),
		Summarizer: summarize.New(gw, tpl, summarize.OptionsFromConfig(cfg), log),
		Log:        log,
	}, nil
}

// SelectionInput addresses a selected template, either by the opaque token
// returned from Start or by category, subtype and filename.
type SelectionInput struct {
	Token    string `json:"token,omitempty"`
	Category string `json:"category,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Resolve validates the addressing fields and returns the selection.
// Rules:
// - token alone is enough
// - any field sent alongside a token must agree with it
// - without a token, category and filename are required
func (in SelectionInput) Resolve() (session.Selection, error) {
	category := strings.TrimSpace(in.Category)
	subtype := strings.TrimSpace(in.Subtype)
	filename := strings.TrimSpace(in.Filename)

	if strings.TrimSpace(in.Token) != "" {
		sel, err := session.ParseToken(in.Token)
		if err != nil {
			return session.Selection{}, errors.NewInvalidRequest(err.Error())
		}
		if category != "" && category != sel.Category {
			return session.Selection{}, errors.NewInvalidRequest("category does not match the selection token")
		}
		if subtype != "" && subtype != sel.Subtype {
			return session.Selection{}, errors.NewInvalidRequest("subtype does not match the selection token")
		}
		if filename != "" && filename != sel.Filename {
			return session.Selection{}, errors.NewInvalidRequest("filename does not match the selection token")
		}
		return sel, nil
	}

	sel := session.Selection{Category: category, Subtype: subtype, Filename: filename}
	if err := sel.Validate(); err != nil {
		return session.Selection{}, errors.NewInvalidRequest(err.Error())
	}
	return sel, nil
}

func scopeOf(category, subtype string) templates.Scope {
	return templates.Scope{Category: strings.TrimSpace(category), Subtype: strings.TrimSpace(subtype)}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
