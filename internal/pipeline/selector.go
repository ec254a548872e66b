package pipeline

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/templates"
)

// Selector picks the catalog entry that best fits an issue description.
type Selector struct {
	gw     gateway.Gateway
	src    TemplateSource
	params config.CallParams
	log    *logger.Logger
}

// Select asks the model for one filename from the scope's catalog. The reply
// is untrusted: it must equal a catalog filename (case-insensitively) or the
// call fails with NO_MATCH.
func (s *Selector) Select(ctx context.Context, scope templates.Scope, issue string) (session.Selection, error) {
	if strings.TrimSpace(issue) == "" {
		return session.Selection{}, errors.NewInvalidRequest("issue text is required")
	}

	catalog, err := s.src.Catalog(ctx, scope)
	if err != nil {
		return session.Selection{}, err
	}

	reply, err := s.gw.Complete(ctx, gateway.Request{
		History:     []session.Turn{session.User(selectionPrompt(issue, catalog))},
		Temperature: s.params.Temperature,
		MaxTokens:   s.params.MaxTokens,
	})
	if err != nil {
		return session.Selection{}, errors.AsService(err)
	}

	chosen := cleanFilename(reply.Text)
	for _, d := range catalog {
		if strings.EqualFold(strings.TrimSpace(d.Filename), chosen) {
			sel := session.Selection{Category: scope.Category, Subtype: scope.Subtype, Filename: d.Filename}
			s.log.Info("template selected", "scope", scope.String(), "filename", d.Filename)
			return sel, nil
		}
	}

	s.log.Warn("model selected unknown template", "scope", scope.String(), "reply", reply.Text)
	return session.Selection{}, errors.NewNoMatch(chosen)
}

// cleanFilename strips whitespace and the quoting models like to add.
func cleanFilename(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'`"))
}
