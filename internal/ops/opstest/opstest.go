// Package opstest builds a Runtime over a temporary template tree, a
// temporary database and a scripted gateway.
package opstest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/db"
	"github.com/hpungsan/clerk/internal/docx/docxtest"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/ops"
	"github.com/hpungsan/clerk/internal/templates"
)

// Script is a gateway that answers with queued replies in order.
type Script struct {
	mu       sync.Mutex
	replies  []string
	requests []gateway.Request
}

// Push queues replies.
func (s *Script) Push(texts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, texts...)
}

// Requests returns every request seen so far.
func (s *Script) Requests() []gateway.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gateway.Request(nil), s.requests...)
}

// Complete implements gateway.Gateway. It fails when the queue is empty.
func (s *Script) Complete(_ context.Context, req gateway.Request) (gateway.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return gateway.Reply{}, fmt.Errorf("no scripted reply for call %d", len(s.requests))
	}
	text := s.replies[0]
	s.replies = s.replies[1:]
	return gateway.Reply{Text: text}, nil
}

// Fixture is a ready Runtime plus the pieces behind it.
type Fixture struct {
	Runtime *ops.Runtime
	Gateway *Script
	Config  *config.Config
	DB      *sql.DB
	Root    string
}

// Fixture templates.
const (
	Category = "possession"
	Subtype  = "private"
	Notice   = "notice.docx"
	Bundle   = "bundle.docx"
)

// New creates the fixture. The template tree is:
//
//	possession/private/notice.docx   "Claimant: [Claimant Name]" / "Date: [Date]"
//	possession/private/bundle.docx   two "Template for ..." sections
//	possession/private/metadata.json
//	employment/dismissal.docx        no catalog
func New(tb testing.TB) *Fixture {
	tb.Helper()
	base := tb.TempDir()
	root := filepath.Join(base, "templates")

	scopeDir := filepath.Join(root, Category, Subtype)
	docxtest.Write(tb, filepath.Join(scopeDir, Notice),
		docxtest.Paragraph("Claimant: ", "[Claimant Name]"),
		docxtest.Paragraph("Date: [Date]"),
	)
	docxtest.Write(tb, filepath.Join(scopeDir, Bundle),
		docxtest.Paragraph("Template for Section 8 defence"),
		docxtest.Paragraph("[Tenant]"),
		docxtest.Paragraph("Template for Section 21 defence"),
	)
	writeCatalog(tb, scopeDir, []templates.Descriptor{
		{Title: "Section 21 notice defence", Summary: "Defence where no valid notice was served.", Filename: Notice},
		{Title: "Defence bundle", Summary: "Several defences in one file.", Filename: Bundle},
	})
	docxtest.Write(tb, filepath.Join(root, "employment", "dismissal.docx"), docxtest.Paragraph("[Employer]"))

	database, err := db.Init(base)
	if err != nil {
		tb.Fatalf("db.Init: %v", err)
	}
	tb.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.TemplatesDir = root
	cfg.OutputDir = filepath.Join(base, "generated")
	cfg.CatalogCacheSeconds = 0
	cfg.SummarizeIntervalMillis = 0

	gw := &Script{}
	rt, err := ops.NewRuntime(cfg, database, gw, nil)
	if err != nil {
		tb.Fatalf("NewRuntime: %v", err)
	}
	return &Fixture{Runtime: rt, Gateway: gw, Config: cfg, DB: database, Root: root}
}

func writeCatalog(tb testing.TB, dir string, descs []templates.Descriptor) {
	tb.Helper()
	data, err := json.Marshal(descs)
	if err != nil {
		tb.Fatalf("marshal catalog: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, templates.MetadataFile), data, 0o644); err != nil {
		tb.Fatalf("write catalog: %v", err)
	}
}
