package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/clerk/internal/docx/docxtest"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/templates"
)

func readCatalog(t *testing.T, path string) []templates.Descriptor {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []templates.Descriptor
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	docxtest.Write(t, filepath.Join(root, "employment", "dismissal.docx"), docxtest.Paragraph("Unfair dismissal claim"))
	docxtest.Write(t, filepath.Join(root, "employment", "broken.docx"), docxtest.Paragraph("FAIL me"))
	docxtest.Write(t, filepath.Join(root, "possession", "private", "notice.docx"), docxtest.Paragraph("Section 21"))
	docxtest.Write(t, filepath.Join(root, "possession", "private", "cached.docx"), docxtest.Paragraph("old"))

	cached := []templates.Descriptor{
		{Title: "Cached", Summary: "Kept as is", Filename: "cached.docx"},
		{Title: "Removed", Summary: "File no longer exists", Filename: "gone.docx"},
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "possession", "private", templates.MetadataFile), data, 0o644))

	var calls atomic.Int32
	gw := gateway.Func(func(_ context.Context, req gateway.Request) (gateway.Reply, error) {
		calls.Add(1)
		content := req.History[0].Content
		switch {
		case strings.Contains(content, "FAIL"):
			return gateway.Reply{}, fmt.Errorf("quota exceeded")
		case strings.Contains(content, "Unfair dismissal"):
			return gateway.Reply{Text: `{"title": "Unfair Dismissal Claim", "summary": "Claim for unfair dismissal."}`}, nil
		default:
			return gateway.Reply{Text: "Title: Section 21 Defence\nSummary: Defends against a section 21 notice."}, nil
		}
	})

	store := templates.New(root, 0)
	s := New(gw, store, Options{Workers: 2}, nil)

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 3, calls.Load())

	byScope := map[string]FolderResult{}
	for _, r := range results {
		byScope[r.Scope.String()] = r
	}

	emp := byScope["employment"]
	assert.Equal(t, 1, emp.Summarized)
	assert.Equal(t, []string{"broken.docx"}, emp.Failed)
	assert.Equal(t, []templates.Descriptor{
		{Title: "Unfair Dismissal Claim", Summary: "Claim for unfair dismissal.", Filename: "dismissal.docx"},
	}, readCatalog(t, filepath.Join(root, "employment", templates.MetadataFile)))

	priv := byScope["possession/private"]
	assert.Equal(t, 1, priv.Cached)
	assert.Equal(t, 1, priv.Summarized)
	assert.Equal(t, []templates.Descriptor{
		{Title: "Cached", Summary: "Kept as is", Filename: "cached.docx"},
		{Title: "Section 21 Defence", Summary: "Defends against a section 21 notice.", Filename: "notice.docx"},
	}, readCatalog(t, filepath.Join(root, "possession", "private", templates.MetadataFile)))

	// the new catalog is usable by the store right away
	catalog, err := store.Catalog(context.Background(), templates.Scope{Category: "possession", Subtype: "private"})
	require.NoError(t, err)
	assert.Len(t, catalog, 2)

	// second run only hits the failed file
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load())
}

func TestRun_Cancelled(t *testing.T) {
	root := t.TempDir()
	docxtest.Write(t, filepath.Join(root, "c", "a.docx"), docxtest.Paragraph("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := gateway.Func(func(ctx context.Context, _ gateway.Request) (gateway.Reply, error) {
		return gateway.Reply{}, ctx.Err()
	})
	s := New(gw, templates.New(root, 0), Options{}, nil)

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(root, "c", templates.MetadataFile))
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		title   string
		summary string
	}{
		{"json", `{"title": " T ", "summary": "S"}`, "T", "S"},
		{"labelled lines", "Title: T\nSummary: S", "T", "S"},
		{"numbered lines", "1. Title: T\n\n2. Summary: S more", "T", "S more"},
		{"title only", "Just a title", "Just a title", ""},
		{"empty", "  ", "", ""},
		{"fenced json", "```json\n{\"title\": \"Rent Demand\", \"summary\": \"S\"}\n```", "Rent Demand", "S"},
		{"fenced lines", "```\nTitle: T\nSummary: S\n```", "T", "S"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, summary := parseSummary(tt.text)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.summary, summary)
		})
	}
}
