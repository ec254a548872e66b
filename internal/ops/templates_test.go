package ops_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/ops"
	"github.com/hpungsan/clerk/internal/ops/opstest"
	"github.com/hpungsan/clerk/internal/templates"
)

func TestCategories(t *testing.T) {
	f := opstest.New(t)

	out, err := ops.Categories(context.Background(), f.Runtime)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"employment": {},
		"possession": {"private"},
	}, out.Categories)
}

func TestCatalogAndTemplates(t *testing.T) {
	f := opstest.New(t)
	ctx := context.Background()
	in := ops.ScopeInput{Category: opstest.Category, Subtype: opstest.Subtype}

	cat, err := ops.Catalog(ctx, f.Runtime, in)
	require.NoError(t, err)
	require.Len(t, cat.Templates, 2)
	assert.Equal(t, opstest.Notice, cat.Templates[0].Filename)
	assert.Equal(t, "possession/private", cat.Scope.String())

	files, err := ops.Templates(ctx, f.Runtime, in)
	require.NoError(t, err)
	assert.Equal(t, []string{opstest.Bundle, opstest.Notice}, files.Templates)

	_, err = ops.Templates(ctx, f.Runtime, ops.ScopeInput{Category: "nope"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = ops.Catalog(ctx, f.Runtime, ops.ScopeInput{Category: ".."})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSections(t *testing.T) {
	f := opstest.New(t)
	ctx := context.Background()

	out, err := ops.Sections(ctx, f.Runtime, ops.TemplateInput{Category: opstest.Category, Subtype: opstest.Subtype, Name: opstest.Bundle})
	require.NoError(t, err)
	assert.Equal(t, []string{"Template for Section 8 defence", "Template for Section 21 defence"}, out.Sections)

	out, err = ops.Sections(ctx, f.Runtime, ops.TemplateInput{Category: opstest.Category, Subtype: opstest.Subtype, Name: opstest.Notice})
	require.NoError(t, err)
	assert.Equal(t, []string{templates.FullDocumentSection}, out.Sections)

	_, err = ops.Sections(ctx, f.Runtime, ops.TemplateInput{Category: opstest.Category})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = ops.Sections(ctx, f.Runtime, ops.TemplateInput{Category: opstest.Category, Subtype: opstest.Subtype, Name: "../../etc/passwd"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestTemplateFile(t *testing.T) {
	f := opstest.New(t)

	out, err := ops.TemplateFile(context.Background(), f.Runtime, ops.TemplateInput{Category: "employment", Name: "dismissal.docx"})
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join(f.Root, "employment", "dismissal.docx"))
	require.NoError(t, err)
	got, err := base64.StdEncoding.DecodeString(out.Base64)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ops.TemplateFile(context.Background(), f.Runtime, ops.TemplateInput{Category: "employment", Name: "missing.docx"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSummarize(t *testing.T) {
	f := opstest.New(t)
	ctx := context.Background()

	f.Gateway.Push(`{"title": "Unfair dismissal", "summary": "Claim against an employer."}`)
	out, err := ops.Summarize(ctx, f.Runtime, ops.SummarizeInput{Category: "employment"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summarized)
	assert.Equal(t, 0, out.Failed)

	cat, err := ops.Catalog(ctx, f.Runtime, ops.ScopeInput{Category: "employment"})
	require.NoError(t, err)
	assert.Equal(t, []templates.Descriptor{
		{Title: "Unfair dismissal", Summary: "Claim against an employer.", Filename: "dismissal.docx"},
	}, cat.Templates)

	// everything is cached now: a full run makes no calls
	before := len(f.Gateway.Requests())
	out, err = ops.Summarize(ctx, f.Runtime, ops.SummarizeInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Summarized)
	assert.Len(t, out.Folders, 2)
	assert.Len(t, f.Gateway.Requests(), before)
}
