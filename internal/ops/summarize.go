package ops

import (
	"context"

	"github.com/hpungsan/clerk/internal/summarize"
)

// SummarizeInput restricts a run to one scope. Empty means every folder.
type SummarizeInput struct {
	Category string
	Subtype  string
}

// SummarizeOutput reports per-folder results.
type SummarizeOutput struct {
	Folders    []summarize.FolderResult `json:"folders"`
	Summarized int                      `json:"summarized"`
	Failed     int                      `json:"failed"`
}

// Summarize builds or refreshes metadata.json catalogs.
func Summarize(ctx context.Context, rt *Runtime, input SummarizeInput) (*SummarizeOutput, error) {
	var (
		results []summarize.FolderResult
		err     error
	)
	if input.Category == "" {
		results, err = rt.Summarizer.Run(ctx)
	} else {
		results, err = rt.Summarizer.Folders(ctx, scopeOf(input.Category, input.Subtype))
	}
	if err != nil {
		return nil, err
	}

	out := &SummarizeOutput{Folders: results}
	if out.Folders == nil {
		out.Folders = []summarize.FolderResult{}
	}
	for _, r := range results {
		out.Summarized += r.Summarized
		out.Failed += len(r.Failed)
	}
	return out, nil
}
