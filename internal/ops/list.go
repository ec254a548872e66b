package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/artifact"
)

// ListDocumentsInput contains parameters for the ListDocuments operation.
type ListDocumentsInput struct {
	Category string // optional filter
	Limit    int    // default: 20, max: 100
	Offset   int    // default: 0
}

// ListDocumentsOutput contains the result of the ListDocuments operation.
type ListDocumentsOutput struct {
	Items      []artifact.Artifact `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Sort       string              `json:"sort"`
}

// ListDocuments retrieves generated documents with pagination, newest first.
func ListDocuments(ctx context.Context, rt *Runtime, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	items, total, err := rt.Documents.List(ctx, strings.TrimSpace(input.Category), limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []artifact.Artifact{}
	}

	return &ListDocumentsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
