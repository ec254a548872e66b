package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/errors"
)

// DeleteDocumentInput contains parameters for the DeleteDocument operation.
type DeleteDocumentInput struct {
	ID string
}

// DeleteDocumentOutput contains the result of the DeleteDocument operation.
type DeleteDocumentOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteDocument soft-deletes a generated document. Its file is removed by
// the next purge.
func DeleteDocument(ctx context.Context, rt *Runtime, input DeleteDocumentInput) (*DeleteDocumentOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("document id is required")
	}
	if err := rt.Documents.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteDocumentOutput{Deleted: true, ID: id}, nil
}
