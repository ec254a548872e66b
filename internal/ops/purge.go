package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/clerk/internal/errors"
)

// PurgeDocumentsInput contains parameters for the PurgeDocuments operation.
type PurgeDocumentsInput struct {
	OlderThanDays *int // optional, also purge documents created more than N days ago
}

// PurgeDocumentsOutput contains the result of the PurgeDocuments operation.
type PurgeDocumentsOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeDocuments permanently removes deleted documents, and old ones when
// OlderThanDays is set, together with their files.
func PurgeDocuments(ctx context.Context, rt *Runtime, input PurgeDocumentsInput) (*PurgeDocumentsOutput, error) {
	var olderThan *time.Duration
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		d := time.Duration(*input.OlderThanDays) * 24 * time.Hour
		olderThan = &d
	}

	count, err := rt.Documents.Purge(ctx, olderThan)
	if err != nil {
		return nil, err
	}

	return &PurgeDocumentsOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No documents to purge"
	}

	word := "document"
	if count > 1 {
		word = "documents"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted, or created more than %d days ago)", *olderThanDays)
	}
	return msg
}
