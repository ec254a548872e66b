package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/errors"
)

// FetchDocumentInput contains parameters for the FetchDocument operation.
type FetchDocumentInput struct {
	ID string
}

// FetchDocumentOutput contains a stored document and its bytes.
type FetchDocumentOutput struct {
	artifact.Artifact
	Data []byte `json:"-"`
}

// FetchDocument loads a generated document by ID.
func FetchDocument(ctx context.Context, rt *Runtime, input FetchDocumentInput) (*FetchDocumentOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("document id is required")
	}
	a, data, err := rt.Documents.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FetchDocumentOutput{Artifact: *a, Data: data}, nil
}

// Markdown renders the document text as markdown: a heading with the
// download name, then one paragraph per document paragraph.
func (o *FetchDocumentOutput) Markdown() (string, error) {
	doc, err := docx.Open(o.Data)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	var b strings.Builder
	b.WriteString("# " + o.DownloadName + "\n\n")
	for _, line := range strings.Split(doc.Text(), "\n") {
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	if len(o.Unresolved) > 0 {
		b.WriteString("---\n\nUnresolved placeholders: ")
		b.WriteString(strings.Join(o.Unresolved, ", "))
		b.WriteString("\n")
	}
	return b.String(), nil
}
