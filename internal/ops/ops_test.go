package ops

import (
	"testing"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/session"
)

func TestSelectionInput_ByToken(t *testing.T) {
	sel := session.Selection{Category: "possession", Subtype: "private", Filename: "notice.docx"}

	got, err := SelectionInput{Token: sel.Token()}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != sel {
		t.Errorf("Resolve = %+v, want %+v", got, sel)
	}

	// matching fields alongside the token are fine
	got, err = SelectionInput{Token: sel.Token(), Category: "possession", Filename: "notice.docx"}.Resolve()
	if err != nil {
		t.Fatalf("Resolve with matching fields failed: %v", err)
	}
	if got != sel {
		t.Errorf("Resolve = %+v, want %+v", got, sel)
	}
}

func TestSelectionInput_TokenMismatch(t *testing.T) {
	token := session.Selection{Category: "possession", Filename: "notice.docx"}.Token()

	tests := []struct {
		name  string
		input SelectionInput
	}{
		{"category", SelectionInput{Token: token, Category: "employment"}},
		{"subtype", SelectionInput{Token: token, Subtype: "local"}},
		{"filename", SelectionInput{Token: token, Filename: "other.docx"}},
		{"malformed", SelectionInput{Token: "not a token!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.input.Resolve()
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("Resolve error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestSelectionInput_ByFields(t *testing.T) {
	got, err := SelectionInput{Category: " possession ", Filename: "notice.docx"}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Category != "possession" || got.Subtype != "" || got.Filename != "notice.docx" {
		t.Errorf("Resolve = %+v", got)
	}

	if _, err := (SelectionInput{Category: "possession"}).Resolve(); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing filename error = %v, want INVALID_REQUEST", err)
	}
	if _, err := (SelectionInput{Filename: "notice.docx"}).Resolve(); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing category error = %v, want INVALID_REQUEST", err)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: DefaultListLimit, -5: DefaultListLimit, 7: 7, 1000: MaxListLimit}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFormatPurgeMessage(t *testing.T) {
	days := 7
	tests := []struct {
		count int
		days  *int
		want  string
	}{
		{0, nil, "No documents to purge"},
		{1, nil, "Permanently deleted 1 document"},
		{3, &days, "Permanently deleted 3 documents (deleted, or created more than 7 days ago)"},
	}
	for _, tt := range tests {
		if got := formatPurgeMessage(tt.count, tt.days); got != tt.want {
			t.Errorf("formatPurgeMessage(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}
