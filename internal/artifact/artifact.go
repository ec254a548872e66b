// Package artifact describes generated documents and how they are named.
package artifact

import (
	"path/filepath"
	"strings"
)

// DownloadPrefix starts the user-facing name of every filled document.
const DownloadPrefix = "filled_"

// Artifact is a generated document written to output storage.
type Artifact struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Subtype      string   `json:"subtype,omitempty"`
	Template     string   `json:"template"`
	StoredName   string   `json:"stored_name"`
	DownloadName string   `json:"download_name"`
	Path         string   `json:"path"`
	Size         int64    `json:"size"`
	Strategy     string   `json:"strategy"`
	Unresolved   []string `json:"unresolved"`
	CreatedAt    int64    `json:"created_at"`
}

// Input is what a persister needs to store one filled document.
type Input struct {
	Category   string
	Subtype    string
	Template   string
	Strategy   string
	Unresolved []string
	Data       []byte
}

// StoredName returns "<base>_<id><ext>" for a template filename.
func StoredName(template, id string) string {
	ext := filepath.Ext(template)
	base := strings.TrimSuffix(template, ext)
	if ext == "" {
		ext = ".docx"
	}
	return base + "_" + id + ext
}

// DownloadName returns the name a filled copy of template is offered under.
func DownloadName(template string) string {
	return DownloadPrefix + template
}
