package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Selection identifies the template chosen for a session. It is created once
// by the selector and never changes afterwards.
type Selection struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
	Filename string `json:"filename"`
}

// Key is the (category, filename) identity the transcript belongs to.
func (s Selection) Key() string {
	return path.Join(s.Category, s.Subtype, s.Filename)
}

// BaseName returns the filename without its extension.
func (s Selection) BaseName() string {
	return strings.TrimSuffix(s.Filename, path.Ext(s.Filename))
}

// Validate checks that the selection names a template.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Category) == "" {
		return fmt.Errorf("selection has no category")
	}
	if strings.TrimSpace(s.Filename) == "" {
		return fmt.Errorf("selection has no filename")
	}
	return nil
}

type tokenPayload struct {
	V int    `json:"v"`
	C string `json:"c"`
	S string `json:"s,omitempty"`
	F string `json:"f"`
}

const tokenVersion = 1

// Token encodes the selection as an opaque string the client echoes back.
func (s Selection) Token() string {
	b, _ := json.Marshal(tokenPayload{V: tokenVersion, C: s.Category, S: s.Subtype, F: s.Filename})
	return base64.RawURLEncoding.EncodeToString(b)
}

// ParseToken decodes a token produced by Selection.Token.
func ParseToken(token string) (Selection, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Selection{}, fmt.Errorf("malformed selection token")
	}
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Selection{}, fmt.Errorf("malformed selection token")
	}
	if p.V != tokenVersion {
		return Selection{}, fmt.Errorf("unsupported selection token version %d", p.V)
	}
	sel := Selection{Category: p.C, Subtype: p.S, Filename: p.F}
	if err := sel.Validate(); err != nil {
		return Selection{}, err
	}
	return sel, nil
}
