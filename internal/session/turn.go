// Package session holds the conversational state a client carries between
// requests: the typed transcript, the template selection and the answers
// derived from them.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role string. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSystem:
		return RoleSystem, nil
	case RoleUser:
		return RoleUser, nil
	case RoleAssistant:
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("invalid role %q (want system, user or assistant)", s)
	}
}

// Turn is one message in a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System, User and Assistant build turns.
func System(content string) Turn    { return Turn{Role: RoleSystem, Content: content} }
func User(content string) Turn      { return Turn{Role: RoleUser, Content: content} }
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// UnmarshalJSON validates the role at the boundary.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role, err := ParseRole(raw.Role)
	if err != nil {
		return err
	}
	t.Role = role
	t.Content = raw.Content
	return nil
}

// Label renders the role the way prompts show it ("User", "Assistant").
func (r Role) Label() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
