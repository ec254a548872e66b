package session

import (
	"encoding/json"
	"strings"
)

// TemplateTurnPrefix starts the turn that carries the raw template text.
// Clients that echo the engine's leading turns back are tolerated: those
// turns are stripped by Dialogue.
const TemplateTurnPrefix = "This is the template:"

// Transcript is an ordered, append-only list of turns. The zero value is an
// empty transcript. Append never modifies the receiver, so a failed gateway
// call can never leave a half-updated transcript behind.
type Transcript struct {
	turns []Turn
}

// NewTranscript copies turns into a transcript.
func NewTranscript(turns ...Turn) Transcript {
	return Transcript{turns: append([]Turn(nil), turns...)}
}

// Append returns a new transcript with t added at the end.
func (tr Transcript) Append(t ...Turn) Transcript {
	out := make([]Turn, 0, len(tr.turns)+len(t))
	out = append(out, tr.turns...)
	out = append(out, t...)
	return Transcript{turns: out}
}

// Turns returns a copy of all turns.
func (tr Transcript) Turns() []Turn {
	return append([]Turn(nil), tr.turns...)
}

// Len returns the number of turns.
func (tr Transcript) Len() int {
	return len(tr.turns)
}

// Dialogue returns the question/answer part of the transcript: leading system
// turns and a leading template turn are dropped.
func (tr Transcript) Dialogue() []Turn {
	i := 0
	for i < len(tr.turns) && tr.turns[i].Role == RoleSystem {
		i++
	}
	if i < len(tr.turns) && isTemplateTurn(tr.turns[i]) {
		i++
	}
	return append([]Turn(nil), tr.turns[i:]...)
}

func isTemplateTurn(t Turn) bool {
	return t.Role != RoleAssistant && strings.HasPrefix(strings.TrimSpace(t.Content), TemplateTurnPrefix)
}

// Exchange is a question asked by the assistant and the user's answer.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Exchanges pairs each answer with the question immediately before it. Only
// user turns at odd dialogue positions that follow an assistant turn count.
func (tr Transcript) Exchanges() []Exchange {
	turns := tr.Dialogue()
	var out []Exchange
	for i := 1; i < len(turns); i += 2 {
		if turns[i].Role != RoleUser || turns[i-1].Role != RoleAssistant {
			continue
		}
		out = append(out, Exchange{Question: turns[i-1].Content, Answer: turns[i].Content})
	}
	return out
}

// Format renders the dialogue as "Role: content" lines for prompts.
func (tr Transcript) Format() string {
	turns := tr.Dialogue()
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role.Label()+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON encodes the transcript as a plain array of turns.
func (tr Transcript) MarshalJSON() ([]byte, error) {
	if tr.turns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(tr.turns)
}

// UnmarshalJSON decodes an array of turns, validating every role.
func (tr *Transcript) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}
	tr.turns = turns
	return nil
}
