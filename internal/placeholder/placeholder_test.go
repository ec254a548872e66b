package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapLookup map[string]string

func (m mapLookup) Lookup(label string) (string, bool) {
	v, ok := m[NormalizeKey(label)]
	return v, ok
}

func TestFind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "none", text: "no tokens here", want: nil},
		{name: "single", text: "Dear [Tenant Name],", want: []string{"Tenant Name"}},
		{name: "repeats kept", text: "[A] and [A]", want: []string{"A", "A"}},
		{name: "empty brackets ignored", text: "[] [B]", want: []string{"B"}},
		{name: "no nesting", text: "[a [b]", want: []string{"a [b"}},
		{name: "unterminated", text: "[open", want: nil},
		{name: "multiline label", text: "[line\nbreak]", want: []string{"line\nbreak"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Find(tt.text))
		})
	}
}

func TestUnique(t *testing.T) {
	got := Unique("[B] [A] [B] [C] [A]")
	assert.Equal(t, []string{"B", "A", "C"}, got)
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tenant Name", "tenant name"},
		{"  tenant   NAME ", "tenant name"},
		{"tenant\t\nname", "tenant name"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.input); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	answers := mapLookup{"tenant name": "Jane Doe"}

	repl, unresolved := Resolve("[Tenant Name] signed on [Date]. [Tenant Name]", answers)

	assert.Equal(t, map[string]string{"[Tenant Name]": "Jane Doe"}, repl)
	assert.Equal(t, []string{"Date"}, unresolved)
}

func TestResolve_NothingToDo(t *testing.T) {
	repl, unresolved := Resolve("plain text", mapLookup{})
	assert.Nil(t, repl)
	assert.Nil(t, unresolved)
}

func TestNewReplacer_SinglePass(t *testing.T) {
	t.Run("every occurrence gets the same value", func(t *testing.T) {
		got := NewReplacer(map[string]string{"[A]": "x"}).Replace("[A] then [A]")
		assert.Equal(t, "x then x", got)
	})

	t.Run("values are not substituted again", func(t *testing.T) {
		got := NewReplacer(map[string]string{"[A]": "[B]", "[B]": "b"}).Replace("[A] [B]")
		assert.Equal(t, "[B] b", got)
	})

	t.Run("unknown tokens left verbatim", func(t *testing.T) {
		got := NewReplacer(map[string]string{"[A]": "a"}).Replace("[A] [Z]")
		assert.Equal(t, "a [Z]", got)
	})
}

func TestToken(t *testing.T) {
	assert.Equal(t, "[Date]", Token("Date"))
}
