package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/ops"
	"github.com/hpungsan/clerk/internal/ops/opstest"
	"github.com/hpungsan/clerk/internal/session"
)

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, f *opstest.Fixture, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	defer func() { stdout = old }()

	app := newCLIApp(f.Runtime, f.Config, nil)
	err := app.Run(append([]string{"clerk"}, args...))
	return buf.String(), err
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{name: "valid days", input: "7d", expected: 7},
		{name: "zero days", input: "0d", expected: 0},
		{name: "large number", input: "365d", expected: 365},
		{name: "missing suffix", input: "7", expectError: true},
		{name: "wrong suffix", input: "7h", expectError: true},
		{name: "invalid number", input: "abcd", expectError: true},
		{name: "negative days", input: "-1d", expectError: true},
		{name: "empty string", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for input %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestReadTranscript(t *testing.T) {
	dir := t.TempDir()

	tr, err := readTranscript("")
	if err != nil || tr.Len() != 0 {
		t.Fatalf("empty path: got %d turns, err %v", tr.Len(), err)
	}

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`[{"role":"assistant","content":"Who?"},{"role":"user","content":"Jane"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	tr, err = readTranscript(good)
	if err != nil {
		t.Fatalf("readTranscript: %v", err)
	}
	if tr.Len() != 2 {
		t.Errorf("got %d turns, want 2", tr.Len())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"role":"robot","content":"x"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readTranscript(bad); err == nil {
		t.Error("expected error for unknown role")
	}

	if _, err := readTranscript(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCategoriesCommand(t *testing.T) {
	f := opstest.New(t)

	out, err := run(t, f, "categories")
	if err != nil {
		t.Fatalf("categories command failed: %v", err)
	}
	var output ops.CategoriesOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	subtypes := output.Categories[opstest.Category]
	if len(subtypes) != 1 || subtypes[0] != opstest.Subtype {
		t.Errorf("subtypes = %v, want [%s]", subtypes, opstest.Subtype)
	}
	if _, ok := output.Categories["employment"]; !ok {
		t.Error("expected employment category")
	}
}

func TestCatalogCommand_NotFound(t *testing.T) {
	f := opstest.New(t)

	_, err := run(t, f, "catalog", "--category", "employment")
	if err == nil {
		t.Fatal("expected error for a folder without catalog")
	}
	if !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("error = %q, want NOT_FOUND", err.Error())
	}
}

func TestSectionsCommand(t *testing.T) {
	f := opstest.New(t)

	out, err := run(t, f, "sections", "-c", opstest.Category, "-s", opstest.Subtype, opstest.Bundle)
	if err != nil {
		t.Fatalf("sections command failed: %v", err)
	}
	var output ops.SectionsOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(output.Sections) != 2 {
		t.Errorf("sections = %v, want 2", output.Sections)
	}
}

func TestDialogueCommands(t *testing.T) {
	f := opstest.New(t)
	dir := t.TempDir()

	f.Gateway.Push(opstest.Notice, "Who is the claimant?")
	out, err := run(t, f, "start", "-c", opstest.Category, "-s", opstest.Subtype, "no", "notice", "served")
	if err != nil {
		t.Fatalf("start command failed: %v", err)
	}
	var start ops.StartOutput
	if err := json.Unmarshal([]byte(out), &start); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if start.Filename != opstest.Notice {
		t.Fatalf("filename = %q, want %q", start.Filename, opstest.Notice)
	}

	tr := start.Transcript.Append(session.User("Jane Doe"))
	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	messages := filepath.Join(dir, "messages.json")
	if err := os.WriteFile(messages, data, 0o600); err != nil {
		t.Fatal(err)
	}

	f.Gateway.Push(config.DefaultCompletionToken)
	out, err = run(t, f, "next", "-t", start.Token, "-m", messages)
	if err != nil {
		t.Fatalf("next command failed: %v", err)
	}
	var next ops.NextOutput
	if err := json.Unmarshal([]byte(out), &next); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if !next.Complete {
		t.Errorf("expected dialogue to be complete, got %+v", next)
	}

	target := filepath.Join(dir, "out.docx")
	f.Gateway.Push(`{"Claimant Name": "Jane Doe", "Date": "1 May 2025"}`)
	out, err = run(t, f, "complete", "-t", start.Token, "-m", messages, "-o", target)
	if err != nil {
		t.Fatalf("complete command failed: %v", err)
	}
	var done ops.CompleteOutput
	if err := json.Unmarshal([]byte(out), &done); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if done.Path != target {
		t.Errorf("path = %q, want %q", done.Path, target)
	}
	if len(done.Unresolved) != 0 {
		t.Errorf("unresolved = %v, want none", done.Unresolved)
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	doc, err := docx.Open(raw)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if got := doc.Text(); got != "Claimant: Jane Doe\nDate: 1 May 2025" {
		t.Errorf("document text = %q", got)
	}

	// the registry copy is listed
	out, err = run(t, f, "documents")
	if err != nil {
		t.Fatalf("documents command failed: %v", err)
	}
	var list ops.ListDocumentsOutput
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(list.Items) != 1 || list.Items[0].ID != done.DocumentID {
		t.Fatalf("listed %+v, want %s", list.Items, done.DocumentID)
	}

	if _, err := run(t, f, "delete", done.DocumentID); err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	out, err = run(t, f, "purge")
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}
	var purge ops.PurgeDocumentsOutput
	if err := json.Unmarshal([]byte(out), &purge); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if purge.Purged != 1 {
		t.Errorf("purged = %d, want 1", purge.Purged)
	}
}

func TestStartCommand_RequiresCategory(t *testing.T) {
	f := opstest.New(t)

	_, err := run(t, f, "start", "some", "issue")
	if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
	if n := len(f.Gateway.Requests()); n != 0 {
		t.Errorf("gateway called %d times, want 0", n)
	}
}

func TestPurgeCommand_InvalidDuration(t *testing.T) {
	f := opstest.New(t)

	_, err := run(t, f, "purge", "--older-than", "7h")
	if err == nil || !strings.Contains(err.Error(), "[INVALID_REQUEST]") {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	old := os.Args
	defer func() { os.Args = old }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"clerk"}, false},
		{[]string{"clerk", "--help"}, true},
		{[]string{"clerk", "-v"}, true},
		{[]string{"clerk", "help"}, true},
		{[]string{"clerk", "serve"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isHelpOrVersion(); got != tt.want {
			t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestIsCLIMode(t *testing.T) {
	old := os.Args
	defer func() { os.Args = old }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"clerk"}, false},
		{[]string{"clerk", "serve"}, true},
		{[]string{"clerk", "complete"}, true},
		{[]string{"clerk", "unknown"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
