package db

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", ".clerk")

	db, err := Init(base)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	info, err := os.Stat(filepath.Join(base, FileName))
	if err != nil {
		t.Fatalf("registry file missing: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Errorf("registry mode = %v, want 0600", info.Mode().Perm())
	}

	mode, err := pragmaString(db, "journal_mode")
	if err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count); err != nil {
		t.Fatalf("artifacts table not usable: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh registry has %d rows", count)
	}
}

func TestInit_Reopen(t *testing.T) {
	base := t.TempDir()

	first, err := Init(base)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	if _, err := first.Exec(`INSERT INTO artifacts (id, category, template, stored_name, download_name, path, size, strategy, created_at)
		VALUES ('a', 'possession', 'notice.docx', 's', 'filled_notice.docx', '/tmp/s', 1, 'extract', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	first.Close()

	second, err := Init(base)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer second.Close()

	version, err := GetUserVersion(second)
	if err != nil {
		t.Fatal(err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, CurrentSchemaVersion)
	}
	var count int
	if err := second.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows after reopen = %d, want 1", count)
	}
}

func TestInit_RefusesNewerSchema(t *testing.T) {
	base := t.TempDir()

	db, err := Init(base)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := SetUserVersion(db, CurrentSchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err = Init(base)
	if err == nil {
		t.Fatal("expected Init to refuse a newer schema")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("error = %v", err)
	}
}

func TestInit_SchemaIndexes(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	for _, idx := range []string{
		"idx_artifacts_stored_name",
		"idx_artifacts_created",
		"idx_artifacts_category_created",
	} {
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name); err != nil {
			t.Errorf("index %s not found: %v", idx, err)
		}
	}
}
