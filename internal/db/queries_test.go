package db

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/errors"
)

// newTestArtifact creates an artifact with default values for testing.
func newTestArtifact(id, category string, createdAt int64) *artifact.Artifact {
	return &artifact.Artifact{
		ID:           id,
		Category:     category,
		Template:     "notice.docx",
		StoredName:   artifact.StoredName("notice.docx", id),
		DownloadName: artifact.DownloadName("notice.docx"),
		Path:         "/tmp/generated/" + artifact.StoredName("notice.docx", id),
		Size:         1024,
		Strategy:     "extract",
		CreatedAt:    createdAt,
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetByID(t *testing.T) {
	db := openTestDB(t)

	a := newTestArtifact("01ABC123", "housing", time.Now().Unix())
	a.Subtype = "eviction"
	a.Unresolved = []string{"Date", "Court"}

	if err := Insert(db, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := GetByID(db, "01ABC123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("GetByID = %+v, want %+v", got, a)
	}
}

func TestInsert_EmptyOptionalFields(t *testing.T) {
	db := openTestDB(t)

	a := newTestArtifact("01EMPTY", "housing", 1)
	if err := Insert(db, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := GetByID(db, "01EMPTY")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Subtype != "" {
		t.Errorf("Subtype = %q, want empty", got.Subtype)
	}
	if got.Unresolved == nil || len(got.Unresolved) != 0 {
		t.Errorf("Unresolved = %#v, want empty non-nil slice", got.Unresolved)
	}
}

func TestInsert_DuplicateStoredName(t *testing.T) {
	db := openTestDB(t)

	a := newTestArtifact("01DUP", "housing", 1)
	if err := Insert(db, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	b := newTestArtifact("01OTHER", "housing", 2)
	b.StoredName = a.StoredName
	if err := Insert(db, b); err != ErrUniqueConstraint {
		t.Errorf("Insert duplicate = %v, want ErrUniqueConstraint", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetByID(db, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID error = %v, want NOT_FOUND", err)
	}
}

func TestList(t *testing.T) {
	db := openTestDB(t)

	for i, cat := range []string{"housing", "employment", "housing", "housing"} {
		id := string(rune('A'+i)) + "01"
		if err := Insert(db, newTestArtifact(id, cat, int64(100+i))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := SoftDelete(db, "D01"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	items, total, err := List(db, "", 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("List total = %d, len = %d, want 3, 3", total, len(items))
	}
	if items[0].ID != "C01" || items[2].ID != "A01" {
		t.Errorf("List order = %s..%s, want newest first", items[0].ID, items[2].ID)
	}

	items, total, err = List(db, "housing", 1, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("filtered total = %d, want 2", total)
	}
	if len(items) != 1 || items[0].ID != "A01" {
		t.Errorf("page = %+v, want A01", items)
	}
}

func TestSoftDelete(t *testing.T) {
	db := openTestDB(t)

	if err := Insert(db, newTestArtifact("01DEL", "housing", 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := SoftDelete(db, "01DEL"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := GetByID(db, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want NOT_FOUND", err)
	}
	if err := SoftDelete(db, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second SoftDelete = %v, want NOT_FOUND", err)
	}
}

func TestPurgeCandidatesAndDelete(t *testing.T) {
	db := openTestDB(t)

	for _, a := range []*artifact.Artifact{
		newTestArtifact("OLD", "housing", 10),
		newTestArtifact("NEW", "housing", 1000),
		newTestArtifact("GONE", "housing", 2000),
	} {
		if err := Insert(db, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := SoftDelete(db, "GONE"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	deletedOnly, err := PurgeCandidates(db, nil)
	if err != nil {
		t.Fatalf("PurgeCandidates failed: %v", err)
	}
	if len(deletedOnly) != 1 || deletedOnly[0].ID != "GONE" {
		t.Errorf("PurgeCandidates(nil) = %+v, want [GONE]", deletedOnly)
	}

	cutoff := int64(500)
	withOld, err := PurgeCandidates(db, &cutoff)
	if err != nil {
		t.Fatalf("PurgeCandidates failed: %v", err)
	}
	if len(withOld) != 2 || withOld[0].ID != "OLD" || withOld[1].ID != "GONE" {
		t.Errorf("PurgeCandidates(500) = %+v, want [OLD GONE]", withOld)
	}

	n, err := DeleteByIDs(db, []string{"OLD", "GONE", "MISSING"})
	if err != nil {
		t.Fatalf("DeleteByIDs failed: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByIDs = %d, want 2", n)
	}

	if n, err := DeleteByIDs(db, nil); err != nil || n != 0 {
		t.Errorf("DeleteByIDs(nil) = %d, %v", n, err)
	}

	if _, err := GetByID(db, "NEW"); err != nil {
		t.Errorf("NEW should survive: %v", err)
	}
}
