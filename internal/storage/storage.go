// Package storage writes generated documents to the output directory and
// keeps their registry in SQLite.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/db"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/logger"
)

// Store persists filled documents. Every write gets a fresh ULID, so
// concurrent requests never collide and no locking is needed.
type Store struct {
	db  *sql.DB
	dir string
	log *logger.Logger
	now func() time.Time
}

// New creates the output directory if needed.
func New(database *sql.DB, outputDir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: database, dir: outputDir, log: log, now: time.Now}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Persist writes the document as <template base>_<ulid>.docx and records it.
func (s *Store) Persist(ctx context.Context, in artifact.Input) (*artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	template := filepath.Base(in.Template)
	name := artifact.StoredName(template, id)
	path := filepath.Join(s.dir, name)

	if err := writeNew(path, in.Data); err != nil {
		return nil, err
	}

	a := &artifact.Artifact{
		ID:           id,
		Category:     in.Category,
		Subtype:      in.Subtype,
		Template:     template,
		StoredName:   name,
		DownloadName: artifact.DownloadName(template),
		Path:         path,
		Size:         int64(len(in.Data)),
		Strategy:     in.Strategy,
		Unresolved:   append([]string{}, in.Unresolved...),
		CreatedAt:    s.now().Unix(),
	}
	if err := db.Insert(s.db, a); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.log.Info("document stored", "id", id, "path", path, "size", a.Size, "unresolved", len(a.Unresolved))
	return a, nil
}

func writeNew(path string, data []byte) error {
	f, err := createFileNoFollow(path, 0600)
	if err != nil {
		if errors.From(err).Code == errors.ErrInvalidRequest {
			return err
		}
		return errors.NewInternal(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(path)
		return errors.NewInternal(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return errors.NewInternal(err)
	}
	return nil
}

// Get returns the record of an active document.
func (s *Store) Get(ctx context.Context, id string) (*artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return db.GetByID(s.db, id)
}

// Open returns a document's record and bytes.
func (s *Store) Open(ctx context.Context, id string) (*artifact.Artifact, []byte, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := openFileNoFollowRead(a.Path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil, errors.NewNotFound("document file", id)
		}
		return nil, nil, errors.From(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	return a, data, nil
}

// List returns active documents, newest first.
func (s *Store) List(ctx context.Context, category string, limit, offset int) ([]artifact.Artifact, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return db.List(s.db, category, limit, offset)
}

// Delete hides a document. The file stays until the next purge.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.SoftDelete(s.db, id)
}

// Purge permanently removes deleted documents and, when olderThan is set,
// documents created longer ago than that. Files already gone are ignored.
func (s *Store) Purge(ctx context.Context, olderThan *time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var cutoff *int64
	if olderThan != nil {
		c := s.now().Add(-*olderThan).Unix()
		cutoff = &c
	}

	candidates, err := db.PurgeCandidates(s.db, cutoff)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(candidates))
	for _, a := range candidates {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove document file", "id", a.ID, "path", a.Path, "error", err)
			continue
		}
		ids = append(ids, a.ID)
	}
	return db.DeleteByIDs(s.db, ids)
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
