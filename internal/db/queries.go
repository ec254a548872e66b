package db

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/clerk/internal/artifact"
	"github.com/hpungsan/clerk/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ClerkError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const artifactColumns = `
	id, category, subtype, template, stored_name, download_name,
	path, size, strategy, unresolved_json, created_at
`

// Insert stores a new artifact record.
func Insert(db *sql.DB, a *artifact.Artifact) error {
	var unresolvedJSON sql.NullString
	if len(a.Unresolved) > 0 {
		data, err := json.Marshal(a.Unresolved)
		if err != nil {
			return errors.NewInternal(err)
		}
		unresolvedJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO artifacts (` + artifactColumns + `, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.Exec(query,
		a.ID, a.Category, toNullString(a.Subtype), a.Template, a.StoredName, a.DownloadName,
		a.Path, a.Size, a.Strategy, unresolvedJSON, a.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves an active artifact by its ULID.
func GetByID(db *sql.DB, id string) (*artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = ? AND deleted_at IS NULL`

	a, err := scanArtifact(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return a, nil
}

// List returns active artifacts, newest first, optionally filtered by
// category, plus the total number of matches.
func List(db *sql.DB, category string, limit, offset int) ([]artifact.Artifact, int, error) {
	where := "deleted_at IS NULL"
	args := []any{}
	if category != "" {
		where += " AND category = ?"
		args = append(args, category)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM artifacts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// SoftDelete marks an artifact as deleted by setting deleted_at.
func SoftDelete(db *sql.DB, id string) error {
	result, err := db.Exec(`UPDATE artifacts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("document", id)
	}
	return nil
}

// PurgeCandidates returns every soft-deleted artifact and, when createdBefore
// is set, every artifact created before that Unix time.
func PurgeCandidates(db *sql.DB, createdBefore *int64) ([]artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE deleted_at IS NOT NULL`
	args := []any{}
	if createdBefore != nil {
		query += ` OR created_at < ?`
		args = append(args, *createdBefore)
	}
	query += ` ORDER BY created_at`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// DeleteByIDs permanently removes artifact rows and returns how many went.
func DeleteByIDs(db *sql.DB, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := db.Exec(`DELETE FROM artifacts WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanArtifact scans a single row into an Artifact struct.
func scanArtifact(row scanner) (*artifact.Artifact, error) {
	var (
		a              artifact.Artifact
		subtype        sql.NullString
		unresolvedJSON sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.Category, &subtype, &a.Template, &a.StoredName, &a.DownloadName,
		&a.Path, &a.Size, &a.Strategy, &unresolvedJSON, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Subtype = subtype.String
	a.Unresolved = []string{}
	if unresolvedJSON.Valid && unresolvedJSON.String != "" {
		if err := json.Unmarshal([]byte(unresolvedJSON.String), &a.Unresolved); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
