package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"detectserver/internal/model"
)

// ArtifactRepository implements repository.ArtifactRepository for SQLite.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Insert records an artifact. A row with the same filename is replaced and
// its detections are dropped, since the file on disk was overwritten.
func (r *ArtifactRepository) Insert(ctx context.Context, a *model.Artifact) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO artifacts (filename, original_filename, filepath, content_type, filesize, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			original_filename = excluded.original_filename,
			filepath = excluded.filepath,
			content_type = excluded.content_type,
			filesize = excluded.filesize,
			captured_at = excluded.captured_at
		RETURNING id
	`, a.Filename, a.OriginalFilename, a.FilePath, a.ContentType, a.FileSize, a.CapturedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM detections WHERE artifact_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to clear detections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit artifact: %w", err)
	}
	return id, nil
}

// GetByFilename retrieves an artifact and its detections. It returns nil, nil
// when no artifact has that name.
func (r *ArtifactRepository) GetByFilename(ctx context.Context, filename string) (*model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var a model.Artifact
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, filename, original_filename, filepath, content_type, filesize, captured_at
		FROM artifacts WHERE filename = ?
	`, filename).Scan(&a.ID, &a.Filename, &a.OriginalFilename, &a.FilePath, &a.ContentType, &a.FileSize, &a.CapturedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	a.Detections, err = queryDetections(ctx, r.db.Conn(), a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists checks if an artifact with the given filename exists.
func (r *ArtifactRepository) Exists(ctx context.Context, filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	return count > 0, nil
}

// List retrieves artifacts, newest first, with their detections.
func (r *ArtifactRepository) List(ctx context.Context, filter *model.ArtifactFilter) ([]model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `
		SELECT DISTINCT a.id, a.filename, a.original_filename, a.filepath, a.content_type, a.filesize, a.captured_at
		FROM artifacts a
		LEFT JOIN detections d ON a.id = d.artifact_id
		WHERE 1=1` + where + `
		ORDER BY a.captured_at DESC, a.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.Filename, &a.OriginalFilename, &a.FilePath, &a.ContentType, &a.FileSize, &a.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}
	rows.Close()

	for i := range artifacts {
		artifacts[i].Detections, err = queryDetections(ctx, r.db.Conn(), artifacts[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return artifacts, nil
}

// Count returns the total count of artifacts matching the filter.
func (r *ArtifactRepository) Count(ctx context.Context, filter *model.ArtifactFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `
		SELECT COUNT(DISTINCT a.id)
		FROM artifacts a
		LEFT JOIN detections d ON a.id = d.artifact_id
		WHERE 1=1` + where

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return count, nil
}

// ObjectCounts returns how often each object name was detected.
func (r *ArtifactRepository) ObjectCounts(ctx context.Context) (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT object_name, COUNT(*) AS cnt
		FROM detections
		GROUP BY object_name
		ORDER BY cnt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query object counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var obj string
		var count int
		if err := rows.Scan(&obj, &count); err != nil {
			return nil, fmt.Errorf("failed to scan object count: %w", err)
		}
		counts[obj] = count
	}
	return counts, rows.Err()
}

func filterClause(filter *model.ArtifactFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	where := ""
	args := []interface{}{}

	if filter.Object != "" {
		where += " AND d.object_name = ?"
		args = append(args, filter.Object)
	}
	if !filter.Since.IsZero() {
		where += " AND a.captured_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		where += " AND a.captured_at <= ?"
		args = append(args, filter.Until.UTC())
	}
	return where, args
}
