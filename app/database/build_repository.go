package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ BuildRepository = (*buildRepository)(nil)

type buildRepository struct {
	db *DB
}

func NewBuildRepository(db *DB) BuildRepository {
	return &buildRepository{db: db}
}

func (r *buildRepository) CreateBuild(id, reason string, startedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO builds (id, reason, status, started_at)
		VALUES (?, ?, ?, ?)
	`, id, reason, BuildStatusRunning, startedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to create build: %w", err)
	}

	return nil
}

func (r *buildRepository) FinishBuild(id string, result BuildResult, finishedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE builds
		SET status = ?, ref = ?, finished_at = ?,
		    pages_generated = ?, pages_skipped = ?, pages_failed = ?, error = ?
		WHERE id = ?
	`, result.Status, result.Ref, finishedAt.UTC(),
		result.PagesGenerated, result.PagesSkipped, result.PagesFailed, result.Error, id)

	if err != nil {
		return fmt.Errorf("failed to finish build: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("build %s not found", id)
	}

	return nil
}

// GetBuild returns nil when no build has the given id.
func (r *buildRepository) GetBuild(id string) (*Build, error) {
	row := r.db.QueryRow(`
		SELECT id, reason, ref, status, started_at, finished_at,
		       pages_generated, pages_skipped, pages_failed, error
		FROM builds
		WHERE id = ?
	`, id)

	build, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}

	return build, nil
}

func (r *buildRepository) GetRecentBuilds(limit int) ([]Build, error) {
	rows, err := r.db.Query(`
		SELECT id, reason, ref, status, started_at, finished_at,
		       pages_generated, pages_skipped, pages_failed, error
		FROM builds
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent builds: %w", err)
	}
	defer rows.Close()

	builds := make([]Build, 0, limit)
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build row: %w", err)
		}
		builds = append(builds, *build)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating build rows: %w", err)
	}

	return builds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*Build, error) {
	var build Build
	err := row.Scan(
		&build.ID, &build.Reason, &build.Ref, &build.Status,
		&build.StartedAt, &build.FinishedAt,
		&build.PagesGenerated, &build.PagesSkipped, &build.PagesFailed, &build.Error,
	)
	if err != nil {
		return nil, err
	}
	return &build, nil
}
