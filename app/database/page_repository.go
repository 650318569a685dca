package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var _ PageRepository = (*pageRepository)(nil)

type pageRepository struct {
	db *DB
}

func NewPageRepository(db *DB) PageRepository {
	return &pageRepository{db: db}
}

// GetPage returns nil when the path was never generated.
func (r *pageRepository) GetPage(path string) (*Page, error) {
	return r.getOne("path", path)
}

func (r *pageRepository) GetPageByUID(uid string) (*Page, error) {
	return r.getOne("uid", uid)
}

func (r *pageRepository) getOne(column, value string) (*Page, error) {
	var page Page
	err := r.db.QueryRow(`
		SELECT path, uid, last_publication_date, fingerprint, generated_at, build_id, status, error
		FROM pages
		WHERE `+column+` = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, value).Scan(
		&page.Path, &page.UID, &page.LastPublicationDate, &page.Fingerprint, &page.GeneratedAt,
		&page.BuildID, &page.Status, &page.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return &page, nil
}

func (r *pageRepository) UpsertPage(page Page) error {
	var lastPublication any
	if page.LastPublicationDate != nil {
		lastPublication = page.LastPublicationDate.UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO pages (path, uid, last_publication_date, fingerprint, generated_at, build_id, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			uid = excluded.uid,
			last_publication_date = excluded.last_publication_date,
			fingerprint = excluded.fingerprint,
			generated_at = excluded.generated_at,
			build_id = excluded.build_id,
			status = excluded.status,
			error = excluded.error
	`, page.Path, page.UID, lastPublication, page.Fingerprint, page.GeneratedAt.UTC(), page.BuildID, page.Status, page.Error)

	if err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	return nil
}

// MarkMissing flags every post page whose UID is not in keep.
func (r *pageRepository) MarkMissing(keep []string, buildID string) (int, error) {
	query := `UPDATE pages SET status = ?, build_id = ? WHERE uid != '' AND status != ?`
	args := []any{PageStatusMissing, buildID, PageStatusMissing}

	if len(keep) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keep)), ",")
		query += ` AND uid NOT IN (` + placeholders + `)`
		for _, uid := range keep {
			args = append(args, uid)
		}
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missing pages: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count missing pages: %w", err)
	}

	return int(rows), nil
}

func (r *pageRepository) GetPageStats() (PageStats, error) {
	var stats PageStats
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as generated,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as failed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as missing
		FROM pages
	`, PageStatusGenerated, PageStatusFailed, PageStatusMissing).Scan(
		&stats.Total, &stats.Generated, &stats.Failed, &stats.Missing,
	)

	if err != nil {
		return PageStats{}, fmt.Errorf("failed to get page stats: %w", err)
	}

	return stats, nil
}
