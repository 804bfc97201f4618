package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"affirmation_fetcher/internal/domain"
)

// uniqueViolation is the Postgres error code for unique constraint
// violations.
const uniqueViolation = "23505"

type ContentStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

func NewContentStore(db *sqlx.DB, tm *TransactionManager) *ContentStore {
	return &ContentStore{db: db, tm: tm}
}

type contentRow struct {
	ID              int64          `db:"id"`
	Text            string         `db:"text"`
	Category        string         `db:"category"`
	SourcePlatform  string         `db:"source_platform"`
	SourceMessageID string         `db:"source_message_id"`
	Tags            pq.StringArray `db:"tags"`
	Reference       sql.NullString `db:"reference"`
	IsActive        bool           `db:"is_active"`
	ViewCount       int64          `db:"view_count"`
	FavoriteCount   int64          `db:"favorite_count"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r contentRow) toDomain() domain.ContentRecord {
	rec := domain.ContentRecord{
		ID:              r.ID,
		Text:            r.Text,
		Category:        domain.Category(r.Category),
		SourcePlatform:  r.SourcePlatform,
		SourceMessageID: r.SourceMessageID,
		Tags:            []string(r.Tags),
		IsActive:        r.IsActive,
		ViewCount:       r.ViewCount,
		FavoriteCount:   r.FavoriteCount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Reference.Valid {
		ref := r.Reference.String
		rec.Reference = &ref
	}
	return rec
}

// Exists reports whether a record with the given source identity is
// already stored. It is an optimization to avoid pointless write
// attempts; Insert enforces uniqueness on its own.
func (s *ContentStore) Exists(ctx context.Context, sourcePlatform, sourceMessageID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM content WHERE source_platform = $1 AND source_message_id = $2)",
		sourcePlatform, sourceMessageID,
	)
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return exists, nil
}

// Insert stores a new record and returns its id. The unique
// constraint on (source_platform, source_message_id) decides races:
// when another insert for the same identity wins, the loser gets
// domain.ErrDuplicate, never a raw constraint failure.
func (s *ContentStore) Insert(ctx context.Context, record *domain.ContentRecord) (int64, error) {
	query := `
		INSERT INTO content (
			text, category, source_platform, source_message_id,
			tags, reference, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_platform, source_message_id) DO NOTHING
		RETURNING id`

	var reference sql.NullString
	if record.Reference != nil && *record.Reference != "" {
		reference = sql.NullString{String: *record.Reference, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		record.Text,
		string(record.Category),
		record.SourcePlatform,
		record.SourceMessageID,
		pq.StringArray(record.Tags),
		reference,
		record.IsActive,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrDuplicate, record.SourcePlatform, record.SourceMessageID)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrDuplicate, record.SourcePlatform, record.SourceMessageID)
	}
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}

	return id, nil
}

// ListByCategory returns active records in a category, newest first.
func (s *ContentStore) ListByCategory(ctx context.Context, category domain.Category) ([]domain.ContentRecord, error) {
	query := `
		SELECT id, text, category, source_platform, source_message_id,
		       tags, reference, is_active, view_count, favorite_count,
		       created_at, updated_at
		FROM content
		WHERE category = $1 AND is_active
		ORDER BY created_at DESC`

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, query, string(category)); err != nil {
		return nil, fmt.Errorf("list by category: %w", err)
	}

	records := make([]domain.ContentRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

// IncrementEngagement bumps one of the engagement counters. The
// read-modify-write runs inside a transaction with the row locked so
// sequential increments are never lost.
func (s *ContentStore) IncrementEngagement(ctx context.Context, id int64, kind domain.EngagementKind) error {
	var column string
	switch kind {
	case domain.EngagementView:
		column = "view_count"
	case domain.EngagementFavorite:
		column = "favorite_count"
	default:
		return fmt.Errorf("unknown engagement kind: %q", kind)
	}

	return s.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		ex := GetExecutor(txCtx, s.db)

		var current int64
		err := sqlx.GetContext(txCtx, ex, &current,
			"SELECT "+column+" FROM content WHERE id = $1 FOR UPDATE", id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", column, err)
		}

		_, err = ex.ExecContext(txCtx,
			"UPDATE content SET "+column+" = $1, updated_at = now() WHERE id = $2",
			current+1, id)
		if err != nil {
			return fmt.Errorf("update %s: %w", column, err)
		}
		return nil
	})
}

// AggregateStats returns totals plus per-category counts. Category
// counts and engagement sums cover active records only; the record
// total covers everything ever stored.
func (s *ContentStore) AggregateStats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{
		PerCategory: make(map[domain.Category]int64, len(domain.Categories())),
	}
	for _, cat := range domain.Categories() {
		stats.PerCategory[cat] = 0
	}

	if err := s.db.GetContext(ctx, &stats.TotalRecords, "SELECT COUNT(*) FROM content"); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*),
		       COALESCE(SUM(view_count), 0),
		       COALESCE(SUM(favorite_count), 0)
		FROM content
		WHERE is_active
		GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count, views, favorites int64
		if err := rows.Scan(&category, &count, &views, &favorites); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.PerCategory[domain.Category(category)] = count
		stats.TotalViews += views
		stats.TotalFavorites += favorites
	}

	return stats, rows.Err()
}

// DeleteInactiveBefore removes inactive records created before the
// cutoff. Used by age-based retention.
func (s *ContentStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM content WHERE NOT is_active AND created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete inactive: %w", err)
	}
	return result.RowsAffected()
}
