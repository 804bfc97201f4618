//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"affirmation_fetcher/internal/domain"
	"affirmation_fetcher/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	tm        *TransactionManager
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_content.up.sql"),
			filepath.Join(migrationsPath, "002_create_sync_state.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
	s.tm = NewTransactionManager(db)
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sync_state")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) record(messageID, text string, category domain.Category) *domain.ContentRecord {
	return &domain.ContentRecord{
		Text:            text,
		Category:        category,
		SourcePlatform:  "telegram",
		SourceMessageID: messageID,
		Tags:            []string{"faith", "hope"},
		Reference:       utils.Ptr("John 3:16"),
		IsActive:        true,
	}
}

func (s *PostgresIntegrationSuite) TestContentStore_InsertAndExists() {
	store := NewContentStore(s.db, s.tm)

	exists, err := store.Exists(s.ctx, "telegram", "101")
	s.NoError(err)
	s.False(exists)

	id, err := store.Insert(s.ctx, s.record("101", "Trust in the Lord", domain.CategoryFaith))
	s.NoError(err)
	s.Greater(id, int64(0))

	exists, err = store.Exists(s.ctx, "telegram", "101")
	s.NoError(err)
	s.True(exists)
}

func (s *PostgresIntegrationSuite) TestContentStore_InsertDuplicate() {
	store := NewContentStore(s.db, s.tm)

	_, err := store.Insert(s.ctx, s.record("101", "Trust in the Lord", domain.CategoryFaith))
	s.NoError(err)

	_, err = store.Insert(s.ctx, s.record("101", "different payload, same identity", domain.CategoryWisdom))
	s.ErrorIs(err, domain.ErrDuplicate)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count,
		"SELECT COUNT(*) FROM content WHERE source_platform = $1 AND source_message_id = $2",
		"telegram", "101"))
	s.Equal(1, count)
}

// Two concurrent inserts with the same identity: exactly one wins,
// the other observes a duplicate, one row remains.
func (s *PostgresIntegrationSuite) TestContentStore_InsertRace() {
	store := NewContentStore(s.db, s.tm)

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Insert(s.ctx, s.record("202", "raced payload", domain.CategoryFaith))
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			s.ErrorIs(err, domain.ErrDuplicate)
			duplicates++
		}
	}
	s.Equal(1, successes)
	s.Equal(1, duplicates)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count,
		"SELECT COUNT(*) FROM content WHERE source_message_id = $1", "202"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestContentStore_ListByCategory() {
	store := NewContentStore(s.db, s.tm)

	older := s.record("1", "older faith record", domain.CategoryFaith)
	_, err := store.Insert(s.ctx, older)
	s.NoError(err)

	// Force distinct created_at values.
	_, err = s.db.ExecContext(s.ctx,
		"UPDATE content SET created_at = created_at - INTERVAL '1 hour' WHERE source_message_id = '1'")
	s.NoError(err)

	_, err = store.Insert(s.ctx, s.record("2", "newer faith record", domain.CategoryFaith))
	s.NoError(err)
	_, err = store.Insert(s.ctx, s.record("3", "wisdom record", domain.CategoryWisdom))
	s.NoError(err)

	inactive := s.record("4", "inactive faith record", domain.CategoryFaith)
	inactive.IsActive = false
	_, err = store.Insert(s.ctx, inactive)
	s.NoError(err)

	records, err := store.ListByCategory(s.ctx, domain.CategoryFaith)
	s.NoError(err)
	s.Require().Len(records, 2)
	s.Equal("newer faith record", records[0].Text)
	s.Equal("older faith record", records[1].Text)
	s.Equal([]string{"faith", "hope"}, records[0].Tags)
	s.Require().NotNil(records[0].Reference)
	s.Equal("John 3:16", *records[0].Reference)
}

func (s *PostgresIntegrationSuite) TestContentStore_IncrementEngagement() {
	store := NewContentStore(s.db, s.tm)

	id, err := store.Insert(s.ctx, s.record("101", "Trust in the Lord", domain.CategoryFaith))
	s.NoError(err)

	s.NoError(store.IncrementEngagement(s.ctx, id, domain.EngagementView))
	s.NoError(store.IncrementEngagement(s.ctx, id, domain.EngagementView))
	s.NoError(store.IncrementEngagement(s.ctx, id, domain.EngagementFavorite))

	var views, favorites int64
	s.NoError(s.db.QueryRowContext(s.ctx,
		"SELECT view_count, favorite_count FROM content WHERE id = $1", id).
		Scan(&views, &favorites))
	s.Equal(int64(2), views)
	s.Equal(int64(1), favorites)
}

func (s *PostgresIntegrationSuite) TestContentStore_IncrementEngagement_NotFound() {
	store := NewContentStore(s.db, s.tm)

	err := store.IncrementEngagement(s.ctx, 999999, domain.EngagementView)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestContentStore_AggregateStats() {
	store := NewContentStore(s.db, s.tm)

	id1, err := store.Insert(s.ctx, s.record("1", "faith record", domain.CategoryFaith))
	s.NoError(err)
	_, err = store.Insert(s.ctx, s.record("2", "another faith record", domain.CategoryFaith))
	s.NoError(err)
	_, err = store.Insert(s.ctx, s.record("3", "strength record", domain.CategoryStrength))
	s.NoError(err)

	inactive := s.record("4", "inactive record", domain.CategoryWisdom)
	inactive.IsActive = false
	_, err = store.Insert(s.ctx, inactive)
	s.NoError(err)

	s.NoError(store.IncrementEngagement(s.ctx, id1, domain.EngagementView))
	s.NoError(store.IncrementEngagement(s.ctx, id1, domain.EngagementFavorite))

	stats, err := store.AggregateStats(s.ctx)
	s.NoError(err)
	s.Equal(int64(4), stats.TotalRecords)
	s.Equal(int64(1), stats.TotalViews)
	s.Equal(int64(1), stats.TotalFavorites)
	s.Equal(int64(2), stats.PerCategory[domain.CategoryFaith])
	s.Equal(int64(1), stats.PerCategory[domain.CategoryStrength])
	// Inactive records stay out of category counts.
	s.Equal(int64(0), stats.PerCategory[domain.CategoryWisdom])
	s.Equal(int64(0), stats.PerCategory[domain.CategoryGratitude])
}

func (s *PostgresIntegrationSuite) TestContentStore_DeleteInactiveBefore() {
	store := NewContentStore(s.db, s.tm)

	old := s.record("1", "old inactive record", domain.CategoryFaith)
	old.IsActive = false
	_, err := store.Insert(s.ctx, old)
	s.NoError(err)
	_, err = s.db.ExecContext(s.ctx,
		"UPDATE content SET created_at = now() - INTERVAL '10 days' WHERE source_message_id = '1'")
	s.NoError(err)

	fresh := s.record("2", "fresh inactive record", domain.CategoryFaith)
	fresh.IsActive = false
	_, err = store.Insert(s.ctx, fresh)
	s.NoError(err)

	_, err = store.Insert(s.ctx, s.record("3", "old active record", domain.CategoryFaith))
	s.NoError(err)
	_, err = s.db.ExecContext(s.ctx,
		"UPDATE content SET created_at = now() - INTERVAL '10 days' WHERE source_message_id = '3'")
	s.NoError(err)

	deleted, err := store.DeleteInactiveBefore(s.ctx, time.Now().AddDate(0, 0, -7))
	s.NoError(err)
	s.Equal(int64(1), deleted)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content"))
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestSyncStateStore_GetAndUpdate() {
	store := NewSyncStateStore(s.db)

	state, err := store.Get(s.ctx, "telegram")
	s.NoError(err)
	s.Equal("telegram", state.SourcePlatform)
	s.True(state.LastSyncedAt.IsZero())
	s.Equal(int64(0), state.TotalSynced)

	state.LastSyncedAt = time.Now().Truncate(time.Microsecond)
	state.TotalSynced = 42
	s.NoError(store.Update(s.ctx, state))

	loaded, err := store.Get(s.ctx, "telegram")
	s.NoError(err)
	s.Equal(int64(42), loaded.TotalSynced)
	s.False(loaded.LastSyncedAt.IsZero())
}
