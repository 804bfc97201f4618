package domain

import "time"

// Category is the closed set of content categories. Anything the
// classifier cannot place lands in the configured default.
type Category string

const (
	CategoryFaith     Category = "Faith"
	CategoryStrength  Category = "Strength"
	CategoryWisdom    Category = "Wisdom"
	CategoryGratitude Category = "Gratitude"
	CategoryPurpose   Category = "Purpose"
)

// Categories lists every valid category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryFaith,
		CategoryStrength,
		CategoryWisdom,
		CategoryGratitude,
		CategoryPurpose,
	}
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryFaith, CategoryStrength, CategoryWisdom, CategoryGratitude, CategoryPurpose:
		return true
	}
	return false
}

// RawMessage is one unit of text fetched from the external channel.
// It exists only for the duration of a sync run.
type RawMessage struct {
	SourceMessageID string
	Text            string
	PostedAt        time.Time
	Author          string
}

// ClassifiedContent is the classifier's verdict for a single
// normalized message. It is derived per message and never persisted
// on its own.
type ClassifiedContent struct {
	Text      string
	Category  Category
	Tags      []string
	Reference string // citation-like substring, empty when absent
	Eligible  bool
	Degraded  bool // defaults were applied because input was empty/malformed
}

// ContentRecord is the persisted entity.
type ContentRecord struct {
	ID              int64
	Text            string
	Category        Category
	SourcePlatform  string
	SourceMessageID string
	Tags            []string
	Reference       *string
	IsActive        bool
	ViewCount       int64
	FavoriteCount   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EngagementKind names the two engagement counters a record carries.
type EngagementKind string

const (
	EngagementView     EngagementKind = "view"
	EngagementFavorite EngagementKind = "favorite"
)

// StoreStats is the aggregate view over active records.
type StoreStats struct {
	TotalRecords   int64
	TotalViews     int64
	TotalFavorites int64
	PerCategory    map[Category]int64
}

// SyncState tracks per-platform sync bookkeeping across runs.
type SyncState struct {
	ID             int64     `db:"id"`
	SourcePlatform string    `db:"source_platform"`
	LastSyncedAt   time.Time `db:"last_synced_at"`
	TotalSynced    int64     `db:"total_synced"`
}
