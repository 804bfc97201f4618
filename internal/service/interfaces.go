package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"affirmation_fetcher/internal/domain"
)

type ContentStore interface {
	Exists(ctx context.Context, sourcePlatform, sourceMessageID string) (bool, error)
	Insert(ctx context.Context, record *domain.ContentRecord) (int64, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, sourcePlatform string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type Source interface {
	Platform() string
	FetchMessages(ctx context.Context, limit int) ([]domain.RawMessage, error)
}

type Classifier interface {
	Classify(text string) domain.ClassifiedContent
}

type Publisher interface {
	Publish(ctx context.Context, record *domain.ContentRecord) error
	Close() error
}
