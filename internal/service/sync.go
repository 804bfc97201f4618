package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"affirmation_fetcher/internal/config"
	"affirmation_fetcher/internal/domain"
	"affirmation_fetcher/internal/processor"
)

// sampleLimit caps how many saved items a run report carries back to
// the caller.
const sampleLimit = 3

type SyncService struct {
	source     Source
	store      ContentStore
	syncState  SyncStateStore
	classifier Classifier
	publisher  Publisher
	logger     *slog.Logger
	config     config.SyncConfig
}

func NewSyncService(
	source Source,
	store ContentStore,
	syncState SyncStateStore,
	classifier Classifier,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		source:     source,
		store:      store,
		syncState:  syncState,
		classifier: classifier,
		publisher:  publisher,
		logger:     logger.With("source", source.Platform()),
		config:     cfg,
	}
}

// Sync performs one full run: fetch a batch, classify each message,
// persist what qualifies, report exact counts. Source failures are
// fatal and produce no report; a single bad item only bumps the error
// count. Re-running against an unchanged source saves nothing the
// second time, so every message is stored at most once.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncReport, error) {
	startTime := time.Now()
	s.logger.Info("starting sync", "batch_size", s.config.BatchSize)

	messages, err := s.source.FetchMessages(ctx, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	s.logger.Info("fetched messages from source", "count", len(messages))

	report := &domain.SyncReport{SourcePlatform: s.source.Platform()}

	for i := range messages {
		s.processMessage(ctx, &messages[i], report)
	}

	if err := s.updateSyncState(ctx, report); err != nil {
		return report, fmt.Errorf("update sync state: %w", err)
	}

	report.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"processed", report.Processed,
		"saved", report.Saved,
		"duplicates_skipped", report.DuplicatesSkipped,
		"ineligible_skipped", report.IneligibleSkipped,
		"errors", report.Errors,
		"published", report.Published,
		"duration", report.Duration,
	)

	return report, nil
}

// processMessage handles one raw message. Every outcome lands in
// exactly one report bucket, which keeps
// processed == saved + duplicates + ineligible + errors.
func (s *SyncService) processMessage(ctx context.Context, msg *domain.RawMessage, report *domain.SyncReport) {
	report.Processed++

	normalized := processor.Normalize(msg.Text)
	content := s.classifier.Classify(normalized)

	if !content.Eligible {
		report.IneligibleSkipped++
		s.logger.Debug("skipping ineligible message",
			"source_message_id", msg.SourceMessageID,
			"degraded", content.Degraded,
		)
		return
	}

	exists, err := s.store.Exists(ctx, s.source.Platform(), msg.SourceMessageID)
	if err != nil {
		report.Errors++
		s.logger.Error("dedupe check failed",
			"source_message_id", msg.SourceMessageID,
			"error", err,
		)
		return
	}
	if exists {
		report.DuplicatesSkipped++
		return
	}

	record := &domain.ContentRecord{
		Text:            content.Text,
		Category:        content.Category,
		SourcePlatform:  s.source.Platform(),
		SourceMessageID: msg.SourceMessageID,
		Tags:            content.Tags,
		IsActive:        true,
	}
	if content.Reference != "" {
		ref := content.Reference
		record.Reference = &ref
	}

	id, err := s.store.Insert(ctx, record)
	if errors.Is(err, domain.ErrDuplicate) {
		// A concurrent run won the insert race. Expected, not an error.
		report.DuplicatesSkipped++
		return
	}
	if err != nil {
		report.Errors++
		s.logger.Error("save failed",
			"source_message_id", msg.SourceMessageID,
			"error", err,
		)
		return
	}
	record.ID = id

	report.Saved++
	if len(report.Samples) < sampleLimit {
		report.Samples = append(report.Samples, content)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, record); err != nil {
			s.logger.Warn("publish failed",
				"source_message_id", msg.SourceMessageID,
				"error", err,
			)
		} else {
			report.Published++
		}
	}
}

func (s *SyncService) updateSyncState(ctx context.Context, report *domain.SyncReport) error {
	state, err := s.syncState.Get(ctx, s.source.Platform())
	if err != nil {
		return err
	}

	state.SourcePlatform = s.source.Platform()
	state.LastSyncedAt = time.Now()
	state.TotalSynced += int64(report.Saved)

	return s.syncState.Update(ctx, state)
}
