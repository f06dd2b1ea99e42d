package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"abcy/internal/store"
	"abcy/internal/strava"
)

// Provider is the activity source sync downloads from
type Provider interface {
	LatestActivities(ctx context.Context, count int) ([]strava.Activity, error)
	GetActivity(ctx context.Context, activityID int64) (json.RawMessage, error)
	GetActivityStreams(ctx context.Context, activityID int64) (json.RawMessage, error)
}

// SyncStateStore records when the last sync finished
type SyncStateStore interface {
	SetSyncState(ctx context.Context, key, value string) error
}

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	provider Provider
	svc      *Service
	state    SyncStateStore
	log      zerolog.Logger
}

// NewSyncService creates a sync service saving through svc
func NewSyncService(provider Provider, svc *Service, state SyncStateStore, log zerolog.Logger) *SyncService {
	return &SyncService{
		provider: provider,
		svc:      svc,
		state:    state,
		log:      log,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesSkipped int
	ActivitiesStored  int
	Errors            []error
}

// DownloadLatest fetches the newest count activities and saves the ones not
// yet stored. Failures on a single activity are collected in the result.
func (s *SyncService) DownloadLatest(ctx context.Context, count int, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	s.log.Info().Int("count", count).Msg("checking for new activities")
	activities, err := s.provider.LatestActivities(ctx, count)
	if err != nil {
		return result, fmt.Errorf("listing activities: %w", err)
	}
	result.ActivitiesFetched = len(activities)

	for i, a := range activities {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{Total: len(activities), Completed: i, CurrentActivity: a.Name}
		}

		exists, err := s.svc.Exists(ctx, a.StartDate, a.ID)
		if err != nil {
			return result, fmt.Errorf("checking activity %d: %w", a.ID, err)
		}
		if exists {
			s.log.Debug().Int64("activity_id", a.ID).Msg("activity exists, skipping")
			result.ActivitiesSkipped++
			continue
		}

		if err := s.download(ctx, a); err != nil {
			s.log.Error().Err(err).Int64("activity_id", a.ID).Msg("failed to save activity")
			result.Errors = append(result.Errors, err)
			continue
		}
		result.ActivitiesStored++
	}

	if err := s.state.SetSyncState(ctx, store.SyncStateLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return result, fmt.Errorf("recording sync time: %w", err)
	}

	s.log.Info().
		Int("fetched", result.ActivitiesFetched).
		Int("stored", result.ActivitiesStored).
		Int("skipped", result.ActivitiesSkipped).
		Int("errors", len(result.Errors)).
		Msg("sync finished")
	return result, nil
}

func (s *SyncService) download(ctx context.Context, a strava.Activity) error {
	s.log.Info().Int64("activity_id", a.ID).Str("name", a.Name).Msg("downloading activity")

	meta, err := s.provider.GetActivity(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("activity %d (%s): %w", a.ID, a.Name, err)
	}
	streams, err := s.provider.GetActivityStreams(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("streams for %d: %w", a.ID, err)
	}
	if _, err := s.svc.Save(ctx, meta, streams); err != nil {
		return fmt.Errorf("saving %d: %w", a.ID, err)
	}
	return nil
}
