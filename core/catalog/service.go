package catalog

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"clipwave/core/identity"
	"clipwave/logger"
	"clipwave/model"
	"clipwave/repository"
	"clipwave/storage"
)

// Service is the catalog orchestration layer. It enforces authentication
// and validation rules and composes repository, identity resolver, and
// object-store gateway results into display-ready records.
//
// The upload flow is a three-step handshake with no server-held state:
// BeginUpload issues a slot, the client PUTs bytes directly to the store,
// CreateTrack registers the resulting object key. A slot that is never used
// simply expires; an uploaded object that is never registered is an
// accepted leak reclaimed only out of band.
type Service struct {
	tracks   repository.TrackRepository
	gateway  storage.Gateway
	resolver identity.Resolver
}

// NewService creates a catalog Service.
func NewService(tracks repository.TrackRepository, gateway storage.Gateway, resolver identity.Resolver) *Service {
	return &Service{
		tracks:   tracks,
		gateway:  gateway,
		resolver: resolver,
	}
}

// CreateTrackParams carries the registration input for a new track.
// Duration is optional; it is absent when the client could not measure it.
type CreateTrackParams struct {
	Title       string
	Description string
	ObjectKey   string
	Duration    *float64
}

// ListTracks returns every track newest first, each joined with the
// uploader's display name and a resolved audio URL. The per-track joins run
// concurrently; results are written back by index so the repository order
// survives any completion order. One track's unresolvable audio or identity
// never aborts the rest of the listing.
func (s *Service) ListTracks(ctx context.Context) ([]model.DisplayTrack, error) {
	tracks, err := s.tracks.GetAllTracks(ctx)
	if err != nil {
		return nil, err
	}
	return s.composeDisplayTracks(ctx, tracks), nil
}

// ListTracksByUploader returns the caller's own tracks, newest first, with
// the same read-time joins as ListTracks.
func (s *Service) ListTracksByUploader(ctx context.Context, callerID int64) ([]model.DisplayTrack, error) {
	if callerID <= 0 {
		return nil, ErrUnauthenticated
	}

	tracks, err := s.tracks.GetTracksByUploaderID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.composeDisplayTracks(ctx, tracks), nil
}

// BeginUpload issues a single-use, time-limited upload slot for the caller.
// Nothing about the slot is recorded server-side; an unused slot expires
// with no cleanup required.
func (s *Service) BeginUpload(ctx context.Context, callerID int64) (model.UploadSlot, error) {
	if callerID <= 0 {
		return model.UploadSlot{}, ErrUnauthenticated
	}

	slot, err := s.gateway.CreateUploadSlot(ctx)
	if err != nil {
		return model.UploadSlot{}, err
	}

	logger.Info("Issued upload slot",
		logger.Int64("callerID", callerID),
		logger.String("objectKey", slot.ObjectKey))
	return slot, nil
}

// CreateTrack registers an uploaded object as a new track and returns its
// id. Title and description must be non-empty after trimming. The object
// key is trusted as presented; registration does not re-verify that the
// object exists in the store.
func (s *Service) CreateTrack(ctx context.Context, callerID int64, params CreateTrackParams) (int64, error) {
	if callerID <= 0 {
		return 0, ErrUnauthenticated
	}

	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if title == "" || description == "" || params.ObjectKey == "" {
		return 0, ErrInvalidArgument
	}

	track := &model.Track{
		Title:          title,
		Description:    description,
		AudioObjectKey: params.ObjectKey,
		UploaderID:     callerID,
	}
	if params.Duration != nil && *params.Duration >= 0 {
		track.Duration = sql.NullFloat64{Float64: *params.Duration, Valid: true}
	}

	id, err := s.tracks.CreateTrack(ctx, track)
	if err != nil {
		return 0, err
	}

	logger.Info("Track registered",
		logger.Int64("trackID", id),
		logger.Int64("uploaderID", callerID),
		logger.String("title", title))
	return id, nil
}

// RecordPlay increments the track's play counter by exactly 1. Each call is
// an unconditional +1; de-duplicating repeated listens is the caller's
// concern. Returns ErrNotFound when the track does not exist.
func (s *Service) RecordPlay(ctx context.Context, trackID int64) error {
	track, err := s.tracks.IncrementPlayCount(ctx, trackID)
	if err != nil {
		return err
	}
	if track == nil {
		return ErrNotFound
	}
	return nil
}

// composeDisplayTracks fans out the per-track identity and URL resolution.
func (s *Service) composeDisplayTracks(ctx context.Context, tracks []*model.Track) []model.DisplayTrack {
	display := make([]model.DisplayTrack, len(tracks))

	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func(i int, track *model.Track) {
			defer wg.Done()
			display[i] = s.composeDisplayTrack(ctx, track)
		}(i, track)
	}
	wg.Wait()

	return display
}

func (s *Service) composeDisplayTrack(ctx context.Context, track *model.Track) model.DisplayTrack {
	dt := model.DisplayTrack{
		ID:           track.ID,
		Title:        track.Title,
		Description:  track.Description,
		UploaderName: s.resolver.DisplayName(ctx, track.UploaderID),
		PlayCount:    track.PlayCount,
		CreatedAt:    track.CreatedAt,
	}

	if track.Duration.Valid {
		duration := track.Duration.Float64
		dt.Duration = &duration
	}

	audioURL, err := s.gateway.ResolveFetchURL(ctx, track.AudioObjectKey)
	if err != nil {
		// Unresolvable audio degrades the field, never the listing.
		logger.Warn("Audio object unresolvable",
			logger.Int64("trackID", track.ID),
			logger.String("objectKey", track.AudioObjectKey),
			logger.ErrorField(err))
	} else {
		dt.AudioURL = &audioURL
	}

	return dt
}
