package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"clipwave/model"
	"clipwave/repository"
)

type fakeTrackRepo struct {
	mu     sync.Mutex
	nextID int64
	tracks map[int64]*model.Track
	clock  func() time.Time

	failAll bool
}

var _ repository.TrackRepository = (*fakeTrackRepo)(nil)

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[int64]*model.Track)}
}

func (f *fakeTrackRepo) now() time.Time {
	if f.clock != nil {
		return f.clock()
	}
	return time.Now()
}

func (f *fakeTrackRepo) CreateTrack(_ context.Context, track *model.Track) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *track
	stored.ID = f.nextID
	stored.PlayCount = 0
	stored.CreatedAt = f.now()
	f.tracks[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeTrackRepo) GetTrackByID(_ context.Context, id int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrackRepo) GetAllTracks(_ context.Context) ([]*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("query failed")
	}
	out := make([]*model.Track, 0, len(f.tracks))
	for _, t := range f.tracks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeTrackRepo) GetTracksByUploaderID(ctx context.Context, uploaderID int64) ([]*model.Track, error) {
	all, err := f.GetAllTracks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Track, 0)
	for _, t := range all {
		if t.UploaderID == uploaderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) IncrementPlayCount(_ context.Context, id int64) (*model.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, nil
	}
	t.PlayCount++
	cp := *t
	return &cp, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	issued  int
	broken  map[string]bool
	slotErr error
}

func (g *fakeGateway) CreateUploadSlot(_ context.Context) (model.UploadSlot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.slotErr != nil {
		return model.UploadSlot{}, g.slotErr
	}
	g.issued++
	key := fmt.Sprintf("audio/slot-%d", g.issued)
	return model.UploadSlot{
		UploadURL: "http://store.local/upload/" + key,
		ObjectKey: key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (g *fakeGateway) ResolveFetchURL(_ context.Context, objectKey string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.broken[objectKey] {
		return "", errors.New("NoSuchKey: object does not exist")
	}
	return "http://store.local/fetch/" + objectKey, nil
}

type fakeResolver struct {
	names map[int64]string
}

func (r *fakeResolver) DisplayName(_ context.Context, userID int64) string {
	if name, ok := r.names[userID]; ok {
		return name
	}
	return "Anonymous"
}

func newTestService(repo *fakeTrackRepo, gateway *fakeGateway) *Service {
	if gateway == nil {
		gateway = &fakeGateway{}
	}
	return NewService(repo, gateway, &fakeResolver{names: map[int64]string{1: "alice", 2: "bob"}})
}

func TestBeginUpload_RequiresAuthentication(t *testing.T) {
	t.Parallel()
	s := newTestService(newFakeTrackRepo(), nil)

	if _, err := s.BeginUpload(context.Background(), 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
	if _, err := s.BeginUpload(context.Background(), -5); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated for negative caller, got %v", err)
	}
}

func TestBeginUpload_IssuesSlot(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	s := newTestService(newFakeTrackRepo(), gw)

	slot, err := s.BeginUpload(context.Background(), 1)
	if err != nil {
		t.Fatalf("BeginUpload: %v", err)
	}
	if slot.UploadURL == "" || slot.ObjectKey == "" {
		t.Fatalf("incomplete slot: %+v", slot)
	}
	if slot.ExpiresAt.Before(time.Now()) {
		t.Fatalf("slot already expired: %v", slot.ExpiresAt)
	}
}

func TestBeginUpload_GatewayErrorPropagates(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{slotErr: errors.New("store unavailable")}
	s := newTestService(newFakeTrackRepo(), gw)

	if _, err := s.BeginUpload(context.Background(), 1); err == nil {
		t.Fatalf("gateway failure should surface from BeginUpload")
	}
}

func TestListTracks_RepositoryErrorPropagates(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	repo.failAll = true
	s := newTestService(repo, nil)

	if _, err := s.ListTracks(context.Background()); err == nil {
		t.Fatalf("repository failure should surface from ListTracks")
	}
}

func TestCreateTrack_RequiresAuthentication(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	_, err := s.CreateTrack(context.Background(), 0, CreateTrackParams{
		Title: "t", Description: "d", ObjectKey: "audio/x",
	})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
	if len(repo.tracks) != 0 {
		t.Fatalf("no record should be inserted, got %d", len(repo.tracks))
	}
}

func TestCreateTrack_Validation(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	cases := []CreateTrackParams{
		{Title: "", Description: "desc", ObjectKey: "audio/x"},
		{Title: "title", Description: "   ", ObjectKey: "audio/x"},
		{Title: "  \t ", Description: "desc", ObjectKey: "audio/x"},
		{Title: "title", Description: "desc", ObjectKey: ""},
	}
	for _, params := range cases {
		if _, err := s.CreateTrack(context.Background(), 1, params); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("params %+v: want ErrInvalidArgument, got %v", params, err)
		}
	}
	if len(repo.tracks) != 0 {
		t.Fatalf("rejected calls must insert nothing, got %d records", len(repo.tracks))
	}
}

func TestCreateTrack_TrimsAndStartsAtZeroPlays(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	duration := 42.5
	id, err := s.CreateTrack(context.Background(), 1, CreateTrackParams{
		Title:       "  Dream One  ",
		Description: "\tSoft pads\n",
		ObjectKey:   "audio/a",
		Duration:    &duration,
	})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	listing, err := s.ListTracks(context.Background())
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(listing) != 1 {
		t.Fatalf("want exactly one track, got %d", len(listing))
	}
	dt := listing[0]
	if dt.ID != id {
		t.Fatalf("id mismatch: want %d, got %d", id, dt.ID)
	}
	if dt.Title != "Dream One" || dt.Description != "Soft pads" {
		t.Fatalf("text not trimmed verbatim: %q / %q", dt.Title, dt.Description)
	}
	if dt.PlayCount != 0 {
		t.Fatalf("new track must start at 0 plays, got %d", dt.PlayCount)
	}
	if dt.Duration == nil || *dt.Duration != duration {
		t.Fatalf("duration not preserved: %v", dt.Duration)
	}
	if dt.UploaderName != "alice" {
		t.Fatalf("uploader name: want alice, got %q", dt.UploaderName)
	}
	if dt.AudioURL == nil || *dt.AudioURL != "http://store.local/fetch/audio/a" {
		t.Fatalf("audio url not resolved: %v", dt.AudioURL)
	}
}

func TestRecordPlay_NotFound(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	if err := s.RecordPlay(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if len(repo.tracks) != 0 {
		t.Fatalf("RecordPlay on unknown id must have no side effect")
	}
}

func TestRecordPlay_ConcurrentIncrements(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 10, 100} {
		repo := newFakeTrackRepo()
		s := newTestService(repo, nil)

		id, err := s.CreateTrack(context.Background(), 1, CreateTrackParams{
			Title: "loop", Description: "counted", ObjectKey: "audio/loop",
		})
		if err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.RecordPlay(context.Background(), id); err != nil {
					t.Errorf("RecordPlay: %v", err)
				}
			}()
		}
		wg.Wait()

		track, err := repo.GetTrackByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetTrackByID: %v", err)
		}
		if track.PlayCount != int64(n) {
			t.Fatalf("N=%d: want playCount %d, got %d", n, n, track.PlayCount)
		}
	}
}

func TestListTracks_DescendingOrderWithStableTieBreak(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(2 * time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute)}
	idx := 0
	repo.clock = func() time.Time {
		ts := stamps[idx]
		idx++
		return ts
	}

	for i := range stamps {
		_, err := s.CreateTrack(context.Background(), 1, CreateTrackParams{
			Title:       fmt.Sprintf("clip %d", i+1),
			Description: "x",
			ObjectKey:   fmt.Sprintf("audio/%d", i+1),
		})
		if err != nil {
			t.Fatalf("CreateTrack %d: %v", i, err)
		}
	}

	listing, err := s.ListTracks(context.Background())
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}

	// Tracks 2 and 4 share a timestamp; the newer id wins the tie.
	wantIDs := []int64{4, 2, 3, 1}
	if len(listing) != len(wantIDs) {
		t.Fatalf("want %d tracks, got %d", len(wantIDs), len(listing))
	}
	for i, want := range wantIDs {
		if listing[i].ID != want {
			t.Fatalf("position %d: want id %d, got %d", i, want, listing[i].ID)
		}
	}
	for i := 1; i < len(listing); i++ {
		if listing[i].CreatedAt.After(listing[i-1].CreatedAt) {
			t.Fatalf("createdAt not descending at position %d", i)
		}
	}
}

func TestListTracks_UnresolvableAudioDegradesOneTrack(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	gw := &fakeGateway{broken: map[string]bool{"audio/b": true}}
	s := newTestService(repo, gw)

	for _, key := range []string{"audio/a", "audio/b", "audio/c"} {
		_, err := s.CreateTrack(context.Background(), 1, CreateTrackParams{
			Title: key, Description: "d", ObjectKey: key,
		})
		if err != nil {
			t.Fatalf("CreateTrack %s: %v", key, err)
		}
	}

	listing, err := s.ListTracks(context.Background())
	if err != nil {
		t.Fatalf("one bad track must not break the feed: %v", err)
	}
	if len(listing) != 3 {
		t.Fatalf("want all 3 tracks, got %d", len(listing))
	}
	for _, dt := range listing {
		if dt.Title == "audio/b" {
			if dt.AudioURL != nil {
				t.Fatalf("broken track should have null audio url, got %v", *dt.AudioURL)
			}
			if dt.UploaderName != "alice" {
				t.Fatalf("broken track should still resolve its uploader, got %q", dt.UploaderName)
			}
			continue
		}
		if dt.AudioURL == nil {
			t.Fatalf("track %q should be fully populated", dt.Title)
		}
	}
}

func TestListTracksByUploader(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)

	if _, err := s.ListTracksByUploader(context.Background(), 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}

	for caller, key := range map[int64]string{1: "audio/mine", 2: "audio/theirs"} {
		_, err := s.CreateTrack(context.Background(), caller, CreateTrackParams{
			Title: key, Description: "d", ObjectKey: key,
		})
		if err != nil {
			t.Fatalf("CreateTrack: %v", err)
		}
	}

	mine, err := s.ListTracksByUploader(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListTracksByUploader: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "audio/mine" {
		t.Fatalf("want only caller's track, got %+v", mine)
	}
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()
	repo := newFakeTrackRepo()
	s := newTestService(repo, nil)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	repo.clock = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	idA, err := s.CreateTrack(ctx, 1, CreateTrackParams{Title: "Dream One", Description: "Soft pads", ObjectKey: "audio/a"})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	idB, err := s.CreateTrack(ctx, 2, CreateTrackParams{Title: "Dream Two", Description: "Rain loop", ObjectKey: "audio/b"})
	if err != nil {
		t.Fatalf("create B: %v", err)
	}

	listing, err := s.ListTracks(ctx)
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(listing) != 2 || listing[0].ID != idB || listing[1].ID != idA {
		t.Fatalf("want [B, A], got %+v", listing)
	}

	for i := 0; i < 3; i++ {
		if err := s.RecordPlay(ctx, idA); err != nil {
			t.Fatalf("RecordPlay A: %v", err)
		}
	}

	listing, err = s.ListTracks(ctx)
	if err != nil {
		t.Fatalf("re-list: %v", err)
	}
	if listing[1].PlayCount != 3 {
		t.Fatalf("A.playCount: want 3, got %d", listing[1].PlayCount)
	}
	if listing[0].PlayCount != 0 {
		t.Fatalf("B.playCount: want 0, got %d", listing[0].PlayCount)
	}
}
