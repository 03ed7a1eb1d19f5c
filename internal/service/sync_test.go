package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
	"github.com/Strob0t/ReplyForge/internal/port/reviewprovider"
)

func newSyncService(store *mockStore, platforms ...*fakePlatform) (*SyncService, *recordingQueue) {
	provs := make([]reviewprovider.Provider, len(platforms))
	for i, p := range platforms {
		provs[i] = p
	}
	q := &recordingQueue{}
	pub := NewPublisher(provs, store, nil)
	return NewSyncService(store, pub, NewEvents(q), nil, 2), q
}

func TestSyncLocation(t *testing.T) {
	store := fixture()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	platform := &fakePlatform{platform: review.PlatformGoogle, reviews: []review.Review{
		{ExternalID: "g-5", Rating: 5, Text: "Still great", PublishedAt: at},
		{ExternalID: "g-new", Rating: 4, Text: "Nice", PublishedAt: at},
		{ExternalID: "g-bad", Rating: 0, Text: "no stars"},
	}}
	svc, q := newSyncService(store, platform)

	results, err := svc.SyncLocation(context.Background(), "loc1")
	if err != nil {
		t.Fatalf("SyncLocation: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	res := results[0]
	if res.Fetched != 3 || res.Upserted != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}

	existing, _ := store.GetReview(context.Background(), "r5")
	if existing.Text != "Still great" {
		t.Errorf("existing review not refreshed: %q", existing.Text)
	}
	fresh, _ := store.ListReviews(context.Background(), database.ReviewFilter{LocationID: "loc1"})
	if len(fresh) != 3 {
		t.Errorf("stored reviews = %d, want 3", len(fresh))
	}
	for _, r := range fresh {
		if r.ID == "" || r.LocationID != "loc1" || r.Platform != review.PlatformGoogle {
			t.Errorf("review not normalized: %+v", r)
		}
	}

	if store.integration("loc1", review.PlatformGoogle).LastSyncAt == nil {
		t.Error("last sync time not recorded")
	}
	if !q.published(messagequeue.SubjectReviewsSynced) {
		t.Error("expected reviews.synced event")
	}
}

func TestSyncLocationErrors(t *testing.T) {
	store := fixture()
	platform := &fakePlatform{platform: review.PlatformGoogle, listErr: errors.New("401 unauthorized")}
	svc, _ := newSyncService(store, platform)

	results, err := svc.SyncLocation(context.Background(), "loc1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 || results[0].Error == "" {
		t.Fatalf("results = %+v", results)
	}
	if store.integration("loc1", review.PlatformGoogle).LastSyncAt != nil {
		t.Error("failed sync must not advance the sync time")
	}

	if _, err := svc.SyncLocation(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing location: got %v", err)
	}
}

func TestSyncLocationNotConnected(t *testing.T) {
	store := fixture()
	store.integrations = nil
	svc, _ := newSyncService(store, &fakePlatform{platform: review.PlatformGoogle})

	_, err := svc.SyncLocation(context.Background(), "loc1")
	if !errors.Is(err, reviewprovider.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSyncAll(t *testing.T) {
	store := fixture()
	store.locations = append(store.locations,
		review.Location{ID: "loc2", Name: "Harbor Deli", PlatformIDs: map[review.Platform]string{review.PlatformGoogle: "loc-g-2"}},
		review.Location{ID: "loc3", Name: "Unlisted"},
	)
	// loc2 has no integration and fails; loc1 still syncs.
	platform := &fakePlatform{platform: review.PlatformGoogle, reviews: []review.Review{
		{ExternalID: "g-77", Rating: 5, Text: "Top"},
	}}
	svc, _ := newSyncService(store, platform)

	results, err := svc.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected joined error for loc2")
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].LocationID != "loc1" || results[0].Error != "" || results[0].Upserted != 1 {
		t.Errorf("loc1 result = %+v", results[0])
	}
	if results[1].LocationID != "loc2" || results[1].Error == "" {
		t.Errorf("loc2 result = %+v", results[1])
	}
}
