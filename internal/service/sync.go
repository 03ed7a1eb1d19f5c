package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	rfotel "github.com/Strob0t/ReplyForge/internal/adapter/otel"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/port/database"
	"github.com/Strob0t/ReplyForge/internal/port/messagequeue"
)

// SyncResult reports one location/platform pull.
type SyncResult struct {
	LocationID string          `json:"location_id"`
	Platform   review.Platform `json:"platform"`
	Fetched    int             `json:"fetched"`
	Upserted   int             `json:"upserted"`
	Skipped    int             `json:"skipped"`
	Error      string          `json:"error,omitempty"`
}

// SyncService pulls reviews from connected platforms into the store.
type SyncService struct {
	store         database.Store
	publisher     *Publisher
	events        *Events
	metrics       *rfotel.Metrics
	maxConcurrent int
	now           func() time.Time
}

// NewSyncService creates a SyncService that syncs at most maxConcurrent
// locations at once.
func NewSyncService(store database.Store, publisher *Publisher, events *Events, metrics *rfotel.Metrics, maxConcurrent int) *SyncService {
	return &SyncService{
		store:         store,
		publisher:     publisher,
		events:        events,
		metrics:       metrics,
		maxConcurrent: max(maxConcurrent, 1),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SyncLocation pulls new reviews for every platform the location is listed on.
// Platforms fail independently; the joined error lists each failure.
func (s *SyncService) SyncLocation(ctx context.Context, locationID string) ([]SyncResult, error) {
	loc, err := s.store.GetLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}

	platforms := make([]review.Platform, 0, len(loc.PlatformIDs))
	for p, id := range loc.PlatformIDs {
		if id != "" {
			platforms = append(platforms, p)
		}
	}
	slices.Sort(platforms)

	results := make([]SyncResult, 0, len(platforms))
	var errs []error
	for _, p := range platforms {
		res, err := s.syncPlatform(ctx, loc, p)
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s/%s: %w", loc.ID, p, err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (s *SyncService) syncPlatform(ctx context.Context, loc *review.Location, p review.Platform) (SyncResult, error) {
	res := SyncResult{LocationID: loc.ID, Platform: p}
	ctx, span := rfotel.StartSyncSpan(ctx, loc.ID, string(p))
	defer span.End()

	prov, err := s.publisher.Provider(p)
	if err != nil {
		return res, err
	}
	t, err := s.publisher.Target(ctx, loc, p)
	if err != nil {
		return res, err
	}
	token := t.Integration.AccessToken

	var since time.Time
	if t.Integration.LastSyncAt != nil {
		since = *t.Integration.LastSyncAt
	}
	started := s.now()

	reviews, err := prov.ListReviews(ctx, t, since)
	if t.Integration.AccessToken != token {
		if uerr := s.store.UpsertIntegration(ctx, t.Integration); uerr != nil {
			slog.WarnContext(ctx, "persist refreshed token failed", "location_id", loc.ID, "platform", p, "error", uerr)
		}
	}
	if err != nil {
		return res, fmt.Errorf("list reviews: %w", err)
	}
	res.Fetched = len(reviews)

	for i := range reviews {
		rv := &reviews[i]
		rv.LocationID = loc.ID
		rv.Platform = p
		if err := rv.Validate(); err != nil {
			slog.WarnContext(ctx, "skipping review", "external_id", rv.ExternalID, "error", err)
			res.Skipped++
			continue
		}
		if rv.ID == "" {
			rv.ID = uuid.NewString()
		}
		inserted, err := s.store.UpsertReview(ctx, rv)
		if err != nil {
			return res, fmt.Errorf("store review %s: %w", rv.ExternalID, err)
		}
		if inserted {
			res.Upserted++
		}
	}

	if err := s.store.TouchIntegrationSync(ctx, t.Integration.ID, started); err != nil {
		return res, fmt.Errorf("record sync time: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReviewsSynced.Add(ctx, int64(res.Fetched), metric.WithAttributes(attribute.String("platform", string(p))))
	}
	s.events.Synced(ctx, messagequeue.ReviewsSyncedPayload{
		LocationID: loc.ID, Platform: string(p), Fetched: res.Fetched, Upserted: res.Upserted,
	})
	slog.InfoContext(ctx, "reviews synced", "location_id", loc.ID, "platform", p,
		"fetched", res.Fetched, "new", res.Upserted, "skipped", res.Skipped)
	return res, nil
}

// SyncAll syncs every location with bounded concurrency. One location's
// failure does not stop the others.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	locs, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	var (
		mu      sync.Mutex
		results []SyncResult
		errs    []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i := range locs {
		id := locs[i].ID
		g.Go(func() error {
			res, err := s.SyncLocation(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			results = append(results, res...)
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(results, func(a, b SyncResult) int {
		if a.LocationID != b.LocationID {
			if a.LocationID < b.LocationID {
				return -1
			}
			return 1
		}
		if a.Platform < b.Platform {
			return -1
		}
		if a.Platform > b.Platform {
			return 1
		}
		return 0
	})
	return results, errors.Join(errs...)
}
