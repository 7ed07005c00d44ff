package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reputation_hub/internal/domain"
)

type SyncService struct {
	platform domain.ReviewPlatform
	repo     domain.ReviewRepository
	cache    domain.Cache
	workers  int
}

func NewSyncService(p domain.ReviewPlatform, r domain.ReviewRepository, cache domain.Cache, workers int) *SyncService {
	if workers <= 0 {
		workers = 4
	}
	return &SyncService{platform: p, repo: r, cache: cache, workers: workers}
}

// SyncAll pulls every review of every location of every account into the
// store. It never returns an error: missing credentials skip the pass, and a
// failing account or location is counted while the sweep continues.
// Cancellation of ctx is ignored: a started sweep runs to completion.
func (s *SyncService) SyncAll(ctx context.Context) domain.SyncResult {
	ctx = context.WithoutCancel(ctx)

	sess, err := s.platform.Session(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			log.Warn().Err(err).Msg("sync skipped: platform not connected")
		} else {
			log.Error().Err(err).Msg("sync skipped: platform session failed")
		}
		return domain.SyncResult{Skipped: true}
	}

	accounts, err := sess.ListAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list accounts failed")
		return domain.SyncResult{Failures: 1}
	}

	var (
		synced   atomic.Int64
		failures atomic.Int64
		wg       sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.workers))

	for _, acct := range accounts {
		locs, err := sess.ListLocations(ctx, acct.Name)
		if err != nil {
			log.Warn().Str("account", acct.Name).Err(err).Msg("list locations failed")
			failures.Add(1)
			continue
		}

		for _, loc := range locs {
			// acquire before launching the goroutine; release inside it.
			// ctx is never cancelled, so this only waits for a free slot.
			_ = sem.Acquire(ctx, 1)
			wg.Add(1)
			go func(loc domain.PlatformLocation) {
				defer wg.Done()
				defer sem.Release(1)

				n, err := s.syncLocation(ctx, sess, loc)
				if err != nil {
					log.Warn().Str("location", loc.Name).Err(err).Msg("location sync failed")
					failures.Add(1)
					return
				}
				synced.Add(int64(n))
				log.Debug().Str("location", loc.Name).Int("reviews", n).Msg("location synced")
			}(loc)
		}
	}
	wg.Wait()

	res := domain.SyncResult{Synced: int(synced.Load()), Failures: int(failures.Load())}
	if res.Synced > 0 {
		invalidateReviewLists(ctx, s.cache)
	}
	log.Info().Int("synced", res.Synced).Int("failures", res.Failures).Msg("sync completed")
	return res
}

func (s *SyncService) syncLocation(ctx context.Context, sess domain.PlatformSession, loc domain.PlatformLocation) (int, error) {
	prs, err := sess.ListReviews(ctx, loc.Name)
	if err != nil {
		return 0, fmt.Errorf("list reviews: %w", err)
	}
	incoming := mapReviews(loc, prs)
	if len(incoming) == 0 {
		return 0, nil
	}

	ids := make([]string, len(incoming))
	for i, r := range incoming {
		ids[i] = r.ID
	}
	existing, err := s.repo.GetReviews(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load existing: %w", err)
	}

	merged := make([]domain.Review, 0, len(incoming))
	for _, r := range incoming {
		var prev *domain.Review
		if e, ok := existing[r.ID]; ok {
			prev = &e
		}
		merged = append(merged, domain.MergeSynced(prev, r))
	}
	if err := s.repo.UpsertReviews(ctx, merged); err != nil {
		// surface so we know inserts failed
		return 0, fmt.Errorf("upsert reviews for %s: %w", loc.Name, err)
	}
	return len(merged), nil
}
