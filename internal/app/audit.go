package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reputation_hub/internal/domain"
)

type AuditService struct {
	repo        domain.ReviewRepository
	classifier  domain.Classifier
	cache       domain.Cache
	concurrency int
	batch       int
	now         func() time.Time
}

func NewAuditService(r domain.ReviewRepository, c domain.Classifier, cache domain.Cache, concurrency, batch int) *AuditService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AuditService{repo: r, classifier: c, cache: cache, concurrency: concurrency, batch: batch, now: time.Now}
}

// ProcessPending classifies every review that has no AI category yet. Each
// review is handled independently: failures are counted, never propagated,
// and the call returns only once every classification has settled, whether
// or not ctx is cancelled meanwhile.
func (s *AuditService) ProcessPending(ctx context.Context) domain.AuditResult {
	ctx = context.WithoutCancel(ctx)
	log.Info().Msg("audit of unanalyzed reviews starting")

	pending, err := s.repo.ListUnanalyzed(ctx, s.batch)
	if err != nil {
		log.Error().Err(err).Msg("audit failed: cannot query pending reviews")
		return domain.AuditResult{Processed: 0, Errors: 1}
	}

	var (
		processed atomic.Int64
		failed    atomic.Int64
		wg        sync.WaitGroup
	)
	sem := semaphore.NewWeighted(int64(s.concurrency))

	for _, rv := range pending {
		_ = sem.Acquire(ctx, 1) // detached ctx: waits for a slot, never fails
		wg.Add(1)
		go func(rv domain.Review) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.analyze(ctx, rv); err != nil {
				log.Warn().Str("review", rv.ID).Err(err).Msg("review analysis failed")
				failed.Add(1)
				return
			}
			processed.Add(1)
		}(rv)
	}
	wg.Wait()

	res := domain.AuditResult{Processed: int(processed.Load()), Errors: int(failed.Load())}
	if res.Processed > 0 {
		invalidateReviewLists(ctx, s.cache)
	}
	log.Info().Int("processed", res.Processed).Int("errors", res.Errors).Msg("audit complete")
	return res
}

func (s *AuditService) analyze(ctx context.Context, rv domain.Review) error {
	a, err := s.classifier.Classify(ctx, rv.Content)
	if err != nil {
		return err
	}
	return s.repo.SaveAnalysis(ctx, rv.ID, a, s.now().UTC())
}

// Reanalyze clears the AI fields of one review so the next sweep picks it up again.
func (s *AuditService) Reanalyze(ctx context.Context, reviewID string) error {
	if err := s.repo.ClearAnalysis(ctx, reviewID); err != nil {
		return err
	}
	invalidateReviewLists(ctx, s.cache)
	return nil
}
