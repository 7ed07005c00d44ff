package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reputation_hub/internal/domain"
)

// reviewGenKey holds a stamp bumped on every review write; list keys embed it
// so a write makes every cached list unreachable at once.
const reviewGenKey = "reviews:gen"

type QueryService struct {
	repo     domain.ReviewRepository
	dir      domain.DirectoryRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, d domain.DirectoryRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, dir: d, cache: c, cacheTTL: ttl}
}

// ListReviews returns the reviews visible in scope, newest first (ties by id).
// No match is an empty slice; a store failure wraps domain.ErrFetch.
func (s *QueryService) ListReviews(ctx context.Context, scope domain.Scope, pg domain.PageQuery) ([]domain.Review, error) {
	if !scope.All && len(scope.PropertyIDs) == 0 {
		return []domain.Review{}, nil
	}

	key := reviewListKey(s.generation(ctx), scope, pg)
	var out []domain.Review
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok && out != nil {
			return out, nil
		}
	}

	rs, err := s.repo.ListReviews(ctx, domain.ReviewQuery{Scope: scope, Page: pg})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	// copy to avoid aliasing the repo's backing array
	out = make([]domain.Review, len(rs))
	copy(out, rs)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds())); err != nil {
			log.Debug().Err(err).Msg("review list cache set failed")
		}
	}
	return out, nil
}

func (s *QueryService) GetReview(ctx context.Context, id string) (domain.Review, error) {
	return s.repo.GetReview(ctx, id)
}

// ReviewStats aggregates the dashboard cards for scope.
func (s *QueryService) ReviewStats(ctx context.Context, scope domain.Scope) (domain.ReviewStats, error) {
	rs, err := s.ListReviews(ctx, scope, domain.PageQuery{})
	if err != nil {
		return domain.ReviewStats{ByCategory: map[domain.Category]int{}}, err
	}
	return computeStats(rs), nil
}

func (s *QueryService) ListProperties(ctx context.Context, scope domain.Scope) ([]domain.Property, error) {
	if !scope.All && len(scope.PropertyIDs) == 0 {
		return []domain.Property{}, nil
	}
	return s.dir.ListProperties(ctx, scope)
}

func computeStats(rs []domain.Review) domain.ReviewStats {
	st := domain.ReviewStats{Total: len(rs), ByCategory: map[domain.Category]int{}}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
		if r.Rating >= 1 && r.Rating <= 5 {
			st.ByRating[r.Rating-1]++
		}
		if r.Status == domain.StatusPending {
			st.Pending++
		}
		if r.Actionable != nil && *r.Actionable {
			st.Actionable++
		}
		if r.Category != nil {
			st.ByCategory[*r.Category]++
		}
	}
	if st.Total > 0 {
		st.AverageRating = math.Round(float64(sum)/float64(st.Total)*10) / 10
	}
	return st
}

func (s *QueryService) generation(ctx context.Context) int64 {
	if s.cache == nil {
		return 0
	}
	var gen int64
	if ok, err := s.cache.Get(ctx, reviewGenKey, &gen); !ok || err != nil {
		return 0
	}
	return gen
}

// invalidateReviewLists is best effort; a failed bump only delays freshness
// until the list TTL expires.
func invalidateReviewLists(ctx context.Context, cache domain.Cache) {
	if cache == nil {
		return
	}
	if err := cache.Set(ctx, reviewGenKey, time.Now().UnixNano(), 0); err != nil {
		log.Warn().Err(err).Msg("review cache invalidation failed")
	}
}

func reviewListKey(gen int64, scope domain.Scope, pg domain.PageQuery) string {
	scopeKey := "all"
	if !scope.All {
		ids := slices.Clone(scope.PropertyIDs)
		slices.Sort(ids)
		sum := sha1.Sum([]byte(strings.Join(ids, "\x00")))
		scopeKey = hex.EncodeToString(sum[:8])
	}
	return fmt.Sprintf("reviews:%d:%s:%d:%d", gen, scopeKey, pg.Limit, pg.Offset)
}
