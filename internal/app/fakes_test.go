package app_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"reputation_hub/internal/domain"
)

// ---- review repository ----

type fakeRepo struct {
	mu       sync.Mutex
	reviews  map[string]domain.Review
	listErr  error
	markErr  error
	upserts  int
	analyses int
}

func newFakeRepo(rs ...domain.Review) *fakeRepo {
	f := &fakeRepo{reviews: map[string]domain.Review{}}
	for _, r := range rs {
		f.reviews[r.ID] = r
	}
	return f
}

func (f *fakeRepo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	for _, r := range rs {
		f.reviews[r.ID] = r
	}
	return nil
}

func (f *fakeRepo) MarkReplied(ctx context.Context, id, text string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = domain.StatusReplied
	r.ReplyText = &text
	r.RepliedAt = &at
	f.reviews[id] = r
	return nil
}

func (f *fakeRepo) SaveAnalysis(ctx context.Context, id string, a domain.ReviewAnalysis, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Category, r.Sentiment = &a.Category, &a.Sentiment
	r.Actionable, r.Summary, r.AnalyzedAt = &a.Actionable, &a.Summary, &at
	f.reviews[id] = r
	f.analyses++
	return nil
}

func (f *fakeRepo) ClearAnalysis(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Category, r.Sentiment, r.Actionable, r.Summary, r.AnalyzedAt = nil, nil, nil, nil, nil
	f.reviews[id] = r
	return nil
}

func (f *fakeRepo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetReviews(ctx context.Context, ids []string) (map[string]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]domain.Review{}
	for _, id := range ids {
		if r, ok := f.reviews[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeRepo) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if q.Scope.Includes(r.PropertyID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if q.Page.Offset > 0 {
		if q.Page.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Page.Offset:]
	}
	if q.Page.Limit > 0 && len(out) > q.Page.Limit {
		out = out[:q.Page.Limit]
	}
	return out, nil
}

func (f *fakeRepo) ListUnanalyzed(ctx context.Context, limit int) ([]domain.Review, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if r.Category == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) snapshot() map[string]domain.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Review, len(f.reviews))
	for k, v := range f.reviews {
		out[k] = v
	}
	return out
}

// ---- cache ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.Review:
		*d = v.([]domain.Review)
	case *int64:
		*d = v.(int64)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// ---- review platform ----

type fakePlatform struct {
	sessErr error
	sess    *fakeSession
}

func (p *fakePlatform) Session(ctx context.Context) (domain.PlatformSession, error) {
	if p.sessErr != nil {
		return nil, p.sessErr
	}
	return p.sess, nil
}

type fakeSession struct {
	mu        sync.Mutex
	accounts  []domain.PlatformAccount
	locations map[string][]domain.PlatformLocation
	reviews   map[string][]domain.PlatformReview
	reviewErr map[string]error
	replyErr  error
	replies   map[string]string
	delay     time.Duration // per ListReviews call; honours ctx
}

func (s *fakeSession) ListAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	return s.accounts, nil
}

func (s *fakeSession) ListLocations(ctx context.Context, account string) ([]domain.PlatformLocation, error) {
	return s.locations[account], nil
}

func (s *fakeSession) ListReviews(ctx context.Context, location string) ([]domain.PlatformReview, error) {
	if err := wait(ctx, s.delay); err != nil {
		return nil, err
	}
	if err := s.reviewErr[location]; err != nil {
		return nil, err
	}
	return s.reviews[location], nil
}

func (s *fakeSession) UpdateReply(ctx context.Context, reviewName, comment string) error {
	if s.replyErr != nil {
		return s.replyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replies == nil {
		s.replies = map[string]string{}
	}
	s.replies[reviewName] = comment
	return nil
}

// ---- classifier ----

type fakeClassifier struct {
	failOn string // content substring that makes Classify fail
	draft  string
	err    error
	delay  time.Duration
}

func (c *fakeClassifier) Classify(ctx context.Context, content string) (domain.ReviewAnalysis, error) {
	if err := wait(ctx, c.delay); err != nil {
		return domain.ReviewAnalysis{}, err
	}
	if c.err != nil {
		return domain.ReviewAnalysis{}, c.err
	}
	if c.failOn != "" && strings.Contains(content, c.failOn) {
		return domain.ReviewAnalysis{}, errors.New("model returned garbage")
	}
	return domain.ReviewAnalysis{
		Category:   domain.CategoryMaintenance,
		Sentiment:  domain.SentimentNegative,
		Actionable: true,
		Summary:    "broken heater",
	}, nil
}

func (c *fakeClassifier) DraftReply(ctx context.Context, content, author string) (string, error) {
	return c.draft, c.err
}

// ---- helpers ----

// wait sleeps for d like a slow remote call, failing early if ctx ends.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
