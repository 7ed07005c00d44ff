package httpserver_test

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"reputation_hub/internal/domain"
)

// memStore is an in-memory review, directory and survey store.
type memStore struct {
	mu        sync.Mutex
	reviews   map[string]domain.Review
	users     map[string]domain.User
	props     []domain.Property
	surveys   map[string]domain.Survey
	schedules []domain.ReportSchedule
	failReads bool
}

func newMemStore() *memStore {
	return &memStore{
		reviews: map[string]domain.Review{},
		users:   map[string]domain.User{},
		surveys: map[string]domain.Survey{},
	}
}

var errStoreDown = errors.New("store down")

func (m *memStore) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		m.reviews[r.ID] = r
	}
	return nil
}

func (m *memStore) MarkReplied(ctx context.Context, id, text string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status, r.ReplyText, r.RepliedAt = domain.StatusReplied, &text, &at
	m.reviews[id] = r
	return nil
}

func (m *memStore) SaveAnalysis(ctx context.Context, id string, a domain.ReviewAnalysis, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reviews[id]
	r.Category, r.Sentiment, r.Actionable, r.Summary, r.AnalyzedAt = &a.Category, &a.Sentiment, &a.Actionable, &a.Summary, &at
	m.reviews[id] = r
	return nil
}

func (m *memStore) ClearAnalysis(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reviews[id]
	r.Category, r.Sentiment, r.Actionable, r.Summary, r.AnalyzedAt = nil, nil, nil, nil, nil
	m.reviews[id] = r
	return nil
}

func (m *memStore) GetReview(ctx context.Context, id string) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memStore) GetReviews(ctx context.Context, ids []string) (map[string]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]domain.Review{}
	for _, id := range ids {
		if r, ok := m.reviews[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (m *memStore) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	out := []domain.Review{}
	for _, r := range m.reviews {
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
	if q.Page.Offset >= len(out) {
		return []domain.Review{}, nil
	}
	out = out[q.Page.Offset:]
	if q.Page.Limit > 0 && len(out) > q.Page.Limit {
		out = out[:q.Page.Limit]
	}
	return out, nil
}

func (m *memStore) ListUnanalyzed(ctx context.Context, limit int) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Review
	for _, r := range m.reviews {
		if r.Category == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) ListProperties(ctx context.Context, scope domain.Scope) ([]domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Property{}
	for _, p := range m.props {
		if scope.Includes(p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) InsertSurvey(ctx context.Context, s domain.Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys[s.ID] = s
	return nil
}

func (m *memStore) CompleteSurvey(ctx context.Context, id string, rating int, feedback string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status, s.Rating, s.Feedback, s.CompletedAt = domain.SurveyCompleted, &rating, &feedback, &at
	m.surveys[id] = s
	return nil
}

func (m *memStore) ListSurveys(ctx context.Context, q domain.SurveyQuery) ([]domain.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Survey{}
	for _, s := range m.surveys {
		if q.Scope.Includes(s.PropertyID) && !s.SentAt.Before(q.From) && !s.SentAt.After(q.To) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) InsertSchedule(ctx context.Context, s domain.ReportSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = append(m.schedules, s)
	return nil
}

func (m *memStore) survey(id string) (domain.Survey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.surveys[id]
	return s, ok
}

func (m *memStore) surveyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.surveys)
}

func (m *memStore) review(id string) domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviews[id]
}

/********** platform, classifier, mailer, oauth **********/

type stubPlatform struct {
	mu        sync.Mutex
	replyErr  error
	replies   map[string]string
	accounts  []domain.PlatformAccount
	locations int           // per account; 0 means one
	delay     time.Duration // per ListReviews call
}

func (p *stubPlatform) Session(ctx context.Context) (domain.PlatformSession, error) { return p, nil }

func (p *stubPlatform) ListAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	return p.accounts, nil
}

func (p *stubPlatform) ListLocations(ctx context.Context, account string) ([]domain.PlatformLocation, error) {
	n := max(p.locations, 1)
	out := make([]domain.PlatformLocation, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.PlatformLocation{Name: fmt.Sprintf("%s/locations/%d", account, i), StoreCode: "p1"})
	}
	return out, nil
}

// ListReviews returns one review per location, id synced-<location number>.
func (p *stubPlatform) ListReviews(ctx context.Context, location string) ([]domain.PlatformReview, error) {
	if err := wait(ctx, p.delay); err != nil {
		return nil, err
	}
	return []domain.PlatformReview{{ReviewID: "synced-" + path.Base(location), StarRating: "FIVE", Comment: "great", CreateTime: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)}}, nil
}

func (p *stubPlatform) UpdateReply(ctx context.Context, reviewName, comment string) error {
	if p.replyErr != nil {
		return p.replyErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replies == nil {
		p.replies = map[string]string{}
	}
	p.replies[reviewName] = comment
	return nil
}

type stubClassifier struct{ delay time.Duration }

func (c stubClassifier) Classify(ctx context.Context, content string) (domain.ReviewAnalysis, error) {
	if err := wait(ctx, c.delay); err != nil {
		return domain.ReviewAnalysis{}, err
	}
	return domain.ReviewAnalysis{Category: domain.CategoryStaff, Sentiment: domain.SentimentPositive, Summary: "friendly staff"}, nil
}

func (c stubClassifier) DraftReply(ctx context.Context, content, author string) (string, error) {
	if err := wait(ctx, c.delay); err != nil {
		return "", err
	}
	return "Thanks " + author + "!", nil
}

// wait stands in for a slow remote call and gives up when ctx ends.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

type stubMailer struct{ sent int }

func (m *stubMailer) SendSurvey(ctx context.Context, to, link string, t domain.SurveyType) error {
	m.sent++
	return nil
}

type stubAuth struct {
	codes []string
	err   error
}

func (a *stubAuth) AuthURL(state string) (string, error) {
	return "https://consent.example.com/?state=" + state, nil
}

func (a *stubAuth) Exchange(ctx context.Context, code string) error {
	a.codes = append(a.codes, code)
	return a.err
}
