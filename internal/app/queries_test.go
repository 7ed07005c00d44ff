package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reputation_hub/internal/app"
	"reputation_hub/internal/domain"
)

func TestListReviews_NewestFirst(t *testing.T) {
	repo := newFakeRepo(
		domain.Review{ID: "rev-1", PropertyID: "prop-1", Rating: 5, CreatedAt: day("2023-10-01")},
		domain.Review{ID: "rev-2", PropertyID: "prop-1", Rating: 3, CreatedAt: day("2023-10-05")},
		domain.Review{ID: "rev-5", PropertyID: "prop-1", Rating: 5, CreatedAt: day("2023-10-15")},
		domain.Review{ID: "rev-3", PropertyID: "prop-2", Rating: 4, CreatedAt: day("2023-10-10")},
	)
	q := app.NewQueryService(repo, nil, &fakeCache{}, 10*time.Minute)

	out, err := q.ListReviews(context.Background(), domain.Scope{PropertyIDs: []string{"prop-1"}}, domain.PageQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := []string{"2023-10-15", "2023-10-05", "2023-10-01"}
	if len(out) != len(want) {
		t.Fatalf("expected %d reviews, got %d", len(want), len(out))
	}
	for i, w := range want {
		if got := out[i].CreatedAt.Format("2006-01-02"); got != w {
			t.Fatalf("position %d: want %s got %s", i, w, got)
		}
	}
}

func TestListReviews_TiesBrokenByID(t *testing.T) {
	same := day("2023-10-05")
	repo := newFakeRepo(
		domain.Review{ID: "b", PropertyID: "p", CreatedAt: same},
		domain.Review{ID: "a", PropertyID: "p", CreatedAt: same},
		domain.Review{ID: "c", PropertyID: "p", CreatedAt: same},
	)
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	page1, _ := q.ListReviews(context.Background(), domain.Scope{All: true}, domain.PageQuery{Limit: 2})
	page2, _ := q.ListReviews(context.Background(), domain.Scope{All: true}, domain.PageQuery{Limit: 2, Offset: 2})
	if len(page1) != 2 || page1[0].ID != "a" || page1[1].ID != "b" {
		t.Fatalf("unexpected first page: %+v", page1)
	}
	if len(page2) != 1 || page2[0].ID != "c" {
		t.Fatalf("unexpected second page: %+v", page2)
	}
}

func TestListReviews_EmptyIsNotAnError(t *testing.T) {
	q := app.NewQueryService(newFakeRepo(), nil, &fakeCache{}, time.Minute)

	out, err := q.ListReviews(context.Background(), domain.Scope{PropertyIDs: []string{"prop-9"}}, domain.PageQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}

	// an empty narrowed scope never reaches the store
	out, err = q.ListReviews(context.Background(), domain.Scope{}, domain.PageQuery{})
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result for empty scope, got %v %v", out, err)
	}
}

func TestListReviews_StoreDownWrapsErrFetch(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("dial tcp: connection refused")
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	_, err := q.ListReviews(context.Background(), domain.Scope{All: true}, domain.PageQuery{})
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestListReviews_CacheHitThenInvalidatedByReply(t *testing.T) {
	repo := newFakeRepo(domain.Review{ID: "r1", PropertyID: "p1", Author: "Ana", Status: domain.StatusPending, CreatedAt: day("2023-10-01")})
	cache := &fakeCache{}
	q := app.NewQueryService(repo, nil, cache, 10*time.Minute)
	scope := domain.Scope{PropertyIDs: []string{"p1"}}

	if _, err := q.ListReviews(context.Background(), scope, domain.PageQuery{}); err != nil {
		t.Fatalf("err: %v", err)
	}

	// mutate the store behind the cache's back; the second read must come from cache
	r := repo.reviews["r1"]
	r.Author = "Changed"
	repo.reviews["r1"] = r
	out, _ := q.ListReviews(context.Background(), scope, domain.PageQuery{})
	if out[0].Author != "Ana" {
		t.Fatalf("expected cached author Ana, got %s", out[0].Author)
	}

	// a reply is a review write and must invalidate cached lists
	sess := &fakeSession{}
	rs := app.NewReplyService(&fakePlatform{sess: sess}, repo, cache)
	if _, err := rs.Reply(context.Background(), "accounts/1/locations/2", "r1", "thanks"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	out, _ = q.ListReviews(context.Background(), scope, domain.PageQuery{})
	if out[0].Author != "Changed" || out[0].Status != domain.StatusReplied {
		t.Fatalf("expected fresh review after reply, got %+v", out[0])
	}
}

func TestReviewStats(t *testing.T) {
	cat := domain.CategoryStaff
	repo := newFakeRepo(
		domain.Review{ID: "1", PropertyID: "p", Rating: 5, Status: domain.StatusReplied, CreatedAt: day("2023-10-01")},
		domain.Review{ID: "2", PropertyID: "p", Rating: 2, Status: domain.StatusPending, Actionable: ptr(true), Category: &cat, CreatedAt: day("2023-10-02")},
		domain.Review{ID: "3", PropertyID: "p", Rating: 4, Status: domain.StatusPending, Actionable: ptr(false), CreatedAt: day("2023-10-03")},
	)
	q := app.NewQueryService(repo, nil, nil, time.Minute)

	st, err := q.ReviewStats(context.Background(), domain.Scope{All: true})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.Total != 3 || st.Pending != 2 || st.Actionable != 1 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.AverageRating != 3.7 {
		t.Fatalf("expected average 3.7, got %v", st.AverageRating)
	}
	if st.ByCategory[domain.CategoryStaff] != 1 || st.ByRating[4] != 1 || st.ByRating[1] != 1 {
		t.Fatalf("unexpected breakdown: %+v", st)
	}
}
