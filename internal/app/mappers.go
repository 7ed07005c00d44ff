package app

import (
	"strings"

	"reputation_hub/internal/domain"
)

/********** platform code registries **********/

var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// ratingFromCode maps the platform's word-coded rating to 1..5.
// Unrecognized codes clamp down to 1 so the review is still stored.
func ratingFromCode(code string) int {
	if n, ok := starRatings[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return n
	}
	return 1
}

func propertyFromStoreCode(code string) string {
	if c := strings.TrimSpace(code); c != "" {
		return c
	}
	return domain.UnknownProperty
}

/********** review mapper **********/

func mapReview(loc domain.PlatformLocation, r domain.PlatformReview) domain.Review {
	rv := domain.Review{
		ID:          r.ReviewID,
		PropertyID:  propertyFromStoreCode(loc.StoreCode),
		LocationRef: loc.Name,
		Author:      strings.TrimSpace(r.ReviewerName),
		Rating:      ratingFromCode(r.StarRating),
		Content:     r.Comment,
		CreatedAt:   r.CreateTime.UTC(),
		Status:      domain.StatusPending,
	}
	if rv.Author == "" {
		rv.Author = "Anonymous"
	}
	if r.Reply != nil {
		rv.Status = domain.StatusReplied
		text := r.Reply.Comment
		rv.ReplyText = &text
		if !r.Reply.UpdateTime.IsZero() {
			at := r.Reply.UpdateTime.UTC()
			rv.RepliedAt = &at
		}
	}
	return rv
}

func mapReviews(loc domain.PlatformLocation, in []domain.PlatformReview) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		if strings.TrimSpace(r.ReviewID) == "" {
			continue
		}
		out = append(out, mapReview(loc, r))
	}
	return out
}
