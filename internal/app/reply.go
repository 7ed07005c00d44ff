package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"reputation_hub/internal/domain"
)

type ReplyService struct {
	platform domain.ReviewPlatform
	repo     domain.ReviewRepository
	cache    domain.Cache
	now      func() time.Time
}

func NewReplyService(p domain.ReviewPlatform, r domain.ReviewRepository, cache domain.Cache) *ReplyService {
	return &ReplyService{platform: p, repo: r, cache: cache, now: time.Now}
}

// Reply posts text to the platform review and then marks the stored review
// replied. A platform failure leaves the store untouched and is returned. A
// store failure after a successful post is only a warning: the reply is
// live and the next sync reconciles the stored status.
func (s *ReplyService) Reply(ctx context.Context, locationRef, reviewID, text string) (domain.ReplyResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ReplyResult{}, domain.ErrEmptyReply
	}
	if strings.TrimSpace(reviewID) == "" || strings.TrimSpace(locationRef) == "" {
		return domain.ReplyResult{}, fmt.Errorf("review reference: %w", domain.ErrInvalidInput)
	}

	sess, err := s.platform.Session(ctx)
	if err != nil {
		return domain.ReplyResult{}, fmt.Errorf("platform session: %w", err)
	}
	name := fmt.Sprintf("%s/reviews/%s", strings.TrimSuffix(locationRef, "/"), reviewID)
	if err := sess.UpdateReply(ctx, name, text); err != nil {
		return domain.ReplyResult{}, fmt.Errorf("post reply to %s: %w", reviewID, err)
	}
	log.Info().Str("review", reviewID).Msg("reply posted")

	if err := s.repo.MarkReplied(ctx, reviewID, text, s.now().UTC()); err != nil {
		log.Warn().Str("review", reviewID).Err(err).Msg("reply posted but cache reconciliation pending")
		return domain.ReplyResult{Posted: true, CacheStale: true}, nil
	}
	invalidateReviewLists(ctx, s.cache)
	return domain.ReplyResult{Posted: true}, nil
}
