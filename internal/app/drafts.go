package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"reputation_hub/internal/domain"
)

const (
	fallbackDraft        = "Thank you for your feedback! We appreciate you taking the time to share your thoughts."
	fallbackDraftNoModel = "Thank you for your feedback! (AI generation unavailable - missing API key)"
)

type DraftService struct{ classifier domain.Classifier }

func NewDraftService(c domain.Classifier) *DraftService { return &DraftService{classifier: c} }

// Draft suggests a reply for staff to edit. It always returns usable text:
// model failures fall back to a generic thank-you.
func (s *DraftService) Draft(ctx context.Context, rv domain.Review) string {
	text, err := s.classifier.DraftReply(ctx, rv.Content, rv.Author)
	switch {
	case errors.Is(err, domain.ErrClassifierUnavailable):
		log.Warn().Msg("draft requested without a generative-language key")
		return fallbackDraftNoModel
	case err != nil:
		log.Warn().Str("review", rv.ID).Err(err).Msg("draft generation failed")
		return fallbackDraft
	}
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return fallbackDraft
}
