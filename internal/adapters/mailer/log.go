// Package mailer delivers resident survey invitations. The log mailer is the
// only transport: it writes the rendered message to the structured log.
package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"reputation_hub/internal/domain"
)

type LogMailer struct {
	log  zerolog.Logger
	from string
}

func NewLog(l zerolog.Logger, from string) *LogMailer {
	return &LogMailer{log: l, from: from}
}

func (m *LogMailer) SendSurvey(ctx context.Context, to, link string, t domain.SurveyType) error {
	label := surveyLabel(t)
	m.log.Info().
		Str("from", m.from).
		Str("to", to).
		Str("subject", fmt.Sprintf("How was your %s?", label)).
		Str("link", link).
		Msg("survey email")
	return nil
}

func surveyLabel(t domain.SurveyType) string {
	if t == domain.SurveyMoveOut {
		return "move-out"
	}
	return "move-in"
}
