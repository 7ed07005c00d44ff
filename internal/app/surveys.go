package app

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/domain"
)

type SurveyService struct {
	repo   domain.SurveyRepository
	mailer domain.Mailer
	appURL string
	now    func() time.Time
}

func NewSurveyService(r domain.SurveyRepository, m domain.Mailer, appURL string) *SurveyService {
	return &SurveyService{repo: r, mailer: m, appURL: strings.TrimSuffix(appURL, "/"), now: time.Now}
}

// ResidentEvent is the property-management system's lease lifecycle webhook payload.
type ResidentEvent struct {
	Status     string `json:"status"` // "Move-In" | "Move-Out"
	PropertyID string `json:"propertyId"`
	Resident   struct {
		Email string `json:"email"`
	} `json:"resident"`
}

// ParseSurveyType accepts both the webhook spelling ("Move-In") and ours ("move_in").
func ParseSurveyType(s string) (domain.SurveyType, bool) {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "move_in":
		return domain.SurveyMoveIn, true
	case "move_out":
		return domain.SurveyMoveOut, true
	}
	return "", false
}

// HandleResidentEvent records and emails a survey for move-in/move-out
// events. Other statuses are ignored (false, nil).
func (s *SurveyService) HandleResidentEvent(ctx context.Context, ev ResidentEvent) (bool, error) {
	t, ok := ParseSurveyType(ev.Status)
	if !ok {
		log.Debug().Str("status", ev.Status).Msg("resident event ignored")
		return false, nil
	}
	sv, err := s.RecordSent(ctx, ev.PropertyID, ev.Resident.Email, t)
	if err != nil {
		return false, err
	}
	if err := s.mailer.SendSurvey(ctx, sv.ResidentEmail, s.TokenLink(sv.ID), t); err != nil {
		return false, fmt.Errorf("send survey %s: %w", sv.ID, err)
	}
	return true, nil
}

func (s *SurveyService) RecordSent(ctx context.Context, propertyID, email string, t domain.SurveyType) (domain.Survey, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return domain.Survey{}, fmt.Errorf("resident email %q: %w", email, domain.ErrInvalidInput)
	}
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		propertyID = domain.UnknownProperty
	}
	sv := domain.Survey{
		ID:            uuid.NewString(),
		PropertyID:    propertyID,
		ResidentEmail: addr.Address,
		Type:          t,
		Status:        domain.SurveySent,
		SentAt:        s.now().UTC(),
	}
	if err := s.repo.InsertSurvey(ctx, sv); err != nil {
		return domain.Survey{}, err
	}
	return sv, nil
}

// Complete stores the resident's answer on the survey that was sent.
func (s *SurveyService) Complete(ctx context.Context, surveyID string, rating int, feedback string) error {
	if _, err := uuid.Parse(surveyID); err != nil {
		return fmt.Errorf("survey id: %w", domain.ErrInvalidInput)
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating %d: %w", rating, domain.ErrInvalidInput)
	}
	return s.repo.CompleteSurvey(ctx, surveyID, rating, strings.TrimSpace(feedback), s.now().UTC())
}

// Analytics summarizes surveys sent in [from, to] within scope.
func (s *SurveyService) Analytics(ctx context.Context, scope domain.Scope, from, to time.Time) (domain.SurveyAnalytics, error) {
	out := domain.SurveyAnalytics{ByType: map[domain.SurveyType]int{}, Surveys: []domain.Survey{}}
	if to.Before(from) {
		return out, fmt.Errorf("date range: %w", domain.ErrInvalidInput)
	}
	if !scope.All && len(scope.PropertyIDs) == 0 {
		return out, nil
	}
	svs, err := s.repo.ListSurveys(ctx, domain.SurveyQuery{Scope: scope, From: from, To: to})
	if err != nil {
		return out, err
	}

	sum := 0
	for _, sv := range svs {
		out.ByType[sv.Type]++
		if sv.Status != domain.SurveyCompleted || sv.Rating == nil {
			continue
		}
		out.Completed++
		sum += *sv.Rating
		if r := *sv.Rating; r >= 1 && r <= 5 {
			out.ByRating[r-1]++
		}
	}
	out.Total = len(svs)
	out.Surveys = append(out.Surveys, svs...)
	if out.Completed > 0 {
		out.AverageRating = math.Round(float64(sum)/float64(out.Completed)*10) / 10
	}
	if out.Total > 0 {
		out.ResponseRate = int(math.Round(float64(out.Completed) / float64(out.Total) * 100))
	}
	return out, nil
}

// ScheduleReport stores a recurring report over scope, the caller's
// authorized view. A global scope is stored as ALL; a narrowed scope must come
// down to one property, since a non-global user's ALL is not every property.
func (s *SurveyService) ScheduleReport(ctx context.Context, user *domain.User, email string, freq domain.ReportFrequency, scope domain.Scope) (domain.ReportSchedule, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return domain.ReportSchedule{}, fmt.Errorf("report email %q: %w", email, domain.ErrInvalidInput)
	}
	if !freq.Valid() {
		return domain.ReportSchedule{}, fmt.Errorf("frequency %q: %w", freq, domain.ErrInvalidInput)
	}
	var propertyID string
	switch {
	case scope.All:
		propertyID = domain.AllProperties
	case len(scope.PropertyIDs) == 1:
		propertyID = scope.PropertyIDs[0]
	case len(scope.PropertyIDs) == 0:
		return domain.ReportSchedule{}, fmt.Errorf("report scope: %w", domain.ErrAccessDenied)
	default:
		return domain.ReportSchedule{}, fmt.Errorf("report covers %d properties, choose one: %w", len(scope.PropertyIDs), domain.ErrInvalidInput)
	}
	rs := domain.ReportSchedule{
		ID:         uuid.NewString(),
		Email:      addr.Address,
		Frequency:  freq,
		PropertyID: propertyID,
		Status:     "ACTIVE",
		CreatedAt:  s.now().UTC(),
	}
	if user != nil {
		rs.CreatedBy = user.ID
	}
	if err := s.repo.InsertSchedule(ctx, rs); err != nil {
		return domain.ReportSchedule{}, err
	}
	return rs, nil
}

// TokenLink is the per-resident link emailed after a lease event.
func (s *SurveyService) TokenLink(surveyID string) string {
	return s.appURL + "/survey?token=" + url.QueryEscape(surveyID)
}

// PropertyLink is the shareable survey link shown on the dashboard widget.
func (s *SurveyService) PropertyLink(propertyID string) string {
	q := url.Values{}
	q.Set("propertyId", propertyID)
	q.Set("t", fmt.Sprint(s.now().UnixMilli()))
	return s.appURL + "/survey?" + q.Encode()
}
