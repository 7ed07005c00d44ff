package mysql

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reputation_hub/internal/domain"
)

func (r *Repo) InsertSurvey(ctx context.Context, s domain.Survey) error {
	_, err := r.db.ExecContext(ctx, insertSurveySQL,
		s.ID, s.PropertyID, s.ResidentEmail, string(s.Type), string(s.Status), s.SentAt.UTC())
	return err
}

func (r *Repo) CompleteSurvey(ctx context.Context, id string, rating int, feedback string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, completeSurveySQL, rating, feedback, at.UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "survey", id)
}

func (r *Repo) ListSurveys(ctx context.Context, q domain.SurveyQuery) ([]domain.Survey, error) {
	b := sq.Select("id", "property_id", "resident_email", "type", "status", "sent_at", "completed_at", "rating", "feedback").
		From("surveys").
		Where(sq.GtOrEq{"sent_at": q.From.UTC()}).
		Where(sq.LtOrEq{"sent_at": q.To.UTC()}).
		OrderBy("sent_at DESC", "id ASC")
	if !q.Scope.All {
		b = b.Where(sq.Eq{"property_id": q.Scope.PropertyIDs})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Survey{}
	for rows.Next() {
		var (
			s           domain.Survey
			typ, status string
			completedAt sql.NullTime
			rating      sql.NullInt64
			feedback    sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.PropertyID, &s.ResidentEmail, &typ, &status, &s.SentAt, &completedAt, &rating, &feedback); err != nil {
			return nil, err
		}
		s.Type, s.Status = domain.SurveyType(typ), domain.SurveyStatus(status)
		s.SentAt = s.SentAt.UTC()
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			s.CompletedAt = &t
		}
		if rating.Valid {
			n := int(rating.Int64)
			s.Rating = &n
		}
		if feedback.Valid {
			f := feedback.String
			s.Feedback = &f
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) InsertSchedule(ctx context.Context, s domain.ReportSchedule) error {
	_, err := r.db.ExecContext(ctx, insertScheduleSQL,
		s.ID, s.Email, string(s.Frequency), s.PropertyID, s.Status, s.CreatedBy, s.CreatedAt.UTC())
	return err
}
