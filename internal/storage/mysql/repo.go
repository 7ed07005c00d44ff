package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"reputation_hub/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*10)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.ID,
			rv.PropertyID,
			rv.LocationRef,
			rv.Author,
			rv.Rating,
			rv.Content,
			rv.CreatedAt.UTC(),
			string(rv.Status),
			valStr(rv.ReplyText),
			valTime(rv.RepliedAt),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) MarkReplied(ctx context.Context, id, text string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, markRepliedSQL, text, at.UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "review", id)
}

func (r *Repo) SaveAnalysis(ctx context.Context, id string, a domain.ReviewAnalysis, at time.Time) error {
	res, err := r.db.ExecContext(ctx, saveAnalysisSQL,
		string(a.Category), string(a.Sentiment), a.Actionable, a.Summary, at.UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "review", id)
}

// ClearAnalysis is a no-op on unknown ids; MySQL reports zero affected rows
// for an already-cleared review too, so the count cannot tell them apart.
func (r *Repo) ClearAnalysis(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, clearAnalysisSQL, id)
	return err
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	q, args, err := sq.Select(reviewColumns...).From("reviews").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Review{}, err
	}
	rv, err := scanReview(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) GetReviews(ctx context.Context, ids []string) (map[string]domain.Review, error) {
	out := make(map[string]domain.Review, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rs, err := r.queryReviews(ctx, sq.Select(reviewColumns...).From("reviews").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, rv := range rs {
		out[rv.ID] = rv
	}
	return out, nil
}

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	b := sq.Select(reviewColumns...).From("reviews").OrderBy("created_at DESC", "id ASC")
	if !q.Scope.All {
		b = b.Where(sq.Eq{"property_id": q.Scope.PropertyIDs})
	}
	if q.Page.Limit > 0 {
		b = b.Limit(uint64(q.Page.Limit))
	}
	if q.Page.Offset > 0 {
		if q.Page.Limit <= 0 {
			// MySQL needs a LIMIT to accept OFFSET
			b = b.Limit(1<<63 - 1)
		}
		b = b.Offset(uint64(q.Page.Offset))
	}
	return r.queryReviews(ctx, b)
}

func (r *Repo) ListUnanalyzed(ctx context.Context, limit int) ([]domain.Review, error) {
	b := sq.Select(reviewColumns...).From("reviews").
		Where(sq.Eq{"category": nil}).
		OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.queryReviews(ctx, b)
}

func (r *Repo) queryReviews(ctx context.Context, b sq.SelectBuilder) ([]domain.Review, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReview(s rowScanner) (domain.Review, error) {
	var (
		rv         domain.Review
		status     string
		replyText  sql.NullString
		repliedAt  sql.NullTime
		category   sql.NullString
		sentiment  sql.NullString
		actionable sql.NullBool
		summary    sql.NullString
		analyzedAt sql.NullTime
	)
	if err := s.Scan(
		&rv.ID,
		&rv.PropertyID,
		&rv.LocationRef,
		&rv.Author,
		&rv.Rating,
		&rv.Content,
		&rv.CreatedAt,
		&status,
		&replyText,
		&repliedAt,
		&category,
		&sentiment,
		&actionable,
		&summary,
		&analyzedAt,
	); err != nil {
		return domain.Review{}, err
	}

	rv.Status = domain.ReviewStatus(status)
	rv.CreatedAt = rv.CreatedAt.UTC()
	if replyText.Valid {
		s := replyText.String
		rv.ReplyText = &s
	}
	if repliedAt.Valid {
		t := repliedAt.Time.UTC()
		rv.RepliedAt = &t
	}
	if category.Valid {
		c := domain.Category(category.String)
		rv.Category = &c
	}
	if sentiment.Valid {
		s := domain.Sentiment(sentiment.String)
		rv.Sentiment = &s
	}
	if actionable.Valid {
		b := actionable.Bool
		rv.Actionable = &b
	}
	if summary.Valid {
		s := summary.String
		rv.Summary = &s
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time.UTC()
		rv.AnalyzedAt = &t
	}
	return rv, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

var (
	_ domain.ReviewRepository    = (*Repo)(nil)
	_ domain.DirectoryRepository = (*Repo)(nil)
	_ domain.SurveyRepository    = (*Repo)(nil)
	_ domain.TokenStore          = (*Repo)(nil)
)
