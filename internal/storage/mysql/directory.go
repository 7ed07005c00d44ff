package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"reputation_hub/internal/domain"
)

func (r *Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var (
		u        domain.User
		role     string
		assigned []byte
	)
	err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(&u.ID, &u.Name, &u.Email, &role, &assigned)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	if len(assigned) > 0 {
		if err := json.Unmarshal(assigned, &u.AssignedProperties); err != nil {
			return domain.User{}, fmt.Errorf("user %s assigned_properties: %w", id, err)
		}
	}
	return u, nil
}

func (r *Repo) ListProperties(ctx context.Context, scope domain.Scope) ([]domain.Property, error) {
	b := sq.Select("id", "name", "address").From("properties").OrderBy("name ASC", "id ASC")
	if !scope.All {
		b = b.Where(sq.Eq{"id": scope.PropertyIDs})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Property{}
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
