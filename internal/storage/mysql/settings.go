package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"reputation_hub/internal/domain"
)

const gbpAuthKey = "gbp_auth"

// LoadToken returns domain.ErrNotFound until an OAuth connection was made.
func (r *Repo) LoadToken(ctx context.Context) (domain.OAuthToken, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, loadSettingSQL, gbpAuthKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OAuthToken{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OAuthToken{}, err
	}
	var t domain.OAuthToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.OAuthToken{}, err
	}
	return t, nil
}

func (r *Repo) SaveToken(ctx context.Context, t domain.OAuthToken) error {
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, saveSettingSQL, gbpAuthKey, string(b))
	return err
}
