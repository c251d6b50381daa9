package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/clubfridge/internal/model"
)

// FindCredentials returns the stored credentials. The second result is false
// when setup has not been completed yet.
func (s *Store) FindCredentials(ctx context.Context) (model.Credentials, bool, error) {
	var c model.Credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT club_id, app_key, username, password
		FROM credentials
		ORDER BY id
		LIMIT 1
	`).Scan(&c.ClubID, &c.AppKey, &c.Username, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credentials{}, false, nil
	}
	if err != nil {
		return model.Credentials{}, false, fmt.Errorf("find credentials: %w", err)
	}
	return c, true, nil
}

// SaveCredentials stores c, replacing any previously stored credentials.
func (s *Store) SaveCredentials(ctx context.Context, c model.Credentials) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, club_id, app_key, username, password)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			club_id = excluded.club_id,
			app_key = excluded.app_key,
			username = excluded.username,
			password = excluded.password
	`, c.ClubID, c.AppKey, c.Username, c.Password)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}
