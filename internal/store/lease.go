package store

import (
	"context"
	"fmt"
	"time"
)

// AcquirePushLease takes or renews the sale upload lease for holder until
// now+ttl. It reports false while another holder's lease has not expired.
// The lease lives in the database, so it excludes pushes from every
// process sharing the file.
func (s *Store) AcquirePushLease(ctx context.Context, holder string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO push_lease (id, holder, expires_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE push_lease.holder = excluded.holder OR push_lease.expires_at <= ?
	`, holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquire push lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire push lease: %w", err)
	}
	return n == 1, nil
}

// ReleasePushLease drops holder's lease. Releasing a lease held by someone
// else, or none, is not an error.
func (s *Store) ReleasePushLease(ctx context.Context, holder string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM push_lease WHERE holder = ?`, holder); err != nil {
		return fmt.Errorf("release push lease: %w", err)
	}
	return nil
}
