package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// GetOverride reads the single runtime override row, nil when none is set.
func (s *Storage) GetOverride(ctx context.Context) (*persistence.RuntimeOverride, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT override_value, override_until, created_at FROM runtime_override WHERE id = 1")

	var (
		override     persistence.RuntimeOverride
		untilRaw     sql.NullString
		createdAtRaw string
	)
	err := row.Scan(&override.Value, &untilRaw, &createdAtRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read override: %w", err)
	}
	if override.Until, err = s.scanNullTime(untilRaw); err != nil {
		return nil, err
	}
	if override.CreatedAt, err = s.parseTime(createdAtRaw); err != nil {
		return nil, err
	}
	return &override, nil
}

// SetOverride replaces the single runtime override row.
func (s *Storage) SetOverride(ctx context.Context, override persistence.RuntimeOverride) error {
	override.CreatedAt = s.now()
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO runtime_override (id, override_value, override_until, created_at)
			 VALUES (1, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
				override_value = excluded.override_value,
				override_until = excluded.override_until,
				created_at = excluded.created_at`,
			override.Value, s.nullTime(override.Until), s.formatTime(override.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: set override: %w", err)
		}
		return nil
	})
}

// ClearOverride removes the runtime override, if any.
func (s *Storage) ClearOverride(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM runtime_override WHERE id = 1"); err != nil {
			return fmt.Errorf("sqlite: clear override: %w", err)
		}
		return nil
	})
}
