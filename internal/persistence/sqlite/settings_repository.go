package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// defaultSettings are returned before the first save.
func defaultSettings() persistence.GeneralSettings {
	return persistence.GeneralSettings{
		ProfileName:    "default",
		EnableSchedule: true,
		ScanRate:       30,
		RefreshRate:    60,
		OutputType:     "value",
	}
}

// GetSettings reads the single settings row, falling back to defaults when
// none has been written yet.
func (s *Storage) GetSettings(ctx context.Context) (persistence.GeneralSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT profile_name, enable_schedule, scan_rate, refresh_rate, use_active_period,
			active_from, active_to, output_type, refresh_output, generate_events, updated_at
		 FROM general_settings WHERE id = 1`)

	var (
		settings      persistence.GeneralSettings
		enable        int
		useActive     int
		activeFromRaw sql.NullString
		activeToRaw   sql.NullString
		refreshOut    int
		genEvents     int
		updatedAtRaw  string
	)
	err := row.Scan(&settings.ProfileName, &enable, &settings.ScanRate, &settings.RefreshRate,
		&useActive, &activeFromRaw, &activeToRaw, &settings.OutputType, &refreshOut, &genEvents, &updatedAtRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultSettings(), nil
	}
	if err != nil {
		return persistence.GeneralSettings{}, fmt.Errorf("sqlite: read settings: %w", err)
	}
	settings.EnableSchedule = enable != 0
	settings.UseActivePeriod = useActive != 0
	settings.RefreshOutput = refreshOut != 0
	settings.GenerateEvents = genEvents != 0
	if settings.ActiveFrom, err = s.scanNullTime(activeFromRaw); err != nil {
		return persistence.GeneralSettings{}, err
	}
	if settings.ActiveTo, err = s.scanNullTime(activeToRaw); err != nil {
		return persistence.GeneralSettings{}, err
	}
	if settings.UpdatedAt, err = s.parseTime(updatedAtRaw); err != nil {
		return persistence.GeneralSettings{}, err
	}
	return settings, nil
}

// SaveSettings replaces the single settings row.
func (s *Storage) SaveSettings(ctx context.Context, settings persistence.GeneralSettings) error {
	settings.UpdatedAt = s.now()
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO general_settings (id, profile_name, enable_schedule, scan_rate, refresh_rate,
				use_active_period, active_from, active_to, output_type, refresh_output, generate_events, updated_at)
			 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
				profile_name = excluded.profile_name,
				enable_schedule = excluded.enable_schedule,
				scan_rate = excluded.scan_rate,
				refresh_rate = excluded.refresh_rate,
				use_active_period = excluded.use_active_period,
				active_from = excluded.active_from,
				active_to = excluded.active_to,
				output_type = excluded.output_type,
				refresh_output = excluded.refresh_output,
				generate_events = excluded.generate_events,
				updated_at = excluded.updated_at`,
			settings.ProfileName, boolToInt(settings.EnableSchedule), settings.ScanRate,
			settings.RefreshRate, boolToInt(settings.UseActivePeriod),
			s.nullTime(settings.ActiveFrom), s.nullTime(settings.ActiveTo),
			settings.OutputType, boolToInt(settings.RefreshOutput), boolToInt(settings.GenerateEvents),
			s.formatTime(settings.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: save settings: %w", err)
		}
		return nil
	})
}
