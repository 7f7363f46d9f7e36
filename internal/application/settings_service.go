package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// SettingsService validates and persists the single general settings row.
type SettingsService struct {
	settings persistence.SettingsRepository
	logger   *slog.Logger
}

// NewSettingsService wires dependencies for settings operations.
func NewSettingsService(settings persistence.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: defaultLogger(logger)}
}

// GetSettings reads the current settings.
func (s *SettingsService) GetSettings(ctx context.Context) (persistence.GeneralSettings, error) {
	return s.settings.GetSettings(ctx)
}

// SaveSettings validates and replaces the settings row.
func (s *SettingsService) SaveSettings(ctx context.Context, settings persistence.GeneralSettings) error {
	if s == nil {
		return fmt.Errorf("SettingsService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "settings", "save")

	vErr := &ValidationError{}
	if settings.ScanRate <= 0 {
		vErr.add("scan_rate", "scan rate must be positive")
	}
	if settings.RefreshRate <= 0 {
		vErr.add("refresh_rate", "refresh rate must be positive")
	}
	if settings.UseActivePeriod {
		switch {
		case settings.ActiveFrom == nil || settings.ActiveTo == nil:
			vErr.add("active_period", "active period needs both bounds")
		case !settings.ActiveTo.After(*settings.ActiveFrom):
			vErr.add("active_to", "active period end must be after its start")
		}
	}
	if vErr.HasErrors() {
		logger.Warn("settings rejected", "kind", ErrorKind(vErr))
		return vErr
	}

	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		logger.Error("settings save failed", "error", err)
		return err
	}
	logger.Info("settings saved", "profile", settings.ProfileName)
	return nil
}

// OverrideService manages the process-wide runtime override row.
type OverrideService struct {
	overrides persistence.OverrideRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewOverrideService wires dependencies for runtime override operations.
func NewOverrideService(overrides persistence.OverrideRepository, logger *slog.Logger, now func() time.Time) *OverrideService {
	if now == nil {
		now = time.Now
	}
	return &OverrideService{overrides: overrides, logger: defaultLogger(logger), now: now}
}

// GetOverride reads the current override, nil when none is set.
func (s *OverrideService) GetOverride(ctx context.Context) (*persistence.RuntimeOverride, error) {
	return s.overrides.GetOverride(ctx)
}

// SetOverride validates and applies a runtime override. A nil until makes
// the override permanent until cleared.
func (s *OverrideService) SetOverride(ctx context.Context, value string, until *time.Time) error {
	if s == nil {
		return fmt.Errorf("OverrideService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "override", "set")

	vErr := &ValidationError{}
	if value == "" {
		vErr.add("override_value", "override value is required")
	}
	if until != nil && !until.After(s.now()) {
		vErr.add("override_until", "override expiry must be in the future")
	}
	if vErr.HasErrors() {
		logger.Warn("override rejected", "kind", ErrorKind(vErr))
		return vErr
	}

	if err := s.overrides.SetOverride(ctx, persistence.RuntimeOverride{Value: value, Until: until}); err != nil {
		logger.Error("override set failed", "error", err)
		return err
	}
	logger.Info("override applied", "permanent", until == nil)
	return nil
}

// ClearOverride removes the runtime override.
func (s *OverrideService) ClearOverride(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("OverrideService is nil")
	}
	if err := s.overrides.ClearOverride(ctx); err != nil {
		serviceLogger(ctx, s.logger, "override", "clear").Error("override clear failed", "error", err)
		return err
	}
	serviceLogger(ctx, s.logger, "override", "clear").Info("override cleared")
	return nil
}
