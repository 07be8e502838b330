package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

// ScheduleReconciler aligns the recurring job with settings.
type ScheduleReconciler interface {
	Apply(s domain.OperatorSettings)
}

// SettingsService applies typed setting changes and keeps the schedule in sync.
type SettingsService struct {
	store     ports.SettingsStore
	scheduler ScheduleReconciler
	audit     ports.AuditLog
	log       *slog.Logger
	now       func() time.Time
}

// NewSettingsService constructs the service.
func NewSettingsService(store ports.SettingsStore, scheduler ScheduleReconciler, audit ports.AuditLog, log *slog.Logger) *SettingsService {
	return &SettingsService{
		store:     store,
		scheduler: scheduler,
		audit:     audit,
		log:       logging.OrDiscard(log).With("component", "settings"),
		now:       time.Now,
	}
}

// Get returns the operator's settings, creating defaults on first access.
func (s *SettingsService) Get(ctx context.Context, operatorID int64) (domain.OperatorSettings, error) {
	return s.store.Settings(ctx, operatorID)
}

// Update parses and applies one setting and persists it. Only the enable flag
// and the interval re-register the schedule.
func (s *SettingsService) Update(ctx context.Context, operatorID int64, key domain.SettingKey, raw string) (domain.OperatorSettings, error) {
	mutate, err := domain.ParseSetting(key, raw)
	if err != nil {
		return domain.OperatorSettings{}, err
	}

	current, err := s.store.Settings(ctx, operatorID)
	if err != nil {
		return domain.OperatorSettings{}, err
	}
	mutate(&current)

	if err := s.store.SaveSettings(ctx, current); err != nil {
		return domain.OperatorSettings{}, fmt.Errorf("save settings: %w", err)
	}
	if s.scheduler != nil && affectsSchedule(key) {
		s.scheduler.Apply(current)
	}

	entry := domain.AuditEntry{
		OperatorID: operatorID,
		Action:     domain.ActionUpdateSettings,
		Status:     domain.AuditSuccess,
		Message:    fmt.Sprintf("%s = %s", key, raw),
		Details:    map[string]any{"key": string(key), "value": raw},
		CreatedAt:  s.now().UTC(),
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.log.Error("append audit entry failed", "operator_id", operatorID, "error", err)
	}

	s.log.Info("setting updated", "operator_id", operatorID, "key", key, "value", raw)
	return current, nil
}

func affectsSchedule(key domain.SettingKey) bool {
	return key == domain.SettingAutoPublishEnabled || key == domain.SettingInterval
}
