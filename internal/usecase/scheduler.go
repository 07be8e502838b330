package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

// ScheduledRunner is the pipeline entry point invoked by recurring jobs.
type ScheduledRunner interface {
	RunScheduled(ctx context.Context, operatorID int64) (RunResult, error)
}

// AutoPublisher keeps at most one recurring pipeline job per operator.
type AutoPublisher struct {
	driver   ports.Scheduler
	runner   ScheduledRunner
	settings ports.SettingsStore
	log      *slog.Logger
}

// NewAutoPublisher wires the scheduling driver with the pipeline.
func NewAutoPublisher(driver ports.Scheduler, runner ScheduledRunner, settings ports.SettingsStore, log *slog.Logger) *AutoPublisher {
	return &AutoPublisher{
		driver:   driver,
		runner:   runner,
		settings: settings,
		log:      logging.OrDiscard(log).With("component", "auto_publisher"),
	}
}

// JobKey names the recurring job of an operator.
func JobKey(operatorID int64) string {
	return fmt.Sprintf("auto_publish:%d", operatorID)
}

// Enable registers the operator's job at interval, cancelling any previous one first.
func (a *AutoPublisher) Enable(operatorID int64, interval time.Duration) {
	key := JobKey(operatorID)
	a.driver.Cancel(key)
	a.driver.Schedule(key, interval, func(ctx context.Context) {
		res, err := a.runner.RunScheduled(ctx, operatorID)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			a.log.Info("previous run still in flight, skipping firing", "operator_id", operatorID)
		case err != nil:
			a.log.Error("scheduled run could not start", "operator_id", operatorID, "error", err)
		default:
			a.log.Debug("scheduled run done", "operator_id", operatorID, "status", res.Status)
		}
	})
	a.log.Info("auto publish enabled", "operator_id", operatorID, "interval", interval)
}

// Disable cancels the operator's job; it is a no-op when none is registered.
func (a *AutoPublisher) Disable(operatorID int64) {
	if a.driver.Cancel(JobKey(operatorID)) {
		a.log.Info("auto publish disabled", "operator_id", operatorID)
	}
}

// Enabled reports whether the operator has a registered job.
func (a *AutoPublisher) Enabled(operatorID int64) bool {
	return a.driver.Scheduled(JobKey(operatorID))
}

// Apply reconciles the job with stored settings.
func (a *AutoPublisher) Apply(s domain.OperatorSettings) {
	if s.AutoPublishEnabled {
		a.Enable(s.OperatorID, s.Interval())
		return
	}
	a.Disable(s.OperatorID)
}

// Restore re-registers every operator whose settings have auto-publish on.
func (a *AutoPublisher) Restore(ctx context.Context) (int, error) {
	enabled, err := a.settings.AutoPublishOperators(ctx)
	if err != nil {
		return 0, fmt.Errorf("load auto publish operators: %w", err)
	}
	for _, s := range enabled {
		a.Enable(s.OperatorID, s.Interval())
	}
	return len(enabled), nil
}
