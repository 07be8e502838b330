package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

var settingsColumns = []string{
	"operator_id", "auto_publish_enabled", "auto_publish_interval", "auto_publish_to_site",
	"auto_publish_to_channel", "enabled_categories", "last_publish_time",
}

// Settings loads an operator's settings, creating the default row on first access.
func (r *Repository) Settings(ctx context.Context, operatorID int64) (domain.OperatorSettings, error) {
	s, found, err := r.loadSettings(ctx, operatorID)
	if err != nil || found {
		return s, err
	}
	if err := r.insertSettings(ctx, s, "ON CONFLICT (operator_id) DO NOTHING"); err != nil {
		return domain.OperatorSettings{}, err
	}
	return s, nil
}

// LookupSettings is Settings without the insert: unknown operators get defaults.
func (r *Repository) LookupSettings(ctx context.Context, operatorID int64) (domain.OperatorSettings, error) {
	s, _, err := r.loadSettings(ctx, operatorID)
	return s, err
}

func (r *Repository) loadSettings(ctx context.Context, operatorID int64) (domain.OperatorSettings, bool, error) {
	row, err := r.queryRow(ctx, r.sb.Select(settingsColumns...).
		From("operator_settings").
		Where(sq.Eq{"operator_id": operatorID}))
	if err != nil {
		return domain.OperatorSettings{}, false, err
	}

	s, err := scanSettings(row)
	switch {
	case err == nil:
		return s, true, nil
	case isNoRows(err):
		return domain.DefaultSettings(operatorID), false, nil
	default:
		return domain.OperatorSettings{}, false, fmt.Errorf("load settings %d: %w", operatorID, err)
	}
}

// SaveSettings upserts the operator-editable columns. An existing
// last_publish_time is owned by TouchLastPublish and never overwritten here.
func (r *Repository) SaveSettings(ctx context.Context, s domain.OperatorSettings) error {
	return r.insertSettings(ctx, s, `ON CONFLICT (operator_id) DO UPDATE SET
		auto_publish_enabled = excluded.auto_publish_enabled,
		auto_publish_interval = excluded.auto_publish_interval,
		auto_publish_to_site = excluded.auto_publish_to_site,
		auto_publish_to_channel = excluded.auto_publish_to_channel,
		enabled_categories = excluded.enabled_categories`)
}

// TouchLastPublish records when the operator's pipeline last published.
func (r *Repository) TouchLastPublish(ctx context.Context, operatorID int64, at time.Time) error {
	if _, err := r.Settings(ctx, operatorID); err != nil {
		return err
	}
	_, err := r.exec(ctx, r.sb.Update("operator_settings").
		Set("last_publish_time", utc(at)).
		Where(sq.Eq{"operator_id": operatorID}))
	if err != nil {
		return fmt.Errorf("touch last publish %d: %w", operatorID, err)
	}
	return nil
}

// AutoPublishOperators lists settings of every operator with scheduling enabled.
func (r *Repository) AutoPublishOperators(ctx context.Context) ([]domain.OperatorSettings, error) {
	rows, err := r.query(ctx, r.sb.Select(settingsColumns...).
		From("operator_settings").
		Where(sq.Eq{"auto_publish_enabled": true}).
		OrderBy("operator_id"))
	if err != nil {
		return nil, fmt.Errorf("query auto publish operators: %w", err)
	}
	defer rows.Close()

	var out []domain.OperatorSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) insertSettings(ctx context.Context, s domain.OperatorSettings, onConflict string) error {
	categories := s.EnabledCategories
	if categories == nil {
		categories = []int64{}
	}
	raw, err := marshalJSON(categories)
	if err != nil {
		return err
	}

	var last any
	if s.LastPublishTime != nil {
		last = s.LastPublishTime.UTC()
	}

	_, err = r.exec(ctx, r.sb.Insert("operator_settings").
		Columns(settingsColumns...).
		Values(s.OperatorID, s.AutoPublishEnabled, s.IntervalMinutes, s.PublishToSite,
			s.PublishToChannel, raw, last).
		Suffix(onConflict))
	if err != nil {
		return fmt.Errorf("save settings %d: %w", s.OperatorID, err)
	}
	return nil
}

func scanSettings(row rowScanner) (domain.OperatorSettings, error) {
	var (
		s          domain.OperatorSettings
		categories sql.NullString
		last       sql.NullTime
	)
	if err := row.Scan(&s.OperatorID, &s.AutoPublishEnabled, &s.IntervalMinutes, &s.PublishToSite,
		&s.PublishToChannel, &categories, &last); err != nil {
		return s, err
	}
	if err := unmarshalJSON(categories, &s.EnabledCategories); err != nil {
		return s, err
	}
	if s.EnabledCategories == nil {
		s.EnabledCategories = []int64{}
	}
	s.LastPublishTime = nullableTime(last)
	return s, nil
}
