package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when an operator's settings row is created.
const (
	DefaultIntervalMinutes = 180
	MinIntervalMinutes     = 15
	MaxIntervalMinutes     = 24 * 60
)

// OperatorSettings governs the unattended pipeline of one operator.
type OperatorSettings struct {
	OperatorID         int64      `json:"operator_id"`
	AutoPublishEnabled bool       `json:"auto_publish_enabled"`
	IntervalMinutes    int        `json:"auto_publish_interval"`
	PublishToSite      bool       `json:"auto_publish_to_site"`
	PublishToChannel   bool       `json:"auto_publish_to_channel"`
	EnabledCategories  []int64    `json:"enabled_categories"`
	LastPublishTime    *time.Time `json:"last_publish_time,omitempty"`
}

// DefaultSettings returns the settings created on first access.
func DefaultSettings(operatorID int64) OperatorSettings {
	return OperatorSettings{
		OperatorID:        operatorID,
		IntervalMinutes:   DefaultIntervalMinutes,
		PublishToSite:     true,
		EnabledCategories: []int64{},
	}
}

// Destinations returns the destination set selected for automatic runs.
func (s OperatorSettings) Destinations() DestinationSet {
	return DestinationSet{Site: s.PublishToSite, Channel: s.PublishToChannel}
}

// Interval returns the schedule interval as a duration.
func (s OperatorSettings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// CategoryAllowed applies the category filter; an empty filter allows everything.
func (s OperatorSettings) CategoryAllowed(categoryID int64) bool {
	if len(s.EnabledCategories) == 0 {
		return true
	}
	return slices.Contains(s.EnabledCategories, categoryID)
}

// SettingKey is one of the recognized mutable settings.
type SettingKey string

const (
	SettingAutoPublishEnabled SettingKey = "auto_publish_enabled"
	SettingInterval           SettingKey = "auto_publish_interval"
	SettingPublishToSite      SettingKey = "auto_publish_to_site"
	SettingPublishToChannel   SettingKey = "auto_publish_to_channel"
	SettingEnabledCategories  SettingKey = "enabled_categories"
)

// SettingMutation applies one typed change to settings.
type SettingMutation func(*OperatorSettings)

var settingParsers = map[SettingKey]func(raw string) (SettingMutation, error){
	SettingAutoPublishEnabled: boolSetting(func(s *OperatorSettings, v bool) { s.AutoPublishEnabled = v }),
	SettingPublishToSite:      boolSetting(func(s *OperatorSettings, v bool) { s.PublishToSite = v }),
	SettingPublishToChannel:   boolSetting(func(s *OperatorSettings, v bool) { s.PublishToChannel = v }),
	SettingInterval:           parseInterval,
	SettingEnabledCategories:  parseCategories,
}

// ParseSetting turns a key and its raw value into a typed mutation.
func ParseSetting(key SettingKey, raw string) (SettingMutation, error) {
	parse, ok := settingParsers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	mutation, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return mutation, nil
}

func boolSetting(set func(*OperatorSettings, bool)) func(string) (SettingMutation, error) {
	return func(raw string) (SettingMutation, error) {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidSetting, raw)
		}
		return func(s *OperatorSettings) { set(s, v) }, nil
	}
}

func parseInterval(raw string) (SettingMutation, error) {
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number of minutes", ErrInvalidSetting, raw)
	}
	if minutes < MinIntervalMinutes || minutes > MaxIntervalMinutes {
		return nil, fmt.Errorf("%w: interval must be within [%d, %d] minutes", ErrInvalidSetting, MinIntervalMinutes, MaxIntervalMinutes)
	}
	return func(s *OperatorSettings) { s.IntervalMinutes = minutes }, nil
}

// parseCategories accepts a comma-separated id list; an empty value clears the filter.
func parseCategories(raw string) (SettingMutation, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: bad category id %q", ErrInvalidSetting, part)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return func(s *OperatorSettings) { s.EnabledCategories = ids }, nil
}
