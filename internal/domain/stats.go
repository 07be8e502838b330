package domain

import (
	"fmt"
	"time"
)

// CategoryCount is the number of records published in one category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Statistics aggregates an operator's publish records over a period.
type Statistics struct {
	Period        string          `json:"period"`
	Since         time.Time       `json:"since"`
	TotalArticles int64           `json:"total_articles"`
	TotalViews    int64           `json:"total_views"`
	TotalClicks   int64           `json:"total_clicks"`
	ByCategory    []CategoryCount `json:"by_category"`
	Top           *PublishRecord  `json:"top_article,omitempty"`
}

// PeriodStart resolves a named period to its starting instant.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "", "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return now.AddDate(0, 0, -30), nil
	case "all":
		return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%w %q", ErrUnknownPeriod, period)
	}
}
