package domain

import (
	"encoding/json"
	"time"
)

// Destination names a publication target.
type Destination string

const (
	DestinationSite    Destination = "site"
	DestinationChannel Destination = "channel"
)

// DestinationSet selects which destinations a publish call targets.
type DestinationSet struct {
	Site    bool `json:"site"`
	Channel bool `json:"channel"`
}

// Empty reports whether no destination is selected.
func (d DestinationSet) Empty() bool {
	return !d.Site && !d.Channel
}

// DestinationResult is the tagged outcome of one destination call.
// Attempted is false when the destination was not requested or had nothing to act on.
type DestinationResult struct {
	Destination Destination `json:"destination"`
	Attempted   bool        `json:"attempted"`
	OK          bool        `json:"ok"`
	Err         error       `json:"-"`
}

// Succeeded builds an ok result.
func Succeeded(dest Destination) DestinationResult {
	return DestinationResult{Destination: dest, Attempted: true, OK: true}
}

// Failed builds a failed result.
func Failed(dest Destination, err error) DestinationResult {
	return DestinationResult{Destination: dest, Attempted: true, Err: err}
}

// Reason returns the failure text, empty on success.
func (r DestinationResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON renders the failure reason alongside the flags.
func (r DestinationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Destination Destination `json:"destination"`
		Attempted   bool        `json:"attempted"`
		OK          bool        `json:"ok"`
		Error       string      `json:"error,omitempty"`
	}{r.Destination, r.Attempted, r.OK, r.Reason()})
}

// PublishOutcome collects both destination results of one publish call.
type PublishOutcome struct {
	Site      DestinationResult `json:"site"`
	Channel   DestinationResult `json:"channel"`
	PostID    int64             `json:"post_id,omitempty"`
	URL       string            `json:"url,omitempty"`
	MessageID int64             `json:"message_id,omitempty"`
	MediaID   int64             `json:"media_id,omitempty"`
}

func (o PublishOutcome) results() []DestinationResult {
	return []DestinationResult{o.Site, o.Channel}
}

// AnySucceeded reports whether at least one destination accepted the article.
func (o PublishOutcome) AnySucceeded() bool {
	for _, r := range o.results() {
		if r.OK {
			return true
		}
	}
	return false
}

// AllFailed reports whether every attempted destination failed.
func (o PublishOutcome) AllFailed() bool {
	attempted := 0
	for _, r := range o.results() {
		if !r.Attempted {
			continue
		}
		attempted++
		if r.OK {
			return false
		}
	}
	return attempted > 0
}

// Partial reports a mix of success and failure among attempted destinations.
func (o PublishOutcome) Partial() bool {
	return o.AnySucceeded() && !o.AllSucceeded()
}

// AllSucceeded reports whether every attempted destination succeeded.
func (o PublishOutcome) AllSucceeded() bool {
	attempted := 0
	for _, r := range o.results() {
		if !r.Attempted {
			continue
		}
		attempted++
		if !r.OK {
			return false
		}
	}
	return attempted > 0
}

// Errors returns the failures keyed by destination.
func (o PublishOutcome) Errors() map[string]string {
	out := map[string]string{}
	for _, r := range o.results() {
		if r.Attempted && !r.OK {
			out[string(r.Destination)] = r.Reason()
		}
	}
	return out
}

// SitePost is what the site returns for a created post.
type SitePost struct {
	ID  int64  `json:"id"`
	URL string `json:"link"`
}

// PublishRecord is the persisted outcome of a publish attempt.
type PublishRecord struct {
	ID                 int64     `json:"id"`
	OperatorID         int64     `json:"operator_id"`
	SitePostID         *int64    `json:"site_post_id,omitempty"`
	ChannelMessageID   *int64    `json:"channel_message_id,omitempty"`
	Title              string    `json:"title"`
	URL                string    `json:"url,omitempty"`
	CategoryID         int64     `json:"category_id"`
	CategoryName       string    `json:"category_name,omitempty"`
	PublishedToSite    bool      `json:"published_to_site"`
	PublishedToChannel bool      `json:"published_to_channel"`
	Sources            []Source  `json:"sources"`
	PublishedAt        time.Time `json:"published_at"`
	Views              int64     `json:"views"`
	Clicks             int64     `json:"clicks"`
}

// DeletionReport lists per-destination results of a record deletion.
type DeletionReport struct {
	RecordID      int64             `json:"record_id"`
	Title         string            `json:"title"`
	Site          DestinationResult `json:"site"`
	Channel       DestinationResult `json:"channel"`
	RecordDeleted bool              `json:"record_deleted"`
}

// Failures returns the destinations that could not be cleaned up.
func (r DeletionReport) Failures() map[string]string {
	out := map[string]string{}
	for _, res := range []DestinationResult{r.Site, r.Channel} {
		if res.Attempted && !res.OK {
			out[string(res.Destination)] = res.Reason()
		}
	}
	return out
}
