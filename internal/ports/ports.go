package ports

import (
	"context"
	"time"

	"NewsPublisher/internal/domain"
)

// SearchQuery parameterizes one aggregator search.
type SearchQuery struct {
	Query      string
	Language   string
	Region     string
	MaxResults int
}

// Aggregator pulls candidate news items from an external search index.
type Aggregator interface {
	Search(ctx context.Context, q SearchQuery) ([]domain.Source, error)
}

// Rewriter turns source snippets into a structured article.
type Rewriter interface {
	Generate(ctx context.Context, sources []domain.Source) (domain.Article, error)
	// Translate is best-effort and returns text unchanged on failure.
	Translate(ctx context.Context, text string) string
}

// Site is the content-management destination.
type Site interface {
	UploadImage(ctx context.Context, data []byte, filename string) (int64, error)
	CreatePost(ctx context.Context, article domain.Article, mediaID int64) (domain.SitePost, error)
	DeletePost(ctx context.Context, postID int64) (bool, error)
}

// Channel is the messaging destination.
type Channel interface {
	Send(ctx context.Context, text string, disablePreview bool) (int64, error)
	Delete(ctx context.Context, messageID int64) error
}

// ChannelFormatter renders article HTML as a complete channel post.
type ChannelFormatter interface {
	Format(content, articleURL string) (string, error)
}

// ContentRenderer turns an operator-supplied body into site-ready HTML.
type ContentRenderer interface {
	RenderHTML(body string) (string, error)
}

// OperatorNotifier reports pipeline outcomes directly to an operator.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, operatorID int64, text string) error
}

// ImageLoader downloads and preprocesses a cover image for upload.
type ImageLoader interface {
	Load(ctx context.Context, url string) (data []byte, filename string, err error)
}

// CoverFinder discovers a cover image for a source page lacking one.
type CoverFinder interface {
	FindCover(ctx context.Context, pageURL string) (string, error)
}

// FingerprintStore is the durable set of published title digests.
type FingerprintStore interface {
	AddFingerprint(ctx context.Context, fp domain.Fingerprint) error
	HasFingerprint(ctx context.Context, hash string) (bool, error)
}

// CategoryStore resolves site categories.
type CategoryStore interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	CategoryByID(ctx context.Context, id int64) (domain.Category, error)
	CategoryByName(ctx context.Context, name string) (domain.Category, error)
}

// RecordStore persists publish records.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec domain.PublishRecord) (int64, error)
	Record(ctx context.Context, id int64) (domain.PublishRecord, error)
	Records(ctx context.Context, operatorID int64, limit int) ([]domain.PublishRecord, error)
	DeleteRecord(ctx context.Context, id int64) error
	Statistics(ctx context.Context, operatorID int64, since time.Time) (domain.Statistics, error)
}

// DraftStore persists drafts.
type DraftStore interface {
	SaveDraft(ctx context.Context, d domain.Draft) (int64, error)
	Draft(ctx context.Context, id int64) (domain.Draft, error)
	Drafts(ctx context.Context, operatorID int64) ([]domain.Draft, error)
	DeleteDraft(ctx context.Context, id int64) error
}

// SettingsStore persists operator settings; Settings creates defaults on first
// read, LookupSettings returns them without writing.
type SettingsStore interface {
	Settings(ctx context.Context, operatorID int64) (domain.OperatorSettings, error)
	LookupSettings(ctx context.Context, operatorID int64) (domain.OperatorSettings, error)
	SaveSettings(ctx context.Context, s domain.OperatorSettings) error
	TouchLastPublish(ctx context.Context, operatorID int64, at time.Time) error
	AutoPublishOperators(ctx context.Context) ([]domain.OperatorSettings, error)
}

// AuditLog is the append-only operator action log.
type AuditLog interface {
	AppendAudit(ctx context.Context, e domain.AuditEntry) error
	AuditEntries(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error)
	PruneAudit(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs keyed recurring jobs; Schedule replaces any job under the same key.
type Scheduler interface {
	Schedule(key string, every time.Duration, job func(context.Context))
	Cancel(key string) bool
	Scheduled(key string) bool
	Stop(ctx context.Context) error
}
