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

const defaultRecordLimit = 20

// Retractor deletes a record's publications at their destinations.
type Retractor interface {
	Retract(ctx context.Context, rec domain.PublishRecord) (site, channel domain.DestinationResult)
}

// ArticlePublisher publishes an assembled article.
type ArticlePublisher interface {
	PublishArticle(ctx context.Context, req PublishRequest) (RunResult, error)
}

// RecordsDeps wires the records service.
type RecordsDeps struct {
	Records    ports.RecordStore
	Drafts     ports.DraftStore
	Categories ports.CategoryStore
	Audit      ports.AuditLog
	Retractor  Retractor
	Publisher  ArticlePublisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// RecordsService manages publish records, drafts, statistics and the action log.
type RecordsService struct {
	records    ports.RecordStore
	drafts     ports.DraftStore
	categories ports.CategoryStore
	audit      ports.AuditLog
	retractor  Retractor
	publisher  ArticlePublisher
	log        *slog.Logger
	now        func() time.Time
}

// NewRecordsService constructs the service.
func NewRecordsService(deps RecordsDeps) *RecordsService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RecordsService{
		records:    deps.Records,
		drafts:     deps.Drafts,
		categories: deps.Categories,
		audit:      deps.Audit,
		retractor:  deps.Retractor,
		publisher:  deps.Publisher,
		log:        logging.OrDiscard(deps.Logger).With("component", "records"),
		now:        now,
	}
}

// DeletionPreview lists what a confirmed deletion would touch.
type DeletionPreview struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Locations []string `json:"locations"`
}

// Records lists the operator's latest records; limit <= 0 means 20.
func (s *RecordsService) Records(ctx context.Context, operatorID int64, limit int) ([]domain.PublishRecord, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return s.records.Records(ctx, operatorID, limit)
}

// Record returns one of the operator's records.
func (s *RecordsService) Record(ctx context.Context, operatorID, id int64) (domain.PublishRecord, error) {
	rec, err := s.records.Record(ctx, id)
	if err != nil {
		return domain.PublishRecord{}, err
	}
	if rec.OperatorID != operatorID {
		return domain.PublishRecord{}, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// PreviewRecordDeletion describes the locations a deletion would remove.
func (s *RecordsService) PreviewRecordDeletion(ctx context.Context, operatorID, id int64) (DeletionPreview, error) {
	rec, err := s.Record(ctx, operatorID, id)
	if err != nil {
		return DeletionPreview{}, err
	}
	locations := []string{"database"}
	if rec.SitePostID != nil {
		locations = append(locations, string(domain.DestinationSite))
	}
	if rec.ChannelMessageID != nil {
		locations = append(locations, string(domain.DestinationChannel))
	}
	return DeletionPreview{ID: rec.ID, Title: rec.Title, Locations: locations}, nil
}

// DeleteRecord retracts the publications and removes the local record even
// when a destination refuses; each destination's result is reported.
func (s *RecordsService) DeleteRecord(ctx context.Context, operatorID, id int64) (domain.DeletionReport, error) {
	rec, err := s.Record(ctx, operatorID, id)
	if err != nil {
		return domain.DeletionReport{}, err
	}

	report := domain.DeletionReport{RecordID: rec.ID, Title: rec.Title}
	report.Site, report.Channel = s.retractor.Retract(ctx, rec)

	status := domain.AuditSuccess
	if len(report.Failures()) > 0 {
		status = domain.AuditPartial
	}

	deleteErr := s.records.DeleteRecord(ctx, rec.ID)
	report.RecordDeleted = deleteErr == nil
	if deleteErr != nil {
		status = domain.AuditError
	}

	details := map[string]any{
		"record_id": rec.ID,
		"site":      report.Site,
		"channel":   report.Channel,
	}
	if failures := report.Failures(); len(failures) > 0 {
		details["errors"] = failures
	}
	message := "Видалено: " + rec.Title
	if deleteErr != nil {
		details["record_error"] = deleteErr.Error()
		message = "Помилка видалення: " + rec.Title
	}
	s.appendAudit(ctx, operatorID, domain.ActionDeleteArticle, status, message, details)

	if deleteErr != nil {
		return report, fmt.Errorf("delete record: %w", deleteErr)
	}
	return report, nil
}

// DraftInput is an operator-authored article to keep for later.
type DraftInput struct {
	Article domain.Article
	Images  []string
	Sources []domain.Source
}

// SaveDraft stores a draft and returns it with its id.
func (s *RecordsService) SaveDraft(ctx context.Context, operatorID int64, in DraftInput) (domain.Draft, error) {
	if in.Article.Title == "" || in.Article.Content == "" {
		return domain.Draft{}, fmt.Errorf("%w: draft needs a title and content", domain.ErrMalformedArticle)
	}
	d := domain.Draft{
		OperatorID: operatorID,
		Article:    in.Article,
		Images:     in.Images,
		Sources:    in.Sources,
		CreatedAt:  s.now().UTC(),
	}
	if d.Article.ImageURL != "" && len(d.Images) == 0 {
		d.Images = []string{d.Article.ImageURL}
	}
	id, err := s.drafts.SaveDraft(ctx, d)
	if err != nil {
		return domain.Draft{}, err
	}
	return s.drafts.Draft(ctx, id)
}

// Drafts lists the operator's drafts.
func (s *RecordsService) Drafts(ctx context.Context, operatorID int64) ([]domain.Draft, error) {
	return s.drafts.Drafts(ctx, operatorID)
}

// Draft returns one of the operator's drafts.
func (s *RecordsService) Draft(ctx context.Context, operatorID, id int64) (domain.Draft, error) {
	d, err := s.drafts.Draft(ctx, id)
	if err != nil {
		return domain.Draft{}, err
	}
	if d.OperatorID != operatorID {
		return domain.Draft{}, fmt.Errorf("draft %d: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

// PreviewDraftDeletion describes what deleting a draft removes.
func (s *RecordsService) PreviewDraftDeletion(ctx context.Context, operatorID, id int64) (DeletionPreview, error) {
	d, err := s.Draft(ctx, operatorID, id)
	if err != nil {
		return DeletionPreview{}, err
	}
	return DeletionPreview{ID: d.ID, Title: d.Article.Title, Locations: []string{"database"}}, nil
}

// DeleteDraft removes one of the operator's drafts.
func (s *RecordsService) DeleteDraft(ctx context.Context, operatorID, id int64) error {
	d, err := s.Draft(ctx, operatorID, id)
	if err != nil {
		return err
	}
	if err := s.drafts.DeleteDraft(ctx, id); err != nil {
		s.appendAudit(ctx, operatorID, domain.ActionDeleteDraft, domain.AuditError, err.Error(), map[string]any{"draft_id": id})
		return err
	}
	s.appendAudit(ctx, operatorID, domain.ActionDeleteDraft, domain.AuditSuccess, "Чернетку видалено: "+d.Article.Title, map[string]any{"draft_id": id})
	return nil
}

// PublishDraft publishes a draft through the pipeline and removes it once any
// destination accepted it.
func (s *RecordsService) PublishDraft(ctx context.Context, operatorID, id int64, dest *domain.DestinationSet) (RunResult, error) {
	d, err := s.Draft(ctx, operatorID, id)
	if err != nil {
		return RunResult{}, err
	}

	article := d.Article
	if article.ImageURL == "" && len(d.Images) > 0 {
		article.ImageURL = d.Images[0]
	}

	res, err := s.publisher.PublishArticle(ctx, PublishRequest{
		OperatorID:   operatorID,
		Article:      article,
		Sources:      d.Sources,
		Destinations: dest,
		Action:       domain.ActionPublishDraft,
	})
	if err != nil {
		return res, err
	}

	if res.Status == StatusPublished || res.Status == StatusPartial {
		if err := s.drafts.DeleteDraft(ctx, id); err != nil {
			s.log.Error("remove published draft failed", "draft_id", id, "error", err)
		}
	}
	return res, nil
}

// Statistics aggregates the operator's records over a named period. Day
// boundaries follow the location of the service clock.
func (s *RecordsService) Statistics(ctx context.Context, operatorID int64, period string) (domain.Statistics, error) {
	since, err := domain.PeriodStart(period, s.now())
	if err != nil {
		return domain.Statistics{}, err
	}
	stats, err := s.records.Statistics(ctx, operatorID, since)
	if err != nil {
		return domain.Statistics{}, err
	}
	if period == "" {
		period = "week"
	}
	stats.Period = period
	return stats, nil
}

// Categories lists the site categories.
func (s *RecordsService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.Categories(ctx)
}

// AuditLog returns the operator's action log.
func (s *RecordsService) AuditLog(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	return s.audit.AuditEntries(ctx, f)
}

func (s *RecordsService) appendAudit(ctx context.Context, operatorID int64, action domain.ActionKind, status domain.AuditStatus, message string, details map[string]any) {
	err := s.audit.AppendAudit(ctx, domain.AuditEntry{
		OperatorID: operatorID,
		Action:     action,
		Status:     status,
		Message:    message,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		s.log.Error("append audit entry failed", "operator_id", operatorID, "action", action, "error", err)
	}
}
