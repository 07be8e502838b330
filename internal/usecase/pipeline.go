package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

// Trigger tells who started a pipeline run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	StatusPublished        RunStatus = "published"
	StatusPartial          RunStatus = "partial"
	StatusNoResults        RunStatus = "no_results"
	StatusSkippedCategory  RunStatus = "skipped_category"
	StatusSkippedDuplicate RunStatus = "skipped_duplicate"
	StatusDisabled         RunStatus = "disabled"
	StatusFailed           RunStatus = "failed"
)

const seoDescriptionRunes = 160

// RunRequest starts a search-to-publish run. Nil Destinations use the operator's settings.
type RunRequest struct {
	OperatorID   int64
	Query        string
	Destinations *domain.DestinationSet
	Trigger      Trigger
}

// PublishRequest publishes an article assembled outside the pipeline.
type PublishRequest struct {
	OperatorID   int64
	Article      domain.Article
	Sources      []domain.Source
	Destinations *domain.DestinationSet
	Action       domain.ActionKind
}

// RunResult describes how a run ended. Err is set only when Status is failed.
type RunResult struct {
	RunID    string                 `json:"run_id"`
	Status   RunStatus              `json:"status"`
	Message  string                 `json:"message"`
	Article  *domain.Article        `json:"article,omitempty"`
	Outcome  *domain.PublishOutcome `json:"outcome,omitempty"`
	RecordID int64                  `json:"record_id,omitempty"`
	Failure  string                 `json:"error,omitempty"`
	Err      error                  `json:"-"`
}

// PipelineOptions holds the search constants.
type PipelineOptions struct {
	DefaultTopic  string
	Language      string
	Region        string
	SeedResults   int
	SourceResults int
	KeywordTokens int
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Aggregator   ports.Aggregator
	Rewriter     ports.Rewriter
	Publisher    *Publisher
	Renderer     ports.ContentRenderer
	Fingerprints ports.FingerprintStore
	Categories   ports.CategoryStore
	Records      ports.RecordStore
	Settings     ports.SettingsStore
	Audit        ports.AuditLog
	Notifier     ports.OperatorNotifier
	Options      PipelineOptions
	Logger       *slog.Logger
	Now          func() time.Time
}

// Pipeline implements the search, rewrite, filter, dedup, publish and record workflow.
type Pipeline struct {
	aggregator   ports.Aggregator
	rewriter     ports.Rewriter
	publisher    *Publisher
	renderer     ports.ContentRenderer
	fingerprints ports.FingerprintStore
	categories   ports.CategoryStore
	records      ports.RecordStore
	settings     ports.SettingsStore
	audit        ports.AuditLog
	notifier     ports.OperatorNotifier
	opts         PipelineOptions
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		aggregator:   deps.Aggregator,
		rewriter:     deps.Rewriter,
		publisher:    deps.Publisher,
		renderer:     deps.Renderer,
		fingerprints: deps.Fingerprints,
		categories:   deps.Categories,
		records:      deps.Records,
		settings:     deps.Settings,
		audit:        deps.Audit,
		notifier:     deps.Notifier,
		opts:         deps.Options,
		log:          logging.OrDiscard(deps.Logger).With("component", "pipeline"),
		now:          now,
		inFlight:     map[int64]struct{}{},
	}
}

// run carries the state of one invocation.
type run struct {
	id       string
	operator int64
	action   domain.ActionKind
	notify   bool
	log      *slog.Logger
}

// RunScheduled is the scheduler entry point; it does nothing when auto-publish is off.
func (p *Pipeline) RunScheduled(ctx context.Context, operatorID int64) (RunResult, error) {
	return p.Run(ctx, RunRequest{OperatorID: operatorID, Trigger: TriggerScheduled})
}

// Run executes the pipeline. The error is non-nil only when the run could not
// start; every other outcome is described by the result.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	release, ok := p.acquire(req.OperatorID)
	if !ok {
		return RunResult{}, domain.ErrRunInProgress
	}
	defer release()

	scheduled := req.Trigger == TriggerScheduled
	load := p.settings.Settings
	if scheduled {
		load = p.settings.LookupSettings
	}
	settings, err := load(ctx, req.OperatorID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load settings: %w", err)
	}

	if scheduled && !settings.AutoPublishEnabled {
		return RunResult{Status: StatusDisabled, Message: "автопублікацію вимкнено"}, nil
	}

	r := p.newRun(req.OperatorID, domain.ActionPublish, scheduled)
	if scheduled {
		r.action = domain.ActionAutoPublish
	}
	r.log.Info("pipeline run started", "trigger", req.Trigger, "query", req.Query)

	dest := settings.Destinations()
	if req.Destinations != nil {
		dest = *req.Destinations
	}
	if dest.Empty() {
		return p.fail(ctx, r, nil, domain.ErrNoDestinations), nil
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = p.opts.DefaultTopic
	}
	seed, err := p.aggregator.Search(ctx, p.searchQuery(query, p.opts.SeedResults))
	if err != nil {
		return p.fail(ctx, r, nil, fmt.Errorf("search news: %w", err)), nil
	}
	if len(seed) == 0 {
		return p.finish(ctx, r, RunResult{Status: StatusNoResults, Message: "⚠️ Новини не знайдено"},
			domain.AuditEmpty, map[string]any{"query": query}), nil
	}

	lead := seed[0]
	keywords := ExtractKeywords(lead.Title, p.opts.KeywordTokens, p.opts.DefaultTopic)
	sources, err := p.aggregator.Search(ctx, p.searchQuery(keywords, p.opts.SourceResults))
	if err != nil {
		return p.fail(ctx, r, nil, fmt.Errorf("search sources: %w", err)), nil
	}
	if len(sources) == 0 {
		r.log.Info("source search empty, using seed set", "keywords", keywords)
		sources = seed
	}

	article, err := p.rewriter.Generate(ctx, sources)
	if err == nil {
		err = article.Validate()
	}
	if err != nil {
		return p.fail(ctx, r, nil, fmt.Errorf("rewrite: %w", err)), nil
	}

	categoryID, err := p.resolveCategory(ctx, article.Category)
	if err != nil {
		return p.fail(ctx, r, &article, err), nil
	}
	article.CategoryID = categoryID
	if !settings.CategoryAllowed(categoryID) {
		return p.finish(ctx, r, RunResult{
			Status:  StatusSkippedCategory,
			Message: fmt.Sprintf("⏭️ Статтю пропущено (категорія '%s' вимкнена)", article.Category),
			Article: &article,
		}, domain.AuditSkipped, map[string]any{"title": article.Title, "category": article.Category, "category_id": categoryID}), nil
	}

	if article.ImageURL == "" {
		article.ImageURL = lead.Image
	}
	return p.publish(ctx, r, article, sources, dest, lead.URL), nil
}

// PublishArticle runs the dedup, publish and record steps for an article
// written by the operator or taken from a draft.
func (p *Pipeline) PublishArticle(ctx context.Context, req PublishRequest) (RunResult, error) {
	release, ok := p.acquire(req.OperatorID)
	if !ok {
		return RunResult{}, domain.ErrRunInProgress
	}
	defer release()

	settings, err := p.settings.Settings(ctx, req.OperatorID)
	if err != nil {
		return RunResult{}, fmt.Errorf("load settings: %w", err)
	}

	action := req.Action
	if action == "" {
		action = domain.ActionPublishManual
	}
	r := p.newRun(req.OperatorID, action, false)

	dest := settings.Destinations()
	if req.Destinations != nil {
		dest = *req.Destinations
	}
	if dest.Empty() {
		return p.fail(ctx, r, &req.Article, domain.ErrNoDestinations), nil
	}

	article := req.Article
	if p.renderer != nil {
		html, err := p.renderer.RenderHTML(article.Content)
		if err != nil {
			return p.fail(ctx, r, &article, err), nil
		}
		article.Content = html
	}
	if err := p.completeCategory(ctx, &article); err != nil {
		return p.fail(ctx, r, &article, err), nil
	}
	if strings.TrimSpace(article.SEODescription) == "" {
		article.SEODescription = truncateRunes(article.Excerpt, seoDescriptionRunes)
	}
	if err := article.Validate(); err != nil {
		return p.fail(ctx, r, &article, err), nil
	}

	return p.publish(ctx, r, article, req.Sources, dest, ""), nil
}

func (p *Pipeline) publish(ctx context.Context, r run, article domain.Article, sources []domain.Source, dest domain.DestinationSet, sourcePage string) RunResult {
	fp := domain.NewFingerprint(article.Title)
	dup, err := p.fingerprints.HasFingerprint(ctx, fp.Hash)
	if err != nil {
		return p.fail(ctx, r, &article, fmt.Errorf("check fingerprint: %w", err))
	}
	if dup {
		return p.finish(ctx, r, RunResult{
			Status:  StatusSkippedDuplicate,
			Message: "⏭️ Виявлено дублікат статті",
			Article: &article,
		}, domain.AuditSkipped, map[string]any{"title": article.Title, "hash": fp.Hash})
	}

	outcome := p.publisher.Publish(ctx, PublishInput{Article: article, Destinations: dest, SourcePage: sourcePage})
	if outcome.AllFailed() {
		res := p.fail(ctx, r, &article, fmt.Errorf("all destinations failed: %s", joinErrors(outcome.Errors())))
		res.Outcome = &outcome
		return res
	}

	// Publications are out; local writes below are best-effort and never undo them.
	now := p.now().UTC()
	recordID, err := p.records.SaveRecord(ctx, buildRecord(r.operator, article, sources, outcome, now))
	if err != nil {
		r.log.Error("save publish record failed", "error", err)
	}
	fp.CreatedAt = now
	if err := p.fingerprints.AddFingerprint(ctx, fp); err != nil {
		r.log.Error("register fingerprint failed", "error", err)
	}
	if err := p.settings.TouchLastPublish(ctx, r.operator, now); err != nil {
		r.log.Error("update last publish time failed", "error", err)
	}

	res := RunResult{
		Status:   StatusPublished,
		Article:  &article,
		Outcome:  &outcome,
		RecordID: recordID,
	}
	status := domain.AuditSuccess
	if outcome.Partial() {
		res.Status = StatusPartial
		status = domain.AuditPartial
	}
	res.Message = publishMessage(article, outcome)

	details := map[string]any{
		"title":      article.Title,
		"record_id":  recordID,
		"post_id":    outcome.PostID,
		"url":        outcome.URL,
		"message_id": outcome.MessageID,
	}
	if errs := outcome.Errors(); len(errs) > 0 {
		details["errors"] = errs
	}
	return p.finish(ctx, r, res, status, details)
}

func (p *Pipeline) newRun(operatorID int64, action domain.ActionKind, notify bool) run {
	id := uuid.NewString()
	return run{
		id:       id,
		operator: operatorID,
		action:   action,
		notify:   notify,
		log:      p.log.With("run_id", id, "operator_id", operatorID),
	}
}

func (p *Pipeline) fail(ctx context.Context, r run, article *domain.Article, err error) RunResult {
	r.log.Error("pipeline run failed", "error", err)
	res := RunResult{
		Status:  StatusFailed,
		Message: "❌ Помилка публікації: " + err.Error(),
		Article: article,
		Failure: err.Error(),
		Err:     err,
	}
	details := map[string]any{"error": err.Error()}
	if article != nil && article.Title != "" {
		details["title"] = article.Title
	}
	return p.finish(ctx, r, res, domain.AuditError, details)
}

// finish writes the single audit entry of a terminal outcome and notifies the
// operator for scheduled runs.
func (p *Pipeline) finish(ctx context.Context, r run, res RunResult, status domain.AuditStatus, details map[string]any) RunResult {
	res.RunID = r.id
	details["run_id"] = r.id

	entry := domain.AuditEntry{
		OperatorID: r.operator,
		Action:     r.action,
		Status:     status,
		Message:    res.Message,
		Details:    details,
		CreatedAt:  p.now().UTC(),
	}
	if err := p.audit.AppendAudit(ctx, entry); err != nil {
		r.log.Error("append audit entry failed", "error", err)
	}

	if r.notify && p.notifier != nil {
		if err := p.notifier.NotifyOperator(ctx, r.operator, res.Message); err != nil {
			r.log.Warn("notify operator failed", "error", err)
		}
	}

	r.log.Info("pipeline run finished", "status", res.Status)
	return res
}

func (p *Pipeline) acquire(operatorID int64) (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, busy := p.inFlight[operatorID]; busy {
		return nil, false
	}
	p.inFlight[operatorID] = struct{}{}
	return func() {
		p.mu.Lock()
		delete(p.inFlight, operatorID)
		p.mu.Unlock()
	}, true
}

func (p *Pipeline) searchQuery(query string, limit int) ports.SearchQuery {
	return ports.SearchQuery{
		Query:      query,
		Language:   p.opts.Language,
		Region:     p.opts.Region,
		MaxResults: limit,
	}
}

// resolveCategory maps a category name to its id; unknown names resolve to 0.
func (p *Pipeline) resolveCategory(ctx context.Context, name string) (int64, error) {
	c, err := p.categories.CategoryByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve category: %w", err)
	}
	return c.ID, nil
}

// completeCategory fills whichever of category name and id is missing.
func (p *Pipeline) completeCategory(ctx context.Context, a *domain.Article) error {
	switch {
	case a.CategoryID > 0 && strings.TrimSpace(a.Category) == "":
		c, err := p.categories.CategoryByID(ctx, a.CategoryID)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		a.Category = c.Name
	case a.CategoryID == 0 && strings.TrimSpace(a.Category) != "":
		id, err := p.resolveCategory(ctx, a.Category)
		if err != nil {
			return err
		}
		a.CategoryID = id
	}
	return nil
}

func buildRecord(operatorID int64, a domain.Article, sources []domain.Source, o domain.PublishOutcome, at time.Time) domain.PublishRecord {
	rec := domain.PublishRecord{
		OperatorID:         operatorID,
		Title:              a.Title,
		URL:                o.URL,
		CategoryID:         a.CategoryID,
		PublishedToSite:    o.Site.OK,
		PublishedToChannel: o.Channel.OK,
		Sources:            sources,
		PublishedAt:        at,
	}
	if o.Site.OK {
		id := o.PostID
		rec.SitePostID = &id
	}
	if o.Channel.OK {
		id := o.MessageID
		rec.ChannelMessageID = &id
	}
	return rec
}

func publishMessage(a domain.Article, o domain.PublishOutcome) string {
	var b strings.Builder
	if o.Partial() {
		b.WriteString("⚠️ Частково опубліковано\n\n")
	} else {
		b.WriteString("✅ Опубліковано\n\n")
	}
	fmt.Fprintf(&b, "📰 %s\n\n", a.Title)
	if o.Site.OK {
		fmt.Fprintf(&b, "🌐 Сайт: %s\n", o.URL)
	}
	if o.Channel.OK {
		b.WriteString("📱 Канал: опубліковано\n")
	}
	for _, res := range []domain.DestinationResult{o.Site, o.Channel} {
		if res.Attempted && !res.OK {
			fmt.Fprintf(&b, "❌ %s: %s\n", res.Destination, res.Reason())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}

func joinErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for _, dest := range []domain.Destination{domain.DestinationSite, domain.DestinationChannel} {
		if msg, ok := errs[string(dest)]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", dest, msg))
		}
	}
	return strings.Join(parts, "; ")
}
