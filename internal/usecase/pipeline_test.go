package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"NewsPublisher/internal/domain"
)

type pipelineFixture struct {
	store     *memStore
	agg       *fakeAggregator
	rewriter  *fakeRewriter
	site      *fakeSite
	channel   *fakeChannel
	images    *fakeImages
	notifier  *fakeNotifier
	pipeline  *Pipeline
	publisher *Publisher
}

func validArticle() domain.Article {
	return domain.Article{
		Title:          "Нова стаття",
		Category:       "Вдома",
		Excerpt:        "Короткий опис",
		Content:        "<p>Текст</p>",
		SEODescription: "SEO",
	}
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		store: newMemStore(),
		agg: &fakeAggregator{
			seed:    []domain.Source{{Title: "Економіка, зростає! (на 5%)", URL: "https://news/1", Image: "https://news/1.jpg"}},
			sources: []domain.Source{{Title: "Джерело", URL: "https://news/2"}},
		},
		rewriter: &fakeRewriter{article: validArticle()},
		site:     &fakeSite{deleteOK: true},
		channel:  &fakeChannel{},
		images:   &fakeImages{},
		notifier: &fakeNotifier{},
	}
	f.publisher = NewPublisher(PublisherDeps{
		Site:      f.site,
		Channel:   f.channel,
		Formatter: fakeFormatter{},
		Images:    f.images,
	})
	f.pipeline = NewPipeline(PipelineDeps{
		Aggregator:   f.agg,
		Rewriter:     f.rewriter,
		Publisher:    f.publisher,
		Fingerprints: f.store,
		Categories:   f.store,
		Records:      f.store,
		Settings:     f.store,
		Audit:        f.store,
		Notifier:     f.notifier,
		Options: PipelineOptions{
			DefaultTopic:  "Україна",
			Language:      "uk",
			Region:        "ua",
			SeedResults:   10,
			SourceResults: 10,
			KeywordTokens: 5,
		},
	})
	return f
}

func (f *pipelineFixture) enable(t *testing.T, op int64, mutate func(*domain.OperatorSettings)) {
	t.Helper()
	s := domain.DefaultSettings(op)
	s.AutoPublishEnabled = true
	if mutate != nil {
		mutate(&s)
	}
	if err := f.store.SaveSettings(context.Background(), s); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

func both() *domain.DestinationSet {
	return &domain.DestinationSet{Site: true, Channel: true}
}

func TestRunPublishesToBothDestinations(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Destinations: both()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusPublished || res.RunID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if got := f.agg.queries[0]; got.Query != "Україна" || got.Language != "uk" || got.Region != "ua" || got.MaxResults != 10 {
		t.Fatalf("unexpected seed query: %+v", got)
	}
	if got := f.agg.queries[1].Query; got != "Економіка зростає" {
		t.Fatalf("unexpected derived query %q", got)
	}

	if len(f.site.created) != 1 || f.site.created[0].CategoryID != 2 || f.site.mediaIDs[0] != 55 {
		t.Fatalf("unexpected site calls: %+v media=%v", f.site.created, f.site.mediaIDs)
	}
	if f.images.urls[0] != "https://news/1.jpg" {
		t.Fatalf("expected lead image as cover, got %v", f.images.urls)
	}
	if len(f.channel.sent) != 1 || !strings.HasSuffix(f.channel.sent[0], "|https://site/post") {
		t.Fatalf("channel post should link to the site post: %v", f.channel.sent)
	}

	rec, err := f.store.Record(context.Background(), res.RecordID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.PublishedToSite || !rec.PublishedToChannel || *rec.SitePostID != 901 || *rec.ChannelMessageID != 700 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.URL != "https://site/post" || len(rec.Sources) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if ok, _ := f.store.HasFingerprint(context.Background(), domain.TitleHash("нова СТАТТЯ ")); !ok {
		t.Fatalf("fingerprint not registered")
	}
	settings, _ := f.store.Settings(context.Background(), 1)
	if settings.LastPublishTime == nil {
		t.Fatalf("last publish time not updated")
	}

	entries := f.store.auditEntries()
	if len(entries) != 1 || entries[0].Action != domain.ActionPublish || entries[0].Status != domain.AuditSuccess {
		t.Fatalf("expected one success audit entry, got %+v", entries)
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("manual runs must not notify: %v", f.notifier.messages)
	}
}

func TestRunUsesSettingsDestinationsByDefault(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusPublished || len(f.site.created) != 1 || len(f.channel.sent) != 0 {
		t.Fatalf("defaults publish to the site only: %+v", res)
	}
}

func TestRunScheduledDisabledIsNoop(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.store.settings[3] = domain.DefaultSettings(3)

	res, err := f.pipeline.RunScheduled(context.Background(), 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusDisabled {
		t.Fatalf("unexpected status %s", res.Status)
	}
	if f.agg.calls() != 0 || f.rewriter.calls != 0 || f.site.calls() != 0 || len(f.channel.sent) != 0 {
		t.Fatalf("disabled run made external calls")
	}
	if len(f.store.auditEntries()) != 0 || f.store.writes != 0 || len(f.notifier.messages) != 0 {
		t.Fatalf("disabled run changed state")
	}
}

func TestRunScheduledUnknownOperatorWritesNothing(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)

	res, err := f.pipeline.RunScheduled(context.Background(), 8)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusDisabled {
		t.Fatalf("unexpected status %s", res.Status)
	}
	if _, ok := f.store.settings[8]; ok {
		t.Fatalf("scheduled run created a settings row")
	}
}

func TestRunNoResults(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.agg.seed = nil
	f.enable(t, 1, nil)

	res, err := f.pipeline.RunScheduled(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusNoResults || f.rewriter.calls != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	entries := f.store.auditEntries()
	if len(entries) != 1 || entries[0].Status != domain.AuditEmpty || entries[0].Action != domain.ActionAutoPublish {
		t.Fatalf("unexpected audit: %+v", entries)
	}
	if len(f.notifier.messages) != 1 {
		t.Fatalf("scheduled run should notify the operator")
	}
}

func TestRunFallsBackToSeedWhenSourceSearchEmpty(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.agg.sources = nil

	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Query: "ціни"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusPublished {
		t.Fatalf("unexpected status %s", res.Status)
	}
	rec, _ := f.store.Record(context.Background(), res.RecordID)
	if len(rec.Sources) != 1 || rec.Sources[0].URL != "https://news/1" {
		t.Fatalf("expected seed set as sources, got %+v", rec.Sources)
	}
	if f.agg.queries[0].Query != "ціни" {
		t.Fatalf("explicit query ignored: %+v", f.agg.queries[0])
	}
}

func TestRunMalformedArticleFailsWithoutSideEffects(t *testing.T) {
	t.Parallel()

	for _, field := range domain.RequiredFields {
		f := newPipelineFixture(t)
		a := validArticle()
		switch field {
		case domain.FieldTitle:
			a.Title = ""
		case domain.FieldCategory:
			a.Category = ""
		case domain.FieldExcerpt:
			a.Excerpt = ""
		case domain.FieldContent:
			a.Content = ""
		case domain.FieldSEODescription:
			a.SEODescription = ""
		}
		f.rewriter.article = a

		res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Destinations: both()})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if res.Status != StatusFailed || !errors.Is(res.Err, domain.ErrMalformedArticle) {
			t.Fatalf("%s: expected malformed failure, got %+v", field, res)
		}
		if f.site.calls() != 0 || len(f.channel.sent) != 0 || f.store.writes != 0 {
			t.Fatalf("%s: malformed article reached destinations or storage", field)
		}
		entries := f.store.auditEntries()
		if len(entries) != 1 || entries[0].Status != domain.AuditError {
			t.Fatalf("%s: unexpected audit %+v", field, entries)
		}
	}
}

func TestRunSkipsFilteredCategory(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.enable(t, 1, func(s *domain.OperatorSettings) { s.EnabledCategories = []int64{1} })

	res, err := f.pipeline.RunScheduled(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusSkippedCategory {
		t.Fatalf("unexpected status %s", res.Status)
	}
	if f.site.calls() != 0 || len(f.channel.sent) != 0 || len(f.store.fingerprints) != 0 {
		t.Fatalf("filtered article was published or fingerprinted")
	}
	entries := f.store.auditEntries()
	if len(entries) != 1 || entries[0].Status != domain.AuditSkipped {
		t.Fatalf("expected exactly one skipped audit entry, got %+v", entries)
	}
}

func TestRunSkipsUnknownCategoryWhenFilterActive(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	a := validArticle()
	a.Category = "Спорт"
	f.rewriter.article = a
	f.enable(t, 1, func(s *domain.OperatorSettings) { s.EnabledCategories = []int64{1, 2} })

	res, _ := f.pipeline.RunScheduled(context.Background(), 1)
	if res.Status != StatusSkippedCategory {
		t.Fatalf("unexpected status %s", res.Status)
	}
}

func TestRunSkipsDuplicates(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	_ = f.store.AddFingerprint(context.Background(), domain.NewFingerprint("НОВА стаття"))
	f.store.writes = 0

	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Destinations: both()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusSkippedDuplicate {
		t.Fatalf("unexpected status %s", res.Status)
	}
	if f.site.calls() != 0 || len(f.channel.sent) != 0 || f.store.writes != 0 {
		t.Fatalf("duplicate reached destinations or storage")
	}
	if entries := f.store.auditEntries(); len(entries) != 1 || entries[0].Status != domain.AuditSkipped {
		t.Fatalf("unexpected audit %+v", entries)
	}
}

func TestRunPartialSuccessStillRecordsAndFingerprints(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.channel.sendErr = errBoom

	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Destinations: both()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusPartial {
		t.Fatalf("unexpected status %s", res.Status)
	}

	rec, err := f.store.Record(context.Background(), res.RecordID)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.PublishedToSite || rec.PublishedToChannel || rec.ChannelMessageID != nil {
		t.Fatalf("record flags must reflect outcomes: %+v", rec)
	}
	if len(f.store.fingerprints) != 1 {
		t.Fatalf("partial success must register the fingerprint")
	}

	entries := f.store.auditEntries()
	if len(entries) != 1 || entries[0].Status != domain.AuditPartial {
		t.Fatalf("unexpected audit %+v", entries)
	}
	if errs, _ := entries[0].Details["errors"].(map[string]string); !strings.Contains(errs["channel"], "boom") {
		t.Fatalf("channel failure not carried in audit details: %+v", entries[0].Details)
	}
}

func TestRunTotalFailureWritesNothing(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.site.createErr = &domain.HTTPStatusError{Service: "wordpress", Status: "500 Internal Server Error", Body: "down"}
	f.channel.sendErr = errBoom
	f.enable(t, 1, func(s *domain.OperatorSettings) { s.PublishToChannel = true })

	res, err := f.pipeline.RunScheduled(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusFailed || res.Outcome == nil || !res.Outcome.AllFailed() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(f.store.records) != 0 || len(f.store.fingerprints) != 0 || f.store.settings[1].LastPublishTime != nil {
		t.Fatalf("total failure must not persist anything")
	}
	if !strings.Contains(res.Failure, "down") || !strings.Contains(res.Failure, "boom") {
		t.Fatalf("failure should carry both reasons: %q", res.Failure)
	}
	if len(f.notifier.messages) != 1 || !strings.Contains(f.notifier.messages[0], "down") {
		t.Fatalf("operator should receive the failure verbatim: %v", f.notifier.messages)
	}
}

func TestRunWithoutDestinationsFails(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	res, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1, Destinations: &domain.DestinationSet{}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrNoDestinations) || f.agg.calls() != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunRejectsConcurrentRunForSameOperator(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.rewriter.block = make(chan struct{})

	done := make(chan RunResult)
	go func() {
		res, _ := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1})
		done <- res
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.agg.calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("first run did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := f.pipeline.Run(context.Background(), RunRequest{OperatorID: 1}); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := f.pipeline.PublishArticle(context.Background(), PublishRequest{OperatorID: 1, Article: validArticle()}); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress for manual publish, got %v", err)
	}

	close(f.rewriter.block)
	if res := <-done; res.Status != StatusPublished {
		t.Fatalf("first run should complete, got %+v", res)
	}
	if len(f.site.created) != 1 {
		t.Fatalf("expected a single publication, got %d", len(f.site.created))
	}
}

func TestPublishArticleFillsCategoryAndSEO(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	a := domain.Article{
		Title:      "Ручна стаття",
		Excerpt:    strings.Repeat("о", 200),
		Content:    "<p>x</p>",
		CategoryID: 1,
	}

	res, err := f.pipeline.PublishArticle(context.Background(), PublishRequest{OperatorID: 4, Article: a, Action: domain.ActionPublishManual})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Status != StatusPublished {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := f.site.created[0]
	if got.Category != "У світі" || len([]rune(got.SEODescription)) != 160 {
		t.Fatalf("article not completed: %+v", got)
	}
	if entries := f.store.auditEntries(); entries[0].Action != domain.ActionPublishManual {
		t.Fatalf("unexpected action %s", entries[0].Action)
	}
}
