package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// memStore is an in-memory implementation of every store port.
type memStore struct {
	mu           sync.Mutex
	fingerprints map[string]domain.Fingerprint
	categories   []domain.Category
	records      map[int64]domain.PublishRecord
	drafts       map[int64]domain.Draft
	settings     map[int64]domain.OperatorSettings
	audit        []domain.AuditEntry
	nextID       int64
	writes       int
	failDelete   error
}

func newMemStore() *memStore {
	return &memStore{
		fingerprints: map[string]domain.Fingerprint{},
		categories:   []domain.Category{{ID: 1, Name: "У світі"}, {ID: 2, Name: "Вдома"}},
		records:      map[int64]domain.PublishRecord{},
		drafts:       map[int64]domain.Draft{},
		settings:     map[int64]domain.OperatorSettings{},
	}
}

var (
	_ ports.FingerprintStore = (*memStore)(nil)
	_ ports.CategoryStore    = (*memStore)(nil)
	_ ports.RecordStore      = (*memStore)(nil)
	_ ports.DraftStore       = (*memStore)(nil)
	_ ports.SettingsStore    = (*memStore)(nil)
	_ ports.AuditLog         = (*memStore)(nil)
)

func (m *memStore) AddFingerprint(_ context.Context, fp domain.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.fingerprints[fp.Hash]; !ok {
		m.fingerprints[fp.Hash] = fp
	}
	return nil
}

func (m *memStore) HasFingerprint(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fingerprints[hash]
	return ok, nil
}

func (m *memStore) Categories(context.Context) ([]domain.Category, error) {
	return m.categories, nil
}

func (m *memStore) CategoryByID(_ context.Context, id int64) (domain.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (m *memStore) CategoryByName(_ context.Context, name string) (domain.Category, error) {
	for _, c := range m.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrNotFound
}

func (m *memStore) SaveRecord(_ context.Context, rec domain.PublishRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.nextID++
	rec.ID = m.nextID
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memStore) Record(_ context.Context, id int64) (domain.PublishRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return rec, fmt.Errorf("record %d: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

func (m *memStore) Records(_ context.Context, operatorID int64, limit int) ([]domain.PublishRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PublishRecord
	for _, rec := range m.records {
		if rec.OperatorID == operatorID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	if _, ok := m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) Statistics(_ context.Context, operatorID int64, since time.Time) (domain.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.Statistics{Since: since}
	for _, rec := range m.records {
		if rec.OperatorID == operatorID && !rec.PublishedAt.Before(since) {
			stats.TotalArticles++
			stats.TotalViews += rec.Views
		}
	}
	return stats, nil
}

func (m *memStore) SaveDraft(_ context.Context, d domain.Draft) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	m.drafts[d.ID] = d
	return d.ID, nil
}

func (m *memStore) Draft(_ context.Context, id int64) (domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return d, domain.ErrNotFound
	}
	return d, nil
}

func (m *memStore) Drafts(_ context.Context, operatorID int64) ([]domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Draft
	for _, d := range m.drafts {
		if d.OperatorID == operatorID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteDraft(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.drafts, id)
	return nil
}

func (m *memStore) Settings(_ context.Context, operatorID int64) (domain.OperatorSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[operatorID]
	if !ok {
		s = domain.DefaultSettings(operatorID)
		m.settings[operatorID] = s
	}
	return s, nil
}

func (m *memStore) SaveSettings(_ context.Context, s domain.OperatorSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.settings[s.OperatorID]; ok && prev.LastPublishTime != nil {
		s.LastPublishTime = prev.LastPublishTime
	}
	m.settings[s.OperatorID] = s
	return nil
}

func (m *memStore) LookupSettings(_ context.Context, operatorID int64) (domain.OperatorSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[operatorID]
	if !ok {
		return domain.DefaultSettings(operatorID), nil
	}
	return s, nil
}

func (m *memStore) TouchLastPublish(_ context.Context, operatorID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	s := m.settings[operatorID]
	s.LastPublishTime = &at
	m.settings[operatorID] = s
	return nil
}

func (m *memStore) AutoPublishOperators(context.Context) ([]domain.OperatorSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OperatorSettings
	for _, s := range m.settings {
		if s.AutoPublishEnabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) AppendAudit(_ context.Context, e domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) AuditEntries(_ context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.audit {
		if e.OperatorID == f.OperatorID && (f.Status == "" || e.Status == f.Status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) PruneAudit(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.audit[:0]
	var removed int64
	for _, e := range m.audit {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.audit = kept
	return removed, nil
}

func (m *memStore) auditEntries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.audit...)
}

// fakeAggregator answers by query; the first call returns seed.
type fakeAggregator struct {
	mu      sync.Mutex
	seed    []domain.Source
	sources []domain.Source
	err     error
	queries []ports.SearchQuery
}

func (f *fakeAggregator) Search(_ context.Context, q ports.SearchQuery) ([]domain.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queries) == 1 {
		return f.seed, nil
	}
	return f.sources, nil
}

func (f *fakeAggregator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeRewriter struct {
	article domain.Article
	err     error
	block   chan struct{}
	calls   int
}

func (f *fakeRewriter) Generate(_ context.Context, _ []domain.Source) (domain.Article, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	return f.article, f.err
}

func (f *fakeRewriter) Translate(_ context.Context, text string) string { return text }

type fakeSite struct {
	mu        sync.Mutex
	createErr error
	uploadErr error
	deleteOK  bool
	deleteErr error
	created   []domain.Article
	mediaIDs  []int64
	uploads   int
	deleted   []int64
}

func (f *fakeSite) UploadImage(context.Context, []byte, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	return 55, nil
}

func (f *fakeSite) CreatePost(_ context.Context, a domain.Article, mediaID int64) (domain.SitePost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.SitePost{}, f.createErr
	}
	f.created = append(f.created, a)
	f.mediaIDs = append(f.mediaIDs, mediaID)
	return domain.SitePost{ID: 900 + int64(len(f.created)), URL: "https://site/post"}, nil
}

func (f *fakeSite) DeletePost(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteOK, f.deleteErr
}

func (f *fakeSite) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created) + f.uploads + len(f.deleted)
}

type fakeChannel struct {
	mu        sync.Mutex
	sendErr   error
	deleteErr error
	sent      []string
	deleted   []int64
}

func (f *fakeChannel) Send(_ context.Context, text string, _ bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, text)
	return 700, nil
}

func (f *fakeChannel) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeFormatter struct{}

func (fakeFormatter) Format(content, articleURL string) (string, error) {
	return content + "|" + articleURL, nil
}

type fakeImages struct {
	err  error
	urls []string
}

func (f *fakeImages) Load(_ context.Context, url string) ([]byte, string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("jpeg"), "article_1.jpg", nil
}

type fakeCovers struct{ url string }

func (f fakeCovers) FindCover(context.Context, string) (string, error) { return f.url, nil }

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) NotifyOperator(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

// fakeDriver records registrations without running anything.
type fakeDriver struct {
	mu        sync.Mutex
	jobs      map[string]time.Duration
	fns       map[string]func(context.Context)
	cancelled []string
	schedules int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{jobs: map[string]time.Duration{}, fns: map[string]func(context.Context){}}
}

func (d *fakeDriver) Schedule(key string, every time.Duration, job func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs[key] = every
	d.fns[key] = job
	d.schedules++
}

func (d *fakeDriver) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.jobs[key]
	delete(d.jobs, key)
	delete(d.fns, key)
	if ok {
		d.cancelled = append(d.cancelled, key)
	}
	return ok
}

func (d *fakeDriver) Scheduled(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.jobs[key]
	return ok
}

func (d *fakeDriver) Stop(context.Context) error { return nil }

func (d *fakeDriver) fire(key string) {
	d.mu.Lock()
	fn := d.fns[key]
	d.mu.Unlock()
	if fn != nil {
		fn(context.Background())
	}
}

var errBoom = errors.New("boom")
