package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

var recordColumns = []string{
	"p.id", "p.operator_id", "p.site_post_id", "p.channel_message_id", "p.title", "p.url",
	"p.category_id", "COALESCE(c.name, '')", "p.published_to_site", "p.published_to_channel",
	"p.sources", "p.published_at", "p.views", "p.clicks",
}

// SaveRecord inserts a publish record and returns its id.
func (r *Repository) SaveRecord(ctx context.Context, rec domain.PublishRecord) (int64, error) {
	sources, err := marshalJSON(nonNilSources(rec.Sources))
	if err != nil {
		return 0, err
	}

	id, err := r.insertReturningID(ctx, r.sb.Insert("published_articles").
		Columns("operator_id", "site_post_id", "channel_message_id", "title", "url", "category_id",
			"published_to_site", "published_to_channel", "sources", "published_at", "views", "clicks").
		Values(rec.OperatorID, rec.SitePostID, rec.ChannelMessageID, rec.Title, rec.URL, rec.CategoryID,
			rec.PublishedToSite, rec.PublishedToChannel, sources, utc(rec.PublishedAt), rec.Views, rec.Clicks))
	if err != nil {
		return 0, fmt.Errorf("insert publish record: %w", err)
	}
	return id, nil
}

// Record loads one publish record with its category name.
func (r *Repository) Record(ctx context.Context, id int64) (domain.PublishRecord, error) {
	row, err := r.queryRow(ctx, r.selectRecords().Where(sq.Eq{"p.id": id}))
	if err != nil {
		return domain.PublishRecord{}, err
	}
	rec, err := scanRecord(row)
	if err != nil {
		return domain.PublishRecord{}, notFound(err, "record", id)
	}
	return rec, nil
}

// Records lists an operator's records, newest first.
func (r *Repository) Records(ctx context.Context, operatorID int64, limit int) ([]domain.PublishRecord, error) {
	q := r.selectRecords().
		Where(sq.Eq{"p.operator_id": operatorID}).
		OrderBy("p.published_at DESC", "p.id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []domain.PublishRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRecord removes a record; a missing id is ErrNotFound.
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, r.sb.Delete("published_articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return requireAffected(res, "record", id)
}

// Statistics aggregates an operator's records published at or after since.
func (r *Repository) Statistics(ctx context.Context, operatorID int64, since time.Time) (domain.Statistics, error) {
	since = since.UTC()
	stats := domain.Statistics{Since: since, ByCategory: []domain.CategoryCount{}}
	scope := sq.And{sq.Eq{"p.operator_id": operatorID}, sq.GtOrEq{"p.published_at": since}}

	row, err := r.queryRow(ctx, r.sb.
		Select("COUNT(*)", "COALESCE(SUM(p.views), 0)", "COALESCE(SUM(p.clicks), 0)").
		From("published_articles p").
		Where(scope))
	if err != nil {
		return stats, err
	}
	if err := row.Scan(&stats.TotalArticles, &stats.TotalViews, &stats.TotalClicks); err != nil {
		return stats, fmt.Errorf("query totals: %w", err)
	}
	if stats.TotalArticles == 0 {
		return stats, nil
	}

	rows, err := r.query(ctx, r.sb.
		Select("COALESCE(c.name, '')", "COUNT(*)").
		From("published_articles p").
		LeftJoin("categories c ON c.id = p.category_id").
		Where(scope).
		GroupBy("c.name").
		OrderBy("COUNT(*) DESC", "c.name"))
	if err != nil {
		return stats, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc domain.CategoryCount
		if err := rows.Scan(&cc.Name, &cc.Count); err != nil {
			return stats, fmt.Errorf("scan category count: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	top, err := r.queryRow(ctx, r.selectRecords().
		Where(scope).
		OrderBy("p.views DESC", "p.clicks DESC", "p.published_at DESC").
		Limit(1))
	if err != nil {
		return stats, err
	}
	rec, err := scanRecord(top)
	if err != nil {
		return stats, fmt.Errorf("query top record: %w", err)
	}
	stats.Top = &rec
	return stats, nil
}

func (r *Repository) selectRecords() sq.SelectBuilder {
	return r.sb.Select(recordColumns...).
		From("published_articles p").
		LeftJoin("categories c ON c.id = p.category_id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.PublishRecord, error) {
	var (
		rec       domain.PublishRecord
		postID    sql.NullInt64
		messageID sql.NullInt64
		sources   sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.OperatorID, &postID, &messageID, &rec.Title, &rec.URL,
		&rec.CategoryID, &rec.CategoryName, &rec.PublishedToSite, &rec.PublishedToChannel,
		&sources, &rec.PublishedAt, &rec.Views, &rec.Clicks); err != nil {
		return rec, err
	}
	rec.SitePostID = nullableInt(postID)
	rec.ChannelMessageID = nullableInt(messageID)
	rec.PublishedAt = rec.PublishedAt.UTC()
	if err := unmarshalJSON(sources, &rec.Sources); err != nil {
		return rec, err
	}
	rec.Sources = nonNilSources(rec.Sources)
	return rec, nil
}

func nonNilSources(s []domain.Source) []domain.Source {
	if s == nil {
		return []domain.Source{}
	}
	return s
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
