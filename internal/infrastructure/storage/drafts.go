package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

var draftColumns = []string{
	"d.id", "d.operator_id", "d.title", "d.content", "d.excerpt", "d.category_id",
	"COALESCE(c.name, '')", "d.seo_description", "d.images", "d.sources", "d.created_at",
}

// SaveDraft stores an article for later publication.
func (r *Repository) SaveDraft(ctx context.Context, d domain.Draft) (int64, error) {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := marshalJSON(images)
	if err != nil {
		return 0, err
	}
	sourcesJSON, err := marshalJSON(nonNilSources(d.Sources))
	if err != nil {
		return 0, err
	}

	a := d.Article
	id, err := r.insertReturningID(ctx, r.sb.Insert("drafts").
		Columns("operator_id", "title", "content", "excerpt", "category_id", "seo_description",
			"images", "sources", "created_at").
		Values(d.OperatorID, a.Title, a.Content, a.Excerpt, a.CategoryID, a.SEODescription,
			imagesJSON, sourcesJSON, utc(d.CreatedAt)))
	if err != nil {
		return 0, fmt.Errorf("insert draft: %w", err)
	}
	return id, nil
}

// Draft loads one draft.
func (r *Repository) Draft(ctx context.Context, id int64) (domain.Draft, error) {
	row, err := r.queryRow(ctx, r.selectDrafts().Where(sq.Eq{"d.id": id}))
	if err != nil {
		return domain.Draft{}, err
	}
	d, err := scanDraft(row)
	if err != nil {
		return domain.Draft{}, notFound(err, "draft", id)
	}
	return d, nil
}

// Drafts lists an operator's drafts, newest first.
func (r *Repository) Drafts(ctx context.Context, operatorID int64) ([]domain.Draft, error) {
	rows, err := r.query(ctx, r.selectDrafts().
		Where(sq.Eq{"d.operator_id": operatorID}).
		OrderBy("d.created_at DESC", "d.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var out []domain.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDraft removes a draft; a missing id is ErrNotFound.
func (r *Repository) DeleteDraft(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, r.sb.Delete("drafts").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete draft %d: %w", id, err)
	}
	return requireAffected(res, "draft", id)
}

func (r *Repository) selectDrafts() sq.SelectBuilder {
	return r.sb.Select(draftColumns...).
		From("drafts d").
		LeftJoin("categories c ON c.id = d.category_id")
}

func scanDraft(row rowScanner) (domain.Draft, error) {
	var (
		d       domain.Draft
		images  sql.NullString
		sources sql.NullString
	)
	a := &d.Article
	if err := row.Scan(&d.ID, &d.OperatorID, &a.Title, &a.Content, &a.Excerpt, &a.CategoryID,
		&a.Category, &a.SEODescription, &images, &sources, &d.CreatedAt); err != nil {
		return d, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	if err := unmarshalJSON(images, &d.Images); err != nil {
		return d, err
	}
	if err := unmarshalJSON(sources, &d.Sources); err != nil {
		return d, err
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	d.Sources = nonNilSources(d.Sources)
	if len(d.Images) > 0 {
		a.ImageURL = d.Images[0]
	}
	return d, nil
}
