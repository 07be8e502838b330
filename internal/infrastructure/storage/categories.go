package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

// SeedCategories upserts the site category mirror.
func (r *Repository) SeedCategories(ctx context.Context, categories []domain.Category) error {
	for _, c := range categories {
		q := r.sb.Insert("categories").
			Columns("id", "name").
			Values(c.ID, c.Name).
			Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name")
		if _, err := r.exec(ctx, q); err != nil {
			return fmt.Errorf("seed category %d: %w", c.ID, err)
		}
	}
	return nil
}

// Categories lists all categories ordered by name.
func (r *Repository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.query(ctx, r.sb.Select("id", "name").From("categories").OrderBy("name"))
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryByID loads one category.
func (r *Repository) CategoryByID(ctx context.Context, id int64) (domain.Category, error) {
	return r.category(ctx, sq.Eq{"id": id}, fmt.Sprint(id))
}

// CategoryByName resolves a category by its exact name.
func (r *Repository) CategoryByName(ctx context.Context, name string) (domain.Category, error) {
	return r.category(ctx, sq.Eq{"name": name}, name)
}

func (r *Repository) category(ctx context.Context, where sq.Eq, label string) (domain.Category, error) {
	row, err := r.queryRow(ctx, r.sb.Select("id", "name").From("categories").Where(where))
	if err != nil {
		return domain.Category{}, err
	}
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name); err != nil {
		if isNoRows(err) {
			return domain.Category{}, fmt.Errorf("category %q: %w", label, domain.ErrNotFound)
		}
		return domain.Category{}, fmt.Errorf("load category %q: %w", label, err)
	}
	return c, nil
}
