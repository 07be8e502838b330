package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

// AddFingerprint inserts the digest; an existing digest is left untouched.
func (r *Repository) AddFingerprint(ctx context.Context, fp domain.Fingerprint) error {
	q := r.sb.Insert("article_fingerprints").
		Columns("title_hash", "original_title", "created_at").
		Values(fp.Hash, fp.OriginalTitle, utc(fp.CreatedAt)).
		Suffix("ON CONFLICT (title_hash) DO NOTHING")

	if _, err := r.exec(ctx, q); err != nil {
		return fmt.Errorf("insert fingerprint: %w", err)
	}
	return nil
}

// HasFingerprint reports whether the digest is known.
func (r *Repository) HasFingerprint(ctx context.Context, hash string) (bool, error) {
	row, err := r.queryRow(ctx, r.sb.Select("1").
		From("article_fingerprints").
		Where(sq.Eq{"title_hash": hash}).
		Limit(1))
	if err != nil {
		return false, err
	}

	var one int
	if err := row.Scan(&one); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("query fingerprint: %w", err)
	}
	return true, nil
}
