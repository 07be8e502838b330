package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
)

const defaultAuditLimit = 50

// AppendAudit writes one action log entry.
func (r *Repository) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	var details any
	if len(e.Details) > 0 {
		raw, err := marshalJSON(e.Details)
		if err != nil {
			return err
		}
		details = raw
	}

	_, err := r.exec(ctx, r.sb.Insert("audit_log").
		Columns("operator_id", "action", "status", "message", "details", "created_at").
		Values(e.OperatorID, string(e.Action), string(e.Status), e.Message, details, utc(e.CreatedAt)))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// AuditEntries returns an operator's entries, newest first.
func (r *Repository) AuditEntries(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	where := sq.Eq{"operator_id": f.OperatorID}
	if f.Status != "" {
		where["status"] = string(f.Status)
	}

	rows, err := r.query(ctx, r.sb.
		Select("id", "operator_id", "action", "status", "message", "details", "created_at").
		From("audit_log").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			action  string
			status  string
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OperatorID, &action, &status, &e.Message, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Action = domain.ActionKind(action)
		e.Status = domain.AuditStatus(status)
		e.CreatedAt = e.CreatedAt.UTC()
		if err := unmarshalJSON(details, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneAudit deletes entries older than before and returns how many were removed.
func (r *Repository) PruneAudit(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.exec(ctx, r.sb.Delete("audit_log").Where(sq.Lt{"created_at": before.UTC()}))
	if err != nil {
		return 0, fmt.Errorf("prune audit: %w", err)
	}
	return res.RowsAffected()
}
