package domain

import "time"

// ActionKind tags what an audit entry is about.
type ActionKind string

const (
	ActionPublish        ActionKind = "publish"
	ActionAutoPublish    ActionKind = "auto_publish"
	ActionPublishManual  ActionKind = "publish_manual"
	ActionPublishDraft   ActionKind = "publish_draft"
	ActionDeleteArticle  ActionKind = "delete_article"
	ActionDeleteDraft    ActionKind = "delete_draft"
	ActionUpdateSettings ActionKind = "update_settings"
)

// AuditStatus is the terminal status recorded for an action.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditPartial AuditStatus = "partial"
	AuditSkipped AuditStatus = "skipped"
	AuditEmpty   AuditStatus = "empty"
	AuditError   AuditStatus = "error"
)

// AuditEntry is one row of the operator-visible action log.
type AuditEntry struct {
	ID         int64          `json:"id"`
	OperatorID int64          `json:"operator_id"`
	Action     ActionKind     `json:"action"`
	Status     AuditStatus    `json:"status"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter narrows an audit query; empty Status means all.
type AuditFilter struct {
	OperatorID int64
	Status     AuditStatus
	Limit      int
}
