package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/usecase"
)

type runRequest struct {
	Query        string                 `json:"query"`
	Destinations *domain.DestinationSet `json:"destinations,omitempty"`
}

type articleRequest struct {
	Article      domain.Article         `json:"article"`
	Sources      []domain.Source        `json:"sources,omitempty"`
	Destinations *domain.DestinationSet `json:"destinations,omitempty"`
}

type draftRequest struct {
	Article domain.Article  `json:"article"`
	Images  []string        `json:"images,omitempty"`
	Sources []domain.Source `json:"sources,omitempty"`
}

type publishDraftRequest struct {
	Destinations *domain.DestinationSet `json:"destinations,omitempty"`
}

type settingUpdate struct {
	Key   domain.SettingKey `json:"key"`
	Value json.RawMessage   `json:"value"`
}

type translateRequest struct {
	Text string `json:"text"`
}

// deletionConflict is returned when a destructive call lacks confirm=true.
type deletionConflict struct {
	Error   string                  `json:"error"`
	Preview usecase.DeletionPreview `json:"preview"`
}

// POST /api/operators/{op}/runs
func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req runRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	res, err := h.runs.Run(r.Context(), usecase.RunRequest{
		OperatorID:   op,
		Query:        req.Query,
		Destinations: req.Destinations,
		Trigger:      usecase.TriggerManual,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, runStatus(res), res)
}

// POST /api/operators/{op}/articles
func (h *handler) handlePublishArticle(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req articleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.runs.PublishArticle(r.Context(), usecase.PublishRequest{
		OperatorID:   op,
		Article:      req.Article,
		Sources:      req.Sources,
		Destinations: req.Destinations,
		Action:       domain.ActionPublishManual,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, runStatus(res), res)
}

// runStatus maps a terminal run outcome to a response code. Pipeline failures
// are reported in the body; only publications answer 201.
func runStatus(res usecase.RunResult) int {
	switch res.Status {
	case usecase.StatusPublished, usecase.StatusPartial:
		return http.StatusCreated
	case usecase.StatusFailed:
		if res.Err != nil && statusFor(res.Err) == http.StatusBadRequest {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// GET /api/operators/{op}/settings
func (h *handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.settings.Get(r.Context(), op)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PATCH /api/operators/{op}/settings
func (h *handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req settingUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	raw, err := settingValue(req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.settings.Update(r.Context(), op, req.Key, raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// settingValue accepts a JSON string, boolean, number or id array and returns
// the raw text form the settings parser expects.
func settingValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return strings.Join(parts, ","), nil
	}
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" || strings.ContainsAny(text, "{[") {
		return "", fmt.Errorf("%w: unsupported setting value %s", errBadRequest, text)
	}
	return text, nil
}

// GET /api/operators/{op}/records?limit=
func (h *handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	records, err := h.records.Records(r.Context(), op, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// DELETE /api/operators/{op}/records/{id}?confirm=true
func (h *handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !confirmed(r) {
		preview, err := h.records.PreviewRecordDeletion(r.Context(), op, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusConflict, deletionConflict{Error: "confirmation required", Preview: preview})
		return
	}

	report, err := h.records.DeleteRecord(r.Context(), op, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GET /api/operators/{op}/drafts
func (h *handler) handleDrafts(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	drafts, err := h.records.Drafts(r.Context(), op)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(drafts))
}

// POST /api/operators/{op}/drafts
func (h *handler) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req draftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.records.SaveDraft(r.Context(), op, usecase.DraftInput{
		Article: req.Article,
		Images:  req.Images,
		Sources: req.Sources,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DELETE /api/operators/{op}/drafts/{id}?confirm=true
func (h *handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !confirmed(r) {
		preview, err := h.records.PreviewDraftDeletion(r.Context(), op, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusConflict, deletionConflict{Error: "confirmation required", Preview: preview})
		return
	}

	if err := h.records.DeleteDraft(r.Context(), op, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/operators/{op}/drafts/{id}/publish
func (h *handler) handlePublishDraft(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req publishDraftRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	res, err := h.records.PublishDraft(r.Context(), op, id, req.Destinations)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, runStatus(res), res)
}

// GET /api/operators/{op}/audit?status=&limit=
func (h *handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.records.AuditLog(r.Context(), domain.AuditFilter{
		OperatorID: op,
		Status:     domain.AuditStatus(r.URL.Query().Get("status")),
		Limit:      limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// GET /api/operators/{op}/stats?period=
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	op, err := operatorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.records.Statistics(r.Context(), op, r.URL.Query().Get("period"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/categories
func (h *handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.records.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

// POST /api/translate
func (h *handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeError(w, r, fmt.Errorf("%w: text is empty", errBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, translateRequest{Text: h.translator.Translate(r.Context(), req.Text)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
