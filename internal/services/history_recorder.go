package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
)

// HistoryRecorder appends immutable audit rows for incident and responder
// status changes. Callers pass the previous and next status explicitly so
// a row is written exactly once per logical change, never per save. The
// recorder joins the caller's transaction, so a failed history write rolls
// back the state change it documents.
type HistoryRecorder struct {
	db *gorm.DB
}

// NewHistoryRecorder constructs a HistoryRecorder using the provided database handle.
func NewHistoryRecorder(db *gorm.DB) (*HistoryRecorder, error) {
	if db == nil {
		return nil, errors.New("history recorder: db is required")
	}
	return &HistoryRecorder{db: db}, nil
}

// IncidentChanged appends one incident status history row when previous and
// next differ. Supplied notes win over the canonical per-status description.
// A nil tx records against the recorder's own handle.
func (r *HistoryRecorder) IncidentChanged(ctx context.Context, tx *gorm.DB, incidentID, previous, next, notes string) error {
	ctx = ensureContext(ctx)
	if previous == next {
		return nil
	}
	if strings.TrimSpace(incidentID) == "" {
		return errors.New("history recorder: incident id is required")
	}

	row := models.IncidentStatusHistory{
		IncidentID: incidentID,
		Status:     next,
		Notes:      defaultIfEmpty(notes, models.IncidentStatusDescription(next)),
	}

	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("history recorder: incident history: %w", err)
	}
	return nil
}

// ResponderChanged appends one responder availability history row when
// previous and next differ.
func (r *HistoryRecorder) ResponderChanged(ctx context.Context, tx *gorm.DB, responderID, previous, next, description string) error {
	ctx = ensureContext(ctx)
	if previous == next {
		return nil
	}
	if strings.TrimSpace(responderID) == "" {
		return errors.New("history recorder: responder id is required")
	}

	row := models.ResponderAvailabilityHistory{
		ResponderID: responderID,
		Status:      next,
		Description: defaultIfEmpty(description, models.ResponderStatusDescription(next)),
	}

	if tx == nil {
		tx = r.db
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("history recorder: responder history: %w", err)
	}
	return nil
}

// IncidentHistory returns an incident's history rows, newest first.
func (r *HistoryRecorder) IncidentHistory(ctx context.Context, incidentID string) ([]models.IncidentStatusHistory, error) {
	ctx = ensureContext(ctx)
	var rows []models.IncidentStatusHistory
	err := r.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history recorder: list incident history: %w", err)
	}
	return rows, nil
}

// ResponderHistory returns a responder's availability history, newest first.
func (r *HistoryRecorder) ResponderHistory(ctx context.Context, responderID string, limit int) ([]models.ResponderAvailabilityHistory, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var rows []models.ResponderAvailabilityHistory
	err := r.db.WithContext(ctx).
		Where("responder_id = ?", responderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history recorder: list responder history: %w", err)
	}
	return rows, nil
}
