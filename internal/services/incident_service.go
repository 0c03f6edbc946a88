package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/logger"
	"github.com/aidalert/aidalert/pkg/metrics"
)

// CreateIncidentInput defines attributes required to report an incident.
type CreateIncidentInput struct {
	ReporterID      string
	IncidentType    string
	Severity        string
	Location        string
	Description     string
	ContactPhone    string
	PeopleInvolved  int
	ImmediateAction string
}

// ListIncidentsInput filters the administrative incident listing.
type ListIncidentsInput struct {
	Status   string
	Severity string
	Limit    int
	Offset   int
}

// IncidentService is the incident state machine. It owns every status
// mutation: legal-transition checks, the resolved_at invariant, and the
// paired history row, all committed in a single transaction.
type IncidentService struct {
	db         *gorm.DB
	recorder   *HistoryRecorder
	dispatcher *NotificationService
}

// NewIncidentService constructs an IncidentService. The dispatcher may be
// nil, in which case no notifications are produced.
func NewIncidentService(db *gorm.DB, recorder *HistoryRecorder, dispatcher *NotificationService) (*IncidentService, error) {
	if db == nil {
		return nil, errors.New("incident service: db is required")
	}
	if recorder == nil {
		return nil, errors.New("incident service: history recorder is required")
	}
	return &IncidentService{db: db, recorder: recorder, dispatcher: dispatcher}, nil
}

// Create validates and persists a new open incident together with its
// initial history row. Notification dispatch happens after the transaction
// commits and never fails the report.
func (s *IncidentService) Create(ctx context.Context, input CreateIncidentInput) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	if err := validateCreateIncident(&input); err != nil {
		return nil, err
	}

	incident := models.Incident{
		ReporterID:      input.ReporterID,
		IncidentType:    input.IncidentType,
		Severity:        input.Severity,
		Location:        strings.TrimSpace(input.Location),
		Description:     strings.TrimSpace(input.Description),
		ContactPhone:    input.ContactPhone,
		PeopleInvolved:  input.PeopleInvolved,
		ImmediateAction: strings.TrimSpace(input.ImmediateAction),
		Status:          models.IncidentOpen,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&incident).Error; err != nil {
			return fmt.Errorf("create incident: %w", err)
		}
		return s.recorder.IncidentChanged(ctx, tx, incident.ID, "", models.IncidentOpen, "")
	})
	if err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(err)
	}

	metrics.IncidentsReported.WithLabelValues(incident.Severity).Inc()

	if s.dispatcher != nil {
		if err := s.dispatcher.IncidentCreated(ctx, &incident); err != nil {
			logger.WithModule("incidents").Warn("incident notifications failed",
				zap.String("incident_id", incident.ID),
				zap.Error(err),
			)
		}
	}

	return &incident, nil
}

// Transition moves an incident to a new status, maintaining the
// resolved_at invariant and appending exactly one history row when the
// status actually changes. Terminal incidents reject non-override callers.
func (s *IncidentService) Transition(ctx context.Context, incidentID, newStatus, notes string, override bool) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	if !models.ValidIncidentStatus(newStatus) {
		return nil, apperrors.ErrInvalidTransition
	}

	var incident models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&incident, "id = ?", incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load incident: %w", err)
		}

		if incident.IsTerminal() && !override {
			return apperrors.ErrAlreadyTerminal
		}

		return s.applyTransition(ctx, tx, &incident, newStatus, notes)
	})
	if err != nil {
		return nil, asPersistence(err)
	}

	return &incident, nil
}

// applyTransition mutates the incident inside the caller's transaction.
// It is shared between the public Transition path and the assignment
// service so the status write and its history row always commit together.
func (s *IncidentService) applyTransition(ctx context.Context, tx *gorm.DB, incident *models.Incident, newStatus, notes string) error {
	previous := incident.Status
	incident.Status = newStatus

	// resolved_at is an invariant, not an event: non-nil iff resolved.
	switch {
	case newStatus == models.IncidentResolved && incident.ResolvedAt == nil:
		now := time.Now().UTC()
		incident.ResolvedAt = &now
	case newStatus != models.IncidentResolved && newStatus != models.IncidentClosed && incident.ResolvedAt != nil:
		incident.ResolvedAt = nil
	}

	if err := tx.WithContext(ctx).Model(incident).
		Select("status", "resolved_at", "assigned_responder_id").
		Updates(map[string]any{
			"status":                incident.Status,
			"resolved_at":           incident.ResolvedAt,
			"assigned_responder_id": incident.AssignedResponderID,
		}).Error; err != nil {
		return fmt.Errorf("update incident: %w", err)
	}

	if previous != newStatus {
		metrics.IncidentTransitions.WithLabelValues(newStatus).Inc()
	}

	return s.recorder.IncidentChanged(ctx, tx, incident.ID, previous, newStatus, notes)
}

// Get returns an incident by ID.
func (s *IncidentService) Get(ctx context.Context, incidentID string) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	var incident models.Incident
	err := s.db.WithContext(ctx).First(&incident, "id = ?", incidentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("incident service: load incident: %w", err)
	}
	return &incident, nil
}

// ListOpenUnassigned returns open incidents with no responder bound,
// newest first. This is the dispatch queue responders pick from.
func (s *IncidentService) ListOpenUnassigned(ctx context.Context) ([]models.Incident, error) {
	ctx = ensureContext(ctx)

	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("status = ? AND assigned_responder_id IS NULL", models.IncidentOpen).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("incident service: list open incidents: %w", err)
	}
	return incidents, nil
}

// ListForReporter returns a user's reported incidents, newest first.
func (s *IncidentService) ListForReporter(ctx context.Context, reporterID string) ([]models.Incident, error) {
	ctx = ensureContext(ctx)

	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("incident service: list reporter incidents: %w", err)
	}
	return incidents, nil
}

// List returns incidents with optional status/severity filters for
// administrative views.
func (s *IncidentService) List(ctx context.Context, input ListIncidentsInput) ([]models.Incident, int64, error) {
	ctx = ensureContext(ctx)

	limit := input.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Incident{})
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.Severity != "" {
		query = query.Where("severity = ?", input.Severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("incident service: count incidents: %w", err)
	}

	var incidents []models.Incident
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(max(0, input.Offset)).
		Find(&incidents).Error
	if err != nil {
		return nil, 0, fmt.Errorf("incident service: list incidents: %w", err)
	}
	return incidents, total, nil
}

// History returns an incident's audit trail, newest first.
func (s *IncidentService) History(ctx context.Context, incidentID string) ([]models.IncidentStatusHistory, error) {
	return s.recorder.IncidentHistory(ensureContext(ctx), incidentID)
}

func validateCreateIncident(input *CreateIncidentInput) error {
	input.ContactPhone = strings.TrimSpace(input.ContactPhone)

	if strings.TrimSpace(input.ReporterID) == "" {
		return apperrors.NewBadRequest("reporter is required")
	}
	if strings.TrimSpace(input.Location) == "" ||
		strings.TrimSpace(input.Description) == "" ||
		input.IncidentType == "" || input.Severity == "" || input.ContactPhone == "" {
		return apperrors.NewBadRequest("Please fill in all required fields")
	}
	if !models.ValidIncidentType(input.IncidentType) {
		return apperrors.NewBadRequest("unknown incident type")
	}
	if !models.ValidSeverity(input.Severity) {
		return apperrors.NewBadRequest("unknown severity")
	}
	if !isTenDigitPhone(input.ContactPhone) {
		return apperrors.NewBadRequest("Please enter a valid 10-digit phone number")
	}
	if input.PeopleInvolved <= 0 {
		input.PeopleInvolved = 1
	}
	return nil
}

// asPersistence wraps unexpected datastore failures while passing
// domain AppErrors through untouched.
func asPersistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrPersistence.WithInternal(err)
}
