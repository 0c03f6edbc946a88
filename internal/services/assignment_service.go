package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/metrics"
)

// advanceTokens maps the user-facing status tokens submitted by responders
// to the internal status pipeline nodes.
var advanceTokens = map[string]string{
	"en-route":      models.IncidentEnRoute,
	"on-scene":      models.IncidentOnScene,
	"providing-aid": models.IncidentProvidingAid,
	"transporting":  models.IncidentTransporting,
	"completed":     models.IncidentResolved,
}

// AdvanceFlags are the additional action checkboxes a responder can attach
// to a status update. They are folded into the history notes.
type AdvanceFlags struct {
	BackupRequested bool
	EquipmentNeeded bool
	FamilyNotified  bool
}

func (f AdvanceFlags) suffix() string {
	var actions []string
	if f.BackupRequested {
		actions = append(actions, "Backup Requested")
	}
	if f.EquipmentNeeded {
		actions = append(actions, "Additional Equipment Needed")
	}
	if f.FamilyNotified {
		actions = append(actions, "Family Notified")
	}
	if len(actions) == 0 {
		return ""
	}
	return " | Actions: " + strings.Join(actions, ", ")
}

// ResponderStats summarises a responder's workload for dashboards.
type ResponderStats struct {
	Status           string `json:"status"`
	HandledIncidents uint   `json:"handled_incidents"`
	ActiveIncidentID string `json:"active_incident_id,omitempty"`
	OpenIncidents    int64  `json:"open_incidents"`
}

// AssignmentService binds responders to incidents. Accept is the contended
// path: two responders racing for the same open incident are serialised by
// row locks so only one wins.
type AssignmentService struct {
	db        *gorm.DB
	recorder  *HistoryRecorder
	incidents *IncidentService
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(db *gorm.DB, recorder *HistoryRecorder, incidents *IncidentService) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	if recorder == nil {
		return nil, errors.New("assignment service: history recorder is required")
	}
	if incidents == nil {
		return nil, errors.New("assignment service: incident service is required")
	}
	return &AssignmentService{db: db, recorder: recorder, incidents: incidents}, nil
}

// EnsureResponderProfile returns the responder profile for a user, creating
// it lazily on first use. Creation records the initial availability row.
// A concurrent create racing on the unique user index falls back to a
// re-fetch of the winner's row.
func (s *AssignmentService) EnsureResponderProfile(ctx context.Context, user *models.User) (*models.Responder, error) {
	ctx = ensureContext(ctx)

	if user == nil || user.ID == "" {
		return nil, apperrors.NewBadRequest("user is required")
	}

	var responder models.Responder
	err := s.db.WithContext(ctx).First(&responder, "user_id = ?", user.ID).Error
	if err == nil {
		return &responder, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assignment service: load responder: %w", err)
	}

	responder = models.Responder{
		UserID:      user.ID,
		ResponderID: responderReference(user.ID),
		Phone:       defaultIfEmpty(user.Phone, "Pending"),
		Status:      models.ResponderAvailable,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&responder).Error; err != nil {
			return err
		}
		return s.recorder.ResponderChanged(ctx, tx, responder.ID, "", models.ResponderAvailable, "Responder profile created")
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			var existing models.Responder
			if ferr := s.db.WithContext(ctx).First(&existing, "user_id = ?", user.ID).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("create responder: %w", err))
	}

	return &responder, nil
}

// Accept binds an available responder to an open, unassigned incident.
// The whole check-and-set runs under row locks on both the responder and
// the incident, so concurrent accepts cannot double-assign either side.
func (s *AssignmentService) Accept(ctx context.Context, userID, incidentID string) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	var incident models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var responder models.Responder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&responder, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load responder: %w", err)
		}

		var active int64
		if err := tx.Model(&models.Incident{}).
			Where("assigned_responder_id = ? AND status IN ?", responder.ID, activeStatuses()).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count active assignments: %w", err)
		}
		if active > 0 {
			return apperrors.ErrResponderBusy
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&incident, "id = ?", incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load incident: %w", err)
		}

		if incident.AssignedResponderID != nil {
			return apperrors.ErrAlreadyAssigned
		}
		if incident.IsTerminal() {
			return apperrors.ErrAlreadyTerminal
		}

		incident.AssignedResponderID = &responder.ID
		if err := s.incidents.applyTransition(ctx, tx, &incident, models.IncidentEnRoute, ""); err != nil {
			return err
		}

		previous := responder.Status
		responder.Status = models.ResponderOnDuty
		if err := tx.Model(&responder).Update("status", models.ResponderOnDuty).Error; err != nil {
			return fmt.Errorf("update responder status: %w", err)
		}
		return s.recorder.ResponderChanged(ctx, tx, responder.ID, previous, models.ResponderOnDuty, "")
	})
	if err != nil {
		metrics.AssignmentAttempts.WithLabelValues(acceptOutcome(err)).Inc()
		return nil, asPersistence(err)
	}

	metrics.AssignmentAttempts.WithLabelValues("accepted").Inc()
	return &incident, nil
}

// AdminAssign binds any responder to an incident, overriding an existing
// assignment. An open incident advances to en_route so it leaves the
// unassigned queue.
func (s *AssignmentService) AdminAssign(ctx context.Context, incidentID, responderID string) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	var incident models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var responder models.Responder
		if err := tx.First(&responder, "id = ?", responderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load responder: %w", err)
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&incident, "id = ?", incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load incident: %w", err)
		}

		incident.AssignedResponderID = &responder.ID
		if incident.Status == models.IncidentOpen {
			return s.incidents.applyTransition(ctx, tx, &incident, models.IncidentEnRoute, "Assigned by administrator")
		}
		return tx.Model(&incident).
			Update("assigned_responder_id", responder.ID).Error
	})
	if err != nil {
		return nil, asPersistence(err)
	}
	return &incident, nil
}

// Unassign detaches the responder from an incident. Incident and
// responder statuses are left untouched; only the binding changes.
func (s *AssignmentService) Unassign(ctx context.Context, incidentID string) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	var incident models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&incident, "id = ?", incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load incident: %w", err)
		}
		incident.AssignedResponderID = nil
		return tx.Model(&incident).
			Update("assigned_responder_id", gorm.Expr("NULL")).Error
	})
	if err != nil {
		return nil, asPersistence(err)
	}
	return &incident, nil
}

// AdvanceByResponder applies a responder's status update to their assigned
// incident. Reaching completed resolves the incident, returns the responder
// to available, and credits their handled counter.
func (s *AssignmentService) AdvanceByResponder(ctx context.Context, userID, incidentID, statusToken, notes string, flags AdvanceFlags) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	target, ok := advanceTokens[statusToken]
	if !ok {
		return nil, apperrors.ErrInvalidTransition
	}

	if suffix := flags.suffix(); suffix != "" {
		if notes != "" {
			notes += "\n" + suffix
		} else {
			notes = suffix
		}
	}

	var incident models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var responder models.Responder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&responder, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotAssigned
			}
			return fmt.Errorf("load responder: %w", err)
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&incident, "id = ?", incidentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load incident: %w", err)
		}

		if incident.AssignedResponderID == nil || *incident.AssignedResponderID != responder.ID {
			return apperrors.ErrNotAssigned
		}
		if incident.IsTerminal() {
			return apperrors.ErrAlreadyTerminal
		}
		if !incident.IsActive() {
			return apperrors.ErrNotAssigned
		}

		if err := s.incidents.applyTransition(ctx, tx, &incident, target, notes); err != nil {
			return err
		}

		if target != models.IncidentResolved {
			return nil
		}

		previous := responder.Status
		updates := map[string]any{
			"status":            models.ResponderAvailable,
			"handled_incidents": gorm.Expr("handled_incidents + 1"),
		}
		if err := tx.Model(&responder).Updates(updates).Error; err != nil {
			return fmt.Errorf("release responder: %w", err)
		}
		return s.recorder.ResponderChanged(ctx, tx, responder.ID, previous, models.ResponderAvailable, "Incident "+incident.Reference()+" resolved")
	})
	if err != nil {
		return nil, asPersistence(err)
	}
	return &incident, nil
}

// ToggleAvailability self-serves a responder's availability. Responders
// bound to an active incident must complete it first.
func (s *AssignmentService) ToggleAvailability(ctx context.Context, userID string, desiredActive bool) (*models.Responder, error) {
	ctx = ensureContext(ctx)

	var responder models.Responder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&responder, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("load responder: %w", err)
		}

		if responder.Status == models.ResponderOnDuty {
			return apperrors.ErrResponderOnDuty
		}

		target := models.ResponderUnavailable
		if desiredActive {
			target = models.ResponderAvailable
		}
		if responder.Status == target {
			return nil
		}

		previous := responder.Status
		responder.Status = target
		if err := tx.Model(&responder).Update("status", target).Error; err != nil {
			return fmt.Errorf("update responder status: %w", err)
		}
		return s.recorder.ResponderChanged(ctx, tx, responder.ID, previous, target, "")
	})
	if err != nil {
		return nil, asPersistence(err)
	}
	return &responder, nil
}

// ActiveAssignment returns the incident a responder is currently working,
// or nil when they have none.
func (s *AssignmentService) ActiveAssignment(ctx context.Context, userID string) (*models.Incident, error) {
	ctx = ensureContext(ctx)

	var responder models.Responder
	if err := s.db.WithContext(ctx).First(&responder, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("assignment service: load responder: %w", err)
	}

	var incident models.Incident
	err := s.db.WithContext(ctx).
		Where("assigned_responder_id = ? AND status IN ?", responder.ID, activeStatuses()).
		Order("updated_at DESC").
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("assignment service: load active assignment: %w", err)
	}
	return &incident, nil
}

// Stats returns dashboard figures for a responder.
func (s *AssignmentService) Stats(ctx context.Context, userID string) (*ResponderStats, error) {
	ctx = ensureContext(ctx)

	var responder models.Responder
	if err := s.db.WithContext(ctx).First(&responder, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("assignment service: load responder: %w", err)
	}

	stats := ResponderStats{
		Status:           responder.Status,
		HandledIncidents: responder.HandledIncidents,
	}

	active, err := s.ActiveAssignment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		stats.ActiveIncidentID = active.ID
	}

	err = s.db.WithContext(ctx).Model(&models.Incident{}).
		Where("status = ? AND assigned_responder_id IS NULL", models.IncidentOpen).
		Count(&stats.OpenIncidents).Error
	if err != nil {
		return nil, fmt.Errorf("assignment service: count open incidents: %w", err)
	}
	return &stats, nil
}

// ListResponders returns responder profiles for administrative views.
func (s *AssignmentService) ListResponders(ctx context.Context) ([]models.Responder, error) {
	ctx = ensureContext(ctx)

	var responders []models.Responder
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at ASC").
		Find(&responders).Error
	if err != nil {
		return nil, fmt.Errorf("assignment service: list responders: %w", err)
	}
	return responders, nil
}

// AvailabilityHistory returns a responder's recent availability changes.
func (s *AssignmentService) AvailabilityHistory(ctx context.Context, userID string, limit int) ([]models.ResponderAvailabilityHistory, error) {
	ctx = ensureContext(ctx)

	var responder models.Responder
	if err := s.db.WithContext(ctx).First(&responder, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("assignment service: load responder: %w", err)
	}
	return s.recorder.ResponderHistory(ctx, responder.ID, limit)
}

func activeStatuses() []string {
	return []string{
		models.IncidentEnRoute,
		models.IncidentOnScene,
		models.IncidentProvidingAid,
		models.IncidentTransporting,
	}
}

// responderReference derives the short badge identifier from the user ID,
// e.g. RES-3FA94C21.
func responderReference(userID string) string {
	id := strings.ReplaceAll(userID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "RES-" + strings.ToUpper(id)
}

func acceptOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrResponderBusy):
		return "busy"
	case errors.Is(err, apperrors.ErrAlreadyAssigned):
		return "taken"
	default:
		return "error"
	}
}
