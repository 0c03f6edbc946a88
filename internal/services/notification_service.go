package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/metrics"
)

// NotificationService creates and serves in-app notifications. Dispatch is
// fan-out over recipients: per-recipient failures are aggregated and
// reported to the caller, but a partial failure never undoes the rows that
// did land.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db}, nil
}

// IncidentCreated notifies every facility user about a freshly reported
// critical or high severity incident. Lower severities produce nothing.
func (s *NotificationService) IncidentCreated(ctx context.Context, incident *models.Incident) error {
	ctx = ensureContext(ctx)

	if incident == nil {
		return nil
	}
	if incident.Severity != models.SeverityCritical && incident.Severity != models.SeverityHigh {
		return nil
	}

	var recipients []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleFacility).
		Find(&recipients).Error
	if err != nil {
		return fmt.Errorf("notification service: list facility users: %w", err)
	}

	title := fmt.Sprintf("New %s Incident", models.SeverityDisplay(incident.Severity))
	message := fmt.Sprintf("Type: %s. Location: %s",
		models.IncidentTypeDisplay(incident.IncidentType), incident.Location)
	metadata := datatypes.JSON(fmt.Sprintf(`{"reference":%q,"severity":%q}`,
		incident.Reference(), incident.Severity))

	var errs error
	for _, recipient := range recipients {
		notification := models.Notification{
			RecipientID:       recipient.ID,
			Title:             title,
			Message:           message,
			Type:              incident.Severity,
			Category:          models.CategoryIncident,
			RelatedIncidentID: &incident.ID,
			Metadata:          metadata,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", recipient.ID, err))
			continue
		}
		metrics.NotificationsDispatched.WithLabelValues(models.CategoryIncident).Inc()
	}
	return errs
}

// CriticalEscalation lets an assigned responder raise an incident to every
// facility user, regardless of the incident's reported severity.
func (s *NotificationService) CriticalEscalation(ctx context.Context, incident *models.Incident, reason string) error {
	ctx = ensureContext(ctx)

	if incident == nil {
		return apperrors.NewBadRequest("incident is required")
	}

	message := fmt.Sprintf("Incident %s requires immediate attention. Location: %s",
		incident.Reference(), incident.Location)
	if reason != "" {
		message += ". Reason: " + reason
	}

	return s.broadcast(ctx, models.RoleFacility, models.Notification{
		Title:             "Critical Escalation: " + incident.Reference(),
		Message:           message,
		Type:              models.NotificationCritical,
		Category:          models.CategoryIncident,
		RelatedIncidentID: &incident.ID,
	})
}

// FacilityEscalation lets a facility raise an incident to every admin when
// it cannot handle the load itself.
func (s *NotificationService) FacilityEscalation(ctx context.Context, incident *models.Incident, facilityName string) error {
	ctx = ensureContext(ctx)

	if incident == nil {
		return apperrors.NewBadRequest("incident is required")
	}

	message := fmt.Sprintf("Facility %s escalated incident %s. Location: %s",
		defaultIfEmpty(facilityName, "unknown"), incident.Reference(), incident.Location)

	return s.broadcast(ctx, models.RoleAdmin, models.Notification{
		Title:             "Facility Escalation: " + incident.Reference(),
		Message:           message,
		Type:              models.NotificationCritical,
		Category:          models.CategorySystem,
		RelatedIncidentID: &incident.ID,
	})
}

// broadcast creates one copy of the template notification per user holding
// the given role. Failures are aggregated, never rolled back.
func (s *NotificationService) broadcast(ctx context.Context, role string, template models.Notification) error {
	var recipients []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Find(&recipients).Error
	if err != nil {
		return fmt.Errorf("notification service: list %s users: %w", role, err)
	}

	var errs error
	for _, recipient := range recipients {
		notification := template
		notification.ID = ""
		notification.RecipientID = recipient.ID
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", recipient.ID, err))
			continue
		}
		metrics.NotificationsDispatched.WithLabelValues(notification.Category).Inc()
	}
	return errs
}

// Notify creates a single notification for a user.
func (s *NotificationService) Notify(ctx context.Context, recipientID, title, message, notificationType, category string, relatedIncidentID *string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	if recipientID == "" || title == "" {
		return nil, apperrors.NewBadRequest("recipient and title are required")
	}

	notification := models.Notification{
		RecipientID:       recipientID,
		Title:             title,
		Message:           message,
		Type:              defaultIfEmpty(notificationType, models.NotificationInfo),
		Category:          defaultIfEmpty(category, models.CategorySystem),
		RelatedIncidentID: relatedIncidentID,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("create notification: %w", err))
	}
	metrics.NotificationsDispatched.WithLabelValues(notification.Category).Inc()
	return &notification, nil
}

// ListForUser returns a user's notifications, newest first. unreadOnly
// narrows the list to unread entries.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Where("recipient_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read. Only the
// recipient may mark their own notifications.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("mark read: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a user as read and
// returns how many were affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return 0, apperrors.ErrPersistence.WithInternal(fmt.Errorf("mark all read: %w", result.Error))
	}
	return result.RowsAffected, nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("delete notification: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
