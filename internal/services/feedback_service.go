package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
)

// SubmitFeedbackInput carries a user-submitted review.
type SubmitFeedbackInput struct {
	UserID     string
	IncidentID *string
	Rating     int
	Message    string
	Tags       string
}

// FeedbackService stores and moderates user feedback.
type FeedbackService struct {
	db *gorm.DB
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(db *gorm.DB) (*FeedbackService, error) {
	if db == nil {
		return nil, errors.New("feedback service: db is required")
	}
	return &FeedbackService{db: db}, nil
}

// Submit records a feedback entry. Sentiment is derived from the rating at
// submission time: 4-5 positive, 3 neutral, below that negative.
func (s *FeedbackService) Submit(ctx context.Context, input SubmitFeedbackInput) (*models.Feedback, error) {
	ctx = ensureContext(ctx)

	input.Message = strings.TrimSpace(input.Message)
	if input.UserID == "" || input.Message == "" {
		return nil, apperrors.NewBadRequest("user and message are required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewBadRequest("rating must be between 1 and 5")
	}

	feedback := models.Feedback{
		UserID:     input.UserID,
		IncidentID: input.IncidentID,
		Rating:     input.Rating,
		Message:    input.Message,
		Sentiment:  sentimentForRating(input.Rating),
		Tags:       strings.TrimSpace(input.Tags),
		Status:     models.FeedbackPending,
	}
	if err := s.db.WithContext(ctx).Create(&feedback).Error; err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("create feedback: %w", err))
	}
	return &feedback, nil
}

// ListForUser returns a user's own feedback entries, newest first.
func (s *FeedbackService) ListForUser(ctx context.Context, userID string) ([]models.Feedback, error) {
	ctx = ensureContext(ctx)

	var entries []models.Feedback
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("feedback service: list feedback: %w", err)
	}
	return entries, nil
}

// List returns feedback entries for moderation, optionally filtered by status.
func (s *FeedbackService) List(ctx context.Context, status string) ([]models.Feedback, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Preload("User").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var entries []models.Feedback
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("feedback service: list feedback: %w", err)
	}
	return entries, nil
}

// Reply records a moderator reply and moves the entry to replied.
func (s *FeedbackService) Reply(ctx context.Context, feedbackID, reply string) (*models.Feedback, error) {
	ctx = ensureContext(ctx)

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, apperrors.NewBadRequest("reply is required")
	}

	var feedback models.Feedback
	if err := s.db.WithContext(ctx).First(&feedback, "id = ?", feedbackID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("feedback service: load feedback: %w", err)
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"reply":      reply,
		"replied_at": &now,
		"status":     models.FeedbackReplied,
	}
	if err := s.db.WithContext(ctx).Model(&feedback).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("reply feedback: %w", err))
	}
	return &feedback, nil
}

// SetStatus moves a feedback entry through its review states.
func (s *FeedbackService) SetStatus(ctx context.Context, feedbackID, status string) error {
	ctx = ensureContext(ctx)

	switch status {
	case models.FeedbackPending, models.FeedbackApproved, models.FeedbackReplied, models.FeedbackResolved:
	default:
		return apperrors.NewBadRequest("unknown feedback status")
	}

	result := s.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("id = ?", feedbackID).
		Update("status", status)
	if result.Error != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("update feedback status: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func sentimentForRating(rating int) string {
	switch {
	case rating >= 4:
		return models.SentimentPositive
	case rating == 3:
		return models.SentimentNeutral
	default:
		return models.SentimentNegative
	}
}
