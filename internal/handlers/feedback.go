package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/middleware"
	"github.com/aidalert/aidalert/internal/services"
	"github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/response"
)

// FeedbackHandler exposes feedback submission and moderation endpoints.
type FeedbackHandler struct {
	service *services.FeedbackService
}

// NewFeedbackHandler constructs a feedback handler.
func NewFeedbackHandler(db *gorm.DB) (*FeedbackHandler, error) {
	service, err := services.NewFeedbackService(db)
	if err != nil {
		return nil, err
	}
	return &FeedbackHandler{service: service}, nil
}

type submitFeedbackRequest struct {
	IncidentID *string `json:"incident_id"`
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	Message    string  `json:"message" validate:"required,max=2000"`
	Tags       string  `json:"tags" validate:"max=200"`
}

// Submit records feedback from the authenticated user.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req submitFeedbackRequest
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.service.Submit(requestContext(c), services.SubmitFeedbackInput{
		UserID:     userID,
		IncidentID: req.IncidentID,
		Rating:     req.Rating,
		Message:    req.Message,
		Tags:       req.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, entry)
}

// Mine returns the authenticated user's feedback entries.
func (h *FeedbackHandler) Mine(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	entries, err := h.service.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

// List returns feedback entries for moderation.
func (h *FeedbackHandler) List(c *gin.Context) {
	entries, err := h.service.List(requestContext(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

type replyFeedbackRequest struct {
	Reply string `json:"reply" validate:"required,max=2000"`
}

// Reply posts a moderator reply to a feedback entry.
func (h *FeedbackHandler) Reply(c *gin.Context) {
	var req replyFeedbackRequest
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := h.service.Reply(requestContext(c), strings.TrimSpace(c.Param("id")), req.Reply)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

type feedbackStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved replied resolved"`
}

// SetStatus moves a feedback entry through its review states.
func (h *FeedbackHandler) SetStatus(c *gin.Context) {
	var req feedbackStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.service.SetStatus(requestContext(c), strings.TrimSpace(c.Param("id")), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}
