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

// ResponderHandler exposes the responder workflow: the dispatch queue,
// accepting work, advancing an assignment, and availability self-service.
type ResponderHandler struct {
	users       *services.UserService
	incidents   *services.IncidentService
	assignments *services.AssignmentService
	dispatcher  *services.NotificationService
}

// NewResponderHandler constructs a responder handler with its backing services.
func NewResponderHandler(db *gorm.DB) (*ResponderHandler, error) {
	recorder, err := services.NewHistoryRecorder(db)
	if err != nil {
		return nil, err
	}
	dispatcher, err := services.NewNotificationService(db)
	if err != nil {
		return nil, err
	}
	incidents, err := services.NewIncidentService(db, recorder, dispatcher)
	if err != nil {
		return nil, err
	}
	assignments, err := services.NewAssignmentService(db, recorder, incidents)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &ResponderHandler{users: users, incidents: incidents, assignments: assignments, dispatcher: dispatcher}, nil
}

type escalateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Escalate raises the responder's assigned incident to all facility users.
func (h *ResponderHandler) Escalate(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	// The reason payload is optional.
	var req escalateRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	incidentID := strings.TrimSpace(c.Param("id"))
	active, err := h.assignments.ActiveAssignment(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if active == nil || active.ID != incidentID {
		response.Error(c, errors.ErrNotAssigned)
		return
	}

	if err := h.dispatcher.CriticalEscalation(requestContext(c), active, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"escalated": true})
}

// Dashboard lazily provisions the responder profile and returns it with
// workload statistics.
func (h *ResponderHandler) Dashboard(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	responder, err := h.assignments.EnsureResponderProfile(requestContext(c), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.assignments.Stats(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"responder": responder,
		"stats":     stats,
	})
}

// Queue returns open, unassigned incidents for responders to pick from.
func (h *ResponderHandler) Queue(c *gin.Context) {
	incidents, err := h.incidents.ListOpenUnassigned(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incidents)
}

// Accept binds the responder to an open incident. A ResponderBusy outcome
// carries the existing assignment so clients can redirect to it.
func (h *ResponderHandler) Accept(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	incident, err := h.assignments.Accept(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		if appErr := errors.FromError(err); appErr.Code == errors.ErrResponderBusy.Code {
			active, lookupErr := h.assignments.ActiveAssignment(requestContext(c), userID)
			if lookupErr == nil && active != nil {
				c.JSON(http.StatusConflict, response.Response{
					Success: false,
					Data:    gin.H{"active_incident": active},
					Error:   &response.ErrorInfo{Code: appErr.Code, Message: appErr.Message},
				})
				return
			}
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incident)
}

type advanceRequest struct {
	Status          string `json:"status" validate:"required"`
	Notes           string `json:"notes" validate:"max=1000"`
	BackupRequested bool   `json:"backup_requested"`
	EquipmentNeeded bool   `json:"equipment_needed"`
	FamilyNotified  bool   `json:"family_notified"`
}

// Advance applies the responder's status update to their assigned incident.
func (h *ResponderHandler) Advance(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req advanceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	incident, err := h.assignments.AdvanceByResponder(
		requestContext(c), userID, strings.TrimSpace(c.Param("id")),
		req.Status, req.Notes,
		services.AdvanceFlags{
			BackupRequested: req.BackupRequested,
			EquipmentNeeded: req.EquipmentNeeded,
			FamilyNotified:  req.FamilyNotified,
		},
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incident)
}

// Active returns the responder's current assignment, if any.
func (h *ResponderHandler) Active(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	incident, err := h.assignments.ActiveAssignment(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if incident == nil {
		response.Success(c, http.StatusOK, gin.H{"active_incident": nil})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active_incident": incident})
}

type toggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Toggle switches the responder between available and unavailable.
func (h *ResponderHandler) Toggle(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req toggleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	responder, err := h.assignments.ToggleAvailability(requestContext(c), userID, *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, responder)
}

// AvailabilityHistory returns the responder's recent availability changes.
func (h *ResponderHandler) AvailabilityHistory(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	history, err := h.assignments.AvailabilityHistory(requestContext(c), userID, parseIntQuery(c, "limit", 25))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, history)
}

// ListResponders returns all responder profiles for administrative views.
func (h *ResponderHandler) ListResponders(c *gin.Context) {
	responders, err := h.assignments.ListResponders(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, responders)
}

type adminAssignRequest struct {
	ResponderID string `json:"responder_id" validate:"required"`
}

// AdminAssign binds an arbitrary responder to an incident.
func (h *ResponderHandler) AdminAssign(c *gin.Context) {
	var req adminAssignRequest
	if !bindAndValidate(c, &req) {
		return
	}

	incident, err := h.assignments.AdminAssign(requestContext(c), strings.TrimSpace(c.Param("id")), req.ResponderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incident)
}

// Unassign detaches the responder from an incident.
func (h *ResponderHandler) Unassign(c *gin.Context) {
	incident, err := h.assignments.Unassign(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incident)
}
