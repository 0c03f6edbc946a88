package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/middleware"
	"github.com/aidalert/aidalert/internal/models"
	"github.com/aidalert/aidalert/internal/services"
	"github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/response"
)

// IncidentHandler exposes incident reporting, querying, and administrative
// state transitions.
type IncidentHandler struct {
	incidents  *services.IncidentService
	dispatcher *services.NotificationService
	users      *services.UserService
}

// NewIncidentHandler constructs an incident handler with its backing services.
func NewIncidentHandler(db *gorm.DB) (*IncidentHandler, error) {
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
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &IncidentHandler{incidents: incidents, dispatcher: dispatcher, users: users}, nil
}

// Escalate lets a facility raise an incident to the administrators.
func (h *IncidentHandler) Escalate(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	incident, err := h.incidents.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.dispatcher.FacilityEscalation(requestContext(c), incident, user.Username); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"escalated": true})
}

type reportIncidentRequest struct {
	IncidentType    string `json:"incident_type" validate:"required,oneof=medical fire accident crime natural other"`
	Severity        string `json:"severity" validate:"required,oneof=critical high medium low"`
	Location        string `json:"location" validate:"required,max=500"`
	Description     string `json:"description" validate:"required"`
	ContactPhone    string `json:"contact_phone" validate:"required,len=10,numeric"`
	PeopleInvolved  int    `json:"people_involved" validate:"omitempty,min=1,max=1000"`
	ImmediateAction string `json:"immediate_action"`
}

// Report files a new incident for the authenticated user.
func (h *IncidentHandler) Report(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req reportIncidentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	incident, err := h.incidents.Create(requestContext(c), services.CreateIncidentInput{
		ReporterID:      userID,
		IncidentType:    req.IncidentType,
		Severity:        req.Severity,
		Location:        req.Location,
		Description:     req.Description,
		ContactPhone:    req.ContactPhone,
		PeopleInvolved:  req.PeopleInvolved,
		ImmediateAction: req.ImmediateAction,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"incident":  incident,
		"reference": incident.Reference(),
	})
}

// Mine returns the authenticated user's reported incidents.
func (h *IncidentHandler) Mine(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	incidents, err := h.incidents.ListForReporter(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incidents)
}

// Get returns one incident. Reporters see their own incidents, admins see
// everything.
func (h *IncidentHandler) Get(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	role := c.GetString(middleware.CtxRoleKey)

	incident, err := h.incidents.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	if role != models.RoleAdmin && role != models.RoleResponder && incident.ReporterID != userID {
		response.Error(c, errors.ErrForbidden)
		return
	}
	response.Success(c, http.StatusOK, incident)
}

// History returns an incident's status audit trail.
func (h *IncidentHandler) History(c *gin.Context) {
	history, err := h.incidents.History(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, history)
}

// List returns incidents with optional status/severity filters.
func (h *IncidentHandler) List(c *gin.Context) {
	incidents, total, err := h.incidents.List(requestContext(c), services.ListIncidentsInput{
		Status:   strings.TrimSpace(c.Query("status")),
		Severity: strings.TrimSpace(c.Query("severity")),
		Limit:    parseIntQuery(c, "limit", 50),
		Offset:   parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, incidents, &response.Meta{Total: int(total)})
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=open en_route on_scene providing_aid transporting resolved closed"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// Transition moves an incident to a new status with administrative
// override, including reopening or closing terminal incidents.
func (h *IncidentHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	incident, err := h.incidents.Transition(requestContext(c), strings.TrimSpace(c.Param("id")), req.Status, req.Notes, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, incident)
}
