package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/services"
	"github.com/aidalert/aidalert/pkg/response"
)

// UserHandler exposes administrative user endpoints.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(db *gorm.DB) (*UserHandler, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &UserHandler{users: users}, nil
}

// List returns users, optionally filtered by role.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(requestContext(c), strings.TrimSpace(c.Query("role")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// Get returns one user.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
