package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/services"
	"github.com/aidalert/aidalert/pkg/response"
)

// KitHandler exposes medical kit inventory endpoints for facility staff.
type KitHandler struct {
	service *services.KitService
}

// NewKitHandler constructs a kit handler.
func NewKitHandler(db *gorm.DB) (*KitHandler, error) {
	service, err := services.NewKitService(db)
	if err != nil {
		return nil, err
	}
	return &KitHandler{service: service}, nil
}

type kitItemRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Quantity    uint       `json:"quantity" validate:"required,min=1"`
	MinQuantity uint       `json:"min_quantity" validate:"omitempty,min=1"`
	Unit        string     `json:"unit" validate:"max=50"`
	ExpiryDate  *time.Time `json:"expiry_date"`
}

type createKitRequest struct {
	KitID      string           `json:"kit_id" validate:"required,max=20"`
	Name       string           `json:"name" validate:"required,max=200"`
	KitType    string           `json:"kit_type" validate:"required,oneof=basic advanced emergency trauma pediatric"`
	Location   string           `json:"location" validate:"max=200"`
	ExpiryDate *time.Time       `json:"expiry_date"`
	Items      []kitItemRequest `json:"items" validate:"dive"`
}

// Create registers a new kit with its initial stock.
func (h *KitHandler) Create(c *gin.Context) {
	var req createKitRequest
	if !bindAndValidate(c, &req) {
		return
	}

	items := make([]services.KitItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.KitItemInput{
			Name:        item.Name,
			Quantity:    item.Quantity,
			MinQuantity: item.MinQuantity,
			Unit:        item.Unit,
			ExpiryDate:  item.ExpiryDate,
		})
	}

	kit, err := h.service.Create(requestContext(c), services.CreateKitInput{
		KitID:      req.KitID,
		Name:       req.Name,
		KitType:    req.KitType,
		Location:   req.Location,
		ExpiryDate: req.ExpiryDate,
		Items:      items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, kit)
}

// List returns kits, optionally filtered by status.
func (h *KitHandler) List(c *gin.Context) {
	kits, err := h.service.List(requestContext(c), strings.TrimSpace(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, kits)
}

// Get returns one kit with its items.
func (h *KitHandler) Get(c *gin.Context) {
	kit, err := h.service.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, kit)
}

type kitStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available in_use maintenance expired lost"`
}

// SetStatus moves a kit between availability states.
func (h *KitHandler) SetStatus(c *gin.Context) {
	var req kitStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.service.SetStatus(requestContext(c), strings.TrimSpace(c.Param("id")), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}

type adjustStockRequest struct {
	Quantity *uint `json:"quantity" validate:"required"`
}

// AdjustStock sets an item's quantity.
func (h *KitHandler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.service.AdjustStock(requestContext(c), strings.TrimSpace(c.Param("itemId")), *req.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// LowStock returns items at or below their minimum quantity.
func (h *KitHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStockItems(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}
