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

// CreateKitInput describes a new medical kit with its initial stock.
type CreateKitInput struct {
	KitID      string
	Name       string
	KitType    string
	Location   string
	ExpiryDate *time.Time
	Items      []KitItemInput
}

// KitItemInput is one stocked consumable line.
type KitItemInput struct {
	Name        string
	Quantity    uint
	MinQuantity uint
	Unit        string
	ExpiryDate  *time.Time
}

// KitService manages medical kit inventory for facility staff.
type KitService struct {
	db *gorm.DB
}

// NewKitService constructs a KitService.
func NewKitService(db *gorm.DB) (*KitService, error) {
	if db == nil {
		return nil, errors.New("kit service: db is required")
	}
	return &KitService{db: db}, nil
}

// Create registers a kit and its items in one transaction.
func (s *KitService) Create(ctx context.Context, input CreateKitInput) (*models.MedicalKit, error) {
	ctx = ensureContext(ctx)

	input.KitID = strings.TrimSpace(input.KitID)
	input.Name = strings.TrimSpace(input.Name)
	if input.KitID == "" || input.Name == "" {
		return nil, apperrors.NewBadRequest("kit id and name are required")
	}
	switch input.KitType {
	case models.KitBasic, models.KitAdvanced, models.KitEmergency, models.KitTrauma, models.KitPediatric:
	default:
		return nil, apperrors.NewBadRequest("unknown kit type")
	}

	kit := models.MedicalKit{
		KitID:      input.KitID,
		Name:       input.Name,
		KitType:    input.KitType,
		Status:     models.KitAvailable,
		Location:   strings.TrimSpace(input.Location),
		ExpiryDate: input.ExpiryDate,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&kit).Error; err != nil {
			return fmt.Errorf("create kit: %w", err)
		}
		for _, item := range input.Items {
			name := strings.TrimSpace(item.Name)
			if name == "" {
				continue
			}
			record := models.KitItem{
				KitID:       kit.ID,
				Name:        name,
				Quantity:    item.Quantity,
				MinQuantity: max(item.MinQuantity, 1),
				Unit:        defaultIfEmpty(item.Unit, "pieces"),
				ExpiryDate:  item.ExpiryDate,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("create kit item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("KIT_EXISTS", "Kit ID already registered", 409)
		}
		return nil, apperrors.ErrPersistence.WithInternal(err)
	}
	return s.Get(ctx, kit.ID)
}

// Get returns a kit with its items.
func (s *KitService) Get(ctx context.Context, id string) (*models.MedicalKit, error) {
	ctx = ensureContext(ctx)

	var kit models.MedicalKit
	err := s.db.WithContext(ctx).Preload("Items").First(&kit, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("kit service: load kit: %w", err)
	}
	return &kit, nil
}

// List returns kits, optionally filtered by status, with items preloaded.
func (s *KitService) List(ctx context.Context, status string) ([]models.MedicalKit, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Preload("Items").Order("kit_id ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var kits []models.MedicalKit
	if err := query.Find(&kits).Error; err != nil {
		return nil, fmt.Errorf("kit service: list kits: %w", err)
	}
	return kits, nil
}

// SetStatus moves a kit between availability states.
func (s *KitService) SetStatus(ctx context.Context, id, status string) error {
	ctx = ensureContext(ctx)

	switch status {
	case models.KitAvailable, models.KitInUse, models.KitMaintenance, models.KitExpired, models.KitLost:
	default:
		return apperrors.NewBadRequest("unknown kit status")
	}

	result := s.db.WithContext(ctx).Model(&models.MedicalKit{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("update kit status: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AdjustStock sets an item's quantity.
func (s *KitService) AdjustStock(ctx context.Context, itemID string, quantity uint) (*models.KitItem, error) {
	ctx = ensureContext(ctx)

	var item models.KitItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("kit service: load item: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&item).Update("quantity", quantity).Error; err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("adjust stock: %w", err))
	}
	item.Quantity = quantity
	return &item, nil
}

// LowStockItems returns items at or below their minimum quantity.
func (s *KitService) LowStockItems(ctx context.Context) ([]models.KitItem, error) {
	ctx = ensureContext(ctx)

	var items []models.KitItem
	err := s.db.WithContext(ctx).
		Where("quantity <= min_quantity").
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("kit service: list low stock: %w", err)
	}
	return items, nil
}
