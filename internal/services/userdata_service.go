package services

import (
	"context"
	"fmt"
	"strings"

	"solbot-backend/internal/models"
	"solbot-backend/internal/store"
)

// UserDataService stores and retrieves the opaque typed key/value rows the
// frontend attaches to a user (profile answers, survey responses).
type UserDataService struct {
	store store.Store
}

// NewUserDataService creates a UserDataService.
func NewUserDataService(s store.Store) *UserDataService {
	return &UserDataService{store: s}
}

// SaveUserData validates and stores one user-data row.
func (s *UserDataService) SaveUserData(ctx context.Context, userID string, req models.SaveUserDataRequest) (*models.UserDataItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(req.DataType) == "" {
		return nil, fmt.Errorf("data_type is required")
	}

	return s.store.SaveUserData(ctx, store.SaveUserDataParams{
		UserID:   userID,
		DataType: req.DataType,
		Value:    req.Value,
		Metadata: req.Metadata,
	})
}

// GetUserData returns a user's stored rows, optionally filtered by type.
func (s *UserDataService) GetUserData(ctx context.Context, userID, dataType string) ([]models.UserDataItem, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.store.GetUserData(ctx, userID, dataType)
}
