package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-docqa/internal/model"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Save replaces the single active credential row.
func (r *CredentialRepository) Save(ctx context.Context, cred *model.ProviderCredential) error {
	cred.ID = model.ProviderCredentialID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "model", "sealed_api_key", "updated_at"}),
	}).Create(cred).Error
	if err != nil {
		return fmt.Errorf("save credential failed: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Active(ctx context.Context) (*model.ProviderCredential, error) {
	var cred model.ProviderCredential
	if err := r.db.WithContext(ctx).Where("id = ?", model.ProviderCredentialID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credential failed: %w", err)
	}
	return &cred, nil
}
