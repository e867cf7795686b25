package repositories

import (
	"context"

	"gorm.io/gorm"

	"picstore_backend/internal/models"
	"picstore_backend/pkg/apperrors"
)

type UserRepository interface {
	// GetOrCreate provisions an owner idempotently by (tenant, external id).
	GetOrCreate(ctx context.Context, tenantID, externalID string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreate(ctx context.Context, tenantID, externalID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where(models.User{TenantID: tenantID, ExternalID: externalID}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &user, nil
}
