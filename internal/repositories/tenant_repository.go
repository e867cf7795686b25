package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"picstore_backend/internal/models"
	"picstore_backend/pkg/apperrors"
)

type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)

	// ResolveNamespace maps an on-disk namespace directory name back to a
	// tenant: domain match first, tenant id as fallback. NotFound when
	// neither matches — callers must skip, never guess.
	ResolveNamespace(ctx context.Context, namespace string) (*models.Tenant, error)
}

type tenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return &tenant, nil
}

func (r *tenantRepository) ResolveNamespace(ctx context.Context, namespace string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).First(&tenant, "domain = ?", namespace).Error
	if err == nil {
		return &tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.InternalError(err)
	}
	return r.FindByID(ctx, namespace)
}
