package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"picstore_backend/internal/models"
	"picstore_backend/pkg/apperrors"
)

type MediaRepository interface {
	Create(ctx context.Context, record *models.MediaRecord) error
	Update(ctx context.Context, record *models.MediaRecord) error
	Delete(ctx context.Context, tenantID, id string) error

	FindByID(ctx context.Context, tenantID, id string) (*models.MediaRecord, error)

	// FindByOwnerAndKind locates the single replacement slot for
	// one-per-owner kinds like avatars. NotFound when the slot is empty.
	FindByOwnerAndKind(ctx context.Context, tenantID, ownerID, kind string) (*models.MediaRecord, error)

	ListByTenant(ctx context.Context, tenantID, kind string) ([]models.MediaRecord, error)

	// ListUnoptimized returns a bounded batch of records awaiting the
	// optimization pass, oldest first.
	ListUnoptimized(ctx context.Context, limit int) ([]models.MediaRecord, error)

	// ExistsInTenant reports whether an entity id has a metadata row in
	// the given tenant. Reconciliation deletes directories for which this
	// is false.
	ExistsInTenant(ctx context.Context, tenantID, id string) (bool, error)

	MarkOptimized(ctx context.Context, id string, size int64, at time.Time) error

	IncrementViewCount(ctx context.Context, id string) error
	IncrementDownloadCount(ctx context.Context, id string) error
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, record *models.MediaRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (r *mediaRepository) Update(ctx context.Context, record *models.MediaRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (r *mediaRepository) Delete(ctx context.Context, tenantID, id string) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.MediaRecord{})
	if result.Error != nil {
		return apperrors.InternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *mediaRepository) FindByID(ctx context.Context, tenantID, id string) (*models.MediaRecord, error) {
	var record models.MediaRecord
	err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return &record, nil
}

func (r *mediaRepository) FindByOwnerAndKind(ctx context.Context, tenantID, ownerID, kind string) (*models.MediaRecord, error) {
	var record models.MediaRecord
	err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND owner_id = ? AND kind = ?", tenantID, ownerID, kind).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return &record, nil
}

func (r *mediaRepository) ListByTenant(ctx context.Context, tenantID, kind string) ([]models.MediaRecord, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var records []models.MediaRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, apperrors.InternalError(err)
	}
	return records, nil
}

func (r *mediaRepository) ListUnoptimized(ctx context.Context, limit int) ([]models.MediaRecord, error) {
	var records []models.MediaRecord
	err := r.db.WithContext(ctx).
		Where("optimized = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return records, nil
}

func (r *mediaRepository) ExistsInTenant(ctx context.Context, tenantID, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MediaRecord{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Count(&count).Error
	if err != nil {
		return false, apperrors.InternalError(err)
	}
	return count > 0, nil
}

func (r *mediaRepository) MarkOptimized(ctx context.Context, id string, size int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.MediaRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"optimized":    true,
			"optimized_at": at,
			"size":         size,
		})
	if result.Error != nil {
		return apperrors.InternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *mediaRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "view_count")
}

func (r *mediaRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	return r.increment(ctx, id, "download_count")
}

func (r *mediaRepository) increment(ctx context.Context, id, column string) error {
	err := r.db.WithContext(ctx).
		Model(&models.MediaRecord{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	if err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}
