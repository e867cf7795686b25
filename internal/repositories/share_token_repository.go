package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"picstore_backend/internal/models"
	"picstore_backend/pkg/apperrors"
)

type ShareTokenRepository interface {
	Create(ctx context.Context, token *models.ShareToken) error
	FindByToken(ctx context.Context, token string) (*models.ShareToken, error)

	// DeleteExpired sweeps rows past their expiry. Pure garbage
	// collection: validation re-checks expiry independently.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type shareTokenRepository struct {
	db *gorm.DB
}

func NewShareTokenRepository(db *gorm.DB) ShareTokenRepository {
	return &shareTokenRepository{db: db}
}

func (r *shareTokenRepository) Create(ctx context.Context, token *models.ShareToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (r *shareTokenRepository) FindByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	var row models.ShareToken
	err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return &row, nil
}

func (r *shareTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&models.ShareToken{})
	if result.Error != nil {
		return 0, apperrors.InternalError(result.Error)
	}
	return result.RowsAffected, nil
}
