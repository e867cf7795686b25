package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"picstore_backend/internal/models"
	"picstore_backend/internal/repositories"
	"picstore_backend/pkg/apperrors"
)

type ShareTokenService interface {
	// Issue creates an opaque token for targetID. A nil expiresInDays
	// makes the token never expire.
	Issue(ctx context.Context, targetID string, expiresInDays *int) (*models.ShareToken, error)

	// Validate fails for unknown tokens, target mismatches and expired
	// tokens; it always re-checks expiry itself and never relies on the
	// garbage-collection sweep.
	Validate(ctx context.Context, token, expectedTargetID string) error
}

type shareTokenService struct {
	tokens repositories.ShareTokenRepository
	now    func() time.Time
}

func NewShareTokenService(tokens repositories.ShareTokenRepository) ShareTokenService {
	return &shareTokenService{tokens: tokens, now: time.Now}
}

// NewShareTokenServiceWithClock injects a clock for expiry tests.
func NewShareTokenServiceWithClock(tokens repositories.ShareTokenRepository, now func() time.Time) ShareTokenService {
	return &shareTokenService{tokens: tokens, now: now}
}

func (s *shareTokenService) Issue(ctx context.Context, targetID string, expiresInDays *int) (*models.ShareToken, error) {
	if targetID == "" {
		return nil, apperrors.NewBadRequestError("target id is required")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.InternalError(err)
	}

	token := &models.ShareToken{
		Token:    hex.EncodeToString(raw),
		TargetID: targetID,
	}
	if expiresInDays != nil {
		expiresAt := s.now().AddDate(0, 0, *expiresInDays)
		token.ExpiresAt = &expiresAt
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *shareTokenService) Validate(ctx context.Context, token, expectedTargetID string) error {
	row, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return apperrors.ErrInvalidToken
		}
		return err
	}

	if row.TargetID != expectedTargetID {
		return apperrors.ErrInvalidToken
	}
	if row.ExpiresAt != nil && s.now().After(*row.ExpiresAt) {
		return apperrors.ErrTokenExpired
	}
	return nil
}
