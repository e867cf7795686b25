package jobs

import (
	"context"
	"time"

	"picstore_backend/internal/logger"
	"picstore_backend/internal/repositories"
)

// TokenSweepJob garbage-collects share tokens past their expiry. Purely
// cosmetic: validation re-checks expiry on every access, so correctness
// never depends on this sweep.
type TokenSweepJob struct {
	tokens repositories.ShareTokenRepository
	now    func() time.Time
}

func NewTokenSweepJob(tokens repositories.ShareTokenRepository) *TokenSweepJob {
	return &TokenSweepJob{tokens: tokens, now: time.Now}
}

func (j *TokenSweepJob) Name() string {
	return "share-token-sweep"
}

func (j *TokenSweepJob) Run(ctx context.Context) error {
	deleted, err := j.tokens.DeleteExpired(ctx, j.now())
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("expired share tokens swept", "deleted", deleted)
	}
	return nil
}
