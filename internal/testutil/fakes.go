// Package testutil provides in-memory repository fakes and image
// fixtures for service and job tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"picstore_backend/internal/models"
	"picstore_backend/pkg/apperrors"
)

var errNotFound = errors.New("record not found")

// MakeJPEG renders a synthetic JPEG of the given dimensions.
func MakeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture jpeg: %v", err)
	}
	return buf.Bytes()
}

// TenantRepo is an in-memory TenantRepository.
type TenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*models.Tenant
}

func NewTenantRepo(tenants ...*models.Tenant) *TenantRepo {
	r := &TenantRepo{tenants: make(map[string]*models.Tenant)}
	for _, tenant := range tenants {
		r.tenants[tenant.ID] = tenant
	}
	return r
}

func (r *TenantRepo) FindByID(_ context.Context, id string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenant, ok := r.tenants[id]; ok {
		cp := *tenant
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound(errNotFound)
}

func (r *TenantRepo) ResolveNamespace(_ context.Context, namespace string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tenant := range r.tenants {
		if tenant.Domain != nil && *tenant.Domain == namespace {
			cp := *tenant
			return &cp, nil
		}
	}
	if tenant, ok := r.tenants[namespace]; ok {
		cp := *tenant
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound(errNotFound)
}

// UserRepo is an in-memory UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by tenantID + "/" + externalID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*models.User)}
}

func (r *UserRepo) GetOrCreate(_ context.Context, tenantID, externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenantID + "/" + externalID
	if user, ok := r.users[key]; ok {
		cp := *user
		return &cp, nil
	}
	user := &models.User{
		BaseModel:  models.BaseModel{ID: uuid.NewString(), CreatedAt: time.Now()},
		TenantID:   tenantID,
		ExternalID: externalID,
	}
	r.users[key] = user
	cp := *user
	return &cp, nil
}

// MediaRepo is an in-memory MediaRepository.
type MediaRepo struct {
	mu      sync.Mutex
	records map[string]*models.MediaRecord
}

func NewMediaRepo() *MediaRepo {
	return &MediaRepo{records: make(map[string]*models.MediaRecord)}
}

func (r *MediaRepo) Create(_ context.Context, record *models.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *MediaRepo) Update(_ context.Context, record *models.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return apperrors.ErrNotFound(errNotFound)
	}
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *MediaRepo) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok || record.TenantID != tenantID {
		return apperrors.ErrNotFound(errNotFound)
	}
	delete(r.records, id)
	return nil
}

func (r *MediaRepo) FindByID(_ context.Context, tenantID, id string) (*models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok || record.TenantID != tenantID {
		return nil, apperrors.ErrNotFound(errNotFound)
	}
	cp := *record
	return &cp, nil
}

func (r *MediaRepo) FindByOwnerAndKind(_ context.Context, tenantID, ownerID, kind string) (*models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.TenantID == tenantID && record.OwnerID == ownerID && record.Kind == kind {
			cp := *record
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound(errNotFound)
}

func (r *MediaRepo) ListByTenant(_ context.Context, tenantID, kind string) ([]models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MediaRecord
	for _, record := range r.records {
		if record.TenantID != tenantID {
			continue
		}
		if kind != "" && record.Kind != kind {
			continue
		}
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MediaRepo) ListUnoptimized(_ context.Context, limit int) ([]models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MediaRecord
	for _, record := range r.records {
		if !record.Optimized {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MediaRepo) ExistsInTenant(_ context.Context, tenantID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	return ok && record.TenantID == tenantID, nil
}

func (r *MediaRepo) MarkOptimized(_ context.Context, id string, size int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return apperrors.ErrNotFound(errNotFound)
	}
	record.Optimized = true
	record.OptimizedAt = &at
	record.Size = size
	return nil
}

func (r *MediaRepo) IncrementViewCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok {
		record.ViewCount++
	}
	return nil
}

func (r *MediaRepo) IncrementDownloadCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok {
		record.DownloadCount++
	}
	return nil
}

// TokenRepo is an in-memory ShareTokenRepository.
type TokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.ShareToken
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[string]*models.ShareToken)}
}

func (r *TokenRepo) Create(_ context.Context, token *models.ShareToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *TokenRepo) FindByToken(_ context.Context, token string) (*models.ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.tokens[token]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound(errNotFound)
}

func (r *TokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, row := range r.tokens {
		if row.ExpiresAt != nil && row.ExpiresAt.Before(now) {
			delete(r.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}
