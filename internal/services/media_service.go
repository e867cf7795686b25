package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"picstore_backend/internal/models"
	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/repositories"
	"picstore_backend/internal/storage"
	"picstore_backend/internal/transcoder"
	"picstore_backend/pkg/apperrors"
)

// MediaConfig carries the canonical encoding policy.
type MediaConfig struct {
	CanonicalFormat  string
	OriginalQuality  int
	ThumbnailQuality int
	ThumbnailMaxDim  int
	MaxUploadSize    int64
}

// UploadInput is the raw ingestion payload.
type UploadInput struct {
	Data     []byte `validate:"required"`
	MimeType string `validate:"required"`
	Kind     pathresolver.Kind
	IsPublic bool
	Tags     []string
}

// RenderOptions select a rendition on read. Zero dimensions mean "as
// stored"; an empty format means the canonical one.
type RenderOptions struct {
	Width         int
	Height        int
	Format        string
	Quality       int
	WantThumbnail bool
	Download      bool
}

// Rendition is the byte response of a render call.
type Rendition struct {
	Data     []byte
	MimeType string
}

// MetadataPatch mutates the client-controlled record fields.
type MetadataPatch struct {
	IsPublic *bool
	Tags     []string
}

// MediaResponse is the formatted record handed to collaborators. This
// subsystem never renders an HTTP response itself.
type MediaResponse struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	OwnerID       string     `json:"owner_id"`
	Kind          string     `json:"kind"`
	Format        string     `json:"format"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Size          int64      `json:"size"`
	MimeType      string     `json:"mime_type"`
	Optimized     bool       `json:"optimized"`
	OptimizedAt   *time.Time `json:"optimized_at,omitempty"`
	IsPublic      bool       `json:"is_public"`
	Tags          []string   `json:"tags,omitempty"`
	ViewCount     int64      `json:"view_count"`
	DownloadCount int64      `json:"download_count"`
	URL           string     `json:"url"`
	ThumbnailURL  string     `json:"thumbnail_url"`
	CreatedAt     time.Time  `json:"created_at"`
}

type MediaService interface {
	// Upload ingests raw bytes: normalize to the canonical format, write
	// the original and thumb variants, then commit the metadata record.
	Upload(ctx context.Context, scope RequestScope, input UploadInput) (*models.MediaRecord, error)

	// Render serves a variant verbatim or re-derives a transform.
	Render(ctx context.Context, scope RequestScope, entityID string, opts RenderOptions) (*Rendition, error)

	Get(ctx context.Context, scope RequestScope, entityID string) (*models.MediaRecord, error)
	List(ctx context.Context, scope RequestScope, kind string) ([]models.MediaRecord, error)
	UpdateMetadata(ctx context.Context, scope RequestScope, entityID string, patch MetadataPatch) (*models.MediaRecord, error)
	Delete(ctx context.Context, scope RequestScope, entityID string) error

	FormatRecord(record *models.MediaRecord) *MediaResponse
}

type mediaService struct {
	tenants  repositories.TenantRepository
	users    repositories.UserRepository
	media    repositories.MediaRepository
	resolver *pathresolver.Resolver
	store    storage.ArtifactStore
	tc       *transcoder.Transcoder
	tasks    *TaskRunner
	cfg      MediaConfig
	validate *validator.Validate
}

func NewMediaService(
	tenants repositories.TenantRepository,
	users repositories.UserRepository,
	media repositories.MediaRepository,
	resolver *pathresolver.Resolver,
	store storage.ArtifactStore,
	tc *transcoder.Transcoder,
	tasks *TaskRunner,
	cfg MediaConfig,
) MediaService {
	return &mediaService{
		tenants:  tenants,
		users:    users,
		media:    media,
		resolver: resolver,
		store:    store,
		tc:       tc,
		tasks:    tasks,
		cfg:      cfg,
		validate: validator.New(),
	}
}

func (s *mediaService) Upload(ctx context.Context, scope RequestScope, input UploadInput) (*models.MediaRecord, error) {
	if scope.TenantID == "" {
		return nil, apperrors.NewBadRequestError("tenant id is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	// Non-image payloads are rejected before any I/O.
	if !strings.HasPrefix(input.MimeType, "image/") {
		return nil, apperrors.ErrUnsupportedMediaType
	}
	if s.cfg.MaxUploadSize > 0 && int64(len(input.Data)) > s.cfg.MaxUploadSize {
		return nil, apperrors.NewBadRequestError("upload exceeds the size limit")
	}

	kind := input.Kind
	if kind == "" {
		kind = pathresolver.KindImage
	}

	tenant, err := s.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}

	ownerExt := scope.OwnerExternalID
	if ownerExt == "" {
		ownerExt = models.SystemOwnerExternalID
	}
	owner, err := s.users.GetOrCreate(ctx, tenant.ID, ownerExt)
	if err != nil {
		return nil, err
	}

	// Avatars are a one-per-owner replacement slot: the existing row is
	// updated in place and its old variants are removed first. There is
	// no per-entity lock; two concurrent replacements race and the last
	// metadata commit wins.
	var existing *models.MediaRecord
	if kind == pathresolver.KindAvatar {
		existing, err = s.media.FindByOwnerAndKind(ctx, tenant.ID, owner.ID, string(kind))
		if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, err
		}
	}

	entityID := uuid.NewString()
	if existing != nil {
		entityID = existing.ID
	}

	meta, err := s.tc.DecodeMetadata(input.Data)
	if err != nil {
		return nil, err
	}

	encoded, err := s.tc.Reencode(input.Data, s.cfg.CanonicalFormat, s.cfg.OriginalQuality)
	if err != nil {
		return nil, err
	}

	namespace := tenant.Namespace()
	entityPath, err := s.resolver.EntityPath(namespace, entityID, kind)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if err := s.store.DeleteDirRecursive(entityPath); err != nil {
			return nil, err
		}
	}

	ext := transcoder.ExtensionFor(s.cfg.CanonicalFormat)

	originalPath, err := s.resolver.VariantPath(entityPath, pathresolver.VariantOriginal, ext)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteFile(originalPath, encoded); err != nil {
		return nil, err
	}

	thumb, err := s.tc.DeriveThumbnail(encoded, s.cfg.ThumbnailMaxDim, s.cfg.ThumbnailQuality, transcoder.ThumbnailOptions{
		Format:              s.cfg.CanonicalFormat,
		MaintainAspectRatio: true,
	})
	if err != nil {
		return nil, err
	}

	thumbPath, err := s.resolver.VariantPath(entityPath, pathresolver.VariantThumb, ext)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteFile(thumbPath, thumb); err != nil {
		return nil, err
	}

	basePath, err := filepath.Rel(s.resolver.Root(), entityPath)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	record := existing
	if record == nil {
		record = &models.MediaRecord{BaseModel: models.BaseModel{ID: entityID}}
	}
	record.TenantID = tenant.ID
	record.OwnerID = owner.ID
	record.Kind = string(kind)
	record.BasePath = basePath
	record.Format = transcoder.NormalizeFormat(s.cfg.CanonicalFormat)
	record.Width = meta.Width
	record.Height = meta.Height
	record.Size = int64(len(encoded))
	record.MimeType = transcoder.MimeTypeFor(s.cfg.CanonicalFormat)
	record.Optimized = false
	record.OptimizedAt = nil
	record.IsPublic = input.IsPublic
	record.Tags = tagsToJSON(input.Tags)

	// Variants are on disk before this commit: a failure here leaves an
	// orphan file for the reconciliation job, never a dangling row.
	if existing != nil {
		err = s.media.Update(ctx, record)
	} else {
		err = s.media.Create(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *mediaService) Render(ctx context.Context, scope RequestScope, entityID string, opts RenderOptions) (*Rendition, error) {
	record, err := s.media.FindByID(ctx, scope.TenantID, entityID)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}

	kind, err := pathresolver.KindFromString(record.Kind)
	if err != nil {
		return nil, err
	}

	entityPath, err := s.resolver.EntityPath(tenant.Namespace(), record.ID, kind)
	if err != nil {
		return nil, err
	}

	ext := transcoder.ExtensionFor(record.Format)

	targetFormat := opts.Format
	if targetFormat == "" {
		targetFormat = record.Format
	}
	quality := opts.Quality
	if quality <= 0 {
		quality = s.cfg.OriginalQuality
	}

	noTransform := opts.Width == 0 && opts.Height == 0 &&
		transcoder.NormalizeFormat(targetFormat) == record.Format

	// Thumbnail fast path: requested explicitly, or implicitly when the
	// caller asks for the untransformed canonical rendition.
	if opts.WantThumbnail || noTransform {
		thumbPath, pathErr := s.resolver.VariantPath(entityPath, pathresolver.VariantThumb, ext)
		if pathErr != nil {
			return nil, pathErr
		}
		if data, readErr := s.store.ReadFile(thumbPath); readErr == nil {
			s.bumpCounter(record.ID, opts.Download)
			return &Rendition{Data: data, MimeType: transcoder.MimeTypeFor(record.Format)}, nil
		}
		// Missing thumb falls through to the original.
	}

	originalPath, err := s.resolver.VariantPath(entityPath, pathresolver.VariantOriginal, ext)
	if err != nil {
		return nil, err
	}

	data, err := s.store.ReadFile(originalPath)
	if err != nil {
		return nil, err
	}

	out, err := s.tc.OnDemandResize(data, opts.Width, opts.Height, targetFormat, quality)
	if err != nil {
		return nil, err
	}

	s.bumpCounter(record.ID, opts.Download)
	return &Rendition{Data: out, MimeType: transcoder.MimeTypeFor(targetFormat)}, nil
}

// bumpCounter dispatches a counter increment that never blocks or fails
// the byte response.
func (s *mediaService) bumpCounter(recordID string, download bool) {
	s.tasks.Go("bump-counter", func() error {
		// The triggering request may already be done; use a fresh context.
		ctx := context.Background()
		if download {
			return s.media.IncrementDownloadCount(ctx, recordID)
		}
		return s.media.IncrementViewCount(ctx, recordID)
	})
}

func (s *mediaService) Get(ctx context.Context, scope RequestScope, entityID string) (*models.MediaRecord, error) {
	return s.media.FindByID(ctx, scope.TenantID, entityID)
}

func (s *mediaService) List(ctx context.Context, scope RequestScope, kind string) ([]models.MediaRecord, error) {
	if kind != "" {
		if _, err := pathresolver.KindFromString(kind); err != nil {
			return nil, err
		}
	}
	return s.media.ListByTenant(ctx, scope.TenantID, kind)
}

func (s *mediaService) UpdateMetadata(ctx context.Context, scope RequestScope, entityID string, patch MetadataPatch) (*models.MediaRecord, error) {
	record, err := s.media.FindByID(ctx, scope.TenantID, entityID)
	if err != nil {
		return nil, err
	}

	if patch.IsPublic != nil {
		record.IsPublic = *patch.IsPublic
	}
	if patch.Tags != nil {
		record.Tags = tagsToJSON(patch.Tags)
	}

	if err := s.media.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *mediaService) Delete(ctx context.Context, scope RequestScope, entityID string) error {
	record, err := s.media.FindByID(ctx, scope.TenantID, entityID)
	if err != nil {
		return err
	}

	tenant, err := s.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		return err
	}

	kind, err := pathresolver.KindFromString(record.Kind)
	if err != nil {
		return err
	}

	entityPath, err := s.resolver.EntityPath(tenant.Namespace(), record.ID, kind)
	if err != nil {
		return err
	}

	// Row first, files second: a crash in between leaves orphan files
	// that the reconciliation job removes, never a row without files.
	if err := s.media.Delete(ctx, tenant.ID, record.ID); err != nil {
		return err
	}

	s.tasks.Go("delete-variants", func() error {
		return s.store.DeleteDirRecursive(entityPath)
	})
	return nil
}

func (s *mediaService) FormatRecord(record *models.MediaRecord) *MediaResponse {
	return &MediaResponse{
		ID:            record.ID,
		TenantID:      record.TenantID,
		OwnerID:       record.OwnerID,
		Kind:          record.Kind,
		Format:        record.Format,
		Width:         record.Width,
		Height:        record.Height,
		Size:          record.Size,
		MimeType:      record.MimeType,
		Optimized:     record.Optimized,
		OptimizedAt:   record.OptimizedAt,
		IsPublic:      record.IsPublic,
		Tags:          tagsFromJSON(record.Tags),
		ViewCount:     record.ViewCount,
		DownloadCount: record.DownloadCount,
		URL:           fmt.Sprintf("/media/%s/original", record.ID),
		ThumbnailURL:  fmt.Sprintf("/media/%s/thumb", record.ID),
		CreatedAt:     record.CreatedAt,
	}
}

func tagsToJSON(tags []string) datatypes.JSON {
	if len(tags) == 0 {
		return nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func tagsFromJSON(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil
	}
	return tags
}
