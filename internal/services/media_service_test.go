package services

import (
	"bytes"
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picstore_backend/internal/models"
	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/storage"
	"picstore_backend/internal/testutil"
	"picstore_backend/internal/transcoder"
	"picstore_backend/pkg/apperrors"
)

type mediaFixture struct {
	svc      MediaService
	media    *testutil.MediaRepo
	tasks    *TaskRunner
	resolver *pathresolver.Resolver
	store    storage.ArtifactStore
	tenant   *models.Tenant
}

func newMediaFixture(t *testing.T) *mediaFixture {
	t.Helper()

	resolver, err := pathresolver.New(t.TempDir())
	require.NoError(t, err)

	store, err := storage.NewLocalStore(resolver)
	require.NoError(t, err)

	domain := "example.com"
	tenant := &models.Tenant{
		BaseModel: models.BaseModel{ID: "tenant-1"},
		Name:      "Example",
		Domain:    &domain,
	}

	mediaRepo := testutil.NewMediaRepo()
	tasks := NewTaskRunner()

	svc := NewMediaService(
		testutil.NewTenantRepo(tenant),
		testutil.NewUserRepo(),
		mediaRepo,
		resolver, store, transcoder.New(), tasks,
		MediaConfig{
			CanonicalFormat:  "jpeg",
			OriginalQuality:  90,
			ThumbnailQuality: 80,
			ThumbnailMaxDim:  800,
			MaxUploadSize:    25 * 1024 * 1024,
		},
	)

	return &mediaFixture{
		svc:      svc,
		media:    mediaRepo,
		tasks:    tasks,
		resolver: resolver,
		store:    store,
		tenant:   tenant,
	}
}

func (f *mediaFixture) scope() RequestScope {
	return RequestScope{TenantID: f.tenant.ID, OwnerExternalID: "user-42"}
}

func (f *mediaFixture) variantOnDisk(t *testing.T, record *models.MediaRecord, variant pathresolver.Variant) []byte {
	t.Helper()
	kind, err := pathresolver.KindFromString(record.Kind)
	require.NoError(t, err)
	entityPath, err := f.resolver.EntityPath(f.tenant.Namespace(), record.ID, kind)
	require.NoError(t, err)
	path, err := f.resolver.VariantPath(entityPath, variant, transcoder.ExtensionFor(record.Format))
	require.NoError(t, err)
	data, err := f.store.ReadFile(path)
	require.NoError(t, err)
	return data
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestUploadWritesBothVariantsAndRecord(t *testing.T) {
	f := newMediaFixture(t)

	record, err := f.svc.Upload(context.Background(), f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 1920, 1080),
		MimeType: "image/jpeg",
		Kind:     pathresolver.KindImage,
		Tags:     []string{"banner", "hero"},
	})
	require.NoError(t, err)

	assert.Equal(t, "jpeg", record.Format)
	assert.Equal(t, 1920, record.Width)
	assert.Equal(t, 1080, record.Height)
	assert.Equal(t, "image/jpeg", record.MimeType)
	assert.False(t, record.Optimized)
	assert.Nil(t, record.OptimizedAt)
	assert.Equal(t, filepath.Join("example.com", "images", record.ID), record.BasePath)

	w, h := decodeDims(t, f.variantOnDisk(t, record, pathresolver.VariantOriginal))
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	tw, th := decodeDims(t, f.variantOnDisk(t, record, pathresolver.VariantThumb))
	assert.Equal(t, 800, tw)
	assert.Equal(t, 450, th)
}

func TestUploadRejectsNonImageMime(t *testing.T) {
	f := newMediaFixture(t)

	_, err := f.svc.Upload(context.Background(), f.scope(), UploadInput{
		Data:     []byte("%PDF-1.7 not an image"),
		MimeType: "application/pdf",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUploadRejectsCorruptImageBytes(t *testing.T) {
	f := newMediaFixture(t)

	_, err := f.svc.Upload(context.Background(), f.scope(), UploadInput{
		Data:     []byte("claims to be an image but is not"),
		MimeType: "image/jpeg",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTranscodeFailed))
}

func TestUploadRequiresKnownTenant(t *testing.T) {
	f := newMediaFixture(t)

	_, err := f.svc.Upload(context.Background(), RequestScope{TenantID: "no-such-tenant"}, UploadInput{
		Data:     testutil.MakeJPEG(t, 10, 10),
		MimeType: "image/jpeg",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUploadFallsBackToSystemOwner(t *testing.T) {
	f := newMediaFixture(t)

	record, err := f.svc.Upload(context.Background(), RequestScope{TenantID: f.tenant.ID}, UploadInput{
		Data:     testutil.MakeJPEG(t, 10, 10),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.OwnerID)
}

func TestAvatarUploadReplacesExistingSlot(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 400, 400),
		MimeType: "image/jpeg",
		Kind:     pathresolver.KindAvatar,
	})
	require.NoError(t, err)

	second, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 600, 300),
		MimeType: "image/jpeg",
		Kind:     pathresolver.KindAvatar,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 600, second.Width)
	assert.Equal(t, 300, second.Height)

	avatars, err := f.svc.List(ctx, f.scope(), string(pathresolver.KindAvatar))
	require.NoError(t, err)
	assert.Len(t, avatars, 1)

	w, h := decodeDims(t, f.variantOnDisk(t, second, pathresolver.VariantOriginal))
	assert.Equal(t, 600, w)
	assert.Equal(t, 300, h)
}

func TestRenderThumbnailServedVerbatim(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 1920, 1080),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	rendition, err := f.svc.Render(ctx, f.scope(), record.ID, RenderOptions{WantThumbnail: true})
	require.NoError(t, err)

	assert.Equal(t, f.variantOnDisk(t, record, pathresolver.VariantThumb), rendition.Data)
	assert.Equal(t, "image/jpeg", rendition.MimeType)
}

func TestRenderDefaultsToThumbnailWhenNoTransform(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 1920, 1080),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	rendition, err := f.svc.Render(ctx, f.scope(), record.ID, RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.variantOnDisk(t, record, pathresolver.VariantThumb), rendition.Data)
}

func TestRenderExplicitWidthResizesFreshFromOriginal(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 1920, 1080),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	rendition, err := f.svc.Render(ctx, f.scope(), record.ID, RenderOptions{Width: 100})
	require.NoError(t, err)

	w, h := decodeDims(t, rendition.Data)
	assert.Equal(t, 100, w)
	assert.Equal(t, 56, h)
}

func TestRenderBumpsViewAndDownloadCounters(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 100, 100),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	_, err = f.svc.Render(ctx, f.scope(), record.ID, RenderOptions{})
	require.NoError(t, err)
	_, err = f.svc.Render(ctx, f.scope(), record.ID, RenderOptions{Download: true})
	require.NoError(t, err)

	// Counter bumps are detached; Close waits them out.
	f.tasks.Close()

	got, err := f.svc.Get(ctx, f.scope(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)
	assert.Equal(t, int64(1), got.DownloadCount)
}

func TestRenderRejectsForeignTenant(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 50, 50),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	_, err = f.svc.Render(ctx, RequestScope{TenantID: "other-tenant"}, record.ID, RenderOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUpdateMetadataPatchesOnlyGivenFields(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 50, 50),
		MimeType: "image/jpeg",
		Tags:     []string{"initial"},
	})
	require.NoError(t, err)

	public := true
	updated, err := f.svc.UpdateMetadata(ctx, f.scope(), record.ID, MetadataPatch{IsPublic: &public})
	require.NoError(t, err)

	assert.True(t, updated.IsPublic)
	assert.Equal(t, []string{"initial"}, tagsFromJSON(updated.Tags))

	updated, err = f.svc.UpdateMetadata(ctx, f.scope(), record.ID, MetadataPatch{Tags: []string{"a", "b"}})
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, []string{"a", "b"}, tagsFromJSON(updated.Tags))
}

func TestDeleteRemovesRowThenVariants(t *testing.T) {
	f := newMediaFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 50, 50),
		MimeType: "image/jpeg",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.scope(), record.ID))

	_, err = f.svc.Get(ctx, f.scope(), record.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	// Variant removal is detached; Close waits it out.
	f.tasks.Close()

	entityPath, err := f.resolver.EntityPath(f.tenant.Namespace(), record.ID, pathresolver.KindImage)
	require.NoError(t, err)
	exists, err := f.store.Exists(entityPath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteUnknownRecord(t *testing.T) {
	f := newMediaFixture(t)

	err := f.svc.Delete(context.Background(), f.scope(), "missing-id")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListRejectsUnknownKind(t *testing.T) {
	f := newMediaFixture(t)

	_, err := f.svc.List(context.Background(), f.scope(), "video")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestFormatRecordDerivedURLs(t *testing.T) {
	f := newMediaFixture(t)

	record, err := f.svc.Upload(context.Background(), f.scope(), UploadInput{
		Data:     testutil.MakeJPEG(t, 50, 50),
		MimeType: "image/jpeg",
		Tags:     []string{"x"},
	})
	require.NoError(t, err)

	resp := f.svc.FormatRecord(record)
	assert.Equal(t, "/media/"+record.ID+"/original", resp.URL)
	assert.Equal(t, "/media/"+record.ID+"/thumb", resp.ThumbnailURL)
	assert.Equal(t, []string{"x"}, resp.Tags)
}
