package jobs

import (
	"context"
	"time"

	"picstore_backend/internal/logger"
	"picstore_backend/internal/models"
	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/repositories"
	"picstore_backend/internal/storage"
	"picstore_backend/internal/transcoder"
)

// OptimizationConfig carries the re-encoding policy for the optimization
// pass.
type OptimizationConfig struct {
	BatchSize        int
	OriginalQuality  int
	ThumbnailQuality int
	ThumbnailMaxDim  int
}

// OptimizationJob re-compresses unoptimized originals: orientation is
// baked in, EXIF/GPS tags are dropped, the thumb is regenerated from the
// optimized bytes, and the record is stamped optimized. A failed item is
// logged and retried on the next scheduled run — the job interval is the
// retry cadence.
type OptimizationJob struct {
	media    repositories.MediaRepository
	tenants  repositories.TenantRepository
	resolver *pathresolver.Resolver
	store    storage.ArtifactStore
	tc       *transcoder.Transcoder
	cfg      OptimizationConfig
	now      func() time.Time
}

func NewOptimizationJob(
	media repositories.MediaRepository,
	tenants repositories.TenantRepository,
	resolver *pathresolver.Resolver,
	store storage.ArtifactStore,
	tc *transcoder.Transcoder,
	cfg OptimizationConfig,
) *OptimizationJob {
	return &OptimizationJob{
		media:    media,
		tenants:  tenants,
		resolver: resolver,
		store:    store,
		tc:       tc,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (j *OptimizationJob) Name() string {
	return "media-optimization"
}

func (j *OptimizationJob) Run(ctx context.Context) error {
	records, err := j.media.ListUnoptimized(ctx, j.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var failed int
	for i := range records {
		if err := j.optimizeOne(ctx, &records[i]); err != nil {
			failed++
			logger.Error("optimization failed, item will retry next run",
				"record_id", records[i].ID, "error", err)
		}
	}

	logger.Info("optimization batch finished",
		"processed", len(records)-failed, "failed", failed)
	return nil
}

func (j *OptimizationJob) optimizeOne(ctx context.Context, record *models.MediaRecord) error {
	tenant, err := j.tenants.FindByID(ctx, record.TenantID)
	if err != nil {
		return err
	}

	kind, err := pathresolver.KindFromString(record.Kind)
	if err != nil {
		return err
	}

	entityPath, err := j.resolver.EntityPath(tenant.Namespace(), record.ID, kind)
	if err != nil {
		return err
	}

	ext := transcoder.ExtensionFor(record.Format)

	originalPath, err := j.resolver.VariantPath(entityPath, pathresolver.VariantOriginal, ext)
	if err != nil {
		return err
	}

	data, err := j.store.ReadFile(originalPath)
	if err != nil {
		return err
	}

	optimized, err := j.tc.StripSensitiveMetadata(data, j.cfg.OriginalQuality)
	if err != nil {
		return err
	}

	if err := j.store.WriteFile(originalPath, optimized); err != nil {
		return err
	}

	thumb, err := j.tc.DeriveThumbnail(optimized, j.cfg.ThumbnailMaxDim, j.cfg.ThumbnailQuality, transcoder.ThumbnailOptions{
		Format:              record.Format,
		MaintainAspectRatio: true,
	})
	if err != nil {
		return err
	}

	thumbPath, err := j.resolver.VariantPath(entityPath, pathresolver.VariantThumb, ext)
	if err != nil {
		return err
	}
	if err := j.store.WriteFile(thumbPath, thumb); err != nil {
		return err
	}

	return j.media.MarkOptimized(ctx, record.ID, int64(len(optimized)), j.now())
}
