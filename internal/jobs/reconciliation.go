package jobs

import (
	"context"
	"path/filepath"

	"picstore_backend/internal/logger"
	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/repositories"
	"picstore_backend/internal/storage"
	"picstore_backend/pkg/apperrors"
)

// ReconciliationJob deletes on-disk entity directories that have no
// metadata row in their tenant. This is the safety net for the
// non-transactional disk+DB write pair: a crash between a file write and
// the metadata commit leaves orphan files, and this pass bounds how long
// they survive.
type ReconciliationJob struct {
	tenants  repositories.TenantRepository
	media    repositories.MediaRepository
	resolver *pathresolver.Resolver
	store    storage.ArtifactStore
}

func NewReconciliationJob(
	tenants repositories.TenantRepository,
	media repositories.MediaRepository,
	resolver *pathresolver.Resolver,
	store storage.ArtifactStore,
) *ReconciliationJob {
	return &ReconciliationJob{
		tenants:  tenants,
		media:    media,
		resolver: resolver,
		store:    store,
	}
}

func (j *ReconciliationJob) Name() string {
	return "storage-reconciliation"
}

func (j *ReconciliationJob) Run(ctx context.Context) error {
	namespaces, err := j.store.ListChildDirNames(j.resolver.Root())
	if err != nil {
		return err
	}

	var removed int
	for _, namespace := range namespaces {
		n, err := j.reconcileNamespace(ctx, namespace)
		if err != nil {
			logger.Error("namespace reconciliation failed", "namespace", namespace, "error", err)
			continue
		}
		removed += n
	}

	logger.Info("reconciliation finished", "namespaces", len(namespaces), "orphans_removed", removed)
	return nil
}

func (j *ReconciliationJob) reconcileNamespace(ctx context.Context, namespace string) (int, error) {
	tenant, err := j.tenants.ResolveNamespace(ctx, namespace)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			// Never guess at ownership of a directory we cannot map to a
			// tenant; leave it alone and flag it.
			logger.Warn("unresolvable tenant namespace on disk, skipping", "namespace", namespace)
			return 0, nil
		}
		return 0, err
	}

	tenantPath, err := j.resolver.TenantPath(namespace)
	if err != nil {
		return 0, err
	}

	var removed int
	for _, kind := range pathresolver.Kinds() {
		entityIDs, err := j.store.ListChildDirNames(filepath.Join(tenantPath, kind.DirName()))
		if err != nil {
			return removed, err
		}

		for _, entityID := range entityIDs {
			exists, err := j.media.ExistsInTenant(ctx, tenant.ID, entityID)
			if err != nil {
				return removed, err
			}
			if exists {
				continue
			}

			entityPath, err := j.resolver.EntityPath(namespace, entityID, kind)
			if err != nil {
				logger.Error("orphan path failed validation, skipping", "entity_id", entityID, "error", err)
				continue
			}
			if err := j.store.DeleteDirRecursive(entityPath); err != nil {
				logger.Error("orphan deletion failed", "entity_id", entityID, "error", err)
				continue
			}
			removed++
			logger.Info("orphan entity directory removed", "tenant_id", tenant.ID, "entity_id", entityID, "kind", string(kind))
		}
	}
	return removed, nil
}
