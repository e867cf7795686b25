package jobs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picstore_backend/internal/pathresolver"
	"picstore_backend/internal/testutil"
)

// seedEntityDir creates an on-disk entity directory with an original
// variant, bypassing the metadata layer.
func (f *jobFixture) seedEntityDir(t *testing.T, namespace, entityID string, kind pathresolver.Kind) string {
	t.Helper()

	entityPath, err := f.resolver.EntityPath(namespace, entityID, kind)
	require.NoError(t, err)
	originalPath, err := f.resolver.VariantPath(entityPath, pathresolver.VariantOriginal, "jpg")
	require.NoError(t, err)
	require.NoError(t, f.store.WriteFile(originalPath, testutil.MakeJPEG(t, 16, 16)))
	return entityPath
}

func TestReconciliationRemovesOrphanEntityDirs(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	// rec-tracked has a metadata row, rec-orphan only exists on disk.
	tracked := f.seedRecord(t, "rec-tracked", false)
	orphanPath := f.seedEntityDir(t, f.tenant.Namespace(), "rec-orphan", pathresolver.KindImage)

	job := NewReconciliationJob(f.tenants, f.media, f.resolver, f.store)
	require.NoError(t, job.Run(ctx))

	exists, err := f.store.Exists(orphanPath)
	require.NoError(t, err)
	assert.False(t, exists)

	trackedPath, err := f.resolver.EntityPath(f.tenant.Namespace(), tracked.ID, pathresolver.KindImage)
	require.NoError(t, err)
	exists, err = f.store.Exists(trackedPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReconciliationSkipsUnresolvableNamespaces(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	strayPath := f.seedEntityDir(t, "ghost.example", "rec-stray", pathresolver.KindImage)

	job := NewReconciliationJob(f.tenants, f.media, f.resolver, f.store)
	require.NoError(t, job.Run(ctx))

	// A directory that maps to no tenant is never touched.
	exists, err := f.store.Exists(strayPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReconciliationScansBothKinds(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()

	imagePath := f.seedEntityDir(t, f.tenant.Namespace(), "orphan-image", pathresolver.KindImage)
	avatarPath := f.seedEntityDir(t, f.tenant.Namespace(), "orphan-avatar", pathresolver.KindAvatar)

	job := NewReconciliationJob(f.tenants, f.media, f.resolver, f.store)
	require.NoError(t, job.Run(ctx))

	for _, path := range []string{imagePath, avatarPath} {
		exists, err := f.store.Exists(path)
		require.NoError(t, err)
		assert.False(t, exists, filepath.Base(path))
	}
}

func TestReconciliationEmptyRootIsANoop(t *testing.T) {
	f := newJobFixture(t)

	job := NewReconciliationJob(f.tenants, f.media, f.resolver, f.store)
	assert.NoError(t, job.Run(context.Background()))
}
