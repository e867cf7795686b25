package storage

// ArtifactStore defines raw file operations against resolver-validated
// paths. All paths are absolute and must descend from the storage root;
// implementations re-validate defensively before touching the disk.
type ArtifactStore interface {
	// EnsureDir creates a directory (and parents) if it does not exist.
	EnsureDir(path string) error

	// WriteFile stores bytes at path, creating parents and overwriting
	// any existing file.
	WriteFile(path string, data []byte) error

	// ReadFile returns the file contents, failing NotFound when absent.
	ReadFile(path string) ([]byte, error)

	// DeleteDirRecursive removes a directory tree. Idempotent: a missing
	// directory is not an error.
	DeleteDirRecursive(path string) error

	// Exists checks whether a file or directory is present at path.
	Exists(path string) (bool, error)

	// ListChildDirNames returns the names of direct child directories.
	// A missing parent yields an empty list, not an error — reconciliation
	// scans rely on this.
	ListChildDirNames(path string) ([]string, error)
}
