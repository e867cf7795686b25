package pathresolver

import (
	"fmt"
	"path/filepath"
	"strings"

	"picstore_backend/pkg/apperrors"
)

// Kind distinguishes the two entity classes stored under a tenant namespace.
type Kind string

const (
	KindImage  Kind = "image"
	KindAvatar Kind = "avatar"
)

// DirName returns the directory segment for the kind.
func (k Kind) DirName() string {
	if k == KindAvatar {
		return "avatars"
	}
	return "images"
}

// KindFromString parses a kind value coming from a record or request.
func KindFromString(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindAvatar:
		return Kind(s), nil
	default:
		return "", apperrors.NewBadRequestError(fmt.Sprintf("unknown media kind: %q", s))
	}
}

// Kinds lists all entity kinds, in scan order.
func Kinds() []Kind {
	return []Kind{KindImage, KindAvatar}
}

// Variant names a derived rendition of an entity. Variants are a filename
// convention, not database rows.
type Variant string

const (
	VariantOriginal Variant = "original"
	VariantThumb    Variant = "thumb"
)

// Resolver derives and validates all storage paths. Every path handed to
// the artifact store must come out of this type: the descendant-of-root
// check here is the single security invariant of the storage layer.
type Resolver struct {
	root string
}

// New creates a resolver anchored at the given storage root.
func New(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute storage root.
func (r *Resolver) Root() string {
	return r.root
}

// TenantPath returns the namespace directory for a tenant.
func (r *Resolver) TenantPath(namespace string) (string, error) {
	component := SanitizeComponent(namespace)
	if component == "" {
		return "", apperrors.ErrSecurity("tenant namespace is empty after sanitization")
	}

	path := filepath.Join(r.root, component)
	if err := r.ValidateWithinRoot(path); err != nil {
		return "", err
	}
	return path, nil
}

// EntityPath returns the directory holding one entity's variants.
func (r *Resolver) EntityPath(namespace, entityID string, kind Kind) (string, error) {
	tenantPath, err := r.TenantPath(namespace)
	if err != nil {
		return "", err
	}

	idComponent := SanitizeComponent(entityID)
	if idComponent == "" {
		return "", apperrors.ErrSecurity("entity id is empty after sanitization")
	}

	path := filepath.Join(tenantPath, kind.DirName(), idComponent)
	if err := r.ValidateWithinRoot(path); err != nil {
		return "", err
	}
	return path, nil
}

// VariantPath returns the file path of a named variant inside an entity
// directory. ext is the canonical format's extension, with or without dot.
func (r *Resolver) VariantPath(entityPath string, v Variant, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	path := filepath.Join(entityPath, fmt.Sprintf("%s.%s", v, ext))
	if err := r.ValidateWithinRoot(path); err != nil {
		return "", err
	}
	return path, nil
}

// SanitizeComponent neutralizes traversal payloads in a single path
// component. Separators and null bytes are stripped, ".." runs are
// collapsed, literal dots survive (tenant domains look like "example.com").
func SanitizeComponent(raw string) string {
	s := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', 0:
			return -1
		}
		return c
	}, raw)

	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	return s
}

// ValidateWithinRoot fails with a security error unless the resolved
// absolute path is the root itself or a descendant of it. It never clamps.
func (r *Resolver) ValidateWithinRoot(path string) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return apperrors.ErrSecurity(fmt.Sprintf("cannot resolve path: %v", err))
	}

	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return apperrors.ErrSecurity(fmt.Sprintf("path escapes storage root: %q", path))
	}
	return nil
}
