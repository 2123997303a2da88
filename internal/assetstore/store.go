// Package assetstore abstracts blob storage for product files and
// preview images. The record layer never touches a storage backend
// directly; everything goes through Store so the local backends can be
// swapped for a durable object store without changing callers.
package assetstore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Categories used by the product lifecycle service.
const (
	CategoryFiles  = "products"
	CategoryImages = "images"
)

// ErrNotFound is returned when a reference does not resolve to a stored
// blob. Removal of an already-orphaned asset surfaces this and callers
// may log and move on.
var ErrNotFound = fmt.Errorf("asset not found")

// Store is the blob storage capability set.
type Store interface {
	// Put writes a blob under category and returns its reference. The
	// containment namespace is created on demand.
	Put(ctx context.Context, category, originalName string, data []byte) (string, error)

	// Read returns the blob bytes and size for a reference.
	Read(ctx context.Context, ref string) ([]byte, int64, error)

	// Remove deletes the blob for a reference, ErrNotFound if absent.
	Remove(ctx context.Context, ref string) error

	// List returns all references stored under a category. Used by the
	// orphan sweep job.
	List(ctx context.Context, category string) ([]string, error)

	Close() error
}

// NewReference builds a globally unique reference that keeps the
// original filename human-traceable: <category>/<uuid>-<name>.
func NewReference(category, originalName string) string {
	return path.Join(category, uuid.NewString()+"-"+sanitizeName(originalName))
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "blob"
	}
	return b.String()
}

func splitRef(ref string) (category, key string, ok bool) {
	category, key = path.Split(path.Clean(ref))
	category = strings.Trim(category, "/")
	if category == "" || key == "" || strings.Contains(category, "/") || strings.Contains(key, "..") {
		return "", "", false
	}
	return category, key, true
}
