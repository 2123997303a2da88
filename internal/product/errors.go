package product

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no product exists for the given id.
var ErrNotFound = fmt.Errorf("product not found")

// ErrConflict is returned when a delete is blocked by existing orders.
var ErrConflict = fmt.Errorf("product has existing orders")

// ErrAssetIO marks asset store failures so callers can tell them apart
// from record store failures.
var ErrAssetIO = fmt.Errorf("asset store failure")

func assetIOError(err error, msg string) error {
	return errors.Wrap(fmt.Errorf("%w: %v", ErrAssetIO, err), msg)
}

// PartialCreateError reports a create that stored assets but failed to
// persist the record. The references are carried so a caller or the
// orphan sweep can reclaim the storage; it must never be swallowed as a
// generic failure.
type PartialCreateError struct {
	FileRef  string
	ImageRef string
	Err      error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("partial create: record not persisted, assets orphaned (file=%s image=%s): %v",
		e.FileRef, e.ImageRef, e.Err)
}

func (e *PartialCreateError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is the missing-record condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
