package assetstore

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

// FilesystemStore keeps blobs as plain files under a root directory,
// one subdirectory per category.
type FilesystemStore struct {
	root string
}

var _ Store = (*FilesystemStore)(nil)

func NewFilesystemStore(root string) *FilesystemStore {
	return &FilesystemStore{root: root}
}

func (s *FilesystemStore) Put(ctx context.Context, category, originalName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := NewReference(category, originalName)
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "assetstore: create category dir")
	}
	if err := os.WriteFile(s.refPath(ref), data, 0o644); err != nil {
		return "", errors.Wrap(err, "assetstore: write blob")
	}
	return ref, nil
}

func (s *FilesystemStore) Read(ctx context.Context, ref string) ([]byte, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if _, _, ok := splitRef(ref); !ok {
		return nil, 0, ErrNotFound
	}
	data, err := os.ReadFile(s.refPath(ref))
	if os.IsNotExist(err) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "assetstore: read blob")
	}
	return data, int64(len(data)), nil
}

func (s *FilesystemStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, ok := splitRef(ref); !ok {
		return ErrNotFound
	}
	err := os.Remove(s.refPath(ref))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "assetstore: remove blob")
	}
	return nil
}

func (s *FilesystemStore) List(ctx context.Context, category string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, category))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "assetstore: list category")
	}
	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		refs = append(refs, path.Join(category, e.Name()))
	}
	return refs, nil
}

func (s *FilesystemStore) Close() error { return nil }

func (s *FilesystemStore) refPath(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}
