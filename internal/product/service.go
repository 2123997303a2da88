package product

import (
	"context"
	"path"
	"strings"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/storekit/storekit/internal/assetstore"
	"github.com/storekit/storekit/internal/domain"
	"github.com/storekit/storekit/pkg/common"
)

// Lifecycle event topics published on the application bus.
const (
	TopicCreated      = "product.created"
	TopicUpdated      = "product.updated"
	TopicAvailability = "product.availability"
	TopicDeleted      = "product.deleted"
)

// Download is a resolved product file ready to stream to the admin.
type Download struct {
	Filename string
	Size     int64
	Data     []byte
}

// Service orchestrates validation, asset persistence and record
// mutation for the product lifecycle. Invariants enforced here and
// nowhere below: a product always owns exactly one file and one image
// reference, availability starts false, and a product with orders
// cannot be deleted.
type Service struct {
	repo         Repository
	assets       assetstore.Store
	bus          EventBus.Bus
	maxImageSize int64
}

func NewService(repo Repository, assets assetstore.Store, bus EventBus.Bus, maxImageSize int64) *Service {
	return &Service{
		repo:         repo,
		assets:       assets,
		bus:          bus,
		maxImageSize: maxImageSize,
	}
}

// Create validates the submission, stores both assets, then persists
// the record with availability off. A record failure after the assets
// were written surfaces as PartialCreateError so the orphan sweep or
// the caller can reclaim the storage.
func (s *Service) Create(ctx context.Context, in FormInput) (*domain.Product, FieldErrors, error) {
	v, fieldErrs := ValidateCreate(in, s.maxImageSize)
	if fieldErrs != nil {
		return nil, fieldErrs, nil
	}

	fileRef, err := s.assets.Put(ctx, assetstore.CategoryFiles, v.File.Name, v.File.Data)
	if err != nil {
		return nil, nil, assetIOError(err, "store product file")
	}
	imageRef, err := s.assets.Put(ctx, assetstore.CategoryImages, v.Image.Name, v.Image.Data)
	if err != nil {
		s.removeQuietly(ctx, fileRef)
		return nil, nil, assetIOError(err, "store product image")
	}

	p := &domain.Product{
		ID:                     common.UUIDint64(),
		Name:                   v.Name,
		Description:            v.Description,
		PriceInCents:           v.PriceInCents,
		FilePath:               fileRef,
		ImagePath:              imageRef,
		IsAvailableForPurchase: false,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		partial := &PartialCreateError{FileRef: fileRef, ImageRef: imageRef, Err: err}
		zap.L().Error("product create left orphaned assets",
			zap.String("file", fileRef),
			zap.String("image", imageRef),
			zap.Error(err))
		s.removeQuietly(ctx, fileRef)
		s.removeQuietly(ctx, imageRef)
		return nil, nil, partial
	}

	s.publish(TopicCreated, p.ID)
	return p, nil, nil
}

// Update applies an edit submission. Replacement assets are written
// first and the old references removed only after the record commit,
// trading transient storage duplication for never pointing a committed
// record at a missing blob.
func (s *Service) Update(ctx context.Context, id int64, in FormInput) (*domain.Product, FieldErrors, error) {
	v, fieldErrs := ValidateEdit(in, s.maxImageSize)
	if fieldErrs != nil {
		return nil, fieldErrs, nil
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var oldRefs, newRefs []string
	if v.File != nil {
		ref, err := s.assets.Put(ctx, assetstore.CategoryFiles, v.File.Name, v.File.Data)
		if err != nil {
			return nil, nil, assetIOError(err, "store replacement file")
		}
		oldRefs = append(oldRefs, p.FilePath)
		newRefs = append(newRefs, ref)
		p.FilePath = ref
	}
	if v.Image != nil {
		ref, err := s.assets.Put(ctx, assetstore.CategoryImages, v.Image.Name, v.Image.Data)
		if err != nil {
			s.removeRefs(ctx, newRefs)
			return nil, nil, assetIOError(err, "store replacement image")
		}
		oldRefs = append(oldRefs, p.ImagePath)
		newRefs = append(newRefs, ref)
		p.ImagePath = ref
	}

	p.Name = v.Name
	p.Description = v.Description
	p.PriceInCents = v.PriceInCents

	if err := s.repo.Update(ctx, p); err != nil {
		// The record still points at the old assets; drop the new ones.
		s.removeRefs(ctx, newRefs)
		return nil, nil, errors.Wrap(err, "update product record")
	}

	// Committed: the replaced assets are now unowned.
	s.removeRefs(ctx, oldRefs)

	s.publish(TopicUpdated, p.ID)
	return p, nil, nil
}

// SetAvailability toggles the purchasable flag. Idempotent.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateAvailability(ctx, id, available); err != nil {
		return err
	}
	s.publish(TopicAvailability, id)
	return nil
}

// Delete removes the record and then best-effort deletes both owned
// assets. Asset removal failures are logged, not returned: the record
// is already gone and the workflow must not appear failed to the
// caller. Blocked with ErrConflict while orders reference the product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.OrderCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}

	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.removeRefs(ctx, []string{p.FilePath, p.ImagePath})

	s.publish(TopicDeleted, id)
	return nil
}

// Download resolves the product file for streaming, named
// "<product name>.<stored extension>".
func (s *Service) Download(ctx context.Context, id int64) (*Download, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, size, err := s.assets.Read(ctx, p.FilePath)
	if err != nil {
		return nil, assetIOError(err, "read product file")
	}
	filename := p.Name
	if ext := strings.TrimPrefix(path.Ext(p.FilePath), "."); ext != "" {
		filename += "." + ext
	}
	return &Download{Filename: filename, Size: size, Data: data}, nil
}

func (s *Service) removeRefs(ctx context.Context, refs []string) {
	for _, ref := range refs {
		s.removeQuietly(ctx, ref)
	}
}

func (s *Service) removeQuietly(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	err := s.assets.Remove(ctx, ref)
	if err == nil || errors.Is(err, assetstore.ErrNotFound) {
		return
	}
	zap.L().Warn("asset cleanup failed", zap.String("ref", ref), zap.Error(err))
}

func (s *Service) publish(topic string, id int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, id)
}
