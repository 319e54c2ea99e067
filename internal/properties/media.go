package properties

import (
	"context"
	"errors"
	"mime"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/storage"
)

const maxMediaPerProperty = 40

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"video/mp4":  {},
	"video/webm": {},
}

// normalizeMediaType strips parameters and rejects unsupported types.
func normalizeMediaType(raw string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid content type").
			WithDetails(map[string]any{"field": "content_type"})
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedMediaTypes[mediaType]; !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "content type %s is not allowed; use images or videos", mediaType).
			WithDetails(map[string]any{"field": "content_type"})
	}
	return mediaType, nil
}

func (s *service) requireStore() error {
	if s.store == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "object storage is not configured")
	}
	return nil
}

func (s *service) editable(ctx context.Context, actor Actor, id uuid.UUID) (*models.Property, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, s.repo, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateUploadURL issues a presigned PUT for a new media object.
func (s *service) CreateUploadURL(ctx context.Context, actor Actor, id uuid.UUID, in UploadURLInput) (*UploadURL, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if _, err := normalizeMediaType(in.ContentType); err != nil {
		return nil, err
	}
	p, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	key := storage.MediaKey(p.ID, in.Filename)
	url, err := s.store.PresignedPutURL(ctx, key, s.expiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign upload")
	}
	return &UploadURL{ObjectKey: key, URL: url, ExpiresAt: s.now().Add(s.expiry)}, nil
}

// AttachMedia records an uploaded object at the end of the gallery.
func (s *service) AttachMedia(ctx context.Context, actor Actor, id uuid.UUID, in AttachMediaInput) (*MediaDTO, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	contentType, err := normalizeMediaType(in.ContentType)
	if err != nil {
		return nil, err
	}
	p, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !storage.BelongsToProperty(in.ObjectKey, p.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object key does not belong to this property").
			WithDetails(map[string]any{"field": "object_key"})
	}
	if _, err := s.store.Stat(ctx, in.ObjectKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "object has not been uploaded").
				WithDetails(map[string]any{"field": "object_key"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stat media object")
	}

	existing, err := s.repo.ListMedia(ctx, p.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	if len(existing) >= maxMediaPerProperty {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "a property holds at most %d media items", maxMediaPerProperty)
	}
	for _, m := range existing {
		if m.ObjectKey == in.ObjectKey {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "media already attached")
		}
	}

	m := &models.PropertyMedia{PropertyID: p.ID, ObjectKey: in.ObjectKey, ContentType: contentType}
	if err := s.repo.CreateMedia(ctx, m); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach media")
	}
	dto := s.mediaDTO(ctx, *m)
	return &dto, nil
}

func (s *service) ListMedia(ctx context.Context, actor Actor, id uuid.UUID) ([]MediaDTO, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, p); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMedia(ctx, p.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	out := make([]MediaDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, s.mediaDTO(ctx, m))
	}
	return out, nil
}

func (s *service) ReorderMedia(ctx context.Context, actor Actor, id uuid.UUID, order []uuid.UUID) ([]MediaDTO, error) {
	p, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.applyMediaOrder(ctx, s.repo.WithTx(tx), p.ID, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.ListMedia(ctx, actor, id)
}

// applyMediaOrder requires order to be a permutation of the attached media
// and reports whether anything moved.
func (s *service) applyMediaOrder(ctx context.Context, repo Repository, propertyID uuid.UUID, order []uuid.UUID) (bool, error) {
	current, err := repo.ListMedia(ctx, propertyID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	if len(order) != len(current) {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "media_order must list every attached media item exactly once").
			WithDetails(map[string]any{"field": "media_order", "expected": len(current), "got": len(order)})
	}
	known := make(map[uuid.UUID]struct{}, len(current))
	for _, m := range current {
		known[m.ID] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(order))
	for _, mid := range order {
		if _, ok := known[mid]; !ok {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "media_order contains an unknown media item").
				WithDetails(map[string]any{"field": "media_order", "media_id": mid})
		}
		if _, dup := seen[mid]; dup {
			return false, pkgerrors.New(pkgerrors.CodeValidation, "media_order repeats a media item").
				WithDetails(map[string]any{"field": "media_order", "media_id": mid})
		}
		seen[mid] = struct{}{}
	}

	moved := false
	for i, m := range current {
		if m.ID != order[i] || m.Position != i+1 {
			moved = true
			break
		}
	}
	if !moved {
		return false, nil
	}
	if err := repo.SetMediaPositions(ctx, propertyID, order); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder media")
	}
	return true, nil
}

// DeleteMedia detaches the row, then removes the object. A failed object
// delete is logged and leaves an orphan in the bucket.
func (s *service) DeleteMedia(ctx context.Context, actor Actor, id, mediaID uuid.UUID) error {
	p, err := s.editable(ctx, actor, id)
	if err != nil {
		return err
	}
	m, err := s.repo.DeleteMedia(ctx, p.ID, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete media")
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, m.ObjectKey); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "object_key", m.ObjectKey), "delete media object", err)
		}
	}
	return nil
}

func (s *service) mediaDTO(ctx context.Context, m models.PropertyMedia) MediaDTO {
	dto := MediaDTO{
		ID:          m.ID,
		ObjectKey:   m.ObjectKey,
		ContentType: m.ContentType,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
	}
	if s.store != nil {
		url, err := s.store.PresignedGetURL(ctx, m.ObjectKey, "", s.expiry)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_key", m.ObjectKey), "presign media download failed")
		} else {
			dto.URL = url
		}
	}
	return dto
}
