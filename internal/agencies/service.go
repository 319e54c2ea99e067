package agencies

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/slug"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// Service manages external agencies. Writes are admin-only and enforced by
// the admin router; reads are scoped here.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*AgencyDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*AgencyDTO, error)
	List(ctx context.Context, f ListFilter) (*pagination.Page[AgencyDTO], error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*AgencyDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*AgencyDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Staff(ctx context.Context, actor Actor, id uuid.UUID) ([]StaffMember, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	sessions sessionRevoker
	logg     *logger.Logger
}

func NewService(repo Repository, tx txRunner, sessions sessionRevoker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("agencies repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, sessions: sessions, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*AgencyDTO, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, fieldError("name", "name is required")
	}
	email, err := contactEmail(in.ContactEmail)
	if err != nil {
		return nil, err
	}
	a := &models.ExternalAgency{Name: name, ContactEmail: email, IsActive: true}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		base := slug.Make(name)
		taken, err := repo.SlugsWithPrefix(ctx, base)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check agency slug")
		}
		a.Slug = slug.Unique(base, taken)
		if err := repo.Create(ctx, a); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create agency")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(a)
	return &dto, nil
}

// Get lets admins read any agency and external agents only their own.
func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*AgencyDTO, error) {
	if err := visible(actor, id); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	staff, err := s.repo.ListStaff(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list agency staff")
	}
	dto := FromModel(a)
	n := int64(len(staff))
	dto.StaffCount = &n
	return &dto, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (*pagination.Page[AgencyDTO], error) {
	limit := pagination.NormalizeLimit(f.Limit)
	if f.Offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	rows, err := s.repo.List(ctx, f, pagination.LimitWithBuffer(limit), f.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list agencies")
	}
	items := make([]AgencyDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.OffsetPage(items, limit, f.Offset)
	return &page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*AgencyDTO, error) {
	cols := map[string]any{}
	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Null || len(name) < 2 {
			return nil, fieldError("name", "name is required")
		}
		cols["name"] = name
	}
	if in.ContactEmail.Set {
		email, err := contactEmail(in.ContactEmail.Ptr())
		if err != nil {
			return nil, err
		}
		cols["contact_email"] = email
	}
	if len(cols) > 0 {
		if err := s.repo.UpdateColumns(ctx, id, cols); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update agency")
		}
	}
	a, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(a)
	return &dto, nil
}

// SetActive toggles the agency. Deactivation also drops every session of
// its staff; login and refresh reject them afterwards.
func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*AgencyDTO, error) {
	if err := s.repo.UpdateColumns(ctx, id, map[string]any{"is_active": active}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update agency")
	}
	if !active {
		staff, err := s.repo.ListStaff(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list agency staff")
		}
		for _, u := range staff {
			if err := s.sessions.RevokeUser(ctx, u.ID.String()); err != nil {
				s.logg.Error(s.logg.WithField(ctx, "user_id", u.ID.String()), "revoke agency staff session", err)
			}
		}
	}
	a, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(a)
	return &dto, nil
}

// Delete only removes agencies nothing points at; deactivate the rest.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.load(ctx, repo, id); err != nil {
			return err
		}
		refs, err := repo.CountReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count agency references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "agency has staff or history; deactivate it instead").
				WithDetails(map[string]any{"references": refs})
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete agency")
		}
		return nil
	})
}

func (s *service) Staff(ctx context.Context, actor Actor, id uuid.UUID) ([]StaffMember, error) {
	if err := visible(actor, id); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.repo, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListStaff(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list agency staff")
	}
	out := make([]StaffMember, 0, len(rows))
	for _, u := range rows {
		out = append(out, StaffMember{
			ID:        u.ID,
			Email:     u.Email,
			FullName:  u.FullName(),
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.ExternalAgency, error) {
	a, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agency")
	}
	return a, nil
}

// visible hides other agencies behind NOT_FOUND so ids cannot be probed.
func visible(actor Actor, id uuid.UUID) error {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleExternalAgent:
		if actor.AgencyID != nil && *actor.AgencyID == id {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "agency not found")
}

func contactEmail(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	email := strings.ToLower(strings.TrimSpace(*raw))
	if email == "" {
		return nil, nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fieldError("contact_email", "invalid email")
	}
	return &email, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}
