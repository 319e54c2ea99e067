// Package permissions manages granular grants from the fixed permission
// catalog. Admins implicitly hold every permission and never carry rows.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

type GrantDTO struct {
	Name      enums.Permission `json:"name"`
	GrantedBy *uuid.UUID       `json:"granted_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// UserPermissions lists what a user holds. Implicit is true for admins.
type UserPermissions struct {
	UserID   uuid.UUID  `json:"user_id"`
	Implicit bool       `json:"implicit"`
	Grants   []GrantDTO `json:"grants"`
}

type Service interface {
	Catalog() []enums.Permission
	List(ctx context.Context, userID uuid.UUID) (*UserPermissions, error)
	Grant(ctx context.Context, actorID, userID uuid.UUID, name string) (*UserPermissions, error)
	Revoke(ctx context.Context, userID uuid.UUID, name string) (*UserPermissions, error)
	HasPermission(ctx context.Context, userID uuid.UUID, role enums.UserRole, perm enums.Permission) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("permissions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Catalog() []enums.Permission {
	return enums.PermissionCatalog()
}

func (s *service) List(ctx context.Context, userID uuid.UUID) (*UserPermissions, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, u)
}

// Grant is idempotent: granting a held permission returns the current set.
func (s *service) Grant(ctx context.Context, actorID, userID uuid.UUID, name string) (*UserPermissions, error) {
	perm, err := parse(name)
	if err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role == enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins implicitly hold every permission")
	}
	if !u.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot grant permissions to a deactivated user")
	}
	grantedBy := actorID
	if _, err := s.repo.Grant(ctx, &models.Permission{UserID: u.ID, Name: perm, GrantedBy: &grantedBy}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant permission")
	}
	return s.snapshot(ctx, u)
}

func (s *service) Revoke(ctx context.Context, userID uuid.UUID, name string) (*UserPermissions, error) {
	perm, err := parse(name)
	if err != nil {
		return nil, err
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Revoke(ctx, u.ID, perm)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke permission")
	}
	if !removed {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "user does not hold %s", perm)
	}
	return s.snapshot(ctx, u)
}

// HasPermission is the check behind RequirePermission.
func (s *service) HasPermission(ctx context.Context, userID uuid.UUID, role enums.UserRole, perm enums.Permission) (bool, error) {
	if role == enums.UserRoleAdmin {
		return true, nil
	}
	ok, err := s.repo.Has(ctx, userID, perm)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check permission")
	}
	return ok, nil
}

func (s *service) snapshot(ctx context.Context, u *models.User) (*UserPermissions, error) {
	out := &UserPermissions{UserID: u.ID, Grants: []GrantDTO{}}
	if u.Role == enums.UserRoleAdmin {
		out.Implicit = true
		for _, p := range enums.PermissionCatalog() {
			out.Grants = append(out.Grants, GrantDTO{Name: p})
		}
		return out, nil
	}
	rows, err := s.repo.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list permissions")
	}
	for _, r := range rows {
		out.Grants = append(out.Grants, GrantDTO{Name: r.Name, GrantedBy: r.GrantedBy, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (s *service) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return u, nil
}

func parse(name string) (enums.Permission, error) {
	perm, err := enums.ParsePermission(name)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown permission").
			WithDetails(map[string]any{"field": "name", "catalog": enums.PermissionCatalog()})
	}
	return perm, nil
}
