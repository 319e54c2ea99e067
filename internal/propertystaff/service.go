package propertystaff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

const uniqueConstraint = "property_staff_unique_key"

// compatibleRoles lists the account roles allowed to hold each staff role.
var compatibleRoles = map[enums.StaffRole][]enums.UserRole{
	enums.StaffRoleSeller:       {enums.UserRoleSeller, enums.UserRoleAdmin},
	enums.StaffRoleConcierge:    {enums.UserRoleConcierge},
	enums.StaffRoleManager:      {enums.UserRoleSeller, enums.UserRoleAdmin},
	enums.StaffRolePhotographer: {enums.UserRoleSeller, enums.UserRoleConcierge, enums.UserRoleAdmin},
}

type Service interface {
	AssignStaff(ctx context.Context, actor Actor, propertyID uuid.UUID, in AssignInput) (*StaffMember, error)
	RemoveStaff(ctx context.Context, actor Actor, propertyID, userID uuid.UUID, role *enums.StaffRole) error
	ListStaff(ctx context.Context, actor Actor, propertyID uuid.UUID) ([]StaffMember, error)
	ListPropertiesForStaff(ctx context.Context, actor Actor, userID uuid.UUID) ([]Assignment, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("property staff repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AssignStaff(ctx context.Context, actor Actor, propertyID uuid.UUID, in AssignInput) (*StaffMember, error) {
	if !in.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid staff role").
			WithDetails(map[string]any{"field": "role"})
	}
	p, err := s.manageable(ctx, actor, propertyID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user not found").
				WithDetails(map[string]any{"field": "user_id"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is deactivated").
			WithDetails(map[string]any{"field": "user_id"})
	}
	if !compatible(in.Role, user.Role) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "a %s cannot be staffed as %s", user.Role, in.Role).
			WithDetails(map[string]any{"field": "role", "user_role": user.Role, "allowed": compatibleRoles[in.Role]})
	}

	row := &models.PropertyStaff{PropertyID: p.ID, UserID: user.ID, Role: in.Role}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, uniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already holds this role on the property")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign staff")
	}
	return &StaffMember{
		ID:         row.ID,
		PropertyID: row.PropertyID,
		UserID:     row.UserID,
		Role:       row.Role,
		FullName:   user.FullName(),
		Email:      user.Email,
		UserRole:   user.Role,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// RemoveStaff deletes one role, or every role of the user when role is nil.
func (s *service) RemoveStaff(ctx context.Context, actor Actor, propertyID, userID uuid.UUID, role *enums.StaffRole) error {
	if role != nil && !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid staff role")
	}
	if _, err := s.manageable(ctx, actor, propertyID); err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, propertyID, userID, role)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove staff")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staff assignment not found")
	}
	return nil
}

func (s *service) ListStaff(ctx context.Context, actor Actor, propertyID uuid.UUID) ([]StaffMember, error) {
	p, err := s.loadProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListByProperty(ctx, p.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff")
	}
	if !canManage(actor, p) && !contains(members, actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this property's staff")
	}
	return members, nil
}

func (s *service) ListPropertiesForStaff(ctx context.Context, actor Actor, userID uuid.UUID) ([]Assignment, error) {
	if actor.Role != enums.UserRoleAdmin && actor.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view other users' assignments")
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	if out == nil {
		out = []Assignment{}
	}
	return out, nil
}

func (s *service) loadProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.repo.FindProperty(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	return p, nil
}

func (s *service) manageable(ctx context.Context, actor Actor, id uuid.UUID) (*models.Property, error) {
	p, err := s.loadProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner, the manager or an admin can change staff")
	}
	return p, nil
}

func canManage(actor Actor, p *models.Property) bool {
	if actor.Role == enums.UserRoleAdmin || p.OwnerID == actor.UserID {
		return true
	}
	return p.ManagedByID != nil && *p.ManagedByID == actor.UserID
}

func compatible(role enums.StaffRole, userRole enums.UserRole) bool {
	for _, r := range compatibleRoles[role] {
		if r == userRole {
			return true
		}
	}
	return false
}

func contains(members []StaffMember, userID uuid.UUID) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
