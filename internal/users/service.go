package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/security"
)

const tempPasswordLength = 16

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionRevoker drops every refresh session of a user so a role change or
// deactivation takes effect on the next refresh.
type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// Service is the admin user-management surface.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*CreatedUser, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, f ListFilter) (*pagination.Page[UserDTO], error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*UserDTO, error)
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*UserDTO, error)
}

type service struct {
	repo        *Repository
	tx          txRunner
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
}

func NewService(repo *Repository, tx txRunner, sessions sessionRevoker, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	return &service{repo: repo, tx: tx, sessions: sessions, passwordCfg: passwordCfg}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*CreatedUser, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fieldError("email", "invalid email")
	}
	first := strings.TrimSpace(in.FirstName)
	if first == "" {
		return nil, fieldError("first_name", "first_name is required")
	}
	if !in.Role.IsValid() {
		return nil, fieldError("role", "invalid role")
	}

	password, temp := in.Password, ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password, temp = generated, generated
	} else if err := security.CheckPasswordStrength(password); err != nil {
		return nil, fieldError("password", err.Error())
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:            email,
		PasswordHash:     hash,
		FirstName:        first,
		LastName:         strings.TrimSpace(in.LastName),
		Phone:            trimmed(in.Phone),
		Role:             in.Role,
		ExternalAgencyID: in.ExternalAgencyID,
		IsActive:         true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.checkAgency(ctx, repo, user.Role, user.ExternalAgencyID); err != nil {
			return err
		}
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered").
				WithDetails(map[string]any{"field": "email"})
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if err := repo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreatedUser{User: FromModel(user), TempPassword: temp}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	u, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(u)
	if u.Role == enums.UserRoleAdmin {
		dto.Permissions = enums.PermissionCatalog()
		return dto, nil
	}
	perms, err := s.repo.ListPermissions(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list permissions")
	}
	dto.Permissions = perms
	return dto, nil
}

func (s *service) List(ctx context.Context, f ListFilter) (*pagination.Page[UserDTO], error) {
	if f.Role != nil && !f.Role.IsValid() {
		return nil, fieldError("role", "invalid role")
	}
	limit := pagination.NormalizeLimit(f.Limit)
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, f, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	page := pagination.CursorPage(items, limit, func(u UserDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return &page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*UserDTO, error) {
	var (
		updated     *models.User
		authChanged bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		u, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		cols := map[string]any{}
		if in.FirstName.Set {
			first := strings.TrimSpace(in.FirstName.Value)
			if in.FirstName.Null || first == "" {
				return fieldError("first_name", "first_name is required")
			}
			cols["first_name"] = first
		}
		if in.LastName.Set {
			cols["last_name"] = strings.TrimSpace(in.LastName.Value)
		}
		if in.Phone.Set {
			cols["phone"] = trimmed(in.Phone.Ptr())
		}

		role, agency := u.Role, u.ExternalAgencyID
		if in.Role.Set {
			if in.Role.Null || !in.Role.Value.IsValid() {
				return fieldError("role", "invalid role")
			}
			role = in.Role.Value
			if !role.RequiresAgency() && !in.ExternalAgencyID.Set {
				agency = nil
			}
		}
		if in.ExternalAgencyID.Set {
			agency = in.ExternalAgencyID.Ptr()
		}
		if role != u.Role || !sameID(agency, u.ExternalAgencyID) {
			if err := s.checkAgency(ctx, repo, role, agency); err != nil {
				return err
			}
			cols["role"] = role
			cols["external_agency_id"] = agency
			authChanged = true
		}

		if len(cols) > 0 {
			if err := repo.UpdateColumns(ctx, id, cols); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
			}
		}
		updated, err = s.load(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if authChanged {
		if err := s.sessions.RevokeUser(ctx, id.String()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}
	return FromModel(updated), nil
}

// SetActive deactivates or reactivates an account. Deactivation revokes every
// session immediately.
func (s *service) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*UserDTO, error) {
	if !active && actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot deactivate your own account")
	}
	if err := s.repo.UpdateColumns(ctx, id, map[string]any{"is_active": active}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	if !active {
		if err := s.sessions.RevokeUser(ctx, id.String()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}
	u, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(u), nil
}

func (s *service) load(ctx context.Context, repo *Repository, id uuid.UUID) (*models.User, error) {
	u, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return u, nil
}

// checkAgency enforces that external agents, and only they, belong to an
// active agency.
func (s *service) checkAgency(ctx context.Context, repo *Repository, role enums.UserRole, agencyID *uuid.UUID) error {
	if !role.RequiresAgency() {
		if agencyID != nil {
			return fieldError("external_agency_id", fmt.Sprintf("role %s cannot belong to an external agency", role))
		}
		return nil
	}
	if agencyID == nil {
		return fieldError("external_agency_id", "external agents require an agency")
	}
	agency, err := repo.FindAgency(ctx, *agencyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fieldError("external_agency_id", "agency not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load agency")
	}
	if !agency.IsActive {
		return fieldError("external_agency_id", "agency is deactivated")
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
