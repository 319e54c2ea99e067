package auth

import (
	"context"

	"github.com/angelmondragon/propertyhub-backend/internal/users"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

// AdminRegisterRequest contains the credentials for the first admin account.
type AdminRegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// AdminRegisterService bootstraps the first admin of a fresh installation.
type AdminRegisterService interface {
	Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

// AdminRegisterServiceParams names the dependencies for the admin register flow.
type AdminRegisterServiceParams struct {
	DB             txRunner
	Users          *users.Repository
	PasswordConfig config.PasswordConfig
}

type adminRegisterService struct {
	db          txRunner
	users       *users.Repository
	passwordCfg config.PasswordConfig
}

func NewAdminRegisterService(params AdminRegisterServiceParams) (AdminRegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	return &adminRegisterService{db: params.DB, users: params.Users, passwordCfg: params.PasswordConfig}, nil
}

// Register succeeds only while no admin exists; later admins are created
// through user management.
func (s *adminRegisterService) Register(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	return createAccount(ctx, s.db, s.users, s.passwordCfg, accountInput{
		email:     req.Email,
		password:  req.Password,
		firstName: req.FirstName,
		lastName:  req.LastName,
		role:      enums.UserRoleAdmin,
	}, func(repo *users.Repository) error {
		n, err := repo.CountByRole(ctx, enums.UserRoleAdmin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
		}
		if n > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "an admin account already exists")
		}
		return nil
	})
}
