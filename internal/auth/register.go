package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/internal/users"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/security"
)

// RegisterRequest is the self sign-up payload of prospective buyers and
// renters. Every other role is provisioned by an admin.
type RegisterRequest struct {
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required"`
	Phone       *string `json:"phone,omitempty"`
	AcceptTerms bool    `json:"accept_terms"`
}

// RegisterService handles public client registration.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	Users          *users.Repository
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          txRunner
	users       *users.Repository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	return &registerService{db: params.DB, users: params.Users, passwordCfg: params.PasswordConfig}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	if !req.AcceptTerms {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "accept_terms must be true")
	}
	return createAccount(ctx, s.db, s.users, s.passwordCfg, accountInput{
		email:     req.Email,
		password:  req.Password,
		firstName: req.FirstName,
		lastName:  req.LastName,
		phone:     req.Phone,
		role:      enums.UserRoleClient,
	}, nil)
}

type accountInput struct {
	email     string
	password  string
	firstName string
	lastName  string
	phone     *string
	role      enums.UserRole
}

// createAccount hashes the password and inserts the user inside a
// transaction. guard runs first inside the same transaction.
func createAccount(ctx context.Context, db txRunner, repo *users.Repository, cfg config.PasswordConfig, in accountInput, guard func(*users.Repository) error) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(in.email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	first := strings.TrimSpace(in.firstName)
	if first == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	if err := security.CheckPasswordStrength(in.password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
			WithDetails(map[string]any{"field": "password"})
	}
	passwordHash, err := security.HashPassword(in.password, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var phone *string
	if in.phone != nil {
		if p := strings.TrimSpace(*in.phone); p != "" {
			phone = &p
		}
	}
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    first,
		LastName:     strings.TrimSpace(in.lastName),
		Phone:        phone,
		Role:         in.role,
		IsActive:     true,
	}
	err = db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := repo.WithTx(tx)
		if guard != nil {
			if err := guard(userRepo); err != nil {
				return err
			}
		}
		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}
