package serviceproviders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the directory of third-party providers (cleaning, legal,
// moving, ...) offered to owners and tenants.
type Service interface {
	CreateProvider(ctx context.Context, in ProviderInput) (*ProviderDTO, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*ProviderDTO, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, in ProviderPatch) (*ProviderDTO, error)
	DeleteProvider(ctx context.Context, id uuid.UUID) error
	ListProviders(ctx context.Context, f ListFilter) (*pagination.Page[ProviderDTO], error)

	AddService(ctx context.Context, providerID uuid.UUID, in ServiceInput) (*ServiceDTO, error)
	UpdateService(ctx context.Context, providerID, id uuid.UUID, in ServiceInput) (*ServiceDTO, error)
	RemoveService(ctx context.Context, providerID, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service providers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateProvider(ctx context.Context, in ProviderInput) (*ProviderDTO, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, fieldError("name", "name is required")
	}
	if !in.Category.IsValid() {
		return nil, fieldError("category", "invalid category")
	}
	p := &models.ServiceProvider{
		Name:         name,
		Category:     in.Category,
		ContactName:  trimmed(in.ContactName),
		ContactEmail: lowerTrimmed(in.ContactEmail),
		ContactPhone: trimmed(in.ContactPhone),
		IsActive:     true,
	}
	if err := s.repo.CreateProvider(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider")
	}
	dto := providerFromModel(p)
	dto.Services = []ServiceDTO{}
	return &dto, nil
}

func (s *service) GetProvider(ctx context.Context, id uuid.UUID) (*ProviderDTO, error) {
	p, err := s.loadProvider(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := providerFromModel(p)
	if err := s.attachServices(ctx, []*ProviderDTO{&dto}); err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) UpdateProvider(ctx context.Context, id uuid.UUID, in ProviderPatch) (*ProviderDTO, error) {
	cols := map[string]any{}
	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Null || len(name) < 2 {
			return nil, fieldError("name", "name is required")
		}
		cols["name"] = name
	}
	if in.Category.Set {
		if in.Category.Null || !in.Category.Value.IsValid() {
			return nil, fieldError("category", "invalid category")
		}
		cols["category"] = in.Category.Value
	}
	if in.IsActive.Set {
		if in.IsActive.Null {
			return nil, fieldError("is_active", "is_active cannot be null")
		}
		cols["is_active"] = in.IsActive.Value
	}
	setOptional(cols, "contact_name", in.ContactName, strings.TrimSpace)
	setOptional(cols, "contact_email", in.ContactEmail, func(v string) string { return strings.ToLower(strings.TrimSpace(v)) })
	setOptional(cols, "contact_phone", in.ContactPhone, strings.TrimSpace)

	if _, err := s.loadProvider(ctx, s.repo, id); err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		if err := s.repo.UpdateProvider(ctx, id, cols); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update provider")
		}
	}
	return s.GetProvider(ctx, id)
}

// DeleteProvider removes a provider together with its services.
func (s *service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteServices(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete provider services")
		}
		n, err := repo.DeleteProvider(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete provider")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return nil
	})
}

func (s *service) ListProviders(ctx context.Context, f ListFilter) (*pagination.Page[ProviderDTO], error) {
	if f.Category != nil && !f.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category filter")
	}
	if f.Offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	rows, err := s.repo.ListProviders(ctx, f, pagination.LimitWithBuffer(f.Limit), f.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list providers")
	}
	items := make([]ProviderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, providerFromModel(&rows[i]))
	}
	page := pagination.OffsetPage(items, f.Limit, f.Offset)
	refs := make([]*ProviderDTO, 0, len(page.Items))
	for i := range page.Items {
		refs = append(refs, &page.Items[i])
	}
	if err := s.attachServices(ctx, refs); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *service) attachServices(ctx context.Context, providers []*ProviderDTO) error {
	ids := make([]uuid.UUID, 0, len(providers))
	byID := make(map[uuid.UUID]*ProviderDTO, len(providers))
	for _, p := range providers {
		p.Services = []ServiceDTO{}
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}
	rows, err := s.repo.ListServices(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	for i := range rows {
		if p, ok := byID[rows[i].ProviderID]; ok {
			p.Services = append(p.Services, serviceFromModel(&rows[i]))
		}
	}
	return nil
}

func (s *service) AddService(ctx context.Context, providerID uuid.UUID, in ServiceInput) (*ServiceDTO, error) {
	cols, err := serviceColumns(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadProvider(ctx, s.repo, providerID); err != nil {
		return nil, err
	}
	svc := &models.ProviderService{
		ProviderID:  providerID,
		Name:        cols["name"].(string),
		Description: cols["description"].(*string),
		Price:       cols["price"].(*decimal.Decimal),
		Unit:        cols["unit"].(*string),
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service")
	}
	dto := serviceFromModel(svc)
	return &dto, nil
}

// UpdateService replaces the service's fields.
func (s *service) UpdateService(ctx context.Context, providerID, id uuid.UUID, in ServiceInput) (*ServiceDTO, error) {
	cols, err := serviceColumns(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadService(ctx, providerID, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateService(ctx, id, cols); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service")
	}
	fresh, err := s.loadService(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	dto := serviceFromModel(fresh)
	return &dto, nil
}

func (s *service) RemoveService(ctx context.Context, providerID, id uuid.UUID) error {
	n, err := s.repo.DeleteService(ctx, providerID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete service")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}
	return nil
}

func serviceColumns(in ServiceInput) (map[string]any, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, fieldError("name", "name is required")
	}
	var price *decimal.Decimal
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fieldError("price", "price must not be negative")
		}
		p := money.Round2(*in.Price)
		price = &p
	}
	return map[string]any{
		"name":        name,
		"description": trimmed(in.Description),
		"price":       price,
		"unit":        trimmed(in.Unit),
	}, nil
}

func (s *service) loadProvider(ctx context.Context, repo Repository, id uuid.UUID) (*models.ServiceProvider, error) {
	p, err := repo.FindProvider(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load provider")
	}
	return p, nil
}

func (s *service) loadService(ctx context.Context, providerID, id uuid.UUID) (*models.ProviderService, error) {
	svc, err := s.repo.FindService(ctx, providerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}

// setOptional maps a PATCH field onto a nullable column. Blank strings clear
// the column like explicit nulls do.
func setOptional(cols map[string]any, column string, field types.Optional[string], norm func(string) string) {
	if !field.Set {
		return
	}
	if field.Null {
		cols[column] = nil
		return
	}
	v := norm(field.Value)
	if v == "" {
		cols[column] = nil
		return
	}
	cols[column] = v
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

func lowerTrimmed(s *string) *string {
	v := trimmed(s)
	if v == nil {
		return nil
	}
	lower := strings.ToLower(*v)
	return &lower
}
