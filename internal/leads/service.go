package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service manages the sale and rental lead pipelines.
type Service interface {
	Register(ctx context.Context, actor Actor, in RegisterInput) (*LeadDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*LeadDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[LeadDTO], error)
	Advance(ctx context.Context, actor Actor, id uuid.UUID, in AdvanceInput) (*LeadDTO, error)
	Assign(ctx context.Context, actor Actor, id, assigneeID uuid.UUID) (*LeadDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("leads repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Register(ctx context.Context, actor Actor, in RegisterInput) (*LeadDTO, error) {
	if !in.OperationType.IsValid() {
		return nil, fieldError("operation_type", "operation_type must be sale or rent")
	}
	name := strings.TrimSpace(in.FullName)
	if len(name) < 2 {
		return nil, fieldError("full_name", "full_name is required")
	}
	email, phone := "", ""
	if in.Email != nil {
		email = NormalizeEmail(*in.Email)
		if email == "" && strings.TrimSpace(*in.Email) != "" {
			return nil, fieldError("email", "invalid email")
		}
	}
	if in.Phone != nil {
		phone = NormalizePhone(*in.Phone)
		if phone == "" && strings.TrimSpace(*in.Phone) != "" {
			return nil, fieldError("phone", "invalid phone number")
		}
	}
	if email == "" && phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an email or a phone number is required").
			WithDetails(map[string]any{"fields": []string{"email", "phone"}})
	}
	if in.BudgetMin != nil && in.BudgetMax != nil && in.BudgetMin.GreaterThan(*in.BudgetMax) {
		return nil, fieldError("budget_min", "budget_min must not exceed budget_max")
	}

	lead := &models.Lead{
		OperationType:  in.OperationType,
		Status:         enums.LeadNew,
		FullName:       name,
		Email:          optional(email),
		Phone:          trimmed(in.Phone),
		PropertyID:     in.PropertyID,
		Source:         trimmed(in.Source),
		RegisteredByID: actor.UserID,
		BudgetMin:      in.BudgetMin,
		BudgetMax:      in.BudgetMax,
		Notes:          trimmed(in.Notes),
	}
	if email != "" {
		lead.NormalizedEmail = &email
	}
	if phone != "" {
		lead.NormalizedPhone = &phone
	}

	switch actor.Role {
	case enums.UserRoleExternalAgent:
		if actor.AgencyID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "external agent has no agency")
		}
		if in.AssignedToID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "external agents cannot assign leads")
		}
		lead.ExternalAgencyID = actor.AgencyID
	case enums.UserRoleSeller:
		lead.AssignedToID = &actor.UserID
		if in.AssignedToID != nil && *in.AssignedToID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers register leads for themselves")
		}
	case enums.UserRoleAdmin:
		lead.AssignedToID = in.AssignedToID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot register leads")
	}

	if lead.PropertyID != nil {
		ok, err := s.repo.PropertyExists(ctx, *lead.PropertyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property")
		}
		if !ok {
			return nil, fieldError("property_id", "property not found")
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if lead.AssignedToID != nil && *lead.AssignedToID != actor.UserID {
			if err := s.checkAssignee(ctx, repo, *lead.AssignedToID); err != nil {
				return err
			}
		}
		if err := repo.LockContact(ctx, email, phone); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock lead contact")
		}
		if err := s.rejectDuplicate(ctx, repo, actor, email, phone); err != nil {
			return err
		}
		if err := repo.Create(ctx, lead); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lead")
		}
		return s.emit(ctx, tx, actor, enums.EventLeadRegistered, lead.ID, payloads.LeadRegisteredEvent{
			LeadID:           lead.ID,
			OperationType:    lead.OperationType,
			RegisteredByID:   lead.RegisteredByID,
			AssignedToID:     lead.AssignedToID,
			ExternalAgencyID: lead.ExternalAgencyID,
			ContactName:      lead.FullName,
		})
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(lead)
	return &dto, nil
}

// rejectDuplicate fails with CONFLICT when an open lead already holds the
// contact. The owning agency is always disclosed; the lead id only to
// callers who could see it.
func (s *service) rejectDuplicate(ctx context.Context, repo Repository, actor Actor, email, phone string) error {
	existing, err := repo.FindOpenByContact(ctx, email, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check duplicate lead")
	}
	dup := Duplicate{AgencyID: existing.ExternalAgencyID, AgencyName: "in-house", Since: existing.CreatedAt, MatchedOn: "phone"}
	if email != "" && existing.NormalizedEmail != nil && *existing.NormalizedEmail == email {
		dup.MatchedOn = "email"
	}
	if existing.ExternalAgencyID != nil {
		agency, err := repo.FindAgency(ctx, *existing.ExternalAgencyID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
		}
		if agency != nil {
			dup.AgencyName = agency.Name
		}
	}
	if visible(actor, existing) {
		dup.LeadID = &existing.ID
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "an open lead already exists for this contact").WithDetails(dup)
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*LeadDTO, error) {
	lead, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, lead) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	dto := FromModel(lead)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[LeadDTO], error) {
	if actor.Role == enums.UserRoleExternalAgent && actor.AgencyID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "external agent has no agency")
	}
	if f.Status != nil && !f.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if f.OperationType != nil && !f.OperationType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation type filter")
	}
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}
	items := make([]LeadDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.CursorPage(items, f.Limit, func(l LeadDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return &page, nil
}

// Advance moves a lead one stage along its pipeline, or to lost with a
// reason. Skipping stages is a STATE_CONFLICT.
func (s *service) Advance(ctx context.Context, actor Actor, id uuid.UUID, in AdvanceInput) (*LeadDTO, error) {
	if !in.To.IsValid() {
		return nil, fieldError("to", "invalid lead status")
	}
	reason := strings.TrimSpace(in.Reason)
	if in.To == enums.LeadLost && reason == "" {
		return nil, fieldError("reason", "a reason is required to mark a lead as lost")
	}

	var out LeadDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lead, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !visible(actor, lead) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		if !CanAdvance(lead.OperationType, lead.Status, in.To) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move a %s lead from %s to %s", lead.OperationType, lead.Status, in.To).
				WithDetails(map[string]any{"status": lead.Status, "next_statuses": NextStatuses(lead.OperationType, lead.Status)})
		}
		cols := map[string]any{"status": in.To}
		if in.To == enums.LeadLost {
			cols["lost_reason"] = reason
		}
		if err := repo.UpdateColumns(ctx, lead.ID, cols); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead")
		}
		if err := s.emit(ctx, tx, actor, enums.EventLeadStatusChanged, lead.ID, payloads.LeadStatusChangedEvent{
			LeadID:       lead.ID,
			AssignedToID: lead.AssignedToID,
			From:         lead.Status,
			To:           in.To,
			Reason:       reason,
		}); err != nil {
			return err
		}
		fresh, err := s.load(ctx, repo, lead.ID)
		if err != nil {
			return err
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) Assign(ctx context.Context, actor Actor, id, assigneeID uuid.UUID) (*LeadDTO, error) {
	if !actor.isAdmin() && actor.Role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to assign leads")
	}
	var out LeadDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lead, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !visible(actor, lead) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		if !lead.Status.IsOpen() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "a %s lead cannot be reassigned", lead.Status)
		}
		if err := s.checkAssignee(ctx, repo, assigneeID); err != nil {
			return err
		}
		if err := repo.UpdateColumns(ctx, lead.ID, map[string]any{"assigned_to_id": assigneeID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign lead")
		}
		fresh, err := s.load(ctx, repo, lead.ID)
		if err != nil {
			return err
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) checkAssignee(ctx context.Context, repo Repository, id uuid.UUID) error {
	user, err := repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fieldError("assigned_to_id", "assignee not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignee")
	}
	if !user.IsActive || (user.Role != enums.UserRoleSeller && user.Role != enums.UserRoleAdmin) {
		return fieldError("assigned_to_id", "leads can only be assigned to active sellers or admins")
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Lead, error) {
	lead, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	return lead, nil
}

// visible applies agency isolation: external agents see their agency's
// leads, in-house staff see what they registered or were assigned.
func visible(actor Actor, lead *models.Lead) bool {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleExternalAgent:
		return actor.AgencyID != nil && lead.ExternalAgencyID != nil && *lead.ExternalAgencyID == *actor.AgencyID
	}
	if lead.RegisteredByID == actor.UserID {
		return true
	}
	return lead.AssignedToID != nil && *lead.AssignedToID == actor.UserID
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event enums.OutboxEventType, id uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateLead,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, AgencyID: actor.AgencyID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event))
	}
	return nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return optional(strings.TrimSpace(*s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
