package commissions

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
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes commission configuration management and resolution.
type Service interface {
	Resolve(ctx context.Context, in ResolveInput) (Resolution, error)
	Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error)
	CreateConfig(ctx context.Context, actorID uuid.UUID, in CreateConfigInput) (*Config, error)
	UpdateConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID, in UpdateConfigInput) (*Config, error)
	DeleteConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) error
	ListConfigs(ctx context.Context, filter ListFilter) ([]Config, error)
	Generate(ctx context.Context, tx *gorm.DB, in GenerateInput) ([]models.CommissionRecord, error)
}

type service struct {
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

// NewService wires the commissions service.
func NewService(repo Repository, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, outbox: outbox, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Resolve(ctx context.Context, in ResolveInput) (Resolution, error) {
	return s.resolveWith(ctx, s.repo, in)
}

func (s *service) resolveWith(ctx context.Context, repo Repository, in ResolveInput) (Resolution, error) {
	if in.UserID == uuid.Nil {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !in.Operation.IsValid() {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation type")
	}
	if in.At.IsZero() {
		in.At = s.now()
	}
	candidates, err := repo.LoadCandidates(ctx, in)
	if err != nil {
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission configuration")
	}
	res, ok := Resolve(candidates, in)
	if !ok {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeNotFound, "no commission configuration").
			WithDetails(map[string]any{"user_id": in.UserID, "operation_type": in.Operation, "at": in.At})
	}
	return res, nil
}

func (s *service) Preview(ctx context.Context, in PreviewInput) (*PreviewResult, error) {
	if in.BaseAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base_amount must not be negative")
	}
	user, err := s.repo.FindUser(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	at := s.now()
	if in.At != nil {
		at = in.At.UTC()
	}
	res, err := s.Resolve(ctx, ResolveInput{UserID: user.ID, Role: user.Role, LeadID: in.LeadID, Operation: in.Operation, At: at})
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Resolution: res,
		UserID:     user.ID,
		Role:       user.Role,
		BaseAmount: money.Round2(in.BaseAmount),
		Amount:     money.ApplyPercentage(in.BaseAmount, res.Percentage),
		At:         at,
	}, nil
}

func (s *service) CreateConfig(ctx context.Context, actorID uuid.UUID, in CreateConfigInput) (*Config, error) {
	if err := validateKey(in.Tier, in.key()); err != nil {
		return nil, err
	}
	cfg := &Config{
		Tier:          in.Tier,
		Role:          in.Role,
		UserID:        in.UserID,
		LeadID:        in.LeadID,
		OperationType: in.OperationType,
		Percentage:    in.Percentage,
		ActiveFrom:    in.ActiveFrom.UTC(),
		ActiveTo:      utcPtr(in.ActiveTo),
	}
	if actorID != uuid.Nil {
		cfg.CreatedBy = &actorID
	}
	if err := validateWindow(*cfg); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, *cfg); err != nil {
		return nil, err
	}
	if err := s.repo.CreateConfig(ctx, cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission configuration")
	}
	return cfg, nil
}

func (s *service) UpdateConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID, in UpdateConfigInput) (*Config, error) {
	current, err := s.find(ctx, tier, id)
	if err != nil {
		return nil, err
	}
	next := *current
	updates := map[string]any{}
	if in.Percentage != nil {
		next.Percentage = *in.Percentage
		updates["percentage"] = *in.Percentage
	}
	if in.ActiveFrom != nil {
		next.ActiveFrom = in.ActiveFrom.UTC()
		updates["active_from"] = next.ActiveFrom
	}
	if in.ActiveTo.Set {
		next.ActiveTo = utcPtr(in.ActiveTo.Ptr())
		updates["active_to"] = next.ActiveTo
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := validateWindow(next); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, next); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateConfig(ctx, tier, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission configuration")
	}
	return s.find(ctx, tier, id)
}

func (s *service) DeleteConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) error {
	if !tier.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid commission tier")
	}
	if err := s.repo.DeleteConfig(ctx, tier, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission configuration not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete commission configuration")
	}
	return nil
}

func (s *service) ListConfigs(ctx context.Context, filter ListFilter) ([]Config, error) {
	if filter.Tier != "" && !filter.Tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission tier")
	}
	if filter.OperationType != "" && !filter.OperationType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation type")
	}
	rows, err := s.repo.ListConfigs(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission configuration")
	}
	if rows == nil {
		rows = []Config{}
	}
	return rows, nil
}

// Generate prices every participant of a signed contract and stores one
// pending record each, inside the caller's transaction. Participants whose
// role does not earn commission are skipped; a participant without any
// applicable configuration aborts the signature.
func (s *service) Generate(ctx context.Context, tx *gorm.DB, in GenerateInput) ([]models.CommissionRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	contract := in.Contract
	signedAt := in.SignedAt.UTC()
	bucket := period.For(signedAt)

	seen := make(map[uuid.UUID]struct{}, len(in.Participants))
	records := make([]models.CommissionRecord, 0, len(in.Participants))
	for _, p := range in.Participants {
		if _, dup := seen[p.UserID]; dup || p.UserID == uuid.Nil {
			continue
		}
		seen[p.UserID] = struct{}{}
		if !p.Role.EarnsCommission() {
			continue
		}
		res, err := s.resolveWith(ctx, repo, ResolveInput{
			UserID:    p.UserID,
			Role:      p.Role,
			LeadID:    contract.LeadID,
			Operation: contract.ContractType,
			At:        signedAt,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, models.CommissionRecord{
			ContractID:       contract.ID,
			UserID:           p.UserID,
			ParticipantRole:  p.ParticipantRole,
			ExternalAgencyID: p.ExternalAgencyID,
			LeadID:           contract.LeadID,
			OperationType:    contract.ContractType,
			BaseAmount:       money.Round2(contract.Amount),
			Percentage:       res.Percentage,
			Amount:           money.ApplyPercentage(contract.Amount, res.Percentage),
			Currency:         contract.Currency,
			SourceTier:       res.Tier,
			Status:           enums.CommissionPending,
			PeriodStart:      bucket.Start,
			PeriodEnd:        bucket.End,
		})
	}

	if err := repo.CreateRecords(ctx, records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission records")
	}

	var actor *outbox.ActorRef
	if in.Actor != nil {
		actor = &outbox.ActorRef{UserID: *in.Actor}
	}
	for _, rec := range records {
		event := outbox.DomainEvent{
			EventType:     enums.EventCommissionGenerated,
			AggregateType: enums.AggregateCommissionRecord,
			AggregateID:   rec.ID,
			Actor:         actor,
			Data: payloads.CommissionGeneratedEvent{
				RecordID:    rec.ID,
				ContractID:  rec.ContractID,
				UserID:      rec.UserID,
				Amount:      rec.Amount,
				Percentage:  rec.Percentage,
				SourceTier:  rec.SourceTier,
				PeriodStart: rec.PeriodStart,
				PeriodEnd:   rec.PeriodEnd,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit commission generated")
		}
	}
	return records, nil
}

func (s *service) find(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) (*Config, error) {
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission tier")
	}
	cfg, err := s.repo.FindConfig(ctx, tier, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission configuration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission configuration")
	}
	return cfg, nil
}

func (s *service) checkOverlap(ctx context.Context, cfg Config) error {
	key := Key{Role: cfg.Role, UserID: cfg.UserID, LeadID: cfg.LeadID}
	existing, err := s.repo.ListSameKey(ctx, cfg.Tier, key, cfg.OperationType)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check commission overlap")
	}
	for _, row := range existing {
		if row.ID == cfg.ID {
			continue
		}
		if row.window().Overlaps(cfg.window()) {
			return pkgerrors.New(pkgerrors.CodeConflict, "commission window overlaps an existing configuration").
				WithDetails(map[string]any{"conflicting_id": row.ID})
		}
	}
	return nil
}

func validateKey(tier enums.CommissionTier, key Key) error {
	switch tier {
	case enums.CommissionTierDefault:
		if key.Role != nil || key.UserID != nil || key.LeadID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "default commissions take no role, user or lead")
		}
	case enums.CommissionTierRole:
		if key.Role == nil || !key.Role.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "role override requires a valid role")
		}
		if key.UserID != nil || key.LeadID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "role override takes only a role")
		}
	case enums.CommissionTierUser:
		if key.UserID == nil || *key.UserID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "user override requires user_id")
		}
		if key.Role != nil || key.LeadID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "user override takes only a user")
		}
	case enums.CommissionTierLead:
		if key.LeadID == nil || *key.LeadID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "lead override requires lead_id")
		}
		if key.Role != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "lead override does not take a role")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid commission tier")
	}
	return nil
}

func validateWindow(cfg Config) error {
	if !cfg.OperationType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "operation_type must be sale or rent")
	}
	if err := money.ValidatePercentage(cfg.Percentage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage")
	}
	if cfg.ActiveFrom.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "active_from is required")
	}
	if cfg.ActiveTo != nil && !cfg.ActiveTo.After(cfg.ActiveFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "active_to must be after active_from")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
