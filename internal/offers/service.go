package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

const expiryBatch = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service negotiates purchase and rental offers on approved listings.
type Service interface {
	Make(ctx context.Context, actor Actor, in MakeInput) (*OfferDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[OfferDTO], error)
	Counter(ctx context.Context, actor Actor, id uuid.UUID, in CounterInput) (*OfferDTO, error)
	Accept(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error)
	Withdraw(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error)
	ExpireDue(ctx context.Context) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Make(ctx context.Context, actor Actor, in MakeInput) (*OfferDTO, error) {
	if !in.DealType.IsValid() {
		return nil, fieldError("deal_type", "deal_type must be sale or rent")
	}
	if !in.Amount.IsPositive() {
		return nil, fieldError("amount", "amount must be positive")
	}
	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, fieldError("expires_at", "expires_at must be in the future")
	}

	var clientID uuid.UUID
	switch {
	case actor.isBuyer():
		clientID = actor.UserID
	case actor.isAdmin() || actor.Role == enums.UserRoleSeller:
		if in.ClientID == nil {
			return nil, fieldError("client_id", "client_id is required when making an offer on behalf of a client")
		}
		clientID = *in.ClientID
		client, err := s.repo.FindUser(ctx, clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fieldError("client_id", "client not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
		}
		if !client.IsActive || (client.Role != enums.UserRoleClient && client.Role != enums.UserRoleTenant) {
			return nil, fieldError("client_id", "offers are made for active clients or tenants")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot make offers")
	}

	property, err := s.repo.FindProperty(ctx, in.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	if property.ApprovalStatus != enums.ApprovalApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "offers can only be made on published listings")
	}
	if !property.OperationType.Supports(in.DealType) {
		return nil, fieldError("deal_type", fmt.Sprintf("this listing is offered for %s", property.OperationType))
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = property.Currency
	}
	if currency != property.Currency {
		return nil, fieldError("currency", "currency must match the listing currency "+property.Currency)
	}

	offer := &models.Offer{
		PropertyID: property.ID,
		ClientID:   clientID,
		CreatedBy:  actor.UserID,
		LeadID:     in.LeadID,
		DealType:   in.DealType,
		Amount:     money.Round2(in.Amount),
		Currency:   currency,
		Status:     enums.OfferPending,
		ExpiresAt:  utc(in.ExpiresAt),
		Notes:      trimmed(in.Notes),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		open, err := repo.HasOpen(ctx, property.ID, clientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open offers")
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "the client already has an open offer on this property")
		}
		if err := repo.Create(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}
		return s.emit(ctx, tx, actor, enums.EventOfferMade, offer.ID, payloads.OfferMadeEvent{
			OfferID:    offer.ID,
			PropertyID: offer.PropertyID,
			OwnerID:    property.OwnerID,
			ClientID:   offer.ClientID,
			DealType:   offer.DealType,
			Amount:     offer.Amount,
			Currency:   offer.Currency,
		})
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(offer)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error) {
	offer, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.visible(ctx, s.repo, actor, offer); err != nil {
		return nil, err
	}
	dto := FromModel(offer)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[OfferDTO], error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	items := make([]OfferDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.CursorPage(items, f.Limit, func(o OfferDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// Counter lets the seller side propose a different amount. The offer goes
// back to the client as countered.
func (s *service) Counter(ctx context.Context, actor Actor, id uuid.UUID, in CounterInput) (*OfferDTO, error) {
	if !in.Amount.IsPositive() {
		return nil, fieldError("amount", "amount must be positive")
	}
	amount := money.Round2(in.Amount)
	return s.transition(ctx, actor, id, enums.OfferCountered, func(offer *models.Offer, property *models.Property) (map[string]any, error) {
		if !sellerSide(actor, property) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can counter an offer")
		}
		if offer.Status == enums.OfferCountered && offer.CounterAmount != nil && offer.CounterAmount.Equal(amount) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "the offer was already countered with this amount")
		}
		cols := map[string]any{"status": enums.OfferCountered, "counter_amount": amount}
		if notes := trimmed(in.Notes); notes != nil {
			cols["notes"] = *notes
		}
		return cols, nil
	})
}

// Accept closes the negotiation. A pending offer is accepted by the seller
// side at its amount; a countered one by the buyer side at the counter
// amount. Every other open offer on the property is rejected.
func (s *service) Accept(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error) {
	return s.transition(ctx, actor, id, enums.OfferAccepted, func(offer *models.Offer, property *models.Property) (map[string]any, error) {
		cols := map[string]any{"status": enums.OfferAccepted}
		switch offer.Status {
		case enums.OfferPending:
			if !sellerSide(actor, property) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can accept this offer")
			}
		case enums.OfferCountered:
			if !buyerSide(actor, offer) {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the client can accept a counter offer")
			}
			if offer.CounterAmount != nil {
				cols["amount"] = *offer.CounterAmount
			}
		}
		return cols, nil
	})
}

// Reject declines whatever is on the table for the caller: the seller side
// rejects pending offers, the buyer side rejects counters.
func (s *service) Reject(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error) {
	return s.transition(ctx, actor, id, enums.OfferRejected, func(offer *models.Offer, property *models.Property) (map[string]any, error) {
		switch {
		case actor.isAdmin():
		case offer.Status == enums.OfferPending && sellerSide(actor, property):
		case offer.Status == enums.OfferCountered && buyerSide(actor, offer):
		default:
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to reject this offer")
		}
		return map[string]any{"status": enums.OfferRejected}, nil
	})
}

func (s *service) Withdraw(ctx context.Context, actor Actor, id uuid.UUID) (*OfferDTO, error) {
	return s.transition(ctx, actor, id, enums.OfferWithdrawn, func(offer *models.Offer, _ *models.Property) (map[string]any, error) {
		if offer.CreatedBy != actor.UserID && offer.ClientID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the offer author can withdraw it")
		}
		return map[string]any{"status": enums.OfferWithdrawn}, nil
	})
}

type decideFn func(offer *models.Offer, property *models.Property) (map[string]any, error)

func (s *service) transition(ctx context.Context, actor Actor, id uuid.UUID, to enums.OfferStatus, decide decideFn) (*OfferDTO, error) {
	var out OfferDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		offer, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		property, err := s.visible(ctx, repo, actor, offer)
		if err != nil {
			return err
		}
		if !offer.Status.IsOpen() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "offer is already %s", offer.Status)
		}
		if offer.ExpiresAt != nil && !offer.ExpiresAt.After(s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer has expired")
		}
		cols, err := decide(offer, property)
		if err != nil {
			return err
		}
		ok, err := repo.Transition(ctx, offer.ID, offer.Status, cols)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer changed concurrently, reload and retry")
		}
		if err := s.emitStatus(ctx, tx, actor, offer, to); err != nil {
			return err
		}
		if to == enums.OfferAccepted {
			if err := s.rejectOthers(ctx, tx, repo, actor, offer); err != nil {
				return err
			}
		}
		fresh, err := s.load(ctx, repo, offer.ID)
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

func (s *service) rejectOthers(ctx context.Context, tx *gorm.DB, repo Repository, actor Actor, accepted *models.Offer) error {
	others, err := repo.OpenForProperty(ctx, accepted.PropertyID, accepted.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load competing offers")
	}
	for i := range others {
		other := &others[i]
		ok, err := repo.Transition(ctx, other.ID, other.Status, map[string]any{"status": enums.OfferRejected})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject competing offer")
		}
		if !ok {
			continue
		}
		if err := s.emitStatus(ctx, tx, actor, other, enums.OfferRejected); err != nil {
			return err
		}
	}
	return nil
}

// ExpireDue marks open offers past their expiry as expired. Offers that
// moved on concurrently are skipped.
func (s *service) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.DueForExpiry(ctx, now, expiryBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load expiring offers")
	}
	expired := 0
	for i := range due {
		offer := &due[i]
		moved := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).Transition(ctx, offer.ID, offer.Status, map[string]any{"status": enums.OfferExpired})
			if err != nil || !ok {
				return err
			}
			moved = true
			return s.emitStatus(ctx, tx, Actor{}, offer, enums.OfferExpired)
		})
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire offer")
		}
		if moved {
			expired++
		}
	}
	return expired, nil
}

// visible returns the offer's property when the actor may see the offer.
func (s *service) visible(ctx context.Context, repo Repository, actor Actor, offer *models.Offer) (*models.Property, error) {
	property, err := repo.FindProperty(ctx, offer.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	switch {
	case actor.isAdmin(), actor.Role == enums.UserRoleSeller:
		return property, nil
	case property.OwnerID == actor.UserID, buyerSide(actor, offer):
		return property, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
}

func sellerSide(actor Actor, property *models.Property) bool {
	return actor.isAdmin() || property.OwnerID == actor.UserID
}

func buyerSide(actor Actor, offer *models.Offer) bool {
	return offer.ClientID == actor.UserID || offer.CreatedBy == actor.UserID
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Offer, error) {
	offer, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	return offer, nil
}

func (s *service) emitStatus(ctx context.Context, tx *gorm.DB, actor Actor, offer *models.Offer, to enums.OfferStatus) error {
	return s.emit(ctx, tx, actor, enums.EventOfferStatusChanged, offer.ID, payloads.OfferStatusChangedEvent{
		OfferID:    offer.ID,
		PropertyID: offer.PropertyID,
		ClientID:   offer.ClientID,
		From:       offer.Status,
		To:         to,
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event enums.OutboxEventType, id uuid.UUID, data any) error {
	var ref *outbox.ActorRef
	if actor.UserID != uuid.Nil {
		ref = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateOffer,
		AggregateID:   id,
		Actor:         ref,
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
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
