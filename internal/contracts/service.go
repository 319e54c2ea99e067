package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/internal/commissions"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/pdf"
	"github.com/angelmondragon/propertyhub-backend/pkg/storage"
)

const documentURLExpiry = 15 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type commissionGenerator interface {
	Generate(ctx context.Context, tx *gorm.DB, in commissions.GenerateInput) ([]models.CommissionRecord, error)
}

// Service drives contracts from draft to completion. Signing prices the
// commissions of every participant in the same transaction.
type Service interface {
	Create(ctx context.Context, actor Actor, in CreateInput) (*ContractDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[ContractDTO], error)
	SendForSignature(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error)
	Sign(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error)
	Complete(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error)
	RenderPDF(ctx context.Context, actor Actor, id uuid.UUID) (*Document, error)
}

type Options struct {
	Renderer pdf.Renderer
	Store    storage.ObjectStore
	Company  string
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	commissions commissionGenerator
	renderer    pdf.Renderer
	store       storage.ObjectStore
	company     string
	now         func() time.Time
}

// NewService wires the contract service. Renderer and Store are optional;
// without them RenderPDF reports a dependency error.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, gen commissionGenerator, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gen == nil {
		return nil, fmt.Errorf("commission generator required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      outbox,
		commissions: gen,
		renderer:    opts.Renderer,
		store:       opts.Store,
		company:     opts.Company,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// allowed is the contract status machine.
var allowed = map[enums.ContractStatus][]enums.ContractStatus{
	enums.ContractDraft:            {enums.ContractPendingSignature, enums.ContractCancelled},
	enums.ContractPendingSignature: {enums.ContractSigned, enums.ContractCancelled},
	enums.ContractSigned:           {enums.ContractCompleted},
}

func canMove(from, to enums.ContractStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *service) Create(ctx context.Context, actor Actor, in CreateInput) (*ContractDTO, error) {
	if !actor.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can draft contracts")
	}
	c := &models.Contract{
		LeadID:       in.LeadID,
		ContractType: in.ContractType,
		Status:       enums.ContractDraft,
		Deposit:      in.Deposit,
		StartDate:    utc(in.StartDate),
		EndDate:      utc(in.EndDate),
		CreatedBy:    actor.UserID,
	}

	if in.OfferID != nil {
		offer, err := s.repo.FindOffer(ctx, *in.OfferID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fieldError("offer_id", "offer not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if offer.Status != enums.OfferAccepted {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contracts can only be drafted from accepted offers")
		}
		if in.PropertyID != nil && *in.PropertyID != offer.PropertyID {
			return nil, fieldError("property_id", "property does not match the offer")
		}
		if in.ContractType != "" && in.ContractType != offer.DealType {
			return nil, fieldError("contract_type", "contract type does not match the offer")
		}
		active, err := s.repo.ActiveForOffer(ctx, offer.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check offer contracts")
		}
		if active {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "the offer already has a contract")
		}
		c.OfferID = &offer.ID
		c.PropertyID = offer.PropertyID
		c.ClientID = offer.ClientID
		c.ContractType = offer.DealType
		c.Amount = offer.Amount
		c.Currency = offer.Currency
		if c.LeadID == nil {
			c.LeadID = offer.LeadID
		}
	} else {
		if in.PropertyID == nil {
			return nil, fieldError("property_id", "property_id or offer_id is required")
		}
		if in.ClientID == nil {
			return nil, fieldError("client_id", "client_id is required")
		}
		c.PropertyID = *in.PropertyID
		c.ClientID = *in.ClientID
	}
	if in.Amount != nil {
		c.Amount = *in.Amount
	}
	if !c.ContractType.IsValid() {
		return nil, fieldError("contract_type", "contract_type must be sale or rent")
	}
	if !c.Amount.IsPositive() {
		return nil, fieldError("amount", "amount must be positive")
	}
	c.Amount = money.Round2(c.Amount)
	if c.Deposit != nil {
		if c.Deposit.IsNegative() {
			return nil, fieldError("deposit", "deposit must not be negative")
		}
		d := money.Round2(*c.Deposit)
		c.Deposit = &d
	}
	if c.ContractType == enums.DealRent && c.StartDate == nil {
		return nil, fieldError("start_date", "rental contracts need a start date")
	}
	if c.StartDate != nil && c.EndDate != nil && !c.EndDate.After(*c.StartDate) {
		return nil, fieldError("end_date", "end_date must be after start_date")
	}

	property, err := s.repo.FindProperty(ctx, c.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError("property_id", "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	if !property.OperationType.Supports(c.ContractType) {
		return nil, fieldError("contract_type", fmt.Sprintf("this listing is offered for %s", property.OperationType))
	}
	c.OwnerID = property.OwnerID
	if currency := strings.ToUpper(strings.TrimSpace(in.Currency)); currency != "" {
		c.Currency = currency
	}
	if c.Currency == "" {
		c.Currency = property.Currency
	}

	if err := s.checkClient(ctx, c.ClientID); err != nil {
		return nil, err
	}
	if c.LeadID != nil {
		if _, err := s.repo.FindLead(ctx, *c.LeadID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fieldError("lead_id", "lead not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
		}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
	}
	dto := FromModel(c)
	return &dto, nil
}

func (s *service) checkClient(ctx context.Context, id uuid.UUID) error {
	client, err := s.repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fieldError("client_id", "client not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if client.Role != enums.UserRoleClient && client.Role != enums.UserRoleTenant {
		return fieldError("client_id", "the counterparty must be a client or tenant")
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error) {
	c, err := s.visible(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(c)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[ContractDTO], error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	items := make([]ContractDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.CursorPage(items, f.Limit, func(c ContractDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

func (s *service) SendForSignature(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error) {
	return s.move(ctx, actor, id, enums.ContractPendingSignature, nil)
}

func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error) {
	return s.move(ctx, actor, id, enums.ContractCancelled, nil)
}

func (s *service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error) {
	return s.move(ctx, actor, id, enums.ContractCompleted, nil)
}

// Sign records the signature and generates one pending commission record
// per participant, priced at the signing instant. Any participant without a
// commission configuration aborts the signature.
func (s *service) Sign(ctx context.Context, actor Actor, id uuid.UUID) (*ContractDTO, error) {
	return s.move(ctx, actor, id, enums.ContractSigned, func(tx *gorm.DB, repo Repository, c *models.Contract) error {
		signedAt := *c.SignedAt
		participants, err := s.participants(ctx, repo, c)
		if err != nil {
			return err
		}
		records, err := s.commissions.Generate(ctx, tx, commissions.GenerateInput{
			Contract:     *c,
			Participants: participants,
			SignedAt:     signedAt,
			Actor:        &actor.UserID,
		})
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return s.emit(ctx, tx, actor, enums.EventContractSigned, c.ID, payloads.ContractSignedEvent{
			ContractID:          c.ID,
			PropertyID:          c.PropertyID,
			OwnerID:             c.OwnerID,
			ClientID:            c.ClientID,
			ContractType:        c.ContractType,
			Amount:              c.Amount,
			SignedAt:            signedAt,
			CommissionRecordIDs: ids,
		})
	})
}

// participants collects the lead registrant, the lead assignee and the
// sellers staffed on the property. Generate drops duplicates and roles that
// do not earn commission.
func (s *service) participants(ctx context.Context, repo Repository, c *models.Contract) ([]commissions.Participant, error) {
	var out []commissions.Participant
	if c.LeadID != nil {
		lead, err := repo.FindLead(ctx, *c.LeadID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
		}
		ids := []uuid.UUID{lead.RegisteredByID}
		if lead.AssignedToID != nil {
			ids = append(ids, *lead.AssignedToID)
		}
		users, err := repo.FindUsers(ctx, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead participants")
		}
		byID := make(map[uuid.UUID]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		if u, ok := byID[lead.RegisteredByID]; ok {
			agency := u.ExternalAgencyID
			if agency == nil {
				agency = lead.ExternalAgencyID
			}
			out = append(out, commissions.Participant{
				UserID:           u.ID,
				Role:             u.Role,
				ExternalAgencyID: agency,
				ParticipantRole:  commissions.ParticipantLeadRegistrant,
			})
		}
		if lead.AssignedToID != nil {
			if u, ok := byID[*lead.AssignedToID]; ok {
				out = append(out, commissions.Participant{
					UserID:           u.ID,
					Role:             u.Role,
					ExternalAgencyID: u.ExternalAgencyID,
					ParticipantRole:  commissions.ParticipantLeadAssignee,
				})
			}
		}
	}
	sellers, err := repo.PropertySellers(ctx, c.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property sellers")
	}
	for _, u := range sellers {
		out = append(out, commissions.Participant{
			UserID:           u.ID,
			Role:             u.Role,
			ExternalAgencyID: u.ExternalAgencyID,
			ParticipantRole:  commissions.ParticipantPropertySeller,
		})
	}
	return out, nil
}

type afterMove func(tx *gorm.DB, repo Repository, c *models.Contract) error

func (s *service) move(ctx context.Context, actor Actor, id uuid.UUID, to enums.ContractStatus, after afterMove) (*ContractDTO, error) {
	if to != enums.ContractSigned && !actor.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can change contract status")
	}
	var out ContractDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := s.visible(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		// Clients sign their own contracts; owners do not sign here.
		if !actor.isStaff() && c.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the client or staff can sign this contract")
		}
		from := c.Status
		if !canMove(from, to) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move a %s contract to %s", from, to).
				WithDetails(map[string]any{"status": from, "allowed": allowed[from]})
		}
		cols := map[string]any{"status": to}
		if to == enums.ContractSigned {
			at := s.now()
			cols["signed_at"] = at
			c.SignedAt = &at
		}
		ok, err := repo.Transition(ctx, c.ID, from, cols)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contract")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contract changed concurrently, reload and retry")
		}
		c.Status = to
		if after != nil {
			if err := after(tx, repo, c); err != nil {
				return err
			}
		}
		if err := s.emit(ctx, tx, actor, enums.EventContractStatusChanged, c.ID, payloads.ContractStatusChangedEvent{
			ContractID: c.ID,
			From:       from,
			To:         to,
		}); err != nil {
			return err
		}
		fresh, err := repo.FindByID(ctx, c.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload contract")
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderPDF renders the contract to PDF, stores it under a stable key and
// records the key on the contract.
func (s *service) RenderPDF(ctx context.Context, actor Actor, id uuid.UUID) (*Document, error) {
	if s.renderer == nil || s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document rendering is not configured")
	}
	c, err := s.visible(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	property, err := s.repo.FindProperty(ctx, c.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	users, err := s.repo.FindUsers(ctx, []uuid.UUID{c.OwnerID, c.ClientID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parties")
	}
	parties := make(map[uuid.UUID]pdf.Party, len(users))
	for _, u := range users {
		parties[u.ID] = pdf.Party{Name: u.FullName(), Email: u.Email}
	}

	now := s.now()
	doc := pdf.ContractDocument{
		Title:       "Contract for " + property.Title,
		Company:     s.company,
		GeneratedAt: now,
		Contract: pdf.ContractTerms{
			ID:       c.ID,
			Type:     string(c.ContractType),
			Amount:   c.Amount,
			Deposit:  c.Deposit,
			Currency: c.Currency,
			EndDate:  c.EndDate,
		},
		Property: summary(property),
		Owner:    parties[c.OwnerID],
		Client:   parties[c.ClientID],
	}
	switch {
	case c.StartDate != nil:
		doc.Contract.StartDate = *c.StartDate
	case c.SignedAt != nil:
		doc.Contract.StartDate = *c.SignedAt
	default:
		doc.Contract.StartDate = c.CreatedAt
	}

	html, err := pdf.RenderHTML(pdf.TemplateContract, doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render contract")
	}
	body, err := s.renderer.Render(ctx, html)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "render contract pdf")
	}
	key := storage.DocumentKey("contracts", c.ID)
	if err := s.store.Put(ctx, key, "application/pdf", body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store contract pdf")
	}
	if err := s.repo.SetDocumentKey(ctx, c.ID, key); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record contract document")
	}
	out := &Document{Key: key, GeneratedAt: now}
	if url, err := s.store.PresignedGetURL(ctx, key, fmt.Sprintf("contract-%s.pdf", c.ID), documentURLExpiry); err == nil {
		out.DownloadURL = url
	}
	return out, nil
}

func summary(p *models.Property) pdf.PropertySummary {
	parts := make([]string, 0, 4)
	for _, v := range []*string{p.AddressLine, p.Neighborhood, p.City, p.State} {
		if v != nil && strings.TrimSpace(*v) != "" {
			parts = append(parts, strings.TrimSpace(*v))
		}
	}
	out := pdf.PropertySummary{
		Title:       p.Title,
		Address:     strings.Join(parts, ", "),
		Type:        string(p.PropertyType),
		Operation:   string(p.OperationType),
		Currency:    p.Currency,
		SalePrice:   p.SalePrice,
		MonthlyRent: p.MonthlyRent,
		AreaM2:      p.AreaM2,
		Amenities:   p.Amenities,
	}
	if p.Bedrooms != nil {
		out.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		out.Bathrooms = *p.Bathrooms
	}
	return out
}

// visible loads the contract when the actor is staff or a party to it.
func (s *service) visible(ctx context.Context, repo Repository, actor Actor, id uuid.UUID) (*models.Contract, error) {
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	if actor.isStaff() || c.OwnerID == actor.UserID || c.ClientID == actor.UserID {
		return c, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event enums.OutboxEventType, id uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateContract,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
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

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
