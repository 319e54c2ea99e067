package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/search"
	"github.com/angelmondragon/propertyhub-backend/pkg/slug"
	"github.com/angelmondragon/propertyhub-backend/pkg/storage"
)

const (
	defaultCurrency = "MXN"
	slugAttempts    = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes listing management, the edit wizard and the approval
// workflow.
type Service interface {
	Create(ctx context.Context, actor Actor, in CreateInput) (*PropertyDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*PropertyDTO, error)
	GetBySlug(ctx context.Context, actor Actor, slug string) (*PropertyDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[PropertyDTO], error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, step *int, in UpdateInput) (*UpdateResult, error)
	Transition(ctx context.Context, actor Actor, id uuid.UUID, action Action, in TransitionInput) (*PropertyDTO, error)
	Search(ctx context.Context, in SearchInput) (*SearchResult, error)
	Reindex(ctx context.Context) (int, error)

	CreateUploadURL(ctx context.Context, actor Actor, id uuid.UUID, in UploadURLInput) (*UploadURL, error)
	AttachMedia(ctx context.Context, actor Actor, id uuid.UUID, in AttachMediaInput) (*MediaDTO, error)
	ListMedia(ctx context.Context, actor Actor, id uuid.UUID) ([]MediaDTO, error)
	ReorderMedia(ctx context.Context, actor Actor, id uuid.UUID, order []uuid.UUID) ([]MediaDTO, error)
	DeleteMedia(ctx context.Context, actor Actor, id, mediaID uuid.UUID) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	index  search.Index
	store  storage.ObjectStore
	logg   *logger.Logger
	expiry time.Duration
	now    func() time.Time
}

// ServiceParams groups the collaborators of the property service. Index and
// Store are optional.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Index      search.Index
	Store      storage.ObjectStore
	Logger     *logger.Logger
	PresignTTL time.Duration
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("property repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := p.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		repo:   p.Repo,
		tx:     p.Tx,
		outbox: p.Outbox,
		index:  p.Index,
		store:  p.Store,
		logg:   p.Logger,
		expiry: ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, in CreateInput) (*PropertyDTO, error) {
	title := strings.TrimSpace(in.Title)
	if len(title) < 3 {
		return nil, fieldError("title", "title must have at least 3 characters")
	}
	if !in.PropertyType.IsValid() {
		return nil, fieldError("property_type", "invalid property type")
	}
	if !in.OperationType.IsValid() {
		return nil, fieldError("operation_type", "invalid operation type")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return nil, fieldError("currency", "currency must be a 3-letter code")
	}

	ownerID := actor.UserID
	switch actor.Role {
	case enums.UserRoleOwner:
		if in.OwnerID != nil && *in.OwnerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "owners can only list their own properties")
		}
	case enums.UserRoleAdmin, enums.UserRoleSeller:
		if in.OwnerID == nil {
			return nil, fieldError("owner_id", "owner_id is required")
		}
		ownerID = *in.OwnerID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot create properties")
	}
	if ownerID != actor.UserID {
		ok, err := s.repo.UserExists(ctx, ownerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check owner")
		}
		if !ok {
			return nil, fieldError("owner_id", "owner not found")
		}
	}
	managedBy := in.ManagedByID
	if managedBy == nil && actor.Role == enums.UserRoleSeller {
		managedBy = &actor.UserID
	}

	base := slug.Make(title)
	var created *models.Property
	for attempt := 0; attempt < slugAttempts; attempt++ {
		taken, err := s.repo.SlugsWithPrefix(ctx, base)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load slugs")
		}
		p := &models.Property{
			Title:          title,
			Slug:           slug.Unique(base, taken),
			Description:    normalizeString(in.Description),
			PropertyType:   in.PropertyType,
			OperationType:  in.OperationType,
			Currency:       currency,
			OwnerID:        ownerID,
			ManagedByID:    managedBy,
			ApprovalStatus: enums.ApprovalDraft,
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, p); err != nil {
				return err
			}
			return s.emit(ctx, tx, actor, enums.EventPropertyCreated, p.ID, payloads.PropertyCreatedEvent{
				PropertyID: p.ID,
				OwnerID:    p.OwnerID,
				Title:      p.Title,
				Slug:       p.Slug,
			})
		})
		if err == nil {
			created = p
			break
		}
		if !db.IsUniqueViolation(err, "properties_slug_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create property")
		}
	}
	if created == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique slug")
	}
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*PropertyDTO, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, p); err != nil {
		return nil, err
	}
	return FromModel(p), nil
}

func (s *service) GetBySlug(ctx context.Context, actor Actor, value string) (*PropertyDTO, error) {
	p, err := s.repo.FindBySlug(ctx, value)
	if err != nil {
		return nil, notFoundOr(err, "load property")
	}
	if err := s.ensureVisible(ctx, actor, p); err != nil {
		return nil, err
	}
	return FromModel(p), nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[PropertyDTO], error) {
	if f.Status != nil && !f.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list properties")
	}
	items := make([]PropertyDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	page := pagination.CursorPage(items, f.Limit, func(p PropertyDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// Update applies a dirty-field PATCH. With step set, only that wizard step's
// fields are accepted and wizard_step advances to max(current, step).
func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, step *int, in UpdateInput) (*UpdateResult, error) {
	if step != nil {
		if err := checkStep(*step, in); err != nil {
			return nil, err
		}
	}

	var result *UpdateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		p, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load property")
		}
		if err := s.ensureEditable(ctx, repo, actor, p); err != nil {
			return err
		}

		changes, err := diffProperty(p, in)
		if err != nil {
			return err
		}
		if in.ManagedByID.Set && !actor.isAdmin() && p.OwnerID != actor.UserID {
			for _, c := range changes {
				if c.field == "managed_by_id" {
					return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can change the manager")
				}
			}
		}
		changed := changedFields(changes)

		if in.MediaOrder.Set {
			reordered, err := s.applyMediaOrder(ctx, repo, p.ID, in.MediaOrder.Value)
			if err != nil {
				return err
			}
			if reordered {
				changed = append(changed, "media_order")
			}
		}

		cols := columns(changes)
		var stepAdvanced *int
		if step != nil && *step > p.WizardStep {
			cols["wizard_step"] = *step
			stepAdvanced = step
		}
		if len(cols) > 0 {
			if err := repo.UpdateColumns(ctx, p.ID, cols); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update property")
			}
		}
		if len(changed) > 0 || stepAdvanced != nil {
			if err := s.emit(ctx, tx, actor, enums.EventPropertyUpdated, p.ID, payloads.PropertyUpdatedEvent{
				PropertyID:    p.ID,
				ChangedFields: changed,
				WizardStep:    stepAdvanced,
			}); err != nil {
				return err
			}
		}

		fresh, err := repo.FindByID(ctx, p.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload property")
		}
		result = &UpdateResult{Property: FromModel(fresh), Changed: changed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Property.ApprovalStatus == enums.ApprovalApproved && len(result.Changed) > 0 {
		s.syncIndex(ctx, result.Property)
	}
	return result, nil
}

// Transition runs one approval workflow action.
func (s *service) Transition(ctx context.Context, actor Actor, id uuid.UUID, action Action, in TransitionInput) (*PropertyDTO, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", action)
	}
	if t.reviewer && !actor.isAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only reviewers can "+strings.ReplaceAll(string(action), "_", " ")+" listings")
	}

	var out *PropertyDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		p, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load property")
		}
		if !t.reviewer {
			if err := s.ensureEditable(ctx, repo, actor, p); err != nil {
				return err
			}
		}
		to, err := nextStatus(action, p.ApprovalStatus, in.Note)
		if err != nil {
			return err
		}
		if action == ActionSubmit {
			if missing := readyForReview(p); len(missing) > 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "listing is incomplete").
					WithDetails(map[string]any{"missing": missing})
			}
		}

		cols := map[string]any{"approval_status": to}
		if note := strings.TrimSpace(in.Note); note != "" {
			cols["review_notes"] = note
		}
		if to == enums.ApprovalApproved {
			cols["published_at"] = s.now()
		}
		if err := repo.UpdateColumns(ctx, p.ID, cols); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval status")
		}
		if err := s.emit(ctx, tx, actor, enums.EventPropertyStatusChanged, p.ID, payloads.PropertyStatusChangedEvent{
			PropertyID: p.ID,
			OwnerID:    p.OwnerID,
			Title:      p.Title,
			From:       p.ApprovalStatus,
			To:         to,
			Note:       strings.TrimSpace(in.Note),
		}); err != nil {
			return err
		}
		fresh, err := repo.FindByID(ctx, p.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload property")
		}
		out = FromModel(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.ApprovalStatus == enums.ApprovalApproved {
		s.syncIndex(ctx, out)
	} else {
		s.dropFromIndex(ctx, out.ID)
	}
	return out, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, actor Actor, event enums.OutboxEventType, id uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateProperty,
		AggregateID:   id,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(event))
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load property")
	}
	return p, nil
}

// ensureVisible hides unapproved listings from callers unrelated to them.
func (s *service) ensureVisible(ctx context.Context, actor Actor, p *models.Property) error {
	if p.ApprovalStatus == enums.ApprovalApproved {
		return nil
	}
	ok, err := s.canEdit(ctx, s.repo, actor, p)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
	}
	return nil
}

func (s *service) ensureEditable(ctx context.Context, repo Repository, actor Actor, p *models.Property) error {
	ok, err := s.canEdit(ctx, repo, actor, p)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to edit this property")
	}
	if p.ApprovalStatus == enums.ApprovalArchived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "archived listings are read-only")
	}
	return nil
}

func (s *service) canEdit(ctx context.Context, repo Repository, actor Actor, p *models.Property) (bool, error) {
	if actor.isAdmin() || p.OwnerID == actor.UserID {
		return true, nil
	}
	if p.ManagedByID != nil && *p.ManagedByID == actor.UserID {
		return true, nil
	}
	if actor.UserID == uuid.Nil {
		return false, nil
	}
	ok, err := repo.IsStaff(ctx, p.ID, actor.UserID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property staff")
	}
	return ok, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
