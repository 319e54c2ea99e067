package presentationcards

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/pdf"
	"github.com/angelmondragon/propertyhub-backend/pkg/storage"
)

const (
	tokenBytes  = 24
	mediaExpiry = time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service issues shareable presentation cards for approved listings.
type Service interface {
	Create(ctx context.Context, actor Actor, in CreateInput) (*CardDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*CardDTO, error)
	List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[CardDTO], error)
	Revoke(ctx context.Context, actor Actor, id uuid.UUID) error
	ViewPublic(ctx context.Context, token string) (*PublicCard, error)
	RenderPDF(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error)
}

type Options struct {
	Renderer pdf.Renderer
	Store    storage.ObjectStore
	Company  string
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	renderer pdf.Renderer
	store    storage.ObjectStore
	company  string
	now      func() time.Time
	token    func() (string, error)
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("presentation cards repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		renderer: opts.Renderer,
		store:    opts.Store,
		company:  opts.Company,
		now:      func() time.Time { return time.Now().UTC() },
		token:    newShareToken,
	}, nil
}

func newShareToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *service) Create(ctx context.Context, actor Actor, in CreateInput) (*CardDTO, error) {
	if !actor.isAdmin() && actor.Role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers and admins create presentation cards")
	}
	now := s.now()
	expires := now.Add(DefaultTTL)
	if in.ExpiresAt != nil {
		expires = in.ExpiresAt.UTC()
		if !expires.After(now) {
			return nil, fieldError("expires_at", "expires_at must be in the future")
		}
		if expires.Sub(now) > MaxTTL {
			return nil, fieldError("expires_at", "cards expire within 90 days")
		}
	}
	property, err := s.repo.FindProperty(ctx, in.PropertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError("property_id", "property not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	if property.ApprovalStatus != enums.ApprovalApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cards can only present published listings")
	}
	if in.ClientID != nil {
		if _, err := s.repo.FindUser(ctx, *in.ClientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fieldError("client_id", "client not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
		}
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = property.Title
	}
	token, err := s.token()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate share token")
	}
	card := &models.PresentationCard{
		PropertyID: property.ID,
		ClientID:   in.ClientID,
		CreatedBy:  actor.UserID,
		Title:      title,
		Message:    trimmed(in.Message),
		ShareToken: token,
		ExpiresAt:  expires,
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create presentation card")
	}
	dto := FromModel(card, now)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*CardDTO, error) {
	card, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(card, s.now())
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, f ListFilter) (*pagination.Page[CardDTO], error) {
	cursor, err := pagination.ParseCursor(f.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, actor, f, pagination.LimitWithBuffer(f.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list presentation cards")
	}
	now := s.now()
	items := make([]CardDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i], now))
	}
	page := pagination.CursorPage(items, f.Limit, func(c CardDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

// Revoke expires the card immediately; the share link stops resolving.
func (s *service) Revoke(ctx context.Context, actor Actor, id uuid.UUID) error {
	card, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Expire(ctx, card.ID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke presentation card")
	}
	return nil
}

// ViewPublic resolves a share token for an anonymous visitor and counts the
// view. Unknown and expired tokens are indistinguishable.
func (s *service) ViewPublic(ctx context.Context, token string) (*PublicCard, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
	}
	now := s.now()
	var (
		card     *models.PresentationCard
		property *models.Property
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		card, err = repo.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load card")
		}
		counted, err := repo.RecordView(ctx, card.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record card view")
		}
		if !counted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
		}
		card.ViewCount++
		property, err = repo.FindProperty(ctx, card.PropertyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCardViewed,
			AggregateType: enums.AggregatePresentationCard,
			AggregateID:   card.ID,
			Data: payloads.CardViewedEvent{
				CardID:     card.ID,
				PropertyID: card.PropertyID,
				ViewCount:  card.ViewCount,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit card viewed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &PublicCard{
		Title:       card.Title,
		Message:     card.Message,
		ExpiresAt:   card.ExpiresAt,
		ViewCount:   card.ViewCount,
		PresentedBy: s.presenter(ctx, card.CreatedBy),
		Property:    publicProperty(property),
		Media:       s.publicMedia(ctx, property.ID),
	}
	return out, nil
}

func (s *service) presenter(ctx context.Context, userID uuid.UUID) string {
	u, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return s.company
	}
	return u.FullName()
}

func (s *service) publicMedia(ctx context.Context, propertyID uuid.UUID) []PublicMedia {
	out := []PublicMedia{}
	if s.store == nil {
		return out
	}
	rows, err := s.repo.ListMedia(ctx, propertyID)
	if err != nil {
		return out
	}
	for _, m := range rows {
		url, err := s.store.PresignedGetURL(ctx, m.ObjectKey, "", mediaExpiry)
		if err != nil {
			continue
		}
		out = append(out, PublicMedia{ContentType: m.ContentType, URL: url})
	}
	return out
}

func (s *service) RenderPDF(ctx context.Context, actor Actor, id uuid.UUID) ([]byte, error) {
	if s.renderer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document rendering is not configured")
	}
	card, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	property, err := s.repo.FindProperty(ctx, card.PropertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	doc := pdf.CardDocument{
		Title:       card.Title,
		Company:     s.company,
		GeneratedAt: s.now(),
		Property:    summary(property),
		PresentedBy: s.presenter(ctx, card.CreatedBy),
	}
	if card.Message != nil {
		doc.Message = *card.Message
	}
	html, err := pdf.RenderHTML(pdf.TemplateCard, doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render card")
	}
	body, err := s.renderer.Render(ctx, html)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "render card pdf")
	}
	return body, nil
}

func summary(p *models.Property) pdf.PropertySummary {
	parts := make([]string, 0, 3)
	for _, v := range []*string{p.Neighborhood, p.City, p.State} {
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

// owned loads a card its creator or an admin manages.
func (s *service) owned(ctx context.Context, actor Actor, id uuid.UUID) (*models.PresentationCard, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load card")
	}
	if !actor.isAdmin() && card.CreatedBy != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card not found")
	}
	return card, nil
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
