package properties

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/search"
)

const reindexBatch = 200

// Search queries the search engine and falls back to SQL when it is not
// configured, unhealthy or failing.
func (s *service) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	limit := pagination.NormalizeLimit(in.Limit)
	offset := in.Offset
	if offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	if in.PropertyType != "" && !enums.PropertyType(in.PropertyType).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid property type")
	}
	if in.OperationType != "" && !enums.OperationType(in.OperationType).IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation type")
	}

	if s.index != nil && s.index.Healthy() {
		res, err := s.searchIndex(ctx, in, limit, offset)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, search.ErrUnavailable) {
			s.logg.Error(ctx, "property search failed, using sql fallback", err)
		}
	}

	rows, total, err := s.repo.SearchText(ctx, in, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search properties")
	}
	items := make([]PropertyDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &SearchResult{Items: items, Total: total, Fallback: true}, nil
}

func (s *service) searchIndex(ctx context.Context, in SearchInput, limit, offset int) (*SearchResult, error) {
	ids, total, err := s.index.Search(ctx, search.Query{
		Text:          strings.TrimSpace(in.Text),
		City:          strings.TrimSpace(in.City),
		PropertyType:  in.PropertyType,
		OperationType: in.OperationType,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, err
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		parsed = append(parsed, id)
	}
	rows, err := s.repo.FindByIDs(ctx, parsed)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Property, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	// keep engine ranking; drop hits that are gone or no longer approved
	items := make([]PropertyDTO, 0, len(parsed))
	for _, id := range parsed {
		p, ok := byID[id]
		if !ok || p.ApprovalStatus != enums.ApprovalApproved {
			continue
		}
		items = append(items, *FromModel(p))
	}
	return &SearchResult{Items: items, Total: total}, nil
}

// Reindex pushes every approved listing to the search engine.
func (s *service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "search engine is not configured")
	}
	indexed := 0
	for offset := 0; ; offset += reindexBatch {
		rows, _, err := s.repo.SearchText(ctx, SearchInput{}, reindexBatch, offset)
		if err != nil {
			return indexed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approved properties")
		}
		if len(rows) == 0 {
			return indexed, nil
		}
		docs := make([]search.PropertyDocument, 0, len(rows))
		for i := range rows {
			docs = append(docs, toDocument(FromModel(&rows[i])))
		}
		if err := s.index.Upsert(ctx, docs...); err != nil {
			return indexed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "index properties")
		}
		indexed += len(docs)
		if len(rows) < reindexBatch {
			return indexed, nil
		}
	}
}

func (s *service) syncIndex(ctx context.Context, p *PropertyDTO) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(ctx, toDocument(p)); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "property_id", p.ID.String()), "index property", err)
	}
}

func (s *service) dropFromIndex(ctx context.Context, id uuid.UUID) {
	if s.index == nil {
		return
	}
	if err := s.index.Delete(ctx, id.String()); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "property_id", id.String()), "remove property from index", err)
	}
}

func toDocument(p *PropertyDTO) search.PropertyDocument {
	doc := search.PropertyDocument{
		ID:            p.ID.String(),
		Title:         p.Title,
		Description:   deref(p.Description),
		City:          deref(p.City),
		State:         deref(p.State),
		Neighborhood:  deref(p.Neighborhood),
		PropertyType:  string(p.PropertyType),
		OperationType: string(p.OperationType),
		Amenities:     p.Amenities,
	}
	if p.SalePrice != nil {
		v, _ := p.SalePrice.Float64()
		doc.SalePrice = &v
	}
	if p.MonthlyRent != nil {
		v, _ := p.MonthlyRent.Float64()
		doc.MonthlyRent = &v
	}
	if p.Bedrooms != nil {
		doc.Bedrooms = *p.Bedrooms
	}
	if p.PublishedAt != nil {
		doc.PublishedAt = p.PublishedAt.Unix()
	}
	return doc
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
