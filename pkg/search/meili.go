// Package search indexes approved listings in Meilisearch.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

const healthInterval = 15 * time.Second

// ErrUnavailable means callers should use their SQL fallback.
var ErrUnavailable = errors.New("search engine unavailable")

// PropertyDocument is the indexed projection of an approved listing.
type PropertyDocument struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Neighborhood  string   `json:"neighborhood"`
	PropertyType  string   `json:"propertyType"`
	OperationType string   `json:"operationType"`
	SalePrice     *float64 `json:"salePrice,omitempty"`
	MonthlyRent   *float64 `json:"monthlyRent,omitempty"`
	Bedrooms      int      `json:"bedrooms"`
	Amenities     []string `json:"amenities"`
	PublishedAt   int64    `json:"publishedAt"`
}

// Query narrows a full-text search.
type Query struct {
	Text          string
	City          string
	PropertyType  string
	OperationType string
	Limit         int
	Offset        int
}

// Index is implemented by Meili and by test fakes.
type Index interface {
	Healthy() bool
	Search(ctx context.Context, q Query) ([]string, int64, error)
	Upsert(ctx context.Context, docs ...PropertyDocument) error
	Delete(ctx context.Context, id string) error
}

type Meili struct {
	client  meili.ServiceManager
	index   string
	logg    *logger.Logger
	healthy atomic.Bool
}

// NewMeili connects to Meilisearch and starts a health monitor bound to ctx.
// An unreachable engine is not fatal; Healthy reports false until it recovers.
func NewMeili(ctx context.Context, cfg config.SearchConfig, logg *logger.Logger) *Meili {
	m := &Meili{
		client: meili.New(cfg.URL, meili.WithAPIKey(cfg.APIKey)),
		index:  cfg.Index,
		logg:   logg,
	}
	m.checkHealth(ctx)
	go m.healthLoop(ctx)
	return m
}

func (m *Meili) checkHealth(ctx context.Context) {
	_, err := m.client.Health()
	wasHealthy := m.healthy.Load()
	m.healthy.Store(err == nil)
	switch {
	case err != nil && wasHealthy:
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "meilisearch became unavailable")
	case err == nil && !wasHealthy:
		m.configureIndex(ctx)
	}
}

func (m *Meili) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkHealth(ctx)
		}
	}
}

func (m *Meili) configureIndex(ctx context.Context) {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.index, PrimaryKey: "id"}); err != nil {
		m.logg.Debug(m.logg.WithField(ctx, "error", err.Error()), "create search index (may already exist)")
	}
	index := m.client.Index(m.index)
	filterable := []interface{}{"city", "propertyType", "operationType"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "update filterable attributes")
	}
	searchable := []string{"title", "description", "neighborhood", "city", "amenities"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "update searchable attributes")
	}
}

func (m *Meili) Healthy() bool {
	return m != nil && m.healthy.Load()
}

// Search returns matching property ids in relevance order.
func (m *Meili) Search(_ context.Context, q Query) ([]string, int64, error) {
	if !m.Healthy() {
		return nil, 0, ErrUnavailable
	}
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}
	req := &meili.SearchRequest{
		Limit:                limit,
		Offset:               int64(q.Offset),
		AttributesToRetrieve: []string{"id"},
	}
	if filters := Filters(q); len(filters) > 0 {
		req.Filter = filters
	}
	resp, err := m.client.Index(m.index).Search(q.Text, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id := decodeString(hit, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, resp.EstimatedTotalHits, nil
}

func (m *Meili) Upsert(_ context.Context, docs ...PropertyDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if !m.Healthy() {
		return ErrUnavailable
	}
	_, err := m.client.Index(m.index).AddDocuments(docs, nil)
	return err
}

func (m *Meili) Delete(_ context.Context, id string) error {
	if !m.Healthy() {
		return ErrUnavailable
	}
	_, err := m.client.Index(m.index).DeleteDocument(id, nil)
	return err
}

// Filters builds Meilisearch filter expressions for q.
func Filters(q Query) []string {
	var filters []string
	if v := strings.TrimSpace(q.City); v != "" {
		filters = append(filters, fmt.Sprintf("city = %q", v))
	}
	if v := strings.TrimSpace(q.PropertyType); v != "" {
		filters = append(filters, fmt.Sprintf("propertyType = %q", v))
	}
	if v := strings.TrimSpace(q.OperationType); v != "" {
		// sale_and_rent listings match both sale and rent searches.
		filters = append(filters, fmt.Sprintf("operationType IN [%q, %q]", v, "sale_and_rent"))
	}
	return filters
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
