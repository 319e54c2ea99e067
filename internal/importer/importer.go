package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/internal/properties"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/slug"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options control a single import run.
type Options struct {
	DryRun  bool
	Aliases map[string]string
}

// Matched pairs a row with the owner it resolved to.
type Matched struct {
	Line    int       `json:"line"`
	Title   string    `json:"title"`
	Slug    string    `json:"slug"`
	OwnerID uuid.UUID `json:"owner_id"`
	Match   MatchKind `json:"match"`
}

// Report summarizes an import run.
type Report struct {
	DryRun    bool       `json:"dry_run"`
	Total     int        `json:"total"`
	Matched   []Matched  `json:"matched"`
	Unmatched []RowIssue `json:"unmatched"`
	Invalid   []RowIssue `json:"invalid"`
	Inserted  int        `json:"inserted"`
}

type Importer struct {
	db    *gorm.DB
	tx    txRunner
	props properties.Repository
	logg  *logger.Logger
}

func New(db *gorm.DB, tx txRunner, logg *logger.Logger) (*Importer, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Importer{db: db, tx: tx, props: properties.NewRepository(db), logg: logg}, nil
}

// LoadOwners lists the active owner accounts rows may be attributed to.
func (i *Importer) LoadOwners(ctx context.Context) ([]Owner, error) {
	var users []models.User
	err := i.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", enums.UserRoleOwner, true).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	owners := make([]Owner, 0, len(users))
	for _, u := range users {
		owners = append(owners, Owner{ID: u.ID, Email: strings.ToLower(u.Email), Name: u.FullName()})
	}
	return owners, nil
}

// Run matches every row and, unless DryRun is set, inserts the matched rows
// as draft properties in one transaction.
func (i *Importer) Run(ctx context.Context, rows []Row, invalid []RowIssue, opts Options) (*Report, error) {
	owners, err := i.LoadOwners(ctx)
	if err != nil {
		return nil, err
	}
	matcher := NewMatcher(owners, opts.Aliases)
	report := &Report{DryRun: opts.DryRun, Total: len(rows) + len(invalid), Invalid: invalid}

	var accepted []Row
	for _, row := range rows {
		owner, kind, err := matcher.Match(row)
		if err != nil {
			report.Unmatched = append(report.Unmatched, RowIssue{
				Line:   row.Line,
				Title:  row.Title,
				Owner:  row.OwnerName,
				Reason: err.Error(),
			})
			continue
		}
		report.Matched = append(report.Matched, Matched{Line: row.Line, Title: row.Title, OwnerID: owner.ID, Match: kind})
		accepted = append(accepted, row)
	}

	err = i.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := i.props.WithTx(tx)
		taken := map[string][]string{}
		for idx, row := range accepted {
			base := slug.Make(row.Title)
			if _, ok := taken[base]; !ok {
				existing, err := repo.SlugsWithPrefix(ctx, base)
				if err != nil {
					return fmt.Errorf("line %d: slugs: %w", row.Line, err)
				}
				taken[base] = existing
			}
			s := slug.Unique(base, taken[base])
			taken[base] = append(taken[base], s)
			report.Matched[idx].Slug = s
			if opts.DryRun {
				continue
			}
			if err := repo.Create(ctx, draftProperty(row, s, report.Matched[idx].OwnerID)); err != nil {
				return fmt.Errorf("line %d: insert: %w", row.Line, err)
			}
			report.Inserted++
		}
		return nil
	})
	if err != nil {
		report.Inserted = 0
		return report, err
	}

	logCtx := i.logg.WithFields(ctx, map[string]any{
		"dry_run":   opts.DryRun,
		"total":     report.Total,
		"matched":   len(report.Matched),
		"unmatched": len(report.Unmatched),
		"invalid":   len(report.Invalid),
		"inserted":  report.Inserted,
	})
	i.logg.Info(logCtx, "import finished")
	return report, nil
}

func draftProperty(row Row, s string, owner uuid.UUID) *models.Property {
	p := &models.Property{
		Title:          row.Title,
		Slug:           s,
		PropertyType:   row.PropertyType,
		OperationType:  row.OperationType,
		Currency:       row.Currency,
		Bedrooms:       row.Bedrooms,
		Bathrooms:      row.Bathrooms,
		AreaM2:         row.AreaM2,
		OwnerID:        owner,
		ApprovalStatus: enums.ApprovalDraft,
		WizardStep:     1,
	}
	if row.Price != nil {
		if row.OperationType == enums.OperationRent {
			p.MonthlyRent = row.Price
		} else {
			p.SalePrice = row.Price
		}
	}
	p.Description = optional(row.Description)
	p.City = optional(row.City)
	p.Neighborhood = optional(row.Neighborhood)
	p.State = optional(row.State)
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
