package accounting

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

// Repository exposes the commission ledger and payout tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListRecords(ctx context.Context, v Viewer, f RecordFilter, limit, offset int) ([]RecordRow, error)
	FindRecords(ctx context.Context, ids []uuid.UUID) ([]models.CommissionRecord, error)
	TransitionRecords(ctx context.Context, ids []uuid.UUID, from []enums.CommissionStatus, updates map[string]any) (int64, error)
	ApprovePending(ctx context.Context, p period.Period) (int64, error)
	CreatePayment(ctx context.Context, payment *models.ExternalPayment) error
	ListPayments(ctx context.Context, v Viewer, f PaymentFilter, limit, offset int) ([]models.ExternalPayment, error)
	PaymentRecordIDs(ctx context.Context, paymentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAgency(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type recordScan struct {
	models.CommissionRecord
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	Email     string `gorm:"column:email"`
}

func (s recordScan) row() RecordRow {
	rec := s.CommissionRecord
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	return RecordRow{
		ID:               rec.ID,
		ContractID:       rec.ContractID,
		UserID:           rec.UserID,
		UserName:         name,
		UserEmail:        s.Email,
		ParticipantRole:  rec.ParticipantRole,
		ExternalAgencyID: rec.ExternalAgencyID,
		LeadID:           rec.LeadID,
		OperationType:    rec.OperationType,
		BaseAmount:       rec.BaseAmount,
		Percentage:       rec.Percentage,
		Amount:           rec.Amount,
		Currency:         rec.Currency,
		SourceTier:       rec.SourceTier,
		Status:           rec.Status,
		PeriodStart:      rec.PeriodStart,
		PeriodEnd:        rec.PeriodEnd,
		PaymentID:        rec.PaymentID,
		CreatedAt:        rec.CreatedAt,
	}
}

// ListRecords returns ledger rows visible to v. A non-positive limit returns
// every matching row.
func (r *repository) ListRecords(ctx context.Context, v Viewer, f RecordFilter, limit, offset int) ([]RecordRow, error) {
	query := r.db.WithContext(ctx).
		Table("commission_records").
		Select("commission_records.*, users.first_name, users.last_name, users.email").
		Joins("JOIN users ON users.id = commission_records.user_id")
	query = scopeRecords(query, v)

	if f.Period != nil {
		query = query.Where("commission_records.period_start = ?", f.Period.Start)
	}
	if f.Status != "" {
		query = query.Where("commission_records.status = ?", f.Status)
	}
	if f.UserID != nil {
		query = query.Where("commission_records.user_id = ?", *f.UserID)
	}
	if f.AgencyID != nil {
		query = query.Where("commission_records.external_agency_id = ?", *f.AgencyID)
	}

	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	switch f.Sort {
	case SortAmount:
		query = query.Order("commission_records.amount" + dir)
	case SortUser:
		query = query.Order("users.last_name" + dir).Order("users.first_name" + dir)
	default:
		query = query.Order("commission_records.created_at" + dir)
	}
	query = query.Order("commission_records.id" + dir)

	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var scans []recordScan
	if err := query.Scan(&scans).Error; err != nil {
		return nil, err
	}
	out := make([]RecordRow, 0, len(scans))
	for _, s := range scans {
		out = append(out, s.row())
	}
	return out, nil
}

func scopeRecords(query *gorm.DB, v Viewer) *gorm.DB {
	if v.Role == enums.UserRoleExternalAgent {
		if v.AgencyID == nil {
			return query.Where("1 = 0")
		}
		return query.Where("commission_records.external_agency_id = ?", *v.AgencyID)
	}
	if !v.All {
		return query.Where("commission_records.user_id = ?", v.UserID)
	}
	return query
}

func (r *repository) FindRecords(ctx context.Context, ids []uuid.UUID) ([]models.CommissionRecord, error) {
	var rows []models.CommissionRecord
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) TransitionRecords(ctx context.Context, ids []uuid.UUID, from []enums.CommissionStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("id IN ? AND status IN ?", ids, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ApprovePending(ctx context.Context, p period.Period) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("period_start = ? AND status = ?", p.Start, enums.CommissionPending).
		Update("status", enums.CommissionApproved)
	return res.RowsAffected, res.Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.ExternalPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, v Viewer, f PaymentFilter, limit, offset int) ([]models.ExternalPayment, error) {
	query := r.db.WithContext(ctx).Model(&models.ExternalPayment{})
	switch {
	case v.Role == enums.UserRoleExternalAgent:
		if v.AgencyID == nil {
			return nil, nil
		}
		query = query.Where("external_agency_id = ?", *v.AgencyID)
	case !v.All:
		query = query.Where("user_id = ?", v.UserID)
	}
	if f.Period != nil {
		query = query.Where("period_start = ?", f.Period.Start)
	}
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.AgencyID != nil {
		query = query.Where("external_agency_id = ?", *f.AgencyID)
	}
	query = query.Order("paid_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var rows []models.ExternalPayment
	err := query.Find(&rows).Error
	return rows, err
}

func (r *repository) PaymentRecordIDs(ctx context.Context, paymentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(paymentIDs))
	if len(paymentIDs) == 0 {
		return out, nil
	}
	var rows []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Select("id", "payment_id").
		Where("payment_id IN ?", paymentIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.PaymentID != nil {
			out[*row.PaymentID] = append(out[*row.PaymentID], row.ID)
		}
	}
	return out, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindAgency(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error) {
	var agency models.ExternalAgency
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&agency).Error; err != nil {
		return nil, err
	}
	return &agency, nil
}
