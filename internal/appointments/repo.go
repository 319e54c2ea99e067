package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Only cancelled appointments release a concierge slot.
var blockingStatuses = []enums.AppointmentStatus{
	enums.AppointmentPending,
	enums.AppointmentConfirmed,
	enums.AppointmentCompleted,
	enums.AppointmentNoShow,
}

var remindableStatuses = []enums.AppointmentStatus{enums.AppointmentPending, enums.AppointmentConfirmed}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, a *models.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error
	// ConciergeWindow returns the blocking appointments of a concierge that
	// start before end and could still be running at start.
	ConciergeWindow(ctx context.Context, conciergeID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.Appointment, error)
	LockUser(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, viewer Actor, f ListFilter, limit, offset int) ([]models.Appointment, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	DueReminders(ctx context.Context, from, to time.Time, limit int) ([]models.Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, a *models.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ConciergeWindow(ctx context.Context, conciergeID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]models.Appointment, error) {
	earliest := start.Add(-MaxDurationMinutes * time.Minute)
	q := r.db.WithContext(ctx).
		Where("concierge_id = ?", conciergeID).
		Where("status IN ?", blockingStatuses).
		Where("scheduled_at < ? AND scheduled_at > ?", end, earliest)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var rows []models.Appointment
	err := q.Order("scheduled_at ASC").Find(&rows).Error
	return rows, err
}

// LockUser serializes bookings for one concierge on Postgres. Other
// dialects run the overlap check without a row lock.
func (r *repository) LockUser(ctx context.Context, id uuid.UUID) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	var u models.User
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&u).Error
}

func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit, offset int) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	switch viewer.Role {
	case enums.UserRoleAdmin, enums.UserRoleSeller:
	case enums.UserRoleConcierge:
		q = q.Where("concierge_id = ?", viewer.UserID)
	case enums.UserRoleOwner:
		owned := r.db.Model(&models.Property{}).Select("id").Where("owner_id = ?", viewer.UserID)
		q = q.Where("property_id IN (?)", owned)
	default:
		q = q.Where("client_id = ?", viewer.UserID)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if f.ConciergeID != nil {
		q = q.Where("concierge_id = ?", *f.ConciergeID)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("scheduled_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("scheduled_at < ?", f.To.UTC())
	}
	var rows []models.Appointment
	err := q.Order("scheduled_at ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *repository) FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) DueReminders(ctx context.Context, from, to time.Time, limit int) ([]models.Appointment, error) {
	var rows []models.Appointment
	err := r.db.WithContext(ctx).
		Where("status IN ?", remindableStatuses).
		Where("reminder_sent_at IS NULL").
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkReminded claims the reminder for one appointment; false means another
// run already claimed it.
func (r *repository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	return res.RowsAffected == 1, res.Error
}
