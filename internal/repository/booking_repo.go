package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dix105/calendly-clone/internal/model"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ErrBookingOverlap 占用区间与同一主机的有效预约相交
var ErrBookingOverlap = errors.New("预约时间与已有预约重叠")

// exclusion_violation
const pgExclusionViolation = "23P01"

// activeClause 有效预约：已确认，或待付款且占位未过期
const activeClause = "(status = 'confirmed' OR (status = 'pending' AND (hold_expires_at IS NULL OR hold_expires_at > ?)))"

// BookingFilter 预约列表筛选条件
type BookingFilter struct {
	UserID string
	Status string
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// BookingRepository 预约数据访问接口
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]model.Booking, int64, error)

	// ListActiveInRange 占用区间与 [from, to) 相交的有效预约，按 blocked_start 升序
	ListActiveInRange(ctx context.Context, userID string, from, to, now time.Time) ([]model.Booking, error)
	// CountActiveForEventType 开始时间落在 [from, to) 的有效预约数
	CountActiveForEventType(ctx context.Context, eventTypeID string, from, to, now time.Time) (int64, error)

	// CreateIfNoOverlap 仅当占用区间与该主机的有效预约均不相交时插入，否则返回 ErrBookingOverlap
	CreateIfNoOverlap(ctx context.Context, booking *model.Booking, now time.Time) error
	// Transition 仅当当前状态属于 from 时更新，否则返回 ErrOptimisticLock
	Transition(ctx context.Context, id string, from []string, updates map[string]interface{}) error
	// ExpireStaleHolds 取消占位已过期的待付款预约；userID 为空时处理全部主机
	ExpireStaleHolds(ctx context.Context, userID string, now time.Time) ([]model.Booking, error)

	// WithHostLock 在持有主机级事务锁的事务中执行 fn，fn 返回错误时回滚
	WithHostLock(ctx context.Context, userID string, fn func(tx BookingRepository) error) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		Preload("EventType").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepo) List(ctx context.Context, filter BookingFilter) ([]model.Booking, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Booking{}).Where("user_id = ?", filter.UserID)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("start_time < ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Booking
	q := db.Preload("EventType").Order("start_time ASC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *bookingRepo) ListActiveInRange(ctx context.Context, userID string, from, to, now time.Time) ([]model.Booking, error) {
	var list []model.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND blocked_start < ? AND blocked_end > ?", userID, to, from).
		Where(activeClause, now).
		Order("blocked_start ASC, blocked_end ASC").
		Find(&list).Error
	return list, err
}

func (r *bookingRepo) CountActiveForEventType(ctx context.Context, eventTypeID string, from, to, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("event_type_id = ? AND start_time >= ? AND start_time < ?", eventTypeID, from, to).
		Where(activeClause, now).
		Count(&n).Error
	return n, err
}

func (r *bookingRepo) CreateIfNoOverlap(ctx context.Context, booking *model.Booking, now time.Time) error {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("user_id = ? AND blocked_start < ? AND blocked_end > ?", booking.UserID, booking.BlockedEnd, booking.BlockedStart).
		Where(activeClause, now).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrBookingOverlap
	}

	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrBookingOverlap
		}
		return err
	}
	return nil
}

func (r *bookingRepo) Transition(ctx context.Context, id string, from []string, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = gorm.Expr("NOW()")
	}
	result := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *bookingRepo) ExpireStaleHolds(ctx context.Context, userID string, now time.Time) ([]model.Booking, error) {
	var expired []model.Booking
	db := r.db.WithContext(ctx).
		Model(&expired).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "user_id"}}}).
		Where("status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?", model.BookingStatusPending, now)
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	}
	err := db.Updates(map[string]interface{}{
		"status":        model.BookingStatusCancelled,
		"cancelled_at":  now,
		"cancel_reason": "hold expired",
		"updated_at":    now,
	}).Error
	return expired, err
}

// WithHostLock 以 pg_advisory_xact_lock 串行化同一主机的写入，锁随事务结束释放
func (r *bookingRepo) WithHostLock(ctx context.Context, userID string, fn func(tx BookingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID).Error; err != nil {
			return err
		}
		return fn(&bookingRepo{db: tx})
	})
}
