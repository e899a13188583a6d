package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/model"
)

// CalendarRepository 外部日历数据访问接口
type CalendarRepository interface {
	Create(ctx context.Context, cal *model.Calendar) error
	ListByUser(ctx context.Context, userID string) ([]model.Calendar, error)
	Delete(ctx context.Context, userID, id string) error
}

type calendarRepo struct {
	db *gorm.DB
}

// NewCalendarRepo 创建 CalendarRepository 实例
func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) Create(ctx context.Context, cal *model.Calendar) error {
	return r.db.WithContext(ctx).Create(cal).Error
}

func (r *calendarRepo) ListByUser(ctx context.Context, userID string) ([]model.Calendar, error) {
	var list []model.Calendar
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *calendarRepo) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Calendar{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
