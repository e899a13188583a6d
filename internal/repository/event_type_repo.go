package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/model"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// EventTypeRepository 事件类型数据访问接口
type EventTypeRepository interface {
	Create(ctx context.Context, et *model.EventType) error
	GetByID(ctx context.Context, id string) (*model.EventType, error)
	GetBySlug(ctx context.Context, userID, slug string) (*model.EventType, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]model.EventType, error)
	Update(ctx context.Context, et *model.EventType) error
	Delete(ctx context.Context, id string) error
	CountBySchedule(ctx context.Context, scheduleID string) (int64, error)
}

type eventTypeRepo struct {
	db *gorm.DB
}

// NewEventTypeRepo 创建 EventTypeRepository 实例
func NewEventTypeRepo(db *gorm.DB) EventTypeRepository {
	return &eventTypeRepo{db: db}
}

func (r *eventTypeRepo) Create(ctx context.Context, et *model.EventType) error {
	return r.db.WithContext(ctx).Create(et).Error
}

func (r *eventTypeRepo) GetByID(ctx context.Context, id string) (*model.EventType, error) {
	var et model.EventType
	err := r.db.WithContext(ctx).
		Preload("Host").
		Where("id = ?", id).
		First(&et).Error
	if err != nil {
		return nil, err
	}
	return &et, nil
}

func (r *eventTypeRepo) GetBySlug(ctx context.Context, userID, slug string) (*model.EventType, error) {
	var et model.EventType
	err := r.db.WithContext(ctx).
		Preload("Host").
		Where("user_id = ? AND slug = ?", userID, slug).
		First(&et).Error
	if err != nil {
		return nil, err
	}
	return &et, nil
}

func (r *eventTypeRepo) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]model.EventType, error) {
	var list []model.EventType
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *eventTypeRepo) Update(ctx context.Context, et *model.EventType) error {
	oldVersion := et.Version
	result := r.db.WithContext(ctx).
		Model(et).
		Where("id = ? AND version = ?", et.ID, oldVersion).
		Updates(map[string]interface{}{
			"title":                 et.Title,
			"slug":                  et.Slug,
			"description":           et.Description,
			"duration_minutes":      et.DurationMinutes,
			"location_type":         et.LocationType,
			"location_details":      et.LocationDetails,
			"color":                 et.Color,
			"is_active":             et.IsActive,
			"buffer_minutes_before": et.BufferMinutesBefore,
			"buffer_minutes_after":  et.BufferMinutesAfter,
			"max_bookings_per_day":  et.MaxBookingsPerDay,
			"min_notice_hours":      et.MinNoticeHours,
			"max_days_in_advance":   et.MaxDaysInAdvance,
			"price_cents":           et.PriceCents,
			"currency":              et.Currency,
			"schedule_id":           et.ScheduleID,
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	et.Version = oldVersion + 1
	return nil
}

// Delete 软删除；已有预约保留对事件类型的引用
func (r *eventTypeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.EventType{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *eventTypeRepo) CountBySchedule(ctx context.Context, scheduleID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.EventType{}).
		Where("schedule_id = ?", scheduleID).
		Count(&n).Error
	return n, err
}
