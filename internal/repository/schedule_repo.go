package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dix105/calendly-clone/internal/model"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ScheduleRepository 可用时间方案数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.AvailabilitySchedule) error
	GetByID(ctx context.Context, id string) (*model.AvailabilitySchedule, error)
	GetDefault(ctx context.Context, userID string) (*model.AvailabilitySchedule, error)
	ListByUser(ctx context.Context, userID string) ([]model.AvailabilitySchedule, error)
	Update(ctx context.Context, schedule *model.AvailabilitySchedule) error
	Delete(ctx context.Context, id string) error

	ReplaceWeeklySlots(ctx context.Context, scheduleID string, slots []model.WeeklySlot) error
	UpsertOverride(ctx context.Context, override *model.DateOverride) error
	DeleteOverride(ctx context.Context, scheduleID string, date time.Time) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

// Create 新方案为默认时，同一事务内取消该主机原有默认方案
func (r *scheduleRepo) Create(ctx context.Context, schedule *model.AvailabilitySchedule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if schedule.IsDefault {
			if err := clearDefault(tx, schedule.UserID, ""); err != nil {
				return err
			}
		}
		return tx.Create(schedule).Error
	})
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.AvailabilitySchedule, error) {
	var schedule model.AvailabilitySchedule
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week ASC, start_time ASC")
		}).
		Preload("Overrides", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		Where("id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) GetDefault(ctx context.Context, userID string) (*model.AvailabilitySchedule, error) {
	var schedule model.AvailabilitySchedule
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, schedule.ID)
}

func (r *scheduleRepo) ListByUser(ctx context.Context, userID string) ([]model.AvailabilitySchedule, error) {
	var schedules []model.AvailabilitySchedule
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week ASC, start_time ASC")
		}).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&schedules).Error
	return schedules, err
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *scheduleRepo) Update(ctx context.Context, schedule *model.AvailabilitySchedule) error {
	oldVersion := schedule.Version
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if schedule.IsDefault {
			if err := clearDefault(tx, schedule.UserID, schedule.ID); err != nil {
				return err
			}
		}
		result := tx.Model(schedule).
			Where("id = ? AND version = ?", schedule.ID, oldVersion).
			Updates(map[string]interface{}{
				"name":       schedule.Name,
				"timezone":   schedule.Timezone,
				"is_default": schedule.IsDefault,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		schedule.Version = oldVersion + 1
		return nil
	})
}

func (r *scheduleRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.AvailabilitySchedule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_default": false,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// ReplaceWeeklySlots 整体替换每周窗口
func (r *scheduleRepo) ReplaceWeeklySlots(ctx context.Context, scheduleID string, slots []model.WeeklySlot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", scheduleID).Delete(&model.WeeklySlot{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		for i := range slots {
			slots[i].ScheduleID = scheduleID
		}
		return tx.Create(&slots).Error
	})
}

// UpsertOverride 按 (schedule_id, date) 新增或覆盖日期例外
func (r *scheduleRepo) UpsertOverride(ctx context.Context, override *model.DateOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "schedule_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_unavailable", "start_time", "end_time", "updated_at"}),
		}).
		Create(override).Error
}

func (r *scheduleRepo) DeleteOverride(ctx context.Context, scheduleID string, date time.Time) error {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ? AND date = ?", scheduleID, date.Format(time.DateOnly)).
		Delete(&model.DateOverride{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func clearDefault(tx *gorm.DB, userID, exceptID string) error {
	q := tx.Model(&model.AvailabilitySchedule{}).
		Where("user_id = ? AND is_default = ?", userID, true)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Update("is_default", false).Error
}
