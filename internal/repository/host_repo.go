package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dix105/calendly-clone/internal/model"
)

// HostRepository 主机资料数据访问接口
type HostRepository interface {
	GetByID(ctx context.Context, id string) (*model.Host, error)
	GetByUsername(ctx context.Context, username string) (*model.Host, error)
	Upsert(ctx context.Context, host *model.Host) error
}

type hostRepo struct {
	db *gorm.DB
}

// NewHostRepo 创建 HostRepository 实例
func NewHostRepo(db *gorm.DB) HostRepository {
	return &hostRepo{db: db}
}

func (r *hostRepo) GetByID(ctx context.Context, id string) (*model.Host, error) {
	var host model.Host
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&host).Error; err != nil {
		return nil, err
	}
	return &host, nil
}

func (r *hostRepo) GetByUsername(ctx context.Context, username string) (*model.Host, error) {
	var host model.Host
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&host).Error; err != nil {
		return nil, err
	}
	return &host, nil
}

func (r *hostRepo) Upsert(ctx context.Context, host *model.Host) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "email", "timezone", "updated_at"}),
		}).
		Create(host).Error
}
