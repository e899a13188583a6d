package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// HostService 主机资料接口；主机 ID 来自身份令牌
type HostService interface {
	GetProfile(ctx context.Context, hostID string) (*dto.ProfileResponse, error)
	UpsertProfile(ctx context.Context, hostID string, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error)
}

type hostService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewHostService 创建 HostService 实例
func NewHostService(repo *repository.Repository, logger *zap.Logger) HostService {
	return &hostService{repo: repo, logger: logger}
}

func (s *hostService) GetProfile(ctx context.Context, hostID string) (*dto.ProfileResponse, error) {
	host, err := s.repo.Host.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHostNotFound
		}
		s.logger.Error("查询主机资料失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	return toProfileResponse(host), nil
}

func (s *hostService) UpsertProfile(ctx context.Context, hostID string, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error) {
	if _, err := loadLocation(req.Timezone); err != nil {
		return nil, err
	}

	host := &model.Host{
		ID:       hostID,
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Timezone: req.Timezone,
	}
	if err := s.repo.Host.Upsert(ctx, host); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("保存主机资料失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	return toProfileResponse(host), nil
}

func toProfileResponse(h *model.Host) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:       h.ID,
		Username: h.Username,
		FullName: h.FullName,
		Email:    h.Email,
		Timezone: h.Timezone,
	}
}

func toHostBrief(h *model.Host) *dto.HostBrief {
	return &dto.HostBrief{
		Username: h.Username,
		FullName: h.FullName,
		Timezone: h.Timezone,
	}
}
