package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// CalendarService 外部日历连接管理
type CalendarService interface {
	List(ctx context.Context, hostID string) ([]dto.CalendarResponse, error)
	Connect(ctx context.Context, hostID string, req *dto.ConnectCalendarRequest) (*dto.CalendarResponse, error)
	Disconnect(ctx context.Context, hostID, id string) error
}

type calendarService struct {
	repo   *repository.Repository
	cache  SlotCache
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, cache SlotCache, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, cache: cache, logger: logger}
}

func (s *calendarService) List(ctx context.Context, hostID string) ([]dto.CalendarResponse, error) {
	list, err := s.repo.Calendar.ListByUser(ctx, hostID)
	if err != nil {
		s.logger.Error("查询日历列表失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	out := make([]dto.CalendarResponse, 0, len(list))
	for i := range list {
		out = append(out, toCalendarResponse(&list[i]))
	}
	return out, nil
}

func (s *calendarService) Connect(ctx context.Context, hostID string, req *dto.ConnectCalendarRequest) (*dto.CalendarResponse, error) {
	cal := &model.Calendar{
		UserID:            hostID,
		Provider:          req.Provider,
		ProviderAccountID: req.ProviderAccountID,
		IsPrimary:         req.IsPrimary,
	}
	switch req.Provider {
	case model.CalendarProviderGoogle:
		if req.AccessToken == nil || *req.AccessToken == "" {
			return nil, ErrCalendarSpecError
		}
		cal.AccessToken = req.AccessToken
		cal.RefreshToken = req.RefreshToken
		cal.ExpiresAt = req.ExpiresAt
	case model.CalendarProviderICS:
		if req.FeedURL == nil || !validFeedURL(*req.FeedURL) {
			return nil, ErrCalendarSpecError
		}
		cal.FeedURL = req.FeedURL
	default:
		return nil, ErrCalendarSpecError
	}

	if err := s.repo.Calendar.Create(ctx, cal); err != nil {
		s.logger.Error("保存日历连接失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)

	s.logger.Info("外部日历已连接",
		zap.String("calendar_id", cal.ID),
		zap.String("provider", cal.Provider),
	)
	resp := toCalendarResponse(cal)
	return &resp, nil
}

func (s *calendarService) Disconnect(ctx context.Context, hostID, id string) error {
	if err := s.repo.Calendar.Delete(ctx, hostID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCalendarNotFound
		}
		s.logger.Error("删除日历连接失败", zap.String("calendar_id", id), zap.Error(err))
		return pkgerrors.Persistence(err)
	}
	invalidateHost(ctx, s.cache, s.logger, hostID)
	return nil
}

func validFeedURL(u string) bool {
	u = strings.ToLower(u)
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "webcal://")
}

func toCalendarResponse(c *model.Calendar) dto.CalendarResponse {
	return dto.CalendarResponse{
		ID:                c.ID,
		Provider:          c.Provider,
		ProviderAccountID: c.ProviderAccountID,
		FeedURL:           c.FeedURL,
		IsPrimary:         c.IsPrimary,
		CreatedAt:         formatTime(c.CreatedAt),
	}
}
