package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/api/handler"
	"github.com/dix105/calendly-clone/internal/api/middleware"
	"github.com/dix105/calendly-clone/pkg/jwt"
)

// maxBodyBytes JSON 请求体上限
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时公开预约接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开预约页（无需认证）
		v1.GET("/hosts/:username/event-types", h.EventType.ListPublic)
		v1.GET("/hosts/:username/event-types/:slug", h.EventType.GetPublic)

		eventTypes := v1.Group("/event-types/:id")
		{
			eventTypes.GET("/slots", h.Slot.ListSlots)
			eventTypes.POST("/reservations",
				middleware.RateLimit(limiter, cfg.RateLimit.ReserveLimit, cfg.RateLimit.ReserveWindow, logger),
				h.Slot.Reserve,
			)
		}

		// 访客凭取消令牌操作
		bookings := v1.Group("/bookings/:id")
		{
			bookings.POST("/cancel", h.Booking.GuestCancel)
			bookings.GET("/invite.ics", h.Booking.Invite)
		}

		// 主机管理（需要认证）
		me := v1.Group("/me")
		me.Use(middleware.JWTAuth(jwtMgr))
		{
			me.GET("/profile", h.Profile.Get)
			me.PUT("/profile", h.Profile.Upsert)

			// 可用时间方案
			schedules := me.Group("/schedules")
			{
				schedules.GET("", h.Schedule.List)
				schedules.POST("", h.Schedule.Create)
				schedules.GET("/:id", h.Schedule.Get)
				schedules.PUT("/:id", h.Schedule.Update)
				schedules.DELETE("/:id", h.Schedule.Delete)
				schedules.PUT("/:id/weekly-slots", h.Schedule.ReplaceWeeklySlots)
				schedules.PUT("/:id/overrides", h.Schedule.UpsertOverride)
				schedules.DELETE("/:id/overrides/:date", h.Schedule.DeleteOverride)
				schedules.GET("/:id/preview", h.Schedule.Preview)
			}

			// 事件类型
			myEventTypes := me.Group("/event-types")
			{
				myEventTypes.GET("", h.EventType.List)
				myEventTypes.POST("", h.EventType.Create)
				myEventTypes.GET("/:id", h.EventType.Get)
				myEventTypes.PUT("/:id", h.EventType.Update)
				myEventTypes.DELETE("/:id", h.EventType.Delete)
			}

			// 预约
			myBookings := me.Group("/bookings")
			{
				myBookings.GET("", h.Booking.List)
				myBookings.GET("/:id", h.Booking.Get)
				myBookings.POST("/:id/confirm", h.Booking.Confirm)
				myBookings.POST("/:id/cancel", h.Booking.Cancel)
			}

			// 外部日历
			calendars := me.Group("/calendars")
			{
				calendars.GET("", h.Calendar.List)
				calendars.POST("", h.Calendar.Connect)
				calendars.DELETE("/:id", h.Calendar.Disconnect)
			}

			// 导出
			me.GET("/export/bookings", h.Export.ExportBookings)
		}
	}

	return r
}
