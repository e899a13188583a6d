package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 身份令牌校验配置（令牌由外部身份服务签发）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BookingConfig 预约相关配置
type BookingConfig struct {
	PendingHoldTTL  time.Duration `mapstructure:"pending_hold_ttl"`  // 待支付预约的占位时长
	ExpirySweepCron string        `mapstructure:"expiry_sweep_cron"` // 过期占位清理任务
	ReserveTimeout  time.Duration `mapstructure:"reserve_timeout"`   // 单次预约在主机队列中的最长等待
	SlotCacheTTL    time.Duration `mapstructure:"slot_cache_ttl"`    // 可选时段缓存，0 表示关闭
}

// CalendarConfig 外部日历忙碌来源配置
type CalendarConfig struct {
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	MaxFeedBytes       int64         `mapstructure:"max_feed_bytes"`
	GoogleClientID     string        `mapstructure:"google_client_id"`     // 为空时不刷新过期的 access token
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
}

// RateLimitConfig 公开预约接口限流
type RateLimitConfig struct {
	ReserveLimit  int           `mapstructure:"reserve_limit"`
	ReserveWindow time.Duration `mapstructure:"reserve_window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "calendly")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.access_token_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("booking.pending_hold_ttl", "15m")
	v.SetDefault("booking.expiry_sweep_cron", "@every 1m")
	v.SetDefault("booking.reserve_timeout", "10s")
	v.SetDefault("booking.slot_cache_ttl", "30s")

	v.SetDefault("calendar.fetch_timeout", "3s")
	v.SetDefault("calendar.max_feed_bytes", 10<<20)

	v.SetDefault("rate_limit.reserve_limit", 10)
	v.SetDefault("rate_limit.reserve_window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Booking.PendingHoldTTL <= 0 {
		return fmt.Errorf("配置校验失败: booking.pending_hold_ttl 必须为正")
	}
	if c.Booking.ReserveTimeout <= 0 {
		return fmt.Errorf("配置校验失败: booking.reserve_timeout 必须为正")
	}
	if c.Booking.SlotCacheTTL < 0 {
		return fmt.Errorf("配置校验失败: booking.slot_cache_ttl 不能为负")
	}
	if _, err := cron.ParseStandard(c.Booking.ExpirySweepCron); err != nil {
		return fmt.Errorf("配置校验失败: booking.expiry_sweep_cron 无效: %w", err)
	}
	if c.Calendar.FetchTimeout <= 0 {
		return fmt.Errorf("配置校验失败: calendar.fetch_timeout 必须为正")
	}
	if c.RateLimit.ReserveLimit <= 0 || c.RateLimit.ReserveWindow <= 0 {
		return fmt.Errorf("配置校验失败: rate_limit 配置必须为正")
	}
	return nil
}
