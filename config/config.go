package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Listing  ListingConfig  `mapstructure:"listing"`
	Map      MapConfig      `mapstructure:"map"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// UpstreamConfig 上游 REST API 配置
// 所有页面统一使用 base_url，不再在代码中硬编码开发环境地址
type UpstreamConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryCount    int           `mapstructure:"retry_count"`
	ProfilePath   string        `mapstructure:"profile_path"`
	LocationsPath string        `mapstructure:"locations_path"`
	CitiesPath    string        `mapstructure:"cities_path"`
}

// DatabaseConfig PostgreSQL 数据库配置（审计日志）
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
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 会话配置
type AuthConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	BypassRoles   []string      `mapstructure:"bypass_roles"`
	Cookie        CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig 会话 Cookie 配置
type CookieConfig struct {
	Name     string `mapstructure:"name"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ListingConfig 列表页行为配置
type ListingConfig struct {
	SearchDebounce  time.Duration `mapstructure:"search_debounce"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency"`
	OptionsCacheTTL time.Duration `mapstructure:"options_cache_ttl"`
}

// MapConfig 地图视图配置
type MapConfig struct {
	OverviewLat     float64       `mapstructure:"overview_lat"`
	OverviewLng     float64       `mapstructure:"overview_lng"`
	OverviewZoom    float64       `mapstructure:"overview_zoom"`
	FocusZoom       float64       `mapstructure:"focus_zoom"`
	FitPadding      float64       `mapstructure:"fit_padding"`
	PopupStagger    time.Duration `mapstructure:"popup_stagger"`
	HighlightRadius float64       `mapstructure:"highlight_radius"` // 米
	DataCacheTTL    time.Duration `mapstructure:"data_cache_ttl"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

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
	v.SetEnvPrefix("MEDCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("upstream.base_url", "http://localhost:8000")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.retry_count", 0)
	v.SetDefault("upstream.profile_path", "/api/me")
	v.SetDefault("upstream.locations_path", "/api/health-facilities/locations")
	v.SetDefault("upstream.cities_path", "/api/cities")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "medconsole")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Jakarta")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("auth.bypass_roles", []string{"super-admin"})
	v.SetDefault("auth.cookie.name", "medconsole_session")
	v.SetDefault("auth.cookie.secure", false)
	v.SetDefault("auth.cookie.same_site", "Lax")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("listing.search_debounce", "400ms")
	v.SetDefault("listing.bulk_concurrency", 8)
	v.SetDefault("listing.options_cache_ttl", "5m")

	// 全国概览视角（印度尼西亚中心）
	v.SetDefault("map.overview_lat", -2.5489)
	v.SetDefault("map.overview_lng", 118.0149)
	v.SetDefault("map.overview_zoom", 5)
	v.SetDefault("map.focus_zoom", 15)
	v.SetDefault("map.fit_padding", 0.05)
	v.SetDefault("map.popup_stagger", "150ms")
	v.SetDefault("map.highlight_radius", 500)
	v.SetDefault("map.data_cache_ttl", "1m")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("配置校验失败: auth.session_secret 不能为空")
	}
	if len(c.Auth.SessionSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.session_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("配置校验失败: upstream.base_url 必须是完整的 URL")
	}
	if c.Listing.BulkConcurrency <= 0 {
		return fmt.Errorf("配置校验失败: listing.bulk_concurrency 必须大于 0")
	}
	return nil
}
