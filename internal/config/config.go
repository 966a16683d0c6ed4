// Package config 配置结构与加载：config.yaml，config.<env>.yaml 覆盖，最后是环境变量
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Agent         AgentConfig         `yaml:"agent" mapstructure:"agent"`
	Bridge        BridgeConfig        `yaml:"bridge" mapstructure:"bridge"`
	Quota         QuotaConfig         `yaml:"quota" mapstructure:"quota"`
	Access        AccessConfig        `yaml:"access" mapstructure:"access"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// AgentConfig 对话编排配置
type AgentConfig struct {
	// SystemPromptPath 系统提示词文件，为空时使用内置提示词
	SystemPromptPath string `yaml:"system_prompt_path" mapstructure:"system_prompt_path"`
	// MaxToolRounds 单次提交允许的模型轮次上限
	MaxToolRounds      int           `yaml:"max_tool_rounds" mapstructure:"max_tool_rounds"`
	MaxTokens          int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	ToolMaxTokens      int           `yaml:"tool_max_tokens" mapstructure:"tool_max_tokens"`
	ModelTimeout       time.Duration `yaml:"model_timeout" mapstructure:"model_timeout"`
	ToolTimeout        time.Duration `yaml:"tool_timeout" mapstructure:"tool_timeout"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" mapstructure:"session_idle_timeout"`
	JanitorInterval    time.Duration `yaml:"janitor_interval" mapstructure:"janitor_interval"`
	OutputDir          string        `yaml:"output_dir" mapstructure:"output_dir"`
	// AllowedModels 允许客户端覆盖的模型列表，为空表示不限制
	AllowedModels []string `yaml:"allowed_models" mapstructure:"allowed_models"`
}

// BridgeConfig TIA Portal 自动化网关配置
type BridgeConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	StatusTimeout  time.Duration `yaml:"status_timeout" mapstructure:"status_timeout"`
	ActionTimeout  time.Duration `yaml:"action_timeout" mapstructure:"action_timeout"`
	CompileTimeout time.Duration `yaml:"compile_timeout" mapstructure:"compile_timeout"`
	StatusCacheTTL time.Duration `yaml:"status_cache_ttl" mapstructure:"status_cache_ttl"`
}

// QuotaConfig 每日消息配额配置
type QuotaConfig struct {
	// Store 计数存储：postgres / redis
	Store    string `yaml:"store" mapstructure:"store"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// AccessConfig 订阅等级策略
type AccessConfig struct {
	Tiers map[string]TierConfig `yaml:"tiers" mapstructure:"tiers"`
}

// TierConfig 单个等级的限制，负数表示不限
type TierConfig struct {
	DailyMessages int      `yaml:"daily_messages" mapstructure:"daily_messages"`
	MaxProjects   int      `yaml:"max_projects" mapstructure:"max_projects"`
	Tools         []string `yaml:"tools" mapstructure:"tools"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	MaxLen          int    `yaml:"max_len" mapstructure:"max_len"`
	LifecycleStream string `yaml:"lifecycle_stream" mapstructure:"lifecycle_stream"`
	AuditStream     string `yaml:"audit_stream" mapstructure:"audit_stream"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	Secret            string        `yaml:"secret" mapstructure:"secret"`
	Issuer            string        `yaml:"issuer" mapstructure:"issuer"`
	Expiration        time.Duration `yaml:"expiration" mapstructure:"expiration"`
	RefreshExpiration time.Duration `yaml:"refresh_expiration" mapstructure:"refresh_expiration"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
