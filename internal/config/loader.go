package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigDir = "configs"

// Load 从 ./configs 加载
func Load() (*Config, error) {
	return LoadFrom(defaultConfigDir)
}

// LoadFrom 依次合并 config.yaml 与 config.<APP_ENV>.yaml，环境变量优先级最高
// 文件中的 ${VAR} 与 ${VAR:default} 在解析前展开
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	files := []struct {
		path     string
		optional bool
	}{
		{filepath.Join(dir, "config.yaml"), false},
		{filepath.Join(dir, "config."+env+".yaml"), true},
	}
	for _, f := range files {
		if err := mergeFile(v, f.path, f.optional); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(v *viper.Viper, path string, optional bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.MergeConfig(bytes.NewReader([]byte(expandEnv(string(raw))))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// expandEnv 展开 ${VAR} 与 ${VAR:default}；未定义且无默认值的占位符原样保留
func expandEnv(s string) string {
	return os.Expand(s, func(ref string) string {
		name, def, hasDefault := strings.Cut(ref, ":")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if hasDefault {
			return def
		}
		return "${" + ref + "}"
	})
}

func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}

// defaults 配置文件缺项时的兜底值
var defaults = map[string]any{
	"app.name":    "plc-agent-api",
	"app.version": "v0.0.0",
	"app.env":     "development",

	"server.http.host":          "0.0.0.0",
	"server.http.port":          8080,
	"server.http.read_timeout":  "30s",
	"server.http.write_timeout": "300s",
	"server.http.idle_timeout":  "120s",

	"database.postgres.host":               "localhost",
	"database.postgres.port":               5432,
	"database.postgres.user":               "postgres",
	"database.postgres.database":           "plc_agent",
	"database.postgres.ssl_mode":           "disable",
	"database.postgres.max_open_conns":     50,
	"database.postgres.max_idle_conns":     10,
	"database.postgres.conn_max_lifetime":  "30m",
	"database.postgres.conn_max_idle_time": "5m",

	"cache.redis.host":           "localhost",
	"cache.redis.port":           6379,
	"cache.redis.pool_size":      100,
	"cache.redis.min_idle_conns": 10,
	"cache.redis.dial_timeout":   "5s",
	"cache.redis.read_timeout":   "3s",
	"cache.redis.write_timeout":  "3s",

	"llm.default_provider": "openrouter",

	"agent.max_tool_rounds":      8,
	"agent.max_tokens":           4096,
	"agent.tool_max_tokens":      4096,
	"agent.model_timeout":        "120s",
	"agent.tool_timeout":         "90s",
	"agent.session_idle_timeout": "30m",
	"agent.janitor_interval":     "1m",
	"agent.output_dir":           "output",

	"bridge.base_url":         "http://localhost:8765",
	"bridge.status_timeout":   "3s",
	"bridge.action_timeout":   "30s",
	"bridge.compile_timeout":  "60s",
	"bridge.status_cache_ttl": "5s",

	"quota.store":    QuotaStorePostgres,
	"quota.timezone": "UTC",

	"messaging.redis_stream.enabled":          true,
	"messaging.redis_stream.max_len":          10000,
	"messaging.redis_stream.lifecycle_stream": "stream:project:lifecycle",
	"messaging.redis_stream.audit_stream":     "stream:audit:log",

	"observability.logging.level":       "info",
	"observability.logging.format":      "json",
	"observability.logging.output":      "stdout",
	"observability.tracing.endpoint":    "localhost:4317",
	"observability.tracing.sample_rate": 1.0,
	"observability.tracing.insecure":    true,
	"observability.metrics.enabled":     true,
	"observability.metrics.path":        "/metrics",

	"security.jwt.issuer":                     "plc-agent",
	"security.jwt.expiration":                 "24h",
	"security.jwt.refresh_expiration":         "168h",
	"security.rate_limit.enabled":             true,
	"security.rate_limit.requests_per_second": 20,
}
