// Package postgres 基于 GORM 的仓储实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/pkg/logger"
)

const (
	pingTimeout   = 5 * time.Second
	slowThreshold = time.Second
)

var tracer = otel.Tracer("plc-agent-api/postgres")

// models 参与自动迁移的表
var models = []any{
	&entity.User{},
	&entity.Conversation{},
	&entity.Message{},
	&entity.Project{},
	&entity.StageRecord{},
	&entity.GeneratedDocument{},
	&entity.UsageRecord{},
}

// Client 封装 *gorm.DB，仓储共享同一个连接池
type Client struct {
	db *gorm.DB
}

// NewClient 打开连接池并验证可达；连接池统计注册到默认 Prometheus registry
func NewClient(cfg *config.PostgresConfig) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		Logger: gormlogger.NewSlogLogger(logger.Default(), gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Database, err)
	}

	err = prometheus.Register(collectors.NewDBStatsCollector(sqlDB, cfg.Database))
	if are := (prometheus.AlreadyRegisteredError{}); err != nil && !errors.As(err, &are) {
		logger.Warn(ctx, "db stats collector not registered", "error", err)
	}

	return &Client{db: db}, nil
}

// dsn URL 形式，密码中的特殊字符由 url 编码
func dsn(cfg *config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 建表并启用 gen_random_uuid 所需的 pgcrypto
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	db := c.db.WithContext(ctx)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to enable pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// HealthCheck 就绪探针，走一次真实查询而不只是 ping
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HealthCheck")
	defer span.End()

	var one int
	if err := c.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}
