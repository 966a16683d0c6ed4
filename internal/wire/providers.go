// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/infrastructure/bridge"
	"plc-agent-api/internal/infrastructure/llm"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/internal/infrastructure/persistence/postgres"
	"plc-agent-api/internal/infrastructure/persistence/redis"
	"plc-agent-api/internal/infrastructure/storage"
	"plc-agent-api/internal/interfaces/http/handler"
	"plc-agent-api/internal/interfaces/http/middleware"
	"plc-agent-api/internal/interfaces/http/router"
	"plc-agent-api/pkg/logger"
)

// App 网关进程需要的顶层对象
type App struct {
	Router   *router.Router
	Registry *agent.Registry
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient *postgres.Client
	UserRepo *postgres.UserRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者，未启用时发布为空操作
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	rs := cfg.Messaging.RedisStream
	opts := messaging.ProducerOptions{
		MaxLen:          int64(rs.MaxLen),
		LifecycleStream: rs.LifecycleStream,
		AuditStream:     rs.AuditStream,
	}
	if !rs.Enabled {
		return messaging.NewProducer(nil, opts)
	}
	return messaging.NewProducer(redisClient.Redis(), opts)
}

// ProvideUsageStore 按配置选择每日计数存储
func ProvideUsageStore(cfg *config.Config, pgStore *postgres.UsageRepository, redisStore *redis.UsageStore) (quota.Store, error) {
	switch cfg.Quota.Store {
	case "", config.QuotaStorePostgres:
		return pgStore, nil
	case config.QuotaStoreRedis:
		return redisStore, nil
	default:
		return nil, fmt.Errorf("unknown quota store: %s", cfg.Quota.Store)
	}
}

// ProvideChatModel 提供默认对话模型
func ProvideChatModel(ctx context.Context, factory *llm.EinoFactory) (model.ToolCallingChatModel, error) {
	m, err := factory.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init chat model: %w", err)
	}
	return m, nil
}

// ProvideOrchestrator 组装工具目录、调度器与编排器
func ProvideOrchestrator(cfg *config.Config, m model.ToolCallingChatModel, outputs *storage.OutputStore, br *bridge.Client, gate *access.Gate) (*agent.Orchestrator, error) {
	ac := cfg.Agent
	toolTokens := ac.ToolMaxTokens
	if toolTokens <= 0 {
		toolTokens = 4096
	}
	completer := agent.NewModelCompleter(m, toolTokens, ac.ModelTimeout)

	catalog, err := agent.NewToolbox(completer, outputs, br).Catalog()
	if err != nil {
		return nil, err
	}
	dispatcher := agent.NewDispatcher(catalog, gate, ac.ToolTimeout)

	return agent.NewOrchestrator(m, dispatcher, agent.Options{
		SystemPrompt: agent.LoadSystemPrompt(ac.SystemPromptPath),
		MaxRounds:    ac.MaxToolRounds,
		MaxTokens:    ac.MaxTokens,
		ModelTimeout: ac.ModelTimeout,
	})
}

// ProvideRegistry 提供会话注册表
func ProvideRegistry(cfg *config.Config, orch *agent.Orchestrator, store agent.HistoryStore) *agent.Registry {
	return agent.NewRegistry(orch, store, cfg.Agent.SessionIdleTimeout)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, cfg.App.Version)
}

// ProvideAuthConfig 提供认证配置
func ProvideAuthConfig(cfg *config.Config) middleware.AuthConfig {
	return middleware.AuthConfig{
		Secret:    cfg.Security.JWT.Secret,
		Issuer:    cfg.Security.JWT.Issuer,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   true,
	}
}

// ProvideOutputStore 提供输出目录存储
func ProvideOutputStore(ctx context.Context, cfg *config.Config) (*storage.OutputStore, error) {
	store, err := storage.NewOutputStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "output directory ready", "dir", store.Dir())
	return store, nil
}
