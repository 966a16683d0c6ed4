//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/chat"
	"plc-agent-api/internal/application/lifecycle"
	"plc-agent-api/internal/application/project"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/infrastructure/bridge"
	"plc-agent-api/internal/infrastructure/llm"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/internal/infrastructure/persistence/postgres"
	"plc-agent-api/internal/infrastructure/persistence/redis"
	"plc-agent-api/internal/interfaces/http/handler"
	"plc-agent-api/internal/interfaces/http/middleware"
	"plc-agent-api/internal/interfaces/http/router"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewUserRepository,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器与会话注册表）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		AgentSet,
		ServiceSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewConversationRepository,
	postgres.NewMessageRepository,
	postgres.NewProjectRepository,
	postgres.NewStageRepository,
	postgres.NewDocumentRepository,
	postgres.NewUsageRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.ConversationRepository), new(*postgres.ConversationRepository)),
	wire.Bind(new(repository.MessageRepository), new(*postgres.MessageRepository)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.StageRepository), new(*postgres.StageRepository)),
	wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	redis.NewUsageStore,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(lifecycle.EventPublisher), new(*messaging.Producer)),
	wire.Bind(new(middleware.AuditPublisher), new(*messaging.Producer)),
	wire.Bind(new(chat.AuditPublisher), new(*messaging.Producer)),
)

// AgentSet 模型、工具与会话
var AgentSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideChatModel,
	ProvideOutputStore,
	bridge.NewClient,
	access.NewGate,
	ProvideOrchestrator,
	chat.NewHistoryStore,
	wire.Bind(new(agent.HistoryStore), new(*chat.HistoryStore)),
	ProvideRegistry,
)

// ServiceSet 应用服务
var ServiceSet = wire.NewSet(
	ProvideUsageStore,
	quota.NewCounter,
	lifecycle.NewController,
	lifecycle.NewDocumentService,
	project.NewService,
	chat.NewService,
	wire.Bind(new(chat.Sessions), new(*agent.Registry)),
	wire.Bind(new(chat.UsageCounter), new(*quota.Counter)),
	wire.Bind(new(chat.ToolLister), new(*access.Gate)),
	wire.Bind(new(lifecycle.UsageCounter), new(*quota.Counter)),
	wire.Bind(new(lifecycle.Generator), new(*agent.Orchestrator)),
	wire.Bind(new(project.Limits), new(*access.Gate)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideAuthConfig,
	ProvideHealthHandler,
	handler.NewAuthHandler,
	handler.NewChatHandler,
	handler.NewProfileHandler,
	wire.Bind(new(handler.UsageReporter), new(*chat.Service)),
	handler.NewProjectHandler,
	handler.NewBridgeHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	wire.Struct(new(router.RouterDeps), "*"),
	router.NewWithDeps,
)
