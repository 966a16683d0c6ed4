// bootstrap 迁移表结构并确保存在一个管理员账号，可重复执行
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/wire"
	"plc-agent-api/pkg/logger"
)

const defaultAdminEmail = "admin@plc-agent.local"

func main() {
	skipMigrate := flag.Bool("skip-migrate", false, "do not run schema migration")
	tierFlag := flag.String("tier", string(entity.TierEnterprise), "tier granted to the admin account")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(ctx, "failed to load config", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format, cfg.Observability.Logging.Output)

	data, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	if !*skipMigrate {
		if err := data.PgClient.AutoMigrate(ctx); err != nil {
			logger.Fatal(ctx, "failed to migrate schema", err)
		}
		logger.Info(ctx, "schema migrated")
	}

	email := envOr("BOOTSTRAP_ADMIN_EMAIL", defaultAdminEmail)
	password := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if err := ensureAdmin(ctx, data.UserRepo, email, password, entity.ParseTier(*tierFlag)); err != nil {
		logger.Fatal(ctx, "failed to provision admin", err, "email", email)
	}
	logger.Info(ctx, "bootstrap completed")
}

// ensureAdmin 不存在时创建；已存在时只在等级不足时提升
func ensureAdmin(ctx context.Context, users repository.UserRepository, email, password string, tier entity.Tier) error {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Tier.Rank() >= tier.Rank() {
			logger.Info(ctx, "admin already provisioned", "email", email, "tier", existing.Tier)
			return nil
		}
		existing.Tier = tier
		if err := users.Update(ctx, existing); err != nil {
			return err
		}
		logger.Info(ctx, "admin tier raised", "email", email, "tier", tier)
		return nil
	}

	if password == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD is required to create the admin account")
	}
	admin := entity.NewUser(email, "admin")
	admin.FullName = "System Admin"
	admin.Tier = tier
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info(ctx, "admin created", "email", email, "tier", tier)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
