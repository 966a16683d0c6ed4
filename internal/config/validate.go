package config

import (
	"errors"
	"fmt"
)

// 配额计数存储
const (
	QuotaStorePostgres = "postgres"
	QuotaStoreRedis    = "redis"
)

const insecureJWTSecret = "change-me"

// Validate 启动前拒绝明显错误的配置，所有问题一起返回
func (c *Config) Validate() error {
	var errs []error
	if c.Security.JWT.Secret == "" {
		errs = append(errs, errors.New("security.jwt.secret is required"))
	}
	if c.App.Env == "production" && c.Security.JWT.Secret == insecureJWTSecret {
		errs = append(errs, errors.New("security.jwt.secret must be changed in production"))
	}
	switch c.Quota.Store {
	case "", QuotaStorePostgres, QuotaStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("quota.store %q is not one of postgres, redis", c.Quota.Store))
	}
	if c.Agent.MaxToolRounds < 1 {
		errs = append(errs, fmt.Errorf("agent.max_tool_rounds must be positive, got %d", c.Agent.MaxToolRounds))
	}
	if r := c.Observability.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing.sample_rate %v out of [0,1]", r))
	}
	return errors.Join(errs...)
}
