// Package llm 按提供商构建并缓存 Eino ChatModel
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/service"
)

// Builder 由提供商配置构建模型，测试中替换
type Builder func(ctx context.Context, name string, cfg config.ProviderConfig) (model.ToolCallingChatModel, error)

// EinoFactory 每个提供商只构建一次
type EinoFactory struct {
	cfg   *config.LLMConfig
	build Builder

	mu     sync.RWMutex
	models map[string]model.ToolCallingChatModel
}

func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return NewEinoFactoryWithBuilder(&cfg.LLM, buildOpenAI)
}

func NewEinoFactoryWithBuilder(cfg *config.LLMConfig, build Builder) *EinoFactory {
	return &EinoFactory{cfg: cfg, build: build, models: make(map[string]model.ToolCallingChatModel)}
}

// Get name 为空时取默认提供商
func (f *EinoFactory) Get(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
	if name == "" {
		name = f.cfg.DefaultProvider
	}
	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.models[name]; ok {
		return m, nil
	}
	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("llm provider %q is not configured", name)
	}
	built, err := f.build(ctx, name, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to build chat model for %s: %w", name, err)
	}
	m = &providerTagged{inner: built, provider: name}
	f.models[name] = m
	return m, nil
}

func (f *EinoFactory) Default(ctx context.Context) (model.ToolCallingChatModel, error) {
	return f.Get(ctx, "")
}

// DefaultModelName 默认提供商的模型名，用于用量记录
func (f *EinoFactory) DefaultModelName() string {
	return f.cfg.Providers[f.cfg.DefaultProvider].Model
}

// providerTagged 在调用上下文中标注提供商，供回调打标签
type providerTagged struct {
	inner    model.ToolCallingChatModel
	provider string
}

func (p *providerTagged) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return p.inner.Generate(service.WithProvider(ctx, p.provider), in, opts...)
}

func (p *providerTagged) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return p.inner.Stream(service.WithProvider(ctx, p.provider), in, opts...)
}

func (p *providerTagged) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := p.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &providerTagged{inner: bound, provider: p.provider}, nil
}

// buildOpenAI OpenAI 兼容接口，OpenRouter 与本地推理服务都走这里
func buildOpenAI(ctx context.Context, _ string, pc config.ProviderConfig) (model.ToolCallingChatModel, error) {
	mc := &openai.ChatModelConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   pc.Model,
		Timeout: pc.Timeout,
	}
	if pc.MaxTokens > 0 {
		mc.MaxTokens = &pc.MaxTokens
	}
	if pc.Temperature > 0 {
		t := float32(pc.Temperature)
		mc.Temperature = &t
	}
	return openai.NewChatModel(ctx, mc)
}
