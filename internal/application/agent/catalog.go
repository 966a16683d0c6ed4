// Package agent 实现带工具调用的对话编排
package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/domain/entity"
)

// Args 已通过参数校验的工具参数
type Args map[string]any

// String 取字符串参数，缺失时返回空串
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// StringOr 取字符串参数，缺失或为空时返回默认值
func (a Args) StringOr(key, def string) string {
	if s := a.String(key); s != "" {
		return s
	}
	return def
}

// Handler 工具执行函数，返回给模型的文本
type Handler func(ctx context.Context, args Args) (string, error)

// ToolSpec 工具定义，启动时注册后只读
type ToolSpec struct {
	Name    string
	Desc    string
	Params  map[string]*schema.ParameterInfo
	MinTier entity.Tier
	Handler Handler
}

// Info 转换为模型可见的工具描述
func (t *ToolSpec) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        t.Name,
		Desc:        t.Desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(t.Params),
	}
}

// Catalog 工具名到定义的映射
type Catalog struct {
	specs map[string]*ToolSpec
	order []string
}

// NewCatalog 注册工具，重名返回错误
func NewCatalog(specs ...*ToolSpec) (*Catalog, error) {
	c := &Catalog{specs: make(map[string]*ToolSpec, len(specs))}
	for _, s := range specs {
		if s == nil || s.Name == "" || s.Handler == nil {
			return nil, fmt.Errorf("invalid tool spec")
		}
		if _, dup := c.specs[s.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", s.Name)
		}
		if s.MinTier == "" {
			s.MinTier = entity.TierFree
		}
		c.specs[s.Name] = s
		c.order = append(c.order, s.Name)
	}
	return c, nil
}

// Lookup 按名称查找
func (c *Catalog) Lookup(name string) (*ToolSpec, bool) {
	s, ok := c.specs[name]
	return s, ok
}

// Names 按注册顺序返回工具名
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Infos 按注册顺序返回工具描述
func (c *Catalog) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(c.order))
	for _, name := range c.order {
		infos = append(infos, c.specs[name].Info())
	}
	return infos
}
