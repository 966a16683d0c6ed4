// Package access 根据订阅等级给出配额、项目上限与可用工具
package access

import (
	"sort"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
)

// 工具名
const (
	ToolGeneratePLCCode = "generate_plc_code"
	ToolTroubleshoot    = "troubleshoot_plc"
	ToolConvertCode     = "convert_plc_code"
	ToolExplainCode     = "explain_plc_code"
	ToolGenerateTagList = "generate_tag_list"
	ToolSaveCodeToFile  = "save_code_to_file"
	ToolSendToTIAPortal = "send_to_tia_portal"
)

// Unbounded 表示不限
const Unbounded = -1

// Policy 单个等级的限制
type Policy struct {
	DailyMessages int
	MaxProjects   int
	Tools         map[string]struct{}
}

var freeTools = []string{
	ToolGeneratePLCCode,
	ToolTroubleshoot,
	ToolExplainCode,
	ToolGenerateTagList,
	ToolSaveCodeToFile,
}

var allTools = append(append([]string{}, freeTools...), ToolConvertCode, ToolSendToTIAPortal)

// DefaultPolicies 内置等级表
func DefaultPolicies() map[entity.Tier]Policy {
	return map[entity.Tier]Policy{
		entity.TierFree:       {DailyMessages: 20, MaxProjects: 3, Tools: toSet(freeTools)},
		entity.TierPro:        {DailyMessages: 200, MaxProjects: Unbounded, Tools: toSet(allTools)},
		entity.TierEnterprise: {DailyMessages: Unbounded, MaxProjects: Unbounded, Tools: toSet(allTools)},
	}
}

// Gate 等级策略查询，构造后只读
type Gate struct {
	policies map[entity.Tier]Policy
}

// NewGate 以内置等级表为基础，应用配置中的覆盖项
func NewGate(cfg *config.Config) *Gate {
	policies := DefaultPolicies()
	if cfg != nil {
		for name, tc := range cfg.Access.Tiers {
			tier := entity.Tier(name)
			if !tier.Valid() {
				continue
			}
			p := policies[tier]
			if tc.DailyMessages != 0 {
				p.DailyMessages = normalizeLimit(tc.DailyMessages)
			}
			if tc.MaxProjects != 0 {
				p.MaxProjects = normalizeLimit(tc.MaxProjects)
			}
			if len(tc.Tools) > 0 {
				p.Tools = toSet(tc.Tools)
			}
			policies[tier] = p
		}
	}
	return &Gate{policies: policies}
}

// NewGateWithPolicies 直接指定等级表
func NewGateWithPolicies(policies map[entity.Tier]Policy) *Gate {
	return &Gate{policies: policies}
}

func (g *Gate) policy(tier entity.Tier) Policy {
	if p, ok := g.policies[tier]; ok {
		return p
	}
	return g.policies[entity.TierFree]
}

// AllowedTools 返回排序后的工具名
func (g *Gate) AllowedTools(tier entity.Tier) []string {
	p := g.policy(tier)
	names := make([]string, 0, len(p.Tools))
	for name := range p.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsToolAllowed 判断等级是否可使用该工具
func (g *Gate) IsToolAllowed(tier entity.Tier, tool string) bool {
	_, ok := g.policy(tier).Tools[tool]
	return ok
}

// Quota 每日消息上限，bounded 为 false 时不限
func (g *Gate) Quota(tier entity.Tier) (limit int, bounded bool) {
	n := g.policy(tier).DailyMessages
	return n, n >= 0
}

// MaxProjects 活跃项目上限，bounded 为 false 时不限
func (g *Gate) MaxProjects(tier entity.Tier) (limit int, bounded bool) {
	n := g.policy(tier).MaxProjects
	return n, n >= 0
}

func normalizeLimit(n int) int {
	if n < 0 {
		return Unbounded
	}
	return n
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
