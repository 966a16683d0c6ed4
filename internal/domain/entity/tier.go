package entity

import "strings"

// Tier 订阅等级
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tiers 按等级从低到高排列
var Tiers = []Tier{TierFree, TierPro, TierEnterprise}

// ParseTier 解析等级，未知值回落到最严格的 free
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro
	case TierEnterprise:
		return TierEnterprise
	default:
		return TierFree
	}
}

// Rank 等级序号，越大权限越高
func (t Tier) Rank() int {
	switch t {
	case TierPro:
		return 1
	case TierEnterprise:
		return 2
	default:
		return 0
	}
}

// AtLeast 当前等级是否不低于 other
func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

func (t Tier) String() string {
	return string(t)
}

// Valid 是否为已知等级
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}
