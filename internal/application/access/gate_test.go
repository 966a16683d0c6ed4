package access

import (
	"testing"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
)

func TestAllowedToolsNonDecreasingByTier(t *testing.T) {
	g := NewGate(nil)
	for i := 1; i < len(entity.Tiers); i++ {
		lower, higher := entity.Tiers[i-1], entity.Tiers[i]
		for _, tool := range g.AllowedTools(lower) {
			if !g.IsToolAllowed(higher, tool) {
				t.Errorf("%s allows %s but %s does not", lower, tool, higher)
			}
		}
	}
}

func TestDefaultTable(t *testing.T) {
	g := NewGate(nil)

	if n, bounded := g.Quota(entity.TierFree); !bounded || n != 20 {
		t.Fatalf("free quota = %d/%v", n, bounded)
	}
	if n, bounded := g.Quota(entity.TierPro); !bounded || n != 200 {
		t.Fatalf("pro quota = %d/%v", n, bounded)
	}
	if _, bounded := g.Quota(entity.TierEnterprise); bounded {
		t.Fatal("enterprise quota should be unbounded")
	}
	if n, bounded := g.MaxProjects(entity.TierFree); !bounded || n != 3 {
		t.Fatalf("free projects = %d/%v", n, bounded)
	}
	if _, bounded := g.MaxProjects(entity.TierPro); bounded {
		t.Fatal("pro projects should be unbounded")
	}
	if len(g.AllowedTools(entity.TierFree)) != 5 || len(g.AllowedTools(entity.TierPro)) != 7 {
		t.Fatalf("tool counts: free=%d pro=%d", len(g.AllowedTools(entity.TierFree)), len(g.AllowedTools(entity.TierPro)))
	}
	if g.IsToolAllowed(entity.TierFree, ToolSendToTIAPortal) {
		t.Fatal("free tier must not drive the automation bridge")
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	g := NewGate(nil)
	n, _ := g.Quota(entity.Tier("platinum"))
	if n != 20 {
		t.Fatalf("unknown tier quota = %d", n)
	}
	if g.IsToolAllowed(entity.Tier("platinum"), ToolConvertCode) {
		t.Fatal("unknown tier should get the free tool set")
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Access.Tiers = map[string]config.TierConfig{
		"free":  {DailyMessages: 5, Tools: []string{ToolExplainCode}},
		"pro":   {MaxProjects: 10},
		"bogus": {DailyMessages: 1},
	}
	g := NewGate(cfg)

	if n, _ := g.Quota(entity.TierFree); n != 5 {
		t.Fatalf("free quota = %d", n)
	}
	if got := g.AllowedTools(entity.TierFree); len(got) != 1 || got[0] != ToolExplainCode {
		t.Fatalf("free tools = %v", got)
	}
	if n, bounded := g.MaxProjects(entity.TierPro); !bounded || n != 10 {
		t.Fatalf("pro projects = %d/%v", n, bounded)
	}
	if n, _ := g.Quota(entity.TierPro); n != 200 {
		t.Fatalf("pro quota changed: %d", n)
	}
}
