package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/infrastructure/bridge"
)

func newTestToolbox(c *fakeCompleter, f *fakeFiles, b *fakeBridge) (*Toolbox, *Dispatcher) {
	tb := NewToolbox(c, f, b)
	tb.now = func() time.Time { return time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC) }
	catalog, err := tb.Catalog()
	if err != nil {
		panic(err)
	}
	return tb, NewDispatcher(catalog, access.NewGate(nil), time.Second)
}

func TestCatalogMatchesGateTiers(t *testing.T) {
	_, d := newTestToolbox(&fakeCompleter{}, &fakeFiles{}, &fakeBridge{})
	gate := access.NewGate(nil)
	for _, name := range d.Catalog().Names() {
		spec, _ := d.Catalog().Lookup(name)
		if !gate.IsToolAllowed(spec.MinTier, name) {
			t.Errorf("%s requires %s but the gate does not allow it there", name, spec.MinTier)
		}
	}
	if len(d.Catalog().Names()) != 7 {
		t.Fatalf("catalog size = %d", len(d.Catalog().Names()))
	}
}

func TestGeneratePLCCodeSavesAndRecords(t *testing.T) {
	c := &fakeCompleter{out: "FUNCTION_BLOCK FB_Pump\nEND_FUNCTION_BLOCK"}
	f := &fakeFiles{}
	_, d := newTestToolbox(c, f, &fakeBridge{})

	ctx, files := WithFileCollector(context.Background())
	res := d.Invoke(ctx, access.ToolGeneratePLCCode, `{"description":"pump control","platform":"siemens","block_name":"FB_Pump"}`, entity.TierFree)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if f.saved["FB_Pump.scl"] != c.out {
		t.Fatalf("saved = %v", f.saved)
	}
	if got := files.Files(); len(got) != 1 || got[0] != "FB_Pump.scl" {
		t.Fatalf("files = %v", got)
	}
	if !strings.Contains(c.prompts[0], "Siemens TIA Portal") || !strings.Contains(res.Content, "Saved to: output/FB_Pump.scl") {
		t.Fatalf("prompt/res mismatch: %s", res.Content)
	}
}

func TestTagListAndConversionFileNames(t *testing.T) {
	c := &fakeCompleter{out: "Name,Type"}
	f := &fakeFiles{}
	_, d := newTestToolbox(c, f, &fakeBridge{})
	ctx := context.Background()

	if res := d.Invoke(ctx, access.ToolGenerateTagList, `{"description":"mixer","platform":"allen_bradley","format":"json"}`, entity.TierFree); res.Err != nil {
		t.Fatal(res.Err)
	}
	if _, ok := f.saved["taglist_20260301_083000.json"]; !ok {
		t.Fatalf("saved = %v", f.saved)
	}
	if res := d.Invoke(ctx, access.ToolConvertCode, `{"source_code":"x","source_platform":"siemens","target_platform":"codesys"}`, entity.TierPro); res.Err != nil {
		t.Fatal(res.Err)
	}
	if _, ok := f.saved["converted_20260301_083000.st"]; !ok {
		t.Fatalf("saved = %v", f.saved)
	}
}

func TestSaveFileName(t *testing.T) {
	cases := map[[2]string]string{
		{"motor", "siemens"}:        "motor.scl",
		{"motor", "allen_bradley"}:  "motor.st",
		{"motor.L5X", "siemens"}:    "motor.L5X",
		{"tags.csv", "codesys"}:     "tags.csv",
		{"motor", "unknown_vendor"}: "motor.scl",
	}
	for in, want := range cases {
		if got := SaveFileName(in[0], in[1]); got != want {
			t.Errorf("SaveFileName(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestSaveCodeToFileRejectsBadName(t *testing.T) {
	f := &fakeFiles{err: errors.New("invalid file name")}
	_, d := newTestToolbox(&fakeCompleter{}, f, &fakeBridge{})

	res := d.Invoke(context.Background(), access.ToolSaveCodeToFile, `{"filename":"../x","content":"y"}`, entity.TierFree)
	if res.Err == nil || res.Err.Kind != KindExecutionFailed {
		t.Fatalf("res = %+v", res)
	}
}

func TestSendToTIAPortal(t *testing.T) {
	b := &fakeBridge{result: &bridge.ActionResult{Success: true, Message: "compiled"}}
	_, d := newTestToolbox(&fakeCompleter{}, &fakeFiles{}, b)
	ctx := context.Background()

	res := d.Invoke(ctx, access.ToolSendToTIAPortal, `{"block_name":"FB_Pump","action":"compile"}`, entity.TierPro)
	if res.Err != nil || !strings.Contains(res.Content, "compile 'FB_Pump' - SUCCESS") {
		t.Fatalf("res = %+v", res)
	}

	res = d.Invoke(ctx, access.ToolSendToTIAPortal, `{"block_name":"FB_Pump","action":"compile"}`, entity.TierFree)
	if res.Err == nil || res.Err.Kind != KindToolNotPermitted {
		t.Fatalf("free tier res = %+v", res)
	}

	res = d.Invoke(ctx, access.ToolSendToTIAPortal, `{"block_name":"FB_Pump","action":"import"}`, entity.TierPro)
	if res.Err == nil || !strings.Contains(res.Text(), "scl_code") {
		t.Fatalf("import without code = %+v", res)
	}

	b.err = errors.Join(bridge.ErrUnreachable, errors.New("connection refused"))
	res = d.Invoke(ctx, access.ToolSendToTIAPortal, `{"block_name":"FB_Pump","action":"export"}`, entity.TierPro)
	if res.Err != nil || !strings.Contains(res.Content, "Cannot connect to TIA Portal bridge at http://bridge.local:8765") {
		t.Fatalf("unreachable res = %+v", res)
	}
}
