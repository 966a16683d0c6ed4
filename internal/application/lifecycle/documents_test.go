package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/domain/entity"
)

type fakeGenerator struct {
	prompts []string
	text    string
	err     error
	files   []string
}

func (g *fakeGenerator) RunOnce(ctx context.Context, _ string, in agent.SubmitInput) (*agent.SubmitResult, error) {
	g.prompts = append(g.prompts, in.Text)
	if g.err != nil {
		return nil, g.err
	}
	for _, f := range g.files {
		agent.RecordFile(ctx, f)
	}
	return &agent.SubmitResult{Text: g.text, Rounds: 1}, nil
}

type fakeUsage struct {
	limit   int
	used    int
	refunds int
}

func (u *fakeUsage) status() quota.Status {
	limit, remaining := u.limit, u.limit-u.used
	return quota.Status{Allowed: u.used < u.limit, Used: u.used, Limit: &limit, Remaining: &remaining}
}

func (u *fakeUsage) Reserve(_ context.Context, userID string, tier entity.Tier) (*quota.Reservation, error) {
	if u.used >= u.limit {
		return nil, &quota.ExceededError{UserID: userID, Tier: tier, Used: u.used, Limit: u.limit}
	}
	u.used++
	return quota.NewReservation(u.status(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.used--
		u.refunds++
		return nil
	}), nil
}

func newDocService(f *fixture, gen Generator, usage UsageCounter) *DocumentService {
	return NewDocumentService(f.ctrl, f.projects, f.docs, gen, usage)
}

func TestGenerate_RecordsVersionAndCountsUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	gen := &fakeGenerator{text: "# FDS\nbody", files: []string{"Main.scl"}}
	usage := &fakeUsage{limit: 20}
	svc := newDocService(f, gen, usage)

	res, err := svc.Generate(ctx, GenerateInput{UserID: "u1", Tier: entity.TierFree, ProjectID: p.ID, DocType: entity.DocTypeFDS, Prompt: "focus on safety"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Document.Version != 1 || res.Document.Stage != entity.StagePlanning || res.Document.Content != "# FDS\nbody" {
		t.Fatalf("document = %+v", res.Document)
	}
	if usage.used != 1 || res.Usage.Used != 1 {
		t.Fatalf("usage = %d / %d", usage.used, res.Usage.Used)
	}
	if len(res.FilesSaved) != 1 || res.FilesSaved[0] != "Main.scl" {
		t.Fatalf("files = %v", res.FilesSaved)
	}
	if !strings.Contains(gen.prompts[0], "Additional instructions: focus on safety") {
		t.Fatalf("prompt missing instructions:\n%s", gen.prompts[0])
	}

	got, _ := f.projects.GetByID(ctx, p.ID)
	if got.FDSContent != "# FDS\nbody" {
		t.Fatalf("fds content = %q", got.FDSContent)
	}
	if _, err := f.ctrl.Advance(ctx, p.ID); err != nil {
		t.Fatalf("advance after generated FDS: %v", err)
	}
}

func TestGenerate_StageFollowsDocType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	svc := newDocService(f, &fakeGenerator{text: "x"}, &fakeUsage{limit: 20})

	want := map[entity.DocType]entity.Stage{
		entity.DocTypeIOList:  entity.StagePlanning,
		entity.DocTypePLCCode: entity.StageExecution,
		entity.DocTypeFAT:     entity.StageTesting,
		entity.DocTypeSAT:     entity.StageTesting,
	}
	for dt, stage := range want {
		res, err := svc.Generate(ctx, GenerateInput{UserID: "u1", ProjectID: p.ID, DocType: dt})
		if err != nil {
			t.Fatalf("%s: %v", dt, err)
		}
		if res.Document.Stage != stage {
			t.Fatalf("%s stage = %s, want %s", dt, res.Document.Stage, stage)
		}
	}
}

func TestGenerate_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	gen := &fakeGenerator{text: "x"}
	svc := newDocService(f, gen, &fakeUsage{limit: 2, used: 2})

	_, err := svc.Generate(ctx, GenerateInput{UserID: "u1", ProjectID: p.ID, DocType: entity.DocTypeFDS})
	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want ExceededError", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("generator called %d times", len(gen.prompts))
	}
}

func TestGenerate_ModelFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	usage := &fakeUsage{limit: 20}
	svc := newDocService(f, &fakeGenerator{err: &agent.ModelUnavailableError{Err: errors.New("503")}}, usage)

	_, err := svc.Generate(ctx, GenerateInput{UserID: "u1", ProjectID: p.ID, DocType: entity.DocTypeFDS})
	var unavailable *agent.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v", err)
	}
	if usage.used != 0 || usage.refunds != 1 {
		t.Fatalf("usage = %d refunds = %d", usage.used, usage.refunds)
	}
	if n, _ := f.docs.CountByType(ctx, p.ID, entity.DocTypeFDS); n != 0 {
		t.Fatalf("documents = %d", n)
	}
}

func TestGenerate_CancelledRequestKeepsCountAndDocument(t *testing.T) {
	f := newFixture()
	p := f.newProject(context.Background(), "u1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	usage := &fakeUsage{limit: 20}
	svc := newDocService(f, &fakeGenerator{text: "# FDS"}, usage)

	res, err := svc.Generate(ctx, GenerateInput{UserID: "u1", ProjectID: p.ID, DocType: entity.DocTypeFDS})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if usage.used != 1 || usage.refunds != 0 || res.Usage.Used != 1 {
		t.Fatalf("usage = %d refunds = %d", usage.used, usage.refunds)
	}
	if n, _ := f.docs.CountByType(context.Background(), p.ID, entity.DocTypeFDS); n != 1 {
		t.Fatalf("documents = %d", n)
	}
}

func TestGenerate_OtherUsersProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "owner")
	svc := newDocService(f, &fakeGenerator{text: "x"}, &fakeUsage{limit: 20})

	_, err := svc.Generate(ctx, GenerateInput{UserID: "intruder", ProjectID: p.ID, DocType: entity.DocTypeFDS})
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
	if _, err := svc.Get(ctx, "intruder", p.ID, "d-1"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("get err = %v", err)
	}
}

func TestUploadFDS(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	svc := newDocService(f, &fakeGenerator{}, &fakeUsage{limit: 20})

	if _, err := svc.UploadFDS(ctx, "u1", p.ID, "spec.md", " "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("empty err = %v", err)
	}
	doc, err := svc.UploadFDS(ctx, "u1", p.ID, "spec.md", "uploaded fds")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if doc.Title != "FDS - spec.md" || doc.DocType != entity.DocTypeFDS {
		t.Fatalf("doc = %+v", doc)
	}

	got, err := svc.Get(ctx, "u1", p.ID, doc.ID)
	if err != nil || got.Content != "uploaded fds" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, "u1", p.ID, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	docs, _ := svc.List(ctx, "u1", p.ID)
	if len(docs) != 1 {
		t.Fatalf("list = %d", len(docs))
	}
}

func TestRecord_InvalidDocType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.newProject(ctx, "u1")
	svc := newDocService(f, &fakeGenerator{}, &fakeUsage{limit: 20})

	_, err := svc.Record(ctx, "u1", RecordInput{ProjectID: p.ID, DocType: "MANUAL", Content: "x"})
	if !errors.Is(err, ErrInvalidDocType) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPrompt_Defaults(t *testing.T) {
	p := entity.NewProject("u1", "Mixer", "allen_bradley")
	prompt := BuildPrompt(p, entity.DocTypeIOList, "")
	for _, want := range []string{"Allen-Bradley", "CPU: S7-1500", "Network: PROFINET", "No FDS available"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Additional instructions") {
		t.Error("unexpected instructions line")
	}
}
