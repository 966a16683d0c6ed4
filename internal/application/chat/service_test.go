package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	goredis "github.com/redis/go-redis/v9"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/application/quota"
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/internal/infrastructure/persistence/redis"
)

type fakeSessions struct {
	mu     sync.Mutex
	inputs []agent.SubmitInput
	convs  []string
	files  []string
	err    error
	resets int
	// during 在会话处理期间调用，用于模拟客户端断开
	during func()
}

func (f *fakeSessions) Submit(ctx context.Context, _ string, conversationID string, in agent.SubmitInput) (*agent.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	f.convs = append(f.convs, conversationID)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	for _, name := range f.files {
		agent.RecordFile(ctx, name)
	}
	return &agent.SubmitResult{Text: "done", Rounds: 2}, nil
}

func (f *fakeSessions) Reset(string) int {
	f.resets++
	return 1
}

type memConvs struct {
	mu    sync.Mutex
	items map[string]*entity.Conversation
}

func newMemConvs() *memConvs {
	return &memConvs{items: make(map[string]*entity.Conversation)}
}

func (m *memConvs) Create(_ context.Context, c *entity.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = fmt.Sprintf("c-%d", len(m.items)+1)
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memConvs) GetByID(_ context.Context, id string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memConvs) GetForUser(ctx context.Context, userID, id string) (*entity.Conversation, error) {
	c, _ := m.GetByID(ctx, id)
	if c == nil || c.UserID != userID {
		return nil, nil
	}
	return c, nil
}

func (m *memConvs) ListByUser(_ context.Context, userID string, pg repository.Pagination) (*repository.PagedResult[*entity.Conversation], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range m.items {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return repository.NewPagedResult(out, int64(len(out)), pg), nil
}

func (m *memConvs) Update(_ context.Context, c *entity.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memConvs) Touch(context.Context, string) error { return nil }

func (m *memConvs) Archive(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Archived = true
	return nil
}

type memMessages struct {
	mu   sync.Mutex
	rows []*entity.Message
}

func (m *memMessages) AppendBatch(_ context.Context, msgs []*entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		for _, r := range m.rows {
			if r.ConversationID == msg.ConversationID && r.Seq == msg.Seq {
				return fmt.Errorf("duplicate seq %d", msg.Seq)
			}
		}
		m.rows = append(m.rows, msg)
	}
	return nil
}

func (m *memMessages) ListByConversation(_ context.Context, conversationID string) ([]*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Message
	for _, r := range m.rows {
		if r.ConversationID == conversationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMessages) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	rows, _ := m.ListByConversation(ctx, conversationID)
	return len(rows), nil
}

type fakeUsage struct {
	mu      sync.Mutex
	limit   int
	used    int
	refunds int
}

func (u *fakeUsage) status() quota.Status {
	limit, remaining := u.limit, u.limit-u.used
	return quota.Status{Allowed: u.used < u.limit, Used: u.used, Limit: &limit, Remaining: &remaining}
}

func (u *fakeUsage) Check(context.Context, string, entity.Tier) (quota.Status, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status(), nil
}

func (u *fakeUsage) Reserve(_ context.Context, userID string, tier entity.Tier) (*quota.Reservation, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.used >= u.limit {
		return nil, &quota.ExceededError{UserID: userID, Tier: tier, Used: u.used, Limit: u.limit}
	}
	u.used++
	return quota.NewReservation(u.status(), func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.mu.Lock()
		defer u.mu.Unlock()
		u.used--
		u.refunds++
		return nil
	}), nil
}

type staticTools []string

func (s staticTools) AllowedTools(entity.Tier) []string { return s }

type recordingAudit struct {
	mu   sync.Mutex
	logs []*messaging.AuditLogMessage
}

func (r *recordingAudit) PublishAuditLog(_ context.Context, log *messaging.AuditLogMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return "1-0", nil
}

type harness struct {
	sessions *fakeSessions
	convs    *memConvs
	messages *memMessages
	usage    *fakeUsage
	audit    *recordingAudit
	svc      *Service
}

func newHarness(limit int, allowedModels ...string) *harness {
	h := &harness{
		sessions: &fakeSessions{},
		convs:    newMemConvs(),
		messages: &memMessages{},
		usage:    &fakeUsage{limit: limit},
		audit:    &recordingAudit{},
	}
	cfg := &config.Config{}
	cfg.Agent.AllowedModels = allowedModels
	h.svc = NewService(h.sessions, h.convs, h.messages, h.usage, staticTools{"generate_plc_code"}, h.audit, cfg)
	return h
}

func TestSubmit_CreatesConversationAndCounts(t *testing.T) {
	h := newHarness(20)
	h.sessions.files = []string{"Main.scl"}

	res, err := h.svc.Submit(context.Background(), SubmitRequest{
		UserID:   "u1",
		Tier:     entity.TierFree,
		Message:  "write a motor starter",
		Platform: "siemens",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ConversationID == "" || res.Response != "done" || res.Rounds != 2 {
		t.Fatalf("response = %+v", res)
	}
	if got := h.sessions.inputs[0].Text; got != "[Target Platform: siemens]\nwrite a motor starter" {
		t.Fatalf("text = %q", got)
	}
	if res.Usage.Used != 1 || h.usage.used != 1 {
		t.Fatalf("usage = %+v", res.Usage)
	}
	if len(res.FilesSaved) != 1 || res.FilesSaved[0] != "Main.scl" {
		t.Fatalf("files = %v", res.FilesSaved)
	}
	if len(h.audit.logs) != 1 || h.audit.logs[0].ConversationID != res.ConversationID {
		t.Fatalf("audit = %+v", h.audit.logs)
	}
	conv, _ := h.convs.GetByID(context.Background(), res.ConversationID)
	if conv.Title != "write a motor starter" || conv.Platform != "siemens" {
		t.Fatalf("conversation = %+v", conv)
	}
}

func TestSubmit_QuotaExceededSkipsSession(t *testing.T) {
	h := newHarness(20)
	h.usage.used = 20

	_, err := h.svc.Submit(context.Background(), SubmitRequest{UserID: "u1", Tier: entity.TierFree, Message: "hi"})
	var exceeded *quota.ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want ExceededError", err)
	}
	if exceeded.Used != 20 || exceeded.Limit != 20 {
		t.Fatalf("exceeded = %+v", exceeded)
	}
	if len(h.sessions.inputs) != 0 || len(h.convs.items) != 0 {
		t.Fatal("session or conversation touched on rejected submit")
	}
}

func TestSubmit_ModelFailureDoesNotCount(t *testing.T) {
	h := newHarness(20)
	h.sessions.err = &agent.ModelUnavailableError{Err: errors.New("timeout")}

	_, err := h.svc.Submit(context.Background(), SubmitRequest{UserID: "u1", Message: "hi"})
	var unavailable *agent.ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v", err)
	}
	if h.usage.used != 0 || h.usage.refunds != 1 {
		t.Fatalf("usage = %d refunds = %d, want 0 and 1", h.usage.used, h.usage.refunds)
	}
	if len(h.audit.logs) != 0 {
		t.Fatal("audit published for failed submit")
	}
}

func TestSubmit_ClientDisconnectStillCounts(t *testing.T) {
	h := newHarness(20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sessions.during = cancel

	res, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Tier: entity.TierFree, Message: "hi"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if h.usage.used != 1 || h.usage.refunds != 0 || res.Usage.Used != 1 {
		t.Fatalf("used = %d refunds = %d", h.usage.used, h.usage.refunds)
	}
}

func TestSubmit_FailureAfterDisconnectRefunds(t *testing.T) {
	h := newHarness(20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sessions.during = cancel
	h.sessions.err = errors.New("failed to persist turn")

	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Tier: entity.TierFree, Message: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if h.usage.used != 0 || h.usage.refunds != 1 {
		t.Fatalf("used = %d refunds = %d", h.usage.used, h.usage.refunds)
	}
}

func TestSubmit_ConcurrentAtLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	counter, err := quota.NewCounter(access.NewGate(nil), redis.NewUsageStore(redis.NewClientFromRedis(rdb)), &config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := mr.Set("usage:u1:"+counter.Day(), "19"); err != nil {
		t.Fatal(err)
	}
	sessions := &fakeSessions{}
	svc := NewService(sessions, newMemConvs(), &memMessages{}, counter, staticTools{}, &recordingAudit{}, &config.Config{})

	const n = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Submit(context.Background(), SubmitRequest{UserID: "u1", Tier: entity.TierFree, Message: "hi"})
			var exceeded *quota.ExceededError
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case !errors.As(err, &exceeded):
				t.Error(err)
			}
		}()
	}
	close(start)
	wg.Wait()

	st, err := counter.Check(context.Background(), "u1", entity.TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 1 || st.Used != 20 || len(sessions.inputs) != 1 {
		t.Fatalf("accepted=%d used=%d sessions=%d", accepted, st.Used, len(sessions.inputs))
	}
}

func TestSubmit_Validation(t *testing.T) {
	h := newHarness(20, "openai/gpt-4o")
	ctx := context.Background()

	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "hi", Model: "other"}); !errors.Is(err, ErrModelNotAllowed) {
		t.Fatalf("model: %v", err)
	}
	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "hi", Model: "openai/gpt-4o"}); err != nil {
		t.Fatalf("allowed model: %v", err)
	}
	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "hi", ConversationID: "c-404"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("missing conversation: %v", err)
	}
}

func TestSubmit_ReusesOwnConversationOnly(t *testing.T) {
	h := newHarness(20)
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u1", Message: "again", ConversationID: first.ConversationID})
	if err != nil || second.ConversationID != first.ConversationID {
		t.Fatalf("second = %+v, %v", second, err)
	}
	if _, err := h.svc.Submit(ctx, SubmitRequest{UserID: "u2", Message: "steal", ConversationID: first.ConversationID}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("other user: %v", err)
	}
}

func TestCheckUsage(t *testing.T) {
	h := newHarness(20)
	h.usage.used = 5

	rep, err := h.svc.CheckUsage(context.Background(), "u1", entity.TierFree)
	if err != nil {
		t.Fatalf("CheckUsage: %v", err)
	}
	if !rep.Usage.Allowed || *rep.Usage.Remaining != 15 || len(rep.AllowedTools) != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if h.usage.used != 5 {
		t.Fatal("CheckUsage changed the counter")
	}
}

func TestConversations(t *testing.T) {
	h := newHarness(20)
	ctx := context.Background()

	conv, err := h.svc.CreateConversation(ctx, "u1", CreateConversationInput{ProjectID: "p-1", Title: "Line 3"})
	if err != nil || conv.ProjectID == nil || *conv.ProjectID != "p-1" {
		t.Fatalf("create = %+v, %v", conv, err)
	}
	list, _ := h.svc.ListConversations(ctx, "u1", repository.NewPagination(1, 20))
	if list.Total != 1 {
		t.Fatalf("total = %d", list.Total)
	}
	if _, err := h.svc.Messages(ctx, "u2", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("messages other user: %v", err)
	}
	if err := h.svc.ArchiveConversation(ctx, "u1", conv.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := h.svc.Messages(ctx, "u1", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("messages after archive: %v", err)
	}
	if n := h.svc.Reset(ctx, "u1"); n != 1 || h.sessions.resets != 1 {
		t.Fatalf("reset = %d", n)
	}
}

func TestGetAndRenameConversation(t *testing.T) {
	h := newHarness(20)
	ctx := context.Background()

	conv, _ := h.svc.CreateConversation(ctx, "u1", CreateConversationInput{Title: "Line 3"})
	_ = h.messages.AppendBatch(ctx, []*entity.Message{{ConversationID: conv.ID, Seq: 0, Role: entity.RoleUser, Content: "hi"}})

	detail, err := h.svc.GetConversation(ctx, "u1", conv.ID)
	if err != nil || detail.Conversation.Title != "Line 3" || len(detail.Messages) != 1 {
		t.Fatalf("detail = %+v, %v", detail, err)
	}
	if _, err := h.svc.GetConversation(ctx, "u2", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("other user: %v", err)
	}

	title, platform := "  Packaging line  ", "codesys"
	got, err := h.svc.UpdateConversation(ctx, "u1", conv.ID, UpdateConversationInput{Title: &title, Platform: &platform})
	if err != nil || got.Title != "Packaging line" || got.Platform != "codesys" {
		t.Fatalf("update = %+v, %v", got, err)
	}
	stored, _ := h.convs.GetByID(ctx, conv.ID)
	if stored.Title != "Packaging line" {
		t.Fatalf("stored title = %q", stored.Title)
	}

	blank := " "
	if _, err := h.svc.UpdateConversation(ctx, "u1", conv.ID, UpdateConversationInput{Title: &blank}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("blank title: %v", err)
	}
}

func TestHistoryStore_PreservesToolTurns(t *testing.T) {
	ctx := context.Background()
	msgs := &memMessages{}
	store := NewHistoryStore(msgs, newMemConvs())

	turn := []*schema.Message{
		schema.UserMessage("make a tag list"),
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: "generate_tag_list", Arguments: `{"description":"tank","platform":"siemens"}`},
		}}),
		schema.ToolMessage("saved taglist.csv", "call_1", schema.WithToolName("generate_tag_list")),
		schema.AssistantMessage("Here is your tag list.", nil),
	}
	if err := store.Append(ctx, "u1", "c-1", 0, turn); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "u1", "c-1", 0, turn[:1]); err == nil {
		t.Fatal("expected conflict when appending at a taken offset")
	}

	loaded, err := store.Load(ctx, "u1", "c-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != len(turn) {
		t.Fatalf("loaded %d messages, want %d", len(loaded), len(turn))
	}
	call := loaded[1].ToolCalls
	if len(call) != 1 || call[0].ID != "call_1" || !strings.Contains(call[0].Function.Arguments, "tank") {
		t.Fatalf("tool calls = %+v", call)
	}
	if loaded[2].Role != schema.Tool || loaded[2].ToolCallID != "call_1" || loaded[2].ToolName != "generate_tag_list" {
		t.Fatalf("tool message = %+v", loaded[2])
	}
	for i, row := range msgs.rows {
		if row.Seq != i {
			t.Fatalf("row %d seq = %d", i, row.Seq)
		}
	}
}
