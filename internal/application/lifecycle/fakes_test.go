package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/domain/repository"
	"plc-agent-api/internal/infrastructure/messaging"
)

type passTx struct{}

func (passTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memProjects struct {
	mu    sync.Mutex
	items map[string]*entity.Project
	seq   int
}

func newMemProjects() *memProjects {
	return &memProjects{items: make(map[string]*entity.Project)}
}

func (m *memProjects) Create(_ context.Context, p *entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.seq++
		p.ID = fmt.Sprintf("p-%d", m.seq)
	}
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProjects) GetByID(_ context.Context, id string) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProjects) GetByIDForUpdate(ctx context.Context, id string) (*entity.Project, error) {
	return m.GetByID(ctx, id)
}

func (m *memProjects) Update(_ context.Context, p *entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memProjects) UpdateStage(_ context.Context, id string, stage entity.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].CurrentStage = stage
	return nil
}

func (m *memProjects) Archive(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id].Archived = true
	return nil
}

func (m *memProjects) ListByOwner(_ context.Context, ownerID string, pg repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Project
	for _, p := range m.items {
		if p.OwnerID == ownerID && !p.Archived {
			cp := *p
			out = append(out, &cp)
		}
	}
	return repository.NewPagedResult(out, int64(len(out)), pg), nil
}

func (m *memProjects) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, _ := m.ListByOwner(ctx, ownerID, repository.NewPagination(1, 100))
	return res.Total, nil
}

type memStages struct {
	mu      sync.Mutex
	records map[string][]*entity.StageRecord
}

func newMemStages() *memStages {
	return &memStages{records: make(map[string][]*entity.StageRecord)}
}

func (m *memStages) CreateBatch(_ context.Context, records []*entity.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		cp := *r
		m.records[r.ProjectID] = append(m.records[r.ProjectID], &cp)
	}
	return nil
}

func (m *memStages) ListByProject(_ context.Context, projectID string) ([]*entity.StageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.StageRecord, 0, len(m.records[projectID]))
	for _, r := range m.records[projectID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStages) Update(_ context.Context, record *entity.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records[record.ProjectID] {
		if r.Stage == record.Stage {
			cp := *record
			m.records[record.ProjectID][i] = &cp
			return nil
		}
	}
	return fmt.Errorf("stage %s not found", record.Stage)
}

func (m *memStages) get(projectID string, stage entity.Stage) *entity.StageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records[projectID] {
		if r.Stage == stage {
			cp := *r
			return &cp
		}
	}
	return nil
}

type memDocs struct {
	mu   sync.Mutex
	docs []*entity.GeneratedDocument
}

func (m *memDocs) Create(_ context.Context, doc *entity.GeneratedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ProjectID == doc.ProjectID && d.DocType == doc.DocType && d.Version == doc.Version {
			return fmt.Errorf("duplicate version %d", doc.Version)
		}
	}
	doc.ID = fmt.Sprintf("d-%d", len(m.docs)+1)
	cp := *doc
	m.docs = append(m.docs, &cp)
	return nil
}

func (m *memDocs) GetByID(_ context.Context, projectID, id string) (*entity.GeneratedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ProjectID == projectID && d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDocs) Latest(_ context.Context, projectID string, docType entity.DocType) (*entity.GeneratedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *entity.GeneratedDocument
	for _, d := range m.docs {
		if d.ProjectID == projectID && d.DocType == docType && (latest == nil || d.Version > latest.Version) {
			latest = d
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memDocs) CountByType(_ context.Context, projectID string, docType entity.DocType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.docs {
		if d.ProjectID == projectID && d.DocType == docType {
			n++
		}
	}
	return n, nil
}

func (m *memDocs) ListByProject(_ context.Context, projectID string) ([]*entity.GeneratedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.GeneratedDocument
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []*messaging.LifecycleEventMessage
}

func (r *recordingEvents) PublishLifecycleEvent(_ context.Context, ev *messaging.LifecycleEventMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return fmt.Sprintf("%d-0", len(r.events)), nil
}

func (r *recordingEvents) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	projects *memProjects
	stages   *memStages
	docs     *memDocs
	events   *recordingEvents
	ctrl     *Controller
}

func newFixture() *fixture {
	f := &fixture{
		projects: newMemProjects(),
		stages:   newMemStages(),
		docs:     &memDocs{},
		events:   &recordingEvents{},
	}
	f.ctrl = NewController(passTx{}, f.projects, f.stages, f.docs, f.events)
	return f
}

func (f *fixture) newProject(ctx context.Context, ownerID string) *entity.Project {
	p := entity.NewProject(ownerID, "Conveyor line", "siemens")
	_ = f.projects.Create(ctx, p)
	_, _ = f.ctrl.InitStages(ctx, p.ID)
	return p
}
