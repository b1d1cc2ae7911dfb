package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/finding"
	"github.com/frankie-agent/frankie/internal/domain/permission"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/plugin"
	"github.com/frankie-agent/frankie/internal/port/runner"
)

// mockStore is an in-memory database.Store with the same optimistic
// concurrency behavior as the postgres adapter.
type mockStore struct {
	mu       sync.Mutex
	tasks    map[string]*task.Task
	history  map[string][]task.HistoryEntry
	perms    []permission.Entry
	findings []finding.Finding
}

func newMockStore() *mockStore {
	return &mockStore{
		tasks:   make(map[string]*task.Task),
		history: make(map[string][]task.HistoryEntry),
	}
}

func (s *mockStore) CreateTask(_ context.Context, req task.CreateRequest, ownerID string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &task.Task{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		PluginID:       req.PluginID,
		Prompt:         req.Prompt,
		TargetFiles:    req.TargetFiles,
		TargetPersonID: req.TargetPersonID,
		Status:         task.StatusPending,
		TestStatus:     task.TestNotRun,
		Version:        1,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.tasks[t.ID] = cloneTask(t)
	return t, nil
}

func (s *mockStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return cloneTask(t), nil
}

func (s *mockStore) ListTasks(_ context.Context, ownerID string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []task.Task
	for _, t := range s.tasks {
		if ownerID == "" || t.OwnerID == ownerID {
			out = append(out, *cloneTask(t))
		}
	}
	return out, nil
}

func (s *mockStore) UpdateTask(_ context.Context, t *task.Task, h task.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, domain.ErrNotFound)
	}
	if stored.Version != t.Version {
		return fmt.Errorf("task %s version %d: %w", t.ID, t.Version, domain.ErrConflict)
	}

	t.Version++
	t.UpdatedAt = time.Now()
	s.tasks[t.ID] = cloneTask(t)
	h.CreatedAt = time.Now()
	s.history[t.ID] = append(s.history[t.ID], h)
	return nil
}

func (s *mockStore) ListTaskHistory(_ context.Context, taskID string) ([]task.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]task.HistoryEntry(nil), s.history[taskID]...), nil
}

func (s *mockStore) CreatePermission(_ context.Context, req permission.CreateRequest) (*permission.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := permission.Entry{ID: uuid.NewString(), PathPattern: req.PathPattern, Comment: req.Comment, CreatedAt: time.Now()}
	s.perms = append(s.perms, e)
	return &e, nil
}

func (s *mockStore) ListPermissions(_ context.Context) ([]permission.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]permission.Entry(nil), s.perms...), nil
}

func (s *mockStore) DeletePermission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.perms {
		if e.ID == id {
			s.perms = append(s.perms[:i], s.perms[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("permission %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) CreateFindings(_ context.Context, findings []finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range findings {
		f.ID = uuid.NewString()
		f.CreatedAt = time.Now()
		s.findings = append(s.findings, f)
	}
	return nil
}

func (s *mockStore) ListFindingsByTask(_ context.Context, taskID string) ([]finding.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []finding.Finding
	for _, f := range s.findings {
		if f.TaskID == taskID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *mockStore) UpdateFindingStatus(_ context.Context, id string, status finding.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.findings {
		if s.findings[i].ID == id {
			now := time.Now()
			s.findings[i].Status = status
			s.findings[i].ReviewedAt = &now
			return nil
		}
	}
	return fmt.Errorf("finding %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) UpdateFindingStatusByTask(_ context.Context, taskID string, status finding.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := range s.findings {
		if s.findings[i].TaskID == taskID && s.findings[i].Status == finding.StatusUnverified {
			s.findings[i].Status = status
			s.findings[i].ReviewedAt = &now
		}
	}
	return nil
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.TargetFiles = append([]string(nil), t.TargetFiles...)
	c.Context = append([]byte(nil), t.Context...)
	return &c
}

// mockLLM returns canned responses and counts calls.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func (m *mockLLM) next() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock llm: no response configured")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLM) Generate(_ context.Context, _ string) (string, error) {
	return m.next()
}

func (m *mockLLM) GenerateJSON(_ context.Context, _ string, v any) error {
	resp, err := m.next()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp), v)
}

// passFormatter returns content unchanged.
type passFormatter struct{}

func (passFormatter) Format(_ context.Context, _ string, content string) (string, error) {
	return content, nil
}

// stubTestRunner returns a fixed result.
type stubTestRunner struct {
	result runner.TestResult
	err    error
}

func (r *stubTestRunner) Run(_ context.Context, _ string) (runner.TestResult, error) {
	return r.result, r.err
}

// stubCommitter records ApplyAndCommit calls.
type stubCommitter struct {
	mu    sync.Mutex
	calls int
	hash  string
	err   error
}

func (c *stubCommitter) ApplyAndCommit(_ context.Context, _, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if c.hash == "" {
		return "deadbeef", nil
	}
	return c.hash, nil
}

func (c *stubCommitter) Status(_ context.Context, _ string) (runner.RepoStatus, error) {
	return runner.RepoStatus{Branch: "main", CommitHash: "deadbeef"}, nil
}

func (c *stubCommitter) commitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stubPlugin is a minimal plugin whose behavior is driven by its handle func.
type stubPlugin struct {
	id     string
	graph  plugin.Graph
	handle func(ctx context.Context, t *task.Task, ev plugin.Event) (plugin.Update, error)
}

func (p *stubPlugin) ID() string          { return p.id }
func (p *stubPlugin) Name() string        { return p.id }
func (p *stubPlugin) Description() string { return "test plugin" }
func (p *stubPlugin) Graph() plugin.Graph { return p.graph }
func (p *stubPlugin) Handle(ctx context.Context, t *task.Task, ev plugin.Event) (plugin.Update, error) {
	return p.handle(ctx, t, ev)
}
