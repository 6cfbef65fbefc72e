// Package memory implements store.Store with mutex-guarded maps. It backs
// component tests and the CLI's --memory mode; transactions are modeled as
// copy-on-begin snapshots restored on rollback.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
)

type edgeKey struct {
	taskID      string
	dependsOnID string
}

// data holds the unsynchronized state. Store methods lock around it; the
// transactional view reuses the already-held lock.
type data struct {
	tasks   map[string]*model.Task
	edges   map[edgeKey]*model.Edge
	events  []*model.Event
	eventID int64
}

func (d *data) clone() *data {
	nd := &data{
		tasks:   make(map[string]*model.Task, len(d.tasks)),
		edges:   make(map[edgeKey]*model.Edge, len(d.edges)),
		events:  make([]*model.Event, len(d.events)),
		eventID: d.eventID,
	}
	for id, t := range d.tasks {
		nd.tasks[id] = cloneTask(t)
	}
	for k, e := range d.edges {
		ec := *e
		nd.edges[k] = &ec
	}
	copy(nd.events, d.events)
	return nd
}

func cloneTask(t *model.Task) *model.Task {
	c := *t
	if t.ParentTaskID != nil {
		v := *t.ParentTaskID
		c.ParentTaskID = &v
	}
	c.DueAt = cloneTime(t.DueAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.RecurrenceEndDate = cloneTime(t.RecurrenceEndDate)
	c.LastRecurrenceAt = cloneTime(t.LastRecurrenceAt)
	if t.OriginRecurringID != nil {
		v := *t.OriginRecurringID
		c.OriginRecurringID = &v
	}
	if t.RecurrenceDaysOfWeek != nil {
		c.RecurrenceDaysOfWeek = append([]model.Weekday(nil), t.RecurrenceDaysOfWeek...)
	}
	c.Dependencies = nil
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.Mutex
	d  *data
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{d: &data{
		tasks: make(map[string]*model.Task),
		edges: make(map[edgeKey]*model.Edge),
	}}
}

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.createTask(task)
}

func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getTask(id)
}

func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.updateTask(task)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteTask(id)
}

func (s *Store) ListByScopeAndStatus(ctx context.Context, scope string, status model.Status) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listByScopeAndStatus(scope, status), nil
}

func (s *Store) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listAllTasks(), nil
}

func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listDueRecurring(now), nil
}

func (s *Store) UpdateTaskPositions(ctx context.Context, updates []store.PositionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.updateTaskPositions(updates)
}

func (s *Store) InsertEdge(ctx context.Context, edge *model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.insertEdge(edge)
}

func (s *Store) DeleteEdge(ctx context.Context, taskID, dependsOnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteEdge(taskID, dependsOnID)
}

func (s *Store) ListOutgoingEdges(ctx context.Context, taskID string) ([]*model.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listOutgoingEdges(taskID), nil
}

func (s *Store) ListAllEdges(ctx context.Context) ([]*model.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listAllEdges(), nil
}

func (s *Store) RecordEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.recordEvent(event)
}

func (s *Store) ListEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listEvents(taskID), nil
}

// RunInTransaction snapshots the state, runs fn against an unlocked view,
// and restores the snapshot if fn fails. The store lock is held for the
// whole transaction, which also gives the serialization the core requires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(&txStore{d: s.d}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// txStore is the transactional view: same data, no locking (the parent
// holds the lock for the transaction's duration).
type txStore struct {
	d *data
}

var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateTask(ctx context.Context, task *model.Task) error { return s.d.createTask(task) }
func (s *txStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.d.getTask(id)
}
func (s *txStore) UpdateTask(ctx context.Context, task *model.Task) error { return s.d.updateTask(task) }
func (s *txStore) DeleteTask(ctx context.Context, id string) error        { return s.d.deleteTask(id) }
func (s *txStore) ListByScopeAndStatus(ctx context.Context, scope string, status model.Status) ([]*model.Task, error) {
	return s.d.listByScopeAndStatus(scope, status), nil
}
func (s *txStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	return s.d.listAllTasks(), nil
}
func (s *txStore) ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Task, error) {
	return s.d.listDueRecurring(now), nil
}
func (s *txStore) UpdateTaskPositions(ctx context.Context, updates []store.PositionUpdate) error {
	return s.d.updateTaskPositions(updates)
}
func (s *txStore) InsertEdge(ctx context.Context, edge *model.Edge) error { return s.d.insertEdge(edge) }
func (s *txStore) DeleteEdge(ctx context.Context, taskID, dependsOnID string) error {
	return s.d.deleteEdge(taskID, dependsOnID)
}
func (s *txStore) ListOutgoingEdges(ctx context.Context, taskID string) ([]*model.Edge, error) {
	return s.d.listOutgoingEdges(taskID), nil
}
func (s *txStore) ListAllEdges(ctx context.Context) ([]*model.Edge, error) {
	return s.d.listAllEdges(), nil
}
func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return s.d.recordEvent(event)
}
func (s *txStore) ListEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	return s.d.listEvents(taskID), nil
}

// RunInTransaction on a txStore reuses the open transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error { return nil }

// --- unsynchronized operations ---

func (d *data) createTask(task *model.Task) error {
	d.tasks[task.ID] = cloneTask(task)
	return nil
}

func (d *data) getTask(id string) (*model.Task, error) {
	t, ok := d.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTask(t), nil
}

func (d *data) updateTask(task *model.Task) error {
	if _, ok := d.tasks[task.ID]; !ok {
		return store.ErrNotFound
	}
	d.tasks[task.ID] = cloneTask(task)
	return nil
}

func (d *data) deleteTask(id string) error {
	if _, ok := d.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.tasks, id)
	for k := range d.edges {
		if k.taskID == id || k.dependsOnID == id {
			delete(d.edges, k)
		}
	}
	return nil
}

func (d *data) listByScopeAndStatus(scope string, status model.Status) []*model.Task {
	var out []*model.Task
	for _, t := range d.tasks {
		if t.Scope == scope && t.Status == status {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (d *data) listAllTasks() []*model.Task {
	out := make([]*model.Task, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (d *data) listDueRecurring(now time.Time) []*model.Task {
	var out []*model.Task
	for _, t := range d.tasks {
		if !t.IsRecurring || t.Status != model.StatusDone {
			continue
		}
		if t.RecurrenceEndDate != nil && t.RecurrenceEndDate.Before(now) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *data) updateTaskPositions(updates []store.PositionUpdate) error {
	for _, u := range updates {
		if _, ok := d.tasks[u.ID]; !ok {
			return store.ErrNotFound
		}
	}
	for _, u := range updates {
		t := d.tasks[u.ID]
		t.Status = u.Status
		t.Position = u.Position
		t.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (d *data) insertEdge(edge *model.Edge) error {
	ec := *edge
	d.edges[edgeKey{edge.TaskID, edge.DependsOnID}] = &ec
	return nil
}

func (d *data) deleteEdge(taskID, dependsOnID string) error {
	k := edgeKey{taskID, dependsOnID}
	if _, ok := d.edges[k]; !ok {
		return store.ErrNotFound
	}
	delete(d.edges, k)
	return nil
}

func (d *data) listOutgoingEdges(taskID string) []*model.Edge {
	var out []*model.Edge
	for k, e := range d.edges {
		if k.taskID == taskID {
			ec := *e
			out = append(out, &ec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DependsOnID < out[j].DependsOnID })
	return out
}

func (d *data) listAllEdges() []*model.Edge {
	out := make([]*model.Edge, 0, len(d.edges))
	for _, e := range d.edges {
		ec := *e
		out = append(out, &ec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskID == out[j].TaskID {
			return out[i].DependsOnID < out[j].DependsOnID
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

func (d *data) recordEvent(event *model.Event) error {
	d.eventID++
	event.ID = d.eventID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	ec := *event
	d.events = append(d.events, &ec)
	return nil
}

func (d *data) listEvents(taskID string) []*model.Event {
	var out []*model.Event
	for _, e := range d.events {
		if e.TaskID == taskID {
			ec := *e
			out = append(out, &ec)
		}
	}
	return out
}
