// Package graph maintains the directed must-finish-before edges between
// tasks and guarantees the edge set stays acyclic.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
	"github.com/groblegark/ktasks/internal/taskerr"
)

// Manager validates and mutates dependency edges through the task store.
// Edge mutations are serialized across the whole graph: the cycle check
// reads the existing edge set and must not race with a concurrent insert
// that could invalidate it.
type Manager struct {
	store store.Store

	// mu is held for every mutation. Simplest correct serialization;
	// per-connected-component locking is not worth it at this edge churn.
	mu sync.Mutex
}

// New returns a Manager over the given store.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// CanAddEdge checks whether an edge dependent -> dependency may be added.
// It returns nil when the edge is admissible, or a taskerr with code
// SELF_REFERENCE, DUPLICATE_EDGE, or WOULD_CREATE_CYCLE.
func (m *Manager) CanAddEdge(ctx context.Context, dependentID, dependencyID string) error {
	return m.canAddEdge(ctx, m.store, dependentID, dependencyID)
}

func (m *Manager) canAddEdge(ctx context.Context, s store.Store, dependentID, dependencyID string) error {
	if dependentID == dependencyID {
		return taskerr.SelfReference(dependentID)
	}

	existing, err := s.ListOutgoingEdges(ctx, dependentID)
	if err != nil {
		return taskerr.StoreFailure("list edges", err)
	}
	for _, e := range existing {
		if e.DependsOnID == dependencyID {
			return taskerr.DuplicateEdge(dependentID, dependencyID)
		}
	}

	path, err := m.findPath(ctx, s, dependencyID, dependentID)
	if err != nil {
		return err
	}
	if path != nil {
		return taskerr.WouldCreateCycle(dependentID, dependencyID, path)
	}
	return nil
}

// findPath runs a breadth-first traversal of existing outgoing edges from
// `from`, returning the discovered path to `to`, or nil if unreachable.
// Each node is visited at most once so shared ancestors cannot loop the
// traversal.
func (m *Manager) findPath(ctx context.Context, s store.Store, from, to string) ([]string, error) {
	visited := map[string]bool{from: true}
	parent := map[string]string{}
	queue := []string{from}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node == to {
			// Walk parents back to the start to rebuild the path.
			path := []string{node}
			for node != from {
				node = parent[node]
				path = append([]string{node}, path...)
			}
			return path, nil
		}

		edges, err := s.ListOutgoingEdges(ctx, node)
		if err != nil {
			return nil, taskerr.StoreFailure("list edges", err)
		}
		for _, e := range edges {
			if visited[e.DependsOnID] {
				continue
			}
			visited[e.DependsOnID] = true
			parent[e.DependsOnID] = node
			queue = append(queue, e.DependsOnID)
		}
	}
	return nil, nil
}

// AddEdge validates and persists an edge dependent -> dependency. The check
// and the insert run inside one store transaction under the graph lock, so
// no concurrent insert can slip between them.
func (m *Manager) AddEdge(ctx context.Context, dependentID, dependencyID string, edgeType model.EdgeType, createdBy string) (*model.Edge, error) {
	if !edgeType.IsValid() {
		return nil, taskerr.InvalidInput(fmt.Sprintf("invalid edge type %q", edgeType))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	edge := &model.Edge{
		TaskID:      dependentID,
		DependsOnID: dependencyID,
		Type:        edgeType,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
	}

	err := m.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := m.canAddEdge(ctx, tx, dependentID, dependencyID); err != nil {
			return err
		}
		if err := tx.InsertEdge(ctx, edge); err != nil {
			return taskerr.StoreFailure("insert edge", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// RemoveEdge deletes an edge. A missing edge is an EDGE_NOT_FOUND error;
// callers with no-op policy can match the code and ignore it.
func (m *Manager) RemoveEdge(ctx context.Context, dependentID, dependencyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteEdge(ctx, dependentID, dependencyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return taskerr.EdgeNotFound(dependentID, dependencyID)
		}
		return taskerr.StoreFailure("delete edge", err)
	}
	return nil
}

// CanStart evaluates the task's finish-to-start dependencies and returns
// whether work may begin, plus the blocking dependency summaries for
// user-facing messages. Edge types other than finish-to-start never block
// in this version.
func (m *Manager) CanStart(ctx context.Context, taskID string) (bool, []model.Summary, error) {
	edges, err := m.store.ListOutgoingEdges(ctx, taskID)
	if err != nil {
		return false, nil, taskerr.StoreFailure("list edges", err)
	}

	var blocking []model.Summary
	for _, e := range edges {
		if e.Type != model.EdgeFinishToStart {
			continue
		}
		dep, err := m.store.GetTask(ctx, e.DependsOnID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Dangling edge: the dependency was deleted externally.
				// It cannot block anything.
				continue
			}
			return false, nil, taskerr.StoreFailure("get dependency", err)
		}
		if dep.Status != model.StatusDone {
			blocking = append(blocking, dep.Summarize())
		}
	}
	return len(blocking) == 0, blocking, nil
}
