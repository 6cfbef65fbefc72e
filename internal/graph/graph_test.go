package graph

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store/memory"
	"github.com/groblegark/ktasks/internal/taskerr"
)

func seedTask(t *testing.T, s *memory.Store, id string, status model.Status) {
	t.Helper()
	now := time.Now().UTC()
	tk := &model.Task{
		ID: id, Scope: "ws-1", Title: "Task " + id, Status: status,
		CreatedAt: now, UpdatedAt: now,
	}
	if status == model.StatusDone {
		tk.CompletedAt = &now
	}
	if err := s.CreateTask(context.Background(), tk); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
}

func TestAddEdge(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-a", model.StatusBacklog)
	seedTask(t, s, "tk-b", model.StatusBacklog)

	edge, err := m.AddEdge(ctx, "tk-a", "tk-b", model.EdgeFinishToStart, "alice")
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	if edge.TaskID != "tk-a" || edge.DependsOnID != "tk-b" || edge.CreatedBy != "alice" {
		t.Fatalf("unexpected edge: %+v", edge)
	}

	edges, _ := s.ListOutgoingEdges(ctx, "tk-a")
	if len(edges) != 1 {
		t.Fatalf("expected 1 persisted edge, got %d", len(edges))
	}
}

func TestAddEdge_SelfReference(t *testing.T) {
	s := memory.New()
	m := New(s)
	seedTask(t, s, "tk-a", model.StatusBacklog)

	_, err := m.AddEdge(context.Background(), "tk-a", "tk-a", model.EdgeFinishToStart, "")
	if taskerr.CodeOf(err) != taskerr.CodeSelfReference {
		t.Fatalf("expected SELF_REFERENCE, got %v", err)
	}
}

func TestAddEdge_Duplicate(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-a", model.StatusBacklog)
	seedTask(t, s, "tk-b", model.StatusBacklog)

	if _, err := m.AddEdge(ctx, "tk-a", "tk-b", model.EdgeFinishToStart, ""); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := m.AddEdge(ctx, "tk-a", "tk-b", model.EdgeFinishToStart, "")
	if taskerr.CodeOf(err) != taskerr.CodeDuplicateEdge {
		t.Fatalf("expected DUPLICATE_EDGE, got %v", err)
	}
	// Duplicate detection is pair-based: a different type does not help.
	_, err = m.AddEdge(ctx, "tk-a", "tk-b", model.EdgeStartToStart, "")
	if taskerr.CodeOf(err) != taskerr.CodeDuplicateEdge {
		t.Fatalf("expected DUPLICATE_EDGE for other type, got %v", err)
	}
}

func TestAddEdge_InvalidType(t *testing.T) {
	s := memory.New()
	m := New(s)
	_, err := m.AddEdge(context.Background(), "tk-a", "tk-b", "blocks", "")
	if taskerr.CodeOf(err) != taskerr.CodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

// A depends on B, B depends on C; adding C depends on A must be rejected
// because C would reach itself via A -> B -> C.
func TestAddEdge_CycleRejected(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	for _, id := range []string{"tk-a", "tk-b", "tk-c"} {
		seedTask(t, s, id, model.StatusBacklog)
	}
	mustAdd(t, m, "tk-a", "tk-b")
	mustAdd(t, m, "tk-b", "tk-c")

	_, err := m.AddEdge(ctx, "tk-c", "tk-a", model.EdgeFinishToStart, "")
	if taskerr.CodeOf(err) != taskerr.CodeWouldCreateCycle {
		t.Fatalf("expected WOULD_CREATE_CYCLE, got %v", err)
	}
	var te *taskerr.Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *taskerr.Error, got %T", err)
	}
	want := []string{"tk-a", "tk-b", "tk-c"}
	if len(te.CyclePath) != len(want) {
		t.Fatalf("unexpected cycle path: %v", te.CyclePath)
	}
	for i := range want {
		if te.CyclePath[i] != want[i] {
			t.Fatalf("cycle path = %v, want %v", te.CyclePath, want)
		}
	}

	// The rejected edge must not have been persisted.
	edges, _ := s.ListOutgoingEdges(ctx, "tk-c")
	if len(edges) != 0 {
		t.Fatalf("rejected edge was persisted: %v", edges)
	}
}

func TestAddEdge_DirectCycleRejected(t *testing.T) {
	s := memory.New()
	m := New(s)
	seedTask(t, s, "tk-a", model.StatusBacklog)
	seedTask(t, s, "tk-b", model.StatusBacklog)
	mustAdd(t, m, "tk-a", "tk-b")

	_, err := m.AddEdge(context.Background(), "tk-b", "tk-a", model.EdgeFinishToStart, "")
	if taskerr.CodeOf(err) != taskerr.CodeWouldCreateCycle {
		t.Fatalf("expected WOULD_CREATE_CYCLE, got %v", err)
	}
}

// Diamond: A -> B -> D and A -> C -> D. Shared ancestor D is visited once;
// adding D -> A still closes a cycle and must be rejected, while an
// unrelated edge succeeds.
func TestAddEdge_SharedAncestors(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	for _, id := range []string{"tk-a", "tk-b", "tk-c", "tk-d", "tk-e"} {
		seedTask(t, s, id, model.StatusBacklog)
	}
	mustAdd(t, m, "tk-a", "tk-b")
	mustAdd(t, m, "tk-a", "tk-c")
	mustAdd(t, m, "tk-b", "tk-d")
	mustAdd(t, m, "tk-c", "tk-d")

	if _, err := m.AddEdge(ctx, "tk-d", "tk-a", model.EdgeFinishToStart, ""); taskerr.CodeOf(err) != taskerr.CodeWouldCreateCycle {
		t.Fatalf("expected WOULD_CREATE_CYCLE, got %v", err)
	}
	if _, err := m.AddEdge(ctx, "tk-d", "tk-e", model.EdgeFinishToStart, ""); err != nil {
		t.Fatalf("unrelated edge rejected: %v", err)
	}
}

func TestRemoveEdge(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-a", model.StatusBacklog)
	seedTask(t, s, "tk-b", model.StatusBacklog)
	mustAdd(t, m, "tk-a", "tk-b")

	if err := m.RemoveEdge(ctx, "tk-a", "tk-b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	err := m.RemoveEdge(ctx, "tk-a", "tk-b")
	if taskerr.CodeOf(err) != taskerr.CodeEdgeNotFound {
		t.Fatalf("expected EDGE_NOT_FOUND on second remove, got %v", err)
	}

	// Removal reopens the edge for re-adding (type change = remove+add).
	if _, err := m.AddEdge(ctx, "tk-a", "tk-b", model.EdgeStartToStart, ""); err != nil {
		t.Fatalf("re-add after remove: %v", err)
	}
}

func TestCanStart(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-x", model.StatusBacklog)
	seedTask(t, s, "tk-done", model.StatusDone)
	seedTask(t, s, "tk-active", model.StatusActive)
	seedTask(t, s, "tk-review", model.StatusReview)
	mustAdd(t, m, "tk-x", "tk-done")
	mustAdd(t, m, "tk-x", "tk-active")
	mustAdd(t, m, "tk-x", "tk-review")

	ok, blocking, err := m.CanStart(ctx, "tk-x")
	if err != nil {
		t.Fatalf("can start: %v", err)
	}
	if ok {
		t.Fatal("expected blocked")
	}
	if len(blocking) != 2 {
		t.Fatalf("expected 2 blockers, got %v", blocking)
	}
	for _, b := range blocking {
		if b.ID == "tk-done" {
			t.Fatal("done dependency must not block")
		}
		if b.Title == "" || !b.Status.IsValid() {
			t.Fatalf("summary missing fields: %+v", b)
		}
	}
}

func TestCanStart_NoDependencies(t *testing.T) {
	s := memory.New()
	m := New(s)
	seedTask(t, s, "tk-x", model.StatusBacklog)

	ok, blocking, err := m.CanStart(context.Background(), "tk-x")
	if err != nil {
		t.Fatalf("can start: %v", err)
	}
	if !ok || len(blocking) != 0 {
		t.Fatalf("expected unblocked, got ok=%v blocking=%v", ok, blocking)
	}
}

// Only finish-to-start edges gate progress; the other types are inert.
func TestCanStart_NonBlockingEdgeTypes(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-x", model.StatusBacklog)
	seedTask(t, s, "tk-ss", model.StatusActive)
	seedTask(t, s, "tk-ff", model.StatusBacklog)
	seedTask(t, s, "tk-sf", model.StatusReview)

	for id, et := range map[string]model.EdgeType{
		"tk-ss": model.EdgeStartToStart,
		"tk-ff": model.EdgeFinishToFinish,
		"tk-sf": model.EdgeStartToFinish,
	} {
		if _, err := m.AddEdge(ctx, "tk-x", id, et, ""); err != nil {
			t.Fatalf("add %s edge: %v", et, err)
		}
	}

	ok, blocking, err := m.CanStart(ctx, "tk-x")
	if err != nil {
		t.Fatalf("can start: %v", err)
	}
	if !ok || len(blocking) != 0 {
		t.Fatalf("non-FS edges must never block, got ok=%v blocking=%v", ok, blocking)
	}
}

func TestCanStart_DanglingDependencyIgnored(t *testing.T) {
	s := memory.New()
	m := New(s)
	ctx := context.Background()
	seedTask(t, s, "tk-x", model.StatusBacklog)
	s.InsertEdge(ctx, &model.Edge{TaskID: "tk-x", DependsOnID: "tk-gone", Type: model.EdgeFinishToStart})

	ok, blocking, err := m.CanStart(ctx, "tk-x")
	if err != nil {
		t.Fatalf("can start: %v", err)
	}
	if !ok || len(blocking) != 0 {
		t.Fatalf("dangling edge must not block, got ok=%v blocking=%v", ok, blocking)
	}
}

// Property: any sequence of accepted AddEdge calls leaves the graph acyclic,
// cycle-closing additions are always rejected, and DAG-preserving additions
// always succeed.
func TestAcyclicityProperty(t *testing.T) {
	const nodes = 12
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		s := memory.New()
		m := New(s)
		ctx := context.Background()

		ids := make([]string, nodes)
		for i := range ids {
			ids[i] = string(rune('a' + i))
			seedTask(t, s, "tk-"+ids[i], model.StatusBacklog)
		}

		// Track edges ourselves to predict reachability.
		adj := make(map[string]map[string]bool)
		reaches := func(from, to string) bool {
			seen := map[string]bool{from: true}
			stack := []string{from}
			for len(stack) > 0 {
				n := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if n == to {
					return true
				}
				for next := range adj[n] {
					if !seen[next] {
						seen[next] = true
						stack = append(stack, next)
					}
				}
			}
			return false
		}

		for attempt := 0; attempt < 80; attempt++ {
			a := "tk-" + ids[rng.Intn(nodes)]
			b := "tk-" + ids[rng.Intn(nodes)]
			_, err := m.AddEdge(ctx, a, b, model.EdgeFinishToStart, "")

			switch {
			case a == b:
				if taskerr.CodeOf(err) != taskerr.CodeSelfReference {
					t.Fatalf("self edge %s: got %v", a, err)
				}
			case adj[a][b]:
				if taskerr.CodeOf(err) != taskerr.CodeDuplicateEdge {
					t.Fatalf("duplicate %s->%s: got %v", a, b, err)
				}
			case reaches(b, a):
				if taskerr.CodeOf(err) != taskerr.CodeWouldCreateCycle {
					t.Fatalf("cycle-closing %s->%s: got %v", a, b, err)
				}
			default:
				if err != nil {
					t.Fatalf("DAG-preserving %s->%s rejected: %v", a, b, err)
				}
				if adj[a] == nil {
					adj[a] = make(map[string]bool)
				}
				adj[a][b] = true
			}
		}

		// No task may reach itself through the persisted edge set.
		for _, id := range ids {
			node := "tk-" + id
			if reaches(node, node) && len(adj[node]) > 0 {
				t.Fatalf("round %d: %s reaches itself", round, node)
			}
		}
	}
}

func mustAdd(t *testing.T, m *Manager, dependent, dependency string) {
	t.Helper()
	if _, err := m.AddEdge(context.Background(), dependent, dependency, model.EdgeFinishToStart, ""); err != nil {
		t.Fatalf("adding %s -> %s: %v", dependent, dependency, err)
	}
}
