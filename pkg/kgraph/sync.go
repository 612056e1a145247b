package kgraph

import (
	"context"
	"sync"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
)

// syncTracker accumulates dirty node/edge ids between persistence syncs,
// the way async_engine.AsyncEngine's nodeCache/deleteNodes maps stage
// writes for a background flush loop, generalized here to track *which*
// ids changed rather than caching full payloads (the graph.Store itself
// remains the source of truth for current content).
type syncTracker struct {
	mu          sync.Mutex
	dirtyNodes  map[string]struct{}
	dirtyEdges  map[string]struct{}
	deleteNodes map[string]struct{}
	deleteEdges map[string]struct{}
}

func newSyncTracker() *syncTracker {
	return &syncTracker{
		dirtyNodes:  make(map[string]struct{}),
		dirtyEdges:  make(map[string]struct{}),
		deleteNodes: make(map[string]struct{}),
		deleteEdges: make(map[string]struct{}),
	}
}

func (t *syncTracker) observe(event graph.ChangeEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case graph.ChangeNodeAdded:
		id := event.Node.ID
		delete(t.deleteNodes, id)
		t.dirtyNodes[id] = struct{}{}
	case graph.ChangeNodeRemoved:
		id := event.Node.ID
		delete(t.dirtyNodes, id)
		t.deleteNodes[id] = struct{}{}
	case graph.ChangeEdgeAdded:
		id := event.Edge.ID
		delete(t.deleteEdges, id)
		t.dirtyEdges[id] = struct{}{}
	case graph.ChangeEdgeRemoved:
		id := event.Edge.ID
		delete(t.dirtyEdges, id)
		t.deleteEdges[id] = struct{}{}
	case graph.ChangeCleared:
		t.dirtyNodes = make(map[string]struct{})
		t.dirtyEdges = make(map[string]struct{})
		t.deleteNodes = make(map[string]struct{})
		t.deleteEdges = make(map[string]struct{})
	}
}

// drain snapshots and clears the pending sets, returning what a Sync pass
// should write through.
func (t *syncTracker) drain() (dirtyNodes, dirtyEdges, deleteNodes, deleteEdges []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dirtyNodes = keys(t.dirtyNodes)
	dirtyEdges = keys(t.dirtyEdges)
	deleteNodes = keys(t.deleteNodes)
	deleteEdges = keys(t.deleteEdges)
	t.dirtyNodes = make(map[string]struct{})
	t.dirtyEdges = make(map[string]struct{})
	t.deleteNodes = make(map[string]struct{})
	t.deleteEdges = make(map[string]struct{})
	return
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// SyncResult reports what a Sync pass wrote through to the persistence
// boundary.
type SyncResult struct {
	NodesStored  int
	EdgesStored  int
	NodesDeleted int
	EdgesDeleted int
}

// Sync drains every node/edge that changed since the last sync and writes
// it through the persistence boundary, retrying transient failures with
// exponential backoff per §7 (up to 3 attempts) before surfacing a
// definitive error. A nil persistence boundary makes Sync a no-op,
// matching an engine configured without PersistenceDir.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	if e.persist == nil || e.syncState == nil {
		return result, nil
	}

	dirtyNodeIDs, dirtyEdgeIDs, deleteNodeIDs, deleteEdgeIDs := e.syncState.drain()

	var nodes []*graph.Node
	for _, id := range dirtyNodeIDs {
		n, err := e.store.GetNode(id)
		if err != nil {
			continue // removed again before this sync ran; nothing to store
		}
		nodes = append(nodes, n)
	}
	var edges []*graph.Edge
	for _, id := range dirtyEdgeIDs {
		for _, e := range e.store.GetAllEdges() {
			if e.ID == id {
				edges = append(edges, e)
				break
			}
		}
	}

	if len(nodes) > 0 {
		if err := withRetry(func() error { return e.persist.StoreNodes(nodes) }); err != nil {
			return result, err
		}
		result.NodesStored = len(nodes)
	}
	if len(edges) > 0 {
		if err := withRetry(func() error { return e.persist.StoreEdges(edges) }); err != nil {
			return result, err
		}
		result.EdgesStored = len(edges)
	}
	if len(deleteNodeIDs) > 0 {
		if err := withRetry(func() error { return e.persist.DeleteNodes(deleteNodeIDs) }); err != nil {
			return result, err
		}
		result.NodesDeleted = len(deleteNodeIDs)
	}
	if len(deleteEdgeIDs) > 0 {
		if err := withRetry(func() error { return e.persist.DeleteEdges(deleteEdgeIDs) }); err != nil {
			return result, err
		}
		result.EdgesDeleted = len(deleteEdgeIDs)
	}

	e.logger.DebugContext(ctx, "kgraph: sync complete",
		"nodes_stored", result.NodesStored, "edges_stored", result.EdgesStored,
		"nodes_deleted", result.NodesDeleted, "edges_deleted", result.EdgesDeleted)
	return result, nil
}

// withRetry runs fn up to 3 attempts with exponential backoff (50ms, then
// 100ms) between tries, per the persistence error taxonomy in §7.
func withRetry(fn func() error) error {
	const maxAttempts = 3
	var err error
	backoff := 50 * time.Millisecond
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

// startSyncLoop launches the timer-driven background sync described in §5
// ("Sync cadence is timer-driven; a manual sync is always available") and
// §6 ("a sync interval in ms"). It exits on e.stopSync being closed.
func (e *Engine) startSyncLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	e.syncWG.Add(1)
	go func() {
		defer e.syncWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := e.Sync(context.Background()); err != nil {
					e.logger.Error("kgraph: background sync failed", "error", err)
				}
			case <-e.stopSync:
				_, _ = e.Sync(context.Background())
				return
			}
		}
	}()
}
