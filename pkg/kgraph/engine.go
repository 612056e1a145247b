// Package kgraph orchestrates the graph store, indices, temporal layer,
// memory manager, entity resolver, query processor, and persistence
// boundary behind a single Engine, the way pkg/gognee.Gognee composes its
// own collaborators behind one entry point.
package kgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/index"
	"github.com/arborgraph/kgraph/pkg/memorymgr"
	"github.com/arborgraph/kgraph/pkg/metrics"
	"github.com/arborgraph/kgraph/pkg/persistence"
	"github.com/arborgraph/kgraph/pkg/query"
	"github.com/arborgraph/kgraph/pkg/resolver"
	"github.com/arborgraph/kgraph/pkg/temporal"
	"github.com/arborgraph/kgraph/pkg/trace"
	"github.com/arborgraph/kgraph/pkg/traversal"
)

// Engine is the module's single entry point: every public operation an
// external HTTP or CLI adapter needs is a plain method here, returning data
// that adapter can serialize. No net/http or flag dependency lives in this
// module.
type Engine struct {
	cfg Config

	store          *graph.Store
	indices        *index.Set
	temporal       *temporal.Layer
	memory         *memorymgr.Manager
	entityResolver *resolver.Resolver
	processor      *query.Processor
	persist        *persistence.JSONLStore

	logger           *slog.Logger
	metricsCollector metrics.Collector
	traceExporter    trace.Exporter

	syncState *syncTracker
	stopSync  chan struct{}
	syncWG    sync.WaitGroup
}

// NewEngine wires every component per Config and returns a ready Engine.
// Mirrors gognee.New(cfg) / gognee.NewWithClients — a single constructor
// that applies defaults, builds collaborators in dependency order, and
// wires change listeners, rather than a builder chain.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = 0.75
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if cfg.Collector == nil {
		cfg.Collector = metrics.NewNoopCollector()
	}
	if cfg.TraceExporter == nil {
		cfg.TraceExporter = &trace.NoopExporter{}
	}

	store := graph.NewStore(graph.Config{
		MaxNodes:        cfg.MaxNodes,
		MaxEdgesPerNode: cfg.MaxEdgesPerNode,
	})
	indices := index.NewSet(cfg.VectorMetric)
	store.RegisterChangeListener(indices.Listener)

	temporalLayer := temporal.NewLayer(store, temporal.Config{})

	memManager := memorymgr.New(cfg.Memory)
	store.RegisterChangeListener(func(event graph.ChangeEvent) {
		switch event.Kind {
		case graph.ChangeNodeAdded:
			memManager.Touch(event.Node.ID)
			if name, ok := event.Node.Properties["name"]; ok {
				if s, ok := name.AsString(); ok {
					memManager.IndexName(s, event.Node.ID)
				}
			}
		case graph.ChangeNodeRemoved:
			memManager.Forget(event.Node.ID)
		case graph.ChangeCleared:
			memManager.Reset()
		}
	})

	entityResolver := resolver.New(store, indices, cfg.FuzzyThreshold)
	processor := query.New(store, indices, entityResolver)

	e := &Engine{
		cfg:              cfg,
		store:            store,
		indices:          indices,
		temporal:         temporalLayer,
		memory:           memManager,
		entityResolver:   entityResolver,
		processor:        processor,
		logger:           cfg.Logger,
		metricsCollector: cfg.Collector,
		traceExporter:    cfg.TraceExporter,
	}

	if cfg.PersistenceDir != "" {
		persist, err := persistence.NewJSONLStore(persistence.DefaultConfig(cfg.PersistenceDir))
		if err != nil {
			return nil, fmt.Errorf("kgraph: init persistence: %w", err)
		}
		e.persist = persist
		e.syncState = newSyncTracker()
		store.RegisterChangeListener(e.syncState.observe)

		interval := cfg.SyncInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		e.stopSync = make(chan struct{})
		e.startSyncLoop(interval)
	}

	return e, nil
}

// Close stops the background sync loop (flushing once more on the way
// out), releases the persistence ledger's database handle, and flushes
// the trace exporter, if configured.
func (e *Engine) Close() error {
	if e.stopSync != nil {
		close(e.stopSync)
		e.syncWG.Wait()
	}
	if e.persist != nil {
		if err := e.persist.Close(); err != nil {
			return err
		}
	}
	return e.traceExporter.Close()
}

// GetAllNodes returns every node currently in the working set.
func (e *Engine) GetAllNodes() []*graph.Node {
	return e.store.GetAllNodes()
}

// GetAllEdges returns every edge currently in the working set.
func (e *Engine) GetAllEdges() []*graph.Edge {
	return e.store.GetAllEdges()
}

// GetNode looks up a single node by id.
func (e *Engine) GetNode(id string) (*graph.Node, error) {
	return e.store.GetNode(id)
}

// Clear empties the graph, every index, the temporal layer, and the memory
// manager's recency tracking. It does not touch anything already synced to
// persistence; callers that want a durable wipe should also delete the
// persistence directory.
func (e *Engine) Clear() {
	e.store.Clear()
}

// EngineStats reports basic telemetry about the working set, mirroring
// gognee.Stats but without the SQL-backed memory-record count this module
// doesn't have.
type EngineStats struct {
	NodeCount int
	EdgeCount int
	Density   float64
}

// GetMetrics returns the current working-set telemetry plus the
// process-scoped classified-error tally, for callers without a Prometheus
// scrape target wired up.
func (e *Engine) GetMetrics() (EngineStats, map[string]int64) {
	nodes := e.store.GetAllNodes()
	edges := e.store.GetAllEdges()
	stats := EngineStats{
		NodeCount: len(nodes),
		EdgeCount: len(edges),
		Density:   e.store.Density(),
	}
	e.metricsCollector.SetStorageCount(context.Background(), "nodes", int64(stats.NodeCount))
	e.metricsCollector.SetStorageCount(context.Background(), "edges", int64(stats.EdgeCount))
	return stats, ErrorCounts()
}

func (e *Engine) recordOperation(ctx context.Context, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		errType := ClassifyError(err)
		recordErrorCount(errType)
		e.metricsCollector.RecordError(ctx, op, errType)
	}
	e.metricsCollector.RecordOperation(ctx, op, status, time.Since(start).Milliseconds())
}

func (e *Engine) exportTrace(ctx context.Context, operationID, op string, start time.Time, err error) {
	status := "success"
	errType := ""
	if err != nil {
		status = "error"
		errType = ClassifyError(err)
	}
	_ = e.traceExporter.Export(ctx, &trace.TraceRecord{
		Timestamp:   start,
		OperationID: operationID,
		Operation:   op,
		DurationMs:  time.Since(start).Milliseconds(),
		Status:      status,
		ErrorType:   errType,
	})
}

// AddMemoryOptions configures AddMemory.
type AddMemoryOptions struct {
	// NodeType classifies the node; defaults to "memory".
	NodeType string
	// Properties seeds the node's property map beyond "text".
	Properties graph.PropertyMap
	// Embedding attaches a vector to the node, if the caller already
	// generated one (this module never calls an embedding service itself).
	Embedding []float32
}

// AddMemoryResult reports the outcome of AddMemory.
type AddMemoryResult struct {
	Node *graph.Node
}

// AddMemory inserts text as a new node, the way gognee.AddMemory creates a
// memory-backed node from extracted content — except this module accepts
// already-extracted text/properties directly, since extraction itself is
// an external collaborator's job.
func (e *Engine) AddMemory(ctx context.Context, text string, opts AddMemoryOptions) (*AddMemoryResult, error) {
	start := time.Now()
	operationID := uuid.NewString()

	nodeType := opts.NodeType
	if nodeType == "" {
		nodeType = "memory"
	}
	props := opts.Properties.Clone()
	if props == nil {
		props = make(graph.PropertyMap)
	}
	props["text"] = graph.StringValue(text)

	node, err := e.store.AddNode(&graph.Node{
		Type:       nodeType,
		Properties: props,
		Embedding:  opts.Embedding,
	})
	e.recordOperation(ctx, "add_memory", start, err)
	e.exportTrace(ctx, operationID, "add_memory", start, err)
	if err != nil {
		return nil, err
	}
	return &AddMemoryResult{Node: node}, nil
}

// QueryOptions configures QueryMemory.
type QueryOptions struct {
	// Embedding, if non-empty, is combined with text matching in ranking.
	Embedding []float32
}

// QueryMemory ranks nodes against queryText (and an optional embedding),
// the way gognee.Search ranks memories against a query, generalized onto
// query.Processor's additive scoring instead of a vector-store round trip.
func (e *Engine) QueryMemory(ctx context.Context, queryText string, opts QueryOptions) ([]query.ScoredNode, error) {
	start := time.Now()
	operationID := uuid.NewString()

	results, err := e.processor.FindRelevantNodes(queryText, opts.Embedding)
	e.recordOperation(ctx, "query_memory", start, err)
	e.exportTrace(ctx, operationID, "query_memory", start, err)
	return results, err
}

// BFSOptions configures BFSTraversal.
type BFSOptions struct {
	MaxDepth         int
	MaxNodes         int
	Direction        traversal.Direction
	IncludeStartNode bool
	RelTypes         []string
}

// BFSTraversal runs a bounded breadth-first walk from nodeID.
func (e *Engine) BFSTraversal(ctx context.Context, nodeID string, opts BFSOptions) (*traversal.Result, error) {
	start := time.Now()
	operationID := uuid.NewString()

	cfg := traversal.Config{
		MaxDepth:         opts.MaxDepth,
		MaxNodes:         opts.MaxNodes,
		RelTypes:         opts.RelTypes,
		Direction:        opts.Direction,
		IncludeStartNode: opts.IncludeStartNode,
	}
	result, err := traversal.BFS(e.store, nodeID, cfg)
	e.recordOperation(ctx, "bfs_traversal", start, err)
	e.exportTrace(ctx, operationID, "bfs_traversal", start, err)
	return result, err
}

// BulkAddResult reports how many nodes and edges a BulkAdd call created.
type BulkAddResult struct {
	NodesCreated int
	EdgesCreated int
	Errors       []error
}

// BulkAdd inserts many nodes and edges in one call, collecting per-item
// errors rather than aborting on the first failure — matching
// gognee.Cognify's "keep going, report skipped items" error-accumulation
// idiom for bulk graph writes.
func (e *Engine) BulkAdd(ctx context.Context, nodes []*graph.Node, edges []*graph.Edge) (*BulkAddResult, error) {
	start := time.Now()
	operationID := uuid.NewString()

	result := &BulkAddResult{}
	for _, n := range nodes {
		if _, err := e.store.AddNode(n); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("add node: %w", err))
			continue
		}
		result.NodesCreated++
	}
	for _, ed := range edges {
		if _, err := e.store.AddEdge(ed); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("add edge: %w", err))
			continue
		}
		result.EdgesCreated++
	}

	var reportErr error
	if len(result.Errors) > 0 {
		reportErr = result.Errors[0]
	}
	e.recordOperation(ctx, "bulk_add", start, reportErr)
	e.exportTrace(ctx, operationID, "bulk_add", start, reportErr)
	return result, nil
}
