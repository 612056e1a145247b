// Package persistence is the durability boundary for the graph: it streams
// nodes and edges to chunked JSONL files and tracks per-record sync state in
// a small sqlite ledger. The in-memory graph stays the working set. Chunk
// files are read line by line, but LoadNodes/LoadEdges return every matching
// record in one slice, and DeleteNodes/DeleteEdges load the whole stream
// before rewriting it.
package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
)

// Config bounds chunk sizes for JSONLStore's node/edge streams.
type Config struct {
	Dir             string
	MaxFileSize     int64 // bytes; a chunk rolls over once it has reached this size
	MaxItemsPerFile int   // records; a chunk also rolls over before a write would take it past this count
}

// DefaultConfig mirrors the teacher's conservative file-size defaults for
// local, single-operator deployments.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		MaxFileSize:     64 * 1024 * 1024,
		MaxItemsPerFile: 50_000,
	}
}

// nodeRecord and edgeRecord are the JSONL wire shapes. graph.Value already
// round-trips through encoding/json, so Properties serializes directly.
type nodeRecord struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Properties graph.PropertyMap `json:"properties,omitempty"`
	Embedding  []float32         `json:"embeddings,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type edgeRecord struct {
	ID         string            `json:"id"`
	SourceID   string            `json:"source"`
	TargetID   string            `json:"target"`
	Type       string            `json:"type"`
	Weight     float64           `json:"weight"`
	Properties graph.PropertyMap `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Stats summarizes what's on disk, for GetStats.
type Stats struct {
	NodeFiles  int
	EdgeFiles  int
	NodeCount  int64
	EdgeCount  int64
	TotalBytes int64
}

// JSONLStore persists nodes and edges as chunked, append-only JSONL files
// under Config.Dir, plus a sqlite side ledger (Ledger) tracking dirty/synced
// state per record. It does not itself decide when to sync; callers (the
// orchestrator) drive StoreNodes/StoreEdges and consult the ledger for
// resumable retries.
type JSONLStore struct {
	cfg    Config
	ledger *Ledger
}

// NewJSONLStore creates the backing directory (if needed) and opens the
// sqlite sync ledger alongside it.
func NewJSONLStore(cfg Config) (*JSONLStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("persistence: Config.Dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: create dir: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultConfig(cfg.Dir).MaxFileSize
	}
	if cfg.MaxItemsPerFile <= 0 {
		cfg.MaxItemsPerFile = DefaultConfig(cfg.Dir).MaxItemsPerFile
	}

	ledger, err := OpenLedger(filepath.Join(cfg.Dir, "sync_state.db"))
	if err != nil {
		return nil, fmt.Errorf("persistence: open ledger: %w", err)
	}
	return &JSONLStore{cfg: cfg, ledger: ledger}, nil
}

// Close releases the ledger's database handle.
func (s *JSONLStore) Close() error {
	return s.ledger.Close()
}

func (s *JSONLStore) nodesDir() string { return filepath.Join(s.cfg.Dir, "nodes") }
func (s *JSONLStore) edgesDir() string { return filepath.Join(s.cfg.Dir, "edges") }

// StoreNodes appends nodes to the node chunk stream, rolling to a new chunk
// file when the active one would exceed MaxFileSize or MaxItemsPerFile, and
// records each node as dirty in the ledger until a caller marks it synced.
func (s *JSONLStore) StoreNodes(nodes []*graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.nodesDir(), 0o755); err != nil {
		return fmt.Errorf("persistence: create nodes dir: %w", err)
	}
	chunk, err := s.appendChunked(s.nodesDir(), "nodes", len(nodes), func(w *bufio.Writer) error {
		for _, n := range nodes {
			rec := nodeRecord{
				ID: n.ID, Type: n.Type, Properties: n.Properties,
				Embedding: n.Embedding, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
			}
			if err := writeJSONLine(w, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := s.ledger.MarkDirty(n.ID, RecordKindNode, chunk); err != nil {
			return fmt.Errorf("persistence: ledger mark dirty: %w", err)
		}
	}
	return nil
}

// StoreEdges is StoreNodes's edge counterpart.
func (s *JSONLStore) StoreEdges(edges []*graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.edgesDir(), 0o755); err != nil {
		return fmt.Errorf("persistence: create edges dir: %w", err)
	}
	chunk, err := s.appendChunked(s.edgesDir(), "edges", len(edges), func(w *bufio.Writer) error {
		for _, e := range edges {
			rec := edgeRecord{
				ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID, Type: e.Type,
				Weight: e.Weight, Properties: e.Properties, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
			}
			if err := writeJSONLine(w, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := s.ledger.MarkDirty(e.ID, RecordKindEdge, chunk); err != nil {
			return fmt.Errorf("persistence: ledger mark dirty: %w", err)
		}
	}
	return nil
}

// LoadOptions bounds and filters a LoadNodes/LoadEdges scan, per §4.10's
// loadNodes({limit, offset, nodeTypes?, since?}) surface. The zero value
// loads everything: no offset skipped, no limit, no type or recency filter.
// Offset/limit apply after filtering, over records in chunk order, so a
// paging caller doing cold start can resume deterministically across calls
// as long as the underlying chunk stream hasn't been rewritten meanwhile.
type LoadOptions struct {
	// Limit caps the number of records returned; 0 means unbounded.
	Limit int
	// Offset skips this many matching records before collecting results.
	Offset int
	// NodeTypes restricts results to these type tags; empty means no filter.
	// LoadEdges applies it to the edge Type.
	NodeTypes []string
	// Since restricts results to records with UpdatedAt >= Since; zero means
	// no recency filter.
	Since time.Time
}

func (o LoadOptions) typeSet() map[string]struct{} {
	if len(o.NodeTypes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(o.NodeTypes))
	for _, t := range o.NodeTypes {
		set[t] = struct{}{}
	}
	return set
}

// LoadNodes reads node chunk files under Dir in chunk order, applying opts'
// type/recency filter, offset, and limit. The zero LoadOptions loads every
// node.
func (s *JSONLStore) LoadNodes(opts LoadOptions) ([]*graph.Node, error) {
	allow := opts.typeSet()
	skipped := 0
	var out []*graph.Node
	err := forEachChunk(s.nodesDir(), "nodes", func(line []byte) error {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			return nil
		}
		var rec nodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("persistence: decode node record: %w", err)
		}
		if allow != nil {
			if _, ok := allow[rec.Type]; !ok {
				return nil
			}
		}
		if !opts.Since.IsZero() && rec.UpdatedAt.Before(opts.Since) {
			return nil
		}
		if skipped < opts.Offset {
			skipped++
			return nil
		}
		out = append(out, &graph.Node{
			ID: rec.ID, Type: rec.Type, Properties: rec.Properties,
			Embedding: rec.Embedding, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
		})
		return nil
	})
	return out, err
}

// LoadEdges is LoadNodes's edge counterpart; opts.NodeTypes filters edge
// Type instead of node Type, with the same semantics otherwise.
func (s *JSONLStore) LoadEdges(opts LoadOptions) ([]*graph.Edge, error) {
	allow := opts.typeSet()
	skipped := 0
	var out []*graph.Edge
	err := forEachChunk(s.edgesDir(), "edges", func(line []byte) error {
		if opts.Limit > 0 && len(out) >= opts.Limit {
			return nil
		}
		var rec edgeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("persistence: decode edge record: %w", err)
		}
		if allow != nil {
			if _, ok := allow[rec.Type]; !ok {
				return nil
			}
		}
		if !opts.Since.IsZero() && rec.UpdatedAt.Before(opts.Since) {
			return nil
		}
		if skipped < opts.Offset {
			skipped++
			return nil
		}
		out = append(out, &graph.Edge{
			ID: rec.ID, SourceID: rec.SourceID, TargetID: rec.TargetID, Type: rec.Type,
			Weight: rec.Weight, Properties: rec.Properties, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
		})
		return nil
	})
	return out, err
}

// DeleteNodes rewrites the node chunk stream omitting the given ids and
// clears their ledger rows. Chunked files are small enough in practice
// (MaxItemsPerFile-bounded) that a full rewrite-on-delete is acceptable; the
// teacher's SQLite store instead issues targeted DELETEs, which this ledger
// does for its own rows.
func (s *JSONLStore) DeleteNodes(ids []string) error {
	toDelete := toSet(ids)
	nodes, err := s.LoadNodes(LoadOptions{})
	if err != nil {
		return err
	}
	kept := nodes[:0]
	for _, n := range nodes {
		if !toDelete[n.ID] {
			kept = append(kept, n)
		}
	}
	if err := s.rewriteAll(s.nodesDir(), "nodes", len(kept), func(w *bufio.Writer, i int) error {
		n := kept[i]
		rec := nodeRecord{ID: n.ID, Type: n.Type, Properties: n.Properties, Embedding: n.Embedding, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
		return writeJSONLine(w, rec)
	}); err != nil {
		return err
	}
	for id := range toDelete {
		if err := s.ledger.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEdges is DeleteNodes's edge counterpart.
func (s *JSONLStore) DeleteEdges(ids []string) error {
	toDelete := toSet(ids)
	edges, err := s.LoadEdges(LoadOptions{})
	if err != nil {
		return err
	}
	kept := edges[:0]
	for _, e := range edges {
		if !toDelete[e.ID] {
			kept = append(kept, e)
		}
	}
	if err := s.rewriteAll(s.edgesDir(), "edges", len(kept), func(w *bufio.Writer, i int) error {
		e := kept[i]
		rec := edgeRecord{ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID, Type: e.Type, Weight: e.Weight, Properties: e.Properties, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
		return writeJSONLine(w, rec)
	}); err != nil {
		return err
	}
	for id := range toDelete {
		if err := s.ledger.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

// GetStats summarizes chunk counts, record counts, and total bytes on disk.
func (s *JSONLStore) GetStats() (Stats, error) {
	var stats Stats
	nodeFiles, nodeBytes, nodeCount, err := chunkStats(s.nodesDir(), "nodes")
	if err != nil {
		return stats, err
	}
	edgeFiles, edgeBytes, edgeCount, err := chunkStats(s.edgesDir(), "edges")
	if err != nil {
		return stats, err
	}
	stats.NodeFiles, stats.NodeCount = nodeFiles, nodeCount
	stats.EdgeFiles, stats.EdgeCount = edgeFiles, edgeCount
	stats.TotalBytes = nodeBytes + edgeBytes
	return stats, nil
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func writeJSONLine(w *bufio.Writer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persistence: encode record: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
