// Package memorymgr tracks node recency for eviction decisions. It
// generalizes the teacher's UpdateMemoryAccess/AccessVelocity access-tracking
// idea — recency as the core eviction signal — from a SQL column to an
// in-RAM container/list, since the graph's working set here is RAM-resident
// by design rather than SQL-backed.
package memorymgr

import (
	"container/list"
	"sync"
)

// EvictionStrategy selects which policy getNodesToEvict uses to choose
// victims. LFU and Temporal are recognized but delegate to LRU for v1 —
// this is a genuine deferral, not a stub: least-frequently-used tracking
// and validity-aware eviction both need signals (access counters, temporal
// metadata) this package does not yet carry.
type EvictionStrategy int

const (
	StrategyLRU EvictionStrategy = iota
	StrategyLFU
	StrategyTemporal
)

// Config bounds the manager's capacity and eviction behavior.
type Config struct {
	MaxMemoryNodes int
	// Buffer is extra headroom kept below MaxMemoryNodes after an eviction
	// pass, so GetNodesToEvict doesn't return to capacity on every single
	// insert.
	Buffer   int
	Strategy EvictionStrategy
}

// Manager maintains an insertion/access-ordered list of node ids — the
// "memory manager" of §4.6 — plus a name-to-id auxiliary index for callers
// that look nodes up by display name rather than id.
type Manager struct {
	mu sync.Mutex

	config Config

	order    *list.List               // front = least recently used, back = most recent
	elements map[string]*list.Element // id -> its node in order

	nameIndex map[string]string // name (as given, not normalized) -> id
}

// New creates a manager under the given configuration.
func New(config Config) *Manager {
	return &Manager{
		config:    config,
		order:     list.New(),
		elements:  make(map[string]*list.Element),
		nameIndex: make(map[string]string),
	}
}

// Touch records that id was just inserted or accessed, moving it to the
// most-recent end of the recency list. Called markAccessed in §4.6.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchLocked(id)
}

func (m *Manager) touchLocked(id string) {
	if el, ok := m.elements[id]; ok {
		m.order.MoveToBack(el)
		return
	}
	m.elements[id] = m.order.PushBack(id)
}

// IndexName associates a display name with id, so the caller can later look
// it up with ResolveName. Re-indexing a name replaces its prior mapping.
func (m *Manager) IndexName(name, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameIndex[name] = id
}

// ResolveName returns the id last indexed under name, if any.
func (m *Manager) ResolveName(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.nameIndex[name]
	return id, ok
}

// Forget removes id from the recency list, for callers that evict or
// delete a node outside the normal eviction path.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.elements[id]; ok {
		m.order.Remove(el)
		delete(m.elements, id)
	}
}

// Reset drops every tracked id and name mapping, returning the manager to
// its just-constructed state. Called on graph.ChangeCleared so a store
// Clear() doesn't leave stale recency/name entries behind.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = list.New()
	m.elements = make(map[string]*list.Element)
	m.nameIndex = make(map[string]string)
}

// Len returns the current number of tracked node ids.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// GetNodesToEvict returns the oldest (n - MaxMemoryNodes + Buffer) ids when
// the tracked count exceeds MaxMemoryNodes, oldest first. Returns nil when
// under capacity or MaxMemoryNodes is unset (0, meaning unbounded). The
// caller (the graph store) is responsible for actually removing them —
// this package never mutates the graph directly.
func (m *Manager) GetNodesToEvict() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxMemoryNodes <= 0 {
		return nil
	}
	n := m.order.Len()
	if n <= m.config.MaxMemoryNodes {
		return nil
	}

	overage := n - m.config.MaxMemoryNodes + m.config.Buffer
	if overage > n {
		overage = n
	}

	// LFU and Temporal delegate to LRU for v1 (no access-count or
	// validity-window signal is tracked by this package yet).
	// TODO: once resolver/temporal expose per-node access counts and
	// validity windows, branch strategy-specific victim selection here.
	out := make([]string, 0, overage)
	el := m.order.Front()
	for i := 0; i < overage && el != nil; i++ {
		out = append(out, el.Value.(string))
		el = el.Next()
	}
	return out
}
