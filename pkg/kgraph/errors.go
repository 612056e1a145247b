package kgraph

import (
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arborgraph/kgraph/pkg/graph"
)

// Error type constants used to classify any error this module's public
// operations can return, whether it originates internally (graph, index,
// temporal) or from an opaque external collaborator (an extraction,
// embedding, or vision service the caller passed data through).
const (
	ErrTypeCapacity        = "capacity"
	ErrTypeNotFound        = "not_found"
	ErrTypeInvariant       = "invariant"
	ErrTypeInvalidArgument = "invalid_argument"
	ErrTypePersistence     = "persistence"
	ErrTypeExtraction      = "extraction"
	ErrTypeVision          = "vision"
	ErrTypeNetwork         = "network"
	ErrTypeUnknown         = "unknown"
)

// ClassifyError inspects err and returns its type classification, for use
// in metrics labels and trace records. Internal sentinel errors are
// classified first via errors.Is; everything else falls through a
// substring cascade the way the teacher's ClassifyError does, generalized
// with persistence/extraction/vision buckets for this module's wider
// collaborator surface.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, graph.ErrCapacityExceeded):
		return ErrTypeCapacity
	case errors.Is(err, graph.ErrNotFound):
		return ErrTypeNotFound
	case errors.Is(err, graph.ErrInvariant):
		return ErrTypeInvariant
	case errors.Is(err, graph.ErrInvalidArgument):
		return ErrTypeInvalidArgument
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return ErrTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "dial tcp"):
		return ErrTypeNetwork
	case strings.Contains(msg, "extraction"), strings.Contains(msg, "entity extractor"):
		return ErrTypeExtraction
	case strings.Contains(msg, "vision"), strings.Contains(msg, "image"):
		return ErrTypeVision
	case strings.Contains(msg, "persistence:"), strings.Contains(msg, "ledger"), strings.Contains(msg, "sqlite"):
		return ErrTypePersistence
	default:
		return ErrTypeUnknown
	}
}

// errorCounts is a process-scoped tally of classified errors by type,
// cleared only by ResetErrorCounts, surfaced through Engine.GetMetrics for operators without a
// Prometheus scrape target configured.
var errorCounts sync.Map // map[string]*int64

func recordErrorCount(errType string) {
	v, _ := errorCounts.LoadOrStore(errType, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// ErrorCounts returns a snapshot of every classified error type seen by
// this process and its count so far.
func ErrorCounts() map[string]int64 {
	out := make(map[string]int64)
	errorCounts.Range(func(key, value interface{}) bool {
		out[key.(string)] = atomic.LoadInt64(value.(*int64))
		return true
	})
	return out
}

// ResetErrorCounts clears the process-scoped tally. Exposed for tests;
// production code never needs to call this.
func ResetErrorCounts() {
	errorCounts.Range(func(key, _ interface{}) bool {
		errorCounts.Delete(key)
		return true
	})
}
