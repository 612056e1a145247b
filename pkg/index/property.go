package index

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/arborgraph/kgraph/pkg/graph"
)

// Operator is a property-query comparator.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

type propertyEntry struct {
	id    string
	value graph.Value
}

// PropertyIndex maps (property name, value) to ids, with a per-property
// sorted slice supporting range queries (lt/gt/gte/lte).
type PropertyIndex struct {
	mu sync.RWMutex

	// entries[propName] is sorted by value.Less for range queries.
	entries map[string][]propertyEntry
	// nodeProps[id][propName] lets Remove find exactly which entries to drop.
	nodeProps map[string]graph.PropertyMap
}

// NewPropertyIndex creates an empty property index.
func NewPropertyIndex() *PropertyIndex {
	return &PropertyIndex{
		entries:   make(map[string][]propertyEntry),
		nodeProps: make(map[string]graph.PropertyMap),
	}
}

// Add indexes every property of id, replacing any prior entry for id.
func (p *PropertyIndex) Add(id string, properties graph.PropertyMap) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(id)

	stored := properties.Clone()
	p.nodeProps[id] = stored
	for propName, value := range stored {
		p.insertLocked(propName, propertyEntry{id: id, value: value})
	}
}

func (p *PropertyIndex) insertLocked(propName string, entry propertyEntry) {
	slice := p.entries[propName]
	i := sort.Search(len(slice), func(i int) bool { return !slice[i].value.Less(entry.value) })
	slice = append(slice, propertyEntry{})
	copy(slice[i+1:], slice[i:])
	slice[i] = entry
	p.entries[propName] = slice
}

// Remove drops every indexed property for id.
func (p *PropertyIndex) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(id)
}

func (p *PropertyIndex) removeLocked(id string) {
	props, ok := p.nodeProps[id]
	if !ok {
		return
	}
	for propName := range props {
		slice := p.entries[propName]
		filtered := slice[:0]
		for _, e := range slice {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(p.entries, propName)
		} else {
			p.entries[propName] = filtered
		}
	}
	delete(p.nodeProps, id)
}

// Query returns ids whose propName value satisfies op against value.
// Numeric comparators (lt/gt/gte/lte) require both the query value and the
// candidate's stored value to be numbers; non-numeric candidates are
// skipped, not errored. An unsupported operator or a non-string "matches"
// pattern returns a graph.InvalidArgumentError.
func (p *PropertyIndex) Query(propName string, op Operator, value graph.Value) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	slice := p.entries[propName]

	var re *regexp.Regexp
	if op == OpMatches {
		pattern, ok := value.AsString()
		if !ok {
			return nil, &graph.InvalidArgumentError{Field: "value", Reason: "matches operator requires a string pattern"}
		}
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, &graph.InvalidArgumentError{Field: "value", Reason: "invalid regex: " + err.Error()}
		}
	}

	var out []string
	for _, e := range slice {
		ok, err := evalOperator(op, e.value, value, re)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e.id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func evalOperator(op Operator, candidate, query graph.Value, re *regexp.Regexp) (bool, error) {
	switch op {
	case OpEq:
		return candidate.Equal(query), nil
	case OpNe:
		return !candidate.Equal(query), nil
	case OpLt, OpGt, OpGte, OpLte:
		cn, ok1 := candidate.AsNumber()
		qn, ok2 := query.AsNumber()
		if !ok1 || !ok2 {
			return false, nil
		}
		switch op {
		case OpLt:
			return cn < qn, nil
		case OpGt:
			return cn > qn, nil
		case OpGte:
			return cn >= qn, nil
		default:
			return cn <= qn, nil
		}
	case OpContains:
		return strings.Contains(candidate.String(), query.String()), nil
	case OpMatches:
		return re.MatchString(candidate.String()), nil
	default:
		return false, &graph.InvalidArgumentError{Field: "operator", Reason: "unsupported operator " + string(op)}
	}
}

// Stats returns the number of indexed properties and total entries across
// all of them.
func (p *PropertyIndex) Stats() (properties int, entries int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	properties = len(p.entries)
	for _, slice := range p.entries {
		entries += len(slice)
	}
	return properties, entries
}
