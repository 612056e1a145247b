package index

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// tokenize splits text on whitespace/punctuation and lowercases each token,
// matching the whitespace/punctuation splitting convention used elsewhere
// in this codebase's text handling.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// TextIndex is an inverted index from lowercased token to the set of ids
// whose indexed text contains that token, plus the per-id token set needed
// for fuzzy (Jaccard-like) matching.
type TextIndex struct {
	mu sync.RWMutex

	inverted map[string]map[string]struct{}
	docs     map[string]map[string]struct{} // id -> token set
}

// NewTextIndex creates an empty text index.
func NewTextIndex() *TextIndex {
	return &TextIndex{
		inverted: make(map[string]map[string]struct{}),
		docs:     make(map[string]map[string]struct{}),
	}
}

// Add indexes text under id, replacing any prior entry for id.
func (t *TextIndex) Add(id, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(id)

	tokens := tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
		if t.inverted[tok] == nil {
			t.inverted[tok] = make(map[string]struct{})
		}
		t.inverted[tok][id] = struct{}{}
	}
	t.docs[id] = set
}

// Remove drops id from the index.
func (t *TextIndex) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *TextIndex) removeLocked(id string) {
	tokens, ok := t.docs[id]
	if !ok {
		return
	}
	for tok := range tokens {
		if set, ok := t.inverted[tok]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(t.inverted, tok)
			}
		}
	}
	delete(t.docs, id)
}

// Query returns ids whose indexed text contains term exactly (after the
// same lowercase/punctuation tokenization).
func (t *TextIndex) Query(term string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	toks := tokenize(term)
	if len(toks) == 0 {
		return nil
	}

	set := t.inverted[toks[0]]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FuzzyQuery returns ids whose token set has a Jaccard similarity to
// text's token set of at least threshold (in [0,1]).
func (t *TextIndex) FuzzyQuery(text string, threshold float64) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	queryTokens := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		queryTokens[tok] = struct{}{}
	}
	if len(queryTokens) == 0 {
		return nil
	}

	var out []string
	for id, docTokens := range t.docs {
		if jaccard(queryTokens, docTokens) >= threshold {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Stats returns the number of distinct tokens and indexed documents.
func (t *TextIndex) Stats() (tokens int, docs int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.inverted), len(t.docs)
}
