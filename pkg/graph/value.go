package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind tags the concrete type carried by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
)

// Value is a tagged union over the property types the graph supports:
// string, number (float64), bool, or a small list of Values. Properties are
// never represented as a free-form map[string]interface{} — every
// comparison and serialization path is total over this union.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
}

// StringValue constructs a string-kind Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue constructs a number-kind Value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue constructs a bool-kind Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue constructs a list-kind Value from other Values.
func ListValue(items ...Value) Value { return Value{kind: KindList, list: items} }

// Kind reports the concrete type tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric payload and whether v is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the bool payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsList returns the list payload and whether v is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// String renders v for diagnostics and text indexing.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return fmt.Sprintf("%v", parts)
	default:
		return ""
	}
}

// Equal reports whether v and other hold the same kind and payload.
// List equality is order-sensitive.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Less provides a total order over Values of the same kind, used by the
// property index's sorted range structures. Cross-kind comparisons order by
// kind tag so a sort over mixed-kind values is still deterministic.
func (v Value) Less(other Value) bool {
	if v.kind != other.kind {
		return v.kind < other.kind
	}
	switch v.kind {
	case KindString:
		return v.str < other.str
	case KindNumber:
		return v.num < other.num
	case KindBool:
		return !v.b && other.b
	case KindList:
		n := len(v.list)
		if len(other.list) < n {
			n = len(other.list)
		}
		for i := 0; i < n; i++ {
			if v.list[i].Equal(other.list[i]) {
				continue
			}
			return v.list[i].Less(other.list[i])
		}
		return len(v.list) < len(other.list)
	default:
		return false
	}
}

// jsonValue is Value's wire shape: a kind tag plus whichever payload field
// applies, so round-tripping through persistence never needs a
// map[string]interface{} escape hatch.
type jsonValue struct {
	Kind ValueKind   `json:"kind"`
	Str  string      `json:"str,omitempty"`
	Num  float64     `json:"num,omitempty"`
	Bool bool        `json:"bool,omitempty"`
	List []jsonValue `json:"list,omitempty"`
}

func (v Value) toJSONValue() jsonValue {
	jv := jsonValue{Kind: v.kind, Str: v.str, Num: v.num, Bool: v.b}
	if v.kind == KindList {
		jv.List = make([]jsonValue, len(v.list))
		for i, item := range v.list {
			jv.List[i] = item.toJSONValue()
		}
	}
	return jv
}

func (jv jsonValue) toValue() Value {
	v := Value{kind: jv.Kind, str: jv.Str, num: jv.Num, b: jv.Bool}
	if jv.Kind == KindList {
		v.list = make([]Value, len(jv.List))
		for i, item := range jv.List {
			v.list[i] = item.toValue()
		}
	}
	return v
}

// MarshalJSON implements json.Marshaler so a Value round-trips through the
// persistence layer's JSONL records without losing its kind tag.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toJSONValue())
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	*v = jv.toValue()
	return nil
}

// PropertyMap is an unordered mapping from property name to Value.
type PropertyMap map[string]Value

// Clone returns a defensive deep copy of m.
func (m PropertyMap) Clone() PropertyMap {
	out := make(PropertyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SortedKeys returns m's keys in ascending order, for deterministic
// iteration (diagnostics, serialization).
func (m PropertyMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
