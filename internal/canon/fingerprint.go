package canon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InterfaceTag is the type tag of the synthetic interface fingerprint.
const InterfaceTag = "TREE SOCKETS"

const (
	fieldSep = "\x1f"
	innerSep = "\x1e"
)

// Fingerprint is the ordered structural signature of one node. Fields[0] is
// the node type tag; every other field is a canonical comparison key.
type Fingerprint struct {
	Node   string
	Fields []string
}

// Type returns the leading type tag.
func (f *Fingerprint) Type() string {
	if len(f.Fields) == 0 {
		return ""
	}
	return f.Fields[0]
}

// Comparable returns the fields after the type tag.
func (f *Fingerprint) Comparable() []string {
	if len(f.Fields) == 0 {
		return nil
	}
	return f.Fields[1:]
}

// Key is the canonical string form of the whole fingerprint.
func (f *Fingerprint) Key() string {
	return strings.Join(f.Fields, fieldSep)
}

// Equal reports field-wise equality; node names are ignored.
func (f *Fingerprint) Equal(o *Fingerprint) bool {
	if len(f.Fields) != len(o.Fields) {
		return false
	}
	for i := range f.Fields {
		if f.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// SortedKeys returns the sorted fingerprint keys of a collection, the
// canonical form of the collection as a multiset.
func SortedKeys(fps []*Fingerprint) []string {
	keys := make([]string, len(fps))
	for i, f := range fps {
		keys[i] = f.Key()
	}
	sort.Strings(keys)
	return keys
}

// FieldCount sums the comparable fields of a collection.
func FieldCount(fps []*Fingerprint) int {
	n := 0
	for _, f := range fps {
		n += len(f.Comparable())
	}
	return n
}

// Encode returns the canonical comparison key of a literal value. Numbers of
// any Go type share one encoding, lists become tuples and maps are sorted.
func Encode(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case bool:
		return "b:" + strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	case int:
		return number(float64(x))
	case int64:
		return number(float64(x))
	case uint64:
		return number(float64(x))
	case float32:
		return number(float64(x))
	case float64:
		return number(x)
	case []any:
		parts := make([]string, len(x))
		for i, it := range x {
			parts[i] = Encode(it)
		}
		return tuple(parts...)
	case []float64:
		return floats(x...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + "=" + Encode(x[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return "?" + strconv.Quote(fmt.Sprint(v))
}

func number(f float64) string {
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

func floats(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = number(f)
	}
	return tuple(parts...)
}

func tuple(parts ...string) string {
	return "(" + strings.Join(parts, ",") + ")"
}

func quote(s string) string {
	return strconv.Quote(s)
}

func linkField(out int, reduced []string) string {
	return "ref:" + strconv.Itoa(out) + ":[" + strings.Join(reduced, innerSep) + "]"
}
