// Package structural holds free helpers for copying and comparing untyped
// form data: maps of string to any whose values may themselves be maps or
// slices.
//
// Clone copies plain maps (map[string]any) and slices ([]any) element by
// element, recursing into nested maps and slices, and copies every other
// value by reference.  Diff reports which top-level keys of one map differ
// from another.  Neither helper knows about forms; the engine uses them for
// copy-on-construct and dirty tracking.
package structural

import (
	"math"
	"reflect"
	"sort"
)

// Clone returns a structural copy of obj.  A nil map clones to an empty,
// non-nil map.
func Clone(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

// Fill returns a map with the keys of obj, each set to v.
func Fill[V any](obj map[string]any, v V) map[string]V {
	out := make(map[string]V, len(obj))
	for k := range obj {
		out[k] = v
	}
	return out
}

// Finite returns a shallow copy of obj with NaN and infinite float64 values
// replaced by nil.  JSON has no spelling for them.
func Finite(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		out[k] = v
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		return Clone(t)
	case []any:
		if t == nil {
			return t
		}
		cp := make([]any, len(t))
		for i, el := range t {
			cp[i] = cloneValue(el)
		}
		return cp
	default:
		return v
	}
}

// Diff returns the keys of base whose values differ in other, in sorted
// order.  Keys present only in other are ignored.
//
// Rules:
//   - A key missing from other differs.
//   - Two slices differ when their lengths differ or when some element of
//     base has no equal element in other.
//   - Two plain maps differ when Diff between them is non-empty.
//   - Any other pair differs when the values are not equal.
func Diff(base, other map[string]any) []string {
	out := []string{}
	for _, key := range sortedKeys(base) {
		ov, ok := other[key]
		if !ok || differs(base[key], ov) {
			out = append(out, key)
		}
	}
	return out
}

func differs(a, b any) bool {
	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok {
			return true
		}
		if len(as) != len(bs) {
			return true
		}
		for _, el := range as {
			if !contains(bs, el) {
				return true
			}
		}
		return false
	}
	if am, ok := a.(map[string]any); ok {
		bm, ok := b.(map[string]any)
		if !ok || (am == nil) != (bm == nil) {
			return true
		}
		return len(Diff(am, bm)) > 0
	}
	return !equal(a, b)
}

func contains(list []any, el any) bool {
	for _, candidate := range list {
		if !differs(el, candidate) {
			return true
		}
	}
	return false
}

// equal compares scalars.  Uncomparable values (funcs, other slice or map
// types) fall back to reflect.DeepEqual.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func sortedKeys(m map[string]any) []string {
	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
