package delta

import (
	"reflect"
	"sort"
)

// AttributeMap holds formatting attributes of an op. A key mapped to nil
// removes that attribute when composed.
type AttributeMap map[string]any

// Clone returns a shallow copy; nil and empty maps clone to nil.
func (a AttributeMap) Clone() AttributeMap {
	if len(a) == 0 {
		return nil
	}
	out := make(AttributeMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same keys with equal values.
// Nil and empty maps are equal.
func (a AttributeMap) Equal(b AttributeMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !ValueEqual(av, bv) {
			return false
		}
	}
	return true
}

// Keys returns the sorted attribute names.
func (a AttributeMap) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the attribute as a string, or "" if absent or of another type.
func (a AttributeMap) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Number returns a numeric attribute as float64.
func (a AttributeMap) Number(key string) (float64, bool) {
	return toFloat(a[key])
}

// Bool returns a boolean attribute; absent is false.
func (a AttributeMap) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Without returns a copy of a with keys removed.
func (a AttributeMap) Without(keys ...string) AttributeMap {
	out := a.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Only returns a copy of a restricted to keys.
func (a AttributeMap) Only(keys ...string) AttributeMap {
	var out AttributeMap
	for _, k := range keys {
		if v, ok := a[k]; ok {
			if out == nil {
				out = AttributeMap{}
			}
			out[k] = v
		}
	}
	return out
}

// ValueEqual compares attribute values. Numbers compare by value regardless of
// their Go type, since decoded JSON yields float64 while code often uses int.
func ValueEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

// ComposeAttributes applies b on top of a. With keepNull false, nil values in b
// delete the key; with keepNull true they are kept so a later compose can delete.
func ComposeAttributes(a, b AttributeMap, keepNull bool) AttributeMap {
	out := AttributeMap{}
	for k, v := range b {
		if v == nil && !keepNull {
			continue
		}
		out[k] = v
	}
	for k, v := range a {
		if _, inB := b[k]; !inB {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DiffAttributes returns the attributes that turn a into b.
func DiffAttributes(a, b AttributeMap) AttributeMap {
	out := AttributeMap{}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			out[k] = nil
			continue
		}
		if !ValueEqual(av, bv) {
			out[k] = bv
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			out[k] = bv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// InvertAttributes returns the attributes that undo attr applied over base.
func InvertAttributes(attr, base AttributeMap) AttributeMap {
	out := AttributeMap{}
	for k, bv := range base {
		if av, ok := attr[k]; ok && !ValueEqual(av, bv) {
			out[k] = bv
		}
	}
	for k := range attr {
		if _, ok := base[k]; !ok {
			out[k] = nil
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TransformAttributes rebases b against a concurrent a. With priority, a wins
// on conflicting keys.
func TransformAttributes(a, b AttributeMap, priority bool) AttributeMap {
	if len(a) == 0 {
		return b.Clone()
	}
	if len(b) == 0 {
		return nil
	}
	if !priority {
		return b.Clone()
	}
	out := AttributeMap{}
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
