package spanz

import (
	"fmt"
	"slices"
)

// AttributeType identifies which variant an Attribute holds.
type AttributeType int

const (
	AttributeInvalid AttributeType = iota
	AttributeInt32
	AttributeInt64
	AttributeFloat64
	AttributeString
	AttributeBool
	AttributeInt32Slice
	AttributeInt64Slice
	AttributeFloat64Slice
	AttributeStringSlice
	AttributeBoolSlice
)

var attributeTypeNames = [...]string{
	AttributeInvalid:      "invalid",
	AttributeInt32:        "int32",
	AttributeInt64:        "int64",
	AttributeFloat64:      "float64",
	AttributeString:       "string",
	AttributeBool:         "bool",
	AttributeInt32Slice:   "[]int32",
	AttributeInt64Slice:   "[]int64",
	AttributeFloat64Slice: "[]float64",
	AttributeStringSlice:  "[]string",
	AttributeBoolSlice:    "[]bool",
}

func (t AttributeType) String() string {
	if t < 0 || int(t) >= len(attributeTypeNames) {
		return attributeTypeNames[AttributeInvalid]
	}
	return attributeTypeNames[t]
}

// Attribute is a typed span or event attribute value.
// The zero Attribute is invalid. Slice values are copied on the way in and
// on the way out, so an Attribute never aliases caller memory.
type Attribute struct {
	value any
	typ   AttributeType
}

// Constructors for each Attribute variant.
func Int32(v int32) Attribute     { return Attribute{typ: AttributeInt32, value: v} }
func Int64(v int64) Attribute     { return Attribute{typ: AttributeInt64, value: v} }
func Float64(v float64) Attribute { return Attribute{typ: AttributeFloat64, value: v} }
func String(v string) Attribute   { return Attribute{typ: AttributeString, value: v} }
func Bool(v bool) Attribute       { return Attribute{typ: AttributeBool, value: v} }

func Int32Slice(v []int32) Attribute {
	return Attribute{typ: AttributeInt32Slice, value: slices.Clone(v)}
}

func Int64Slice(v []int64) Attribute {
	return Attribute{typ: AttributeInt64Slice, value: slices.Clone(v)}
}

func Float64Slice(v []float64) Attribute {
	return Attribute{typ: AttributeFloat64Slice, value: slices.Clone(v)}
}

func StringSlice(v []string) Attribute {
	return Attribute{typ: AttributeStringSlice, value: slices.Clone(v)}
}

func BoolSlice(v []bool) Attribute {
	return Attribute{typ: AttributeBoolSlice, value: slices.Clone(v)}
}

// Type returns the variant held by a.
func (a Attribute) Type() AttributeType { return a.typ }

func (a Attribute) AsInt32() (int32, bool) {
	v, ok := a.value.(int32)
	return v, ok
}

func (a Attribute) AsInt64() (int64, bool) {
	v, ok := a.value.(int64)
	return v, ok
}

func (a Attribute) AsFloat64() (float64, bool) {
	v, ok := a.value.(float64)
	return v, ok
}

func (a Attribute) AsString() (string, bool) {
	v, ok := a.value.(string)
	return v, ok
}

func (a Attribute) AsBool() (bool, bool) {
	v, ok := a.value.(bool)
	return v, ok
}

func (a Attribute) AsInt32Slice() ([]int32, bool) {
	v, ok := a.value.([]int32)
	return slices.Clone(v), ok
}

func (a Attribute) AsInt64Slice() ([]int64, bool) {
	v, ok := a.value.([]int64)
	return slices.Clone(v), ok
}

func (a Attribute) AsFloat64Slice() ([]float64, bool) {
	v, ok := a.value.([]float64)
	return slices.Clone(v), ok
}

func (a Attribute) AsStringSlice() ([]string, bool) {
	v, ok := a.value.([]string)
	return slices.Clone(v), ok
}

func (a Attribute) AsBoolSlice() ([]bool, bool) {
	v, ok := a.value.([]bool)
	return slices.Clone(v), ok
}

// Equal reports whether a and b hold the same variant and value.
func (a Attribute) Equal(b Attribute) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case AttributeInt32Slice:
		return slices.Equal(a.value.([]int32), b.value.([]int32))
	case AttributeInt64Slice:
		return slices.Equal(a.value.([]int64), b.value.([]int64))
	case AttributeFloat64Slice:
		return slices.Equal(a.value.([]float64), b.value.([]float64))
	case AttributeStringSlice:
		return slices.Equal(a.value.([]string), b.value.([]string))
	case AttributeBoolSlice:
		return slices.Equal(a.value.([]bool), b.value.([]bool))
	default:
		return a.value == b.value
	}
}

func (a Attribute) String() string {
	if a.typ == AttributeInvalid {
		return "<invalid>"
	}
	return fmt.Sprint(a.value)
}

// KeyValue pairs an attribute key with its value.
type KeyValue struct {
	Key   string
	Value Attribute
}

// Attributes maps string keys to Attribute values.
// Iteration follows first-insertion order; equality ignores order.
// The zero value is an empty container ready for use. Set, Delete and Merge
// copy the storage before changing it, so a container copied by assignment
// never observes changes made through another copy. Attributes is not safe
// for concurrent mutation; spans guard theirs with the span lock.
type Attributes struct {
	values map[string]Attribute
	keys   []string
}

// NewAttributes builds a container from key/value pairs. Later duplicates win.
func NewAttributes(kvs ...KeyValue) Attributes {
	var a Attributes
	for _, kv := range kvs {
		a.set(kv.Key, kv.Value)
	}
	return a
}

// Set stores value under key. Replacing a value keeps the key's position.
func (a *Attributes) Set(key string, value Attribute) {
	*a = a.Clone()
	a.set(key, value)
}

// set mutates a's storage in place. Only for containers a owns exclusively.
func (a *Attributes) set(key string, value Attribute) {
	if a.values == nil {
		a.values = make(map[string]Attribute)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (Attribute, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Delete removes key. Missing keys are ignored.
func (a *Attributes) Delete(key string) {
	if _, exists := a.values[key]; !exists {
		return
	}
	c := a.Clone()
	delete(c.values, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	*a = c
}

// Len returns the number of keys.
func (a Attributes) Len() int { return len(a.values) }

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string { return slices.Clone(a.keys) }

// Range calls fn for each pair in insertion order until fn returns false.
func (a Attributes) Range(fn func(key string, value Attribute) bool) {
	for _, k := range a.keys {
		if !fn(k, a.values[k]) {
			return
		}
	}
}

// Merge copies every pair of other into a. Values from other win.
func (a *Attributes) Merge(other Attributes) {
	if other.Len() == 0 {
		return
	}
	*a = a.Clone()
	a.merge(other)
}

func (a *Attributes) merge(other Attributes) {
	other.Range(func(k string, v Attribute) bool {
		a.set(k, v)
		return true
	})
}

// Clone returns a copy that shares no storage with a.
func (a Attributes) Clone() Attributes {
	if len(a.keys) == 0 {
		return Attributes{}
	}
	clone := Attributes{
		values: make(map[string]Attribute, len(a.values)),
		keys:   slices.Clone(a.keys),
	}
	for k, v := range a.values {
		clone.values[k] = v
	}
	return clone
}

// Equal reports whether a and b hold the same pairs, ignoring order.
func (a Attributes) Equal(b Attributes) bool {
	if len(a.values) != len(b.values) {
		return false
	}
	for k, v := range a.values {
		other, ok := b.values[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}
