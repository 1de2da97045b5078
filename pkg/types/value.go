// Package types defines the value model shared by the resolution engine.
// Step outputs are JSON-shaped: null, bool, number, string, array, object.
// Numbers keep an int64/float64 split internally so large integers survive
// a decode/encode round trip; objects keep document key order.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueType discriminates the tagged union.
type ValueType int

const (
	TypeNull   ValueType = iota
	TypeBool             // bool
	TypeInt              // int64
	TypeFloat            // float64
	TypeString           // string
	TypeArray            // []Value
	TypeObject           // ordered map of string -> Value
)

// String returns the data-type name used in error messages and on the wire.
// Both integer and floating-point values report "number".
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeInt, TypeFloat:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the JSON-compatible value shapes.
type Value struct {
	typ       ValueType
	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string
	arrayVal  []Value
	objectVal *OrderedMap
}

// OrderedMap is a string-keyed map that preserves insertion order, so an
// object decoded from JSON re-encodes with its original key order.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{
		keys:   make([]string, 0),
		values: make(map[string]Value),
	}
}

// Get retrieves a value by key. Returns the value and whether it exists.
func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set adds or updates a key-value pair, preserving insertion order.
func (m *OrderedMap) Set(key string, val Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Clone creates a deep copy of the ordered map.
func (m *OrderedMap) Clone() *OrderedMap {
	c := NewOrderedMap()
	for _, k := range m.keys {
		c.Set(k, m.values[k].Clone())
	}
	return c
}

// Null is the singleton null value.
var Null = Value{typ: TypeNull}

// NewBool creates a boolean value.
func NewBool(v bool) Value {
	return Value{typ: TypeBool, boolVal: v}
}

// NewInt creates an integer value (64-bit).
func NewInt(v int64) Value {
	return Value{typ: TypeInt, intVal: v}
}

// NewFloat creates a floating-point value (64-bit).
func NewFloat(v float64) Value {
	return Value{typ: TypeFloat, floatVal: v}
}

// NewString creates a string value.
func NewString(v string) Value {
	return Value{typ: TypeString, stringVal: v}
}

// NewArray creates an array value from a slice of values.
func NewArray(v []Value) Value {
	return Value{typ: TypeArray, arrayVal: v}
}

// NewObject creates an object value from an OrderedMap.
func NewObject(v *OrderedMap) Value {
	return Value{typ: TypeObject, objectVal: v}
}

// Type returns the value's type tag.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNull returns true if the value is null.
func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

// AsBool returns the boolean value. Panics if not a bool.
func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.typ))
	}
	return v.boolVal
}

// AsInt returns the integer value. Panics if not an int.
func (v Value) AsInt() int64 {
	if v.typ != TypeInt {
		panic(fmt.Sprintf("AsInt called on %s value", v.typ))
	}
	return v.intVal
}

// AsFloat returns the floating-point value. Panics if not a float.
func (v Value) AsFloat() float64 {
	if v.typ != TypeFloat {
		panic(fmt.Sprintf("AsFloat called on %s value", v.typ))
	}
	return v.floatVal
}

// AsString returns the string value. Panics if not a string.
func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("AsString called on %s value", v.typ))
	}
	return v.stringVal
}

// AsArray returns the array elements. Panics if not an array.
func (v Value) AsArray() []Value {
	if v.typ != TypeArray {
		panic(fmt.Sprintf("AsArray called on %s value", v.typ))
	}
	return v.arrayVal
}

// AsObject returns the object map. Panics if not an object.
func (v Value) AsObject() *OrderedMap {
	if v.typ != TypeObject {
		panic(fmt.Sprintf("AsObject called on %s value", v.typ))
	}
	return v.objectVal
}

// IsScalar reports whether the value admits no property or index access.
func (v Value) IsScalar() bool {
	switch v.typ {
	case TypeArray, TypeObject:
		return false
	default:
		return true
	}
}

// Clone creates a deep copy of the value.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeArray:
		items := make([]Value, len(v.arrayVal))
		for i, item := range v.arrayVal {
			items[i] = item.Clone()
		}
		return NewArray(items)
	case TypeObject:
		return NewObject(v.objectVal.Clone())
	default:
		return v // scalar types are value-copied
	}
}

// Equal tests deep equality between two values. Integer and float values
// compare numerically, so 999 == 999.0.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		if (v.typ == TypeInt || v.typ == TypeFloat) && (other.typ == TypeInt || other.typ == TypeFloat) {
			return v.asNumber() == other.asNumber()
		}
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool:
		return v.boolVal == other.boolVal
	case TypeInt:
		return v.intVal == other.intVal
	case TypeFloat:
		return v.floatVal == other.floatVal
	case TypeString:
		return v.stringVal == other.stringVal
	case TypeArray:
		if len(v.arrayVal) != len(other.arrayVal) {
			return false
		}
		for i := range v.arrayVal {
			if !v.arrayVal[i].Equal(other.arrayVal[i]) {
				return false
			}
		}
		return true
	case TypeObject:
		if v.objectVal.Len() != other.objectVal.Len() {
			return false
		}
		for _, k := range v.objectVal.Keys() {
			ov, ok := other.objectVal.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.objectVal.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) asNumber() float64 {
	if v.typ == TypeInt {
		return float64(v.intVal)
	}
	return v.floatVal
}

// Display returns the substitution string for a resolved reference:
// strings verbatim, numbers in canonical decimal form, booleans as
// true/false, null as "null", arrays and objects as compact JSON.
func (v Value) Display() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.floatVal, 'f', -1, 64)
	case TypeString:
		return v.stringVal
	case TypeArray, TypeObject:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// String returns a human-readable representation for debugging and previews.
// Unlike Display, strings are quoted so previews are unambiguous.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.stringVal)
	case TypeArray:
		parts := make([]string, len(v.arrayVal))
		for i, item := range v.arrayVal {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeObject:
		parts := make([]string, 0, v.objectVal.Len())
		for _, k := range v.objectVal.Keys() {
			val, _ := v.objectVal.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.Display()
	}
}

// MarshalJSON encodes a Value, iterating objects in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeNull:
		return []byte("null"), nil
	case TypeBool:
		if v.boolVal {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case TypeInt:
		return []byte(strconv.FormatInt(v.intVal, 10)), nil
	case TypeFloat:
		return json.Marshal(v.floatVal)
	case TypeString:
		return json.Marshal(v.stringVal)
	case TypeArray:
		buf := []byte{'['}
		for i, item := range v.arrayVal {
			if i > 0 {
				buf = append(buf, ',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
		}
		return append(buf, ']'), nil
	case TypeObject:
		buf := []byte{'{'}
		for i, k := range v.objectVal.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyBytes...)
			buf = append(buf, ':')
			val, _ := v.objectVal.Get(k)
			valBytes, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, valBytes...)
		}
		return append(buf, '}'), nil
	}
	return nil, fmt.Errorf("cannot marshal unknown type %d", v.typ)
}

// DecodeJSON parses a JSON document into a Value. Object key order follows
// the document, and integer literals up to int64 keep full precision.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Null, err
	}

	// Reject trailing content after the first document.
	if _, err := dec.Token(); err == nil {
		return Null, fmt.Errorf("unexpected trailing content in JSON document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case json.Number:
		return valueFromNumber(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null, err
			}
			return NewArray(items), nil
		case '{':
			m := NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null, err
			}
			return NewObject(m), nil
		}
	}
	return Null, fmt.Errorf("unexpected JSON token %v", tok)
}

func valueFromNumber(n json.Number) Value {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return NewInt(i)
		}
	}
	if f, err := n.Float64(); err == nil {
		return NewFloat(f)
	}
	return NewString(n.String())
}

// FromGoValue converts a plain Go value (as produced by yaml or json
// unmarshaling into interface{}) into a Value. Plain Go maps carry no
// order, so keys are sorted for determinism.
func FromGoValue(v interface{}) Value {
	if v == nil {
		return Null
	}
	switch val := v.(type) {
	case bool:
		return NewBool(val)
	case int:
		return NewInt(int64(val))
	case int64:
		return NewInt(val)
	case float64:
		return NewFloat(val)
	case json.Number:
		return valueFromNumber(val)
	case string:
		return NewString(val)
	case []interface{}:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromGoValue(item)
		}
		return NewArray(items)
	case map[string]interface{}:
		m := NewOrderedMap()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, FromGoValue(val[k]))
		}
		return NewObject(m)
	default:
		return NewString(fmt.Sprintf("%v", val))
	}
}

// ToGoValue converts a Value to a plain Go interface{} suitable for
// handing to encoding/json or template rendering.
func (v Value) ToGoValue() interface{} {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeBool:
		return v.boolVal
	case TypeInt:
		return v.intVal
	case TypeFloat:
		return v.floatVal
	case TypeString:
		return v.stringVal
	case TypeArray:
		result := make([]interface{}, len(v.arrayVal))
		for i, item := range v.arrayVal {
			result[i] = item.ToGoValue()
		}
		return result
	case TypeObject:
		result := make(map[string]interface{}, v.objectVal.Len())
		for _, k := range v.objectVal.Keys() {
			val, _ := v.objectVal.Get(k)
			result[k] = val.ToGoValue()
		}
		return result
	}
	return nil
}
