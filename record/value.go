// Package record loads JSON documents into ordered structured values.
//
// A document is always normalized to a Set of records: a top-level array yields one
// record per element, anything else yields a single record. Object members keep
// document order so that later stages (flattening, array serialization) behave
// deterministically.
package record

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	s       string // number literal or string contents
	arr     []Value
	members []Member
}

// Member is one key/value pair of an object
type Member struct {
	Key   string
	Value Value
}

// Set is the ordered sequence of records loaded from one document
type Set []Value

func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func StringValue(s string) Value { return Value{kind: String, s: s} }
func ArrayValue(vs ...Value) Value { return Value{kind: Array, arr: vs} }

// NumberValue keeps the literal exactly as written in the source document.
func NumberValue(n json.Number) Value { return Value{kind: Number, s: string(n)} }

// ObjectValue builds an object from members in the given order. Duplicate keys are
// collapsed: the first position is kept and the last value wins.
func ObjectValue(ms ...Member) Value {
	return Value{kind: Object, members: dedupeMembers(ms)}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) Bool() bool { return v.b }
func (v Value) Number() json.Number { return json.Number(v.s) }
func (v Value) Str() string { return v.s }
func (v Value) Elements() []Value { return v.arr }
func (v Value) Members() []Member { return v.members }
func (v Value) IsObject() bool { return v.kind == Object }
func (v Value) IsNull() bool { return v.kind == Null }

// Get returns the member value for key and whether it was present
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON encodes v compactly, in document order, without HTML escaping.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf, newStringEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AppendJSON is MarshalJSON into a caller-owned buffer.
func (v Value) AppendJSON(buf *bytes.Buffer) error {
	return v.encode(buf, newStringEncoder(buf))
}

func newStringEncoder(buf *bytes.Buffer) *json.Encoder {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return enc
}

func (v Value) encode(buf *bytes.Buffer, enc *json.Encoder) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.s)
	case String:
		return encodeString(buf, enc, v.s)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf, enc); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, enc, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf, enc); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// encodeString writes s as a JSON string. json.Encoder always appends a newline.
func encodeString(buf *bytes.Buffer, enc *json.Encoder, s string) error {
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func dedupeMembers(ms []Member) []Member {
	if len(ms) < 2 {
		return ms
	}
	index := make(map[string]int, len(ms))
	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		if i, ok := index[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		index[m.Key] = len(out)
		out = append(out, m)
	}
	return out
}
