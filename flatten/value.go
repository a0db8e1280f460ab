package flatten

import (
	"encoding/json"
	"strconv"
)

// Kind identifies the variant held by a terminal Value
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
)

// Value is a terminal cell: null, boolean, number literal, or string.
// Arrays reach this type already serialized as String.
type Value struct {
	kind Kind
	b    bool
	s    string
}

func NullValue() Value                { return Value{} }
func BoolValue(b bool) Value          { return Value{kind: Bool, b: b} }
func NumberValue(n json.Number) Value { return Value{kind: Number, s: string(n)} }
func StringValue(s string) Value      { return Value{kind: String, s: s} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }
func (v Value) Bool() bool   { return v.b }
func (v Value) Str() string  { return v.s }

// Number returns the source literal of a number value
func (v Value) Number() json.Number { return json.Number(v.s) }

// Text renders the value as a delimited-text cell. Null renders empty.
func (v Value) Text() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Number, String:
		return v.s
	default:
		return ""
	}
}

// Float parses a number value. ok is false for non-numbers and for literals a
// float64 cannot hold (overflow).
func (v Value) Float() (f float64, ok bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// Record maps dotted paths to terminal values
type Record map[string]Value
