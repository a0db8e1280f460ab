// Package flatten turns nested records into single-level path -> value mappings
// and computes the shared column schema across many of them.
//
// Objects are recursed into, extending the path with key + separator. Arrays are
// never split into indexed columns: the whole array is serialized to compact JSON
// and stored at the current path. Scalars are stored directly.
//
// Two structurally different paths can produce the same key ({"a.b":1} and
// {"a":{"b":2}} with separator "."). The default policy keeps the value written
// last in document order; CollisionError rejects the record instead.
package flatten

import (
	"bytes"
	"strings"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/record"
)

// DefaultSeparator joins path segments
const DefaultSeparator = "."

// CollisionPolicy decides what happens when two paths flatten to the same key
type CollisionPolicy int

const (
	CollisionLastWins CollisionPolicy = iota
	CollisionError
)

func (p CollisionPolicy) String() string {
	if p == CollisionError {
		return "error"
	}
	return "last-wins"
}

// ParseCollisionPolicy accepts "last-wins" (or "") and "error".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last-wins", "last_wins", "lastwins":
		return CollisionLastWins, nil
	case "error", "fail", "strict":
		return CollisionError, nil
	default:
		return 0, errors.Newf("unknown collision policy %q (supported: last-wins, error)", s)
	}
}

// Flattener holds flattening settings. The zero value uses "." and last-wins.
// A Flattener is safe for concurrent use; it holds no mutable state.
type Flattener struct {
	Separator string
	Collision CollisionPolicy

	// StrictRecords rejects top-level records that are not objects. When false a
	// scalar or array record is stored under the empty column name.
	StrictRecords bool
}

// New returns a Flattener with the given separator and default policies.
func New(separator string) *Flattener {
	return &Flattener{Separator: separator}
}

// Flatten flattens v with separator sep, last write winning on collisions.
func Flatten(v record.Value, sep string) Record {
	out, _ := New(sep).Flatten(0, v)
	return out
}

// Flatten flattens one record. index identifies the record in error messages.
func (f *Flattener) Flatten(index int, v record.Value) (Record, error) {
	if f.StrictRecords && !v.IsObject() {
		return nil, errors.NewRecordShapeError(index, v.Kind().String())
	}

	w := walker{
		sep:    f.separator(),
		policy: f.Collision,
		index:  index,
		out:    make(Record, estimateKeys(v)),
	}
	if err := w.walk(v, ""); err != nil {
		return nil, err
	}
	return w.out, nil
}

func (f *Flattener) separator() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

type walker struct {
	sep    string
	policy CollisionPolicy
	index  int
	out    Record
	buf    bytes.Buffer
}

// walk visits v at prefix. prefix is either empty (the root) or ends with sep.
func (w *walker) walk(v record.Value, prefix string) error {
	switch v.Kind() {
	case record.Object:
		for _, m := range v.Members() {
			if err := w.walk(m.Value, prefix+m.Key+w.sep); err != nil {
				return err
			}
		}
		return nil
	case record.Array:
		w.buf.Reset()
		if err := v.AppendJSON(&w.buf); err != nil {
			return errors.Wrapf(err, "record %d: failed to serialize array at %q", w.index, w.key(prefix))
		}
		return w.assign(prefix, StringValue(w.buf.String()))
	case record.Bool:
		return w.assign(prefix, BoolValue(v.Bool()))
	case record.Number:
		return w.assign(prefix, NumberValue(v.Number()))
	case record.String:
		return w.assign(prefix, StringValue(v.Str()))
	default:
		return w.assign(prefix, NullValue())
	}
}

func (w *walker) key(prefix string) string {
	return strings.TrimSuffix(prefix, w.sep)
}

func (w *walker) assign(prefix string, v Value) error {
	key := w.key(prefix)
	if _, exists := w.out[key]; exists && w.policy == CollisionError {
		return errors.NewSchemaCollisionError(w.index, key)
	}
	w.out[key] = v
	return nil
}

// estimateKeys sizes the output map for flat-ish objects
func estimateKeys(v record.Value) int {
	if v.IsObject() {
		return len(v.Members())
	}
	return 1
}
