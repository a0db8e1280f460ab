package flatten

import "sort"

// Schema is the ordered, duplicate-free column list shared by every output row
type Schema []string

// Unify returns the sorted union of keys across records. Order of records does
// not matter; the result is sorted by byte-wise string order.
func Unify(records []Record) Schema {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}

	schema := make(Schema, 0, len(seen))
	for k := range seen {
		schema = append(schema, k)
	}
	sort.Strings(schema)
	return schema
}

// Row aligns r to the schema. Columns the record lacks come back as null.
func (s Schema) Row(r Record) []Value {
	row := make([]Value, len(s))
	for i, col := range s {
		row[i] = r[col]
	}
	return row
}
