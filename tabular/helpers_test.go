package tabular

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teranos/jflat/flatten"
	"github.com/teranos/jflat/record"
)

// flat loads doc and returns its flattened records with the unified schema
func flat(t *testing.T, doc string) (flatten.Schema, []flatten.Record) {
	t.Helper()
	set, err := record.LoadBytes([]byte(doc))
	require.NoError(t, err)

	records := make([]flatten.Record, len(set))
	for i, v := range set {
		records[i] = flatten.Flatten(v, ".")
	}
	return flatten.Unify(records), records
}
