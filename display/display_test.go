package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldOutputJSON(t *testing.T) {
	newTree := func() (*cobra.Command, *cobra.Command) {
		root := &cobra.Command{Use: "jflat"}
		root.PersistentFlags().Bool("json", false, "")
		child := &cobra.Command{Use: "convert", Run: func(*cobra.Command, []string) {}}
		root.AddCommand(child)
		return root, child
	}

	root, child := newTree()
	assert.False(t, ShouldOutputJSON(child))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))

	_, child = newTree()
	child.Flags().Bool("json", true, "")
	assert.False(t, ShouldOutputJSON(child), "unset local flag defers to root")
	require.NoError(t, child.Flags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))

	assert.False(t, ShouldOutputJSON(nil))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"records": 2}))
	assert.Equal(t, "{\n  \"records\": 2\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSONLine(&buf, map[string]int{"records": 2}))
	assert.Equal(t, "{\"records\":2}\n", buf.String())

	assert.Error(t, WriteJSON(&buf, func() {}))
}
