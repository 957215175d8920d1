package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionHintRegistry_IterSuggestions(t *testing.T) {
	reg := NewActionHintRegistry()
	reg.WhenCommandExecuted("table", "sort-table").
		AddCommandSuggestion("scatter-plot").
		AddCommandSuggestion("line-plot")
	reg.WhenCommandExecuted("text.plain", "table-to-text").
		AddCommandSuggestion("word-count")

	sorted := NewCommandExecution("sort-table", nil, nil)

	t.Run("matching command and type", func(t *testing.T) {
		got := reg.IterSuggestions("table", sorted)
		require.Len(t, got, 2)
		ids := []string{got[0].SuggestionCommandID(), got[1].SuggestionCommandID()}
		assert.ElementsMatch(t, []string{"scatter-plot", "line-plot"}, ids)
	})

	t.Run("command mismatch", func(t *testing.T) {
		other := NewCommandExecution("filter-table", nil, nil)
		assert.Empty(t, reg.IterSuggestions("table", other))
	})

	t.Run("type mismatch", func(t *testing.T) {
		assert.Empty(t, reg.IterSuggestions("image", sorted))
	})

	t.Run("non-command step never matches", func(t *testing.T) {
		read := NewLocalReaderMethod([]string{"a.csv"}, "")
		assert.Empty(t, reg.IterSuggestions("table", read))
	})

	t.Run("bucket narrows by top-level segment", func(t *testing.T) {
		conv := NewCommandExecution("table-to-text", nil, nil)
		got := reg.IterSuggestions("text.plain", conv)
		require.Len(t, got, 1)
		assert.Equal(t, "word-count", got[0].SuggestionCommandID())
	})
}

func TestActionHintRegistry_All(t *testing.T) {
	reg := NewActionHintRegistry()
	assert.Empty(t, reg.All())

	reg.WhenCommandExecuted("table", "sort-table").AddCommandSuggestion("scatter-plot")
	reg.WhenCommandExecuted("image", "crop").AddCommandSuggestion("histogram")
	assert.Len(t, reg.All(), 2)
}

func TestCommandMatcher_ExactTypeEquality(t *testing.T) {
	// "table.ext" starts with bucket "table" but the built-in matcher wants
	// exact model type equality.
	reg := NewActionHintRegistry()
	reg.WhenCommandExecuted("table", "sort-table").AddCommandSuggestion("scatter-plot")

	sorted := NewCommandExecution("sort-table", nil, nil)
	assert.Empty(t, reg.IterSuggestions("table.ext", sorted))
}
