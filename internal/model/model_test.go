package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSubtype(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "text", "text", true},
		{"direct child", "text.plain", "text", true},
		{"grandchild", "table.csv.tsv", "table", true},
		{"parent is not subtype of child", "text", "text.plain", false},
		{"shared prefix without dot", "table", "tab", false},
		{"unrelated", "image", "text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubtype(tt.a, tt.b))
		})
	}
}

func TestTypeDepth(t *testing.T) {
	assert.Equal(t, 0, TypeDepth(""))
	assert.Equal(t, 1, TypeDepth("text"))
	assert.Equal(t, 3, TypeDepth("table.csv.tsv"))
}

func TestParseWindowState(t *testing.T) {
	t.Run("known states", func(t *testing.T) {
		for _, s := range []string{"normal", "min", "max", "full"} {
			got, err := ParseWindowState(s)
			require.NoError(t, err)
			assert.Equal(t, WindowState(s), got)
		}
	})

	t.Run("empty defaults to normal", func(t *testing.T) {
		got, err := ParseWindowState("")
		require.NoError(t, err)
		assert.Equal(t, StateNormal, got)
	})

	t.Run("unknown rejected", func(t *testing.T) {
		_, err := ParseWindowState("sideways")
		require.Error(t, err)
	})
}

func TestWindowRect(t *testing.T) {
	r := WindowRect{Left: 10, Top: 20, Width: 300, Height: 200}

	w, h := r.Size()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)

	moved := r.Moved(5, -5)
	assert.Equal(t, WindowRect{Left: 15, Top: 15, Width: 300, Height: 200}, moved)
	assert.Equal(t, 10, r.Left, "Moved must not mutate the receiver")

	assert.Equal(t, "300x200+10+20", r.String())
}

func TestNoAnchor(t *testing.T) {
	assert.Equal(t, Anchor{Type: "no-anchor"}, NoAnchor())
}
