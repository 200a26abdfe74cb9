package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	got := Lookup("ocean-depths")
	assert.Equal(t, "ocean-depths", got.ID)
	assert.Equal(t, "海洋深蓝", got.Name)

	fallback := Lookup("does-not-exist")
	assert.Equal(t, DefaultID, fallback.ID)
}

func TestAll_IsImmutable(t *testing.T) {
	all := All()
	require.Len(t, all, 10)
	assert.Equal(t, DefaultID, all[0].ID)

	all[0].PreviewColors[0] = "#000000"
	all[0].Name = "changed"

	again := Lookup(DefaultID)
	assert.Equal(t, "#3b82f6", again.PreviewColors[0])
	assert.Equal(t, "经典蓝", again.Name)
}

func TestExists(t *testing.T) {
	assert.True(t, Exists("luxury-gold"))
	assert.False(t, Exists(""))
}
