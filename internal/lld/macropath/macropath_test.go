package macropath

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/c360/lld/internal/lld/catalog"
)

func TestSet_ResolveSortedBinarySearch(t *testing.T) {
	s := NewSet([]MacroPath{
		{Macro: "{#B}", Path: "b"},
		{Macro: "{#A}", Path: "a"},
	})
	assert.Equal(t, []string{"{#A}", "{#B}"}, s.Macros())

	row := gjson.Parse(`{"a": "va", "b": "vb"}`)
	v, ok := s.Resolve("{#A}", row)
	require.True(t, ok)
	assert.Equal(t, "va", v)

	_, ok = s.Resolve("{#MISSING}", row)
	assert.False(t, ok)
}

func TestSet_ResolveAbsentInRow(t *testing.T) {
	s := NewSet([]MacroPath{{Macro: "{#A}", Path: "missing.path"}})
	row := gjson.Parse(`{"present": "x"}`)
	_, ok := s.Resolve("{#A}", row)
	assert.False(t, ok)
}

func TestLoader_LoadValidatesAndSorts(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutMacroPaths(1, []catalog.MacroPathRow{
		{Macro: "{#B}", Path: "b.name"},
		{Macro: "{#A}", Path: "a.name"},
	})

	loader := NewLoader(mem)
	set, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"{#A}", "{#B}"}, set.Macros())
}

func TestLoader_LoadRejectsBadPath(t *testing.T) {
	mem := catalog.NewMemory()
	mem.PutMacroPaths(1, []catalog.MacroPathRow{{Macro: "{#A}", Path: ""}})

	loader := NewLoader(mem)
	_, err := loader.Load(context.Background(), 1)
	assert.Error(t, err)
}
