package model

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDv7Generator_Sortable(t *testing.T) {
	gen := UUIDv7Generator{}

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.Generate()
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids must sort in generation order")
	assert.Len(t, ids[0], 36)
}

func TestFixedIDs(t *testing.T) {
	gen := NewFixedIDs("sale-1", "sale-2")
	assert.Equal(t, "sale-1", gen.Generate())
	assert.Equal(t, "sale-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
