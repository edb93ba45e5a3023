package main

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The seed file must decode into the same nutrition shape the repository
// layer reads back from the JSONB column; a bare string array here would
// break every catalog read on a seeded database.
func TestSeedProductsMatchCatalogShape(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/products.json")
	require.NoError(t, err)

	var products []productJSON
	require.NoError(t, json.Unmarshal(data, &products))
	require.NotEmpty(t, products)

	for _, p := range products {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.IsPositive(), "product %s has non-positive price", p.ID)

		require.NotEmpty(t, p.Nutrition, "product %s has no nutrition facts", p.ID)
		for _, n := range p.Nutrition {
			assert.NotEmpty(t, n.Nutrient, "product %s has a fact without a nutrient name", p.ID)
			assert.NotEmpty(t, n.Per100g, "product %s fact %s has no per-100g value", p.ID, n.Nutrient)
		}
	}
}
