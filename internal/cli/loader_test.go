package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/ir"
)

func writeTree(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestLoadTree(t *testing.T) {
	tree, err := LoadTree(officeTree)
	require.NoError(t, err)

	assert.Equal(t, "C1", tree.Contract.ID)
	assert.Equal(t, "acme", tree.Contract.PartnerID)
	require.Len(t, tree.Lines, 2)

	specs := tree.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "desk", specs[0].ProductID)
	require.Len(t, specs[0].Options, 2)
	assert.Equal(t, "drawer", specs[0].Options[0].ProductID)
	assert.True(t, specs[0].Options[0].OptionUnitQty.Valid)
	assert.Equal(t, "3", specs[0].Options[0].OptionUnitQty.Decimal.String())

	fee := specs[1]
	assert.True(t, fee.Plain)
	assert.Equal(t, "Delivery", fee.Name)
	assert.Empty(t, fee.Options)
}

func TestLoadTreeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing contract id", "contract: {name: X}\nlines: [{product: desk}]\n", "contract.id"},
		{"bad date", "contract: {id: C1, date: \"15/01/2026\"}\nlines: [{product: desk}]\n", "date"},
		{"no lines", "contract: {id: C1}\n", "lines"},
		{"unknown field", "contract: {id: C1}\nlines: [{product: desk, colour: red}]\n", "colour"},
		{"bad quantity", "contract: {id: C1}\nlines: [{product: desk, quantity: \"two\"}]\n", "quantity"},
		{"plain with options", "contract: {id: C1}\nlines: [{plain: true, options: [{product: drawer}]}]\n", "plain"},
		{"bad qty type", "contract: {id: C1}\nlines: [{product: desk, options: [{product: drawer, qty_type: weekly}]}]\n", "qty_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTree(writeTree(t, tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadTreeMissingFile(t *testing.T) {
	_, err := LoadTree(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read tree file")
}

func TestTreeSpecsKeepQtyType(t *testing.T) {
	tree, err := LoadTree(writeTree(t, `contract: {id: C1}
lines:
  - product: desk
    options:
      - product: lamp
        qty_type: independent
`))
	require.NoError(t, err)
	specs := tree.Specs()
	assert.Equal(t, ir.QtyTypeIndependent, specs[0].Options[0].OptionQtyType)
}
