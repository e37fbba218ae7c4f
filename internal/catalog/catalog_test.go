package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/ir"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func loadOffice(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(filepath.Join("testdata", "office"))
	require.NoError(t, err)
	return c
}

func TestLoad_Office(t *testing.T) {
	c := loadOffice(t)

	products := c.Products()
	require.Len(t, products, 4)
	assert.Equal(t, "chair", products[0].ID, "products sorted by id")
	assert.Equal(t, 2, c.PricelistCount())

	desk, ok := c.Product("desk")
	require.True(t, ok)
	assert.Equal(t, "Standing desk", desk.Name)
	assert.Equal(t, "unit", desk.UoM, "uom defaults to unit")
	assert.True(t, desk.IsConfigurableOpt)
	assert.True(t, dec("100").Equal(desk.ListPrice))

	require.Len(t, desk.Options, 2)
	drawer := desk.Options[0]
	assert.Equal(t, "desk/drawer", drawer.ID)
	assert.Equal(t, "drawer", drawer.ProductID)
	assert.Equal(t, ir.QtyTypeProportional, drawer.QtyType)
	assert.True(t, drawer.IsDefault)
	assert.True(t, dec("2").Equal(drawer.DefaultQty))

	lamp := desk.Options[1]
	assert.Equal(t, ir.QtyTypeIndependent, lamp.QtyType)
	assert.False(t, lamp.IsDefault)
	assert.True(t, dec("1").Equal(lamp.DefaultQty), "default_qty defaults to 1")

	chair, ok := c.Product("chair")
	require.True(t, ok)
	assert.Equal(t, "piece", chair.UoM)
	assert.False(t, chair.IsConfigurableOpt)

	_, ok = c.Product("sofa")
	assert.False(t, ok)
}

func TestLoad_ExactDecimals(t *testing.T) {
	c := loadOffice(t)

	lamp, ok := c.Product("lamp")
	require.True(t, ok)
	assert.Equal(t, "15.5", lamp.ListPrice.String())

	wholesale, ok := c.Pricelist("wholesale")
	require.True(t, ok)
	require.Len(t, wholesale.Tiers, 2)
	assert.True(t, dec("12.5").Equal(wholesale.Tiers[1].Discount))
}

func TestProduct_ReturnsCopy(t *testing.T) {
	c := loadOffice(t)

	desk, _ := c.Product("desk")
	desk.Options[0].ProductID = "mutated"

	again, _ := c.Product("desk")
	assert.Equal(t, "drawer", again.Options[0].ProductID)
}

func TestUnitPrice(t *testing.T) {
	c := loadOffice(t)

	tests := []struct {
		name      string
		product   string
		pricelist string
		qty       string
		want      string
		ok        bool
	}{
		{"list price without pricelist", "desk", "", "1", "100", true},
		{"unknown pricelist falls back", "desk", "nope", "1", "100", true},
		{"retail has no tiers", "lamp", "retail", "100", "15.50", true},
		{"below first tier", "desk", "wholesale", "9", "100", true},
		{"first tier", "desk", "wholesale", "10", "95", true},
		{"best tier wins", "lamp", "wholesale", "50", "13.56", true},
		{"fixed price then tier", "chair", "wholesale", "10", "66.50", true},
		{"unknown product", "sofa", "retail", "1", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.UnitPrice(ir.PriceRequest{
				ProductID:   tt.product,
				PricelistID: tt.pricelist,
				Quantity:    dec(tt.qty),
			})
			assert.Equal(t, tt.ok, ok)
			assert.Truef(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSubtotal(t *testing.T) {
	c := loadOffice(t)
	assert.Equal(t, "20.67", c.Subtotal(dec("3"), dec("6.889")).String())
}

func TestCompile_Inline(t *testing.T) {
	c, err := Compile("inline.cue", `
		product: kit: {name: "Kit", list_price: 10, configurable: true, options: bolt: default: true}
		product: bolt: {name: "Bolt", list_price: 0.25}
	`)
	require.NoError(t, err)

	kit, ok := c.Product("kit")
	require.True(t, ok)
	require.Len(t, kit.Options, 1)
	assert.Equal(t, ir.QtyTypeProportional, kit.Options[0].QtyType, "qty_type defaults to proportional")
}

func TestCompile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing list price", `product: desk: name: "Desk"`},
		{"negative price", `product: desk: {name: "Desk", list_price: -1}`},
		{"bad qty type", `product: desk: {name: "Desk", list_price: 1, options: desk: qty_type: "weekly"}`},
		{"discount above 100", `pricelist: p: tiers: [{min_qty: 1, discount: 120}]`},
		{"unknown top-level field", `warehouse: main: {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("bad.cue", tt.src)
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, []string{ErrCodeSchema, ErrCodeBuildFailed}, le.Code)
		})
	}
}

func TestCompile_UnknownOptionProduct(t *testing.T) {
	_, err := Compile("ref.cue", `
product: desk: {name: "Desk", list_price: 1, options: ghost: {}}
`)
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeReference, le.Code)
	assert.Contains(t, le.Message, "ghost")
	assert.True(t, le.Pos.IsValid(), "reference errors carry a position")
}

func TestCompile_UnknownPricedProduct(t *testing.T) {
	_, err := Compile("ref.cue", `pricelist: p: prices: ghost: 3`)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeReference, le.Code)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("product: desk: {"), 0o644))
	_, err = Load(dir)
	require.ErrorAs(t, err, &le)
	assert.NotEqual(t, ErrCodeNotFound, le.Code)
}
