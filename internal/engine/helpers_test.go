package engine

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

var testContract = ir.Contract{
	ID:          "C1",
	Name:        "Office lease",
	PartnerID:   "partner-7",
	PricelistID: "retail",
	Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return newTestEngineOver(t, forest.New(testContract), opts...)
}

// newTestEngineOver creates a quiet engine over an existing forest.
func newTestEngineOver(t *testing.T, f *forest.Forest, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	e, err := New(f, opts...)
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func seq(n int) *int {
	return &n
}

// mustLine returns a committed line or fails the test.
func mustLine(t *testing.T, e *Engine, id ir.LineID) ir.Line {
	t.Helper()
	l, ok := e.Line(id)
	require.True(t, ok, "line %s not found", id)
	return l
}

// stubCatalog is an in-memory product catalog.
type stubCatalog map[string]ir.Product

func (c stubCatalog) Product(id string) (ir.Product, bool) {
	p, ok := c[id]
	return p, ok
}

// stubPricer prices by product id and records the requests it served.
type stubPricer struct {
	prices   map[string]decimal.Decimal
	requests []ir.PriceRequest
}

func (p *stubPricer) UnitPrice(req ir.PriceRequest) (decimal.Decimal, bool) {
	p.requests = append(p.requests, req)
	price, ok := p.prices[req.ProductID]
	return price, ok
}

func (p *stubPricer) Subtotal(qty, unit decimal.Decimal) decimal.Decimal {
	return qty.Mul(unit).Round(2)
}

func testCatalog() stubCatalog {
	return stubCatalog{
		"desk": {
			ID:                "desk",
			Name:              "Standing desk",
			UoM:               "unit",
			ListPrice:         dec("100"),
			IsConfigurableOpt: true,
			Options: []ir.ProductOption{
				{ID: "desk-drawer", ProductID: "drawer", QtyType: ir.QtyTypeProportional, IsDefault: true, DefaultQty: dec("2")},
				{ID: "desk-lamp", ProductID: "lamp", QtyType: ir.QtyTypeIndependent},
			},
		},
		"drawer": {ID: "drawer", Name: "Drawer", UoM: "unit", ListPrice: dec("4")},
		"lamp":   {ID: "lamp", Name: "Lamp", UoM: "unit", ListPrice: dec("15")},
	}
}

func testPricer() *stubPricer {
	return &stubPricer{prices: map[string]decimal.Decimal{
		"desk":   dec("100"),
		"drawer": dec("4"),
		"lamp":   dec("15"),
	}}
}
