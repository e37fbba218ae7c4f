package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testContract() ir.Contract {
	return ir.Contract{
		ID:          "C1",
		Name:        "Office refit",
		PartnerID:   "partner-7",
		PricelistID: "retail",
		Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

// createTestLines builds a desk with a drawer option (which itself has a
// handle option) and a plain fee line.
func createTestLines() []ir.Line {
	desk := ir.Line{
		ID: "desk", ContractID: "C1", Name: "Desk", ProductID: "desk", UoM: "unit",
		Sequence: 0, Quantity: decimal.NewFromInt(2),
		PriceUnit: decimal.NewFromInt(100), PriceSubtotal: decimal.NewFromInt(200),
	}
	cfg := desk.Configurable()
	cfg.IsConfigurable = true
	cfg.PriceConfigSubtotal = decimal.RequireFromString("224.5")

	drawer := ir.Line{
		ID: "drawer", ContractID: "C1", Name: "Drawer", ProductID: "drawer",
		Sequence: 1, Quantity: decimal.NewFromInt(6),
		PriceUnit: decimal.NewFromInt(4), PriceSubtotal: decimal.NewFromInt(24),
	}
	cfg = drawer.Configurable()
	cfg.ParentOptionID = "desk"
	cfg.ParentID = "desk"
	cfg.ChildType = ir.ChildTypeOption
	cfg.OptionUnitQty = decimal.NewFromInt(3)
	cfg.OptionQtyType = ir.QtyTypeProportional
	cfg.ProductOptionID = "desk/drawer"

	handle := ir.Line{
		ID: "handle", ContractID: "C1", Name: "Handle", ProductID: "handle",
		Sequence: 2, Quantity: decimal.NewFromInt(1),
		PriceUnit: decimal.RequireFromString("0.5"), PriceSubtotal: decimal.RequireFromString("0.5"),
	}
	cfg = handle.Configurable()
	cfg.ParentOptionID = "drawer"
	cfg.ParentID = "drawer"
	cfg.ChildType = ir.ChildTypeOption
	cfg.OptionQtyType = ir.QtyTypeIndependent

	fee := ir.Line{
		ID: "fee", ContractID: "C1", Name: "Delivery", Sequence: 3,
		Kind: ir.LineKindPlain, Quantity: decimal.NewFromInt(1),
		PriceUnit: decimal.NewFromInt(30), PriceSubtotal: decimal.NewFromInt(30),
	}

	// Children before parents: saving must not depend on input order.
	return []ir.Line{handle, fee, drawer, desk}
}
