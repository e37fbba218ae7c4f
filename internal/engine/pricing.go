package engine

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// Catalog provides product metadata.
type Catalog interface {
	// Product returns the product with the given id.
	Product(id string) (ir.Product, bool)
}

// Pricer is the pricing collaborator.
//
// The engine never computes prices itself. It asks the pricer for the unit
// price of option lines and for line subtotals, and aggregates whatever the
// pricer returns.
type Pricer interface {
	// UnitPrice resolves the unit price for a request. ok is false when the
	// pricer has no price for it, in which case the current price stays.
	UnitPrice(req ir.PriceRequest) (price decimal.Decimal, ok bool)

	// Subtotal returns the amount of a single line, excluding its children.
	Subtotal(qty, unit decimal.Decimal) decimal.Decimal
}

// priceRequest builds the lookup parameters for a line from the contract
// header.
func (tx *txn) priceRequest(l *ir.Line) ir.PriceRequest {
	c := tx.f.Contract()
	return ir.PriceRequest{
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		PartnerID:   c.PartnerID,
		Date:        c.Date,
		PricelistID: c.PricelistID,
		UoM:         l.UoM,
	}
}

// computePriceUnit prices option lines. Other lines keep the price set by
// the caller.
func computePriceUnit(tx *txn, l *ir.Line) {
	if tx.pricer == nil || l.ChildType() != ir.ChildTypeOption {
		return
	}
	if tx.pinned(l.ID, FieldPriceUnit) || l.ProductID == "" {
		return
	}
	if price, ok := tx.pricer.UnitPrice(tx.priceRequest(l)); ok {
		l.PriceUnit = price
	}
}

func computeSubtotal(tx *txn, l *ir.Line) {
	if tx.pricer == nil || tx.pinned(l.ID, FieldPriceSubtotal) {
		return
	}
	l.PriceSubtotal = tx.pricer.Subtotal(l.Quantity, l.PriceUnit)
}

// repriceRoot asks the pricer for the unit price of a root line, as the
// general pricing layer does when a product is chosen.
func (tx *txn) repriceRoot(l *ir.Line) {
	if tx.pricer == nil || !l.ParentOptionID().IsZero() || l.ProductID == "" {
		return
	}
	if price, ok := tx.pricer.UnitPrice(tx.priceRequest(l)); ok && !price.Equal(l.PriceUnit) {
		l.PriceUnit = price
		tx.touch(l.ID, FieldPriceUnit)
	}
}
