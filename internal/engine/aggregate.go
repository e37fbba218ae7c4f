package engine

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// computeConfigAmount materializes the configuration total at tree roots.
//
// A root announces its own subtotal plus the subtotal of every descendant,
// pending lines included. Every other line announces zero.
func computeConfigAmount(tx *txn, l *ir.Line) {
	if l.Config == nil {
		return
	}
	if !l.Config.ParentID.IsZero() {
		l.Config.PriceConfigSubtotal = decimal.Zero
		return
	}
	total := l.PriceSubtotal
	for _, d := range tx.f.Descendants(l.ID) {
		total = total.Add(d.PriceSubtotal)
	}
	l.Config.PriceConfigSubtotal = total
}

// computeEmptyParent flags parents whose own unit price is zero at two
// decimal places. Reports use it to suppress the parent's amounts.
func computeEmptyParent(tx *txn, l *ir.Line) {
	if l.Config == nil {
		return
	}
	l.Config.ReportLineIsEmptyParent = tx.f.HasChildren(l.ID) && l.PriceUnit.Round(2).IsZero()
}

// computeHideSubtotal collapses the subtotal column for structural parents
// without a price of their own and for standalone lines.
func computeHideSubtotal(tx *txn, l *ir.Line) {
	if l.Config == nil {
		return
	}
	hasChildren := tx.f.HasChildren(l.ID)
	l.Config.HideSubtotal = (hasChildren && l.PriceUnit.IsZero()) ||
		(l.Config.ParentID.IsZero() && !hasChildren)
}
