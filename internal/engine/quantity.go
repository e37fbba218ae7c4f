package engine

import (
	"github.com/roach88/contractcfg/internal/ir"
)

// computeParent derives parent_id and child_type from the explicit option
// link. Plain lines carry neither and are left alone.
func computeParent(_ *txn, l *ir.Line) {
	cfg := l.Config
	if cfg == nil {
		return
	}
	if !cfg.ParentOptionID.IsZero() {
		cfg.ParentID = cfg.ParentOptionID
		cfg.ChildType = ir.ChildTypeOption
		return
	}
	cfg.ParentID = ""
	cfg.ChildType = ir.ChildTypeNone
}

// productOption returns the option of the parent's product that offers the
// line's product.
func (tx *txn) productOption(l *ir.Line) (ir.ProductOption, bool) {
	if tx.catalog == nil || l.Config == nil || l.Config.ParentOptionID.IsZero() {
		return ir.ProductOption{}, false
	}
	parent := tx.f.Get(l.Config.ParentOptionID)
	if parent == nil {
		return ir.ProductOption{}, false
	}
	product, ok := tx.catalog.Product(parent.ProductID)
	if !ok {
		return ir.ProductOption{}, false
	}
	for _, opt := range product.Options {
		if opt.ProductID == l.ProductID {
			return opt, true
		}
	}
	return ir.ProductOption{}, false
}

func computeProductOption(tx *txn, l *ir.Line) {
	if l.Config == nil {
		return
	}
	opt, _ := tx.productOption(l)
	l.Config.ProductOptionID = opt.ID
}

// computeOptionQtyType copies the propagation mode of the matching product
// option. Without a match the current mode stays, so a mode written by the
// caller survives unrelated edits.
func computeOptionQtyType(tx *txn, l *ir.Line) {
	if l.Config == nil || l.Config.ProductOptionID == "" {
		return
	}
	if tx.pinned(l.ID, FieldOptionQtyType) {
		return
	}
	if opt, ok := tx.productOption(l); ok && opt.QtyType != "" {
		l.Config.OptionQtyType = opt.QtyType
	}
}

func computeIsConfigurable(tx *txn, l *ir.Line) {
	if l.Config == nil || tx.catalog == nil {
		return
	}
	p, _ := tx.catalog.Product(l.ProductID)
	l.Config.IsConfigurable = p.IsConfigurableOpt
}

// computeQuantity propagates the parent quantity to an option line.
//
// Lines without an option parent keep their externally supplied quantity.
// An unknown propagation mode leaves the quantity unchanged.
func computeQuantity(tx *txn, l *ir.Line) {
	cfg := l.Config
	if cfg == nil || cfg.ParentOptionID.IsZero() {
		return
	}
	parent := tx.f.Get(cfg.ParentOptionID)
	if parent == nil {
		return
	}
	switch cfg.OptionQtyType {
	case ir.QtyTypeProportional:
		l.Quantity = cfg.OptionUnitQty.Mul(parent.Quantity)
	case ir.QtyTypeIndependent:
		l.Quantity = cfg.OptionUnitQty
	}
}
