package engine

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// CreateLineTree creates lines together with their inline options and
// returns the ids of the top-level lines, in spec order.
//
// The steps run in a fixed order:
//  1. inline option specs are set aside
//  2. the contract of each spec is resolved from its declared parent
//  3. the top-level lines are created
//  4. their quantities are recomputed
//  5. the option specs are attached through SetOptions, recursively
//
// A spec whose declared parent does not exist fails the whole batch with a
// validation error and nothing is created.
func (e *Engine) CreateLineTree(specs ...ir.LineSpec) ([]ir.LineID, error) {
	var ids []ir.LineID
	err := e.transact("create_line_tree", func(tx *txn) error {
		var err error
		ids, err = tx.createTree(specs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetOptions replaces the option collection of a line.
//
// Specs carrying the id of an existing option keep (and update) it; specs
// without id create new options; existing options not named are removed
// with their subtrees. The forest is resequenced afterwards. Returns the ids
// of the resulting options in spec order.
func (e *Engine) SetOptions(parent ir.LineID, specs []ir.LineSpec) ([]ir.LineID, error) {
	var ids []ir.LineID
	err := e.transact("set_options", func(tx *txn) error {
		var err error
		ids, err = tx.setOptions(parent, specs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveLine deletes a line and all its options.
func (e *Engine) RemoveLine(id ir.LineID) error {
	return e.transact("remove_line", func(tx *txn) error {
		return tx.remove(id)
	})
}

func (tx *txn) createTree(in []ir.LineSpec) ([]ir.LineID, error) {
	specs := slices.Clone(in)
	contract := tx.f.Contract()

	options := make([][]ir.LineSpec, len(specs))
	for i := range specs {
		options[i] = specs[i].Options
		specs[i].Options = nil
	}

	for i := range specs {
		s := &specs[i]
		if !s.ParentOptionID.IsZero() {
			parent := tx.f.Get(s.ParentOptionID)
			if parent == nil {
				return nil, NewValidationError(s.ParentOptionID,
					"line %d of batch declares unknown parent", i)
			}
			if s.ContractID == "" {
				s.ContractID = parent.ContractID
			}
		}
		if s.ContractID == "" {
			s.ContractID = contract.ID
		}
		if s.ContractID != contract.ID {
			return nil, NewValidationError("",
				"line %d of batch belongs to contract %q, not %q", i, s.ContractID, contract.ID)
		}
	}

	ids := make([]ir.LineID, len(specs))
	for i, s := range specs {
		id, err := tx.insert(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	// Creation defaults bypass the usual triggers; recompute explicitly so
	// the options below see resolved parent quantities.
	for _, id := range ids {
		tx.markNode("quantity", id)
	}
	if err := tx.flush(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if len(options[i]) == 0 {
			continue
		}
		if _, err := tx.setOptions(id, options[i]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// insert creates a single line from a spec without its options.
func (tx *txn) insert(s ir.LineSpec) (ir.LineID, error) {
	if s.Plain && !s.ParentOptionID.IsZero() {
		return "", NewValidationError(s.ParentOptionID, "plain line cannot be an option")
	}
	if err := tx.guard.CheckInsert(tx.f, s.ParentOptionID); err != nil {
		return "", err
	}
	if parent := tx.f.Get(s.ParentOptionID); parent != nil {
		if err := checkOwner(parent); err != nil {
			return "", err
		}
	}

	l := ir.Line{
		ContractID: s.ContractID,
		Name:       s.Name,
		ProductID:  s.ProductID,
		UoM:        s.UoM,
		Quantity:   decimal.NewFromInt(1),
		Kind:       ir.LineKindPlain,
	}
	if s.Sequence != nil {
		l.Sequence = *s.Sequence
	} else {
		l.Sequence = tx.nextSequence()
	}
	if s.Quantity.Valid {
		l.Quantity = s.Quantity.Decimal
	}
	if s.PriceUnit.Valid {
		l.PriceUnit = s.PriceUnit.Decimal
	}
	if s.PriceSubtotal.Valid {
		l.PriceSubtotal = s.PriceSubtotal.Decimal
	}
	if !s.Plain {
		cfg := l.Configurable()
		cfg.ParentOptionID = s.ParentOptionID
		cfg.OptionQtyType = s.OptionQtyType
		if s.OptionUnitQty.Valid {
			cfg.OptionUnitQty = s.OptionUnitQty.Decimal
		}
	}
	if tx.catalog != nil && s.ProductID != "" {
		if p, ok := tx.catalog.Product(s.ProductID); ok {
			if l.UoM == "" {
				l.UoM = p.UoM
			}
			if l.Name == "" {
				l.Name = p.Name
			}
		}
	}

	id, err := tx.f.Insert(l)
	if err != nil {
		return "", NewValidationError(s.ParentOptionID, "%v", err)
	}
	if s.OptionQtyType != "" {
		tx.pin(id, FieldOptionQtyType)
	}
	if s.PriceUnit.Valid {
		tx.pin(id, FieldPriceUnit)
	}
	if s.PriceSubtotal.Valid {
		tx.pin(id, FieldPriceSubtotal)
	}

	tx.markAll(id)
	tx.touchChildren(s.ParentOptionID)
	tx.structural = true
	if !s.PriceUnit.Valid {
		tx.repriceRoot(tx.f.Get(id))
	}

	tx.logger.Debug("line created",
		"line", id,
		"parent", s.ParentOptionID,
		"product", s.ProductID,
	)
	return id, nil
}

// checkOwner rejects option links under a plain line.
func checkOwner(owner *ir.Line) error {
	if owner.Config == nil {
		return NewValidationError(owner.ID, "plain line cannot carry options")
	}
	return nil
}

// configurable returns the option capability of l. A plain line gains it
// here, and all of its derived fields are scheduled so the capability's
// flags and amounts are filled in on flush.
func (tx *txn) configurable(l *ir.Line) *ir.ConfigurableLine {
	if l.Config == nil {
		tx.markAll(l.ID)
	}
	return l.Configurable()
}

// nextSequence returns one past the highest sequence in the forest.
func (tx *txn) nextSequence() int {
	next := 0
	for _, l := range tx.f.Lines() {
		if l.Sequence >= next {
			next = l.Sequence + 1
		}
	}
	return next
}

func (tx *txn) setOptions(parent ir.LineID, specs []ir.LineSpec) ([]ir.LineID, error) {
	owner, err := tx.line(parent)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner); err != nil {
		return nil, err
	}

	existing := tx.f.ChildIDs(parent)
	keep := make(map[ir.LineID]bool)
	for _, s := range specs {
		if s.ID.IsZero() {
			continue
		}
		if !slices.Contains(existing, s.ID) {
			return nil, NewValidationError(s.ID, "line is not an option of %s", parent)
		}
		if keep[s.ID] {
			return nil, NewValidationError(s.ID, "option listed twice in the options of %s", parent)
		}
		keep[s.ID] = true
	}
	for _, id := range existing {
		if !keep[id] && tx.f.Has(id) {
			if err := tx.remove(id); err != nil {
				return nil, err
			}
		}
	}

	ids := make([]ir.LineID, 0, len(specs))
	for _, s := range specs {
		if !s.ParentOptionID.IsZero() && s.ParentOptionID != parent {
			return nil, NewValidationError(s.ParentOptionID,
				"option spec declares parent %s inside the options of %s", s.ParentOptionID, parent)
		}
		s.ParentOptionID = parent

		if !s.ID.IsZero() {
			if err := tx.update(s); err != nil {
				return nil, err
			}
			ids = append(ids, s.ID)
			continue
		}

		if s.ContractID == "" {
			s.ContractID = owner.ContractID
		}
		created, err := tx.createTree([]ir.LineSpec{s})
		if err != nil {
			return nil, err
		}
		ids = append(ids, created...)
	}

	tx.structural = true
	return ids, nil
}

// update applies the set fields of a spec to an existing option.
func (tx *txn) update(s ir.LineSpec) error {
	l, err := tx.line(s.ID)
	if err != nil {
		return err
	}
	if s.Name != "" {
		l.Name = s.Name
	}
	if s.Sequence != nil {
		l.Sequence = *s.Sequence
	}
	if s.ProductID != "" && s.ProductID != l.ProductID {
		l.ProductID = s.ProductID
		tx.touch(s.ID, FieldProductID)
	}
	if s.Quantity.Valid {
		l.Quantity = s.Quantity.Decimal
		tx.touch(s.ID, FieldQuantity)
	}
	if s.OptionUnitQty.Valid {
		tx.configurable(l).OptionUnitQty = s.OptionUnitQty.Decimal
		tx.touch(s.ID, FieldOptionUnitQty)
	}
	if s.OptionQtyType != "" {
		tx.configurable(l).OptionQtyType = s.OptionQtyType
		tx.pin(s.ID, FieldOptionQtyType)
		tx.touch(s.ID, FieldOptionQtyType)
	}
	if s.PriceUnit.Valid {
		l.PriceUnit = s.PriceUnit.Decimal
		tx.pin(s.ID, FieldPriceUnit)
		tx.touch(s.ID, FieldPriceUnit)
	}
	if s.PriceSubtotal.Valid {
		l.PriceSubtotal = s.PriceSubtotal.Decimal
		tx.pin(s.ID, FieldPriceSubtotal)
		tx.touch(s.ID, FieldPriceSubtotal)
	}
	if len(s.Options) > 0 {
		if _, err := tx.setOptions(s.ID, s.Options); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes a line and its subtree, deepest lines first.
func (tx *txn) remove(id ir.LineID) error {
	l, err := tx.line(id)
	if err != nil {
		return err
	}
	parent := l.ParentOptionID()

	doomed := []ir.LineID{id}
	for _, d := range tx.f.Descendants(id) {
		doomed = append(doomed, d.ID)
	}
	for i := len(doomed) - 1; i >= 0; i-- {
		if err := tx.f.Remove(doomed[i]); err != nil {
			return err
		}
		tx.queue.Drop(doomed[i])
	}

	tx.touchChildren(parent)
	tx.structural = true
	tx.logger.Debug("line removed",
		"line", id,
		"cascaded", len(doomed)-1,
	)
	return nil
}
