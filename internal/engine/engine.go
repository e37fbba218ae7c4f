package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
)

// DefaultMaxSteps is the default maximum number of recompute steps per call.
// This turns recomputation that fails to settle into an error.
const DefaultMaxSteps = 10000

// Engine keeps the line forest of one contract consistent.
//
// Every mutating method runs as a transaction: it works on a clone of the
// forest, flushes all dependent recomputation, resequences after structural
// changes and only then publishes the clone. On error the committed forest
// is untouched.
//
// Engine is not safe for concurrent use. Use one engine per contract and
// serialize calls; independent contracts need no coordination.
type Engine struct {
	forest  *forest.Forest
	graph   *DepGraph
	catalog Catalog
	pricer  Pricer
	logger  *slog.Logger
	guard   *CycleGuard

	maxDepth int
	maxSteps int
	ranks    []ChildTypeRank
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the product catalog used for option resolution.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithPricer sets the pricing collaborator. Without a pricer, unit prices
// and subtotals are whatever the caller writes.
func WithPricer(p Pricer) Option {
	return func(e *Engine) {
		e.pricer = p
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxDepth sets the maximum option nesting depth.
//
// Default: 8 (DefaultMaxDepth). Zero disables the depth check; cycles are
// always rejected.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithMaxSteps sets the recompute step quota per call.
//
// Default: 10000 steps (DefaultMaxSteps)
// Use WithMaxSteps(5) for testing quota enforcement.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithChildTypes replaces the sequencing priority table.
func WithChildTypes(ranks ...ChildTypeRank) Option {
	return func(e *Engine) {
		e.ranks = slices.Clone(ranks)
	}
}

// New creates an engine over the forest and brings its derived fields up to
// date. Amounts and propagation modes are taken as stored, see settle. The
// engine takes ownership of f.
func New(f *forest.Forest, opts ...Option) (*Engine, error) {
	graph, err := NewDepGraph(defaultNodes())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		forest:   f,
		graph:    graph,
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		maxSteps: DefaultMaxSteps,
		ranks:    slices.Clone(DefaultChildTypes),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.guard = NewCycleGuard(e.maxDepth)

	if err := e.settle(); err != nil {
		return nil, fmt.Errorf("initial recompute: %w", err)
	}
	return e, nil
}

// storedNodes produce fields that may have been written explicitly. Which
// values were explicit is not kept with the forest, so a loaded value is
// treated as given until one of its inputs changes.
var storedNodes = []string{"option_qty_type", "price_unit", "price_subtotal"}

// settle recomputes every derived field of a loaded forest except those of
// storedNodes.
func (e *Engine) settle() error {
	return e.transact("load", func(tx *txn) error {
		for _, id := range tx.f.IDs() {
			for i, n := range tx.graph.nodes {
				if !slices.Contains(storedNodes, n.Name) {
					tx.queue.Mark(i, id)
				}
			}
		}
		return nil
	})
}

// begin opens a transaction over a clone of the committed forest.
func (e *Engine) begin() *txn {
	return &txn{
		f:       e.forest.Clone(),
		graph:   e.graph,
		queue:   newDirtyQueue(len(e.graph.nodes)),
		quota:   NewQuotaEnforcer(e.maxSteps),
		guard:   e.guard,
		catalog: e.catalog,
		pricer:  e.pricer,
		ranks:   e.ranks,
		logger:  e.logger,
		pins:    make(map[pin]struct{}),
	}
}

// transact runs fn on a fresh transaction, flushes it and commits it.
func (e *Engine) transact(op string, fn func(tx *txn) error) error {
	tx := e.begin()

	err := fn(tx)
	if err == nil {
		err = tx.flush()
	}
	if err != nil {
		e.logger.Warn("transaction rolled back",
			"op", op,
			"contract", e.forest.Contract().ID,
			"error", err,
		)
		return err
	}

	if tx.structural {
		syncSequence(tx.f, tx.ranks)
	}
	e.forest = tx.f

	e.logger.Info("transaction committed",
		"op", op,
		"contract", e.forest.Contract().ID,
		"lines", e.forest.Len(),
		"steps", tx.quota.Current(),
		"resequenced", tx.structural,
	)
	return nil
}

// line returns the live line or a not-found error.
func (tx *txn) line(id ir.LineID) (*ir.Line, error) {
	l := tx.f.Get(id)
	if l == nil {
		return nil, NewNotFoundError(id)
	}
	return l, nil
}

// Recompute marks every derived field of every line dirty and flushes.
// Amounts are repriced through the pricer, explicit ones included.
func (e *Engine) Recompute() error {
	return e.transact("recompute", func(tx *txn) error {
		for _, id := range tx.f.IDs() {
			tx.markAll(id)
		}
		return nil
	})
}

// SyncSequence renumbers the whole forest in tree order.
func (e *Engine) SyncSequence() error {
	return e.transact("sync_sequence", func(tx *txn) error {
		tx.structural = true
		return nil
	})
}

// SetQuantity writes the quantity of a line. Direct option children are
// recomputed before the call returns. On an option line with a known
// propagation mode the derived quantity wins over the written one.
func (e *Engine) SetQuantity(id ir.LineID, qty decimal.Decimal) error {
	return e.transact("set_quantity", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		l.Quantity = qty
		tx.touch(id, FieldQuantity)
		return nil
	})
}

// SetOptionUnitQty writes the per-unit quantity of an option line.
func (e *Engine) SetOptionUnitQty(id ir.LineID, qty decimal.Decimal) error {
	return e.transact("set_option_unit_qty", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		tx.configurable(l).OptionUnitQty = qty
		tx.touch(id, FieldOptionUnitQty)
		return nil
	})
}

// SetOptionQtyType writes the propagation mode of an option line. Modes
// other than proportional and independent are stored but leave the
// quantity alone.
func (e *Engine) SetOptionQtyType(id ir.LineID, t ir.QtyType) error {
	return e.transact("set_option_qty_type", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		tx.configurable(l).OptionQtyType = t
		tx.pin(id, FieldOptionQtyType)
		tx.touch(id, FieldOptionQtyType)
		return nil
	})
}

// SetPriceUnit writes the unit price of a line.
func (e *Engine) SetPriceUnit(id ir.LineID, price decimal.Decimal) error {
	return e.transact("set_price_unit", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		l.PriceUnit = price
		tx.pin(id, FieldPriceUnit)
		tx.touch(id, FieldPriceUnit)
		return nil
	})
}

// SetPriceSubtotal writes the subtotal of a line as produced by the
// pricing layer.
func (e *Engine) SetPriceSubtotal(id ir.LineID, subtotal decimal.Decimal) error {
	return e.transact("set_price_subtotal", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		l.PriceSubtotal = subtotal
		tx.pin(id, FieldPriceSubtotal)
		tx.touch(id, FieldPriceSubtotal)
		return nil
	})
}

// SetProduct changes the product of a line.
//
// With addDefaults set and a configurable product, the option collection of
// the line is replaced by the product's default options.
func (e *Engine) SetProduct(id ir.LineID, productID string, addDefaults bool) error {
	return e.transact("set_product", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		l.ProductID = productID

		product, known := ir.Product{}, false
		if tx.catalog != nil {
			product, known = tx.catalog.Product(productID)
		}
		if known {
			if product.UoM != "" {
				l.UoM = product.UoM
			}
			if l.Name == "" {
				l.Name = product.Name
			}
		}
		tx.touch(id, FieldProductID)
		tx.repriceRoot(l)

		if !addDefaults || !known || !product.IsConfigurableOpt {
			return nil
		}
		var defaults []ir.LineSpec
		for _, opt := range product.Options {
			if !opt.IsDefault {
				continue
			}
			defaults = append(defaults, ir.LineSpec{
				ProductID:     opt.ProductID,
				OptionUnitQty: decimal.NewNullDecimal(opt.DefaultQty),
			})
		}
		_, err = tx.setOptions(id, defaults)
		return err
	})
}

// SetParentOption links a line (with its subtree) under parent, or moves it
// to the root level when parent is zero. Links that would close a loop,
// exceed the depth limit or involve a plain line are rejected.
func (e *Engine) SetParentOption(id, parent ir.LineID) error {
	return e.transact("set_parent_option", func(tx *txn) error {
		l, err := tx.line(id)
		if err != nil {
			return err
		}
		if !parent.IsZero() {
			owner, err := tx.line(parent)
			if err != nil {
				return err
			}
			if err := checkOwner(owner); err != nil {
				return err
			}
			if l.Config == nil {
				return NewValidationError(id, "plain line cannot be an option")
			}
		}
		if err := tx.guard.CheckLink(tx.f, id, parent); err != nil {
			return err
		}

		old := l.ParentOptionID()
		if old == parent {
			return nil
		}
		if err := tx.f.SetParentOption(id, parent); err != nil {
			return err
		}
		tx.touch(id, FieldParentOptionID)
		tx.touchChildren(old)
		tx.touchChildren(parent)
		tx.structural = true
		return nil
	})
}

// SetSequences writes raw sequence numbers, typically from a drag and drop
// reorder, then resequences the whole forest.
func (e *Engine) SetSequences(seqs map[ir.LineID]int) error {
	return e.transact("set_sequences", func(tx *txn) error {
		for _, id := range slices.Sorted(maps.Keys(seqs)) {
			l, err := tx.line(id)
			if err != nil {
				return err
			}
			l.Sequence = seqs[id]
		}
		tx.structural = true
		return nil
	})
}

// SetContract replaces the contract header and reprices every line that
// depends on it.
func (e *Engine) SetContract(c ir.Contract) error {
	return e.transact("set_contract", func(tx *txn) error {
		if c.ID != tx.f.Contract().ID {
			return NewValidationError("", "contract id cannot change from %q to %q", tx.f.Contract().ID, c.ID)
		}
		tx.f.SetContract(c)
		for _, id := range tx.f.IDs() {
			tx.markNode("price_unit", id)
		}
		return nil
	})
}

// Forest returns the committed forest.
//
// Callers must treat it as read-only; use Draft to experiment with edits.
func (e *Engine) Forest() *forest.Forest {
	return e.forest
}

// Contract returns the contract header.
func (e *Engine) Contract() ir.Contract {
	return e.forest.Contract()
}

// Line returns a copy of a line.
func (e *Engine) Line(id ir.LineID) (ir.Line, bool) {
	return e.forest.Line(id)
}

// Children returns copies of the direct option children of a line, in
// sequence order.
func (e *Engine) Children(id ir.LineID) []ir.Line {
	kids := e.forest.Children(id)
	out := make([]ir.Line, 0, len(kids))
	for _, k := range kids {
		out = append(out, k.Clone())
	}
	slices.SortStableFunc(out, func(a, b ir.Line) int { return a.Sequence - b.Sequence })
	return out
}

// Lines returns copies of every line ordered by sequence.
func (e *Engine) Lines() []ir.Line {
	return e.forest.Ordered()
}

// MainLines returns copies of the root lines ordered by sequence.
func (e *Engine) MainLines() []ir.Line {
	return e.forest.MainLines()
}

// Draft returns an engine over a private copy of the forest.
//
// Edits on the draft are invisible to e. A draft is persisted only by an
// explicit Promote and save.
func (e *Engine) Draft() *Engine {
	d := *e
	d.forest = e.forest.Clone()
	return &d
}

// Promote replaces every pending line id by a durable id from gen.
// Returns the mapping from pending to durable ids.
func (e *Engine) Promote(gen forest.IDGenerator) map[ir.LineID]ir.LineID {
	mapping := e.forest.Promote(gen)
	if len(mapping) > 0 {
		e.logger.Info("lines promoted",
			"contract", e.forest.Contract().ID,
			"count", len(mapping),
		)
	}
	return mapping
}
