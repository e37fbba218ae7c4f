package catalog

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

var hundred = decimal.NewFromInt(100)

// Catalog is a compiled product catalog with its pricelists.
//
// It serves both as the engine's product catalog and as a reference
// pricing collaborator: the unit price of a product is its list price (or
// the pricelist's fixed price) minus the discount of the best matching
// quantity tier, rounded to cents.
//
// Catalog is immutable after compilation and safe for concurrent use.
type Catalog struct {
	products   map[string]ir.Product
	pricelists map[string]Pricelist
}

// Pricelist adjusts list prices for a customer segment.
type Pricelist struct {
	ID     string
	Name   string
	Tiers  []Tier
	Prices map[string]decimal.Decimal
}

// Tier grants a percentage discount from a minimum quantity on.
type Tier struct {
	MinQty   decimal.Decimal
	Discount decimal.Decimal
}

// Product returns a copy of the product with the given id.
func (c *Catalog) Product(id string) (ir.Product, bool) {
	p, ok := c.products[id]
	if !ok {
		return ir.Product{}, false
	}
	p.Options = slices.Clone(p.Options)
	return p, true
}

// Products returns every product ordered by id.
func (c *Catalog) Products() []ir.Product {
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]ir.Product, 0, len(ids))
	for _, id := range ids {
		p, _ := c.Product(id)
		out = append(out, p)
	}
	return out
}

// Pricelist returns the pricelist with the given id.
func (c *Catalog) Pricelist(id string) (Pricelist, bool) {
	pl, ok := c.pricelists[id]
	return pl, ok
}

// PricelistCount returns the number of pricelists.
func (c *Catalog) PricelistCount() int {
	return len(c.pricelists)
}

// UnitPrice resolves the unit price of a product for a request.
// Unknown products have no price. An unknown pricelist falls back to list
// prices.
func (c *Catalog) UnitPrice(req ir.PriceRequest) (decimal.Decimal, bool) {
	p, ok := c.products[req.ProductID]
	if !ok {
		return decimal.Zero, false
	}
	price := p.ListPrice

	pl, ok := c.pricelists[req.PricelistID]
	if !ok {
		return price.Round(2), true
	}
	if fixed, ok := pl.Prices[req.ProductID]; ok {
		price = fixed
	}
	if d := pl.discount(req.Quantity); !d.IsZero() {
		price = price.Mul(hundred.Sub(d)).Div(hundred)
	}
	return price.Round(2), true
}

// Subtotal returns qty * unit rounded to cents.
func (c *Catalog) Subtotal(qty, unit decimal.Decimal) decimal.Decimal {
	return qty.Mul(unit).Round(2)
}

// discount returns the discount of the tier with the highest minimum
// quantity not above qty.
func (pl Pricelist) discount(qty decimal.Decimal) decimal.Decimal {
	best := decimal.Zero
	bestMin := decimal.NewFromInt(-1)
	for _, t := range pl.Tiers {
		if t.MinQty.LessThanOrEqual(qty) && t.MinQty.GreaterThan(bestMin) {
			best = t.Discount
			bestMin = t.MinQty
		}
	}
	return best
}
