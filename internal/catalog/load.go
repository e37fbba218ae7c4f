package catalog

import (
	_ "embed"
	"fmt"
	"maps"
	"math/big"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

//go:embed schema.cue
var schemaSrc string

// Error codes for catalog loading.
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeLoadFailed  = "LOAD_FAILED"
	ErrCodeBuildFailed = "BUILD_FAILED"
	ErrCodeSchema      = "SCHEMA"
	ErrCodeReference   = "REFERENCE"
)

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load compiles the CUE package in dir into a catalog.
func Load(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeLoadFailed, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	return compile(ctx, value)
}

// Compile compiles a catalog from CUE source text. name is used in error
// positions.
func Compile(name, src string) (*Catalog, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	return compile(ctx, value)
}

// compile unifies value with the catalog schema and decodes it.
func compile(ctx *cue.Context, value cue.Value) (*Catalog, error) {
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	c := &Catalog{
		products:   make(map[string]ir.Product),
		pricelists: make(map[string]Pricelist),
	}
	if err := decodeProducts(unified.LookupPath(cue.ParsePath("product")), c); err != nil {
		return nil, err
	}
	if err := decodePricelists(unified.LookupPath(cue.ParsePath("pricelist")), c); err != nil {
		return nil, err
	}
	if err := checkReferences(unified, c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeProducts(v cue.Value, c *Catalog) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return cueError(ErrCodeSchema, err)
	}
	for iter.Next() {
		id := iter.Label()
		pv := iter.Value()

		p := ir.Product{ID: id}
		if p.Name, err = pv.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return cueError(ErrCodeSchema, err)
		}
		if p.UoM, err = pv.LookupPath(cue.ParsePath("uom")).String(); err != nil {
			return cueError(ErrCodeSchema, err)
		}
		if p.ListPrice, err = decimalOf(pv.LookupPath(cue.ParsePath("list_price"))); err != nil {
			return err
		}
		if p.IsConfigurableOpt, err = pv.LookupPath(cue.ParsePath("configurable")).Bool(); err != nil {
			return cueError(ErrCodeSchema, err)
		}
		if p.Options, err = decodeOptions(id, pv.LookupPath(cue.ParsePath("options"))); err != nil {
			return err
		}
		c.products[id] = p
	}
	return nil
}

func decodeOptions(productID string, v cue.Value) ([]ir.ProductOption, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	var out []ir.ProductOption
	for iter.Next() {
		optProduct := iter.Label()
		ov := iter.Value()

		opt := ir.ProductOption{
			ID:        productID + "/" + optProduct,
			ProductID: optProduct,
		}
		qtyType, err := ov.LookupPath(cue.ParsePath("qty_type")).String()
		if err != nil {
			return nil, cueError(ErrCodeSchema, err)
		}
		opt.QtyType = ir.QtyType(qtyType)
		if opt.IsDefault, err = ov.LookupPath(cue.ParsePath("default")).Bool(); err != nil {
			return nil, cueError(ErrCodeSchema, err)
		}
		if opt.DefaultQty, err = decimalOf(ov.LookupPath(cue.ParsePath("default_qty"))); err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, nil
}

func decodePricelists(v cue.Value, c *Catalog) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return cueError(ErrCodeSchema, err)
	}
	for iter.Next() {
		id := iter.Label()
		lv := iter.Value()

		pl := Pricelist{ID: id, Prices: make(map[string]decimal.Decimal)}
		if pl.Name, err = lv.LookupPath(cue.ParsePath("name")).String(); err != nil {
			return cueError(ErrCodeSchema, err)
		}

		tiers, err := lv.LookupPath(cue.ParsePath("tiers")).List()
		if err != nil {
			return cueError(ErrCodeSchema, err)
		}
		for tiers.Next() {
			tv := tiers.Value()
			var t Tier
			if t.MinQty, err = decimalOf(tv.LookupPath(cue.ParsePath("min_qty"))); err != nil {
				return err
			}
			if t.Discount, err = decimalOf(tv.LookupPath(cue.ParsePath("discount"))); err != nil {
				return err
			}
			pl.Tiers = append(pl.Tiers, t)
		}

		prices := lv.LookupPath(cue.ParsePath("prices"))
		if prices.Exists() {
			pi, err := prices.Fields()
			if err != nil {
				return cueError(ErrCodeSchema, err)
			}
			for pi.Next() {
				if pl.Prices[pi.Label()], err = decimalOf(pi.Value()); err != nil {
					return err
				}
			}
		}
		c.pricelists[id] = pl
	}
	return nil
}

// checkReferences verifies that every option and fixed price names a
// product of the catalog.
func checkReferences(v cue.Value, c *Catalog) error {
	for _, id := range slices.Sorted(maps.Keys(c.products)) {
		for _, opt := range c.products[id].Options {
			if _, ok := c.products[opt.ProductID]; ok {
				continue
			}
			path := cue.MakePath(cue.Str("product"), cue.Str(id), cue.Str("options"), cue.Str(opt.ProductID))
			return &LoadError{
				Code:    ErrCodeReference,
				Message: fmt.Sprintf("product %s offers unknown option product %s", id, opt.ProductID),
				Pos:     v.LookupPath(path).Pos(),
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(c.pricelists)) {
		for _, pid := range slices.Sorted(maps.Keys(c.pricelists[id].Prices)) {
			if _, ok := c.products[pid]; ok {
				continue
			}
			path := cue.MakePath(cue.Str("pricelist"), cue.Str(id), cue.Str("prices"), cue.Str(pid))
			return &LoadError{
				Code:    ErrCodeReference,
				Message: fmt.Sprintf("pricelist %s prices unknown product %s", id, pid),
				Pos:     v.LookupPath(path).Pos(),
			}
		}
	}
	return nil
}

// decimalOf reads a CUE number exactly, without a float round trip.
func decimalOf(v cue.Value) (decimal.Decimal, error) {
	mant := new(big.Int)
	exp, err := v.MantExp(mant)
	if err != nil {
		return decimal.Zero, cueError(ErrCodeSchema, err)
	}
	return decimal.NewFromBigInt(mant, int32(exp)), nil
}

// cueError extracts position info from CUE errors.
func cueError(code string, err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
