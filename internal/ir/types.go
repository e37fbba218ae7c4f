package ir

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKind selects which capabilities a line carries.
type LineKind string

const (
	// LineKindPlain is a billing line without option semantics.
	LineKindPlain LineKind = "plain"
	// LineKindConfigurable is a line carrying a *ConfigurableLine.
	LineKindConfigurable LineKind = "configurable"
)

// ChildType tags how a child line relates to its parent.
// The set is open: downstream code may register more types with a rank.
type ChildType string

const (
	// ChildTypeNone is the tag of root lines.
	ChildTypeNone ChildType = ""
	// ChildTypeOption is the tag of option lines.
	ChildTypeOption ChildType = "option"
)

// QtyType controls how an option's quantity derives from its parent.
type QtyType string

const (
	// QtyTypeProportional multiplies option_unit_qty by the parent quantity.
	QtyTypeProportional QtyType = "proportional"
	// QtyTypeIndependent uses option_unit_qty as-is.
	QtyTypeIndependent QtyType = "independent"
)

// Valid reports whether t is one of the known propagation modes.
func (t QtyType) Valid() bool {
	return t == QtyTypeProportional || t == QtyTypeIndependent
}

// Contract is the header shared by all lines of a forest.
type Contract struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PartnerID   string    `json:"partner_id"`
	PricelistID string    `json:"pricelist_id"`
	Date        time.Time `json:"date"`
}

// Line is a node of a contract line forest.
//
// Quantity is externally supplied for root lines and derived for options.
// PriceSubtotal is always supplied by the pricing collaborator.
type Line struct {
	ID            LineID          `json:"id"`
	ContractID    string          `json:"contract_id"`
	Name          string          `json:"name"`
	ProductID     string          `json:"product_id"`
	UoM           string          `json:"uom,omitempty"`
	Sequence      int             `json:"sequence"`
	Quantity      decimal.Decimal `json:"quantity"`
	PriceUnit     decimal.Decimal `json:"price_unit"`
	PriceSubtotal decimal.Decimal `json:"price_subtotal"`

	Kind   LineKind          `json:"kind"`
	Config *ConfigurableLine `json:"config,omitempty"`
}

// ConfigurableLine is the option capability of a line.
//
// ParentOptionID is the single source of truth for the tree shape; ParentID
// and ChildType are derived from it by the engine.
type ConfigurableLine struct {
	ParentOptionID  LineID          `json:"parent_option_id,omitempty"`
	ParentID        LineID          `json:"parent_id,omitempty"`
	ChildType       ChildType       `json:"child_type,omitempty"`
	OptionUnitQty   decimal.Decimal `json:"option_unit_qty"`
	OptionQtyType   QtyType         `json:"option_qty_type,omitempty"`
	ProductOptionID string          `json:"product_option_id,omitempty"`

	PriceConfigSubtotal     decimal.Decimal `json:"price_config_subtotal"`
	IsConfigurable          bool            `json:"is_configurable"`
	HideSubtotal            bool            `json:"hide_subtotal"`
	ReportLineIsEmptyParent bool            `json:"report_line_is_empty_parent"`
}

// NewConfigurableLine returns the capability with its defaults.
func NewConfigurableLine() *ConfigurableLine {
	return &ConfigurableLine{OptionUnitQty: decimal.NewFromInt(1)}
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	if l.Config != nil {
		cfg := *l.Config
		l.Config = &cfg
	}
	return l
}

// Configurable attaches the option capability if missing and returns it.
func (l *Line) Configurable() *ConfigurableLine {
	if l.Config == nil {
		l.Config = NewConfigurableLine()
	}
	l.Kind = LineKindConfigurable
	return l.Config
}

// ParentOptionID returns the explicit option link, if any.
func (l Line) ParentOptionID() LineID {
	if l.Config == nil {
		return ""
	}
	return l.Config.ParentOptionID
}

// ParentID returns the derived parent link, if any.
func (l Line) ParentID() LineID {
	if l.Config == nil {
		return ""
	}
	return l.Config.ParentID
}

// ChildType returns the derived child tag.
func (l Line) ChildType() ChildType {
	if l.Config == nil {
		return ChildTypeNone
	}
	return l.Config.ChildType
}

// IsRoot reports whether the line has no parent.
func (l Line) IsRoot() bool {
	return l.ParentID().IsZero()
}

// LineSpec is the creation payload for a line and its inline options.
//
// Unset amounts use decimal.NullDecimal so that an explicit zero can be told
// apart from "not supplied". ID is only honoured by SetOptions, where it
// designates an existing option to keep.
type LineSpec struct {
	ID             LineID
	ContractID     string
	Name           string
	ProductID      string
	UoM            string
	Sequence       *int
	Quantity       decimal.NullDecimal
	PriceUnit      decimal.NullDecimal
	PriceSubtotal  decimal.NullDecimal
	ParentOptionID LineID
	OptionUnitQty  decimal.NullDecimal
	OptionQtyType  QtyType
	Plain          bool
	Options        []LineSpec
}

// Amount parses s into a set NullDecimal. It panics on malformed input and
// is meant for literals in tests and fixtures.
func Amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Product is the catalog metadata consumed by the engine.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	UoM               string          `json:"uom,omitempty"`
	ListPrice         decimal.Decimal `json:"list_price"`
	IsConfigurableOpt bool            `json:"is_configurable_opt"`
	Options           []ProductOption `json:"options,omitempty"`
}

// ProductOption is a configurable option offered by a product.
type ProductOption struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	QtyType    QtyType         `json:"qty_type"`
	IsDefault  bool            `json:"is_default"`
	DefaultQty decimal.Decimal `json:"default_qty"`
}

// PriceRequest carries the parameters of a unit price lookup.
type PriceRequest struct {
	ProductID   string
	Quantity    decimal.Decimal
	PartnerID   string
	Date        time.Time
	PricelistID string
	UoM         string
}

// Action is a UI control-flow instruction returned to the presentation layer.
type Action struct {
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	ResModel string            `json:"res_model,omitempty"`
	ViewID   string            `json:"view_id,omitempty"`
	ViewMode string            `json:"view_mode,omitempty"`
	Target   string            `json:"target,omitempty"`
	ResID    LineID            `json:"res_id,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}
