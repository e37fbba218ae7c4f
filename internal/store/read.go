package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/ir"
)

// ErrSnapshotMismatch is returned when stored lines no longer hash to the
// value recorded by the last SaveContract.
var ErrSnapshotMismatch = errors.New("snapshot hash mismatch")

// ContractSummary is a listing entry for a stored contract.
type ContractSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PartnerID    string `json:"partner_id"`
	LineCount    int    `json:"line_count"`
	SnapshotHash string `json:"snapshot_hash"`
}

// LoadContract returns a contract header and its lines ordered by
// sequence, then id.
//
// Returns sql.ErrNoRows if the contract does not exist.
func (s *Store) LoadContract(ctx context.Context, id string) (ir.Contract, []ir.Line, error) {
	var (
		c    ir.Contract
		date string
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, partner_id, pricelist_id, date, snapshot_hash
		FROM contracts
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.PartnerID, &c.PricelistID, &date, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Contract{}, nil, sql.ErrNoRows
		}
		return ir.Contract{}, nil, fmt.Errorf("load contract: %w", err)
	}
	if c.Date, err = unmarshalDate(date); err != nil {
		return ir.Contract{}, nil, fmt.Errorf("load contract: %w", err)
	}

	lines, err := s.readLines(ctx, id)
	if err != nil {
		return ir.Contract{}, nil, err
	}

	if hash != "" {
		got, err := ir.SnapshotHash(lines)
		if err != nil {
			return ir.Contract{}, nil, fmt.Errorf("load contract: %w", err)
		}
		if got != hash {
			return ir.Contract{}, nil, fmt.Errorf("load contract %s: %w", id, ErrSnapshotMismatch)
		}
	}
	return c, lines, nil
}

// readLines returns the lines of a contract with deterministic ordering.
func (s *Store) readLines(ctx context.Context, contractID string) ([]ir.Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, name, product_id, uom, sequence,
			quantity, price_unit, price_subtotal, kind,
			parent_option_id, parent_id, child_type,
			option_unit_qty, option_qty_type, product_option_id,
			price_config_subtotal, is_configurable, hide_subtotal, report_line_is_empty_parent
		FROM contract_lines
		WHERE contract_id = ?
		ORDER BY sequence ASC, id COLLATE BINARY ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	lines := []ir.Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// scanLine reads one contract_lines row.
func scanLine(rows *sql.Rows) (ir.Line, error) {
	var (
		l                                     ir.Line
		id, kind                              string
		qty, unit, subtotal                   string
		parentOption, parent                  sql.NullString
		childType, qtyType, productOption     string
		unitQty, configSubtotal               sql.NullString
		isConfigurable, hideSubtotal, isEmpty int
	)
	err := rows.Scan(
		&id, &l.ContractID, &l.Name, &l.ProductID, &l.UoM, &l.Sequence,
		&qty, &unit, &subtotal, &kind,
		&parentOption, &parent, &childType,
		&unitQty, &qtyType, &productOption,
		&configSubtotal, &isConfigurable, &hideSubtotal, &isEmpty,
	)
	if err != nil {
		return ir.Line{}, fmt.Errorf("scan line: %w", err)
	}
	l.ID = ir.LineID(id)
	l.Kind = ir.LineKind(kind)

	if l.Quantity, err = scanDecimal("quantity", qty); err != nil {
		return ir.Line{}, err
	}
	if l.PriceUnit, err = scanDecimal("price_unit", unit); err != nil {
		return ir.Line{}, err
	}
	if l.PriceSubtotal, err = scanDecimal("price_subtotal", subtotal); err != nil {
		return ir.Line{}, err
	}

	if l.Kind != ir.LineKindConfigurable {
		return l, nil
	}

	cfg := l.Configurable()
	cfg.ParentOptionID = ir.LineID(parentOption.String)
	cfg.ParentID = ir.LineID(parent.String)
	cfg.ChildType = ir.ChildType(childType)
	cfg.OptionQtyType = ir.QtyType(qtyType)
	cfg.ProductOptionID = productOption
	cfg.IsConfigurable = isConfigurable != 0
	cfg.HideSubtotal = hideSubtotal != 0
	cfg.ReportLineIsEmptyParent = isEmpty != 0
	if unitQty.Valid {
		if cfg.OptionUnitQty, err = scanDecimal("option_unit_qty", unitQty.String); err != nil {
			return ir.Line{}, err
		}
	}
	if configSubtotal.Valid {
		if cfg.PriceConfigSubtotal, err = scanDecimal("price_config_subtotal", configSubtotal.String); err != nil {
			return ir.Line{}, err
		}
	}
	return l, nil
}

// scanDecimal parses a stored decimal column.
func scanDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("scan line: column %s: %w", column, err)
	}
	return d, nil
}

// ListContracts returns every stored contract ordered by id.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListContracts(ctx context.Context) ([]ContractSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.partner_id, c.snapshot_hash, COUNT(l.id)
		FROM contracts c
		LEFT JOIN contract_lines l ON l.contract_id = c.id
		GROUP BY c.id
		ORDER BY c.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	out := []ContractSummary{}
	for rows.Next() {
		var cs ContractSummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.PartnerID, &cs.SnapshotHash, &cs.LineCount); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}
