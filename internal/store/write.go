package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/contractcfg/internal/ir"
)

// ErrPendingID is returned when a save contains a line that was never
// promoted to a durable id.
var ErrPendingID = errors.New("pending line id")

// SaveContract writes the contract header and replaces all of its lines in
// one transaction.
//
// Lines with pending ids, or option links to pending ids, are rejected with
// ErrPendingID. The snapshot hash of the saved lines is stored alongside the
// header and checked again by LoadContract.
func (s *Store) SaveContract(ctx context.Context, c ir.Contract, lines []ir.Line) error {
	if c.ID == "" {
		return fmt.Errorf("save contract: missing contract id")
	}
	for _, l := range lines {
		if l.ID.IsZero() {
			return fmt.Errorf("save contract: line without id")
		}
		if l.ID.IsPending() {
			return fmt.Errorf("save contract: line %s: %w", l.ID, ErrPendingID)
		}
		if l.ParentOptionID().IsPending() {
			return fmt.Errorf("save contract: line %s parent %s: %w", l.ID, l.ParentOptionID(), ErrPendingID)
		}
		if l.ContractID != "" && l.ContractID != c.ID {
			return fmt.Errorf("save contract: line %s belongs to contract %s", l.ID, l.ContractID)
		}
	}

	ordered, err := parentsFirst(lines)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	hash, err := ir.SnapshotHash(canonicalOrder(lines))
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save contract: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contracts (id, name, partner_id, pricelist_id, date, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			partner_id = excluded.partner_id,
			pricelist_id = excluded.pricelist_id,
			date = excluded.date,
			snapshot_hash = excluded.snapshot_hash
	`, c.ID, c.Name, c.PartnerID, c.PricelistID, marshalDate(c.Date), hash)
	if err != nil {
		return fmt.Errorf("save contract: header: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM contract_lines WHERE contract_id = ?`, c.ID); err != nil {
		return fmt.Errorf("save contract: clear lines: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertLineSQL)
	if err != nil {
		return fmt.Errorf("save contract: prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range ordered {
		if _, err := stmt.ExecContext(ctx, lineArgs(c.ID, l)...); err != nil {
			return fmt.Errorf("save contract: line %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save contract: commit: %w", err)
	}
	return nil
}

const insertLineSQL = `
	INSERT INTO contract_lines (
		id, contract_id, name, product_id, uom, sequence,
		quantity, price_unit, price_subtotal, kind,
		parent_option_id, parent_id, child_type,
		option_unit_qty, option_qty_type, product_option_id,
		price_config_subtotal, is_configurable, hide_subtotal, report_line_is_empty_parent
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// lineArgs flattens a line into insertLineSQL arguments. Plain lines leave
// the option columns NULL.
func lineArgs(contractID string, l ir.Line) []any {
	kind := l.Kind
	if kind == "" {
		kind = ir.LineKindPlain
	}
	args := []any{
		string(l.ID), contractID, l.Name, l.ProductID, l.UoM, l.Sequence,
		l.Quantity.String(), l.PriceUnit.String(), l.PriceSubtotal.String(), string(kind),
	}

	cfg := l.Config
	if cfg == nil {
		return append(args,
			nil, nil, "",
			nil, "", "",
			nil, 0, 0, 0,
		)
	}
	return append(args,
		nullID(cfg.ParentOptionID), nullID(cfg.ParentID), string(cfg.ChildType),
		cfg.OptionUnitQty.String(), string(cfg.OptionQtyType), cfg.ProductOptionID,
		cfg.PriceConfigSubtotal.String(), boolInt(cfg.IsConfigurable), boolInt(cfg.HideSubtotal), boolInt(cfg.ReportLineIsEmptyParent),
	)
}

// DeleteContract removes a contract and all of its lines.
//
// Returns sql.ErrNoRows if the contract does not exist.
func (s *Store) DeleteContract(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
