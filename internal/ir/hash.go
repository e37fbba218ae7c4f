package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSnapshot separates snapshot hashes from any other hashed content.
// Version suffix enables future algorithm migration.
const DomainSnapshot = "contractcfg/snapshot/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// LineSnapshot converts a line to a canonical map. Amounts are rendered as
// fixed-point strings so that equal values always serialize identically.
func LineSnapshot(l Line) map[string]any {
	m := map[string]any{
		"id":             l.ID,
		"name":           l.Name,
		"product_id":     l.ProductID,
		"sequence":       l.Sequence,
		"quantity":       l.Quantity.StringFixed(4),
		"price_unit":     l.PriceUnit.StringFixed(4),
		"price_subtotal": l.PriceSubtotal.StringFixed(2),
		"kind":           string(l.Kind),
	}
	if c := l.Config; c != nil {
		m["parent_id"] = c.ParentID
		m["child_type"] = c.ChildType
		m["option_unit_qty"] = c.OptionUnitQty.StringFixed(4)
		m["option_qty_type"] = c.OptionQtyType
		m["price_config_subtotal"] = c.PriceConfigSubtotal.StringFixed(2)
		m["is_configurable"] = c.IsConfigurable
		m["hide_subtotal"] = c.HideSubtotal
		m["report_line_is_empty_parent"] = c.ReportLineIsEmptyParent
	}
	return m
}

// SnapshotHash hashes the canonical form of lines, in the given order.
// Two forests with identical derived state produce the same hash.
func SnapshotHash(lines []Line) (string, error) {
	list := make([]any, len(lines))
	for i, l := range lines {
		list[i] = LineSnapshot(l)
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}
