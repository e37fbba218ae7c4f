package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/ir"
)

// Report is the printable view of a contract forest.
type Report struct {
	Contract    string       `json:"contract"`
	Name        string       `json:"name,omitempty"`
	PartnerID   string       `json:"partner_id,omitempty"`
	PricelistID string       `json:"pricelist_id,omitempty"`
	Date        string       `json:"date,omitempty"`
	Lines       []ReportLine `json:"lines"`
	Total       string       `json:"total"`
}

// ReportLine is one line of a report.
//
// Subtotal is empty when the report hides it: for structural parents
// without a price of their own and for empty parents. ConfigSubtotal is
// set on configuration roots only.
type ReportLine struct {
	ID             string `json:"id"`
	ParentID       string `json:"parent_id,omitempty"`
	Depth          int    `json:"depth"`
	Sequence       int    `json:"sequence"`
	Name           string `json:"name"`
	ProductID      string `json:"product_id,omitempty"`
	Quantity       string `json:"quantity"`
	UoM            string `json:"uom,omitempty"`
	PriceUnit      string `json:"price_unit"`
	Subtotal       string `json:"price_subtotal,omitempty"`
	ConfigSubtotal string `json:"price_config_subtotal,omitempty"`
}

// buildReport renders the committed forest of eng in sequence order.
func buildReport(eng *engine.Engine) Report {
	c := eng.Contract()
	r := Report{
		Contract:    c.ID,
		Name:        c.Name,
		PartnerID:   c.PartnerID,
		PricelistID: c.PricelistID,
		Lines:       []ReportLine{},
	}
	if !c.Date.IsZero() {
		r.Date = c.Date.Format("2006-01-02")
	}

	f := eng.Forest()
	total := decimal.Zero
	for _, l := range eng.Lines() {
		total = total.Add(l.PriceSubtotal)

		rl := ReportLine{
			ID:        string(l.ID),
			ParentID:  string(l.ParentID()),
			Depth:     f.Depth(l.ID),
			Sequence:  l.Sequence,
			Name:      l.Name,
			ProductID: l.ProductID,
			Quantity:  l.Quantity.String(),
			UoM:       l.UoM,
			PriceUnit: l.PriceUnit.StringFixed(2),
		}
		if !hidesSubtotal(l) {
			rl.Subtotal = l.PriceSubtotal.StringFixed(2)
		}
		if l.Config != nil && l.IsRoot() && f.HasChildren(l.ID) {
			rl.ConfigSubtotal = l.Config.PriceConfigSubtotal.StringFixed(2)
		}
		r.Lines = append(r.Lines, rl)
	}
	r.Total = total.StringFixed(2)
	return r
}

// hidesSubtotal reports whether a line's own amount is left out of the
// report. Standalone configurable lines still show theirs.
func hidesSubtotal(l ir.Line) bool {
	if l.Config == nil {
		return false
	}
	if l.Config.ReportLineIsEmptyParent {
		return true
	}
	return l.Config.HideSubtotal && !l.IsRoot()
}

// String renders the report as an indented table.
func (r Report) String() string {
	p := message.NewPrinter(language.English)

	var buf strings.Builder
	fmt.Fprintf(&buf, "Contract %s", r.Contract)
	if r.Name != "" {
		fmt.Fprintf(&buf, " - %s", r.Name)
	}
	buf.WriteString("\n")
	if r.PartnerID != "" || r.PricelistID != "" || r.Date != "" {
		fmt.Fprintf(&buf, "Partner: %s  Pricelist: %s  Date: %s\n", orDash(r.PartnerID), orDash(r.PricelistID), orDash(r.Date))
	}
	buf.WriteString("\n")

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SEQ\tLINE\tQTY\tUNIT PRICE\tSUBTOTAL\tCONFIG TOTAL\t")
	for _, l := range r.Lines {
		name := strings.Repeat("  ", l.Depth) + l.Name
		if name == "" {
			name = l.ID
		}
		qty := l.Quantity
		if l.UoM != "" {
			qty += " " + l.UoM
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			l.Sequence, name, qty,
			formatAmount(p, l.PriceUnit),
			formatAmount(p, l.Subtotal),
			formatAmount(p, l.ConfigSubtotal),
		)
	}
	w.Flush()

	fmt.Fprintf(&buf, "\nTotal: %s\n", formatAmount(p, r.Total))
	return buf.String()
}

// formatAmount groups the integer digits of a fixed-point amount for
// display ("1234.50" -> "1,234.50"). Empty amounts stay empty.
func formatAmount(p *message.Printer, s string) string {
	if s == "" {
		return ""
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + s
	}
	out := sign + p.Sprintf("%d", n)
	if hasFrac {
		out += "." + frac
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
