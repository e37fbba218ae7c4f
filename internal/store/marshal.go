package store

import (
	"cmp"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/contractcfg/internal/ir"
)

// dateLayout is the storage format of contract dates.
const dateLayout = "2006-01-02"

// marshalDate renders a contract date. The zero time is stored as "".
func marshalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// unmarshalDate parses a stored contract date.
func unmarshalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal date: %w", err)
	}
	return t, nil
}

// nullID maps the empty id to SQL NULL so that foreign keys stay unset.
func nullID(id ir.LineID) sql.NullString {
	return sql.NullString{String: string(id), Valid: !id.IsZero()}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// canonicalOrder sorts lines the way LoadContract returns them.
func canonicalOrder(lines []ir.Line) []ir.Line {
	out := slices.Clone(lines)
	slices.SortStableFunc(out, func(a, b ir.Line) int {
		if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// parentsFirst orders lines so that every option follows its parent.
// Inserting in this order satisfies the self-referencing foreign key.
func parentsFirst(lines []ir.Line) ([]ir.Line, error) {
	out := make([]ir.Line, 0, len(lines))
	placed := make(map[ir.LineID]bool, len(lines))
	rest := lines

	for len(rest) > 0 {
		var next []ir.Line
		for _, l := range rest {
			parent := l.ParentOptionID()
			if parent.IsZero() || placed[parent] {
				out = append(out, l)
				placed[l.ID] = true
				continue
			}
			next = append(next, l)
		}
		if len(next) == len(rest) {
			return nil, fmt.Errorf("line %s references missing parent %s", next[0].ID, next[0].ParentOptionID())
		}
		rest = next
	}
	return out, nil
}
