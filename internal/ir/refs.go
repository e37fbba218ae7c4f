package ir

import (
	"strconv"
	"strings"
)

// PendingPrefix marks ids allocated to lines that were never saved.
const PendingPrefix = "new-"

// LineID identifies a line inside a contract forest.
//
// Durable ids come from an IDGenerator (UUIDv7 in production). Pending ids
// ("new-1", "new-2", ...) are allocated by the forest clock for lines that
// only exist in a draft and are replaced on Promote.
type LineID string

// PendingID builds the pending id for the given clock value.
func PendingID(seq int64) LineID {
	return LineID(PendingPrefix + strconv.FormatInt(seq, 10))
}

// IsPending reports whether the id belongs to the provisional id space.
func (id LineID) IsPending() bool {
	return strings.HasPrefix(string(id), PendingPrefix)
}

// IsZero reports whether the id is unset.
func (id LineID) IsZero() bool {
	return id == ""
}

func (id LineID) String() string {
	return string(id)
}
