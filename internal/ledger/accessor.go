// Package ledger turns decoded rows into the canonical transaction ledger and
// the deduplicated contact list.
//
// The package is synchronous and keeps no global state: each Assembler call
// owns its mapping copy, identity set and output tables, so independent runs
// may execute concurrently.
package ledger

import (
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// Get returns the text of the cell at the 1-based position, or "" when the
// position is unset or the row has nothing there.
func Get(row types.Row, position types.Position) string {
	if row == nil || position <= 0 {
		return ""
	}
	v, ok := row.Cell(int(position) - 1)
	if !ok {
		return ""
	}
	return types.CellText(v)
}
