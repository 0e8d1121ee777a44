package ledger

import "github.com/ginjaninja78/loyalty-normalizer/internal/types"

// RowSource yields decoded rows one at a time, in input order. It is read
// once; Err reports a decoding failure that ended the sequence early.
type RowSource interface {
	Next() bool
	Row() types.Row
	Err() error
}

// SliceSource serves rows that are already in memory.
type SliceSource struct {
	rows []types.Row
	pos  int
}

// Rows wraps an in-memory table as a RowSource.
func Rows(rows []types.Row) *SliceSource {
	return &SliceSource{rows: rows, pos: -1}
}

func (s *SliceSource) Next() bool {
	if s.pos+1 >= len(s.rows) {
		s.pos = len(s.rows)
		return false
	}
	s.pos++
	return true
}

func (s *SliceSource) Row() types.Row {
	if s.pos < 0 || s.pos >= len(s.rows) {
		return nil
	}
	return s.rows[s.pos]
}

func (s *SliceSource) Err() error { return nil }
