// =============================================================================
// Loyalty Normalizer - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (produce rows)
//   - ledger (reads rows through the column accessor)
//   - validation (checks a ColumnMapping against a header)
//   - converter / web (carry mappings from flags, YAML and JSON)
//
// =============================================================================

package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROW TYPES
// =============================================================================

// RowKind identifies which row variant a Row is.
type RowKind int

const (
	// KindPositional is an ordered sequence of cells.
	KindPositional RowKind = iota

	// KindKeyed is an ordered key -> value record.
	KindKeyed
)

// String returns the human-readable name of the kind.
func (k RowKind) String() string {
	switch k {
	case KindPositional:
		return "positional"
	case KindKeyed:
		return "keyed"
	default:
		return fmt.Sprintf("RowKind(%d)", int(k))
	}
}

// Row is one record of an input table, independent of how it was decoded.
//
// Decoders without a header produce Positional rows. Decoders that consume a
// header produce Keyed rows whose keys are the header labels.
type Row interface {
	// Kind reports the row variant.
	Kind() RowKind

	// Cell returns the value addressed by the zero-based index and whether
	// the row has anything at that index.
	Cell(index int) (any, bool)

	// Labels returns the header text of every column. For a positional row
	// this is the text of its own cells, for a keyed row its keys.
	Labels() []string

	// Width is the number of cells (or keys) in the row.
	Width() int
}

// Positional is a row read without a header.
type Positional []any

// PositionalStrings builds a Positional row from decoded text cells.
func PositionalStrings(cells []string) Positional {
	row := make(Positional, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}

func (p Positional) Kind() RowKind { return KindPositional }

func (p Positional) Cell(index int) (any, bool) {
	if index < 0 || index >= len(p) {
		return nil, false
	}
	return p[index], true
}

func (p Positional) Labels() []string {
	labels := make([]string, len(p))
	for i, v := range p {
		labels[i] = CellText(v)
	}
	return labels
}

func (p Positional) Width() int { return len(p) }

// Keyed is a row whose cells are addressed by header label. Keys keep the
// order in which they were added; setting an existing key replaces its value
// but keeps its position.
type Keyed struct {
	keys   []string
	values map[string]any
}

// NewKeyed pairs keys with values. Missing values are stored as empty text.
func NewKeyed(keys []string, values []any) *Keyed {
	k := &Keyed{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, key := range keys {
		var v any = ""
		if i < len(values) {
			v = values[i]
		}
		k.Set(key, v)
	}
	return k
}

// NewKeyedStrings is NewKeyed for decoded text cells.
func NewKeyedStrings(keys []string, cells []string) *Keyed {
	values := make([]any, len(cells))
	for i, cell := range cells {
		values[i] = cell
	}
	return NewKeyed(keys, values)
}

// Set stores value under key.
func (k *Keyed) Set(key string, value any) {
	if k.values == nil {
		k.values = make(map[string]any)
	}
	if _, exists := k.values[key]; !exists {
		k.keys = append(k.keys, key)
	}
	k.values[key] = value
}

// Get returns the value stored under key.
func (k *Keyed) Get(key string) (any, bool) {
	v, ok := k.values[key]
	return v, ok
}

func (k *Keyed) Kind() RowKind { return KindKeyed }

// Cell looks the index up as a numeric key first ("0", "1", ...) and falls
// back to the key at that position in insertion order.
func (k *Keyed) Cell(index int) (any, bool) {
	if index < 0 {
		return nil, false
	}
	if v, ok := k.values[strconv.Itoa(index)]; ok {
		return v, true
	}
	if index < len(k.keys) {
		return k.values[k.keys[index]], true
	}
	return nil, false
}

func (k *Keyed) Labels() []string {
	out := make([]string, len(k.keys))
	copy(out, k.keys)
	return out
}

func (k *Keyed) Width() int { return len(k.keys) }

// =============================================================================
// CELL CONVERSION
// =============================================================================

// CellText renders any decoded cell value as text. nil becomes "".
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
