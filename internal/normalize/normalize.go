// =============================================================================
// Loyalty Normalizer - Field Normalizers
// =============================================================================
//
// This package canonicalizes single field values extracted from an input row.
// Every normalizer is pure and total: it never panics on user data and maps
// anything it cannot understand to a documented default (usually "").
//
// FIELDS:
//   - Phone          : 10-digit Indian mobile number, country prefix removed
//   - BillNumber     : numeric text, otherwise empty
//   - BillAmount     : numeric text, otherwise empty
//   - OrderTime      : YYYY-MM-DD HH:MM:SS
//   - Name           : cleaned, whitespace-collapsed, title-cased
//   - Email          : lowercased, basic shape check
//   - Birthday       : YYYY-MM-DD
//   - Anniversary    : YYYY-MM-DD
//   - Gender         : Male / Female / Other or capitalized free text
//   - Points         : integer text, "0" when missing
//   - Tags           : comma separated, cleaned
//
// =============================================================================

package normalize

import "fmt"

// Kind names a canonical field.
type Kind string

const (
	KindPhone       Kind = "phone"
	KindBillNumber  Kind = "bill_number"
	KindBillAmount  Kind = "bill_amount"
	KindOrderTime   Kind = "order_time"
	KindName        Kind = "name"
	KindEmail       Kind = "email"
	KindBirthday    Kind = "birthday"
	KindAnniversary Kind = "anniversary"
	KindGender      Kind = "gender"
	KindPoints      Kind = "points"
	KindTags        Kind = "tags"

	// KindVerbatim passes the value through untouched. Transaction points
	// columns use it.
	KindVerbatim Kind = "verbatim"
)

// Func is the signature shared by all field normalizers.
type Func func(raw string) string

var registry = map[Kind]Func{
	KindPhone:       Phone,
	KindBillNumber:  Numeric,
	KindBillAmount:  Numeric,
	KindOrderTime:   OrderTime,
	KindName:        Name,
	KindEmail:       Email,
	KindBirthday:    Date,
	KindAnniversary: Date,
	KindGender:      Gender,
	KindPoints:      Points,
	KindTags:        Tags,
	KindVerbatim:    func(raw string) string { return raw },
}

// Apply normalizes raw as the given field kind.
//
// RETURNS:
//   - The canonical value.
//   - An error only when the kind itself is unknown; bad values never error.
func Apply(kind Kind, raw string) (string, error) {
	fn, ok := registry[kind]
	if !ok {
		return "", fmt.Errorf("unknown field kind: %s", kind)
	}
	return fn(raw), nil
}

// MustApply is Apply for kinds known at compile time. It panics on an
// unknown kind.
func MustApply(kind Kind, raw string) string {
	v, err := Apply(kind, raw)
	if err != nil {
		panic(err)
	}
	return v
}
