package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Position is a 1-based column number. Zero means the slot is unset.
type Position int

// IsSet reports whether the position addresses a column.
func (p Position) IsSet() bool { return p != 0 }

// UnmarshalJSON accepts numbers, numeric strings, "" and null. Browser forms
// post column numbers as strings.
func (p *Position) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid column position %q", s)
		}
		*p = Position(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid column position %s", string(data))
	}
	*p = Position(n)
	return nil
}

// ColumnMapping binds every canonical field to a column position.
type ColumnMapping struct {
	// Transaction slots.
	Mobile         Position `json:"mobileCol" yaml:"mobile_col"`
	BillNumber     Position `json:"billNumberCol" yaml:"bill_number_col"`
	BillAmount     Position `json:"billAmountCol" yaml:"bill_amount_col"`
	OrderTime      Position `json:"orderTimeCol" yaml:"order_time_col"`
	PointsEarned   Position `json:"pointsEarnedCol" yaml:"points_earned_col"`
	PointsRedeemed Position `json:"pointsRedeemedCol" yaml:"points_redeemed_col"`

	// Contact slots.
	Phone       Position `json:"phoneCol" yaml:"phone_col"`
	Name        Position `json:"nameCol" yaml:"name_col"`
	Email       Position `json:"emailCol" yaml:"email_col"`
	Birthday    Position `json:"birthdayCol" yaml:"birthday_col"`
	Anniversary Position `json:"anniversaryCol" yaml:"anniversary_col"`
	Gender      Position `json:"genderCol" yaml:"gender_col"`
	Points      Position `json:"pointsCol" yaml:"points_col"`
	Tags        Position `json:"tagsCol" yaml:"tags_col"`
}

// Slot is a named view of one mapping field.
type Slot struct {
	Name     string
	Position Position
}

// TransactionSlots lists the transaction slots in output order.
func (m ColumnMapping) TransactionSlots() []Slot {
	return []Slot{
		{"mobileCol", m.Mobile},
		{"billNumberCol", m.BillNumber},
		{"billAmountCol", m.BillAmount},
		{"orderTimeCol", m.OrderTime},
		{"pointsEarnedCol", m.PointsEarned},
		{"pointsRedeemedCol", m.PointsRedeemed},
	}
}

// ContactSlots lists the contact slots in output order.
func (m ColumnMapping) ContactSlots() []Slot {
	return []Slot{
		{"phoneCol", m.Phone},
		{"nameCol", m.Name},
		{"emailCol", m.Email},
		{"birthdayCol", m.Birthday},
		{"anniversaryCol", m.Anniversary},
		{"genderCol", m.Gender},
		{"pointsCol", m.Points},
		{"tagsCol", m.Tags},
	}
}

// NeedsInference reports whether contact columns have to be inferred from
// the header. An unset phone slot is enough, since no contact can be emitted
// without it.
func (m ColumnMapping) NeedsInference() bool {
	return !m.Phone.IsSet()
}

// Merge returns m with every set slot of override applied on top.
func (m ColumnMapping) Merge(override ColumnMapping) ColumnMapping {
	pick := func(base, over Position) Position {
		if over.IsSet() {
			return over
		}
		return base
	}
	return ColumnMapping{
		Mobile:         pick(m.Mobile, override.Mobile),
		BillNumber:     pick(m.BillNumber, override.BillNumber),
		BillAmount:     pick(m.BillAmount, override.BillAmount),
		OrderTime:      pick(m.OrderTime, override.OrderTime),
		PointsEarned:   pick(m.PointsEarned, override.PointsEarned),
		PointsRedeemed: pick(m.PointsRedeemed, override.PointsRedeemed),
		Phone:          pick(m.Phone, override.Phone),
		Name:           pick(m.Name, override.Name),
		Email:          pick(m.Email, override.Email),
		Birthday:       pick(m.Birthday, override.Birthday),
		Anniversary:    pick(m.Anniversary, override.Anniversary),
		Gender:         pick(m.Gender, override.Gender),
		Points:         pick(m.Points, override.Points),
		Tags:           pick(m.Tags, override.Tags),
	}
}
