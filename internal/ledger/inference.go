package ledger

import (
	"strings"

	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// inferenceRule binds header keywords to a contact slot. Rules are checked in
// order for every column; a column feeds at most one slot.
type inferenceRule struct {
	keywords []string
	slot     func(m *types.ColumnMapping) *types.Position
}

var inferenceRules = []inferenceRule{
	{[]string{"phone", "mobile", "contact"}, func(m *types.ColumnMapping) *types.Position { return &m.Phone }},
	{[]string{"name", "customer"}, func(m *types.ColumnMapping) *types.Position { return &m.Name }},
	{[]string{"email", "mail"}, func(m *types.ColumnMapping) *types.Position { return &m.Email }},
	{[]string{"birth", "dob"}, func(m *types.ColumnMapping) *types.Position { return &m.Birthday }},
	{[]string{"anniversary", "anniv"}, func(m *types.ColumnMapping) *types.Position { return &m.Anniversary }},
	{[]string{"gender", "sex"}, func(m *types.ColumnMapping) *types.Position { return &m.Gender }},
	{[]string{"point", "score"}, func(m *types.ColumnMapping) *types.Position { return &m.Points }},
	{[]string{"tag", "category", "group"}, func(m *types.ColumnMapping) *types.Position { return &m.Tags }},
}

// InferColumns fills unset contact slots from header labels and returns the
// updated mapping with the number of slots it assigned. Each column feeds the
// first unset slot whose keywords its label contains; slots that are already
// set are never overwritten.
func InferColumns(labels []string, mapping types.ColumnMapping) (types.ColumnMapping, int) {
	assigned := 0
	for i, label := range labels {
		header := strings.ToLower(label)
		for _, rule := range inferenceRules {
			slot := rule.slot(&mapping)
			if slot.IsSet() || !containsAny(header, rule.keywords) {
				continue
			}
			*slot = types.Position(i + 1)
			assigned++
			break
		}
	}
	return mapping, assigned
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
