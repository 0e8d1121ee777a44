package ledger

// PurchaseTxnType marks every emitted transaction.
const PurchaseTxnType = "purchase"

var (
	// TransactionHeader is the first row of the transaction table.
	TransactionHeader = []string{
		"mobile", "txn_type", "bill_number", "bill_amount", "order_time", "points_earned", "points_redeemed",
	}

	// CombinedContactHeader heads the contact table written next to a ledger.
	CombinedContactHeader = []string{
		"mobile", "name", "email", "birthday", "anniversary", "gender", "points", "tags",
	}

	// ContactHeader heads the table produced by a contacts-only run.
	ContactHeader = []string{
		"phone_number", "name", "email", "birthday", "anniversary", "gender", "points", "tags",
	}
)

// TransactionRecord is one row of the transaction ledger.
type TransactionRecord struct {
	Mobile         string
	TxnType        string
	BillNumber     string
	BillAmount     string
	OrderTime      string
	PointsEarned   string
	PointsRedeemed string
}

// Values returns the record in output column order.
func (r TransactionRecord) Values() []string {
	return []string{r.Mobile, r.TxnType, r.BillNumber, r.BillAmount, r.OrderTime, r.PointsEarned, r.PointsRedeemed}
}

// ContactRecord is one row of the contact list. Phone is its identity.
type ContactRecord struct {
	Phone       string
	Name        string
	Email       string
	Birthday    string
	Anniversary string
	Gender      string
	Points      string
	Tags        string
}

// Values returns the record in output column order.
func (r ContactRecord) Values() []string {
	return []string{r.Phone, r.Name, r.Email, r.Birthday, r.Anniversary, r.Gender, r.Points, r.Tags}
}

// IdentitySet remembers which phones already produced a contact in one run.
// It is not safe for concurrent use and must not be shared between runs.
type IdentitySet struct {
	seen map[string]struct{}
}

func NewIdentitySet() *IdentitySet {
	return &IdentitySet{seen: make(map[string]struct{})}
}

// Add records phone and reports whether it was new.
func (s *IdentitySet) Add(phone string) bool {
	if _, ok := s.seen[phone]; ok {
		return false
	}
	s.seen[phone] = struct{}{}
	return true
}

func (s *IdentitySet) Has(phone string) bool {
	_, ok := s.seen[phone]
	return ok
}

func (s *IdentitySet) Len() int { return len(s.seen) }
