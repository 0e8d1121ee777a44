package ledger

import (
	"github.com/ginjaninja78/loyalty-normalizer/internal/normalize"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
)

// ProjectTransaction reads the six business fields of row. Phone, bill
// number, bill amount and order time are normalized; points are kept as
// extracted. ok is false when every field ends up empty.
func ProjectTransaction(row types.Row, m types.ColumnMapping) (rec TransactionRecord, ok bool) {
	rec = TransactionRecord{
		Mobile:         normalize.Phone(Get(row, m.Mobile)),
		BillNumber:     normalize.Numeric(Get(row, m.BillNumber)),
		BillAmount:     normalize.Numeric(Get(row, m.BillAmount)),
		OrderTime:      normalize.OrderTime(Get(row, m.OrderTime)),
		PointsEarned:   Get(row, m.PointsEarned),
		PointsRedeemed: Get(row, m.PointsRedeemed),
	}

	if rec.Mobile == "" && rec.BillNumber == "" && rec.BillAmount == "" &&
		rec.OrderTime == "" && rec.PointsEarned == "" && rec.PointsRedeemed == "" {
		return TransactionRecord{}, false
	}
	rec.TxnType = PurchaseTxnType
	return rec, true
}

// ProjectCombinedContact derives the minimal contact that accompanies a
// transaction: the phone and the points earned (or "0"). ok is false when the
// phone is empty or was already emitted; otherwise the phone is added to seen.
func ProjectCombinedContact(txn TransactionRecord, seen *IdentitySet) (rec ContactRecord, ok bool) {
	if txn.Mobile == "" || !seen.Add(txn.Mobile) {
		return ContactRecord{}, false
	}

	points := txn.PointsEarned
	if points == "" {
		points = "0"
	}
	return ContactRecord{Phone: txn.Mobile, Points: points}, true
}

// ProjectContact reads and normalizes all eight contact fields of row. The
// phone is checked against seen before anything else is normalized.
func ProjectContact(row types.Row, m types.ColumnMapping, seen *IdentitySet) (rec ContactRecord, ok bool) {
	phone := normalize.Phone(Get(row, m.Phone))
	if phone == "" || seen.Has(phone) {
		return ContactRecord{}, false
	}

	rec = ContactRecord{
		Phone:       phone,
		Name:        normalize.Name(Get(row, m.Name)),
		Email:       normalize.Email(Get(row, m.Email)),
		Birthday:    normalize.Date(Get(row, m.Birthday)),
		Anniversary: normalize.Date(Get(row, m.Anniversary)),
		Gender:      normalize.Gender(Get(row, m.Gender)),
		Points:      normalize.Points(Get(row, m.Points)),
		Tags:        normalize.Tags(Get(row, m.Tags)),
	}
	seen.Add(phone)
	return rec, true
}
