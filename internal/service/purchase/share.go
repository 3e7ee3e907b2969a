package purchase

import "github.com/shopspring/decimal"

// EqualShare divides a total (in cents) evenly across count payers, rounded
// to the nearest cent. The division rule mirrors the server-side split the
// rest of the platform uses: everyone, creator included, pays the same
// rounded amount.
func EqualShare(totalCents int64, count int) int64 {
	if count <= 0 {
		return 0
	}
	return decimal.NewFromInt(totalCents).
		Div(decimal.NewFromInt(int64(count))).
		Round(0).
		IntPart()
}
