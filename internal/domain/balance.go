package domain

// Balance is the held quantity of one base asset on one platform.
// Unique key is (Platform, Base).
type Balance struct {
	Platform  string
	Base      string
	Quantity  float64
	Available float64
}

// AssetKey identifies one holding across the system.
type AssetKey struct {
	Base     string
	Platform string
}

type DiffKind string

const (
	DiffNewSymbol      DiffKind = "NEW_SYMBOL"
	DiffBalanceChanged DiffKind = "BALANCE_CHANGED"
	DiffZeroedOut      DiffKind = "ZEROED_OUT"
)

// BalanceDifference is a transient classification of how a holding moved
// between two snapshots.
type BalanceDifference struct {
	Base     string
	Platform string
	Kind     DiffKind
}
