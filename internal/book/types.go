package book

import "fmt"

type Side int

// See: https://go.dev/ref/spec#Iota
const (
	Bid Side = iota
	Offer
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Offer:
		return "offer"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Order is the caller-facing view of a resting order. The book copies values
// out of it on AddOrder and back into fresh values for snapshots, so callers
// never alias book internals.
//
// NOTE: might want to compare Price with `Float` from `math/big`: more
// precise but slower. The book only compares prices, never does arithmetic
// on them, so float64 is fine here.
type Order struct {
	ID    string  // Caller-assigned id, unique among live orders
	Price float64 // Resting price, immutable for the order's lifetime
	Side  Side    // Order side, immutable for the order's lifetime
	Size  int64   // Resting quantity
}
