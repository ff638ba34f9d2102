package book

// RemovePolicy decides what RemoveOrder does when the book holds no live
// order for the given id.
type RemovePolicy int

const (
	// RemoveTolerant treats an unknown id as an order already removed by a
	// concurrent caller: logged at warn level, no error. Cancel/cancel
	// races stay quiet.
	RemoveTolerant RemovePolicy = iota
	// RemoveStrict fails unknown ids with ErrOrderNotFound.
	RemoveStrict
)

// ModifyPolicy decides what ModifyOrderSize does with a zero or negative
// new size.
type ModifyPolicy int

const (
	// ModifyCancels removes the order outright when the new size is not
	// positive. Nothing rests in the book with a non-positive size.
	ModifyCancels ModifyPolicy = iota
	// ModifyRejects fails non-positive sizes with ErrInvalidOrder and
	// leaves the order resting untouched.
	ModifyRejects
)

type Config struct {
	RemovePolicy RemovePolicy
	ModifyPolicy ModifyPolicy
}

func DefaultConfig() Config {
	return Config{
		RemovePolicy: RemoveTolerant,
		ModifyPolicy: ModifyCancels,
	}
}
