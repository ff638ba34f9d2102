package book

import (
	"sync"
	"sync/atomic"

	"github.com/tidwall/btree"
)

// holder is the book-internal record for one resting order. The identity
// fields never change after insertion; only the size cell mutates, so a
// resize never relocates the order and its queue position survives.
type holder struct {
	id    string
	price float64
	side  Side
	size  atomic.Int64
}

func (h *holder) snapshot() Order {
	return Order{
		ID:    h.id,
		Price: h.price,
		Side:  h.side,
		Size:  h.size.Load(),
	}
}

// priceLevel groups the holders resting at one exact price, sorted by time
// added as they will be push-back'd.
type priceLevel struct {
	price  float64
	orders []*holder
}

// remove takes h out of the level's queue, closing the gap. Reports whether
// h was present.
func (pl *priceLevel) remove(h *holder) bool {
	for i, other := range pl.orders {
		if other == h {
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			return true
		}
	}
	return false
}

// totalSize sums the resting size of every order at this price.
func (pl *priceLevel) totalSize() int64 {
	var sum int64
	for _, h := range pl.orders {
		sum += h.size.Load()
	}
	return sum
}

type priceLevels = btree.BTreeG[*priceLevel]

// sideQueue holds every price level for one side of the book. The mutex
// guards level creation and removal, the order queue within each level, and
// the size cells of holders resting on this side. Bid and offer traffic
// therefore never contend with each other.
type sideQueue struct {
	side Side

	mu     sync.Mutex
	levels *priceLevels

	// Some book keeping, updated under mu.
	orders uint64 // Track the number of live orders on this side.
	volume int64  // Track the total resting size on this side.
}

func newSideQueue(side Side) *sideQueue {
	// In-order iteration must yield the best price first: greatest-first
	// for bids, least-first for offers.
	less := func(a, b *priceLevel) bool {
		return a.price < b.price
	}
	if side == Bid {
		less = func(a, b *priceLevel) bool {
			return a.price > b.price
		}
	}
	return &sideQueue{
		side:   side,
		levels: btree.NewBTreeG(less),
	}
}

// append adds h at the tail of its price level, creating the level on the
// first order at that price. Callers hold sq.mu.
func (sq *sideQueue) append(h *holder) {
	// Levels comparator only accounts for price, so a bare price is enough
	// for the search.
	level, ok := sq.levels.GetMut(&priceLevel{price: h.price})
	if ok {
		level.orders = append(level.orders, h)
	} else {
		sq.levels.Set(&priceLevel{
			price:  h.price,
			orders: []*holder{h},
		})
	}
	sq.orders++
	sq.volume += h.size.Load()
}

// remove takes h out of its price level and drops the level once its last
// order is gone, so depth queries never rank an empty level. Callers hold
// sq.mu. Reports whether h was present.
func (sq *sideQueue) remove(h *holder) bool {
	level, ok := sq.levels.GetMut(&priceLevel{price: h.price})
	if !ok || !level.remove(h) {
		return false
	}
	if len(level.orders) == 0 {
		sq.levels.Delete(level)
	}
	sq.orders--
	sq.volume -= h.size.Load()
	return true
}

// levelAt returns the populated level with 1-based rank n, best price first.
// Callers hold sq.mu.
func (sq *sideQueue) levelAt(n int) (*priceLevel, bool) {
	if n < 1 || n > sq.levels.Len() {
		return nil, false
	}
	var found *priceLevel
	sq.levels.Scan(func(level *priceLevel) bool {
		n--
		if n == 0 {
			found = level
			return false
		}
		return true
	})
	return found, found != nil
}
