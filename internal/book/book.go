// Package book keeps the resting limit orders of a single instrument in
// price-time priority and answers depth-of-book queries. Matching, order
// admission and persistence are the concern of callers; the book only holds
// orders and keeps both sides consistent under concurrent mutation.
package book

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidSide   = errors.New("invalid side")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrOrderNotFound = errors.New("order not found")
	ErrLevelNotFound = errors.New("level not found")
)

// Book is a depth-of-book limit order book for one instrument. Construct
// one per instrument with New and pass it around explicitly; every method
// is safe for concurrent use.
//
// Each side owns its lock, so bid-side operations never block offer-side
// ones. The identity index carries its own lock and is only ever written
// while the owning side's lock is held, which is what keeps "order in the
// index" and "order in its price level" true at the same instants.
type Book struct {
	cfg Config

	bids   *sideQueue
	offers *sideQueue

	// Identity index: id to holder, so removal and modification need
	// neither price nor side from the caller.
	indexMu sync.RWMutex
	index   map[string]*holder
}

func New(cfg Config) *Book {
	return &Book{
		cfg:    cfg,
		bids:   newSideQueue(Bid),
		offers: newSideQueue(Offer),
		index:  make(map[string]*holder),
	}
}

// queueForSide maps a side symbol to its queue. Every public operation
// resolves its side here, so an unrecognized symbol fails identically
// everywhere.
func (b *Book) queueForSide(side Side) (*sideQueue, error) {
	switch side {
	case Bid:
		return b.bids, nil
	case Offer:
		return b.offers, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidSide, side)
}

// AddOrder places a new resting order at the tail of its price level,
// creating the level on first use. Fails with ErrInvalidSide for an
// unrecognized side and ErrInvalidOrder for a non-positive price or size.
// Id uniqueness among live orders is the caller's contract; the book does
// not police it.
func (b *Book) AddOrder(order Order) error {
	sq, err := b.queueForSide(order.Side)
	if err != nil {
		return err
	}
	if order.Price <= 0 || order.Size <= 0 {
		return fmt.Errorf("%w: price %v size %d", ErrInvalidOrder, order.Price, order.Size)
	}

	log.Debug().
		Str("id", order.ID).
		Stringer("side", order.Side).
		Float64("price", order.Price).
		Int64("size", order.Size).
		Msg("add order")

	h := &holder{
		id:    order.ID,
		price: order.Price,
		side:  order.Side,
	}
	h.size.Store(order.Size)

	sq.mu.Lock()
	defer sq.mu.Unlock()

	sq.append(h)
	// Publish before the side lock drops so no reader sees the order in a
	// level but missing from the index.
	b.indexPut(h)
	return nil
}

// RemoveOrder takes the order with the given id out of the book: out of its
// price level (dropping the level if it empties) and out of the identity
// index, as one atomic step under the owning side's lock.
//
// An unknown id follows the configured RemovePolicy: tolerated as a benign
// race against a concurrent remover by default, or ErrOrderNotFound under
// RemoveStrict.
func (b *Book) RemoveOrder(id string) error {
	log.Debug().Str("id", id).Msg("remove order")

	h, ok := b.indexGet(id)
	if !ok {
		return b.unknownRemove(id)
	}

	sq, err := b.queueForSide(h.side)
	if err != nil {
		return err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	// Re-check under the side lock; a concurrent remover may have won the
	// race since the index lookup. Compare the holder itself, not just
	// presence, in case the id was removed and re-added in the gap.
	if cur, ok := b.indexGet(id); !ok || cur != h {
		return b.unknownRemove(id)
	}

	sq.remove(h)
	b.indexDelete(id)
	return nil
}

func (b *Book) unknownRemove(id string) error {
	if b.cfg.RemovePolicy == RemoveStrict {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	log.Warn().Str("id", id).Msg("remove for unknown order id")
	return nil
}

// ModifyOrderSize replaces the resting size of the order with the given id.
// The size cell is rewritten where the order rests, never by removing and
// re-adding it, so the order keeps its place among same-priced orders and
// there is no window for a concurrent remove to race against.
//
// Fails with ErrOrderNotFound when no live order carries the id, including
// losing the race to a concurrent removal. A zero or negative size follows
// the configured ModifyPolicy: a full cancellation by default, or
// ErrInvalidOrder under ModifyRejects.
func (b *Book) ModifyOrderSize(id string, size int64) error {
	log.Debug().Str("id", id).Int64("size", size).Msg("modify order size")

	h, ok := b.indexGet(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if size <= 0 && b.cfg.ModifyPolicy == ModifyRejects {
		return fmt.Errorf("%w: size %d", ErrInvalidOrder, size)
	}

	// The holder came out of the index, so its side is always resolvable.
	sq, err := b.queueForSide(h.side)
	if err != nil {
		return err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	// Re-check under the side lock; the order may have been removed just
	// now by another thread. Compare the holder itself, not just presence,
	// in case the id was removed and re-added in the gap.
	if cur, ok := b.indexGet(id); !ok || cur != h {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}

	if size <= 0 {
		log.Debug().Str("id", id).Msg("non-positive size cancels order")
		sq.remove(h)
		b.indexDelete(id)
		return nil
	}

	sq.volume += size - h.size.Load()
	h.size.Store(size)
	return nil
}

// PriceForSideAndLevel returns the price at the 1-based depth level, where
// level 1 is the best price on the side: highest bid, lowest offer. Fails
// with ErrLevelNotFound past the populated depth.
func (b *Book) PriceForSideAndLevel(side Side, level int) (float64, error) {
	sq, err := b.queueForSide(side)
	if err != nil {
		return 0, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	pl, ok := sq.levelAt(level)
	if !ok {
		return 0, fmt.Errorf("%w: %s level %d", ErrLevelNotFound, side, level)
	}
	return pl.price, nil
}

// SizeForSideAndLevel returns the total resting size at the 1-based depth
// level: the sum over every order at that level's price. The level resolves
// exactly as in PriceForSideAndLevel and fails identically.
func (b *Book) SizeForSideAndLevel(side Side, level int) (int64, error) {
	sq, err := b.queueForSide(side)
	if err != nil {
		return 0, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	pl, ok := sq.levelAt(level)
	if !ok {
		return 0, fmt.Errorf("%w: %s level %d", ErrLevelNotFound, side, level)
	}
	return pl.totalSize(), nil
}

// OrdersForSide returns the side's full depth of book as order snapshots:
// best price first and, within a price, oldest order first. The snapshot is
// consistent at one instant; mutations racing with the call may or may not
// be reflected.
func (b *Book) OrdersForSide(side Side) ([]Order, error) {
	sq, err := b.queueForSide(side)
	if err != nil {
		return nil, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	orders := make([]Order, 0, sq.orders)
	sq.levels.Scan(func(level *priceLevel) bool {
		for _, h := range level.orders {
			orders = append(orders, h.snapshot())
		}
		return true
	})
	return orders, nil
}

// Depth returns the number of populated price levels on a side.
func (b *Book) Depth(side Side) (int, error) {
	sq, err := b.queueForSide(side)
	if err != nil {
		return 0, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.levels.Len(), nil
}

// Volume returns the total resting size across every level of a side.
func (b *Book) Volume(side Side) (int64, error) {
	sq, err := b.queueForSide(side)
	if err != nil {
		return 0, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.volume, nil
}

// Len returns the number of live orders in the book across both sides.
func (b *Book) Len() int {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	return len(b.index)
}

// indexPut is an atomic map add.
func (b *Book) indexPut(h *holder) {
	b.indexMu.Lock()
	defer b.indexMu.Unlock()
	b.index[h.id] = h
}

// indexGet is an atomic map lookup.
func (b *Book) indexGet(id string) (*holder, bool) {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	h, ok := b.index[id]
	return h, ok
}

// indexDelete is an atomic map remove.
func (b *Book) indexDelete(id string) {
	b.indexMu.Lock()
	defer b.indexMu.Unlock()
	delete(b.index, id)
}
