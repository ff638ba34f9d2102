package book

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

// Writers work disjoint id ranges, so every failure below is a real defect
// rather than an expected race.

func TestConcurrent_AddRemoveIdentityCount(t *testing.T) {
	const (
		writers   = 8
		perWriter = 500
	)

	b := createTestBook()
	tb, _ := tomb.WithContext(context.Background())

	for w := 0; w < writers; w++ {
		w := w
		tb.Go(func() error {
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := b.AddOrder(Order{
					ID:    id,
					Price: 90.0 + float64(i%11),
					Side:  Bid,
					Size:  10,
				}); err != nil {
					return err
				}
				// Remove every other order straight back out.
				if i%2 == 0 {
					if err := b.RemoveOrder(id); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, tb.Wait())

	// Net live adds: half of each writer's orders. No lost or duplicated
	// index entries.
	want := writers * perWriter / 2
	assert.Equal(t, want, b.Len())

	orders, err := b.OrdersForSide(Bid)
	require.NoError(t, err)
	assert.Len(t, orders, want)

	seen := make(map[string]bool, len(orders))
	for _, order := range orders {
		assert.False(t, seen[order.ID], "order %s appears twice", order.ID)
		seen[order.ID] = true
	}
}

func TestConcurrent_SidesProgressIndependently(t *testing.T) {
	const (
		writers   = 4
		perWriter = 400
	)

	b := createTestBook()
	tb, _ := tomb.WithContext(context.Background())

	for w := 0; w < writers; w++ {
		for _, side := range []Side{Bid, Offer} {
			w, side := w, side
			tb.Go(func() error {
				for i := 0; i < perWriter; i++ {
					id := fmt.Sprintf("%s-w%d-%d", side, w, i)
					if err := b.AddOrder(Order{
						ID:    id,
						Price: 100.0 + float64(i%7),
						Side:  side,
						Size:  5,
					}); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	require.NoError(t, tb.Wait())

	bids, err := b.OrdersForSide(Bid)
	require.NoError(t, err)
	offers, err := b.OrdersForSide(Offer)
	require.NoError(t, err)

	assert.Len(t, bids, writers*perWriter)
	assert.Len(t, offers, writers*perWriter)
	assert.Equal(t, 2*writers*perWriter, b.Len())
}

func TestConcurrent_ModifyDisjointOrders(t *testing.T) {
	const orders = 200

	b := createTestBook()
	for i := 0; i < orders; i++ {
		addTestOrder(t, b, fmt.Sprintf("o%d", i), 96.0, Offer, 1)
	}

	tb, _ := tomb.WithContext(context.Background())
	for i := 0; i < orders; i++ {
		i := i
		tb.Go(func() error {
			return b.ModifyOrderSize(fmt.Sprintf("o%d", i), int64(i)+100)
		})
	}
	require.NoError(t, tb.Wait())

	// Every resize landed, and nobody moved in the queue.
	snapshot, err := b.OrdersForSide(Offer)
	require.NoError(t, err)
	require.Len(t, snapshot, orders)

	var sum int64
	for i, order := range snapshot {
		assert.Equal(t, fmt.Sprintf("o%d", i), order.ID)
		assert.Equal(t, int64(i)+100, order.Size)
		sum += order.Size
	}

	size, err := b.SizeForSideAndLevel(Offer, 1)
	require.NoError(t, err)
	assert.Equal(t, sum, size)
}

// A reader races the writers and checks that every snapshot it observes is
// internally consistent, whatever instant it lands on.
func TestConcurrent_ReaderSeesConsistentSnapshots(t *testing.T) {
	const (
		writers   = 4
		perWriter = 300
	)

	b := createTestBook()
	tb, _ := tomb.WithContext(context.Background())

	done := make(chan struct{})
	var writing sync.WaitGroup
	for w := 0; w < writers; w++ {
		w := w
		writing.Add(1)
		tb.Go(func() error {
			defer writing.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				if err := b.AddOrder(Order{
					ID:    id,
					Price: 90.0 + float64((w*perWriter+i)%13),
					Side:  Bid,
					Size:  int64(i%50) + 1,
				}); err != nil {
					return err
				}
				if i%3 == 0 {
					if err := b.RemoveOrder(id); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	go func() {
		writing.Wait()
		close(done)
	}()

	tb.Go(func() error {
		for {
			select {
			case <-done:
				return nil
			default:
			}

			snapshot, err := b.OrdersForSide(Bid)
			if err != nil {
				return err
			}
			for i := 1; i < len(snapshot); i++ {
				if snapshot[i-1].Price < snapshot[i].Price {
					return fmt.Errorf("bid snapshot out of order: %v before %v",
						snapshot[i-1].Price, snapshot[i].Price)
				}
			}
			for _, order := range snapshot {
				if order.Size <= 0 {
					return fmt.Errorf("order %s resting with size %d", order.ID, order.Size)
				}
			}
		}
	})

	require.NoError(t, tb.Wait())
}
