package book

import (
	"math/rand"
	"strconv"
	"testing"
)

func BenchmarkMixedFlow(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	bk := New(DefaultConfig())

	orders := make([]Order, b.N)
	for i := 0; i < b.N; i++ {
		orders[i] = randomBenchmarkOrder(rng, i)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := bk.AddOrder(orders[i]); err != nil {
			b.Fatalf("add failed: %v", err)
		}
		switch {
		case i%4 == 0:
			// Cancel a random earlier order; misses are tolerated.
			_ = bk.RemoveOrder("bench-" + strconv.Itoa(rng.Intn(i+1)))
		case i%7 == 0:
			_ = bk.ModifyOrderSize(orders[rng.Intn(i+1)].ID, rng.Int63n(500)+1)
		}
	}
}

// Both side locks in play at once: bid and offer traffic should scale
// independently.
func BenchmarkParallelAdd(b *testing.B) {
	bk := New(DefaultConfig())

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		i := 0
		for pb.Next() {
			order := randomBenchmarkOrder(rng, i)
			order.ID = order.ID + "-" + strconv.Itoa(rng.Int())
			if err := bk.AddOrder(order); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

func randomBenchmarkOrder(rng *rand.Rand, idx int) Order {
	side := Side(rng.Intn(2))
	base := 100.0
	offset := float64(rng.Intn(100)+1) * 0.25
	price := base + offset
	if side == Bid {
		price = base - offset
	}
	return Order{
		ID:    "bench-" + strconv.Itoa(idx),
		Price: price,
		Side:  side,
		Size:  rng.Int63n(500) + 1,
	}
}
