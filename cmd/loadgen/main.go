package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"lob/internal/book"
	"lob/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// action is one book operation queued onto the worker pool.
type action func() error

func main() {
	totalOrders := flag.Int("orders", 100_000, "number of orders to submit")
	workers := flag.Int("workers", 8, "number of concurrent submitters")
	priceLevels := flag.Int("price-levels", 50, "unique prices either side of the mid")
	basePrice := flag.Float64("base-price", 100.0, "mid price used for randomization")
	tick := flag.Float64("tick", 0.5, "price increment between levels")
	cancelRatio := flag.Int("cancel-ratio", 4, "1 in N submissions cancels an earlier order")
	modifyRatio := flag.Int("modify-ratio", 8, "1 in N submissions resizes an earlier order")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for the deterministic random stream")
	debug := flag.Bool("debug", false, "enable per-operation debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rng := rand.New(rand.NewSource(*seed))
	b := book.New(book.DefaultConfig())

	// Failed operations are expected here: cancels and resizes race against
	// each other by design, so we count rather than abort.
	var failed atomic.Uint64

	t, _ := tomb.WithContext(context.Background())
	pool := utils.NewWorkerPool(*workers)
	pool.Setup(t, func(t *tomb.Tomb, task any) error {
		act, ok := task.(action)
		if !ok {
			return utils.ErrImproperConversion
		}
		if err := act(); err != nil {
			failed.Add(1)
		}
		return nil
	})

	log.Info().
		Int("orders", *totalOrders).
		Int("workers", *workers).
		Int64("seed", *seed).
		Msg("load generator starting")

	ids := make([]string, 0, *totalOrders)
	start := time.Now()
	for i := 0; i < *totalOrders; i++ {
		order := nextRandomOrder(rng, *basePrice, *tick, *priceLevels)
		ids = append(ids, order.ID)
		pool.AddTask(action(func() error {
			return b.AddOrder(order)
		}))

		if *cancelRatio > 0 && i%*cancelRatio == 0 {
			target := ids[rng.Intn(len(ids))]
			pool.AddTask(action(func() error {
				return b.RemoveOrder(target)
			}))
		}
		if *modifyRatio > 0 && i%*modifyRatio == 0 {
			target := ids[rng.Intn(len(ids))]
			size := rng.Int63n(500) // zero exercises the implicit cancel
			pool.AddTask(action(func() error {
				return b.ModifyOrderSize(target, size)
			}))
		}
	}

	pool.Close()
	if err := t.Wait(); err != nil {
		log.Fatal().Err(err).Msg("worker pool failed")
	}
	elapsed := time.Since(start)

	report(b, book.Bid)
	report(b, book.Offer)
	log.Info().
		Int("live_orders", b.Len()).
		Uint64("failed_ops", failed.Load()).
		Dur("elapsed", elapsed).
		Float64("orders_per_sec", float64(*totalOrders)/elapsed.Seconds()).
		Msg("load complete")
}

func nextRandomOrder(rng *rand.Rand, mid, tick float64, width int) book.Order {
	side := book.Side(rng.Intn(2))
	offset := float64(rng.Intn(width)+1) * tick
	price := mid + offset
	if side == book.Bid {
		price = mid - offset
	}
	return book.Order{
		ID:    uuid.NewString(),
		Price: price,
		Side:  side,
		Size:  rng.Int63n(500) + 1,
	}
}

func report(b *book.Book, side book.Side) {
	depth, err := b.Depth(side)
	if err != nil {
		log.Error().Err(err).Msg("depth query failed")
		return
	}
	volume, _ := b.Volume(side)
	ev := log.Info().
		Stringer("side", side).
		Int("levels", depth).
		Int64("volume", volume)
	if best, err := b.PriceForSideAndLevel(side, 1); err == nil {
		ev = ev.Float64("best_price", best)
	}
	ev.Msg("side summary")
}
