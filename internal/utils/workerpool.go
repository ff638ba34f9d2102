package utils

import (
	"errors"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

var ErrImproperConversion = errors.New("improper type conversion")

type WorkerFunc = func(t *tomb.Tomb, task any) error

// WorkerPool fans queued tasks out to a fixed set of goroutines tied to a
// tomb, so pool shutdown rides on the tomb's lifecycle.
type WorkerPool struct {
	n     int      // number of workers
	tasks chan any // task pool
}

func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		n:     size,
		tasks: make(chan any, taskChanSize),
	}
}

// Setup launches the pool of workers on t. Each worker runs work for every
// task it pulls off the task pool.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunc) {
	for id := 0; id < pool.n; id++ {
		id := id
		t.Go(func() error {
			return pool.worker(t, id, work)
		})
	}
}

// AddTask queues a task for the next free worker. Blocks when the task pool
// is full.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Close lets the workers drain queued tasks and exit.
func (pool *WorkerPool) Close() {
	close(pool.tasks)
}

// Workers wait on tasks in the task pool and action them.
// Note, any error returned from work is fatal for the whole pool.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int, work WorkerFunc) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task, ok := <-pool.tasks:
			if !ok {
				return nil
			}
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
