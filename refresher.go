package qcgraph

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Refresher runs loads in the background. Starting a load cancels the one in flight,
// so only the newest load can be applied.
type Refresher[T any] struct {
	ctx        context.Context
	mutex      sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewRefresher[T any](ctx context.Context) *Refresher[T] {
	return &Refresher[T]{ctx: ctx}
}

// Refresh starts load and returns its generation. apply receives the result unless a
// newer refresh started in the meantime. apply must confirm IsCurrent under the same
// lock that guards the calls to Refresh.
func (r *Refresher[T]) Refresh(load func(ctx context.Context) T, apply func(generation uint64, result T)) uint64 {
	r.mutex.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	generation := r.generation
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel
	r.wg.Add(1)
	r.mutex.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		result := load(ctx)
		if ctx.Err() != nil || !r.IsCurrent(generation) {
			log.Debug().Uint64("generation", generation).Msg(MsgRefreshSuperseded)
			return
		}
		apply(generation, result)
	}()

	return generation
}

func (r *Refresher[T]) IsCurrent(generation uint64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return generation == r.generation
}

func (r *Refresher[T]) Generation() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.generation
}

// Wait blocks until every started load has finished.
func (r *Refresher[T]) Wait() {
	r.wg.Wait()
}

// Stop cancels the load in flight.
func (r *Refresher[T]) Stop() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}
