package router

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"channelhelper/backend/internal/models"
)

// StateResolver looks up the conversation state of the user behind an event.
// It is called at most once per event; every predicate sees the same snapshot.
type StateResolver func(ctx context.Context, user *tgbotapi.User) models.State

// Dispatcher walks the registry for every incoming update. Within a group all
// matching handlers run, in registration order. A panicking handler is logged
// and does not stop the remaining ones.
type Dispatcher struct {
	registry *Registry
	resolve  StateResolver
	logger   *zap.Logger
	pool     *pool
}

// NewDispatcher wires a registry to a state resolver and starts workers
// background handlers run on.
func NewDispatcher(reg *Registry, resolve StateResolver, logger *zap.Logger, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		registry: reg,
		resolve:  resolve,
		logger:   logger,
		pool:     newPool(workers),
	}
}

// Dispatch routes one update through the handler table. Kinds of update the
// table has no notion of are dropped silently.
func (d *Dispatcher) Dispatch(ctx context.Context, update *tgbotapi.Update) {
	d.dispatch(ctx, update, false)
}

func (d *Dispatcher) dispatch(ctx context.Context, update *tgbotapi.Update, onWorker bool) {
	ev := NewEvent(update)
	if ev == nil {
		return
	}
	if ev.User != nil && d.resolve != nil {
		ev.State = d.resolve(ctx, ev.User)
	}

	matchedLower := false
	for _, g := range d.registry.Groups() {
		if g.CatchAll && matchedLower {
			continue
		}
		groupMatched := false
		for i := range g.handlers {
			h := &g.handlers[i]
			if !h.Predicate.Matches(ev) {
				continue
			}
			groupMatched = true
			// A worker submitting to its own full pool would deadlock, so
			// dispatches already on a worker run everything inline.
			if h.Background && !onWorker {
				d.pool.submit(func() { d.run(ctx, h, ev) })
			} else {
				d.run(ctx, h, ev)
			}
		}
		if groupMatched {
			matchedLower = true
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, h *Handler, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				zap.String("handler", h.Name),
				zap.String("event_id", ev.ID),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	h.Func(ctx, ev)
}

// DispatchBackground queues the whole dispatch of an update onto the worker
// pool. Webhook ingestion goes through here so a flood of updates is
// throttled by the pool instead of spawning a goroutine per request.
func (d *Dispatcher) DispatchBackground(ctx context.Context, update *tgbotapi.Update) {
	d.pool.submit(func() { d.dispatch(ctx, update, true) })
}

// Close waits for in-flight background handlers to finish.
func (d *Dispatcher) Close() {
	d.pool.stop()
}

// pool is a fixed-size worker pool. Submitting blocks when all workers are
// busy and the queue is full, which throttles ingestion instead of growing
// goroutines without bound. Jobs submitted after stop are dropped.
type pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func newPool(size int) *pool {
	p := &pool{jobs: make(chan func(), size*2)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

func (p *pool) submit(job func()) {
	// The read lock covers the send so stop cannot close the channel under a
	// blocked submitter.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return
	}
	p.jobs <- job
}

func (p *pool) stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
