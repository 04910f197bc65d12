package bot

import (
	"context"
	"sync"

	"github.com/go-telegram/bot/models"
)

type job struct {
	ctx    context.Context
	update *models.Update
}

// dispatcher runs updates of one principal in arrival order and
// different principals concurrently
type dispatcher struct {
	handle func(ctx context.Context, update *models.Update)

	mu     sync.Mutex
	queues map[int64][]job
	wg     sync.WaitGroup
}

func newDispatcher(handle func(ctx context.Context, update *models.Update)) *dispatcher {
	return &dispatcher{
		handle: handle,
		queues: make(map[int64][]job),
	}
}

// submit enqueues the update; a drain goroutine is started for idle principals
func (d *dispatcher) submit(ctx context.Context, key int64, update *models.Update) {
	d.mu.Lock()
	q, active := d.queues[key]
	d.queues[key] = append(q, job{ctx: ctx, update: update})
	if !active {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if !active {
		go d.drain(key)
	}
}

func (d *dispatcher) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		next := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.handle(next.ctx, next.update)
	}
}

// wait blocks until every queued update has been handled
func (d *dispatcher) wait() {
	d.wg.Wait()
}

// Submit queues an update for processing
func (b *Bot) Submit(ctx context.Context, update *models.Update) {
	b.dispatch.submit(ctx, principalID(update), update)
}

// Wait blocks until queued updates are handled
func (b *Bot) Wait() {
	b.dispatch.wait()
}

func principalID(update *models.Update) int64 {
	switch {
	case update == nil:
		return 0
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.Message != nil:
		return update.Message.Chat.ID
	}
	return 0
}
