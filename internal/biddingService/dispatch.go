package bidding

import (
	model "bitnow-bidding/internal/models"
	"context"
	"sync"
)

// dispatchJob is the post-commit work of one accepted bid
type dispatchJob struct {
	ctx    context.Context
	cached model.CachedBid
	result model.BidResult
}

// dispatcher runs cache updates and event publishing off the auction lock.
// Jobs are enqueued while the lock is held, so each auction's queue is in
// commit order; one goroutine per auction drains it.
type dispatcher struct {
	deliver func(dispatchJob)

	mu     sync.Mutex
	idle   *sync.Cond
	queues map[string][]dispatchJob // present while a drainer is running
}

func newDispatcher(deliver func(dispatchJob)) *dispatcher {
	d := &dispatcher{
		deliver: deliver,
		queues:  make(map[string][]dispatchJob),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// enqueue never blocks on delivery
func (d *dispatcher) enqueue(auctionID string, job dispatchJob) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, draining := d.queues[auctionID]
	d.queues[auctionID] = append(queue, job)
	if !draining {
		go d.drain(auctionID)
	}
}

func (d *dispatcher) drain(auctionID string) {
	for {
		job, ok := d.next(auctionID)
		if !ok {
			return
		}
		d.deliver(job)
	}
}

// next pops the oldest job, releasing the auction when its queue is empty
func (d *dispatcher) next(auctionID string) (dispatchJob, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := d.queues[auctionID]
	if len(queue) == 0 {
		delete(d.queues, auctionID)
		if len(d.queues) == 0 {
			d.idle.Broadcast()
		}
		return dispatchJob{}, false
	}
	d.queues[auctionID] = queue[1:]
	return queue[0], true
}

// wait blocks until every queued job has been delivered or ctx is done
func (d *dispatcher) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.mu.Lock()
		for len(d.queues) > 0 {
			d.idle.Wait()
		}
		d.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
