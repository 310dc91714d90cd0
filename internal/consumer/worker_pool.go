package consumer

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// writerPool is a fixed-size goroutine pool with a bounded input queue. It
// overlaps persistence writes so the read loop can keep draining the stream.
type writerPool struct {
	queue   chan redis.XMessage
	process func(ctx context.Context, msg redis.XMessage)
	wg      sync.WaitGroup
}

// newWriterPool creates and starts a pool with n goroutines and queue
// capacity cap.
func newWriterPool(ctx context.Context, n, cap int, fn func(context.Context, redis.XMessage)) *writerPool {
	p := &writerPool{
		queue:   make(chan redis.XMessage, cap),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *writerPool) run(ctx context.Context) {
	for msg := range p.queue {
		p.process(ctx, msg)
	}
}

// Submit enqueues a message without blocking (returns false if full).
func (p *writerPool) Submit(msg redis.XMessage) bool {
	select {
	case p.queue <- msg:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for all writers to finish.
func (p *writerPool) Drain() {
	close(p.queue)
	p.wg.Wait()
}
