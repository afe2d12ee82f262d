package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/logger"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

// sendTimeout bounds a single delivery attempt made by the worker
const sendTimeout = 30 * time.Second

// Dispatcher queues notifications and delivers them on a background worker.
// Notify never blocks: when the queue is full the notification is dropped
// and ErrQueueFull is returned. Failed deliveries are logged, not retried.
type Dispatcher struct {
	next  Notifier
	log   logger.Logger
	queue chan Notification

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(next Notifier, size int, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		next:  next,
		log:   log,
		queue: make(chan Notification, size),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Notify(_ context.Context, n Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.next.Notify(ctx, n); err != nil {
			d.log.Errorf("Delivery of %s notification %s to %s failed: %v", n.Kind, n.ID, n.Recipient, err)
		} else {
			d.log.Debugf("Delivered %s notification %s to %s", n.Kind, n.ID, n.Recipient)
		}
		cancel()
	}
}

// Close stops accepting notifications and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
