package notify

import (
	"context"
	"sync"
	"time"

	"github.com/tgifai/crawlwatch/internal/pkg/logs"
	"github.com/tgifai/crawlwatch/internal/pkg/prometheus"
)

const (
	defaultQueueSize = 128
	subscriberBuffer = 32
	deliveryTimeout  = 15 * time.Second
)

// Bus publishes events without blocking the caller. Subscribers that fall
// behind lose events; notifier delivery runs on a single worker.
type Bus struct {
	registry *Registry
	queue    chan Event

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

func NewBus(registry *Registry, queueSize int) *Bus {
	if registry == nil {
		registry = NewRegistry()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		registry: registry,
		queue:    make(chan Event, queueSize),
		subs:     make(map[int]chan Event),
		done:     make(chan struct{}),
	}
}

func (b *Bus) Registry() *Registry { return b.registry }

// Start runs the notifier delivery loop until Stop.
// Delivery keeps ctx's values but not its cancellation, so events queued
// before Stop still reach notifiers during shutdown.
func (b *Bus) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case ev := <-b.queue:
				b.deliver(ctx, ev)
			case <-b.done:
				// drain what was queued before Stop
				for {
					select {
					case ev := <-b.queue:
						b.deliver(ctx, ev)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop ends delivery and closes all subscriber channels.
func (b *Bus) Stop(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		for id, ch := range b.subs {
			close(ch)
			delete(b.subs, id)
		}
		b.mu.Unlock()
		close(b.done)
	})

	waited := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel of every published event and a cancel func.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			close(c)
			delete(b.subs, id)
		}
	}
}

func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	if b.registry.Len() == 0 {
		return
	}
	select {
	case b.queue <- ev:
	default:
		logs.Warn("[notify] queue full, dropping %s event for run %s", ev.Kind, ev.RunID)
	}
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	for _, n := range b.registry.List() {
		dctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := n.Notify(dctx, ev)
		cancel()
		if err != nil {
			prometheus.NotifyErrors.WithLabelValues(string(n.Type())).Inc()
			logs.Warn("[notify] %s failed to deliver %s: %v", n.ID(), ev.Kind, err)
		}
	}
}
