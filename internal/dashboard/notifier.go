package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meridian-gov/meridian/internal/events"
)

// Recorder receives notifier telemetry. Satisfied by observability.Metrics.
type Recorder interface {
	SubscriberPanicked(component string)
	RefreshObserved(result string, elapsed time.Duration)
}

// MetricSubscription identifies one callback registration for a metric.
type MetricSubscription struct {
	id       uint64
	metricID string
}

type metricSub struct {
	id uint64
	fn Callback
}

const tickTimeout = 10 * time.Second

// Notifier recomputes dashboard metrics on a fixed period and fans each
// value out to that metric's subscribers. Timer ticks and explicit
// RefreshNow calls funnel into one recomputation path. A manual refresh may
// race with a concurrent tick; both perform the full recomputation, which is
// idempotent and last-write-wins on the displayed value.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]metricSub
	closed bool

	source   Source
	bus      *events.Bus
	logger   *slog.Logger
	recorder Recorder

	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifier starts the background timer immediately. The timer fires
// regardless of subscription state; ticks are no-ops while no metric has
// subscribers. The bus and recorder may be nil.
func NewNotifier(logger *slog.Logger, source Source, bus *events.Bus, recorder Recorder, interval time.Duration) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	n := &Notifier{
		subs:     make(map[string][]metricSub),
		source:   source,
		bus:      bus,
		logger:   logger,
		recorder: recorder,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
	}
	go n.loop()
	return n
}

// Subscribe registers cb under metricID. A blank id or nil callback is a
// silent no-op returning a nil handle, as is subscribing after Close.
func (n *Notifier) Subscribe(metricID string, cb Callback) *MetricSubscription {
	if n == nil || metricID == "" || cb == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.nextID++
	n.subs[metricID] = append(n.subs[metricID], metricSub{id: n.nextID, fn: cb})
	return &MetricSubscription{id: n.nextID, metricID: metricID}
}

// Unsubscribe removes the registration behind sub. When a metric's callback
// list becomes empty the metric entry is dropped entirely, distinguishing
// "no subscribers" from "zero matching data".
func (n *Notifier) Unsubscribe(sub *MetricSubscription) {
	if n == nil || sub == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	list := n.subs[sub.metricID]
	for i := range list {
		if list[i].id == sub.id {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(n.subs, sub.metricID)
			} else {
				n.subs[sub.metricID] = list
			}
			return
		}
	}
}

// SubscribedMetrics returns the sorted ids of metrics with live subscribers.
func (n *Notifier) SubscribedMetrics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.subs))
	for id := range n.subs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RefreshNow recomputes all metrics and delivers them immediately. A failed
// computation is logged and surfaced as a DashboardError event, never as an
// error to the caller.
func (n *Notifier) RefreshNow(ctx context.Context) {
	if n == nil || n.isClosed() {
		return
	}
	n.refresh(ctx)
}

// Close stops the timer and clears all subscriptions. Idempotent.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.ticker.Stop()
		close(n.done)
		n.mu.Lock()
		n.closed = true
		n.subs = make(map[string][]metricSub)
		n.mu.Unlock()
	})
}

func (n *Notifier) loop() {
	for {
		select {
		case <-n.done:
			return
		case <-n.ticker.C:
			n.tick()
		}
	}
}

func (n *Notifier) tick() {
	if n.isClosed() || n.idle() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()
	n.RefreshNow(ctx)
}

func (n *Notifier) refresh(ctx context.Context) {
	start := time.Now()
	values, err := n.source.Snapshot(ctx)
	if err != nil {
		n.logger.Error("dashboard refresh failed", slog.Any("error", err))
		if n.recorder != nil {
			n.recorder.RefreshObserved("error", time.Since(start))
		}
		events.Publish(n.bus, events.DashboardError{Err: err})
		return
	}

	n.mu.Lock()
	fanout := make(map[string][]metricSub, len(n.subs))
	for metricID, list := range n.subs {
		fanout[metricID] = append([]metricSub(nil), list...)
	}
	n.mu.Unlock()

	ordered := make([]string, 0, len(fanout))
	for metricID := range fanout {
		ordered = append(ordered, metricID)
	}
	sort.Strings(ordered)

	for _, metricID := range ordered {
		value, ok := values[metricID]
		if !ok {
			// Metric has subscribers but no data in this snapshot.
			continue
		}
		events.Publish(n.bus, events.DashboardUpdated{MetricID: metricID, Data: value})
		for _, sub := range fanout[metricID] {
			n.deliver(metricID, sub.fn, value)
		}
	}
	if n.recorder != nil {
		n.recorder.RefreshObserved("ok", time.Since(start))
	}
}

func (n *Notifier) deliver(metricID string, fn Callback, value MetricValue) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("dashboard subscriber panicked",
				slog.String("metric", metricID),
				slog.Any("panic", r))
			if n.recorder != nil {
				n.recorder.SubscriberPanicked("dashboard")
			}
		}
	}()
	fn(value)
}

func (n *Notifier) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Notifier) idle() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs) == 0
}
