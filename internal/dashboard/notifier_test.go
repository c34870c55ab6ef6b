package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-gov/meridian/internal/events"
)

type stubSource struct {
	mu     sync.Mutex
	values map[string]MetricValue
	err    error
	calls  int
}

func (s *stubSource) Snapshot(ctx context.Context) (map[string]MetricValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]MetricValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *stubSource) snapshotCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fixtureValues() map[string]MetricValue {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return map[string]MetricValue{
		MetricTotalBudget: {MetricID: MetricTotalBudget, Value: 1500, Display: "$1,500.00", ComputedAt: at},
		MetricSpentAmount: {MetricID: MetricSpentAmount, Value: 300, Display: "$300.00", ComputedAt: at},
	}
}

// long interval keeps the background timer out of the way in tests that
// drive refreshes manually.
func newManualNotifier(source Source, bus *events.Bus) *Notifier {
	return NewNotifier(nil, source, bus, nil, time.Hour)
}

func TestRefreshNowDeliversSubscribedMetricOnce(t *testing.T) {
	bus := events.NewBus(nil, nil)
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, bus)
	defer n.Close()

	var updates []events.DashboardUpdated
	events.Subscribe(bus, func(e events.DashboardUpdated) { updates = append(updates, e) })

	var received []MetricValue
	n.Subscribe(MetricTotalBudget, func(v MetricValue) { received = append(received, v) })

	n.RefreshNow(context.Background())

	require.Len(t, updates, 1)
	require.Equal(t, MetricTotalBudget, updates[0].MetricID)
	require.NotNil(t, updates[0].Data)

	require.Len(t, received, 1)
	require.Equal(t, 1500.0, received[0].Value)
}

func TestBlankMetricAndNilCallbackAreNoOps(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, nil)
	defer n.Close()

	require.Nil(t, n.Subscribe("", func(v MetricValue) {}))
	require.Nil(t, n.Subscribe(MetricTotalBudget, nil))
	require.Empty(t, n.SubscribedMetrics())
}

func TestUnsubscribingLastCallbackDropsMetric(t *testing.T) {
	bus := events.NewBus(nil, nil)
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, bus)
	defer n.Close()

	updateCount := 0
	events.Subscribe(bus, func(e events.DashboardUpdated) { updateCount++ })

	sub := n.Subscribe(MetricTotalBudget, func(v MetricValue) {})
	require.Equal(t, []string{MetricTotalBudget}, n.SubscribedMetrics())

	n.Unsubscribe(sub)
	require.Empty(t, n.SubscribedMetrics())

	n.RefreshNow(context.Background())
	require.Zero(t, updateCount, "no subscribers, no events")
}

func TestAbsentMetricIsSilentlySkipped(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, nil)
	defer n.Close()

	calls := 0
	n.Subscribe("NoSuchMetric", func(v MetricValue) { calls++ })

	n.RefreshNow(context.Background())
	require.Zero(t, calls)
}

func TestPanickingCallbackDoesNotBlockOtherMetrics(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, nil)
	defer n.Close()

	var delivered []string
	n.Subscribe(MetricSpentAmount, func(v MetricValue) { panic("widget gone") })
	n.Subscribe(MetricTotalBudget, func(v MetricValue) { delivered = append(delivered, v.MetricID) })

	require.NotPanics(t, func() {
		n.RefreshNow(context.Background())
	})
	require.Equal(t, []string{MetricTotalBudget}, delivered)
}

func TestSnapshotFailureRaisesErrorEventAndRecovers(t *testing.T) {
	bus := events.NewBus(nil, nil)
	source := &stubSource{err: errors.New("database gone")}
	n := newManualNotifier(source, bus)
	defer n.Close()

	var failures []events.DashboardError
	events.Subscribe(bus, func(e events.DashboardError) { failures = append(failures, e) })

	received := 0
	n.Subscribe(MetricTotalBudget, func(v MetricValue) { received++ })

	n.RefreshNow(context.Background())
	require.Len(t, failures, 1)
	require.EqualError(t, failures[0].Err, "database gone")
	require.Zero(t, received)

	// The service keeps working once the source recovers.
	source.mu.Lock()
	source.err = nil
	source.values = fixtureValues()
	source.mu.Unlock()

	n.RefreshNow(context.Background())
	require.Equal(t, 1, received)
}

func TestTimerTickDeliversWhileActive(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := NewNotifier(nil, source, nil, nil, 5*time.Millisecond)
	defer n.Close()

	got := make(chan MetricValue, 1)
	n.Subscribe(MetricTotalBudget, func(v MetricValue) {
		select {
		case got <- v:
		default:
		}
	})

	select {
	case v := <-got:
		require.Equal(t, MetricTotalBudget, v.MetricID)
	case <-time.After(2 * time.Second):
		t.Fatal("timer tick never delivered")
	}
}

func TestIdleTicksDoNotComputeSnapshots(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := NewNotifier(nil, source, nil, nil, 5*time.Millisecond)
	defer n.Close()

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, source.snapshotCalls(), "no subscriptions, no recomputation")
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, nil)

	calls := 0
	n.Subscribe(MetricTotalBudget, func(v MetricValue) { calls++ })

	n.Close()
	require.NotPanics(t, n.Close)

	n.RefreshNow(context.Background())
	require.Zero(t, calls)
	require.Nil(t, n.Subscribe(MetricTotalBudget, func(v MetricValue) {}))
	require.Empty(t, n.SubscribedMetrics())
}

func TestUnsubscribeDuringDeliveryKeepsSnapshot(t *testing.T) {
	source := &stubSource{values: fixtureValues()}
	n := newManualNotifier(source, nil)
	defer n.Close()

	var order []string
	var second *MetricSubscription
	n.Subscribe(MetricTotalBudget, func(v MetricValue) {
		order = append(order, "first")
		n.Unsubscribe(second)
	})
	second = n.Subscribe(MetricTotalBudget, func(v MetricValue) {
		order = append(order, "second")
	})

	n.RefreshNow(context.Background())
	require.Equal(t, []string{"first", "second"}, order)

	order = nil
	n.RefreshNow(context.Background())
	require.Equal(t, []string{"first"}, order)
}
