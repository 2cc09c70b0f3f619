package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"pulgax-store/internal/metrics"
)

// ErrSkipped is returned by a Sink that has nothing to do for an event. It is
// not counted as a failure.
var ErrSkipped = errors.New("event skipped by sink")

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Event) error
}

type DispatcherOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type guardedSink struct {
	sink    Sink
	breaker *gobreaker.CircuitBreaker
}

// Dispatcher fans events out to its sinks on a small worker pool. Notify never
// blocks the caller: when the queue is full the event is dropped and counted.
// Each sink sits behind its own circuit breaker so a dead mail server does not
// slow down the NATS publisher.
type Dispatcher struct {
	sinks   []guardedSink
	queue   chan Event
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sinks []Sink, opts DispatcherOptions, m *metrics.Metrics, logger *logrus.Entry) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan Event, opts.QueueSize),
		timeout: opts.Timeout,
		metrics: m,
		logger:  logger.WithField("component", "notifications"),
	}
	for _, s := range sinks {
		d.sinks = append(d.sinks, guardedSink{sink: s, breaker: d.newBreaker(s.Name())})
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notify-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSkipped)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			d.logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from":            from.String(),
				"to":              to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// Notify queues evt for delivery.
func (d *Dispatcher) Notify(evt Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.Notifications.WithLabelValues("queue", "dropped").Inc()
		return
	}
	select {
	case d.queue <- evt:
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		d.metrics.Notifications.WithLabelValues("queue", "dropped").Inc()
		d.logger.WithFields(logrus.Fields{
			"event":        evt.Type,
			"order_number": evt.Order.OrderNumber,
		}).Warn("Notification queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be delivered, or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still pending: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for evt := range d.queue {
		d.metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		for _, gs := range d.sinks {
			d.deliver(gs, evt)
		}
	}
}

func (d *Dispatcher) deliver(gs guardedSink, evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	// The breaker records a panicking sink as a failure and re-panics; the
	// worker keeps running.
	defer func() {
		if r := recover(); r != nil {
			d.metrics.Notifications.WithLabelValues(gs.sink.Name(), "failed").Inc()
			d.logger.WithFields(logrus.Fields{
				"sink":         gs.sink.Name(),
				"event":        evt.Type,
				"order_number": evt.Order.OrderNumber,
				"panic":        r,
			}).Warn("Notification sink panicked")
		}
	}()

	_, err := gs.breaker.Execute(func() (interface{}, error) {
		return nil, gs.sink.Deliver(ctx, evt)
	})

	outcome := "sent"
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		outcome = "skipped"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	d.metrics.Notifications.WithLabelValues(gs.sink.Name(), outcome).Inc()

	fields := logrus.Fields{
		"sink":         gs.sink.Name(),
		"event":        evt.Type,
		"order_number": evt.Order.OrderNumber,
	}
	switch outcome {
	case "failed", "rejected":
		d.logger.WithFields(fields).WithError(err).Warn("Notification not delivered")
	case "sent":
		d.logger.WithFields(fields).Debug("Notification delivered")
	}
}
