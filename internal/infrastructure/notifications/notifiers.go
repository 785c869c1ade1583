package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
)

var (
	// ErrNotificationDropped is returned when the async buffer is full
	ErrNotificationDropped = errors.New("notification buffer full, event dropped")
	// ErrNotifierClosed is returned after Close
	ErrNotifierClosed = errors.New("notifier closed")
)

// LogNotifier writes every assignment notice to the log
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs through logger
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notice
func (n *LogNotifier) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	n.logger.Info().
		Str("patient_id", event.PatientID).
		Str("patient_name", event.PatientName).
		Str("source", string(event.Source)).
		Str("doctor_id", event.DoctorID).
		Int("estimated_wait", event.EstimatedWaitMinutes).
		Msg(fmt.Sprintf("Notification to %s (%s): %s", event.PatientName, event.Source, event.Message))
	return nil
}

// EventBusNotifier publishes assignments to the clinic-wide channel and the doctor's channel
type EventBusNotifier struct {
	bus providers.EventBus
}

// NewEventBusNotifier creates a notifier backed by bus
func NewEventBusNotifier(bus providers.EventBus) *EventBusNotifier {
	return &EventBusNotifier{bus: bus}
}

// Notify publishes the event on both channels
func (n *EventBusNotifier) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	if err := n.bus.Publish(ctx, providers.EventChannelAssignments, event); err != nil {
		return err
	}
	return n.bus.Publish(ctx, providers.GetDoctorChannel(event.DoctorID), event)
}

// FanoutNotifier delivers to every channel and joins their errors
type FanoutNotifier struct {
	notifiers []providers.Notifier
}

// NewFanoutNotifier creates a notifier that calls each of notifiers in order
func NewFanoutNotifier(notifiers ...providers.Notifier) *FanoutNotifier {
	return &FanoutNotifier{notifiers: notifiers}
}

// Notify calls every notifier even when an earlier one fails
func (n *FanoutNotifier) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	var errs []error
	for _, notifier := range n.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type pendingNotification struct {
	ctx   context.Context
	event *entities.AssignmentEvent
}

// AsyncNotifier hands events to a background worker so slow channels never hold up
// assignment. When the buffer is full the event is dropped.
type AsyncNotifier struct {
	next    providers.Notifier
	metrics *observability.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan pendingNotification
	done   chan struct{}
}

// NewAsyncNotifier starts the delivery worker. metrics may be nil.
func NewAsyncNotifier(next providers.Notifier, bufferSize int, metrics *observability.Metrics) *AsyncNotifier {
	if bufferSize < 1 {
		bufferSize = 1
	}
	n := &AsyncNotifier{
		next:    next,
		metrics: metrics,
		timeout: 30 * time.Second,
		queue:   make(chan pendingNotification, bufferSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify enqueues the event without blocking
func (n *AsyncNotifier) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}

	select {
	case n.queue <- pendingNotification{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		observability.RecordNotificationDropped(ctx, n.metrics)
		return ErrNotificationDropped
	}
}

func (n *AsyncNotifier) run() {
	defer close(n.done)
	for pending := range n.queue {
		ctx, cancel := context.WithTimeout(pending.ctx, n.timeout)
		if err := n.next.Notify(ctx, pending.event); err != nil {
			observability.RecordNotificationFailure(ctx, n.metrics, "async")
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("patient_id", pending.event.PatientID).
				Str("doctor_id", pending.event.DoctorID).
				Msg("Notification delivery failed")
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered or ctx to end
func (n *AsyncNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifier drain interrupted: %w", ctx.Err())
	}
}
