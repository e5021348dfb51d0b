package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"SettlementEngine/internal/recorder"
)

// Sender delivers one operator message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// AlertSink forwards integrity events to an operator chat. Report never
// blocks the caller: events are queued and sent from Run.
type AlertSink struct {
	sender  Sender
	log     *zap.Logger
	queue   chan recorder.IntegrityEvent
	retries int
	breaker *gobreaker.CircuitBreaker
}

// NewAlertSink creates a sink that buffers up to size events.
func NewAlertSink(sender Sender, size int, log *zap.Logger) *AlertSink {
	if log == nil {
		log = zap.NewNop()
	}
	if size <= 0 {
		size = 64
	}
	s := &AlertSink{sender: sender, log: log, queue: make(chan recorder.IntegrityEvent, size), retries: 3}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "telegram-alerts",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("alert breaker state changed", zap.String("breaker", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
	return s
}

// Report queues evt. When the queue is full the event is dropped; it is
// still in the log and the recorder.
func (s *AlertSink) Report(evt recorder.IntegrityEvent) {
	select {
	case s.queue <- evt:
	default:
		s.log.Warn("alert queue full, dropping integrity alert", zap.String("kind", evt.Kind), zap.Int64("tick", evt.Tick))
	}
}

// Run sends queued alerts until ctx is cancelled.
func (s *AlertSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.queue:
			s.deliver(ctx, evt)
		}
	}
}

func (s *AlertSink) deliver(ctx context.Context, evt recorder.IntegrityEvent) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.sender.SendWithRetry(ctx, FormatIntegrityAlert(evt), s.retries)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.log.Warn("alert channel unavailable, integrity alert not sent", zap.String("kind", evt.Kind), zap.Int64("tick", evt.Tick))
	default:
		s.log.Error("send integrity alert", zap.Error(err))
	}
}
