package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// ErrClosed is returned when publishing to or subscribing on a closed bus
var ErrClosed = errors.New("event service closed")

// ErrQueueFull is returned when Publish would have to wait for slow handlers
var ErrQueueFull = errors.New("event queue full")

const (
	// drainTimeout bounds how long Close waits for queued events
	drainTimeout = 5 * time.Second
	queueSize    = 1024
)

type queued struct {
	ctx      context.Context
	event    interfaces.Event
	handlers []interfaces.EventHandler
}

// Service is an in-process pub/sub bus. Publish enqueues and returns at once;
// a single dispatcher delivers queued events in publish order, so two events
// published one after the other (a Paused followed by a Resumed) reach every
// handler in that order. Events published concurrently have no defined
// order; clients needing the authoritative sequence read the tracking history.
type Service struct {
	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	closed      bool
	queue       chan queued
	drained     chan struct{}
	inflight    sync.WaitGroup
	logger      arbor.ILogger
}

func NewService(logger arbor.ILogger) *Service {
	s := &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		queue:       make(chan queued, queueSize),
		drained:     make(chan struct{}),
		logger:      logger,
	}
	common.SafeGo(logger, "event-dispatcher", s.dispatchLoop)
	return s
}

func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", eventType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscribers", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// Publish queues event for in-order delivery and returns immediately. Handlers
// get a context detached from the caller's cancellation. A full queue drops
// the event rather than stall the caller.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	handlers := s.subscribers[event.Type]
	if len(handlers) == 0 {
		return nil
	}

	item := queued{
		ctx:      context.WithoutCancel(ctx),
		event:    event,
		handlers: append([]interfaces.EventHandler(nil), handlers...),
	}
	select {
	case s.queue <- item:
		return nil
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Event queue full, dropping event")
		return ErrQueueFull
	}
}

// PublishSync runs every handler concurrently on the caller's context and
// joins their errors. It bypasses the queue.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	handlers := append([]interfaces.EventHandler(nil), s.subscribers[event.Type]...)
	s.inflight.Add(1)
	s.mu.RUnlock()
	defer s.inflight.Done()

	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, handler := range handlers {
		wg.Add(1)
		go func(i int, handler interfaces.EventHandler) {
			defer wg.Done()
			errs[i] = s.dispatch(ctx, handler, event)
		}(i, handler)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close rejects further events and waits, bounded, for queued ones to be delivered
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subscribers = nil
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-s.drained
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Event service closed")
	case <-time.After(drainTimeout):
		s.logger.Warn().Dur("waited", drainTimeout).Msg("Event service closed with handlers still running")
	}
	return nil
}

// dispatchLoop delivers queued events one at a time until the queue is closed
func (s *Service) dispatchLoop() {
	defer close(s.drained)
	for item := range s.queue {
		for _, handler := range item.handlers {
			s.dispatch(item.ctx, handler, item.event) //nolint:errcheck // logged in dispatch
		}
	}
}

func (s *Service) dispatch(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Event handler failed")
		}
	}()
	return handler(ctx, event)
}
