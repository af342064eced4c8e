package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/farmbridge/notify/internal/logging"
)

// EventBus provides asynchronous read-event processing with non-blocking
// publish guarantees
type EventBus struct {
	// Channel for events
	eventChan chan ReadEvent

	// Configuration
	bufferSize int
	workers    int

	// State management
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	initialized atomic.Bool
	running     atomic.Bool
	mu          sync.Mutex

	// Consumers
	consumers []EventConsumer

	// Metrics
	stats EventBusStats

	// Logging
	logger *slog.Logger
}

// Global event bus instance (lazily initialized)
var (
	globalEventBus *EventBus
	globalMutex    sync.Mutex
)

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Workers    int
	Enabled    bool
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 256,
		Workers:    1,
		Enabled:    true,
	}
}

// Initialize creates or returns the global event bus instance
func Initialize(config *Config) (*EventBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if globalEventBus != nil {
		return globalEventBus, nil
	}

	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	eb := &EventBus{
		eventChan:  make(chan ReadEvent, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		ctx:        ctx,
		cancel:     cancel,
		consumers:  make([]EventConsumer, 0),
		logger:     logging.ForService("events"),
	}

	eb.initialized.Store(true)
	globalEventBus = eb

	eb.logger.Info("read-state event bus initialized",
		"buffer_size", config.BufferSize,
		"workers", config.Workers,
	)

	return eb, nil
}

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalEventBus
}

// ResetForTesting tears down the global instance so tests can reinitialize.
func ResetForTesting() {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalEventBus != nil {
		globalEventBus.cancel()
		globalEventBus.wg.Wait()
	}
	globalEventBus = nil
}

// RegisterConsumer adds a new read-event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)

	eb.logger.Info("registered read-event consumer", "consumer", consumer.Name())

	// Start workers once the first consumer arrives
	if len(eb.consumers) == 1 && !eb.running.Load() {
		eb.start()
	}

	return nil
}

// UnregisterConsumer removes a consumer by name. Required at view teardown
// so remounts do not accumulate duplicate handlers.
func (eb *EventBus) UnregisterConsumer(name string) {
	if eb == nil {
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, existing := range eb.consumers {
		if existing.Name() == name {
			eb.consumers = append(eb.consumers[:i], eb.consumers[i+1:]...)
			eb.logger.Info("unregistered read-event consumer", "consumer", name)
			return
		}
	}
}

// TryPublish attempts to publish an event without blocking.
// Returns true if the event was accepted, false if dropped.
func (eb *EventBus) TryPublish(event ReadEvent) bool {
	if eb == nil || !eb.initialized.Load() || !eb.running.Load() {
		return false
	}

	eb.mu.Lock()
	hasConsumers := len(eb.consumers) > 0
	eb.mu.Unlock()

	if !hasConsumers {
		return false
	}

	select {
	case eb.eventChan <- event:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		// Channel full, drop the event
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		eb.logger.Debug("read event dropped due to full buffer",
			"notification_id", event.GetNotificationID(),
		)
		return false
	}
}

// start begins the worker goroutines
func (eb *EventBus) start() {
	if eb.running.Swap(true) {
		return // Already running
	}

	eb.logger.Debug("starting event bus workers", "count", eb.workers)

	for i := 0; i < eb.workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}
}

// worker processes events from the channel
func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()

	logger := eb.logger.With("worker_id", id)

	for {
		select {
		case <-eb.ctx.Done():
			return

		case event, ok := <-eb.eventChan:
			if !ok {
				return
			}
			eb.processEvent(event, logger)
		}
	}
}

// processEvent sends the event to all registered consumers
func (eb *EventBus) processEvent(event ReadEvent, logger *slog.Logger) {
	eb.mu.Lock()
	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.Unlock()

	for _, consumer := range consumers {
		// Recovery wrapper so one panicking consumer cannot take down the bus
		func() {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
					logger.Error("consumer panicked",
						"consumer", consumer.Name(),
						"panic", r,
						"notification_id", event.GetNotificationID(),
					)
				}
			}()

			if err := consumer.ProcessEvent(event); err != nil {
				atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
				logger.Error("consumer error",
					"consumer", consumer.Name(),
					"error", err,
					"notification_id", event.GetNotificationID(),
				)
			} else {
				atomic.AddUint64(&eb.stats.EventsProcessed, 1)
			}
		}()
	}
}

// Shutdown gracefully shuts down the event bus
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil || !eb.initialized.Load() {
		return nil
	}

	eb.logger.Info("shutting down event bus", "timeout", timeout)

	eb.running.Store(false)
	eb.cancel()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Info("event bus shutdown complete")
		return nil
	case <-time.After(timeout):
		eb.logger.Warn("event bus shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}

	return EventBusStats{
		EventsReceived:  atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsProcessed: atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:   atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:  atomic.LoadUint64(&eb.stats.ConsumerErrors),
	}
}
