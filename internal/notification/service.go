package notification

import (
	"context"
	"sync"

	"log/slog"

	"github.com/google/uuid"

	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/events"
	"github.com/farmbridge/notify/internal/observability/metrics"
)

// Backend is the narrow view of the REST client the service needs: the
// snapshot fetch and the authoritative mark-read call.
type Backend interface {
	HasCredential() bool
	FetchNotifications(ctx context.Context) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Transport is the push channel. Connect establishes the long-lived
// connection and registration handshake; inbound events are delivered to
// the service through Deliver. Reconnects are the transport's own concern.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
}

// Subscriber represents a live notification subscriber
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// DefaultChannelBufferSize is the per-subscriber delivery buffer.
const DefaultChannelBufferSize = 64

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// Debug enables debug logging for the service
	Debug bool
	// MaxNotifications bounds the in-memory cache
	MaxNotifications int
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications: DefaultMaxNotifications,
	}
}

// Service owns the notification cache for one session and coordinates the
// snapshot loader, the push transport, and read-state synchronization.
// Lifecycle is explicit: Start populates the cache and opens the push
// channel, Stop tears both down.
type Service struct {
	cache         *Cache
	backend       Backend
	transport     Transport
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	logger        *slog.Logger
	config        *ServiceConfig
	metrics       *metrics.NotificationMetrics
	consumerName  string
	started       bool
	startMu       sync.Mutex
}

// NewService creates a notification service. The transport may be nil
// when push delivery is not available (tests, one-shot listing).
func NewService(config *ServiceConfig, backend Backend, transport Transport) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		cache:        NewCache(config.MaxNotifications),
		backend:      backend,
		transport:    transport,
		subscribers:  make([]*Subscriber, 0),
		ctx:          ctx,
		cancel:       cancel,
		logger:       getFileLogger(config.Debug),
		config:       config,
		consumerName: "notification-service-" + uuid.New().String()[:8],
	}

	// The file logger is shared; its level follows the most recent
	// service configuration.
	SetDebugLevel(config.Debug)

	service.logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"debug", config.Debug)

	return service
}

// SetMetrics attaches metrics reporting. Optional; nil-safe throughout.
func (s *Service) SetMetrics(m *metrics.NotificationMetrics) {
	s.metrics = m
}

// SetTransport attaches the push channel. The service and transport
// reference each other, so one of the two is wired after construction.
// Must be called before Start.
func (s *Service) SetTransport(t Transport) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.transport = t
}

// Start populates the cache from the backend snapshot and opens the push
// channel. Without a session credential both steps are skipped and the
// cache stays empty: degraded, not an error. A failed snapshot likewise
// yields an empty cache with no automatic retry; pushed events are
// accepted either way, including before the snapshot resolves.
func (s *Service) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true

	if s.backend == nil || !s.backend.HasCredential() {
		s.logger.Info("no session credential, notification service idle")
		return
	}

	s.loadSnapshot(ctx)

	// Propagate read transitions triggered by other components in this
	// process into our cache.
	if bus := events.GetEventBus(); bus != nil {
		if err := bus.RegisterConsumer(&readConsumer{service: s}); err != nil {
			s.logger.Warn("failed to register read-event consumer", "error", err)
		}
	}

	if s.transport != nil {
		if err := s.transport.Connect(ctx); err != nil {
			// The transport retries on its own; a failed first connect is
			// not fatal for the snapshot-backed view.
			s.logger.Error("push channel connect failed", "error", err)
		}
	}
}

// loadSnapshot fetches the authoritative history once. Failures leave the
// cache empty and are logged with enough context for diagnosis.
func (s *Service) loadSnapshot(ctx context.Context) {
	items, err := s.backend.FetchNotifications(ctx)
	if err != nil {
		s.logger.Error("notification snapshot load failed", "error", err)
		if s.metrics != nil {
			s.metrics.SnapshotFailures.Inc()
		}
		return
	}

	s.cache.LoadSnapshot(items)
	s.updateGauges()

	s.logger.Info("notification snapshot loaded",
		"count", len(items),
		"unread", s.cache.UnreadCount())
}

// Stop tears the subsystem down: the push channel is closed and the
// read-event consumer removed so remounts do not accumulate handlers.
func (s *Service) Stop() {
	s.logger.Info("notification service shutting down")

	if s.transport != nil {
		s.transport.Disconnect()
	}

	if bus := events.GetEventBus(); bus != nil {
		bus.UnregisterConsumer(s.consumerName)
	}

	s.cancel()

	s.subscribersMu.Lock()
	for _, sub := range s.subscribers {
		sub.cancel()
	}
	s.subscribers = nil
	s.subscribersMu.Unlock()
}

// Deliver is the push channel's entry point: the event is upserted into
// the cache verbatim (the cache handles dedup and merge) and broadcast to
// live subscribers. Safe to call before the snapshot has resolved.
func (s *Service) Deliver(n *Notification) {
	if n == nil {
		return
	}

	known := false
	if n.ID != "" {
		_, err := s.cache.Get(n.ID)
		known = err == nil
	}

	s.cache.Upsert(n)

	if s.metrics != nil {
		s.metrics.Upserts.Inc()
		if known {
			s.metrics.DedupMerges.Inc()
		}
	}
	s.updateGauges()

	if s.config.Debug {
		s.logger.Debug("push notification delivered",
			"id", n.ID,
			"kind", n.Kind,
			"merged", known)
	}

	s.broadcast(n)
}

// List returns the cached notifications in consumer-visible order.
func (s *Service) List() []*Notification {
	return s.cache.List()
}

// Get retrieves a notification by ID
func (s *Service) Get(id string) (*Notification, error) {
	return s.cache.Get(id)
}

// UnreadCount returns the number of unread notifications
func (s *Service) UnreadCount() int {
	return s.cache.UnreadCount()
}

// MarkReadLocal applies a purely local read transition without touching
// the backend. Unknown ids are a silent no-op.
func (s *Service) MarkReadLocal(id string) {
	s.cache.MarkRead(id)
	s.updateGauges()
}

// Open performs the read transition for "user opens notification id".
// The remote mark-read call is fire-and-forget with respect to the
// caller's navigation, but its result decides local state: only a
// demonstrated remote success marks the entry read locally and broadcasts
// the transition to other components. A failure leaves the entry unread
// so the user does not lose track of an alert that silently failed to
// persist. An empty id skips the remote call entirely; navigation must
// not be blocked on a notification that never carried an identifier.
func (s *Service) Open(ctx context.Context, id string) {
	if id == "" {
		s.logger.Warn("opening notification without resolvable id, skipping remote mark-read")
		s.metrics.RecordMarkRead("skipped")
		return
	}

	if s.backend == nil {
		return
	}

	if err := s.backend.MarkNotificationRead(ctx, id); err != nil {
		// Do not mark read locally: the remote write did not demonstrably
		// succeed.
		s.logger.Error("remote mark-read failed, leaving notification unread",
			"id", id,
			"error", err)
		s.metrics.RecordMarkRead("failure")
		return
	}

	s.cache.MarkRead(id)
	s.updateGauges()
	s.metrics.RecordMarkRead("success")

	if bus := events.GetEventBus(); bus != nil {
		bus.TryPublish(events.NewReadEvent(id))
	}
}

// Subscribe creates a channel receiving live push notifications. The
// returned context is cancelled when the subscription terminates. The
// subscriber must not close the channel; call Unsubscribe when done.
func (s *Service) Subscribe() (<-chan *Notification, context.Context) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.subscribers = append(s.subscribers, sub)

	if s.config.Debug {
		s.logger.Debug("new subscriber added",
			"total_subscribers", len(s.subscribers))
	}

	return sub.ch, ctx
}

// Unsubscribe removes a notification channel. It cancels the subscriber's
// context but does not close the channel.
func (s *Service) Unsubscribe(ch <-chan *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber.ch == ch {
			subscriber.cancel()
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// broadcast sends a notification to all live subscribers. Each receives a
// clone so cached state cannot be mutated through the channel.
func (s *Service) broadcast(n *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	activeSubscribers := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
			continue
		default:
		}

		activeSubscribers = append(activeSubscribers, sub)

		select {
		case sub.ch <- n.Clone():
		default:
			s.logger.Debug("notification channel full, skipping subscriber")
		}
	}
	s.subscribers = activeSubscribers
}

func (s *Service) updateGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.CacheSize.Set(float64(s.cache.Len()))
	s.metrics.UnreadCount.Set(float64(s.cache.UnreadCount()))
}

// readConsumer applies read transitions broadcast by other components in
// the same process, keeping every live cache consistent without a network
// refetch.
type readConsumer struct {
	service *Service
}

func (rc *readConsumer) Name() string { return rc.service.consumerName }

func (rc *readConsumer) ProcessEvent(event events.ReadEvent) error {
	if event == nil {
		return errors.Newf("nil read event").
			Component("notification").
			Category(errors.CategoryBroadcast).
			Build()
	}
	rc.service.MarkReadLocal(event.GetNotificationID())
	return nil
}
