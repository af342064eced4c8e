// Package push maintains the long-lived push channel for one
// authenticated session. The channel is an MQTT connection: on connect
// the client performs the registration handshake carrying the user's
// identity so the broker knows which events to forward, then subscribes
// to the user's alert topic. Reconnection is the transport's own policy;
// this client only reacts to connect and message callbacks.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
	"github.com/farmbridge/notify/internal/notification"
	"github.com/farmbridge/notify/internal/observability/metrics"
)

const (
	connectTimeout   = 30 * time.Second
	publishTimeout   = 10 * time.Second
	subscribeTimeout = 10 * time.Second
	disconnectQuiet  = 250 // milliseconds granted to in-flight messages
)

// Sink receives inbound push events. The notification service implements
// this; each event is handed over verbatim and the cache performs
// dedup/merge.
type Sink interface {
	Deliver(n *notification.Notification)
}

// registration is the handshake payload sent after each (re)connect.
type registration struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
	Premium  bool   `json:"premium"`
}

// Config holds the push channel configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	UserID      string
	UserType    string
	Premium     bool
}

// Client implements the notification.Transport interface over MQTT.
type Client struct {
	config         Config
	internalClient mqtt.Client
	mu             sync.Mutex
	sink           Sink
	logger         *slog.Logger
	metrics        *metrics.PushMetrics
}

// NewClient creates a push client from settings. Events are delivered to
// the given sink.
func NewClient(settings *conf.Settings, sink Sink) *Client {
	return &Client{
		config: Config{
			Broker:      settings.MQTT.Broker,
			ClientID:    fmt.Sprintf("%s-%s", settings.Main.Name, uuid.New().String()[:8]),
			Username:    settings.MQTT.Username,
			Password:    settings.MQTT.Password,
			TopicPrefix: settings.MQTT.TopicPrefix,
			UserID:      settings.User.ID,
			UserType:    settings.User.Type,
			Premium:     settings.User.Premium,
		},
		sink:   sink,
		logger: logging.ForService("push"),
	}
}

// SetMetrics attaches metrics reporting. Optional; nil-safe throughout.
func (c *Client) SetMetrics(m *metrics.PushMetrics) {
	c.metrics = m
}

// Connect establishes the push channel. The paho client owns reconnects
// (exponential-style, built in); the registration handshake re-runs on
// every reconnect through the OnConnect callback.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.UserID == "" {
		return errors.Newf("no user identity configured, push channel disabled").
			Component("push").
			Category(errors.CategoryState).
			Build()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.Newf("push channel connection timeout").
			Component("push").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("push").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}

	return nil
}

// IsConnected returns true if the push channel is currently up.
func (c *Client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the push channel. Must be called at subsystem
// teardown so remounts do not leak a connection each.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(disconnectQuiet)
		c.metrics.UpdateConnectionStatus(false)
		c.logger.Info("push channel closed")
	}
}

// onConnect runs on every (re)connect: registration handshake first, then
// the alert subscription.
func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("push channel connected", "broker", c.config.Broker)
	c.metrics.UpdateConnectionStatus(true)

	if err := c.register(client); err != nil {
		c.logger.Error("registration handshake failed", "error", err)
		return
	}

	topic := c.alertTopic()
	token := client.Subscribe(topic, 1, c.onMessage)
	if !token.WaitTimeout(subscribeTimeout) || token.Error() != nil {
		c.logger.Error("alert subscription failed",
			"topic", topic,
			"error", token.Error())
		return
	}

	c.logger.Info("registered for alerts",
		"user_id", c.config.UserID,
		"topic", topic)
}

// register publishes the identity handshake the server uses to decide
// which events to forward (user id, user type, premium entitlement).
func (c *Client) register(client mqtt.Client) error {
	payload, err := json.Marshal(registration{
		UserID:   c.config.UserID,
		UserType: c.config.UserType,
		Premium:  c.config.Premium,
	})
	if err != nil {
		return err
	}

	token := client.Publish(c.config.TopicPrefix+"/register", 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Newf("registration publish timeout").
			Component("push").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	return token.Error()
}

// onMessage decodes an inbound event and hands it to the sink. Events of
// an unexpected kind are counted and dropped, never an error: the stream
// may carry producer kinds this client does not act on.
func (c *Client) onMessage(client mqtt.Client, msg mqtt.Message) {
	if c.metrics != nil {
		c.metrics.EventsReceived.Inc()
	}

	var n notification.Notification
	if err := json.Unmarshal(msg.Payload(), &n); err != nil {
		c.logger.Error("failed to decode push payload",
			"topic", msg.Topic(),
			"error", err)
		if c.metrics != nil {
			c.metrics.DecodeErrors.Inc()
		}
		return
	}

	// The alert topic discriminates by kind; tolerate payloads that omit
	// the field but skip anything explicitly marked as another kind.
	if n.Kind != "" && n.Kind != notification.KindAlert {
		c.logger.Debug("ignoring push event of unexpected kind",
			"kind", n.Kind,
			"id", n.ID)
		if c.metrics != nil {
			c.metrics.EventsIgnored.Inc()
		}
		return
	}

	if c.sink != nil {
		c.sink.Deliver(&n)
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Warn("push channel lost, transport will reconnect", "error", err)
	c.metrics.UpdateConnectionStatus(false)
	if c.metrics != nil {
		c.metrics.ReconnectAttempts.Inc()
	}
}

// alertTopic returns the user-scoped alert topic.
func (c *Client) alertTopic() string {
	return fmt.Sprintf("%s/notifications/%s", c.config.TopicPrefix, c.config.UserID)
}
