package push

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/notification"
)

type fakeSink struct {
	delivered []*notification.Notification
}

func (f *fakeSink) Deliver(n *notification.Notification) {
	f.delivered = append(f.delivered, n)
}

// fakeMessage implements mqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// doneToken satisfies mqtt.Token for the recorded publish.
type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// publishRecorder captures the registration publish.
type publishRecorder struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
}

func (p *publishRecorder) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	p.topic = topic
	p.qos = qos
	p.payload = payload.([]byte)
	return doneToken{}
}

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "notify-test"
	s.MQTT.Broker = "tcp://127.0.0.1:1883"
	s.MQTT.TopicPrefix = "farmbridge"
	s.User.ID = "farmer-9"
	s.User.Type = "farmer"
	s.User.Premium = true
	return s
}

func deliver(c *Client, payload string) {
	c.onMessage(nil, &fakeMessage{
		topic:   c.alertTopic(),
		payload: []byte(payload),
	})
}

func TestOnMessageDeliversAlerts(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	c := NewClient(testSettings(), sink)

	deliver(c, `{"id":"1","kind":"alert","title":"Late blight"}`)
	deliver(c, `{"notificationId":"2","message":"no kind field"}`)

	require.Len(t, sink.delivered, 2, "alert and kind-less payloads both reach the sink")
	assert.Equal(t, "1", sink.delivered[0].ID)
	assert.Equal(t, "2", sink.delivered[1].ID)
}

func TestOnMessageIgnoresForeignKinds(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	c := NewClient(testSettings(), sink)

	// The stream may carry producer kinds this client does not act on.
	deliver(c, `{"id":"3","kind":"promo","title":"Upgrade now"}`)
	deliver(c, `{"id":"4","type":"system"}`)

	assert.Empty(t, sink.delivered)
}

func TestOnMessageToleratesMalformedPayload(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	c := NewClient(testSettings(), sink)

	assert.NotPanics(t, func() {
		deliver(c, `{truncated`)
		deliver(c, ``)
	})
	assert.Empty(t, sink.delivered)
}

func TestRegisterHandshakePayload(t *testing.T) {
	t.Parallel()

	c := NewClient(testSettings(), &fakeSink{})
	rec := &publishRecorder{}

	require.NoError(t, c.register(rec))

	assert.Equal(t, "farmbridge/register", rec.topic)
	assert.Equal(t, byte(1), rec.qos)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.payload, &payload))
	assert.Equal(t, "farmer-9", payload["userId"])
	assert.Equal(t, "farmer", payload["userType"])
	assert.Equal(t, true, payload["premium"])
}

func TestConnectRequiresUserIdentity(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.User.ID = ""
	c := NewClient(settings, &fakeSink{})

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestAlertTopicIsUserScoped(t *testing.T) {
	t.Parallel()

	c := NewClient(testSettings(), &fakeSink{})
	assert.Equal(t, "farmbridge/notifications/farmer-9", c.alertTopic())
}
