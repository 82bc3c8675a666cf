package notify

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	token        func() mqtt.Token
	sent         []published
	disconnected uint
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.token != nil {
		return c.token()
	}
	return completedToken(nil)
}

func (c *fakeClient) IsConnected() bool { return c.disconnected == 0 }

func (c *fakeClient) Disconnect(quiesce uint) { c.disconnected = quiesce }

func TestMQTTPublishTopic(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, MQTTConfig{Topic: "home/paludario/", Retained: true}, nil)

	require.NoError(t, p.Publish(MessageTypeWater, []byte(`{"count":1}`)))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "home/paludario/water", client.sent[0].topic)
	assert.Equal(t, byte(1), client.sent[0].qos)
	assert.True(t, client.sent[0].retained)
	assert.JSONEq(t, `{"count":1}`, string(client.sent[0].payload))
}

func TestMQTTDefaultTopic(t *testing.T) {
	p := newMQTTPublisher(&fakeClient{}, MQTTConfig{}, nil)
	assert.Equal(t, "paludario/settings", p.Topic(MessageTypeSettings))
}

func TestMQTTPublishError(t *testing.T) {
	brokerErr := errors.New("not authorized")
	client := &fakeClient{token: func() mqtt.Token { return completedToken(brokerErr) }}
	p := newMQTTPublisher(client, MQTTConfig{}, nil)

	err := p.Publish(MessageTypeDataUpdated, []byte(`{}`))
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTPublishTimeout(t *testing.T) {
	client := &fakeClient{token: func() mqtt.Token {
		return &fakeToken{done: make(chan struct{})}
	}}
	p := newMQTTPublisher(client, MQTTConfig{Timeout: 20 * time.Millisecond}, nil)

	err := p.Publish(MessageTypeSchedule, []byte(`{}`))
	assert.ErrorIs(t, err, ErrPublishTimeout)
}

func TestMQTTClose(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, MQTTConfig{}, nil)

	assert.True(t, p.Connected())
	p.Close()
	assert.Equal(t, uint(250), client.disconnected)
	assert.False(t, p.Connected())
}

func TestMQTTRequiresBroker(t *testing.T) {
	_, err := NewMQTTPublisher(MQTTConfig{}, nil)
	assert.Error(t, err)
}
