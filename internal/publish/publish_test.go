package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeClient struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	retained []bool
	err      error
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload.([]byte))
	f.retained = append(f.retained, retained)
	return doneToken{err: f.err}
}

func TestMQTT_PublishJSONRetained(t *testing.T) {
	fc := &fakeClient{}
	m := &MQTT{cfg: MQTTConfig{TopicPrefix: "boat/", Timeout: time.Second}, pub: fc}

	require.NoError(t, m.Publish("unicore", map[string]int{"satellites": 21}))
	require.Len(t, fc.topics, 1)
	assert.Equal(t, "boat/unicore", fc.topics[0])
	assert.True(t, fc.retained[0])

	var got map[string]int
	require.NoError(t, json.Unmarshal(fc.payloads[0], &got))
	assert.Equal(t, 21, got["satellites"])
}

func TestMQTT_PublishErrors(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	m := &MQTT{cfg: MQTTConfig{TopicPrefix: "navstream", Timeout: time.Second}, pub: fc}
	assert.ErrorContains(t, m.Publish("ais", 1), "not connected")

	assert.Error(t, m.Publish("ais", make(chan int)), "unmarshalable value")
	assert.Len(t, fc.topics, 1)
}

func TestNewMQTT_RequiresBroker(t *testing.T) {
	_, err := NewMQTT(MQTTConfig{}, nil)
	assert.Error(t, err)
}

type recorder struct {
	sources []string
	err     error
	closed  bool
}

func (r *recorder) Publish(source string, _ any) error {
	r.sources = append(r.sources, source)
	return r.err
}

func (r *recorder) Close() { r.closed = true }

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("b failed")}
	m := Multi{a, Nop{}, b}

	err := m.Publish("javad", struct{}{})
	assert.ErrorContains(t, err, "b failed")
	assert.Equal(t, []string{"javad"}, a.sources)
	assert.Equal(t, []string{"javad"}, b.sources)

	m.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
