package natsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	c := New("nats://localhost:4222")

	assert.Equal(t, "atelier-assets", c.name)
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 2*time.Second, c.reconnectWait)
	assert.Nil(t, c.Conn())
}

func TestNew_OptionsApply(t *testing.T) {
	c := New("nats://localhost:4222",
		WithName("studio-pipeline"),
		WithMaxReconnects(5),
		WithReconnectWait(time.Second),
		WithLogger(nil))

	assert.Equal(t, "studio-pipeline", c.name)
	assert.Equal(t, 5, c.maxReconnects)
	assert.Equal(t, time.Second, c.reconnectWait)
	// Nil logger keeps the discard default.
	assert.NotNil(t, c.logger)
}

func TestClient_NilSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Conn())
	assert.NotPanics(t, c.Close)
}

func TestClient_CloseBeforeConnect(t *testing.T) {
	c := New("nats://localhost:4222")
	assert.NotPanics(t, c.Close)
}
