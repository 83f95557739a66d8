package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsBaudAndReadTimeout(t *testing.T) {
	tr := New(Config{Device: "/dev/ttyUSB0"})

	assert.Equal(t, 9600, tr.cfg.Baud)
	assert.Equal(t, DefaultReadPollTimeout, tr.cfg.ReadTimeout)
}

func TestNew_PreservesExplicitConfig(t *testing.T) {
	tr := New(Config{Device: "/dev/ttyUSB1", Baud: 115200, ReadTimeout: 5 * time.Second})

	assert.Equal(t, 115200, tr.cfg.Baud)
	assert.Equal(t, 5*time.Second, tr.cfg.ReadTimeout)
	assert.Equal(t, "/dev/ttyUSB1", tr.cfg.Device)
}

func TestClose_OnUnopenedPortIsNoop(t *testing.T) {
	tr := New(Config{Device: "/dev/ttyUSB0"})
	assert.NoError(t, tr.Close())
}
