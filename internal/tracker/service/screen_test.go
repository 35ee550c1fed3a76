package service_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/tracker/internal/tracker/service"
)

func TestIdleScreen_TurnsOffAfterTimeout(t *testing.T) {
	var offs atomic.Int32
	s := service.NewIdleScreen(20*time.Millisecond, func(on bool) {
		if !on {
			offs.Add(1)
		}
	})
	defer s.Stop()

	assert.True(t, s.IsOn(), "starts on")
	assert.Eventually(t, func() bool { return !s.IsOn() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), offs.Load())

	s.TurnOn()
	assert.True(t, s.IsOn())
	assert.Eventually(t, func() bool { return !s.IsOn() }, time.Second, 5*time.Millisecond)
}

func TestIdleScreen_ZeroTimeoutStaysOn(t *testing.T) {
	s := service.NewIdleScreen(0, nil)
	defer s.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, s.IsOn())

	s.TurnOff()
	assert.False(t, s.IsOn())
	s.TurnOn()
	assert.True(t, s.IsOn())
}

func TestIdleScreen_StopDisarmsTimer(t *testing.T) {
	s := service.NewIdleScreen(20*time.Millisecond, nil)
	s.Stop()

	s.TurnOff()
	s.TurnOn()
	time.Sleep(60 * time.Millisecond)
	assert.True(t, s.IsOn(), "no countdown after Stop")

	s.Stop()
	assert.True(t, s.IsOn())
}
