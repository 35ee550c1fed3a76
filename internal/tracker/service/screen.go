package service

import (
	"sync"
	"time"
)

// Screen is the display's power state as the board sees it.
type Screen interface {
	IsOn() bool
	TurnOn()
}

// IdleScreen switches itself off after a period without TurnOn calls.
// onChange, if set, is called with the new state on every transition.
type IdleScreen struct {
	timeout  time.Duration
	onChange func(on bool)

	mu      sync.Mutex
	on      bool
	stopped bool
	timer   *time.Timer
}

// NewIdleScreen returns a screen that starts on. A timeout <= 0 keeps it on
// for good.
func NewIdleScreen(timeout time.Duration, onChange func(on bool)) *IdleScreen {
	s := &IdleScreen{timeout: timeout, onChange: onChange, on: true}
	if timeout > 0 {
		s.timer = time.AfterFunc(timeout, s.TurnOff)
	}
	return s
}

func (s *IdleScreen) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// TurnOn lights the screen and restarts the idle countdown unless Stop has
// been called.
func (s *IdleScreen) TurnOn() {
	s.mu.Lock()
	changed := !s.on
	s.on = true
	if s.timer != nil && !s.stopped {
		s.timer.Reset(s.timeout)
	}
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(true)
	}
}

func (s *IdleScreen) TurnOff() {
	s.mu.Lock()
	changed := s.on
	s.on = false
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(false)
	}
}

// Stop cancels the idle countdown for good. The screen keeps its current
// state and later TurnOn calls do not rearm it.
func (s *IdleScreen) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
