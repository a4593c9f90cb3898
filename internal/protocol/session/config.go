package session

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// Config defines registration timing defaults.
type Config struct {
	// RegisterInterval is the fixed gap between registration attempts.
	RegisterInterval time.Duration
	// PollInterval is the runtime loop sleep between ticks.
	PollInterval time.Duration
	// RestartDelay is how long the node waits before restarting after a
	// fatal radio init failure.
	RestartDelay time.Duration
	// EventBuffer bounds radio events queued between ticks.
	EventBuffer int
}

// DefaultConfig returns the firmware's timing: 10s retry, 100ms poll.
func DefaultConfig() Config {
	return Config{
		RegisterInterval: 10 * time.Second,
		PollInterval:     100 * time.Millisecond,
		RestartDelay:     time.Second,
		EventBuffer:      16,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RegisterInterval == 0 {
		c.RegisterInterval = def.RegisterInterval
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = def.RestartDelay
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = def.EventBuffer
	}
	return c
}

func (c Config) Validate() error {
	if c.RegisterInterval <= 0 {
		return fmt.Errorf("%w: register_interval must be positive", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	if c.RestartDelay < 0 {
		return fmt.Errorf("%w: restart_delay must not be negative", ErrInvalidConfig)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("%w: event_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}
