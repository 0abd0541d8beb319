// Package resilience provides fault tolerance patterns
package resilience

import "time"

// Circuit breaker defaults.
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Session API calls sit on the interview's critical path: open quickly so
	// the candidate sees a network error instead of a hang.
	SessionAPIThreshold         = 3
	SessionAPIResetTimeout      = 10 * time.Second
	SessionAPIHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// SessionAPIConfig returns settings for the Session API client.
func SessionAPIConfig() Config {
	return Config{
		Name:              "session-api",
		Threshold:         SessionAPIThreshold,
		ResetTimeout:      SessionAPIResetTimeout,
		HalfOpenSuccesses: SessionAPIHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
