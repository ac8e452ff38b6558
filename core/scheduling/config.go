package scheduling

import "fmt"

// Config defines engine tuning loaded from configuration. The algorithmic
// bounds (segment cap, shunt iteration ceiling, cascade depth) are fixed
// constants so their termination guarantees stay auditable.
type Config struct {
	// LockWaitSeconds bounds how long an operation waits for a machine's
	// lock before reporting a concurrency guard failure.
	LockWaitSeconds int `json:"lock_wait_seconds"`
	// HorizonDays is the availability lookahead loaded beyond a placement's
	// nominal end, covering tails pushed out by segment splitting.
	HorizonDays int `json:"horizon_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LockWaitSeconds == 0 {
		c.LockWaitSeconds = 5
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = 7
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LockWaitSeconds < 0 {
		return fmt.Errorf("lock_wait_seconds must not be negative")
	}
	if c.HorizonDays < 1 {
		return fmt.Errorf("horizon_days must be at least 1")
	}
	return nil
}

const (
	// maxSplitSegments caps how many segments a single placement may be
	// fragmented into. Exceeding it is a failure, not a longer split.
	maxSplitSegments = 50
	// maxShuntIterations bounds the transitive-conflict closure loop.
	maxShuntIterations = 10
	// maxCascadeDepth bounds how many times a shunt may fold a secondary
	// conflict into its affected set before giving up.
	maxCascadeDepth = 3
	// dayStartHour is the UTC hour leftward shunting will not cross.
	dayStartHour = 6
)
