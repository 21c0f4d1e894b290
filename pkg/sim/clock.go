// Package sim replays canned event scenarios through the ingest pipeline
// for demos and pipeline exploration.
package sim

// Clock starting point and step. Scenarios start at a fixed epoch so
// replays are reproducible.
const (
	clockStart = 1700000000.0
	clockStep  = 1.0
)

// Clock hands out strictly increasing synthetic epoch timestamps.
type Clock struct {
	current float64
	step    float64
}

// NewClock creates a clock at the scenario epoch.
func NewClock() *Clock {
	return &Clock{current: clockStart, step: clockStep}
}

// Tick returns the current timestamp and advances the clock one step.
func (c *Clock) Tick() float64 {
	value := c.current
	c.current += c.step
	return value
}
