// Package metrics defines the instrument surface the engine records into.
// The default provider discards everything; BasicProvider aggregates
// in memory for tests, examples, and lightweight embedding.
package metrics

// Provider constructs instruments used to record engine metrics.
// Implementations must be safe for concurrent use.
//
// Keep this interface minimal and stable. If new capabilities are needed
// later, introduce separate optional interfaces rather than expanding this
// surface.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	Gauge(name string, opts ...InstrumentOption) Gauge
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts (tokens executed, improvements accepted).
// Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// Gauge records a current value, such as the best fitness seen so far.
// Methods must be safe for concurrent use.
type Gauge interface {
	Set(v float64)
}

// Histogram records the distribution of float64 measurements (e.g. explore
// durations in seconds). Methods must be safe for concurrent use.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata. It's advisory only.
type InstrumentConfig struct {
	Description string
	Unit        string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g. "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}
