package metrics

import (
	"math"
	"sync"
)

// BasicProvider is a simple in-memory implementation of Provider.
// It is concurrency-safe; instruments are created on demand by name and
// reused for the same name. Instrument options are advisory and stored for
// introspection only.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	gauges     map[string]*BasicGauge
	histograms map[string]*BasicHistogram
	meta       map[string]InstrumentConfig
}

// NewBasicProvider constructs a new BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		gauges:     make(map[string]*BasicGauge),
		histograms: make(map[string]*BasicHistogram),
		meta:       make(map[string]InstrumentConfig),
	}
}

// applyOptions builds InstrumentConfig from options.
func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// Counter returns the monotonic counter for the given name (created once).
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check after acquiring write lock
	if c, ok = p.counters[name]; ok {
		return c
	}
	p.meta[name] = applyOptions(opts)
	c = &BasicCounter{}
	p.counters[name] = c
	return c
}

// Gauge returns the gauge for the given name (created once).
func (p *BasicProvider) Gauge(name string, opts ...InstrumentOption) Gauge {
	p.mu.RLock()
	g, ok := p.gauges[name]
	p.mu.RUnlock()
	if ok {
		return g
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok = p.gauges[name]; ok {
		return g
	}
	p.meta[name] = applyOptions(opts)
	g = &BasicGauge{}
	p.gauges[name] = g
	return g
}

// Histogram returns the histogram for the given name (created once).
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.RLock()
	h, ok := p.histograms[name]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok = p.histograms[name]; ok {
		return h
	}
	p.meta[name] = applyOptions(opts)
	h = &BasicHistogram{min: math.Inf(1), max: math.Inf(-1)}
	p.histograms[name] = h
	return h
}

// BasicCounter is a thread-safe monotonic counter.
type BasicCounter struct {
	mu  sync.Mutex
	val int64
}

// Add increments the counter by n.
func (c *BasicCounter) Add(n int64) {
	c.mu.Lock()
	c.val += n
	c.mu.Unlock()
}

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// BasicGauge is a thread-safe last-value gauge.
type BasicGauge struct {
	mu  sync.Mutex
	val float64
	set bool
}

// Set records v as the current value.
func (g *BasicGauge) Set(v float64) {
	g.mu.Lock()
	g.val, g.set = v, true
	g.mu.Unlock()
}

// Snapshot returns the current value and whether it has ever been set.
func (g *BasicGauge) Snapshot() (v float64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.val, g.set
}

// BasicHistogram is a thread-safe histogram tracking count, sum, min, and
// max. It does not maintain buckets; it is a lightweight aggregator.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// Record adds a measurement to the histogram.
func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	if h.count == 0 {
		h.min, h.max = v, v
	} else {
		if v < h.min {
			h.min = v
		}
		if v > h.max {
			h.max = v
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// HistSnapshot is an immutable snapshot of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns a copy of the histogram state at the time of call.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	snap := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if snap.Count > 0 {
		snap.Mean = snap.Sum / float64(snap.Count)
	}
	return snap
}
