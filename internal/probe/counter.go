package probe

import "sync/atomic"

// DefaultReportEvery is the number of buffers between count-mode reports
const DefaultReportEvery = 30

// Counter counts buffer arrivals at the probe.
//
// Tick is called from the streaming thread. ReportEvery can be changed
// concurrently by the config watcher.
type Counter struct {
	count       uint64
	reportEvery uint64
}

// NewCounter creates a counter reporting every n buffers (n <= 0 uses the default)
func NewCounter(n int) *Counter {
	c := &Counter{}
	c.SetReportEvery(n)
	return c
}

// Tick records one buffer and returns the new count and whether it lands on a report boundary
func (c *Counter) Tick() (uint64, bool) {
	n := atomic.AddUint64(&c.count, 1)
	every := atomic.LoadUint64(&c.reportEvery)
	return n, n%every == 0
}

// Count returns the number of buffers seen
func (c *Counter) Count() uint64 {
	return atomic.LoadUint64(&c.count)
}

// SetReportEvery changes the report interval (n <= 0 restores the default)
func (c *Counter) SetReportEvery(n int) {
	if n <= 0 {
		n = DefaultReportEvery
	}
	atomic.StoreUint64(&c.reportEvery, uint64(n))
}

// ReportEvery returns the current report interval
func (c *Counter) ReportEvery() int {
	return int(atomic.LoadUint64(&c.reportEvery))
}
