package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"media-watcher/internal/logging"
)

// DefaultCollectInterval is used when NewCollector gets a non-positive interval.
const DefaultCollectInterval = time.Minute

// StatsProvider reports the journal's record count per category.
type StatsProvider interface {
	CategoryCounts() map[string]int
}

// Collector samples the journal on a ticker and refreshes the per-category
// record gauges. Values for categories outside Categories are reported
// under "unknown".
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
	started       atomic.Bool
}

func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start samples once and then every interval until Stop.
func (c *Collector) Start() {
	if c.started.CompareAndSwap(false, true) {
		go c.collectLoop()
	}
}

// Stop ends the loop and waits for it. It is safe to call more than once,
// and before Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) collectLoop() {
	defer close(c.done)
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	counts := c.statsProvider.CategoryCounts()
	known := make(map[string]float64, len(Categories))
	for _, category := range Categories {
		known[category] = 0
	}
	total := 0
	for category, n := range counts {
		total += n
		if _, ok := known[category]; !ok {
			category = "unknown"
		}
		known[category] += float64(n)
	}
	for category, n := range known {
		RecordsTotal.WithLabelValues(category).Set(n)
	}

	logging.Debug("Metrics collected: records=%d", total)
}
