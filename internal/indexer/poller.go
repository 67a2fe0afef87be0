package indexer

import (
	"context"
	"sync"
	"time"

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Minute

// Scanner runs one full scan of the library roots.
type Scanner interface {
	Scan(ctx context.Context) ScanResult
}

// Poller runs a Scanner at startup and then every interval. At most one scan
// runs at a time; overlapping requests are skipped.
type Poller struct {
	scanner   Scanner
	interval  time.Duration
	stopChan  chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	stopOnce  sync.Once
	wg        sync.WaitGroup

	scanMu       sync.Mutex
	isScanning   bool
	lastScanTime time.Time
	lastResult   ScanResult
	scanCount    int
}

// HealthStatus contains poller health information.
type HealthStatus struct {
	Ready      bool        `json:"ready"`
	Scanning   bool        `json:"scanning"`
	StartTime  time.Time   `json:"startTime"`
	Uptime     string      `json:"uptime"`
	LastScan   time.Time   `json:"lastScan,omitempty"`
	Scans      int         `json:"scans"`
	LastResult *ScanResult `json:"lastResult,omitempty"`
}

// NewPoller creates a poller. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(scanner Scanner, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		scanner:   scanner,
		interval:  interval,
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Start runs the initial scan in the background and then polls.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logging.Info("Starting initial scan in background...")
		p.RunOnce(p.ctx)
		p.pollLoop()
	}()
}

// Stop ends the poll loop, cancels a running scan and waits for it.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.cancel()
	})
	p.wg.Wait()
}

func (p *Poller) pollLoop() {
	logging.Info("Polling library roots every %v", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic scan triggered")
			p.RunOnce(p.ctx)
		case <-p.stopChan:
			logging.Info("Polling stopped")
			return
		}
	}
}

// RunOnce performs a scan unless one is already running. It reports whether
// the scan ran.
func (p *Poller) RunOnce(ctx context.Context) (ScanResult, bool) {
	if !p.tryStartScan() {
		logging.Info("Scan already in progress, skipping...")
		return ScanResult{}, false
	}

	metrics.ScanIsRunning.Set(1)
	metrics.ScanRunsTotal.Inc()

	result := p.scanner.Scan(ctx)

	metrics.ScanIsRunning.Set(0)
	metrics.ScanDuration.Observe(result.Duration.Seconds())
	metrics.ScanLastRunTimestamp.SetToCurrentTime()

	p.finishScan(result)

	logging.Info("Scan complete: %d candidates, %d added, %d duplicates, %d races, %d rejected in %v",
		result.Candidates, result.Added, result.Duplicates, result.Races, result.Rejected, result.Duration)
	return result, true
}

// TriggerScan starts a scan in the background. It reports false when a scan
// is already running or the poller is stopped.
func (p *Poller) TriggerScan() bool {
	if p.ctx.Err() != nil || p.IsScanning() {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunOnce(p.ctx)
	}()
	return true
}

func (p *Poller) tryStartScan() bool {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	if p.isScanning {
		return false
	}
	p.isScanning = true
	return true
}

func (p *Poller) finishScan(result ScanResult) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	p.isScanning = false
	p.lastScanTime = time.Now()
	p.lastResult = result
	p.scanCount++
}

// IsScanning returns whether a scan is in progress.
func (p *Poller) IsScanning() bool {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()
	return p.isScanning
}

// LastScanTime returns when the last scan completed.
func (p *Poller) LastScanTime() time.Time {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()
	return p.lastScanTime
}

// HealthStatus returns the poller's state. The poller is ready once the
// initial scan has completed.
func (p *Poller) HealthStatus() HealthStatus {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	status := HealthStatus{
		Ready:     p.scanCount > 0,
		Scanning:  p.isScanning,
		StartTime: p.startTime,
		Uptime:    time.Since(p.startTime).String(),
		LastScan:  p.lastScanTime,
		Scans:     p.scanCount,
	}
	if p.scanCount > 0 {
		r := p.lastResult
		status.LastResult = &r
	}
	return status
}
