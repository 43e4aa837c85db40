package runner

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// ProgressReporter periodically logs how far a run has progressed. The
// driver's counters are atomics, so reading them from the ticker
// goroutine while a run is in flight is safe.
type ProgressReporter struct {
	driver   *Driver
	log      log.Logger
	interval time.Duration
	total    int
	stop     chan struct{}
	done     chan struct{}
}

// NewProgressReporter creates a reporter for the given driver. total is
// the number of tests the run is expected to process.
func NewProgressReporter(driver *Driver, logger log.Logger, interval time.Duration, total int) *ProgressReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &ProgressReporter{
		driver:   driver,
		log:      logger,
		interval: interval,
		total:    total,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins periodic progress logging in a background goroutine.
func (p *ProgressReporter) Start() {
	go p.loop()
}

// Stop halts progress logging and waits for the loop to exit.
func (p *ProgressReporter) Stop() {
	close(p.stop)
	<-p.done
}

func (p *ProgressReporter) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.log.Info("Run in progress",
				"completed", p.driver.Completed(),
				"total", p.total,
				"failed", p.driver.FailedTests())
		case <-p.stop:
			return
		}
	}
}
