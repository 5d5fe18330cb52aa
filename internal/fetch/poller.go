package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MinPollInterval is the minimum allowed interval between polling passes.
const MinPollInterval = 15 * time.Second

// Updater is anything a Poller can drive.
type Updater interface {
	Name() string
	AutoLoad() bool
	UpdateIfNeeded(ctx context.Context, force bool) error
}

// Poller runs continuous polling.
type Poller struct {
	targets  []Updater
	interval time.Duration
	log      logrus.FieldLogger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a background poller over the auto-loading targets. Each pass
// calls UpdateIfNeeded without forcing, so the targets' own TTLs decide what runs.
func NewPoller(interval time.Duration, log logrus.FieldLogger, targets ...Updater) *Poller {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	var active []Updater
	for _, t := range targets {
		if t.AutoLoad() {
			active = append(active, t)
		}
	}
	return &Poller{
		targets:  active,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Poll runs one pass over every target.
func (p *Poller) Poll(ctx context.Context) {
	failed := 0
	for _, t := range p.targets {
		if err := t.UpdateIfNeeded(ctx, false); err != nil {
			failed++
		}
	}
	p.log.WithFields(logrus.Fields{"targets": len(p.targets), "failed": failed}).Debug("poll complete")
}

// Start begins the polling loop.
func (p *Poller) Start() {
	if len(p.targets) == 0 {
		p.log.Info("Poller: nothing to poll")
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			p.Poll(ctx)
			cancel()

			select {
			case <-p.stopChan:
				return
			case <-time.After(p.interval):
			}
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
