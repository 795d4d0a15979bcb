/*
scheduler.go - Stock sampling and sweep scheduler

PURPOSE:
  Runs two periodic jobs in one background goroutine:
  1. Records every item's current quantity as a historical sample, feeding
     the threshold advisor.
  2. Sweeps the ledger for items mutated since the previous tick and
     re-evaluates only those, using the ledger's revision markers.

CONFIGURATION:
  - Interval: tick period (default: 15 minutes)

USAGE:
  scheduler := NewSampleScheduler(engine, samples, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - stock/ledger.go: ModifiedSince revision markers
  - stock/advisor.go: Consumes the recorded samples
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/stock-engine/stock"
)

// SampleScheduler periodically records quantity samples and sweeps
// modified items.
type SampleScheduler struct {
	Engine   *stock.Engine
	Samples  stock.SampleStore
	Interval time.Duration
	Logger   *logrus.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSampleScheduler creates a scheduler with the default interval.
func NewSampleScheduler(engine *stock.Engine, samples stock.SampleStore, logger *logrus.Logger) *SampleScheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &SampleScheduler{
		Engine:   engine,
		Samples:  samples,
		Interval: 15 * time.Minute,
		Logger:   logger,
	}
}

// Start begins the background loop.
func (s *SampleScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)
	go s.run()

	s.Logger.WithField("interval", s.Interval).Info("sample scheduler started")
}

// Stop halts the background loop and waits for it to exit. Safe to call
// without a prior Start, and more than once.
func (s *SampleScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	close(s.stop)
	s.wg.Wait()
	s.Logger.Info("sample scheduler stopped")
}

func (s *SampleScheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

// tick records one sample per known item and sweeps modified items.
func (s *SampleScheduler) tick() {
	ctx := context.Background()
	now := time.Now()

	snapshot := s.Engine.Ledger().Snapshot()
	for itemID, quantity := range snapshot {
		sample := stock.HistoricalSample{ItemID: itemID, Timestamp: now, Quantity: quantity}
		if err := s.Samples.RecordSample(ctx, sample); err != nil {
			s.Logger.WithError(err).WithField("item", itemID).Error("record sample")
		}
	}

	changes := s.Engine.Sweep()
	if len(changes) > 0 {
		s.Logger.WithFields(logrus.Fields{
			"items":   len(snapshot),
			"changed": len(changes),
		}).Info("sweep completed")
	}
}
