package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
)

// DefaultPollInterval is the time between two ticks
const DefaultPollInterval = 5 * time.Second

// TickReport summarizes one fetch, match, dispatch and prune cycle
type TickReport struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Servers    int           `json:"servers"`
	Stale      bool          `json:"stale"`
	FetchError string        `json:"fetch_error,omitempty"`
	Matches    int           `json:"matches"`
	Delivered  int           `json:"delivered"`
	Failed     int           `json:"failed"`
	Notified   int           `json:"notified"`
}

// NotifierService runs the poll loop. Ticks execute one at a time inside the
// loop goroutine, so a slow upstream delays the next tick instead of stacking
// them.
type NotifierService struct {
	directory  *DirectoryService
	store      *SubscriptionStore
	engine     *MatchEngine
	dispatcher *Dispatcher
	interval   time.Duration

	tickMu   sync.Mutex
	reportMu sync.RWMutex
	last     *TickReport

	stopChan  chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// NewNotifierService wires the tick pipeline
func NewNotifierService(directory *DirectoryService, store *SubscriptionStore, engine *MatchEngine, dispatcher *Dispatcher, interval time.Duration) *NotifierService {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &NotifierService{
		directory:  directory,
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		interval:   interval,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the background poll loop with an immediate first tick
func (s *NotifierService) Start() {
	s.startOnce.Do(func() {
		s.reportMu.Lock()
		s.started = true
		s.reportMu.Unlock()

		logger.Info("NotifierService started", map[string]interface{}{
			"poll_interval": s.interval.String(),
		})
		go s.pollWorker()
	})
}

// Stop ends the loop and waits for an in-flight tick to finish
func (s *NotifierService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)

		s.reportMu.RLock()
		started := s.started
		s.reportMu.RUnlock()
		if started {
			<-s.done
		}
		logger.Info("NotifierService stopped", nil)
	})
}

// pollWorker runs ticks until stopped
func (s *NotifierService) pollWorker() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(context.Background())
	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Tick runs one complete cycle. Concurrent callers are serialized. A failed
// fetch still matches against the retained snapshot.
func (s *NotifierService) Tick(ctx context.Context) TickReport {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	report := TickReport{StartedAt: time.Now()}

	snapshot, err := s.directory.Refresh(ctx)
	if err != nil {
		report.Stale = true
		report.FetchError = err.Error()
		if !errors.Is(err, models.ErrFetchExhausted) {
			logger.Error("Unexpected refresh error", err, nil)
		}
	}
	report.Servers = len(snapshot)

	matches := s.engine.Evaluate(snapshot, s.store.Snapshot())
	report.Matches = len(matches)

	if len(matches) > 0 {
		results := s.dispatcher.Deliver(ctx, matches)
		s.engine.Record(results)
		for _, result := range results {
			if result.Delivered() {
				report.Delivered++
			} else {
				report.Failed++
			}
		}
	}

	s.engine.Prune(snapshot)
	report.Notified = s.engine.NotifiedCount()
	report.Duration = time.Since(report.StartedAt)

	outcome := "ok"
	if report.Stale {
		outcome = "stale"
	}
	monitoring.TicksTotal.WithLabelValues(outcome).Inc()
	monitoring.TickDuration.Observe(report.Duration.Seconds())

	if report.Matches > 0 || report.Stale {
		logger.Info("Tick completed", map[string]interface{}{
			"servers":     report.Servers,
			"matches":     report.Matches,
			"delivered":   report.Delivered,
			"failed":      report.Failed,
			"stale":       report.Stale,
			"duration_ms": report.Duration.Milliseconds(),
		})
	}

	s.reportMu.Lock()
	s.last = &report
	s.reportMu.Unlock()

	return report
}

// LastReport returns the report of the most recent tick, if any
func (s *NotifierService) LastReport() (TickReport, bool) {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	if s.last == nil {
		return TickReport{}, false
	}
	return *s.last, true
}

// Interval returns the poll interval
func (s *NotifierService) Interval() time.Duration {
	return s.interval
}

// Directory exposes the server directory for read-only views
func (s *NotifierService) Directory() *DirectoryService {
	return s.directory
}
