package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
)

// ServerFetcher performs one fetch attempt of the server list
type ServerFetcher interface {
	FetchServers(ctx context.Context) ([]models.ServerRecord, error)
}

// DirectoryConfig tunes the retry behaviour of a refresh
type DirectoryConfig struct {
	RetryCount    int
	RetryInterval time.Duration
	FetchTimeout  time.Duration
}

// DefaultDirectoryConfig returns 3 attempts, 5s apart, 10s each
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		RetryCount:    3,
		RetryInterval: 5 * time.Second,
		FetchTimeout:  10 * time.Second,
	}
}

// DirectoryStatus describes the retained snapshot
type DirectoryStatus struct {
	Servers       int       `json:"servers"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastFailureAt time.Time `json:"last_failure_at"`
	LastError     string    `json:"last_error,omitempty"`
	Stale         bool      `json:"stale"`
}

// DirectoryService keeps the latest server list. A refresh that exhausts its
// retries raises one alert and keeps the previous snapshot.
type DirectoryService struct {
	fetcher   ServerFetcher
	alerter   Alerter
	publisher events.Publisher
	config    DirectoryConfig

	mu       sync.RWMutex
	snapshot []models.ServerRecord
	status   DirectoryStatus
}

// NewDirectoryService creates a directory with an empty snapshot
func NewDirectoryService(fetcher ServerFetcher, alerter Alerter, publisher events.Publisher, config DirectoryConfig) *DirectoryService {
	defaults := DefaultDirectoryConfig()
	if config.RetryCount < 1 {
		config.RetryCount = defaults.RetryCount
	}
	if config.RetryInterval < 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	return &DirectoryService{
		fetcher:   fetcher,
		alerter:   alerter,
		publisher: publisher,
		config:    config,
	}
}

// Refresh fetches the server list, retrying failed attempts. On success the
// snapshot is replaced; on exhaustion the previous snapshot is kept and the
// returned error wraps models.ErrFetchExhausted.
func (s *DirectoryService) Refresh(ctx context.Context) ([]models.ServerRecord, error) {
	attempts := 0
	operation := func() ([]models.ServerRecord, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
		defer cancel()

		servers, err := s.fetcher.FetchServers(attemptCtx)
		if err != nil {
			monitoring.FetchAttemptsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		monitoring.FetchAttemptsTotal.WithLabelValues("success").Inc()
		return servers, nil
	}

	servers, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.config.RetryInterval)),
		backoff.WithMaxTries(uint(s.config.RetryCount)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Server list fetch failed, retrying", map[string]interface{}{
				"attempt":  attempts,
				"retry_in": next.String(),
				"error":    err.Error(),
			})
		}),
	)
	if err != nil {
		return s.exhausted(ctx, attempts, err)
	}

	s.mu.Lock()
	s.snapshot = servers
	s.status.Servers = len(servers)
	s.status.LastSuccessAt = time.Now()
	s.status.Stale = false
	s.mu.Unlock()

	monitoring.CollectDirectory(servers)
	return servers, nil
}

func (s *DirectoryService) exhausted(ctx context.Context, attempts int, cause error) ([]models.ServerRecord, error) {
	s.mu.Lock()
	s.status.LastFailureAt = time.Now()
	s.status.LastError = cause.Error()
	s.status.Stale = true
	previous := s.snapshot
	s.mu.Unlock()

	monitoring.FetchExhaustedTotal.Inc()
	logger.Error("Failed to fetch server list", cause, map[string]interface{}{
		"attempts":       attempts,
		"stale_snapshot": len(previous),
	})

	s.alerter.Raise(ctx, fmt.Sprintf("Failed to fetch server list after %d retries.", attempts), map[string]interface{}{
		"error": cause.Error(),
	})
	events.PublishFetchExhausted(s.publisher, attempts, cause)

	return previous, fmt.Errorf("%w after %d attempts: %v", models.ErrFetchExhausted, attempts, cause)
}

// Snapshot returns the latest retained server list
func (s *DirectoryService) Snapshot() []models.ServerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Status describes the retained snapshot
func (s *DirectoryService) Status() DirectoryStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
