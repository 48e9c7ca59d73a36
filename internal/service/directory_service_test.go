package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{RetryCount: 3, RetryInterval: time.Millisecond, FetchTimeout: time.Second}
}

func TestDirectoryService_Refresh(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.script(fetchResponse{servers: []models.ServerRecord{server1("Basra")}})
	alerter := &recordingAlerter{}
	directory := NewDirectoryService(fetcher, alerter, testBus(), fastDirectoryConfig())

	servers, err := directory.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, servers, 1)
	assert.Equal(t, servers, directory.Snapshot())
	assert.Equal(t, 1, fetcher.callCount())
	assert.Empty(t, alerter.raised())

	status := directory.Status()
	assert.Equal(t, 1, status.Servers)
	assert.False(t, status.Stale)
}

func TestDirectoryService_RetriesTransientFailures(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.script(
		fetchResponse{err: errors.New("connection reset")},
		fetchResponse{err: errors.New("502 bad gateway")},
		fetchResponse{servers: []models.ServerRecord{server1("Basra")}},
	)
	alerter := &recordingAlerter{}
	directory := NewDirectoryService(fetcher, alerter, testBus(), fastDirectoryConfig())

	servers, err := directory.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, servers, 1)
	assert.Equal(t, 3, fetcher.callCount())
	assert.Empty(t, alerter.raised())
}

func TestDirectoryService_RetryExhaustion(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.script(fetchResponse{servers: []models.ServerRecord{server1("Basra")}})
	alerter := &recordingAlerter{}
	directory := NewDirectoryService(fetcher, alerter, testBus(), fastDirectoryConfig())

	_, err := directory.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.script(fetchResponse{err: errors.New("upstream down")})

	servers, err := directory.Refresh(context.Background())
	assert.ErrorIs(t, err, models.ErrFetchExhausted)
	assert.Equal(t, 3, fetcher.callCount(), "exactly three attempts")
	assert.Equal(t, []string{"Failed to fetch server list after 3 retries."}, alerter.raised(), "alert raised exactly once")
	assert.Equal(t, []models.ServerRecord{server1("Basra")}, servers, "previous snapshot is returned")
	assert.Equal(t, []models.ServerRecord{server1("Basra")}, directory.Snapshot(), "previous snapshot is kept")

	status := directory.Status()
	assert.True(t, status.Stale)
	assert.Contains(t, status.LastError, "upstream down")
}

func TestDirectoryService_ExhaustionWithoutSnapshot(t *testing.T) {
	fetcher := &scriptedFetcher{}
	fetcher.script(fetchResponse{err: errors.New("dns failure")})
	alerter := &recordingAlerter{}
	directory := NewDirectoryService(fetcher, alerter, testBus(), fastDirectoryConfig())

	servers, err := directory.Refresh(context.Background())
	assert.ErrorIs(t, err, models.ErrFetchExhausted)
	assert.Empty(t, servers)
	assert.Len(t, alerter.raised(), 1)
}

func TestNewDirectoryService_Defaults(t *testing.T) {
	directory := NewDirectoryService(&scriptedFetcher{}, &recordingAlerter{}, testBus(), DirectoryConfig{RetryInterval: -1})
	assert.Equal(t, DefaultDirectoryConfig(), directory.config)
}
