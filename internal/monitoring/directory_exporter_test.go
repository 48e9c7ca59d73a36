package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCollectDirectory(t *testing.T) {
	stats := CollectDirectory([]models.ServerRecord{
		{Name: "a", Region: "Europe_Central", Players: 10, QueuePlayers: 2},
		{Name: "b", Region: "Europe_Central", Players: 5},
		{Name: "c", Region: "Asia_Central", Players: 1},
	})

	assert.Equal(t, 2, stats.Servers["Europe_Central"])
	assert.Equal(t, 17, stats.Players["Europe_Central"])
	assert.Equal(t, float64(2), testutil.ToFloat64(DirectoryServers.WithLabelValues("Europe_Central")))
	assert.Equal(t, float64(1), testutil.ToFloat64(DirectoryPlayers.WithLabelValues("Asia_Central")))

	CollectDirectory([]models.ServerRecord{{Name: "a", Region: "Europe_Central"}})
	assert.Equal(t, 1, testutil.CollectAndCount(DirectoryServers), "stale regions are dropped")
}
