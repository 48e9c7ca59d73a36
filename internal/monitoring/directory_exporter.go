package monitoring

import (
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/pkg/logger"
)

// DirectoryStats aggregates a snapshot per region
type DirectoryStats struct {
	Servers map[string]int
	Players map[string]int
}

// Aggregate counts servers and players (queue included) per region
func Aggregate(servers []models.ServerRecord) DirectoryStats {
	stats := DirectoryStats{
		Servers: make(map[string]int),
		Players: make(map[string]int),
	}
	for _, server := range servers {
		stats.Servers[server.Region]++
		stats.Players[server.Region] += server.Players + server.QueuePlayers
	}
	return stats
}

// CollectDirectory exports the per-region gauges for a fresh snapshot.
// Regions that disappeared since the previous snapshot are reset.
func CollectDirectory(servers []models.ServerRecord) DirectoryStats {
	stats := Aggregate(servers)

	DirectoryServers.Reset()
	DirectoryPlayers.Reset()
	for region, count := range stats.Servers {
		DirectoryServers.WithLabelValues(region).Set(float64(count))
		DirectoryPlayers.WithLabelValues(region).Set(float64(stats.Players[region]))
	}

	logger.Debug("Directory metrics collected", map[string]interface{}{
		"servers": len(servers),
		"regions": len(stats.Servers),
	})

	return stats
}
