package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/middleware"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/service"
)

// EventQuerier reads stored audit events
type EventQuerier interface {
	Query(filters events.EventFilters) ([]events.Event, error)
}

// ServerHandler serves read-only views of the poll loop
type ServerHandler struct {
	notifier *service.NotifierService
	store    *service.SubscriptionStore
	engine   *service.MatchEngine
	events   EventQuerier
}

// NewServerHandler creates a new server handler
func NewServerHandler(notifier *service.NotifierService, store *service.SubscriptionStore, engine *service.MatchEngine, querier EventQuerier) *ServerHandler {
	return &ServerHandler{
		notifier: notifier,
		store:    store,
		engine:   engine,
		events:   querier,
	}
}

// ListServers handles GET /api/servers
// Query parameters map, region, gamemode, min_players and max_players narrow
// the snapshot with the same semantics as a subscription filter.
func (h *ServerHandler) ListServers(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewBadRequestError(err.Error()))
		return
	}

	snapshot := h.notifier.Directory().Snapshot()
	servers := make([]models.ServerRecord, 0, len(snapshot))
	for _, server := range snapshot {
		if filter.Apply(server) {
			servers = append(servers, server)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"servers": servers,
		"count":   len(servers),
		"total":   len(snapshot),
	})
}

func filterFromQuery(c *gin.Context) (models.Filter, error) {
	var filter models.Filter
	if v := c.Query("map"); v != "" {
		filter.Map = models.StringPtr(v)
	}
	if v := c.Query("region"); v != "" {
		filter.Region = models.StringPtr(v)
	}
	if v := c.Query("gamemode"); v != "" {
		filter.Gamemode = models.StringPtr(v)
	}
	for key, target := range map[string]**int{
		"min_players": &filter.MinPlayers,
		"max_players": &filter.MaxPlayers,
	} {
		if v := c.Query(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return filter, fmt.Errorf("%s must be an integer", key)
			}
			*target = models.IntPtr(n)
		}
	}
	return filter, nil
}

// GetStatus handles GET /api/status
func (h *ServerHandler) GetStatus(c *gin.Context) {
	subscribers, filters := h.store.Counts()

	response := gin.H{
		"poll_interval": h.notifier.Interval().String(),
		"directory":     h.notifier.Directory().Status(),
		"subscribers":   subscribers,
		"filters":       filters,
		"notified":      h.engine.NotifiedCount(),
	}
	if report, ok := h.notifier.LastReport(); ok {
		response["last_tick"] = report
	}

	c.JSON(http.StatusOK, response)
}

// ListEvents handles GET /api/events
func (h *ServerHandler) ListEvents(c *gin.Context) {
	filters := events.EventFilters{
		ServerName:   c.Query("server"),
		SubscriberID: c.Query("subscriber"),
		Limit:        100,
	}
	for _, t := range c.QueryArray("type") {
		filters.Types = append(filters.Types, events.EventType(t))
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			middleware.HandleAppError(c, middleware.NewBadRequestError("limit must be a positive integer"))
			return
		}
		filters.Limit = limit
	}
	if v := c.Query("since"); v != "" {
		since, err := time.ParseDuration(v)
		if err != nil {
			middleware.HandleAppError(c, middleware.NewBadRequestError("since must be a duration such as 1h"))
			return
		}
		filters.StartTime = time.Now().Add(-since)
	}

	result, err := h.events.Query(filters)
	if err != nil {
		middleware.HandleAppError(c, middleware.NewInternalError(err))
		return
	}
	if result == nil {
		result = []events.Event{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": result,
		"count":  len(result),
	})
}
