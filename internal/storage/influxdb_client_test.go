package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildFluxQuery(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	query := buildFluxQuery("events", EventFilters{
		Types:        []string{"match.delivered", "match.failed"},
		SubscriberID: "42",
		StartTime:    start,
		Limit:        10,
	})

	assert.True(t, strings.HasPrefix(query, `from(bucket: "events")`))
	assert.Contains(t, query, "range(start: 2026-01-02T03:04:05Z)")
	assert.Contains(t, query, `r.event_type == "match.delivered" or r.event_type == "match.failed"`)
	assert.Contains(t, query, `r.subscriber_id == "42"`)
	assert.NotContains(t, query, "r.server_name")
	assert.Contains(t, query, "limit(n: 10)")
}

func TestBuildFluxQuery_Defaults(t *testing.T) {
	query := buildFluxQuery("events", EventFilters{})

	assert.Contains(t, query, "range(start: -24h)")
	assert.NotContains(t, query, "limit(")
}

func TestBuildFluxQuery_QuotesValues(t *testing.T) {
	query := buildFluxQuery("events", EventFilters{ServerName: `evil" or true or "`})
	assert.Contains(t, query, `r.server_name == "evil\" or true or \""`)
}

func TestEventPoint(t *testing.T) {
	ts := time.Now()
	point := eventPoint(EventData{
		ID:           "id-1",
		Type:         "match.delivered",
		Timestamp:    ts,
		Source:       "dispatcher",
		ServerName:   "Server1",
		SubscriberID: "42",
		Data:         map[string]interface{}{"map": "Basra"},
	})

	assert.Equal(t, measurement, point.Name())
	assert.Equal(t, ts, point.Time())

	tags := map[string]string{}
	for _, tag := range point.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"event_type": "match.delivered", "source": "dispatcher"}, tags)

	fields := map[string]interface{}{}
	for _, field := range point.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, "id-1", fields["event_id"])
	assert.Equal(t, "Server1", fields["server_name"])
	assert.Equal(t, "Basra", fields["map"])
}
