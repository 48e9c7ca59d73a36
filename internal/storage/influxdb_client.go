package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/serverwatch/notifier/pkg/logger"
)

const measurement = "notifier_event"

// EventData is a generic event structure that doesn't depend on internal/events
type EventData struct {
	ID           string
	Type         string
	Timestamp    time.Time
	Source       string
	ServerName   string
	SubscriberID string
	Data         map[string]interface{}
}

// EventFilters for querying events
type EventFilters struct {
	Types        []string
	ServerName   string
	SubscriberID string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
}

// InfluxDBClient manages connection to InfluxDB for time-series event storage
type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	queryAPI api.QueryAPI
	org      string
	bucket   string
}

// InfluxDBConfig holds InfluxDB connection configuration
type InfluxDBConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// NewInfluxDBClient creates a new InfluxDB client and checks the server health
func NewInfluxDBClient(config InfluxDBConfig) (*InfluxDBClient, error) {
	client := influxdb2.NewClient(config.URL, config.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	if health.Status != "pass" {
		client.Close()
		message := ""
		if health.Message != nil {
			message = *health.Message
		}
		return nil, fmt.Errorf("InfluxDB health check failed: %s", message)
	}

	logger.Info("InfluxDB connection established", map[string]interface{}{
		"url":    config.URL,
		"org":    config.Org,
		"bucket": config.Bucket,
	})

	writeAPI := client.WriteAPI(config.Org, config.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Error("InfluxDB write failed", err, nil)
		}
	}()

	return &InfluxDBClient{
		client:   client,
		writeAPI: writeAPI,
		queryAPI: client.QueryAPI(config.Org),
		org:      config.Org,
		bucket:   config.Bucket,
	}, nil
}

// WriteEvent queues an event as a time-series point. Writes are batched by the
// client and flushed in the background.
func (c *InfluxDBClient) WriteEvent(event EventData) error {
	c.writeAPI.WritePoint(eventPoint(event))
	return nil
}

// eventPoint maps an event onto a point: low-cardinality attributes become
// tags, everything else fields.
func eventPoint(event EventData) *write.Point {
	fields := make(map[string]interface{}, len(event.Data)+3)
	for k, v := range event.Data {
		fields[k] = v
	}
	fields["event_id"] = event.ID
	fields["server_name"] = event.ServerName
	fields["subscriber_id"] = event.SubscriberID

	return influxdb2.NewPoint(
		measurement,
		map[string]string{
			"event_type": event.Type,
			"source":     event.Source,
		},
		fields,
		event.Timestamp,
	)
}

// Flush ensures all pending writes are sent to InfluxDB
func (c *InfluxDBClient) Flush() {
	c.writeAPI.Flush()
}

// QueryEvents queries events from InfluxDB with filters
func (c *InfluxDBClient) QueryEvents(ctx context.Context, filters EventFilters) ([]EventData, error) {
	result, err := c.queryAPI.Query(ctx, buildFluxQuery(c.bucket, filters))
	if err != nil {
		return nil, fmt.Errorf("failed to query InfluxDB: %w", err)
	}
	defer result.Close()

	var eventsList []EventData
	for result.Next() {
		record := result.Record()

		event := EventData{
			ID:           stringValue(record.ValueByKey("event_id")),
			Type:         stringValue(record.ValueByKey("event_type")),
			Timestamp:    record.Time(),
			Source:       stringValue(record.ValueByKey("source")),
			ServerName:   stringValue(record.ValueByKey("server_name")),
			SubscriberID: stringValue(record.ValueByKey("subscriber_id")),
			Data:         make(map[string]interface{}),
		}

		for k, v := range record.Values() {
			if strings.HasPrefix(k, "_") || reservedColumns[k] {
				continue
			}
			event.Data[k] = v
		}

		eventsList = append(eventsList, event)

		if filters.Limit > 0 && len(eventsList) >= filters.Limit {
			break
		}
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}

	return eventsList, nil
}

var reservedColumns = map[string]bool{
	"result": true, "table": true, "event_id": true, "event_type": true,
	"source": true, "server_name": true, "subscriber_id": true,
}

// buildFluxQuery builds a Flux query from filters
func buildFluxQuery(bucket string, filters EventFilters) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)", strconv.Quote(bucket))

	if !filters.StartTime.IsZero() {
		fmt.Fprintf(&b, "\n  |> range(start: %s", filters.StartTime.UTC().Format(time.RFC3339))
		if !filters.EndTime.IsZero() {
			fmt.Fprintf(&b, ", stop: %s", filters.EndTime.UTC().Format(time.RFC3339))
		}
		b.WriteString(")")
	} else {
		b.WriteString("\n  |> range(start: -24h)")
	}

	fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r._measurement == %s)", strconv.Quote(measurement))

	if len(filters.Types) > 0 {
		clauses := make([]string, len(filters.Types))
		for i, eventType := range filters.Types {
			clauses[i] = "r.event_type == " + strconv.Quote(eventType)
		}
		fmt.Fprintf(&b, "\n  |> filter(fn: (r) => %s)", strings.Join(clauses, " or "))
	}

	b.WriteString("\n  |> pivot(rowKey: [\"_time\"], columnKey: [\"_field\"], valueColumn: \"_value\")")

	if filters.ServerName != "" {
		fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r.server_name == %s)", strconv.Quote(filters.ServerName))
	}
	if filters.SubscriberID != "" {
		fmt.Fprintf(&b, "\n  |> filter(fn: (r) => r.subscriber_id == %s)", strconv.Quote(filters.SubscriberID))
	}

	b.WriteString("\n  |> sort(columns: [\"_time\"], desc: true)")

	if filters.Limit > 0 {
		fmt.Fprintf(&b, "\n  |> limit(n: %d)", filters.Limit)
	}

	return b.String()
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Close closes the InfluxDB client and flushes pending writes
func (c *InfluxDBClient) Close() {
	c.writeAPI.Flush()
	c.client.Close()
	logger.Info("InfluxDB client closed", nil)
}
