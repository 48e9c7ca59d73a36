package service

import (
	"context"
	"fmt"

	"github.com/serverwatch/notifier/internal/events"
	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
	"github.com/serverwatch/notifier/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// NotificationSink delivers a matched server to one recipient
type NotificationSink interface {
	Deliver(ctx context.Context, recipient string, server models.ServerRecord) error
}

// BatchSink delivers a whole match event at once, e.g. a single channel
// message mentioning every recipient. Its outcome applies to all recipients.
type BatchSink interface {
	DeliverBatch(ctx context.Context, event models.MatchEvent) error
}

// DefaultDeliveryConcurrency bounds concurrent sink calls within one tick
const DefaultDeliveryConcurrency = 8

// Dispatcher fans match events out to a sink with bounded concurrency. Every
// recipient gets exactly one result; failures never affect other recipients.
type Dispatcher struct {
	sink        NotificationSink
	batch       BatchSink
	concurrency int
	publisher   events.Publisher
}

// NewDispatcher creates a dispatcher delivering to each recipient separately
func NewDispatcher(sink NotificationSink, concurrency int, publisher events.Publisher) *Dispatcher {
	return &Dispatcher{sink: sink, concurrency: boundConcurrency(concurrency), publisher: publisher}
}

// NewBatchDispatcher creates a dispatcher delivering one batch per event
func NewBatchDispatcher(sink BatchSink, concurrency int, publisher events.Publisher) *Dispatcher {
	return &Dispatcher{batch: sink, concurrency: boundConcurrency(concurrency), publisher: publisher}
}

func boundConcurrency(n int) int {
	if n < 1 {
		return DefaultDeliveryConcurrency
	}
	return n
}

// Deliver attempts every (event, recipient) pair once and returns one result
// per pair, in event order and recipient order. It blocks until all attempts
// are done.
func (d *Dispatcher) Deliver(ctx context.Context, matches []models.MatchEvent) []models.DeliveryResult {
	total := 0
	for _, event := range matches {
		total += len(event.Recipients)
	}
	results := make([]models.DeliveryResult, total)

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	offset := 0
	for _, event := range matches {
		event := event
		start := offset
		offset += len(event.Recipients)

		if d.batch != nil {
			g.Go(func() error {
				err := d.safeCall(func() error { return d.batch.DeliverBatch(ctx, event) })
				for i, recipient := range event.Recipients {
					results[start+i] = d.result(event, recipient, err)
				}
				return nil
			})
			continue
		}

		for i, recipient := range event.Recipients {
			slot, recipient := start+i, recipient
			g.Go(func() error {
				err := d.safeCall(func() error { return d.sink.Deliver(ctx, recipient, event.Server) })
				results[slot] = d.result(event, recipient, err)
				return nil
			})
		}
	}

	_ = g.Wait()
	return results
}

// safeCall turns a panicking sink into a delivery failure
func (d *Dispatcher) safeCall(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return call()
}

func (d *Dispatcher) result(event models.MatchEvent, recipient string, err error) models.DeliveryResult {
	result := models.DeliveryResult{
		Subscriber: recipient,
		Identity:   event.Identity,
		Server:     event.Server.Name,
		Err:        err,
	}

	if err != nil {
		monitoring.DeliveriesTotal.WithLabelValues("failed").Inc()
		logger.Warn("Delivery failed", map[string]interface{}{
			"subscriber_id": recipient,
			"server_name":   event.Server.Name,
			"map":           event.Server.Map,
			"identity":      event.Identity.String(),
			"error":         err.Error(),
		})
		events.PublishMatchFailed(d.publisher, recipient, event.Server.Name, event.Identity.String(), err)
		return result
	}

	monitoring.DeliveriesTotal.WithLabelValues("delivered").Inc()
	events.PublishMatchDelivered(d.publisher, recipient, event.Server.Name, event.Server.Map, event.Identity.String())
	return result
}
