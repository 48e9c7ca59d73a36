package events

// Publisher is the narrow publishing surface the services depend on
type Publisher interface {
	Publish(event Event)
}

// PublishFilterAdded records a filter registration
func PublishFilterAdded(p Publisher, subscriberID string, index int, filter string) {
	p.Publish(Event{
		Type:         EventFilterAdded,
		Source:       "subscription_store",
		SubscriberID: subscriberID,
		Data: map[string]interface{}{
			"index":  index,
			"filter": filter,
		},
	})
}

// PublishFilterRemoved records a filter removal
func PublishFilterRemoved(p Publisher, subscriberID string, index int) {
	p.Publish(Event{
		Type:         EventFilterRemoved,
		Source:       "subscription_store",
		SubscriberID: subscriberID,
		Data: map[string]interface{}{
			"index": index,
		},
	})
}

// PublishFiltersCleared records a bulk clear
func PublishFiltersCleared(p Publisher, subscriberID string, count int) {
	p.Publish(Event{
		Type:         EventFiltersCleared,
		Source:       "subscription_store",
		SubscriberID: subscriberID,
		Data: map[string]interface{}{
			"count": count,
		},
	})
}

// PublishMatchDelivered records a successful delivery to one subscriber
func PublishMatchDelivered(p Publisher, subscriberID, serverName, mapName, identity string) {
	p.Publish(Event{
		Type:         EventMatchDelivered,
		Source:       "dispatcher",
		ServerName:   serverName,
		SubscriberID: subscriberID,
		Data: map[string]interface{}{
			"map":      mapName,
			"identity": identity,
		},
	})
}

// PublishMatchFailed records a failed delivery to one subscriber
func PublishMatchFailed(p Publisher, subscriberID, serverName, identity string, err error) {
	p.Publish(Event{
		Type:         EventMatchFailed,
		Source:       "dispatcher",
		ServerName:   serverName,
		SubscriberID: subscriberID,
		Data: map[string]interface{}{
			"identity": identity,
			"error":    err.Error(),
		},
	})
}

// PublishFetchExhausted records a refresh that used up its retry budget
func PublishFetchExhausted(p Publisher, attempts int, err error) {
	p.Publish(Event{
		Type:   EventFetchExhausted,
		Source: "directory_service",
		Data: map[string]interface{}{
			"attempts": attempts,
			"error":    err.Error(),
		},
	})
}

// PublishAlertRaised records an operational alert
func PublishAlertRaised(p Publisher, message string, delivered bool) {
	p.Publish(Event{
		Type:   EventAlertRaised,
		Source: "alert_service",
		Data: map[string]interface{}{
			"message":   message,
			"delivered": delivered,
		},
	})
}
