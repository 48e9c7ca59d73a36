package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/serverwatch/notifier/internal/monitoring"
)

// MatchEngine decides which subscribers hear about which servers and keeps the
// per-subscriber record of identities already delivered.
type MatchEngine struct {
	mu       sync.Mutex
	notified map[string]map[models.ServerIdentity]struct{}
	pending  map[pendingKey]struct{}
}

type pendingKey struct {
	subscriber string
	identity   models.ServerIdentity
}

// NewMatchEngine creates an engine with an empty notified set
func NewMatchEngine() *MatchEngine {
	return &MatchEngine{
		notified: make(map[string]map[models.ServerIdentity]struct{}),
		pending:  make(map[pendingKey]struct{}),
	}
}

// Evaluate returns one event per matched server, in snapshot order, listing
// every subscriber with a matching filter that has not been notified of the
// server's identity yet. Recipients are sorted. A server listed twice under
// the same identity is only reported once.
func (e *MatchEngine) Evaluate(snapshot []models.ServerRecord, subscriptions map[string][]models.Filter) []models.MatchEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	subscribers := make([]string, 0, len(subscriptions))
	for id := range subscriptions {
		subscribers = append(subscribers, id)
	}
	sort.Strings(subscribers)

	e.pending = make(map[pendingKey]struct{})
	seen := make(map[models.ServerIdentity]struct{}, len(snapshot))
	var matches []models.MatchEvent

	for _, server := range snapshot {
		identity := models.Identify(server)
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		var recipients []string
		for _, subscriber := range subscribers {
			if _, done := e.notified[subscriber][identity]; done {
				continue
			}
			if anyMatch(subscriptions[subscriber], server) {
				recipients = append(recipients, subscriber)
				e.pending[pendingKey{subscriber, identity}] = struct{}{}
			}
		}

		if len(recipients) > 0 {
			matches = append(matches, models.MatchEvent{
				Server:     server,
				Identity:   identity,
				Recipients: recipients,
			})
		}
	}

	monitoring.MatchEventsTotal.Add(float64(len(matches)))
	return matches
}

func anyMatch(filters []models.Filter, server models.ServerRecord) bool {
	for _, filter := range filters {
		if filter.Apply(server) {
			return true
		}
	}
	return false
}

// Record marks successfully delivered pairs as notified. Failed results are
// left unmarked so the server is offered again next tick. A result for a pair
// the last Evaluate did not produce means the tick state is corrupt and
// panics.
func (e *MatchEngine) Record(results []models.DeliveryResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, result := range results {
		key := pendingKey{result.Subscriber, result.Identity}
		if _, ok := e.pending[key]; !ok {
			panic(fmt.Sprintf("delivery result for unevaluated pair (subscriber %s, identity %s)", result.Subscriber, result.Identity))
		}
		delete(e.pending, key)

		if !result.Delivered() {
			continue
		}
		set, ok := e.notified[result.Subscriber]
		if !ok {
			set = make(map[models.ServerIdentity]struct{})
			e.notified[result.Subscriber] = set
		}
		set[result.Identity] = struct{}{}
	}
}

// Prune drops every notified identity that is absent from snapshot, and
// subscribers left with nothing.
func (e *MatchEngine) Prune(snapshot []models.ServerRecord) {
	present := make(map[models.ServerIdentity]struct{}, len(snapshot))
	for _, server := range snapshot {
		present[models.Identify(server)] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for subscriber, set := range e.notified {
		for identity := range set {
			if _, ok := present[identity]; !ok {
				delete(set, identity)
			}
		}
		if len(set) == 0 {
			delete(e.notified, subscriber)
		}
	}

	monitoring.NotifiedPairs.Set(float64(e.countLocked()))
}

// IsNotified reports whether subscriber was already told about identity
func (e *MatchEngine) IsNotified(subscriber string, identity models.ServerIdentity) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.notified[subscriber][identity]
	return ok
}

// NotifiedCount returns the total number of (subscriber, identity) pairs
func (e *MatchEngine) NotifiedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countLocked()
}

func (e *MatchEngine) countLocked() int {
	total := 0
	for _, set := range e.notified {
		total += len(set)
	}
	return total
}
