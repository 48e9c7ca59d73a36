package service

import (
	"testing"

	"github.com/serverwatch/notifier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliverAll(events []models.MatchEvent, failFor ...string) []models.DeliveryResult {
	failing := make(map[string]bool)
	for _, f := range failFor {
		failing[f] = true
	}
	var results []models.DeliveryResult
	for _, event := range events {
		for _, recipient := range event.Recipients {
			result := models.DeliveryResult{Subscriber: recipient, Identity: event.Identity, Server: event.Server.Name}
			if failing[recipient] {
				result.Err = errUnreachable
			}
			results = append(results, result)
		}
	}
	return results
}

func TestMatchEngine_EvaluateGroupsRecipientsPerServer(t *testing.T) {
	engine := NewMatchEngine()
	other := models.ServerRecord{Name: "Server2", Map: "Valley", Region: "Asia_Central", Players: 3, MaxPlayers: 32}
	snapshot := []models.ServerRecord{server1("Basra"), other}

	subscriptions := map[string][]models.Filter{
		"zed":    {{MinPlayers: models.IntPtr(50)}},
		"amy":    {{Region: models.StringPtr("Europe_Central")}, {Map: models.StringPtr("Valley")}},
		"nobody": {{Map: models.StringPtr("Isle")}},
	}

	events := engine.Evaluate(snapshot, subscriptions)
	require.Len(t, events, 2)

	assert.Equal(t, "Server1", events[0].Server.Name)
	assert.Equal(t, []string{"amy", "zed"}, events[0].Recipients)
	assert.Equal(t, models.Identify(server1("Basra")), events[0].Identity)

	assert.Equal(t, "Server2", events[1].Server.Name)
	assert.Equal(t, []string{"amy"}, events[1].Recipients, "two matching filters still yield one recipient entry")
}

func TestMatchEngine_Idempotence(t *testing.T) {
	engine := NewMatchEngine()
	snapshot := []models.ServerRecord{server1("Basra")}
	subscriptions := map[string][]models.Filter{"u": {{MinPlayers: models.IntPtr(50)}}}

	first := engine.Evaluate(snapshot, subscriptions)
	require.Len(t, first, 1)
	engine.Record(deliverAll(first))
	engine.Prune(snapshot)

	assert.Empty(t, engine.Evaluate(snapshot, subscriptions))
	assert.True(t, engine.IsNotified("u", models.Identify(server1("Basra"))))
}

func TestMatchEngine_MapChangeInvalidatesIdentity(t *testing.T) {
	engine := NewMatchEngine()
	alpha := func(m string) models.ServerRecord {
		return models.ServerRecord{Name: "Alpha", Map: m, Players: 60, MaxPlayers: 64}
	}
	subscriptions := map[string][]models.Filter{"u": {{MinPlayers: models.IntPtr(50)}}}

	basra := []models.ServerRecord{alpha("Basra")}
	engine.Record(deliverAll(engine.Evaluate(basra, subscriptions)))
	engine.Prune(basra)

	valley := []models.ServerRecord{alpha("Valley")}
	events := engine.Evaluate(valley, subscriptions)
	require.Len(t, events, 1)
	assert.Equal(t, "Valley", events[0].Server.Map)
	assert.Equal(t, []string{"u"}, events[0].Recipients)

	engine.Record(deliverAll(events))
	engine.Prune(valley)
	assert.False(t, engine.IsNotified("u", models.Identify(alpha("Basra"))), "vanished identity is pruned")
	assert.Equal(t, 1, engine.NotifiedCount())
}

func TestMatchEngine_PartialFailureIsolation(t *testing.T) {
	engine := NewMatchEngine()
	snapshot := []models.ServerRecord{server1("Basra")}
	subscriptions := map[string][]models.Filter{
		"ok":     {{}},
		"broken": {{}},
	}

	events := engine.Evaluate(snapshot, subscriptions)
	engine.Record(deliverAll(events, "broken"))
	engine.Prune(snapshot)

	identity := models.Identify(server1("Basra"))
	assert.True(t, engine.IsNotified("ok", identity))
	assert.False(t, engine.IsNotified("broken", identity))

	retry := engine.Evaluate(snapshot, subscriptions)
	require.Len(t, retry, 1)
	assert.Equal(t, []string{"broken"}, retry[0].Recipients, "failed recipient is offered again next tick")
}

func TestMatchEngine_DuplicateIdentityReportedOnce(t *testing.T) {
	engine := NewMatchEngine()
	snapshot := []models.ServerRecord{server1("Basra"), server1("Basra")}

	events := engine.Evaluate(snapshot, map[string][]models.Filter{"u": {{}}})
	assert.Len(t, events, 1)
}

func TestMatchEngine_NoSubscribersNoEvents(t *testing.T) {
	engine := NewMatchEngine()
	assert.Empty(t, engine.Evaluate([]models.ServerRecord{server1("Basra")}, nil))
	assert.Empty(t, engine.Evaluate(nil, map[string][]models.Filter{"u": {{}}}))
}

func TestMatchEngine_RecordUnknownPairPanics(t *testing.T) {
	engine := NewMatchEngine()
	engine.Evaluate([]models.ServerRecord{server1("Basra")}, map[string][]models.Filter{"u": {{}}})

	assert.Panics(t, func() {
		engine.Record([]models.DeliveryResult{{Subscriber: "stranger", Identity: models.Identify(server1("Basra"))}})
	})
}

func TestMatchEngine_PruneKeepsPresentIdentities(t *testing.T) {
	engine := NewMatchEngine()
	snapshot := []models.ServerRecord{server1("Basra")}
	engine.Record(deliverAll(engine.Evaluate(snapshot, map[string][]models.Filter{"u": {{}}})))

	engine.Prune(snapshot)
	assert.Equal(t, 1, engine.NotifiedCount())

	engine.Prune(nil)
	assert.Zero(t, engine.NotifiedCount())
}
