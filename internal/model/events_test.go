package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathfinder-checker/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

func eventBody(eventType string, data map[string]interface{}) []byte {
	doc := map[string]interface{}{
		"type":        eventType,
		"specversion": "1.0",
		"id":          "event-1",
		"source":      "//test/source",
		"time":        "2026-03-15T12:00:00Z",
	}
	if data != nil {
		doc["data"] = data
	}
	raw, _ := json.Marshal(doc)
	return raw
}

// ==========================
// ParseEvent Tests
// ==========================

func TestParseEvent_Published(t *testing.T) {
	raw := eventBody(string(EventPublished), map[string]interface{}{
		"pfIds": []string{"pf-1", "pf-2"},
	})

	event, err := ParseEvent(raw)
	require.NoError(t, err)

	published, ok := event.(*PublishedEvent)
	require.True(t, ok, "expected *PublishedEvent, got %T", event)
	assert.Equal(t, []string{"pf-1", "pf-2"}, published.PFIDs)
	assert.Equal(t, "event-1", published.Envelope().ID)
}

func TestParseEvent_RequestCreated(t *testing.T) {
	raw := eventBody(string(EventRequestCreated), map[string]interface{}{
		"pf":      map[string]interface{}{"companyIds": []string{"urn:uuid:c1"}},
		"comment": "please send",
	})

	event, err := ParseEvent(raw)
	require.NoError(t, err)

	created, ok := event.(*RequestCreatedEvent)
	require.True(t, ok, "expected *RequestCreatedEvent, got %T", event)
	assert.Equal(t, "please send", created.Comment)
	require.Contains(t, created.PF, "companyIds")
}

func TestParseEvent_RequestFulfilled(t *testing.T) {
	raw := eventBody(string(EventRequestFulfilled), map[string]interface{}{
		"requestEventId": "req-1",
		"pfs":            []map[string]interface{}{{"id": "pf-1"}},
	})

	event, err := ParseEvent(raw)
	require.NoError(t, err)

	fulfilled, ok := event.(*RequestFulfilledEvent)
	require.True(t, ok, "expected *RequestFulfilledEvent, got %T", event)
	assert.Equal(t, "req-1", fulfilled.RequestEventID)
	require.Len(t, fulfilled.PFs, 1)
}

func TestParseEvent_RequestRejected(t *testing.T) {
	raw := eventBody(string(EventRequestRejected), map[string]interface{}{
		"requestEventId": "req-1",
		"error": map[string]interface{}{
			"code":    "NoSuchFootprint",
			"message": "no footprint matches the request",
		},
	})

	event, err := ParseEvent(raw)
	require.NoError(t, err)

	rejected, ok := event.(*RequestRejectedEvent)
	require.True(t, ok, "expected *RequestRejectedEvent, got %T", event)
	assert.Equal(t, "req-1", rejected.RequestEventID)
	assert.Equal(t, "NoSuchFootprint", rejected.ErrorCode)
	assert.Equal(t, "no footprint matches the request", rejected.ErrorMessage)
}

func TestParseEvent_Violations(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{
			name: "not JSON",
			raw:  []byte("not json at all"),
		},
		{
			name: "missing envelope fields",
			raw:  []byte(`{"specversion":"1.0","data":{}}`),
		},
		{
			name: "unrecognized event type",
			raw:  eventBody("org.example.Unknown.v1", nil),
		},
		{
			name: "request created without pf",
			raw:  eventBody(string(EventRequestCreated), map[string]interface{}{"comment": "x"}),
		},
		{
			name: "request fulfilled without requestEventId",
			raw: eventBody(string(EventRequestFulfilled), map[string]interface{}{
				"pfs": []map[string]interface{}{{"id": "pf-1"}},
			}),
		},
		{
			name: "request fulfilled with empty pfs",
			raw: eventBody(string(EventRequestFulfilled), map[string]interface{}{
				"requestEventId": "req-1",
				"pfs":            []map[string]interface{}{},
			}),
		},
		{
			name: "request rejected without error",
			raw: eventBody(string(EventRequestRejected), map[string]interface{}{
				"requestEventId": "req-1",
			}),
		},
		{
			name: "request rejected with unrecognized code",
			raw: eventBody(string(EventRequestRejected), map[string]interface{}{
				"requestEventId": "req-1",
				"error":          map[string]interface{}{"code": "Teapot", "message": "m"},
			}),
		},
		{
			name: "request rejected without message",
			raw: eventBody(string(EventRequestRejected), map[string]interface{}{
				"requestEventId": "req-1",
				"error":          map[string]interface{}{"code": "BadRequest", "message": ""},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent(tt.raw)
			require.Error(t, err)
			assert.Nil(t, event)
			assert.True(t, errors.IsKind(err, errors.KindProtocol), "expected a protocol violation, got %v", err)
		})
	}
}

func TestNewEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEnvelope(EventRequestFulfilled, "event-9", "//test/source", "2026-03-15T12:00:00Z", map[string]interface{}{
		"requestEventId": "req-9",
		"pfs":            []interface{}{map[string]interface{}{"id": "pf-9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, SpecVersionCloudEvents, env.SpecVersion)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	event, err := ParseEvent(raw)
	require.NoError(t, err)
	fulfilled, ok := event.(*RequestFulfilledEvent)
	require.True(t, ok, "expected *RequestFulfilledEvent, got %T", event)
	assert.Equal(t, "req-9", fulfilled.RequestEventID)
}

func TestNewEnvelope_UnmarshalableData(t *testing.T) {
	_, err := NewEnvelope(EventPublished, "event-1", "//test/source", "2026-03-15T12:00:00Z", map[string]interface{}{
		"bad": func() {},
	})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "failed to marshal")
}
