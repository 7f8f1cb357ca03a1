// internal/model/events.go
package model

import (
	"encoding/json"
	"fmt"

	"pathfinder-checker/internal/common/errors"
)

// EventType identifies a CloudEvents notification type.
type EventType string

const (
	EventPublished        EventType = "org.wbcsd.pathfinder.ProductFootprint.Published.v1"
	EventRequestCreated   EventType = "org.wbcsd.pathfinder.ProductFootprintRequest.Created.v1"
	EventRequestFulfilled EventType = "org.wbcsd.pathfinder.ProductFootprintRequest.Fulfilled.v1"
	EventRequestRejected  EventType = "org.wbcsd.pathfinder.ProductFootprintRequest.Rejected.v1"
)

// SpecVersionCloudEvents is the only accepted CloudEvents specversion.
const SpecVersionCloudEvents = "1.0"

// Envelope is the structural CloudEvents wrapper shared by all event types.
type Envelope struct {
	Type        EventType       `json:"type"`
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Time        string          `json:"time"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Event is the closed variant over the four recognized event kinds. Parse
// an inbound body once with ParseEvent, then switch exhaustively on the
// concrete type.
type Event interface {
	Envelope() Envelope
}

type PublishedEvent struct {
	envelope Envelope
	PFIDs    []string
}

type RequestCreatedEvent struct {
	envelope Envelope
	PF       map[string]interface{}
	Comment  string
}

type RequestFulfilledEvent struct {
	envelope       Envelope
	RequestEventID string
	PFs            []map[string]interface{}
}

type RequestRejectedEvent struct {
	envelope       Envelope
	RequestEventID string
	ErrorCode      string
	ErrorMessage   string
}

func (e *PublishedEvent) Envelope() Envelope        { return e.envelope }
func (e *RequestCreatedEvent) Envelope() Envelope   { return e.envelope }
func (e *RequestFulfilledEvent) Envelope() Envelope { return e.envelope }
func (e *RequestRejectedEvent) Envelope() Envelope  { return e.envelope }

// ParseEvent validates the envelope structurally and parses the data
// payload into its typed variant. All failures are protocol violations.
func ParseEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.NewProtocolViolation("event body is not valid JSON", err.Error())
	}

	if env.Type == "" || env.ID == "" || env.Source == "" {
		return nil, errors.NewProtocolViolation(
			"event envelope is missing required fields",
			fmt.Sprintf("type=%q id=%q source=%q", env.Type, env.ID, env.Source),
		)
	}

	switch env.Type {
	case EventPublished:
		return parsePublished(env)
	case EventRequestCreated:
		return parseRequestCreated(env)
	case EventRequestFulfilled:
		return parseRequestFulfilled(env)
	case EventRequestRejected:
		return parseRequestRejected(env)
	default:
		return nil, errors.NewProtocolViolation("unrecognized event type", string(env.Type))
	}
}

func parsePublished(env Envelope) (*PublishedEvent, error) {
	var data struct {
		PFIDs []string `json:"pfIds"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errors.NewProtocolViolation("published event data is malformed", err.Error())
		}
	}
	return &PublishedEvent{envelope: env, PFIDs: data.PFIDs}, nil
}

func parseRequestCreated(env Envelope) (*RequestCreatedEvent, error) {
	var data struct {
		PF      map[string]interface{} `json:"pf"`
		Comment string                 `json:"comment"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.NewProtocolViolation("request-created event data is malformed", err.Error())
	}
	if data.PF == nil {
		return nil, errors.NewProtocolViolation("request-created event is missing data.pf", "")
	}
	return &RequestCreatedEvent{envelope: env, PF: data.PF, Comment: data.Comment}, nil
}

func parseRequestFulfilled(env Envelope) (*RequestFulfilledEvent, error) {
	var data struct {
		RequestEventID string                   `json:"requestEventId"`
		PFs            []map[string]interface{} `json:"pfs"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.NewProtocolViolation("request-fulfilled event data is malformed", err.Error())
	}
	if data.RequestEventID == "" {
		return nil, errors.NewProtocolViolation("request-fulfilled event is missing data.requestEventId", "")
	}
	if len(data.PFs) == 0 {
		return nil, errors.NewProtocolViolation("request-fulfilled event has empty data.pfs", "")
	}
	return &RequestFulfilledEvent{envelope: env, RequestEventID: data.RequestEventID, PFs: data.PFs}, nil
}

func parseRequestRejected(env Envelope) (*RequestRejectedEvent, error) {
	var data struct {
		RequestEventID string `json:"requestEventId"`
		Error          *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.NewProtocolViolation("request-rejected event data is malformed", err.Error())
	}
	if data.RequestEventID == "" {
		return nil, errors.NewProtocolViolation("request-rejected event is missing data.requestEventId", "")
	}
	if data.Error == nil {
		return nil, errors.NewProtocolViolation("request-rejected event is missing data.error", "")
	}
	if !errors.IsRecognizedResponseCode(data.Error.Code) {
		return nil, errors.NewProtocolViolation("request-rejected event has unrecognized error code", data.Error.Code)
	}
	if data.Error.Message == "" {
		return nil, errors.NewProtocolViolation("request-rejected event error has no message", "")
	}
	return &RequestRejectedEvent{
		envelope:       env,
		RequestEventID: data.RequestEventID,
		ErrorCode:      data.Error.Code,
		ErrorMessage:   data.Error.Message,
	}, nil
}

// NewEnvelope assembles an outbound CloudEvents envelope.
func NewEnvelope(eventType EventType, id, source, eventTime string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Envelope{
		Type:        eventType,
		SpecVersion: SpecVersionCloudEvents,
		ID:          id,
		Source:      source,
		Time:        eventTime,
		Data:        raw,
	}, nil
}
