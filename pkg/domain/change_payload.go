package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangePayload wraps a JSON snapshot of one side of a change. Consumers
// outside the process (event subscribers, audit sinks) unmarshal it into
// the entity type named by the event.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload wraps raw JSON. The bytes are cloned. Passing nil yields
// a defined but empty payload; use UndefinedChangePayload for "not set".
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = append(json.RawMessage(nil), raw...)
	}
	return payload
}

// NewChangePayloadFromValue marshals a typed value into a ChangePayload.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return NewChangePayload(raw), nil
}

// UndefinedChangePayload returns an uninitialized payload wrapper.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload has been initialized.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload contains no bytes.
func (p ChangePayload) IsEmpty() bool {
	return !p.defined || len(p.raw) == 0
}

// Raw returns a copy of the underlying JSON; nil when undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if p.IsEmpty() {
		return nil
	}
	return append(json.RawMessage(nil), p.raw...)
}

// MarshalJSON emits the wrapped JSON, or null when empty.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if p.IsEmpty() {
		return []byte("null"), nil
	}
	return p.Raw(), nil
}

// UnmarshalJSON captures the raw bytes; a JSON null leaves the payload undefined.
func (p *ChangePayload) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = UndefinedChangePayload()
		return nil
	}
	*p = NewChangePayload(data)
	return nil
}

// ChangeEvent is the serialisable form of a committed Change.
type ChangeEvent struct {
	Entity     EntityType    `json:"entity"`
	Action     Action        `json:"action"`
	EntityID   string        `json:"entity_id"`
	Before     ChangePayload `json:"before"`
	After      ChangePayload `json:"after"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewChangeEvent snapshots a change into JSON payloads.
func NewChangeEvent(change Change, at time.Time) (ChangeEvent, error) {
	event := ChangeEvent{Entity: change.Entity, Action: change.Action, OccurredAt: at}
	if change.Before != nil {
		before, err := NewChangePayloadFromValue(change.Before)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("encode %s before: %w", change.Entity, err)
		}
		event.Before = before
		event.EntityID = entityID(change.Before)
	}
	if change.After != nil {
		after, err := NewChangePayloadFromValue(change.After)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("encode %s after: %w", change.Entity, err)
		}
		event.After = after
		event.EntityID = entityID(change.After)
	}
	return event, nil
}

func entityID(v any) string {
	switch e := v.(type) {
	case Node:
		return e.ID
	case Branch:
		return e.ID
	case CrossSectionDefinition:
		return e.ID
	case CrossSection:
		return e.ID
	case CompositeStructure:
		return e.ID
	case Structure:
		return e.ID
	case Manhole:
		return e.ID
	case BoundaryCondition:
		return e.ID
	case LateralSource:
		return e.ID
	case LeveeBreach:
		return e.ID
	case Settings:
		return e.ID
	}
	return ""
}
