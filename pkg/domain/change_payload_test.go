package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type failingPayload struct{}

func (failingPayload) MarshalJSON() ([]byte, error) {
	return nil, errors.New("marshal failure")
}

func TestChangePayloadDefinedAndEmpty(t *testing.T) {
	undefined := UndefinedChangePayload()
	if undefined.Defined() || !undefined.IsEmpty() || undefined.Raw() != nil {
		t.Fatalf("unexpected undefined payload state")
	}
	empty := NewChangePayload(nil)
	if !empty.Defined() || !empty.IsEmpty() {
		t.Fatalf("expected defined empty payload")
	}
	raw := json.RawMessage(`{"id":"n1"}`)
	defined := NewChangePayload(raw)
	raw[2] = 'X'
	if string(defined.Raw()) != `{"id":"n1"}` {
		t.Fatalf("payload must not alias caller bytes, got %s", defined.Raw())
	}
	if _, err := NewChangePayloadFromValue(failingPayload{}); err == nil {
		t.Fatalf("expected marshal failure")
	}
}

func TestChangeEventRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	before := Node{Base: Base{ID: "n1"}, Name: "upstream"}
	after := before
	after.Name = "renamed"
	event, err := NewChangeEvent(Change{Entity: EntityNode, Action: ActionUpdate, Before: before, After: after}, at)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if event.EntityID != "n1" {
		t.Fatalf("expected entity id, got %q", event.EntityID)
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ChangeEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var node Node
	if err := json.Unmarshal(decoded.After.Raw(), &node); err != nil {
		t.Fatalf("decode after: %v", err)
	}
	if node.Name != "renamed" || !decoded.OccurredAt.Equal(at) {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestChangeEventDeleteHasNoAfter(t *testing.T) {
	event, err := NewChangeEvent(Change{Entity: EntityStructure, Action: ActionDelete, Before: Structure{Base: Base{ID: "s1"}}}, time.Now())
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if event.After.Defined() {
		t.Fatalf("delete events carry no after payload")
	}
	data, _ := json.Marshal(event)
	var decoded ChangeEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.After.Defined() || decoded.EntityID != "s1" {
		t.Fatalf("unexpected decoded delete event %+v", decoded)
	}
}
