package queue

import (
	"encoding/json"
	"testing"
)

func TestParsePayload(t *testing.T) {
	type event struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	got, err := ParsePayload[event](json.RawMessage(`{"id":"1","kind":"dasha"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ID != "1" || got.Kind != "dasha" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if _, err := ParsePayload[event](json.RawMessage(`[`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestQueueModeString(t *testing.T) {
	if ModeProducerOnly.String() != "producer-only" || ModeProducerConsumer.String() != "producer-consumer" {
		t.Fatalf("unexpected mode names")
	}
}
