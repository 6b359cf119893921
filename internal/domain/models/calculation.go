package models

import (
	"encoding/json"
	"time"
)

// CalculationKind names the engine that produced a calculation.
type CalculationKind string

const (
	KindPanchang CalculationKind = "panchang"
	KindDasha    CalculationKind = "dasha"
	KindMatch    CalculationKind = "match"
)

// IsValid reports whether k is one of the known engines.
func (k CalculationKind) IsValid() bool {
	switch k {
	case KindPanchang, KindDasha, KindMatch:
		return true
	default:
		return false
	}
}

// CalculationEvent records one computed result for history and downstream consumers.
// Input and Result carry the already-encoded JSON payloads.
type CalculationEvent struct {
	ID         string          `json:"id"`
	Kind       CalculationKind `json:"kind"`
	Input      json.RawMessage `json:"input"`
	Result     json.RawMessage `json:"result"`
	ComputedAt time.Time       `json:"computed_at"`
}
