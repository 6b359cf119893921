package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"Jyotish/internal/domain/models"
)

func event(i int, kind models.CalculationKind) *models.CalculationEvent {
	return &models.CalculationEvent{
		ID:         fmt.Sprintf("e%d", i),
		Kind:       kind,
		Input:      json.RawMessage(`{}`),
		Result:     json.RawMessage(`{}`),
		ComputedAt: time.Unix(int64(i), 0).UTC(),
	}
}

func TestMemoryHistoryNewestFirst(t *testing.T) {
	h := NewMemoryHistory(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		kind := models.KindDasha
		if i%2 == 0 {
			kind = models.KindMatch
		}
		if err := h.Store(ctx, event(i, kind)); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := h.Query(ctx, "", 10)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3 (ring capacity)", len(all))
	}
	for i, want := range []string{"e5", "e4", "e3"} {
		if all[i].ID != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].ID, want)
		}
	}

	dashas, _ := h.Query(ctx, models.KindDasha, 10)
	if len(dashas) != 2 || dashas[0].ID != "e5" || dashas[1].ID != "e3" {
		t.Errorf("dasha query = %v", ids(dashas))
	}

	limited, _ := h.Query(ctx, "", 1)
	if len(limited) != 1 || limited[0].ID != "e5" {
		t.Errorf("limit 1 = %v", ids(limited))
	}
}

func TestMemoryHistoryReturnsCopies(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()
	e := event(1, models.KindPanchang)
	_ = h.Store(ctx, e)
	e.ID = "mutated"

	got, _ := h.Query(ctx, "", 1)
	got[0].Kind = models.KindMatch
	again, _ := h.Query(ctx, "", 1)
	if again[0].ID != "e1" || again[0].Kind != models.KindPanchang {
		t.Errorf("stored event changed: %+v", again[0])
	}
}

func TestMemoryHistoryEmpty(t *testing.T) {
	got, err := NewMemoryHistory(4).Query(context.Background(), "", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestEventMessageKeyedByKind(t *testing.T) {
	m := eventMessage(event(7, models.KindMatch))
	if string(m.Key) != "match" {
		t.Errorf("key = %q, want match", m.Key)
	}
	if m.Headers["event_id"] != "e7" || m.Headers["kind"] != "match" {
		t.Errorf("headers = %v", m.Headers)
	}
}

func TestJSONOrNull(t *testing.T) {
	if string(jsonOrNull(nil)) != "null" {
		t.Error("nil payload should encode as null")
	}
	if string(jsonOrNull(json.RawMessage(`{"a":1}`))) != `{"a":1}` {
		t.Error("payload changed")
	}
}

func ids(events []*models.CalculationEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
