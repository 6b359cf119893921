package vedic

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var birth = time.Date(2000, 1, 1, 6, 30, 0, 0, time.UTC)

func TestVimshottariFromAshwiniStart(t *testing.T) {
	s := VimshottariDasha(0, birth)
	if s.StartLord != "Ketu" {
		t.Fatalf("expected Ketu, got %s", s.StartLord)
	}
	first := s.Dashas[0]
	if !first.IsBalance || first.TotalYears != 7 || first.BalanceYears != 7 {
		t.Fatalf("unexpected balance period: %+v", first)
	}
	if !first.Start.Equal(birth) {
		t.Fatalf("balance must start at birth")
	}
	if days := first.End.Sub(first.Start).Hours() / 24; days != 2556 {
		t.Fatalf("expected 2556 days, got %v", days)
	}
}

func TestVimshottariChain(t *testing.T) {
	s := VimshottariDasha(20, birth)
	if len(s.Dashas) != 9 {
		t.Fatalf("expected 9 periods, got %d", len(s.Dashas))
	}
	want := []string{"Venus", "Sun", "Moon", "Mars", "Rahu", "Jupiter", "Saturn", "Mercury", "Ketu"}
	for i, p := range s.Dashas {
		if p.Planet != want[i] {
			t.Fatalf("period %d: got %s want %s", i, p.Planet, want[i])
		}
		if i > 0 {
			if !p.Start.Equal(s.Dashas[i-1].End) {
				t.Fatalf("period %d does not start where %d ended", i, i-1)
			}
			if p.IsBalance {
				t.Fatalf("only the first period is a balance")
			}
			years, _ := DashaYears(p.Planet)
			if p.TotalYears != years {
				t.Fatalf("%s should run %d years, got %d", p.Planet, years, p.TotalYears)
			}
		}
	}
	// Bharani half traversed leaves ten of Venus' twenty years
	if d := s.Dashas[0].End.Sub(birth).Hours() / 24; d != 3652 {
		t.Fatalf("expected 3652 balance days, got %v", d)
	}
	if s.System != DashaSystem || s.CycleYears != 120 {
		t.Fatalf("unexpected envelope: %+v", s)
	}
}

func TestVimshottariStartLordCycles(t *testing.T) {
	for nak := 0; nak < NakshatraCount; nak++ {
		lon := float64(nak)*NakshatraSpan + 1
		s := VimshottariDasha(lon, birth)
		if s.StartLord != dashaOrder[nak%9].planet {
			t.Fatalf("nakshatra %d: got %s", nak, s.StartLord)
		}
		if s.Dashas[0].BalanceYears <= 0 || s.Dashas[0].BalanceYears > float64(s.Dashas[0].TotalYears) {
			t.Fatalf("nakshatra %d: balance %v out of range", nak, s.Dashas[0].BalanceYears)
		}
	}
}

func TestDashaPeriodJSON(t *testing.T) {
	s := VimshottariDasha(0, birth)
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, want := range []string{`"start":"2000-01-01"`, `"planet":"Ketu"`, `"is_balance":true`, `"system":"Vimshottari Dasha"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
