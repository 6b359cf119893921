package vedic

import "testing"

func TestComputePanchangSaptami(t *testing.T) {
	got := ComputePanchang(0, 72)
	if got.TithiNumber != 7 || got.Tithi != "Saptami" || got.Paksha != PakshaShukla {
		t.Fatalf("unexpected tithi: %+v", got)
	}
	if got.Nakshatra != "Ardra" || got.NakshatraNumber != 6 {
		t.Fatalf("unexpected nakshatra: %+v", got)
	}
	if got.YogaNumber != 6 || got.Yoga != "Atiganda" {
		t.Fatalf("unexpected yoga: %+v", got)
	}
	if got.KaranaNumber != 13 || got.Karana != "Garaja" {
		t.Fatalf("unexpected karana: %+v", got)
	}
}

func TestComputePanchangTable(t *testing.T) {
	cases := []struct {
		name   string
		sun    float64
		moon   float64
		tithi  int
		label  string
		paksha string
	}{
		{"new moon", 100, 100, 1, "Prathama", PakshaShukla},
		{"purnima", 0, 179.9, 15, "Purnima/Amavasya", PakshaShukla},
		{"krishna", 0, 200, 17, "Dwitiya", PakshaKrishna},
		{"amavasya", 10, 5, 30, "Purnima/Amavasya", PakshaKrishna},
		{"moon behind zero", 350, 10, 2, "Dwitiya", PakshaShukla},
		{"unnormalized input", 720, 72 - 360, 7, "Saptami", PakshaShukla},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ComputePanchang(c.sun, c.moon)
			if got.TithiNumber != c.tithi || got.Tithi != c.label || got.Paksha != c.paksha {
				t.Fatalf("got %d %s %s", got.TithiNumber, got.Tithi, got.Paksha)
			}
			if got.TithiNumber < 1 || got.TithiNumber > 30 {
				t.Fatalf("tithi out of range: %d", got.TithiNumber)
			}
		})
	}
}

func TestRangesHold(t *testing.T) {
	for sun := 0.0; sun < 360; sun += 11.5 {
		for moon := 0.0; moon < 360; moon += 7.25 {
			p := ComputePanchang(sun, moon)
			if p.TithiNumber < 1 || p.TithiNumber > 30 {
				t.Fatalf("tithi %d out of range", p.TithiNumber)
			}
			if p.YogaNumber < 1 || p.YogaNumber > 27 {
				t.Fatalf("yoga %d out of range", p.YogaNumber)
			}
			if p.KaranaNumber < 1 || p.KaranaNumber > 60 {
				t.Fatalf("karana %d out of range", p.KaranaNumber)
			}
		}
	}
}

func TestKaranaName(t *testing.T) {
	cases := map[int]string{
		1:  "Kimstughna",
		2:  "Bava",
		8:  "Vishti",
		9:  "Bava",
		57: "Vishti",
		58: "Shakuni",
		59: "Chatushpada",
		60: "Naga",
		61: "Kimstughna",
	}
	for n, want := range cases {
		if got := KaranaName(n); got != want {
			t.Fatalf("KaranaName(%d) = %s, want %s", n, got, want)
		}
	}
}
