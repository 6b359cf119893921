package vedic

import (
	"time"

	"Jyotish/internal/domain/models"
)

const (
	DashaSystem     = "Vimshottari Dasha"
	DashaCycleYears = 120

	// DaysPerYear is the fixed year length used to turn dasha years into calendar days.
	DaysPerYear = 365.25
)

type dashaLord struct {
	planet string
	years  int
}

// dashaOrder is the Vimshottari sequence; Nakshatra i is ruled by dashaOrder[i%9].
var dashaOrder = []dashaLord{
	{"Ketu", 7},
	{"Venus", 20},
	{"Sun", 6},
	{"Moon", 10},
	{"Mars", 7},
	{"Rahu", 18},
	{"Jupiter", 16},
	{"Saturn", 19},
	{"Mercury", 17},
}

// DashaYears returns the full period length of a dasha lord.
func DashaYears(planet string) (int, bool) {
	for _, l := range dashaOrder {
		if l.planet == planet {
			return l.years, true
		}
	}
	return 0, false
}

// DashaLord returns the ruler of the Nakshatra at idx.
func DashaLord(nakIdx int) string {
	return lordAt(nakIdx).planet
}

func lordAt(i int) dashaLord {
	n := len(dashaOrder)
	return dashaOrder[((i%n)+n)%n]
}

// VimshottariDasha chains the nine rulership periods starting at birth. The first period is the
// unexpired balance of the ruler of the Moon's Nakshatra; the other eight run at full length.
func VimshottariDasha(moonLon float64, birth time.Time) models.DashaSchedule {
	moon := Normalize(moonLon)
	nak := NakshatraIndex(moon)
	first := lordAt(nak)

	remaining := (NakshatraSpan - traversedInNakshatra(moon)) / NakshatraSpan
	balance := remaining * float64(first.years)

	periods := make([]models.DashaPeriod, 0, len(dashaOrder))
	start := birth
	end := addYears(start, balance)
	periods = append(periods, models.DashaPeriod{
		Planet:       first.planet,
		Start:        start,
		End:          end,
		TotalYears:   first.years,
		BalanceYears: balance,
		IsBalance:    true,
	})

	for i := 1; i < len(dashaOrder); i++ {
		lord := lordAt(nak + i)
		start = end
		end = addYears(start, float64(lord.years))
		periods = append(periods, models.DashaPeriod{
			Planet:     lord.planet,
			Start:      start,
			End:        end,
			TotalYears: lord.years,
		})
	}

	return models.DashaSchedule{
		System:     DashaSystem,
		CycleYears: DashaCycleYears,
		StartLord:  first.planet,
		Dashas:     periods,
	}
}

// addYears advances t by whole days, dropping any fractional day.
func addYears(t time.Time, years float64) time.Time {
	days := int(years * DaysPerYear)
	return t.Add(time.Duration(days) * 24 * time.Hour)
}
