package vedic

import (
	"math"

	"Jyotish/internal/domain/models"
)

const (
	TithiCount  = 30
	KaranaCount = 60

	tithiSpan  = 12.0
	karanaSpan = 6.0

	PakshaShukla  = "Shukla"
	PakshaKrishna = "Krishna"
)

var tithiNames = []string{
	"Prathama", "Dwitiya", "Tritiya", "Chaturthi", "Panchami", "Shashti", "Saptami", "Ashtami",
	"Navami", "Dashami", "Ekadashi", "Dwadashi", "Trayodashi", "Chaturdashi", "Purnima/Amavasya",
}

var yogaNames = []string{
	"Vishkumbha", "Priti", "Ayushman", "Saubhagya", "Sobhana", "Atiganda", "Sukarma", "Dhriti", "Shula",
	"Ganda", "Vriddhi", "Dhruva", "Vyaghata", "Harshana", "Vajra", "Siddhi", "Vyatipata", "Variyan", "Parigha",
	"Shiva", "Siddha", "Sadhya", "Shubha", "Shukla", "Brahma", "Indra", "Vaidhriti",
}

// movable karanas repeat eight times through slots 2-57
var movableKaranas = []string{"Bava", "Balava", "Kaulava", "Taitila", "Garaja", "Vanija", "Vishti"}

// ComputePanchang derives the lunar calendar state from Sun and Moon longitudes.
func ComputePanchang(sunLon, moonLon float64) models.PanchangResult {
	sun := Normalize(sunLon)
	moon := Normalize(moonLon)

	diff := Normalize(moon - sun)
	tithi := TithiNumber(diff)
	nak := NakshatraIndex(moon)
	yoga := YogaNumber(sun, moon)
	karana := KaranaNumber(diff)

	return models.PanchangResult{
		Tithi:           TithiName(tithi),
		Paksha:          PakshaOf(tithi),
		Nakshatra:       NakshatraName(nak),
		Yoga:            YogaName(yoga),
		TithiNumber:     tithi,
		NakshatraNumber: nak + 1,
		YogaNumber:      yoga,
		KaranaNumber:    karana,
		Karana:          KaranaName(karana),
		SunLongitude:    sun,
		MoonLongitude:   moon,
	}
}

// TithiNumber returns the lunar day (1-30) for a normalized Moon-Sun separation.
func TithiNumber(diff float64) int {
	return clampIndex(int(math.Floor(Normalize(diff)/tithiSpan)), TithiCount) + 1
}

// PakshaOf returns the fortnight a tithi falls in.
func PakshaOf(tithi int) string {
	if tithi <= 15 {
		return PakshaShukla
	}
	return PakshaKrishna
}

// TithiName returns the name of a 1-based tithi; both fortnights share the same 15 names.
func TithiName(tithi int) string { return cyclic(tithiNames, tithi-1) }

// YogaNumber returns the luni-solar yoga (1-27) for the summed longitudes.
func YogaNumber(sunLon, moonLon float64) int {
	sum := Normalize(sunLon + moonLon)
	return clampIndex(int(math.Floor(sum/NakshatraSpan)), NakshatraCount) + 1
}

// YogaName returns the name of a 1-based yoga.
func YogaName(yoga int) string { return cyclic(yogaNames, yoga-1) }

// KaranaNumber returns the half-tithi slot (1-60) for a Moon-Sun separation.
func KaranaNumber(diff float64) int {
	return clampIndex(int(math.Floor(Normalize(diff)/karanaSpan)), KaranaCount) + 1
}

// KaranaName maps a 1-based karana slot onto the eleven classical karanas.
// Slot 1 and slots 58-60 hold the fixed karanas; the rest cycle the movable seven.
func KaranaName(karana int) string {
	k := ((karana-1)%KaranaCount+KaranaCount)%KaranaCount + 1
	switch k {
	case 1:
		return "Kimstughna"
	case 58:
		return "Shakuni"
	case 59:
		return "Chatushpada"
	case 60:
		return "Naga"
	default:
		return cyclic(movableKaranas, k-2)
	}
}
