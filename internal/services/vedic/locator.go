package vedic

import (
	"fmt"
	"math"

	"Jyotish/internal/domain/models"
)

const (
	NakshatraCount = 27
	SignCount      = 12

	// NakshatraSpan is 13°20' expressed in degrees.
	NakshatraSpan = 360.0 / NakshatraCount
	SignSpan      = 30.0

	padaSpan = NakshatraSpan / 4
)

var nakshatraNames = []string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra", "Punarvasu", "Pushya", "Ashlesha",
	"Magha", "Purva Phalguni", "Uttara Phalguni", "Hasta", "Chitra", "Swati", "Vishakha", "Anuradha", "Jyeshtha",
	"Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana", "Dhanishta", "Shatabhisha", "Purva Bhadrapada", "Uttara Bhadrapada", "Revati",
}

var signNames = []string{
	"Mesha (Aries)", "Vrishabha (Taurus)", "Mithuna (Gemini)", "Karka (Cancer)",
	"Simha (Leo)", "Kanya (Virgo)", "Tula (Libra)", "Vrishchika (Scorpio)",
	"Dhanu (Sagittarius)", "Makara (Capricorn)", "Kumbha (Aquarius)", "Meena (Pisces)",
}

// Normalize maps any longitude onto [0, 360). NaN and infinities map to 0.
func Normalize(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}
	n := math.Mod(math.Mod(lon, 360)+360, 360)
	if n >= 360 || n < 0 {
		return 0
	}
	return n
}

// NakshatraIndex returns the lunar mansion (0-26) containing lon.
func NakshatraIndex(lon float64) int {
	return clampIndex(int(Normalize(lon)/NakshatraSpan), NakshatraCount)
}

// SignIndex returns the zodiac sign (0-11) containing lon.
func SignIndex(lon float64) int {
	return clampIndex(int(Normalize(lon)/SignSpan), SignCount)
}

// Pada returns the quarter (1-4) of the Nakshatra containing lon.
func Pada(lon float64) int {
	p := int(traversedInNakshatra(Normalize(lon))/padaSpan) + 1
	if p > 4 {
		return 4
	}
	return p
}

// NakshatraName returns the name for a 0-based index; out-of-range indices wrap.
func NakshatraName(idx int) string { return cyclic(nakshatraNames, idx) }

// SignName returns the name for a 0-based sign index; out-of-range indices wrap.
func SignName(idx int) string { return cyclic(signNames, idx) }

// FormatVedic renders lon as its sign followed by degrees, minutes and seconds within that sign.
func FormatVedic(lon float64) string {
	norm := Normalize(lon)
	inSign := math.Mod(norm, SignSpan)
	d := int(inSign)
	minutes := (inSign - float64(d)) * 60
	m := int(minutes)
	s := int((minutes - float64(m)) * 60)
	return fmt.Sprintf("%s %d° %d' %d\"", SignName(SignIndex(norm)), d, m, s)
}

// Locate resolves every placement attribute of lon in one pass.
func Locate(lon float64) models.Position {
	norm := Normalize(lon)
	nak := NakshatraIndex(norm)
	sign := SignIndex(norm)
	return models.Position{
		Longitude:      norm,
		NakshatraIndex: nak,
		Nakshatra:      NakshatraName(nak),
		Pada:           Pada(norm),
		SignIndex:      sign,
		Sign:           SignName(sign),
		VedicFormat:    FormatVedic(norm),
	}
}

// traversedInNakshatra is measured from the start of the Nakshatra chosen by NakshatraIndex,
// so the two always agree even when norm sits on a floating-point boundary.
func traversedInNakshatra(norm float64) float64 {
	t := norm - float64(NakshatraIndex(norm))*NakshatraSpan
	switch {
	case t < 0:
		return 0
	case t > NakshatraSpan:
		return NakshatraSpan
	}
	return t
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func cyclic(names []string, i int) string {
	n := len(names)
	return names[((i%n)+n)%n]
}
