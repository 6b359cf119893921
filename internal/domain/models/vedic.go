package models

import (
	"encoding/json"
	"time"
)

// Body identifies a graha whose sidereal longitude the ephemeris can supply.
type Body string

const (
	BodySun     Body = "Sun"
	BodyMoon    Body = "Moon"
	BodyMars    Body = "Mars"
	BodyMercury Body = "Mercury"
	BodyJupiter Body = "Jupiter"
	BodyVenus   Body = "Venus"
	BodySaturn  Body = "Saturn"
	BodyRahu    Body = "Rahu"
	BodyKetu    Body = "Ketu"
)

// NakshatraProfile holds the static matching attributes of one lunar mansion.
type NakshatraProfile struct {
	Index  int    `yaml:"index" json:"index"`
	Name   string `yaml:"name" json:"name"`
	Varna  string `yaml:"varna" json:"varna"`
	Vashya string `yaml:"vashya" json:"vashya"`
	Yoni   string `yaml:"yoni" json:"yoni"`
	Lord   string `yaml:"lord" json:"lord"`
	Gana   string `yaml:"gana" json:"gana"`
	Nadi   string `yaml:"nadi" json:"nadi"`
}

// Position is the resolved placement of a longitude on the sidereal zodiac.
type Position struct {
	Longitude      float64 `json:"longitude"`
	NakshatraIndex int     `json:"nakshatra_index"`
	Nakshatra      string  `json:"nakshatra"`
	Pada           int     `json:"pada"`
	SignIndex      int     `json:"sign_index"`
	Sign           string  `json:"sign"`
	VedicFormat    string  `json:"vedic_format"`
}

// BodyPosition is a graha's placement at an instant, as reported by the ephemeris.
type BodyPosition struct {
	Body Body `json:"planet"`
	Position
	Instant   time.Time `json:"instant"`
	JulianDay float64   `json:"julian_day"`
}

type PanchangResult struct {
	Tithi           string     `json:"tithi"`
	Paksha          string     `json:"paksha"`
	Nakshatra       string     `json:"nakshatra"`
	Yoga            string     `json:"yoga"`
	TithiNumber     int        `json:"tithi_number"`
	NakshatraNumber int        `json:"nakshatra_number"`
	YogaNumber      int        `json:"yoga_number"`
	KaranaNumber    int        `json:"karana_number"`
	Karana          string     `json:"karana"`
	SunLongitude    float64    `json:"sun_longitude"`
	MoonLongitude   float64    `json:"moon_longitude"`
	SourceTime      *time.Time `json:"source_time,omitempty"`
	JulianDay       float64    `json:"jd,omitempty"`
}

// DashaPeriod is one planetary rulership span. Start and End render as calendar dates.
type DashaPeriod struct {
	Planet       string
	Start        time.Time
	End          time.Time
	TotalYears   int
	BalanceYears float64
	IsBalance    bool
}

const dateLayout = "2006-01-02"

func (p DashaPeriod) MarshalJSON() ([]byte, error) {
	out := struct {
		Planet       string  `json:"planet"`
		Start        string  `json:"start"`
		End          string  `json:"end"`
		TotalYears   int     `json:"total_years"`
		BalanceYears float64 `json:"balance_years,omitempty"`
		IsBalance    bool    `json:"is_balance"`
	}{
		Planet:       p.Planet,
		Start:        p.Start.Format(dateLayout),
		End:          p.End.Format(dateLayout),
		TotalYears:   p.TotalYears,
		BalanceYears: p.BalanceYears,
		IsBalance:    p.IsBalance,
	}
	return json.Marshal(out)
}

// DashaSchedule wraps the nine chained periods with the cycle metadata.
type DashaSchedule struct {
	System     string        `json:"system"`
	CycleYears int           `json:"cycle_years"`
	StartLord  string        `json:"start_lord"`
	Dashas     []DashaPeriod `json:"dashas"`
}

// PartySummary describes one side of a match by its Moon placement.
type PartySummary struct {
	Nakshatra string `json:"nakshatra"`
	Sign      int    `json:"sign"` // 1-indexed
}

// KootaScores holds the eight Ashta Koota factors in classical order.
type KootaScores struct {
	Varna   float64 `json:"Varna"`
	Vashya  float64 `json:"Vashya"`
	Tara    float64 `json:"Tara"`
	Yoni    float64 `json:"Yoni"`
	Maitri  float64 `json:"Maitri"`
	Gana    float64 `json:"Gana"`
	Bhakoot float64 `json:"Bhakoot"`
	Nadi    float64 `json:"Nadi"`
}

// Total sums the eight factors.
func (k KootaScores) Total() float64 {
	return k.Varna + k.Vashya + k.Tara + k.Yoni + k.Maitri + k.Gana + k.Bhakoot + k.Nadi
}

type CompatibilityResult struct {
	TotalScore float64      `json:"total_score"`
	MaxScore   int          `json:"max_score"`
	Verdict    string       `json:"verdict"`
	Details    KootaScores  `json:"details"`
	Boy        PartySummary `json:"boy"`
	Girl       PartySummary `json:"girl"`
}
