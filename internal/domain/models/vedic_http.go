package models

// Requests for the calculation HTTP endpoints. Optional numeric fields whose zero value is
// meaningful (hour, longitudes) are resolved by the handler from query presence.

type PanchangRequest struct {
	SunLon  float64 `query:"sun_lon" json:"sun_lon" validate:"finite"`
	MoonLon float64 `query:"moon_lon" json:"moon_lon" validate:"finite"`
	// At is an RFC3339 timestamp or unix seconds; it wins over year/month/day/hour.
	At    string  `query:"at" json:"at"`
	Year  int     `query:"year" json:"year" validate:"omitempty,gte=1,lte=9999"`
	Month int     `query:"month" json:"month" default:"1" validate:"gte=1,lte=12"`
	Day   int     `query:"day" json:"day" default:"1" validate:"gte=1,lte=31"`
	Hour  float64 `query:"hour" json:"hour" validate:"gte=0,lt=24"`
}

type DashaRequest struct {
	MoonLon float64 `query:"moon_lon" json:"moon_lon" validate:"finite"`
	Year    int     `query:"year" json:"year" validate:"required,gte=1,lte=9999"`
	Month   int     `query:"month" json:"month" default:"1" validate:"gte=1,lte=12"`
	Day     int     `query:"day" json:"day" default:"1" validate:"gte=1,lte=31"`
	Hour    int     `query:"hour" json:"hour" validate:"gte=0,lte=23"`
	Minute  int     `query:"minute" json:"minute" validate:"gte=0,lte=59"`
}

type MatchRequest struct {
	BoyMoonLon  float64 `query:"boy_moon_lon" json:"boy_moon_lon" validate:"finite"`
	GirlMoonLon float64 `query:"girl_moon_lon" json:"girl_moon_lon" validate:"finite"`
}

type LocateRequest struct {
	Lon float64 `query:"lon" json:"lon" validate:"finite"`
}

type HistoryRequest struct {
	Kind  string `query:"kind" json:"kind" validate:"omitempty,oneof=panchang dasha match"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type PositionRequest struct {
	Body  string  `query:"body" json:"body" default:"Sun" validate:"oneof=Sun Moon Mars Mercury Jupiter Venus Saturn Rahu Ketu"`
	At    string  `query:"at" json:"at"`
	Year  int     `query:"year" json:"year" validate:"omitempty,gte=1,lte=9999"`
	Month int     `query:"month" json:"month" default:"1" validate:"gte=1,lte=12"`
	Day   int     `query:"day" json:"day" default:"1" validate:"gte=1,lte=31"`
	Hour  float64 `query:"hour" json:"hour" validate:"gte=0,lt=24"`
}
