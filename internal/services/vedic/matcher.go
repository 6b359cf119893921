package vedic

import (
	"Jyotish/internal/domain/models"
)

const (
	MaxGunaScore        = 36
	CompatibleThreshold = 18.0

	VerdictCompatible    = "Compatible"
	VerdictNotCompatible = "Not Compatible (Dosha)"
)

var varnaRank = map[string]int{
	"Brahmin":   4,
	"Kshatriya": 3,
	"Vaishya":   2,
	"Shudra":    1,
}

// signLords lists the ruling planet of each sign, Mesha first.
var signLords = []string{
	"Mars", "Venus", "Mercury", "Moon", "Sun", "Mercury",
	"Venus", "Mars", "Jupiter", "Saturn", "Saturn", "Jupiter",
}

// party is one side of a match resolved against the reference table.
type party struct {
	nak     int
	sign    int
	profile models.NakshatraProfile
}

func resolveParty(ref *ReferenceTable, lon float64) (party, error) {
	norm := Normalize(lon)
	nak := NakshatraIndex(norm)
	p, err := ref.Profile(nak)
	if err != nil {
		return party{}, err
	}
	return party{nak: nak, sign: SignIndex(norm), profile: p}, nil
}

// GunaMilan scores the Ashta Koota compatibility of two Moon longitudes out of 36.
// The only error is ErrInvalidReference from a malformed table.
func GunaMilan(ref *ReferenceTable, boyMoonLon, girlMoonLon float64) (models.CompatibilityResult, error) {
	boy, err := resolveParty(ref, boyMoonLon)
	if err != nil {
		return models.CompatibilityResult{}, err
	}
	girl, err := resolveParty(ref, girlMoonLon)
	if err != nil {
		return models.CompatibilityResult{}, err
	}

	details := models.KootaScores{
		Varna:   varnaScore(boy.profile.Varna, girl.profile.Varna),
		Vashya:  vashyaScore(boy.profile.Vashya, girl.profile.Vashya),
		Tara:    taraScore(boy.nak, girl.nak),
		Yoni:    yoniScore(boy.profile.Yoni, girl.profile.Yoni),
		Maitri:  maitriScore(boy.profile.Lord, girl.profile.Lord),
		Gana:    ganaScore(boy.profile.Gana, girl.profile.Gana),
		Bhakoot: bhakootScore(boy.sign, girl.sign),
		Nadi:    nadiScore(boy, girl),
	}
	total := details.Total()

	verdict := VerdictNotCompatible
	if total >= CompatibleThreshold {
		verdict = VerdictCompatible
	}

	return models.CompatibilityResult{
		TotalScore: total,
		MaxScore:   MaxGunaScore,
		Verdict:    verdict,
		Details:    details,
		Boy:        models.PartySummary{Nakshatra: boy.profile.Name, Sign: boy.sign + 1},
		Girl:       models.PartySummary{Nakshatra: girl.profile.Name, Sign: girl.sign + 1},
	}, nil
}

// varnaScore is deliberately one-sided: the boy's varna must not rank below the girl's.
func varnaScore(boy, girl string) float64 {
	if varnaRank[boy] >= varnaRank[girl] {
		return 1
	}
	return 0
}

// Vashya, Yoni and Maitri compare categories only; the classical
// friend/enemy matrices are not applied.

func vashyaScore(boy, girl string) float64 {
	if boy == girl {
		return 2
	}
	return 0
}

func yoniScore(boy, girl string) float64 {
	if boy == girl {
		return 4
	}
	return 2
}

func maitriScore(boy, girl string) float64 {
	if boy == girl {
		return 5
	}
	return 3
}

func taraScore(boyNak, girlNak int) float64 {
	dist := ((girlNak-boyNak)%NakshatraCount + NakshatraCount) % NakshatraCount
	switch dist % 9 {
	case 0, 1, 2, 4, 6, 8:
		return 3
	default:
		return 1.5
	}
}

func ganaScore(boy, girl string) float64 {
	switch {
	case boy == girl:
		return 6
	case boy == "Deva" && girl == "Manushya", boy == "Manushya" && girl == "Deva":
		return 5
	default:
		return 0
	}
}

// SignDistance counts from the boy's sign to the girl's, inclusive (1-12).
func SignDistance(boySign, girlSign int) int {
	return ((girlSign-boySign)%SignCount+SignCount)%SignCount + 1
}

func bhakootScore(boySign, girlSign int) float64 {
	switch SignDistance(boySign, girlSign) {
	case 2, 12, 6, 8:
		// dosha is cancelled when both signs share a lord
		if cyclic(signLords, boySign) == cyclic(signLords, girlSign) {
			return 7
		}
		return 0
	default:
		return 7
	}
}

func nadiScore(boy, girl party) float64 {
	if boy.profile.Nadi != girl.profile.Nadi {
		return 8
	}
	sameSign := boy.sign == girl.sign
	sameNak := boy.nak == girl.nak
	if (sameSign && !sameNak) || (sameNak && !sameSign) {
		return 8
	}
	return 0
}
