package vedic

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"Jyotish/internal/domain/models"
)

// ErrInvalidReference marks a corrupt or incomplete Nakshatra reference table.
// It is a configuration failure, never an input error.
var ErrInvalidReference = errors.New("vedic: reference configuration invalid")

//go:embed data/nakshatras.yaml
var defaultReference []byte

var (
	validGana = map[string]bool{"Deva": true, "Manushya": true, "Rakshasa": true}
	validNadi = map[string]bool{"Adi": true, "Madhya": true, "Antya": true}
)

// ReferenceTable is the immutable NakshatraProfile table. Build it once and share it freely;
// nothing mutates it after construction.
type ReferenceTable struct {
	profiles [NakshatraCount]models.NakshatraProfile
}

// NewReferenceTable validates profiles and freezes them into a table.
func NewReferenceTable(profiles []models.NakshatraProfile) (*ReferenceTable, error) {
	if len(profiles) != NakshatraCount {
		return nil, fmt.Errorf("%w: expected %d nakshatras, got %d", ErrInvalidReference, NakshatraCount, len(profiles))
	}

	var t ReferenceTable
	var seen [NakshatraCount]bool
	for _, p := range profiles {
		if p.Index < 0 || p.Index >= NakshatraCount {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidReference, p.Index)
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrInvalidReference, p.Index)
		}
		if err := validateProfile(p); err != nil {
			return nil, err
		}
		seen[p.Index] = true
		t.profiles[p.Index] = p
	}
	return &t, nil
}

func validateProfile(p models.NakshatraProfile) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: index %d has no name", ErrInvalidReference, p.Index)
	case p.Vashya == "":
		return fmt.Errorf("%w: %s has no vashya", ErrInvalidReference, p.Name)
	case p.Yoni == "":
		return fmt.Errorf("%w: %s has no yoni", ErrInvalidReference, p.Name)
	}
	if _, ok := varnaRank[p.Varna]; !ok {
		return fmt.Errorf("%w: %s has unknown varna %q", ErrInvalidReference, p.Name, p.Varna)
	}
	if !validGana[p.Gana] {
		return fmt.Errorf("%w: %s has unknown gana %q", ErrInvalidReference, p.Name, p.Gana)
	}
	if !validNadi[p.Nadi] {
		return fmt.Errorf("%w: %s has unknown nadi %q", ErrInvalidReference, p.Name, p.Nadi)
	}
	if _, ok := DashaYears(p.Lord); !ok {
		return fmt.Errorf("%w: %s has unknown lord %q", ErrInvalidReference, p.Name, p.Lord)
	}
	return nil
}

// ParseReferenceTable decodes a table from YAML. Two shapes are accepted: a `nakshatras` list,
// or a mapping keyed by index ("0".."26"), which also covers plain JSON files.
func ParseReferenceTable(data []byte) (*ReferenceTable, error) {
	var doc struct {
		Nakshatras []models.NakshatraProfile `yaml:"nakshatras"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Nakshatras) > 0 {
		return NewReferenceTable(doc.Nakshatras)
	}

	var keyed map[string]models.NakshatraProfile
	if err := yaml.Unmarshal(data, &keyed); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidReference, err)
	}
	profiles := make([]models.NakshatraProfile, 0, len(keyed))
	for k, p := range keyed {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric key %q", ErrInvalidReference, k)
		}
		p.Index = idx
		profiles = append(profiles, p)
	}
	return NewReferenceTable(profiles)
}

// LoadReferenceTable reads the table at path, or the built-in table when path is empty.
func LoadReferenceTable(path string) (*ReferenceTable, error) {
	if path == "" {
		return DefaultReferenceTable()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}
	return ParseReferenceTable(b)
}

// DefaultReferenceTable returns the table compiled into the binary.
func DefaultReferenceTable() (*ReferenceTable, error) {
	return ParseReferenceTable(defaultReference)
}

// Profile returns the attributes of the Nakshatra at idx.
func (t *ReferenceTable) Profile(idx int) (models.NakshatraProfile, error) {
	if t == nil {
		return models.NakshatraProfile{}, fmt.Errorf("%w: table not loaded", ErrInvalidReference)
	}
	if idx < 0 || idx >= NakshatraCount {
		return models.NakshatraProfile{}, fmt.Errorf("%w: no profile for index %d", ErrInvalidReference, idx)
	}
	return t.profiles[idx], nil
}

// Profiles returns a copy of all 27 entries in index order.
func (t *ReferenceTable) Profiles() []models.NakshatraProfile {
	out := make([]models.NakshatraProfile, NakshatraCount)
	copy(out, t.profiles[:])
	return out
}
