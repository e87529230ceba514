// Package georisk scores the geographic risk of a transaction from its
// origin and destination countries.
package georisk

import (
	"maps"
	"slices"
	"strings"
)

// Level is a country or transaction risk grade. Levels are ordered.
type Level int

const (
	Low Level = iota
	Medium
	High
	Prohibited
)

var levelNames = map[Level]string{
	Low:        "low",
	Medium:     "medium",
	High:       "high",
	Prohibited: "prohibited",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "unknown"
}

func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// unknownCountryScore is used for countries missing from the table.
const unknownCountryScore = 50

// CountryRisk is the risk profile of one country.
type CountryRisk struct {
	Code              string   `json:"country_code"`
	Name              string   `json:"country_name"`
	Level             Level    `json:"risk_level"`
	Score             int      `json:"risk_score"`
	Factors           []string `json:"factors"`
	FATFStatus        string   `json:"fatf_status,omitempty"`
	SanctionsPrograms []string `json:"sanctions_programs"`
}

// IsProhibited reports whether transactions touching the country are barred.
func (c *CountryRisk) IsProhibited() bool { return c.Level == Prohibited }

// RequiresEDD reports whether the country triggers enhanced due diligence.
func (c *CountryRisk) RequiresEDD() bool { return c.Level >= High }

// JurisdictionRisk describes an offshore or secrecy jurisdiction.
type JurisdictionRisk struct {
	Jurisdiction       string `json:"jurisdiction"`
	TaxHaven           bool   `json:"is_tax_haven"`
	Offshore           bool   `json:"is_offshore"`
	FATFGreylist       bool   `json:"is_fatf_greylist"`
	FATFBlacklist      bool   `json:"is_fatf_blacklist"`
	TransparencyScore  int    `json:"transparency_score"`
	RegulatoryStrength int    `json:"regulatory_strength"`
	OverallRisk        Level  `json:"overall_risk"`
}

// Score derives a 0-100 score from the jurisdiction's attributes.
func (j *JurisdictionRisk) Score() int {
	score := 0
	if j.TaxHaven {
		score += 20
	}
	if j.Offshore {
		score += 15
	}
	if j.FATFGreylist {
		score += 30
	}
	if j.FATFBlacklist {
		score += 50
	}
	score += (100 - j.TransparencyScore) / 4
	score += (100 - j.RegulatoryStrength) / 4
	return min(score, 100)
}

// TransactionRisk is the combined assessment of an origin/destination pair.
// Origin and Destination are nil for countries not in the table.
type TransactionRisk struct {
	OriginCountry      string       `json:"origin_country"`
	DestinationCountry string       `json:"destination_country"`
	Origin             *CountryRisk `json:"origin_risk"`
	Destination        *CountryRisk `json:"destination_risk"`
	CombinedScore      int          `json:"combined_score"`
	Level              Level        `json:"risk_level"`
	Prohibited         bool         `json:"is_prohibited"`
	RequiresEDD        bool         `json:"requires_edd"`
}

// Scorer holds the country and jurisdiction tables.
type Scorer struct {
	countries     map[string]CountryRisk
	jurisdictions map[string]JurisdictionRisk
}

// NewScorer creates a scorer loaded with the default tables.
func NewScorer() *Scorer {
	s := &Scorer{
		countries:     make(map[string]CountryRisk),
		jurisdictions: make(map[string]JurisdictionRisk),
	}
	for _, c := range defaultCountries {
		s.AddCountry(c)
	}
	for _, j := range defaultJurisdictions {
		s.AddJurisdiction(j)
	}
	return s
}

// AddCountry inserts or replaces a country profile. Codes are uppercased.
func (s *Scorer) AddCountry(c CountryRisk) {
	c.Code = strings.ToUpper(c.Code)
	s.countries[c.Code] = c
}

// AddJurisdiction inserts or replaces a jurisdiction profile.
func (s *Scorer) AddJurisdiction(j JurisdictionRisk) {
	s.jurisdictions[j.Jurisdiction] = j
}

// Country looks up a country case-insensitively.
func (s *Scorer) Country(code string) (CountryRisk, bool) {
	c, ok := s.countries[strings.ToUpper(code)]
	return c, ok
}

// Jurisdiction looks up a jurisdiction by exact name.
func (s *Scorer) Jurisdiction(name string) (JurisdictionRisk, bool) {
	j, ok := s.jurisdictions[name]
	return j, ok
}

// TransactionRisk weighs the destination at 60% and the origin at 40%.
func (s *Scorer) TransactionRisk(origin, destination string) TransactionRisk {
	res := TransactionRisk{OriginCountry: origin, DestinationCountry: destination}

	originScore, destScore := unknownCountryScore, unknownCountryScore
	if c, ok := s.Country(origin); ok {
		res.Origin = &c
		originScore = c.Score
	}
	if c, ok := s.Country(destination); ok {
		res.Destination = &c
		destScore = c.Score
	}
	res.CombinedScore = (originScore*40 + destScore*60) / 100

	for _, c := range []*CountryRisk{res.Origin, res.Destination} {
		if c == nil {
			continue
		}
		res.Prohibited = res.Prohibited || c.IsProhibited()
		res.RequiresEDD = res.RequiresEDD || c.RequiresEDD()
	}

	switch {
	case res.Prohibited:
		res.Level = Prohibited
	case res.CombinedScore >= 70:
		res.Level = High
	case res.CombinedScore >= 40:
		res.Level = Medium
	default:
		res.Level = Low
	}
	return res
}

// ProhibitedCountries returns the prohibited countries sorted by code.
func (s *Scorer) ProhibitedCountries() []CountryRisk {
	return s.countriesAt(Prohibited)
}

// HighRiskCountries returns the high-risk countries sorted by code.
func (s *Scorer) HighRiskCountries() []CountryRisk {
	return s.countriesAt(High)
}

func (s *Scorer) countriesAt(l Level) []CountryRisk {
	out := []CountryRisk{}
	for _, code := range slices.Sorted(maps.Keys(s.countries)) {
		if c := s.countries[code]; c.Level == l {
			out = append(out, c)
		}
	}
	return out
}

// FATFStatus returns the country's FATF listing, if any.
func (s *Scorer) FATFStatus(code string) (string, bool) {
	c, ok := s.Country(code)
	if !ok || c.FATFStatus == "" {
		return "", false
	}
	return c.FATFStatus, true
}

var defaultCountries = []CountryRisk{
	{
		Code:              "IR",
		Name:              "Iran",
		Level:             Prohibited,
		Score:             100,
		Factors:           []string{"FATF Blacklist", "US Comprehensive Sanctions"},
		FATFStatus:        "Blacklist",
		SanctionsPrograms: []string{"OFAC Iran Sanctions"},
	},
	{
		Code:              "KP",
		Name:              "North Korea",
		Level:             Prohibited,
		Score:             100,
		Factors:           []string{"FATF Blacklist", "UN Sanctions"},
		FATFStatus:        "Blacklist",
		SanctionsPrograms: []string{"OFAC North Korea", "UN Sanctions"},
	},
	{
		Code:              "SY",
		Name:              "Syria",
		Level:             Prohibited,
		Score:             95,
		Factors:           []string{"US Comprehensive Sanctions", "EU Sanctions"},
		SanctionsPrograms: []string{"OFAC Syria Sanctions"},
	},
	{
		Code:              "MM",
		Name:              "Myanmar",
		Level:             High,
		Score:             80,
		Factors:           []string{"FATF Greylist", "Targeted Sanctions"},
		FATFStatus:        "Greylist",
		SanctionsPrograms: []string{},
	},
	{
		Code:              "YE",
		Name:              "Yemen",
		Level:             High,
		Score:             75,
		Factors:           []string{"Conflict Zone", "Targeted Sanctions"},
		SanctionsPrograms: []string{},
	},
	{
		Code:              "PK",
		Name:              "Pakistan",
		Level:             Medium,
		Score:             55,
		Factors:           []string{"FATF Greylist"},
		FATFStatus:        "Greylist",
		SanctionsPrograms: []string{},
	},
	{
		Code:              "US",
		Name:              "United States",
		Level:             Low,
		Score:             10,
		Factors:           []string{},
		SanctionsPrograms: []string{},
	},
	{
		Code:              "GB",
		Name:              "United Kingdom",
		Level:             Low,
		Score:             10,
		Factors:           []string{},
		SanctionsPrograms: []string{},
	},
	{
		Code:              "DE",
		Name:              "Germany",
		Level:             Low,
		Score:             10,
		Factors:           []string{},
		SanctionsPrograms: []string{},
	},
}

var defaultJurisdictions = []JurisdictionRisk{
	{
		Jurisdiction:       "Cayman Islands",
		TaxHaven:           true,
		Offshore:           true,
		TransparencyScore:  60,
		RegulatoryStrength: 70,
		OverallRisk:        Medium,
	},
	{
		Jurisdiction:       "British Virgin Islands",
		TaxHaven:           true,
		Offshore:           true,
		TransparencyScore:  50,
		RegulatoryStrength: 60,
		OverallRisk:        Medium,
	},
	{
		Jurisdiction:       "Panama",
		TaxHaven:           true,
		Offshore:           true,
		FATFGreylist:       true,
		TransparencyScore:  40,
		RegulatoryStrength: 50,
		OverallRisk:        High,
	},
}
