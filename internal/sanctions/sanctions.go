// Package sanctions screens names against sanctions lists using exact,
// alias, fuzzy and partial matching.
package sanctions

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// List identifies a sanctions list. Any other value names a custom list.
type List string

const (
	OFAC   List = "OFAC"
	EU     List = "EU"
	UN     List = "UN"
	UKOFSI List = "UKOFSI"
)

var listNames = map[List]string{
	OFAC:   "OFAC SDN",
	EU:     "EU Consolidated",
	UN:     "UN Security Council",
	UKOFSI: "UK OFSI",
}

// Name is the human-readable list name.
func (l List) Name() string {
	if n, ok := listNames[l]; ok {
		return n
	}
	return string(l)
}

// MatchType is how a screened value matched an entity.
type MatchType string

const (
	Exact   MatchType = "exact"
	Alias   MatchType = "alias"
	Fuzzy   MatchType = "fuzzy"
	Partial MatchType = "partial"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy match.
const DefaultFuzzyThreshold = 0.85

const (
	exactConfidence      = 1.0
	aliasConfidence      = 0.95
	highConfidence       = 0.9
	partialBase          = 0.7
	partialSpread        = 0.2
	charSimilarityWeight = 0.4
	wordSimilarityWeight = 0.6
)

// Entity is one listed party. Name and aliases are stored uppercased.
type Entity struct {
	ID      string
	Name    string
	Aliases []string
	List    List
	Program string
	Country string
}

// Match is one hit against an entity.
type Match struct {
	MatchedName string    `json:"matched_name"`
	List        List      `json:"list"`
	MatchType   MatchType `json:"match_type"`
	Confidence  float64   `json:"confidence"`
	EntryID     string    `json:"entry_id"`
	Program     string    `json:"program,omitempty"`
	Country     string    `json:"country,omitempty"`
}

// Result is the outcome of screening one value. Matches are sorted by
// descending confidence.
type Result struct {
	ScreenedValue string    `json:"screened_value"`
	IsMatch       bool      `json:"is_match"`
	Matches       []Match   `json:"matches"`
	ScreeningTime time.Time `json:"screening_time"`
	ListsChecked  []List    `json:"lists_checked"`
}

// HasHighConfidenceMatch reports whether any match scores at least 0.9.
func (r *Result) HasHighConfidenceMatch() bool {
	return slices.ContainsFunc(r.Matches, func(m Match) bool { return m.Confidence >= highConfidence })
}

// Highest returns the strongest match.
func (r *Result) Highest() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}

// Above returns the matches with confidence >= t.
func (r *Result) Above(t float64) []Match {
	out := []Match{}
	for _, m := range r.Matches {
		if m.Confidence >= t {
			out = append(out, m)
		}
	}
	return out
}

// Screener holds the entity lists. It is not safe for concurrent mutation.
type Screener struct {
	entities       []Entity
	enabled        map[List]struct{}
	fuzzyThreshold float64
	now            func() time.Time
}

// NewScreener creates a screener with OFAC, EU and UN enabled and the
// built-in entries loaded.
func NewScreener() *Screener {
	return &Screener{
		entities:       slices.Clone(defaultEntities),
		enabled:        map[List]struct{}{OFAC: {}, EU: {}, UN: {}},
		fuzzyThreshold: DefaultFuzzyThreshold,
		now:            time.Now,
	}
}

// EnableList includes l in screening.
func (s *Screener) EnableList(l List) { s.enabled[l] = struct{}{} }

// DisableList excludes l from screening.
func (s *Screener) DisableList(l List) { delete(s.enabled, l) }

// EnabledLists returns the enabled lists sorted.
func (s *Screener) EnabledLists() []List {
	return slices.Sorted(maps.Keys(s.enabled))
}

// SetFuzzyThreshold sets the minimum fuzzy similarity, clamped to [0, 1].
func (s *Screener) SetFuzzyThreshold(t float64) {
	s.fuzzyThreshold = min(max(t, 0), 1)
}

// FuzzyThreshold returns the minimum fuzzy similarity.
func (s *Screener) FuzzyThreshold() float64 { return s.fuzzyThreshold }

// AddEntity appends an entity to list l and returns its ID, which is the
// list name followed by the entity's position.
func (s *Screener) AddEntity(name string, aliases []string, l List) string {
	upper := make([]string, 0, len(aliases))
	for _, a := range aliases {
		upper = append(upper, strings.ToUpper(a))
	}
	id := fmt.Sprintf("%s-%d", l.Name(), len(s.entities))
	s.entities = append(s.entities, Entity{
		ID:      id,
		Name:    strings.ToUpper(name),
		Aliases: upper,
		List:    l,
	})
	return id
}

// Screen matches name against every entity on an enabled list. An exact
// match skips the other rules for that entity. A partial match is only
// added when the entity has no other match. Blank names never match.
func (s *Screener) Screen(name string) Result {
	res := Result{
		ScreenedValue: name,
		Matches:       []Match{},
		ScreeningTime: s.now().UTC(),
		ListsChecked:  s.EnabledLists(),
	}
	query := strings.ToUpper(strings.TrimSpace(name))
	if query == "" {
		return res
	}

	for _, e := range s.entities {
		if _, ok := s.enabled[e.List]; !ok {
			continue
		}

		if e.Name == query {
			res.Matches = append(res.Matches, e.match(Exact, exactConfidence))
			continue
		}

		matched := false
		if slices.Contains(e.Aliases, query) {
			res.Matches = append(res.Matches, e.match(Alias, aliasConfidence))
			matched = true
		}

		if sim := Similarity(query, e.Name); sim >= s.fuzzyThreshold {
			res.Matches = append(res.Matches, e.match(Fuzzy, sim))
			matched = true
		}

		if !matched && (strings.Contains(e.Name, query) || strings.Contains(query, e.Name)) {
			short, long := utf8.RuneCountInString(query), utf8.RuneCountInString(e.Name)
			if short > long {
				short, long = long, short
			}
			conf := partialBase + partialSpread*float64(short)/float64(long)
			res.Matches = append(res.Matches, e.match(Partial, conf))
		}
	}

	slices.SortStableFunc(res.Matches, func(a, b Match) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	res.IsMatch = len(res.Matches) > 0
	return res
}

// ScreenBatch screens each name in order.
func (s *Screener) ScreenBatch(names []string) []Result {
	out := make([]Result, 0, len(names))
	for _, n := range names {
		out = append(out, s.Screen(n))
	}
	return out
}

func (e *Entity) match(t MatchType, confidence float64) Match {
	return Match{
		MatchedName: e.Name,
		List:        e.List,
		MatchType:   t,
		Confidence:  confidence,
		EntryID:     e.ID,
		Program:     e.Program,
		Country:     e.Country,
	}
}

// Similarity blends normalized Levenshtein similarity (40%) with the
// Jaccard overlap of whitespace-separated words (60%).
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	chars := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)

	wa, wb := wordSet(a), wordSet(b)
	common := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			common++
		}
	}
	union := len(wa) + len(wb) - common
	words := 0.0
	if union > 0 {
		words = float64(common) / float64(union)
	}
	return charSimilarityWeight*chars + wordSimilarityWeight*words
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

var defaultEntities = []Entity{
	{
		ID:      "OFAC-001",
		Name:    "SANCTIONED ENTITY ONE",
		Aliases: []string{"ENTITY ONE", "E1 LTD"},
		List:    OFAC,
		Program: "SDGT",
		Country: "XX",
	},
	{
		ID:      "EU-001",
		Name:    "RESTRICTED COMPANY EU",
		Aliases: []string{"RC EU"},
		List:    EU,
		Program: "COUNCIL REGULATION",
		Country: "YY",
	},
	{
		ID:      "UN-001",
		Name:    "UN LISTED ORGANIZATION",
		Aliases: []string{"ULO"},
		List:    UN,
		Program: "1267",
	},
}
