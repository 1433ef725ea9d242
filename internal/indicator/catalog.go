package indicator

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry describes one known indicator: the SDG indicator code users
// speak in, the series code the data source speaks in, and the
// matching metadata.
type Entry struct {
	SDGIndicator string   `yaml:"sdg_indicator"` // e.g. "2.1.1"
	SeriesCode   string   `yaml:"series_code"`   // e.g. "SN_ITK_DEFC"
	Name         string   `yaml:"name"`
	Unit         string   `yaml:"unit"`
	Description  string   `yaml:"description"`
	Tags         []string `yaml:"tags"`
}

// Catalog is the read-only set of known indicators. It is loaded and
// validated once at startup; lookups never touch the network.
type Catalog struct {
	entries  []Entry
	bySDG    map[string]*Entry
	bySeries map[string]*Entry
}

// LoadCatalog reads and validates the indicator catalog from a YAML
// file. Unknown fields, blank codes and duplicate codes are rejected:
// a malformed catalog must fail startup, not the first query.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read indicator catalog '%s': %w", path, err)
	}

	var entries []Entry
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("cannot parse indicator catalog: %w", err)
	}

	return NewCatalog(entries)
}

// NewCatalog validates the entries and builds the lookup tables.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		bySDG:    make(map[string]*Entry, len(entries)),
		bySeries: make(map[string]*Entry, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		e.SDGIndicator = strings.TrimSpace(e.SDGIndicator)
		e.SeriesCode = strings.TrimSpace(e.SeriesCode)
		e.Name = strings.TrimSpace(e.Name)

		if e.SDGIndicator == "" || e.SeriesCode == "" {
			return nil, fmt.Errorf("catalog entry %d has a blank indicator or series code", i)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %s has no name", e.SDGIndicator)
		}
		if _, dup := c.bySDG[e.SDGIndicator]; dup {
			return nil, fmt.Errorf("duplicate SDG indicator %s in catalog", e.SDGIndicator)
		}
		if _, dup := c.bySeries[e.SeriesCode]; dup {
			return nil, fmt.Errorf("duplicate series code %s in catalog", e.SeriesCode)
		}

		c.entries = append(c.entries, e)
		c.bySDG[e.SDGIndicator] = &c.entries[len(c.entries)-1]
		c.bySeries[e.SeriesCode] = &c.entries[len(c.entries)-1]
	}

	if len(c.entries) == 0 {
		return nil, fmt.Errorf("indicator catalog is empty")
	}
	return c, nil
}

// Entries returns the catalog entries in load order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup resolves a code that may be either an SDG indicator code or a
// series code.
func (c *Catalog) Lookup(code string) (*Entry, bool) {
	code = strings.TrimSpace(code)
	if e, ok := c.bySDG[code]; ok {
		return e, true
	}
	if e, ok := c.bySeries[code]; ok {
		return e, true
	}
	return nil, false
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		out[w] = struct{}{}
	}
	return out
}

// MatchQuery returns up to maxMatches catalog entries relevant to a
// free-text query. Explicit SDG or series codes in the query win
// outright; otherwise entries are ranked by token overlap between the
// query and the entry's code, name and tags.
func (c *Catalog) MatchQuery(query string, maxMatches int) []Entry {
	if maxMatches <= 0 {
		return nil
	}
	q := strings.ToLower(query)

	var hard []scoredEntry
	for _, e := range c.entries {
		if strings.Contains(q, strings.ToLower(e.SDGIndicator)) {
			hard = append(hard, scoredEntry{100, e})
		} else if strings.Contains(q, strings.ToLower(e.SeriesCode)) {
			hard = append(hard, scoredEntry{95, e})
		}
	}
	if len(hard) > 0 {
		sort.SliceStable(hard, func(i, j int) bool { return hard[i].score > hard[j].score })
		return takeEntries(hard, maxMatches)
	}

	qt := tokens(query)
	var soft []scoredEntry
	for _, e := range c.entries {
		text := e.SDGIndicator + " " + e.SeriesCode + " " + e.Name + " " + strings.Join(e.Tags, " ")
		et := tokens(text)
		overlap := 0
		for w := range qt {
			if _, ok := et[w]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		denom := len(et)
		if denom < 8 {
			denom = 8
		}
		soft = append(soft, scoredEntry{float64(overlap) / float64(denom), e})
	}

	sort.SliceStable(soft, func(i, j int) bool { return soft[i].score > soft[j].score })
	return takeEntries(soft, maxMatches)
}

type scoredEntry struct {
	score float64
	entry Entry
}

func takeEntries(s []scoredEntry, n int) []Entry {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]Entry, 0, len(s))
	for _, sc := range s {
		out = append(out, sc.entry)
	}
	return out
}

// LoadAreas reads the known reference areas (countries and regions)
// from a YAML list of names.
func LoadAreas(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read area list '%s': %w", path, err)
	}
	var areas []string
	if err := yaml.Unmarshal(raw, &areas); err != nil {
		return nil, fmt.Errorf("cannot parse area list: %w", err)
	}

	out := make([]string, 0, len(areas))
	for _, a := range areas {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out, nil
}

// MatchAreas returns up to maxMatches area names mentioned in the
// query. Substring hits win; otherwise areas are ranked by token overlap.
func MatchAreas(query string, areas []string, maxMatches int) []string {
	if maxMatches <= 0 {
		return nil
	}
	q := strings.ToLower(query)

	var hits []string
	seen := make(map[string]struct{})
	for _, a := range areas {
		if strings.Contains(q, strings.ToLower(a)) {
			if _, dup := seen[a]; !dup {
				seen[a] = struct{}{}
				hits = append(hits, a)
			}
		}
	}
	if len(hits) > 0 {
		if len(hits) > maxMatches {
			hits = hits[:maxMatches]
		}
		return hits
	}

	qt := tokens(query)
	type scored struct {
		score float64
		area  string
	}
	var soft []scored
	for _, a := range areas {
		at := tokens(a)
		overlap := 0
		for w := range qt {
			if _, ok := at[w]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		denom := len(at)
		if denom < 3 {
			denom = 3
		}
		soft = append(soft, scored{float64(overlap) / float64(denom), a})
	}
	sort.SliceStable(soft, func(i, j int) bool { return soft[i].score > soft[j].score })
	if len(soft) > maxMatches {
		soft = soft[:maxMatches]
	}
	out := make([]string, 0, len(soft))
	for _, s := range soft {
		out = append(out, s.area)
	}
	return out
}
