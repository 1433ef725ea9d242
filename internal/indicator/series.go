package indicator

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Point is one annual observation of a series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is an ordered annual time series for one indicator in one area.
type Series struct {
	SeriesCode string    `json:"series_code"`
	SeriesName string    `json:"series_name"`
	AreaCode   string    `json:"area_code"`
	AreaName   string    `json:"area_name"`
	Unit       string    `json:"unit,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
	Points     []Point   `json:"points"` // Ascending by year.
}

// Sort orders the points ascending by year.
func (s *Series) Sort() {
	sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Year < s.Points[j].Year })
}

// Summarize renders the series as a short trend sentence for the
// prompt: direction, endpoints, range and the most recent values. A
// change within 5% of the starting value counts as stable.
func (s *Series) Summarize(entry *Entry, area string) string {
	if len(s.Points) == 0 {
		return fmt.Sprintf(
			"No numeric SDG data was available for %s / %s (%s) in %s. Acknowledge this gap.",
			entry.SDGIndicator, entry.SeriesCode, entry.Name, area)
	}

	first, last := s.Points[0], s.Points[len(s.Points)-1]
	minVal, maxVal := first.Value, first.Value
	for _, p := range s.Points {
		if p.Value < minVal {
			minVal = p.Value
		}
		if p.Value > maxVal {
			maxVal = p.Value
		}
	}

	trend := "remained relatively stable"
	switch {
	case last.Value > first.Value*1.05:
		trend = "increased"
	case last.Value < first.Value*0.95:
		trend = "decreased"
	}

	// Only the most recent points go into the prompt to bound its size.
	recent := s.Points
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	parts := make([]string, 0, len(recent))
	for _, p := range recent {
		parts = append(parts, fmt.Sprintf("%d: %.2f", p.Year, p.Value))
	}

	return fmt.Sprintf(
		"For %s, %s (SDG %s, series %s) %s from %d (%.2f) to %d (%.2f); range [%.2f, %.2f]. Recent values: %s.",
		area, entry.Name, entry.SDGIndicator, entry.SeriesCode, trend,
		first.Year, first.Value, last.Year, last.Value, minVal, maxVal,
		strings.Join(parts, "; "))
}
