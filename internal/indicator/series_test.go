package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func summaryEntry() *Entry {
	return &Entry{
		SDGIndicator: "2.1.1",
		SeriesCode:   "SN_ITK_DEFC",
		Name:         "Prevalence of undernourishment",
	}
}

func TestSummarizeTrendDirections(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   string
	}{
		{"increase", []Point{{2010, 10.0}, {2020, 15.0}}, "increased"},
		{"decrease", []Point{{2010, 20.0}, {2020, 12.0}}, "decreased"},
		{"stable within five percent", []Point{{2010, 10.0}, {2020, 10.3}}, "remained relatively stable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Series{Points: tt.points}
			assert.Contains(t, s.Summarize(summaryEntry(), "Kenya"), tt.want)
		})
	}
}

func TestSummarizeEmptySeries(t *testing.T) {
	s := &Series{}
	got := s.Summarize(summaryEntry(), "Kenya")
	assert.Contains(t, got, "No numeric SDG data")
	assert.Contains(t, got, "Kenya")
}

func TestSummarizeLimitsRecentValues(t *testing.T) {
	s := &Series{}
	for year := 2000; year <= 2020; year++ {
		s.Points = append(s.Points, Point{Year: year, Value: float64(year - 2000)})
	}

	got := s.Summarize(summaryEntry(), "Kenya")
	assert.NotContains(t, got, "2010:")
	assert.Contains(t, got, "2011:")
	assert.Contains(t, got, "2020:")
	// Endpoints still come from the full series.
	assert.Contains(t, got, "from 2000")
}

func TestSort(t *testing.T) {
	s := &Series{Points: []Point{{2020, 1}, {2000, 2}, {2010, 3}}}
	s.Sort()
	assert.Equal(t, 2000, s.Points[0].Year)
	assert.Equal(t, 2020, s.Points[2].Year)
}
