package indicator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/config"
	httpclient "AgriPolicy/pkg/http"
)

const sampleCSV = `FREQ,SERIES,Series,REF_AREA,Reference area,TIME_PERIOD,OBS_VALUE
A,SN_ITK_DEFC,Prevalence of undernourishment,KEN,Kenya,2019,23.0
A,SN_ITK_DEFC,Prevalence of undernourishment,KEN,Kenya,2020,24.1
A,SN_ITK_DEFC,Prevalence of undernourishment,RWA,Rwanda,2020,35.0
M,SN_ITK_DEFC,Prevalence of undernourishment,KEN,Kenya,2020,99.0
A,AG_LND_FRST,Forest area,KEN,Kenya,2020,6.3
A,SN_ITK_DEFC,Prevalence of undernourishment,KEN,Kenya,not-a-year,1.0
`

func TestParseSDMXCSVExactArea(t *testing.T) {
	s, err := parseSDMXCSV(strings.NewReader(sampleCSV), "SN_ITK_DEFC", "Kenya")
	require.NoError(t, err)

	// Annual Kenya rows only: the monthly row, the other series and the
	// unparsable year are all dropped.
	require.Len(t, s.Points, 2)
	assert.Equal(t, Point{Year: 2019, Value: 23.0}, s.Points[0])
	assert.Equal(t, Point{Year: 2020, Value: 24.1}, s.Points[1])
	assert.Equal(t, "KEN", s.AreaCode)
	assert.Equal(t, "Kenya", s.AreaName)
	assert.Equal(t, "Prevalence of undernourishment", s.SeriesName)
}

func TestParseSDMXCSVSubstringFallback(t *testing.T) {
	csv := `FREQ,SERIES,Series,REF_AREA,Reference area,TIME_PERIOD,OBS_VALUE
A,AG_LND_FRST,Forest area,TZA,United Republic of Tanzania,2020,52.0
`
	s, err := parseSDMXCSV(strings.NewReader(csv), "AG_LND_FRST", "tanzania")
	require.NoError(t, err)
	require.Len(t, s.Points, 1)
	assert.Equal(t, "United Republic of Tanzania", s.AreaName)
}

func TestParseSDMXCSVNoMatchingArea(t *testing.T) {
	s, err := parseSDMXCSV(strings.NewReader(sampleCSV), "SN_ITK_DEFC", "Iceland")
	require.NoError(t, err)
	assert.Empty(t, s.Points)
}

func TestParseSDMXCSVMissingColumns(t *testing.T) {
	_, err := parseSDMXCSV(strings.NewReader("A,B\n1,2\n"), "X", "Kenya")
	assert.Error(t, err)
}

func TestSDMXSourceFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such dataflow", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := httpclient.NewClient(config.CircuitBreakerConfig{})
	require.NoError(t, err)

	src := NewSDMXSource(config.SDMXConfig{BaseURL: srv.URL, Agency: "FAO", Dataflow: "DF", Version: "1.0"}, client, nil)
	_, err = src.Fetch(t.Context(), "SN_ITK_DEFC", "Kenya", Range{})
	assert.ErrorIs(t, err, ErrRequestRejected)
}

func TestSDMXSourceFetch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	client, err := httpclient.NewClient(config.CircuitBreakerConfig{})
	require.NoError(t, err)

	src := NewSDMXSource(config.SDMXConfig{
		BaseURL:  srv.URL,
		Agency:   "FAO",
		Dataflow: "DF_SDG_ALL_INDICATORS",
		Version:  "1.0",
	}, client, nil)

	s, err := src.Fetch(t.Context(), "SN_ITK_DEFC", "Kenya", Range{StartYear: 2019, EndYear: 2020})
	require.NoError(t, err)
	assert.Len(t, s.Points, 2)

	assert.Contains(t, gotPath, "/data/")
	assert.Contains(t, gotPath, "/all")
	assert.Contains(t, gotQuery, "format=csvfilewithlabels")
	assert.Contains(t, gotQuery, "startPeriod=2019")
	assert.Contains(t, gotQuery, "endPeriod=2020")
}
