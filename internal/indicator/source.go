package indicator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"AgriPolicy/internal/config"
	httpclient "AgriPolicy/pkg/http"
	"AgriPolicy/pkg/ratelimiter"
)

// Range bounds a fetch to a year window. Zero means unbounded on that side.
type Range struct {
	StartYear int
	EndYear   int
}

// Source is the capability interface for the statistical data backend.
type Source interface {
	Fetch(ctx context.Context, seriesCode, area string, r Range) (*Series, error)
}

// ErrRequestRejected reports a client-side (4xx) response. Retrying the
// same request cannot change the outcome.
var ErrRequestRejected = errors.New("data request rejected")

// SDMXSource fetches series from an SDMX REST endpoint in the
// csvfilewithlabels format:
//
//	GET {base}/data/{AGENCY,DATAFLOW,VERSION}/all
//	  ?dimensionAtObservation=AllDimensions&format=csvfilewithlabels
//	  [&startPeriod=YYYY][&endPeriod=YYYY]
type SDMXSource struct {
	cfg     config.SDMXConfig
	client  *httpclient.Client
	limiter ratelimiter.RateLimiter // Optional outbound throttle.
}

// NewSDMXSource creates an SDMXSource. limiter may be nil.
func NewSDMXSource(cfg config.SDMXConfig, client *httpclient.Client, limiter ratelimiter.RateLimiter) *SDMXSource {
	return &SDMXSource{cfg: cfg, client: client, limiter: limiter}
}

// Fetch downloads the dataset window and extracts the annual series for
// one series code and one area. Area names match case-insensitively,
// exact name first and substring as a fallback.
func (s *SDMXSource) Fetch(ctx context.Context, seriesCode, area string, r Range) (*Series, error) {
	if s.limiter != nil {
		if err := ratelimiter.Wait(ctx, s.limiter); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.dataURL(r), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build data request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status %d", ErrRequestRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("data request returned status %d", resp.StatusCode)
	}

	return parseSDMXCSV(resp.Body, seriesCode, area)
}

func (s *SDMXSource) dataURL(r Range) string {
	flowRef := url.PathEscape(s.cfg.Agency + "," + s.cfg.Dataflow + "," + s.cfg.Version)

	params := url.Values{}
	params.Set("dimensionAtObservation", "AllDimensions")
	params.Set("format", "csvfilewithlabels")
	if r.StartYear != 0 {
		params.Set("startPeriod", strconv.Itoa(r.StartYear))
	}
	if r.EndYear != 0 {
		params.Set("endPeriod", strconv.Itoa(r.EndYear))
	}

	return strings.TrimRight(s.cfg.BaseURL, "/") + "/data/" + flowRef + "/all?" + params.Encode()
}

// parseSDMXCSV extracts one (series, area) annual series from a
// csvfilewithlabels payload. In that format, each code column is
// immediately followed by its label column.
func parseSDMXCSV(body io.Reader, seriesCode, area string) (*Series, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", err)
	}

	findCol := func(name string) int {
		for i, c := range header {
			if strings.EqualFold(strings.TrimSpace(c), name) {
				return i
			}
		}
		return -1
	}
	labelCol := func(codeIdx int) int {
		if codeIdx >= 0 && codeIdx+1 < len(header) {
			return codeIdx + 1
		}
		return codeIdx
	}

	seriesIdx := findCol("SERIES")
	areaIdx := findCol("REF_AREA")
	timeIdx := findCol("TIME_PERIOD")
	valueIdx := findCol("OBS_VALUE")
	freqIdx := findCol("FREQ")
	if seriesIdx < 0 || areaIdx < 0 || timeIdx < 0 || valueIdx < 0 || freqIdx < 0 {
		return nil, fmt.Errorf("CSV is missing required columns (have: %s)", strings.Join(header, ", "))
	}
	seriesLabelIdx := labelCol(seriesIdx)
	areaLabelIdx := labelCol(areaIdx)

	areaLower := strings.ToLower(strings.TrimSpace(area))
	out := &Series{SeriesCode: seriesCode, FetchedAt: time.Now().UTC()}
	exact := make(map[int]float64)
	contains := make(map[int]float64)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV row: %w", err)
		}
		get := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		// Annual observations of the requested series only.
		if get(freqIdx) != "A" || get(seriesIdx) != seriesCode {
			continue
		}

		year, err := strconv.Atoi(get(timeIdx))
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(get(valueIdx), 64)
		if err != nil {
			continue
		}

		rowArea := strings.ToLower(get(areaLabelIdx))
		switch {
		case rowArea == areaLower:
			exact[year] = value
			out.AreaCode = get(areaIdx)
			out.AreaName = get(areaLabelIdx)
		case strings.Contains(rowArea, areaLower):
			if _, taken := contains[year]; !taken {
				contains[year] = value
			}
			if out.AreaName == "" {
				out.AreaCode = get(areaIdx)
				out.AreaName = get(areaLabelIdx)
			}
		default:
			continue
		}
		if out.SeriesName == "" {
			out.SeriesName = get(seriesLabelIdx)
		}
	}

	points := exact
	if len(points) == 0 {
		points = contains
	}
	for year, value := range points {
		out.Points = append(out.Points, Point{Year: year, Value: value})
	}
	out.Sort()
	return out, nil
}

// compile-time check to ensure SDMXSource implements the Source interface
var _ Source = (*SDMXSource)(nil)
