package indicator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"AgriPolicy/pkg/logger"
)

// ErrUnknownIndicator reports a code absent from the catalog. It is
// raised before any network traffic.
var ErrUnknownIndicator = errors.New("unknown indicator code")

// ErrUnavailable reports that the data source kept failing after the
// full retry budget.
var ErrUnavailable = errors.New("indicator source unavailable")

// Client is the cached, coalescing front of the indicator source.
type Client struct {
	catalog *Catalog
	source  Source
	cache   Cache
	log     *logger.Logger

	ttl      time.Duration
	attempts int
	backoff  time.Duration

	group singleflight.Group
}

// NewClient creates a Client. attempts is the total number of fetch
// attempts per call; backoff is the initial delay between them, doubled
// after each failure.
func NewClient(catalog *Catalog, source Source, cache Cache, ttl time.Duration, attempts int, backoff time.Duration, log *logger.Logger) *Client {
	return &Client{
		catalog:  catalog,
		source:   source,
		cache:    cache,
		log:      log,
		ttl:      ttl,
		attempts: attempts,
		backoff:  backoff,
	}
}

// Catalog exposes the validated catalog for classification and listing.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Fetch returns the series for an indicator code (SDG or series form)
// in one area. The cache answers first; concurrent misses for the same
// key share one network call; network failures are retried with
// exponential backoff up to the attempt cap.
func (c *Client) Fetch(ctx context.Context, code, area string, r Range) (*Series, error) {
	entry, ok := c.catalog.Lookup(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndicator, code)
	}

	key := entry.SeriesCode + "|" + area + "|" + strconv.Itoa(r.StartYear) + "|" + strconv.Itoa(r.EndYear)
	if series, ok := c.cache.Get(ctx, key); ok {
		return series, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this
		// call waited its turn in the group.
		if series, ok := c.cache.Get(ctx, key); ok {
			return series, nil
		}

		series, err := c.fetchWithRetry(ctx, entry, area, r)
		if err != nil {
			return nil, err
		}
		series.Unit = entry.Unit
		c.cache.Set(ctx, key, series, c.ttl)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Series), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, entry *Entry, area string, r Range) (*Series, error) {
	var lastErr error
	delay := c.backoff

	for attempt := 1; attempt <= c.attempts; attempt++ {
		series, err := c.source.Fetch(ctx, entry.SeriesCode, area, r)
		if err == nil {
			return series, nil
		}
		// Only transient failures earn a retry; a rejected request
		// would just fail the same way again.
		if errors.Is(err, ErrRequestRejected) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.log.WithError(err).
			WithField("series", entry.SeriesCode).
			WithField("attempt", attempt).
			Warn("indicator fetch failed")

		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrUnavailable, entry.SeriesCode, c.attempts, lastErr)
}
