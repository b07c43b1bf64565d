// Package pagination drives repeated Helix calls through a page fetcher,
// following opaque cursors until exhaustion or a caller-supplied record cap.
package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// Helix pagination query parameters.
const (
	// ParamPageSize is the per-page record count parameter.
	ParamPageSize = "first"

	// ParamCursor carries the continuation cursor of the previous page.
	ParamCursor = "after"
)

// NoCap collects every page until the server stops issuing cursors.
const NoCap = -1

// Page is one page of a paginated Helix response.
type Page struct {
	// Records are the raw entries of the page's data array.
	Records []json.RawMessage

	// Cursor is the opaque continuation marker; empty on the last page.
	Cursor string

	// Total is the resource-wide record count, for the few endpoints
	// that report one (e.g. users/follows). Zero elsewhere.
	Total int
}

// PageFetcher is the interface the Helix client implements for
// single-page fetching.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, params url.Values) (Page, error)
}

// Result is the accumulated outcome of a pagination session.
type Result struct {
	Records []json.RawMessage
	Total   int
}

// Collector accumulates records across pages.
type Collector struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewCollector creates a collector over the given fetcher.
func NewCollector(fetcher PageFetcher, logger zerolog.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect requests pages of up to pageSize records until the server omits
// the continuation cursor, or until cap records have been accumulated when
// cap is positive. A cap of NoCap collects everything; a cap of zero
// returns an empty result without issuing any request.
//
// A missing cursor is the normal end-of-data signal, not an error, and
// short pages are accepted as authoritative. The caller's params are not
// mutated.
func (c *Collector) Collect(ctx context.Context, endpoint string, params url.Values, pageSize, cap int) (Result, error) {
	if pageSize <= 0 {
		return Result{}, fmt.Errorf("page size must be positive (got %d)", pageSize)
	}
	if cap == 0 {
		return Result{}, nil
	}

	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}

	var result Result
	capped := cap > 0
	remaining := cap
	pages := 0

	for {
		size := pageSize
		if capped && remaining < size {
			size = remaining
		}
		query.Set(ParamPageSize, strconv.Itoa(size))

		page, err := c.fetcher.FetchPage(ctx, endpoint, query)
		if err != nil {
			return Result{}, err
		}

		pages++
		if pages == 1 {
			result.Total = page.Total
		}
		result.Records = append(result.Records, page.Records...)

		if capped {
			remaining -= len(page.Records)
			if remaining <= 0 {
				break
			}
		}
		if page.Cursor == "" {
			break
		}
		if len(page.Records) == 0 {
			// A cursor on an empty page would spin forever.
			break
		}

		query.Set(ParamCursor, page.Cursor)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("pages", pages).
		Int("records", len(result.Records)).
		Msg("Completed paginated request")

	return result, nil
}
