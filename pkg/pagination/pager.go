package pagination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Source abstracts the HTTP layer for paginators. *client.Client satisfies
// it; tests substitute fakes.
type Source interface {
	// GetJSON performs a retried GET and decodes the response into v.
	GetJSON(ctx context.Context, path string, v any) error

	// GetJSONOnce performs a single GET attempt and decodes the response
	// into v. Used by the cursor acquisition poll loop.
	GetJSONOnce(ctx context.Context, path string, v any) error
}

// page is one decoded response body. The record array key varies per
// endpoint ("users", "tickets", ...), so bodies decode into raw messages
// first.
type page map[string]json.RawMessage

// PagePager walks a page-numbered endpoint sequentially.
type PagePager struct {
	src      Source
	path     string // format string with one %d page-number placeholder
	resource string // key of the record array in each response
	logger   zerolog.Logger
}

// NewPagePager creates a pager for a page-numbered endpoint.
func NewPagePager(src Source, path, resource string) *PagePager {
	return &PagePager{
		src:      src,
		path:     path,
		resource: resource,
		logger:   log.With().Str("component", "page-pager").Str("resource", resource).Logger(),
	}
}

// FetchAll requests pages 1,2,3... accumulating records in page order.
// Termination is governed solely by next_page being null or absent: a page
// with zero records but a non-null next_page continues the walk.
func (p *PagePager) FetchAll(ctx context.Context) ([]map[string]any, error) {
	var records []map[string]any

	for pageNum := 1; ; pageNum++ {
		var body page
		if err := p.src.GetJSON(ctx, fmt.Sprintf(p.path, pageNum), &body); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}

		recs, err := decodeRecords(body, p.resource)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		records = append(records, recs...)

		next, err := decodeNextPage(body)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if next == "" {
			p.logger.Debug().
				Int("pages", pageNum).
				Int("records", len(records)).
				Msg("Pagination complete")
			return records, nil
		}

		p.logger.Debug().
			Int("page", pageNum).
			Int("records", len(recs)).
			Msg("Fetched page")
	}
}

// FetchOne requests a single non-paginated endpoint and returns its record
// array. Used for collections the API serves in one response.
func FetchOne(ctx context.Context, src Source, path, resource string) ([]map[string]any, error) {
	var body page
	if err := src.GetJSON(ctx, path, &body); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	return decodeRecords(body, resource)
}

// decodeRecords extracts the record array under the resource key.
// A missing key is a fatal decode error: the response shape is not what
// the endpoint contract promises.
func decodeRecords(body page, resource string) ([]map[string]any, error) {
	raw, ok := body[resource]
	if !ok {
		return nil, fmt.Errorf("response missing %q array", resource)
	}
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode %q array: %w", resource, err)
	}
	return records, nil
}

// decodeNextPage extracts the continuation URL. Absent and null are both
// terminal and yield the empty string.
func decodeNextPage(body page) (string, error) {
	raw, ok := body["next_page"]
	if !ok {
		return "", nil
	}
	var next *string
	if err := json.Unmarshal(raw, &next); err != nil {
		return "", fmt.Errorf("decode next_page: %w", err)
	}
	if next == nil {
		return "", nil
	}
	return *next, nil
}
