package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrCursorTimeout is returned when the acquisition phase exhausts its poll
// budget without the endpoint yielding a cursor.
var ErrCursorTimeout = errors.New("cursor acquisition timed out")

// CursorConfig bounds the acquisition phase of the incremental export.
type CursorConfig struct {
	// MaxPolls is the maximum number of acquisition requests before the
	// fetch fails with ErrCursorTimeout.
	MaxPolls int

	// PollInterval is the pause between acquisition requests.
	PollInterval time.Duration
}

// DefaultCursorConfig returns the default acquisition bounds.
func DefaultCursorConfig() CursorConfig {
	return CursorConfig{
		MaxPolls:     10,
		PollInterval: 2 * time.Second,
	}
}

// CursorPager implements the two-phase incremental export protocol.
//
// Phase 1 (acquisition) polls the time-based endpoint until a response
// carries a non-null cursor. Each poll is a single request attempt; a
// failed poll is repeated by the loop, not by the retry policy. The loop
// is bounded by CursorConfig.
//
// Phase 2 (cursor walk) requests the cursor endpoint with the retry
// policy, chaining each response's cursor until end_of_stream is true.
type CursorPager struct {
	src        Source
	startPath  string // format string with one %d start-time placeholder
	cursorPath string // format string with one %s cursor placeholder
	resource   string
	config     CursorConfig
	logger     zerolog.Logger
}

// NewCursorPager creates a pager for an incremental export endpoint pair.
func NewCursorPager(src Source, startPath, cursorPath, resource string, config CursorConfig) *CursorPager {
	if config.MaxPolls <= 0 {
		config.MaxPolls = 10
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	return &CursorPager{
		src:        src,
		startPath:  startPath,
		cursorPath: cursorPath,
		resource:   resource,
		config:     config,
		logger:     log.With().Str("component", "cursor-pager").Str("resource", resource).Logger(),
	}
}

// FetchAll runs both phases for records updated at or after startTime
// (Unix epoch seconds). It returns the acquisition-phase records and the
// accumulated cursor-walk records separately so the caller can merge them
// with acquisition rows first.
func (p *CursorPager) FetchAll(ctx context.Context, startTime int64) (head, rest []map[string]any, err error) {
	head, cursor, err := p.acquire(ctx, startTime)
	if err != nil {
		return nil, nil, err
	}

	rest, err = p.walk(ctx, cursor)
	if err != nil {
		return nil, nil, err
	}
	return head, rest, nil
}

// acquire polls the time-based endpoint until a cursor appears.
func (p *CursorPager) acquire(ctx context.Context, startTime int64) ([]map[string]any, string, error) {
	path := fmt.Sprintf(p.startPath, startTime)

	for poll := 1; poll <= p.config.MaxPolls; poll++ {
		var body page
		if err := p.src.GetJSONOnce(ctx, path, &body); err != nil {
			p.logger.Warn().
				Err(err).
				Int("poll", poll).
				Msg("Acquisition poll failed")
		} else {
			cursor, err := decodeCursor(body)
			if err != nil {
				return nil, "", fmt.Errorf("acquisition poll %d: %w", poll, err)
			}
			if cursor != "" {
				records, err := decodeRecords(body, p.resource)
				if err != nil {
					return nil, "", fmt.Errorf("acquisition poll %d: %w", poll, err)
				}
				p.logger.Debug().
					Int("polls", poll).
					Int("records", len(records)).
					Msg("Cursor acquired")
				return records, cursor, nil
			}
			p.logger.Debug().
				Int("poll", poll).
				Msg("No cursor yet")
		}

		if poll >= p.config.MaxPolls {
			break
		}
		select {
		case <-ctx.Done():
			return nil, "", fmt.Errorf("acquisition cancelled: %w", ctx.Err())
		case <-time.After(p.config.PollInterval):
		}
	}

	p.logger.Warn().
		Int("max_polls", p.config.MaxPolls).
		Msg("Acquisition poll budget exhausted")
	return nil, "", fmt.Errorf("%w after %d polls", ErrCursorTimeout, p.config.MaxPolls)
}

// walk chains cursor requests until the stream ends.
func (p *CursorPager) walk(ctx context.Context, cursor string) ([]map[string]any, error) {
	var records []map[string]any

	for pageNum := 1; ; pageNum++ {
		var body page
		path := fmt.Sprintf(p.cursorPath, url.QueryEscape(cursor))
		if err := p.src.GetJSON(ctx, path, &body); err != nil {
			return nil, fmt.Errorf("cursor walk page %d: %w", pageNum, err)
		}

		recs, err := decodeRecords(body, p.resource)
		if err != nil {
			return nil, fmt.Errorf("cursor walk page %d: %w", pageNum, err)
		}
		records = append(records, recs...)

		end, err := decodeEndOfStream(body)
		if err != nil {
			return nil, fmt.Errorf("cursor walk page %d: %w", pageNum, err)
		}
		if end {
			p.logger.Debug().
				Int("pages", pageNum).
				Int("records", len(records)).
				Msg("Cursor walk complete")
			return records, nil
		}

		next, err := decodeCursor(body)
		if err != nil {
			return nil, fmt.Errorf("cursor walk page %d: %w", pageNum, err)
		}
		if next == "" {
			return nil, fmt.Errorf("cursor walk page %d: stream continues but response has no cursor", pageNum)
		}
		cursor = next
	}
}

// decodeCursor extracts the continuation cursor. Absent and null both
// yield the empty string.
func decodeCursor(body page) (string, error) {
	raw, ok := body["cursor"]
	if !ok {
		return "", nil
	}
	var cursor *string
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	if cursor == nil {
		return "", nil
	}
	return *cursor, nil
}

// decodeEndOfStream extracts the end_of_stream flag. Absent means the
// stream has not ended.
func decodeEndOfStream(body page) (bool, error) {
	raw, ok := body["end_of_stream"]
	if !ok {
		return false, nil
	}
	var end bool
	if err := json.Unmarshal(raw, &end); err != nil {
		return false, fmt.Errorf("decode end_of_stream: %w", err)
	}
	return end, nil
}
