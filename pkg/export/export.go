// Package export provides the public fetch operations of the library:
// retrieving users, tickets, and ticket field definitions from a Zendesk
// account as flattened tables.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/supportdata/zendesk-export/pkg/client"
	"github.com/supportdata/zendesk-export/pkg/pagination"
	"github.com/supportdata/zendesk-export/pkg/table"
)

// API paths. Page numbers, start times and cursors are formatted in by the
// paginators.
const (
	usersPath         = "/api/v2/users.json?page=%d"
	ticketsStartPath  = "/api/v2/incremental/tickets.json?start_time=%d"
	ticketsCursorPath = "/api/v2/incremental/tickets/cursor.json?cursor=%s"
	ticketFieldsPath  = "/api/v2/ticket_fields.json"
)

// Client exposes the export operations for one Zendesk account.
type Client struct {
	api       *client.Client
	cursorCfg pagination.CursorConfig
	logger    zerolog.Logger
}

// Option customizes an export client.
type Option func(*Client)

// WithCursorConfig overrides the incremental export acquisition bounds.
func WithCursorConfig(cfg pagination.CursorConfig) Option {
	return func(c *Client) {
		c.cursorCfg = cfg
	}
}

// New creates an export client from a client configuration.
func New(cfg client.Config, opts ...Option) (*Client, error) {
	api, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		api:       api,
		cursorCfg: pagination.DefaultCursorConfig(),
		logger:    log.With().Str("component", "export").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetUsers fetches all end-users, paginated by page number, as a flattened
// table.
func (c *Client) GetUsers(ctx context.Context) (table.Table, error) {
	pager := pagination.NewPagePager(c.api, usersPath, "users")
	records, err := pager.FetchAll(ctx)
	if err != nil {
		return table.Table{}, fmt.Errorf("get users: %w", err)
	}

	rows, err := table.FlattenRecords(records)
	if err != nil {
		return table.Table{}, fmt.Errorf("get users: %w", err)
	}

	t := table.New(rows...)
	c.logger.Info().
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("Users fetched")
	return t, nil
}

// GetTickets fetches all tickets updated at or after startTime via the
// incremental export endpoints, with custom fields pivoted into columns.
// A zero startTime means all-time (epoch). The timestamp placed in the
// request is startTime's Unix epoch seconds; callers are responsible for
// timezone normalization before calling.
//
// The acquisition-phase page and the first cursor-walk page may overlap;
// rows are merged as returned, without deduplication by ticket id.
func (c *Client) GetTickets(ctx context.Context, startTime time.Time) (table.Table, error) {
	var start int64
	if !startTime.IsZero() {
		start = startTime.UTC().Unix()
	}

	pager := pagination.NewCursorPager(c.api, ticketsStartPath, ticketsCursorPath, "tickets", c.cursorCfg)
	head, rest, err := pager.FetchAll(ctx, start)
	if err != nil {
		return table.Table{}, fmt.Errorf("get tickets: %w", err)
	}

	headRows, err := table.FlattenRecords(head)
	if err != nil {
		return table.Table{}, fmt.Errorf("get tickets: %w", err)
	}
	restRows, err := table.FlattenRecords(rest)
	if err != nil {
		return table.Table{}, fmt.Errorf("get tickets: %w", err)
	}

	t := table.Merge(table.New(headRows...), table.New(restRows...))
	c.logger.Info().
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Int64("start_time", start).
		Msg("Tickets fetched")
	return t, nil
}

// GetCustomFields fetches all ticket field definitions (system and custom)
// as a flattened table. The endpoint serves everything in one response, so
// no pagination loop is needed.
func (c *Client) GetCustomFields(ctx context.Context) (table.Table, error) {
	records, err := pagination.FetchOne(ctx, c.api, ticketFieldsPath, "ticket_fields")
	if err != nil {
		return table.Table{}, fmt.Errorf("get custom fields: %w", err)
	}

	rows, err := table.FlattenRecords(records)
	if err != nil {
		return table.Table{}, fmt.Errorf("get custom fields: %w", err)
	}

	t := table.New(rows...)
	c.logger.Info().
		Int("rows", t.Len()).
		Msg("Ticket fields fetched")
	return t, nil
}

// GetUsers fetches all end-users for the given account with a default
// client configuration.
func GetUsers(ctx context.Context, email, token, subdomain string) (table.Table, error) {
	c, err := New(client.DefaultConfig(client.Credentials{Email: email, Token: token, Subdomain: subdomain}))
	if err != nil {
		return table.Table{}, err
	}
	return c.GetUsers(ctx)
}

// GetTickets fetches all tickets updated at or after startTime for the
// given account with a default client configuration. A zero startTime
// means all-time.
func GetTickets(ctx context.Context, email, token, subdomain string, startTime time.Time) (table.Table, error) {
	c, err := New(client.DefaultConfig(client.Credentials{Email: email, Token: token, Subdomain: subdomain}))
	if err != nil {
		return table.Table{}, err
	}
	return c.GetTickets(ctx, startTime)
}

// GetCustomFields fetches all ticket field definitions for the given
// account with a default client configuration.
func GetCustomFields(ctx context.Context, email, token, subdomain string) (table.Table, error) {
	c, err := New(client.DefaultConfig(client.Credentials{Email: email, Token: token, Subdomain: subdomain}))
	if err != nil {
		return table.Table{}, err
	}
	return c.GetCustomFields(ctx)
}
