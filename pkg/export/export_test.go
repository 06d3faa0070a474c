package export

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/supportdata/zendesk-export/internal/testutil"
	"github.com/supportdata/zendesk-export/pkg/client"
	"github.com/supportdata/zendesk-export/pkg/pagination"
)

func testConfig(baseURL string) client.Config {
	cfg := client.DefaultConfig(client.Credentials{
		Email:     "agent@example.com",
		Token:     "secret-token",
		Subdomain: "acme",
	})
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 0
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    2 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	return cfg
}

func fastCursorConfig() pagination.CursorConfig {
	return pagination.CursorConfig{
		MaxPolls:     3,
		PollInterval: 1 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, mock *testutil.MockZendesk) *Client {
	t.Helper()
	c, err := New(testConfig(mock.URL()), WithCursorConfig(fastCursorConfig()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetUsers_MultiPage(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetPagedResponses("/api/v2/users.json",
		`{"users": [{"id": 1, "name": "alice"}, {"id": 2, "name": "bob"}], "next_page": "https://acme.zendesk.com/api/v2/users.json?page=2"}`,
		`{"users": [{"id": 3, "name": "carol", "organization": {"name": "ACME"}}], "next_page": "https://acme.zendesk.com/api/v2/users.json?page=3"}`,
		`{"users": [{"id": 4, "name": "dave"}], "next_page": null}`,
	)

	c := newTestClient(t, mock)
	users, err := c.GetUsers(context.Background())
	if err != nil {
		t.Fatalf("GetUsers: %v", err)
	}

	if users.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", users.Len())
	}
	if got := mock.PathCount("/api/v2/users.json"); got != 3 {
		t.Errorf("Expected 3 page requests, got %d", got)
	}
	// Page order preserved
	for i, want := range []float64{1, 2, 3, 4} {
		if v, _ := users.Cell(i, "id"); v != want {
			t.Errorf("Cell(%d, id) = %v, want %v", i, v, want)
		}
	}
	// Nested object flattened into a dotted column
	if !users.HasColumn("organization.name") {
		t.Errorf("Columns = %v, want organization.name present", users.Columns)
	}
	if v, _ := users.Cell(2, "organization.name"); v != "ACME" {
		t.Errorf("Cell(2, organization.name) = %v, want ACME", v)
	}
}

func TestGetTickets_MergesPhasesInOrder(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("/api/v2/incremental/tickets.json", testutil.NewHealthyResponse(`{
		"tickets": [
			{"id": 1, "custom_fields": [{"id": 1, "value": "a"}]},
			{"id": 2, "custom_fields": []},
			{"id": 3}
		],
		"cursor": "c1"
	}`))
	mock.SetHandler("/api/v2/incremental/tickets/cursor.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "c1":
			w.Write([]byte(`{
				"tickets": [{"id": 4, "custom_fields": [{"id": 2, "value": "b"}]}, {"id": 5}],
				"cursor": "c2",
				"end_of_stream": false
			}`))
		case "c2":
			w.Write([]byte(`{
				"tickets": [{"id": 6}, {"id": 7}, {"id": 8}],
				"cursor": null,
				"end_of_stream": true
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	c := newTestClient(t, mock)
	tickets, err := c.GetTickets(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("GetTickets: %v", err)
	}

	// 3 acquisition rows + 5 cursor-walk rows, acquisition first
	if tickets.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", tickets.Len())
	}
	for i, want := range []float64{1, 2, 3, 4, 5, 6, 7, 8} {
		if v, _ := tickets.Cell(i, "id"); v != want {
			t.Errorf("Cell(%d, id) = %v, want %v", i, v, want)
		}
	}

	// Custom fields pivoted across both phases
	if !tickets.HasColumn("1") || !tickets.HasColumn("2") {
		t.Fatalf("Columns = %v, want pivoted columns \"1\" and \"2\"", tickets.Columns)
	}
	if v, ok := tickets.Cell(0, "1"); !ok || v != "a" {
		t.Errorf("Cell(0, 1) = %v, %v; want a, true", v, ok)
	}
	if v, ok := tickets.Cell(3, "2"); !ok || v != "b" {
		t.Errorf("Cell(3, 2) = %v, %v; want b, true", v, ok)
	}
	if _, ok := tickets.Cell(1, "1"); ok {
		t.Error("Row 1 should have no value for pivoted column 1")
	}
}

func TestGetTickets_StartTimeEpochSeconds(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("/api/v2/incremental/tickets.json",
		testutil.NewHealthyResponse(`{"tickets": [], "cursor": "c1"}`))
	mock.SetResponse("/api/v2/incremental/tickets/cursor.json",
		testutil.NewHealthyResponse(`{"tickets": [], "end_of_stream": true}`))

	c := newTestClient(t, mock)

	// UTC midnight for 2024-01-15
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := c.GetTickets(context.Background(), start); err != nil {
		t.Fatalf("GetTickets: %v", err)
	}

	found := false
	for _, u := range mock.URLs() {
		if strings.Contains(u, "start_time=1705276800") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected start_time=1705276800 in a request, got %v", mock.URLs())
	}
}

func TestGetTickets_DefaultStartTimeIsEpoch(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("/api/v2/incremental/tickets.json",
		testutil.NewHealthyResponse(`{"tickets": [], "cursor": "c1"}`))
	mock.SetResponse("/api/v2/incremental/tickets/cursor.json",
		testutil.NewHealthyResponse(`{"tickets": [], "end_of_stream": true}`))

	c := newTestClient(t, mock)
	if _, err := c.GetTickets(context.Background(), time.Time{}); err != nil {
		t.Fatalf("GetTickets: %v", err)
	}

	found := false
	for _, u := range mock.URLs() {
		if strings.Contains(u, "start_time=0") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected start_time=0 in a request, got %v", mock.URLs())
	}
}

func TestGetTickets_CursorTimeout(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("/api/v2/incremental/tickets.json",
		testutil.NewHealthyResponse(`{"tickets": [], "cursor": null}`))

	c := newTestClient(t, mock)
	_, err := c.GetTickets(context.Background(), time.Time{})
	if !errors.Is(err, pagination.ErrCursorTimeout) {
		t.Fatalf("Expected ErrCursorTimeout, got %v", err)
	}
	if got := mock.PathCount("/api/v2/incremental/tickets.json"); got != 3 {
		t.Errorf("Expected 3 acquisition polls, got %d", got)
	}
}

func TestGetCustomFields_SinglePage(t *testing.T) {
	mock := testutil.NewMockZendesk()
	defer mock.Close()
	mock.SetResponse("/api/v2/ticket_fields.json", testutil.NewHealthyResponse(`{
		"ticket_fields": [
			{"id": 1, "title": "Subject", "type": "subject"},
			{"id": 360001234567, "title": "Product Area", "type": "tagger"}
		]
	}`))

	c := newTestClient(t, mock)
	fields, err := c.GetCustomFields(context.Background())
	if err != nil {
		t.Fatalf("GetCustomFields: %v", err)
	}

	if fields.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", fields.Len())
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
	if v, _ := fields.Cell(1, "title"); v != "Product Area" {
		t.Errorf("Cell(1, title) = %v, want Product Area", v)
	}
}

func TestPackageLevelOperations_InvalidCredentials(t *testing.T) {
	ctx := context.Background()

	if _, err := GetUsers(ctx, "", "token", "acme"); err == nil {
		t.Error("GetUsers with empty email should fail")
	}
	if _, err := GetTickets(ctx, "a@example.com", "", "acme", time.Time{}); err == nil {
		t.Error("GetTickets with empty token should fail")
	}
	if _, err := GetCustomFields(ctx, "a@example.com", "token", ""); err == nil {
		t.Error("GetCustomFields with empty subdomain should fail")
	}
}
