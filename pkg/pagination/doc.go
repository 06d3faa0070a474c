// Package pagination provides sequential fetching for paginated Zendesk
// endpoints.
//
// Two strategies are implemented:
//
//   - PagePager walks page-numbered endpoints (?page=N), stopping when the
//     response's next_page field is null.
//   - CursorPager implements the two-phase incremental export protocol:
//     poll a time-based endpoint until it yields a cursor, then walk the
//     cursor endpoint until end_of_stream.
//
// Example usage:
//
//	pager := pagination.NewPagePager(apiClient, "/api/v2/users.json?page=%d", "users")
//	records, err := pager.FetchAll(ctx)
//
// Cursor chains are strictly sequential, so pages are fetched one at a
// time and accumulated in order. A fetch either returns every page or
// fails; there is no partial-result mode.
package pagination
