// Package pagination walks cursor-paginated data sets.
//
// The form-data service pages with a cursor: each request passes the "_id"
// of the last record of the previous page, starting from an empty cursor,
// and an empty page marks the end of the data set.
//
// Example usage:
//
//	fetcher := pagination.NewCursorFetcher[client.Record](
//		pagination.PageFetcherFunc[client.Record](fetchPage),
//		client.Record.ID,
//		pagination.Config{Name: "orders"},
//	)
//	records, err := fetcher.FetchAll(ctx)
//
// The cursor fetcher:
//   - Requests one page at a time and waits for it before the next
//   - Keeps records in the order the service returned them
//   - Stops on the first empty page
//   - Fails on the first page error and returns no partial data
package pagination
