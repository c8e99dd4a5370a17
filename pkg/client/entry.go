package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Sternrassler/jdy-client/pkg/pagination"
)

type dataQuery struct {
	Limit  int      `json:"limit"`
	Fields []string `json:"fields"`
	Filter *Filter  `json:"filter,omitempty"`
	DataID string   `json:"data_id"`
}

type dataRef struct {
	DataID string `json:"data_id"`
}

type dataWrite struct {
	DataID string `json:"data_id,omitempty"`
	Data   Record `json:"data"`
}

// GetFormWidgets returns the field definitions of the entry.
func (c *Client) GetFormWidgets(ctx context.Context) ([]Widget, error) {
	result, err := c.SendRequest(ctx, http.MethodPost, c.endpoints.widgets, struct{}{})
	if err != nil {
		return nil, err
	}

	widgets := []Widget{}
	if err := extract(result, "widgets", &widgets); err != nil {
		return nil, err
	}
	if widgets == nil {
		widgets = []Widget{}
	}
	return widgets, nil
}

// GetFormData returns one page of at most limit records following cursor,
// the "_id" of the last record of the previous page ("" for the first page).
// An exhausted data set yields an empty slice.
func (c *Client) GetFormData(ctx context.Context, limit int, fields []string, filter *Filter, cursor string) ([]Record, error) {
	if fields == nil {
		fields = []string{}
	}
	query := dataQuery{
		Limit:  limit,
		Fields: fields,
		Filter: filter,
		DataID: cursor,
	}

	result, err := c.SendRequest(ctx, http.MethodPost, c.endpoints.data, query)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	if err := extract(result, "data", &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// GetAllFormData returns every record matching filter by walking the data set
// in pages of PageSize. It fails on the first page error without returning
// partial results.
func (c *Client) GetAllFormData(ctx context.Context, fields []string, filter *Filter) ([]Record, error) {
	fetchPage := func(ctx context.Context, cursor string) ([]Record, error) {
		return c.GetFormData(ctx, PageSize, fields, filter, cursor)
	}

	fetcher := pagination.NewCursorFetcher[Record](
		pagination.PageFetcherFunc[Record](fetchPage),
		Record.ID,
		pagination.Config{Name: c.config.EntryID, Logger: &c.logger},
	)
	return fetcher.FetchAll(ctx)
}

// RetrieveData returns a single record.
func (c *Client) RetrieveData(ctx context.Context, dataID string) (Record, error) {
	result, err := c.SendRequest(ctx, http.MethodPost, c.endpoints.retrieve, dataRef{DataID: dataID})
	if err != nil {
		return nil, err
	}
	return extractRecord(result)
}

// CreateData creates a record from data and returns it, including its "_id".
func (c *Client) CreateData(ctx context.Context, data Record) (Record, error) {
	result, err := c.SendRequest(ctx, http.MethodPost, c.endpoints.create, dataWrite{Data: data})
	if err != nil {
		return nil, err
	}
	return extractRecord(result)
}

// UpdateData applies update to the record and returns the updated record.
func (c *Client) UpdateData(ctx context.Context, dataID string, update Record) (Record, error) {
	result, err := c.SendRequest(ctx, http.MethodPost, c.endpoints.update, dataWrite{DataID: dataID, Data: update})
	if err != nil {
		return nil, err
	}
	return extractRecord(result)
}

// DeleteData deletes a record and returns the service's reply unchanged.
func (c *Client) DeleteData(ctx context.Context, dataID string) (json.RawMessage, error) {
	return c.SendRequest(ctx, http.MethodPost, c.endpoints.delete, dataRef{DataID: dataID})
}

func extractRecord(result json.RawMessage) (Record, error) {
	record := Record{}
	if err := extract(result, "data", &record); err != nil {
		return nil, err
	}
	if record == nil {
		record = Record{}
	}
	return record, nil
}

// extract decodes result[key] into dst. A result that is not an object, or a
// key that is missing or null, leaves dst untouched.
func extract(result json.RawMessage, key string, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(result, &fields); err != nil {
		return nil
	}

	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return &MalformedResponseError{
			StatusCode: http.StatusOK,
			Body:       result,
			Err:        fmt.Errorf("decode %q: %w", key, err),
		}
	}
	return nil
}
