package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

var (
	// ErrRecordWithoutID indicates a record without an "_id" field.
	ErrRecordWithoutID = errors.New("record without _id")

	// ErrInvalidRecord indicates a stored record that cannot be decoded.
	ErrInvalidRecord = errors.New("invalid stored record")
)

// Sink receives the full record set of an entry.
type Sink interface {
	Write(ctx context.Context, ref EntryRef, records []client.Record) error
}

// encoded is a record serialized for a sink.
type encoded struct {
	id   string
	data []byte
}

// encodeRecords validates and serializes records. It fails before anything
// is written if any record has no id.
func encodeRecords(records []client.Record) ([]encoded, error) {
	out := make([]encoded, 0, len(records))
	for i, rec := range records {
		id := rec.ID()
		if id == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrRecordWithoutID)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", id, err)
		}
		out = append(out, encoded{id: id, data: data})
	}
	return out, nil
}
