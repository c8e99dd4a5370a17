package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

// HeaderDataID carries the record id on every published message.
const HeaderDataID = "Jdy-Data-Id"

const (
	sinkNATS = "nats"

	defaultFlushTimeout = 10 * time.Second
)

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// NATSSink publishes every record as one NATS message.
type NATSSink struct {
	conn    Publisher
	subject string
}

// NewNATSSink creates a sink publishing on conn. An empty subject publishes
// to the entry's default subject (see EntryRef.Subject).
func NewNATSSink(conn Publisher, subject string) *NATSSink {
	if conn == nil {
		panic("nats connection cannot be nil")
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Write publishes records in order and waits until the server has
// processed them.
func (s *NATSSink) Write(ctx context.Context, ref EntryRef, records []client.Record) error {
	encodedRecords, err := encodeRecords(records)
	if err != nil {
		SinkErrors.WithLabelValues(sinkNATS, "publish").Inc()
		return err
	}

	subject := s.subject
	if subject == "" {
		subject = ref.Subject()
	}

	for _, rec := range encodedRecords {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := nats.NewMsg(subject)
		msg.Header.Set(HeaderDataID, rec.id)
		msg.Data = rec.data
		if err := s.conn.PublishMsg(msg); err != nil {
			SinkErrors.WithLabelValues(sinkNATS, "publish").Inc()
			return fmt.Errorf("nats publish %s: %w", rec.id, err)
		}
	}

	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		SinkErrors.WithLabelValues(sinkNATS, "flush").Inc()
		return fmt.Errorf("nats flush: %w", err)
	}

	RecordsWritten.WithLabelValues(sinkNATS).Add(float64(len(encodedRecords)))
	return nil
}
