package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

var (
	_ Sink = (*RedisSink)(nil)
	_ Sink = (*NATSSink)(nil)
)

func TestEncodeRecords(t *testing.T) {
	records := []client.Record{
		{"_id": "a", "_widget_1": client.Value("x")},
		{"_id": "b"},
	}

	got, err := encodeRecords(records)
	if err != nil {
		t.Fatalf("encodeRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].id != "a" || got[1].id != "b" {
		t.Errorf("ids = %q, %q, want a, b", got[0].id, got[1].id)
	}
	if string(got[0].data) != `{"_id":"a","_widget_1":{"value":"x"}}` {
		t.Errorf("data = %s", got[0].data)
	}
}

func TestEncodeRecords_WithoutID(t *testing.T) {
	_, err := encodeRecords([]client.Record{{"_id": "a"}, {"name": "no id"}})
	if !errors.Is(err, ErrRecordWithoutID) {
		t.Fatalf("error = %v, want ErrRecordWithoutID", err)
	}
}

func TestNewRedisSink_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisSink should panic with nil redis client")
		}
	}()
	NewRedisSink(nil)
}

func TestRedisSink_RejectsBeforeWriting(t *testing.T) {
	// Nothing listens on this address; the write must fail before dialing.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()

	s := NewRedisSink(rdb)
	err := s.Write(context.Background(), EntryRef{AppID: "a", EntryID: "e"}, []client.Record{{}})
	if !errors.Is(err, ErrRecordWithoutID) {
		t.Fatalf("error = %v, want ErrRecordWithoutID", err)
	}
}

type fakePublisher struct {
	msgs       []*nats.Msg
	publishErr error
	flushErr   error
	flushes    int
	deadline   bool
}

func (p *fakePublisher) PublishMsg(msg *nats.Msg) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) FlushWithContext(ctx context.Context) error {
	p.flushes++
	_, p.deadline = ctx.Deadline()
	return p.flushErr
}

func TestNATSSink_Write(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATSSink(pub, "")
	ref := EntryRef{AppID: "app", EntryID: "entry"}

	err := s.Write(context.Background(), ref, []client.Record{{"_id": "a"}, {"_id": "b"}})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}
	for i, want := range []string{"a", "b"} {
		msg := pub.msgs[i]
		if msg.Subject != "jdy.app.entry.records" {
			t.Errorf("msg %d subject = %q", i, msg.Subject)
		}
		if got := msg.Header.Get(HeaderDataID); got != want {
			t.Errorf("msg %d %s = %q, want %q", i, HeaderDataID, got, want)
		}
	}
	if pub.flushes != 1 {
		t.Errorf("flushes = %d, want 1", pub.flushes)
	}
	if !pub.deadline {
		t.Error("flush context has no deadline")
	}
}

func TestNATSSink_CustomSubject(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATSSink(pub, "records.mirror")

	if err := s.Write(context.Background(), EntryRef{}, []client.Record{{"_id": "a"}}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if pub.msgs[0].Subject != "records.mirror" {
		t.Errorf("subject = %q, want records.mirror", pub.msgs[0].Subject)
	}
}

func TestNATSSink_Errors(t *testing.T) {
	ref := EntryRef{AppID: "app", EntryID: "entry"}
	records := []client.Record{{"_id": "a"}}

	t.Run("record without id publishes nothing", func(t *testing.T) {
		pub := &fakePublisher{}
		err := NewNATSSink(pub, "").Write(context.Background(), ref, []client.Record{{"_id": "a"}, {}})
		if !errors.Is(err, ErrRecordWithoutID) {
			t.Errorf("error = %v, want ErrRecordWithoutID", err)
		}
		if len(pub.msgs) != 0 {
			t.Errorf("published %d messages, want 0", len(pub.msgs))
		}
	})

	t.Run("publish error", func(t *testing.T) {
		pub := &fakePublisher{publishErr: nats.ErrConnectionClosed}
		err := NewNATSSink(pub, "").Write(context.Background(), ref, records)
		if !errors.Is(err, nats.ErrConnectionClosed) {
			t.Errorf("error = %v, want ErrConnectionClosed", err)
		}
	})

	t.Run("flush error", func(t *testing.T) {
		pub := &fakePublisher{flushErr: nats.ErrTimeout}
		err := NewNATSSink(pub, "").Write(context.Background(), ref, records)
		if !errors.Is(err, nats.ErrTimeout) {
			t.Errorf("error = %v, want ErrTimeout", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pub := &fakePublisher{}
		err := NewNATSSink(pub, "").Write(ctx, ref, records)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}
