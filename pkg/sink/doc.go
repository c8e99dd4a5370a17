// Package sink mirrors the records of an entry into external systems.
//
// Two sinks are provided:
//
//   - RedisSink stores the records of an entry in a Redis hash keyed by
//     record id and replaces the hash atomically on every write.
//   - NATSSink publishes every record as one NATS message.
//
// # Basic Usage
//
//	records, err := c.GetAllFormData(ctx, nil, nil)
//	if err != nil {
//		return err
//	}
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := sink.NewRedisSink(rdb)
//
//	ref := sink.EntryRef{AppID: c.AppID(), EntryID: c.EntryID()}
//	if err := s.Write(ctx, ref, records); err != nil {
//		return err
//	}
//
// # Keys and Subjects
//
//	jdy:{app}:{entry}:records     hash of _id -> record JSON
//	jdy:{app}:{entry}:synced_at   RFC3339 time of the last write
//	jdy.{app}.{entry}.records     NATS subject, one message per record
//
// # Metrics
//
//   - jdy_sink_records_written_total{sink} - Records written
//   - jdy_sink_errors_total{sink,operation} - Failed sink operations
package sink
