package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

// ErrNotSynced indicates that no records were ever written for an entry.
var ErrNotSynced = errors.New("entry not synced")

const sinkRedis = "redis"

// RedisSink stores the records of an entry in a Redis hash.
type RedisSink struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// NewRedisSink creates a sink backed by redisClient.
func NewRedisSink(redisClient redis.UniversalClient) *RedisSink {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisSink{
		redis: redisClient,
		now:   time.Now,
	}
}

// Write replaces the stored records of ref with records in one transaction
// and updates the sync timestamp.
func (s *RedisSink) Write(ctx context.Context, ref EntryRef, records []client.Record) error {
	encodedRecords, err := encodeRecords(records)
	if err != nil {
		SinkErrors.WithLabelValues(sinkRedis, "write").Inc()
		return err
	}

	fields := make([]any, 0, 2*len(encodedRecords))
	for _, rec := range encodedRecords {
		fields = append(fields, rec.id, rec.data)
	}

	key := ref.RecordsKey()
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields...)
		}
		pipe.Set(ctx, ref.SyncedAtKey(), s.now().UTC().Format(time.RFC3339), 0)
		return nil
	})
	if err != nil {
		SinkErrors.WithLabelValues(sinkRedis, "write").Inc()
		return fmt.Errorf("redis write %s: %w", ref, err)
	}

	RecordsWritten.WithLabelValues(sinkRedis).Add(float64(len(encodedRecords)))
	return nil
}

// Load returns the stored records of ref keyed by record id.
func (s *RedisSink) Load(ctx context.Context, ref EntryRef) (map[string]client.Record, error) {
	stored, err := s.redis.HGetAll(ctx, ref.RecordsKey()).Result()
	if err != nil {
		SinkErrors.WithLabelValues(sinkRedis, "load").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	records := make(map[string]client.Record, len(stored))
	for id, data := range stored {
		var rec client.Record
		dec := json.NewDecoder(bytes.NewReader([]byte(data)))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			SinkErrors.WithLabelValues(sinkRedis, "load").Inc()
			return nil, fmt.Errorf("%w %s: %v", ErrInvalidRecord, id, err)
		}
		records[id] = rec
	}
	return records, nil
}

// Count returns the number of stored records of ref.
func (s *RedisSink) Count(ctx context.Context, ref EntryRef) (int64, error) {
	n, err := s.redis.HLen(ctx, ref.RecordsKey()).Result()
	if err != nil {
		SinkErrors.WithLabelValues(sinkRedis, "count").Inc()
		return 0, fmt.Errorf("redis hlen: %w", err)
	}
	return n, nil
}

// SyncedAt returns the time of the last write for ref.
// Returns ErrNotSynced if ref was never written.
func (s *RedisSink) SyncedAt(ctx context.Context, ref EntryRef) (time.Time, error) {
	raw, err := s.redis.Get(ctx, ref.SyncedAtKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, ErrNotSynced
		}
		return time.Time{}, fmt.Errorf("redis get: %w", err)
	}
	return time.Parse(time.RFC3339, raw)
}
