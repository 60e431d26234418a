package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/prepnest/mocktest-backend/internal/config"
	"github.com/prepnest/mocktest-backend/internal/model"
)

// RedisAnswerSink is the controller's answer persistence collaborator. It
// writes each answer twice: into the session's live-answer hash, keyed by
// question number so a restarted process can rebuild the answer map, and
// onto the persist queue for the answer worker to UPSERT into PostgreSQL.
type RedisAnswerSink struct {
	rdb *redis.Client
}

// NewRedisAnswerSink creates a new RedisAnswerSink.
func NewRedisAnswerSink(rdb *redis.Client) *RedisAnswerSink {
	return &RedisAnswerSink{rdb: rdb}
}

// UpsertAnswer buffers rec in Redis and enqueues it for durable persistence.
func (s *RedisAnswerSink) UpsertAnswer(ctx context.Context, rec model.AnswerUpsert) error {
	key := config.CacheKey.SessionAnswersKey(rec.SessionID.String())
	if err := s.rdb.HSet(ctx, key, strconv.Itoa(rec.QuestionNumber), rec.RawAnswer).Err(); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue answer: %w", err)
	}
	return nil
}
