package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prepnest/mocktest-backend/internal/config"
	"github.com/prepnest/mocktest-backend/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAnswerSinkBuffersAndEnqueues(t *testing.T) {
	mr, rdb := newTestRedis(t)
	sink := NewRedisAnswerSink(rdb)
	ctx := context.Background()

	rec := model.AnswerUpsert{
		SessionID:      uuid.New(),
		QuestionID:     uuid.New(),
		QuestionNumber: 7,
		RawAnswer:      "B",
	}
	if err := sink.UpsertAnswer(ctx, rec); err != nil {
		t.Fatalf("UpsertAnswer: %v", err)
	}

	buffered := mr.HGet(config.CacheKey.SessionAnswersKey(rec.SessionID.String()), "7")
	if buffered != "B" {
		t.Fatalf("buffered answer = %q, want %q", buffered, "B")
	}

	payload, err := rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Bytes()
	if err != nil {
		t.Fatalf("queue read: %v", err)
	}
	var queued model.AnswerUpsert
	if err := json.Unmarshal(payload, &queued); err != nil {
		t.Fatalf("decode queued record: %v", err)
	}
	if queued.SessionID != rec.SessionID || queued.QuestionNumber != 7 || queued.RawAnswer != "B" {
		t.Fatalf("queued record = %+v, want %+v", queued, rec)
	}
}

func TestAnswerSinkOverwritesSameQuestion(t *testing.T) {
	mr, rdb := newTestRedis(t)
	sink := NewRedisAnswerSink(rdb)
	ctx := context.Background()

	sessionID := uuid.New()
	questionID := uuid.New()
	for _, ans := range []string{"A", "C"} {
		err := sink.UpsertAnswer(ctx, model.AnswerUpsert{
			SessionID:      sessionID,
			QuestionID:     questionID,
			QuestionNumber: 3,
			RawAnswer:      ans,
		})
		if err != nil {
			t.Fatalf("UpsertAnswer(%q): %v", ans, err)
		}
	}

	if got := mr.HGet(config.CacheKey.SessionAnswersKey(sessionID.String()), "3"); got != "C" {
		t.Fatalf("buffered answer = %q, want latest %q", got, "C")
	}
}

func TestResultCachePresentAndLookup(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewRedisResultCache(rdb)
	ctx := context.Background()

	outcome := model.SessionOutcome{
		SessionID: uuid.New(),
		Subject:   "CS",
		Result: model.ResultSet{
			Score:      12.5,
			MaxScore:   20,
			Percentage: 63,
		},
		Answers: map[int]string{1: "A"},
	}
	id := outcome.SessionID.String()

	// Live keys should be dropped once the result is cached.
	mr.HSet(config.CacheKey.SessionAnswersKey(id), "1", "A")
	mr.Set(config.CacheKey.SessionStartKey(id), "1700000000")
	mr.Set(config.CacheKey.SessionDurationKey(id), "60")

	if err := cache.Present(ctx, outcome); err != nil {
		t.Fatalf("Present: %v", err)
	}

	for _, key := range []string{
		config.CacheKey.SessionAnswersKey(id),
		config.CacheKey.SessionStartKey(id),
		config.CacheKey.SessionDurationKey(id),
	} {
		if mr.Exists(key) {
			t.Fatalf("live key %s not cleared", key)
		}
	}

	got, err := cache.Lookup(ctx, id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil {
		t.Fatal("Lookup returned nil for cached result")
	}
	if got.SessionID != outcome.SessionID || got.Result.Score != 12.5 || got.Answers[1] != "A" {
		t.Fatalf("cached outcome = %+v, want %+v", got, outcome)
	}
}

func TestResultCacheLookupMiss(t *testing.T) {
	_, rdb := newTestRedis(t)
	cache := NewRedisResultCache(rdb)

	got, err := cache.Lookup(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("Lookup = %+v, want nil on miss", got)
	}
}
