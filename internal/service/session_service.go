package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/config"
	"github.com/prepnest/mocktest-backend/internal/exam"
	"github.com/prepnest/mocktest-backend/internal/model"
	"github.com/prepnest/mocktest-backend/internal/repository"
)

var (
	// ErrSessionNotFound means no live controller and no durable record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoQuestions means the subject has no questions to sample.
	ErrNoQuestions = errors.New("no questions available for subject")
	// ErrResultNotReady means the session has not completed yet.
	ErrResultNotReady = errors.New("session result not ready")
)

// completedRetention is how long a controller outlives its countdown, so
// result reads right after completion are served from memory. Later reads
// fall back to the Redis result cache and the durable record.
const completedRetention = 10 * time.Minute

// SessionService owns the registry of live session controllers and the
// recovery path for sessions whose controller did not survive a restart.
type SessionService struct {
	cfg       *config.Config
	questions *QuestionService
	sessions  *repository.SessionRepository
	sink      *RedisAnswerSink
	results   *RedisResultCache
	tokens    *TokenService
	rdb       *redis.Client
	log       zerolog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*exam.Controller
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	questions *QuestionService,
	sessions *repository.SessionRepository,
	sink *RedisAnswerSink,
	results *RedisResultCache,
	tokens *TokenService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:       cfg,
		questions: questions,
		sessions:  sessions,
		sink:      sink,
		results:   results,
		tokens:    tokens,
		rdb:       rdb,
		log:       log.With().Str("component", "session_service").Logger(),
		live:      make(map[uuid.UUID]*exam.Controller),
	}
}

// StartedSession is the create-session response payload: the durable id,
// the token that authorizes every later call, the sanitized paper and the
// initial state snapshot.
type StartedSession struct {
	SessionID       uuid.UUID                    `json:"session_id"`
	Token           string                       `json:"token"`
	DurationSeconds int                          `json:"duration_seconds"`
	Questions       []model.QuestionForCandidate `json:"questions"`
	State           exam.State                   `json:"state"`
}

// Start samples a paper for the requested subject, spins up a session
// controller and returns the candidate-facing view.
func (s *SessionService) Start(ctx context.Context, req model.CreateSessionRequest) (*StartedSession, error) {
	count := req.QuestionCount
	if count <= 0 || count > s.cfg.DefaultQuestionCount {
		count = s.cfg.DefaultQuestionCount
	}

	questions, err := s.questions.QuestionsForSubject(ctx, req.Subject, count)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	durationSeconds := s.cfg.SessionDurationMinutes * 60
	ctrl, err := exam.StartSession(ctx, exam.ControllerConfig{
		Log:            s.log,
		Store:          s.sessions,
		Sink:           s.sink,
		Presenter:      s.results,
		MaxInitRetries: s.cfg.MaxInitRetries,
	}, req.Subject, questions, durationSeconds)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.live[ctrl.ID()] = ctrl
	s.mu.Unlock()

	id := ctrl.ID()
	time.AfterFunc(time.Duration(durationSeconds)*time.Second+completedRetention, func() {
		s.Release(id)
	})

	s.cacheSessionClock(ctx, ctrl.ID(), time.Now())

	token, err := s.tokens.Mint(ctrl.ID())
	if err != nil {
		// The session is live; a token failure should not orphan it.
		s.abandon(ctx, ctrl)
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	paper := make([]model.QuestionForCandidate, len(questions))
	for i, q := range questions {
		paper[i] = q.ForCandidate(i + 1)
	}

	return &StartedSession{
		SessionID:       ctrl.ID(),
		Token:           token,
		DurationSeconds: durationSeconds,
		Questions:       paper,
		State:           ctrl.State(),
	}, nil
}

// cacheSessionClock stores the session's start instant and duration in
// Redis so remaining time can be recomputed after a restart. Best-effort.
func (s *SessionService) cacheSessionClock(ctx context.Context, id uuid.UUID, start time.Time) {
	ttl := time.Duration(s.cfg.SessionDurationMinutes)*time.Minute + time.Hour
	key := id.String()
	if err := s.rdb.Set(ctx, config.CacheKey.SessionStartKey(key), start.Unix(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", key).Msg("Failed to cache session start")
		return
	}
	s.rdb.Set(ctx, config.CacheKey.SessionDurationKey(key), s.cfg.SessionDurationMinutes, ttl)
}

// Controller returns the live controller for sessionID, if any.
func (s *SessionService) Controller(sessionID uuid.UUID) (*exam.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.live[sessionID]
	return ctrl, ok
}

// State returns the session's current snapshot. With a live controller
// this is authoritative; otherwise it is rebuilt from Redis with a
// PostgreSQL fallback, so a candidate reloading after a server restart
// still sees their answers and the right remaining time.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID) (*exam.State, error) {
	if ctrl, ok := s.Controller(sessionID); ok {
		st := ctrl.State()
		return &st, nil
	}
	return s.recoverState(ctx, sessionID)
}

func (s *SessionService) recoverState(ctx context.Context, sessionID uuid.UUID) (*exam.State, error) {
	record, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	st := &exam.State{
		SessionID:      record.ID,
		Subject:        record.Subject,
		Status:         record.Status,
		TotalQuestions: record.TotalQuestions,
		Answers:        map[int]string{},
	}
	if record.Status == model.SessionStatusCompleted {
		return st, nil
	}

	st.RemainingSeconds = s.remainingSeconds(ctx, record)
	st.CurrentQuestion = 1

	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to read answer buffer")
		return st, nil
	}
	for field, raw := range answers {
		num, convErr := strconv.Atoi(field)
		if convErr != nil || num < 1 || num > record.TotalQuestions {
			continue
		}
		st.Answers[num] = raw
	}
	st.AnsweredCount = answeredCount(st.Answers)
	return st, nil
}

// answeredCount counts non-blank answers, matching how the live runtime
// counts them: a whitespace-only value is recorded but not answered.
func answeredCount(answers map[int]string) int {
	n := 0
	for _, raw := range answers {
		if strings.TrimSpace(raw) != "" {
			n++
		}
	}
	return n
}

// remainingSeconds recomputes the countdown from the cached start instant,
// healing the cache from the durable record when the keys expired.
func (s *SessionService) remainingSeconds(ctx context.Context, record *model.Session) int {
	id := record.ID.String()
	startUnix, err := s.rdb.Get(ctx, config.CacheKey.SessionStartKey(id)).Int64()
	if err != nil {
		startUnix = record.StartTime.Unix()
		s.cacheSessionClock(ctx, record.ID, record.StartTime)
	}

	durationMinutes, err := s.rdb.Get(ctx, config.CacheKey.SessionDurationKey(id)).Int()
	if err != nil || durationMinutes <= 0 {
		durationMinutes = s.cfg.SessionDurationMinutes
	}

	elapsed := time.Now().Unix() - startUnix
	remaining := int64(durationMinutes)*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining)
}

// Submit finalizes the session. A duplicate submit is benign: if the
// outcome already exists it is returned as a success.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID) (*model.SessionOutcome, error) {
	ctrl, ok := s.Controller(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	outcome, err := ctrl.Finalize(ctx, exam.TriggerManual)
	if err != nil {
		if errors.Is(err, exam.ErrAlreadySubmitted) {
			if existing, done := ctrl.Outcome(); done {
				return existing, nil
			}
		}
		return nil, err
	}
	return outcome, nil
}

// Result returns the finalized outcome, falling back to the Redis result
// cache for sessions whose controller is gone.
func (s *SessionService) Result(ctx context.Context, sessionID uuid.UUID) (*model.SessionOutcome, error) {
	if ctrl, ok := s.Controller(sessionID); ok {
		if outcome, done := ctrl.Outcome(); done {
			return outcome, nil
		}
		return nil, ErrResultNotReady
	}

	outcome, err := s.results.Lookup(ctx, sessionID.String())
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, ErrSessionNotFound
	}
	return outcome, nil
}

// Abandon discards the session without scoring it. The durable record and
// any buffered answers are removed.
func (s *SessionService) Abandon(ctx context.Context, sessionID uuid.UUID) error {
	ctrl, ok := s.Controller(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return s.abandon(ctx, ctrl)
}

func (s *SessionService) abandon(ctx context.Context, ctrl *exam.Controller) error {
	ctrl.Close()

	id := ctrl.ID()
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()

	key := id.String()
	s.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(key),
		config.CacheKey.SessionStartKey(key),
		config.CacheKey.SessionDurationKey(key),
	)

	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info().Str("session_id", key).Msg("Session abandoned")
	return nil
}

// Release drops a completed session's controller from the registry. Later
// reads are served by the result cache and the durable record.
func (s *SessionService) Release(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.live[sessionID]; ok {
		ctrl.Close()
		delete(s.live, sessionID)
	}
}

// CloseAll tears down every live controller. Called on shutdown; sessions
// still in progress stay recoverable through the Redis answer buffer.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ctrl := range s.live {
		ctrl.Close()
		delete(s.live, id)
	}
}
