package exam

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// Trigger identifies which path reached the submission gate.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerExpiry Trigger = "expiry"
)

// ControllerConfig wires a Controller to its collaborators.
type ControllerConfig struct {
	Log            zerolog.Logger
	Store          SessionStore
	Sink           AnswerSink
	Presenter      ResultPresenter
	ClockOptions   []ClockOption
	MaxInitRetries int
}

// Controller orchestrates one session end to end: it owns the clock, the
// time tracker, the answer store and the submission gate, drives the
// state machine INITIALIZING -> IN_PROGRESS -> SUBMITTING ->
// COMPLETED/ERROR, and talks to the persistence collaborators.
//
// Manual submit and clock expiry both land in Finalize; the gate lets
// exactly one of them through. The clock signals expiry over a channel
// the controller subscribes to, so the clock never calls back into
// submission logic.
type Controller struct {
	log       zerolog.Logger
	id        uuid.UUID
	subject   string
	questions []model.Question

	clock   *Clock
	tracker *Tracker
	answers *AnswerStore
	gate    *Gate

	store     SessionStore
	sink      AnswerSink
	presenter ResultPresenter

	mu        sync.Mutex
	status    model.SessionStatus
	startedAt time.Time
	currentQ  int
	outcome   *model.SessionOutcome

	completed   chan model.SessionOutcome
	watcherStop chan struct{}
	watcherOnce sync.Once
	closeOnce   sync.Once
}

// State is a read snapshot of a live session, served on page reload so
// the candidate resumes with their answers and the remaining time.
type State struct {
	SessionID        uuid.UUID           `json:"session_id"`
	Subject          string              `json:"subject"`
	Status           model.SessionStatus `json:"status"`
	TotalQuestions   int                 `json:"total_questions"`
	CurrentQuestion  int                 `json:"current_question"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	AnsweredCount    int                 `json:"answered_count"`
	Answers          map[int]string      `json:"answers"`
}

// StartSession validates the question set, obtains a durable session id
// (retrying creation up to cfg.MaxInitRetries times), starts the clock
// and begins tracking question 1.
func StartSession(ctx context.Context, cfg ControllerConfig, subject string, questions []model.Question, durationSeconds int) (*Controller, error) {
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}
	if durationSeconds <= 0 {
		return nil, &ValidationError{Reason: "session duration must be positive"}
	}

	retries := cfg.MaxInitRetries
	if retries < 0 {
		retries = 0
	}

	var id uuid.UUID
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		id, err = cfg.Store.CreateSession(ctx, subject, len(questions))
		if err == nil {
			break
		}
		cfg.Log.Warn().Err(err).Int("attempt", attempt+1).Msg("Session creation failed")
	}
	if err != nil {
		return nil, &PersistenceError{Op: "create_session", Retryable: false, Err: err}
	}

	c := &Controller{
		log:         cfg.Log.With().Str("session_id", id.String()).Logger(),
		id:          id,
		subject:     subject,
		questions:   questions,
		clock:       NewClock(cfg.ClockOptions...),
		tracker:     NewTracker(),
		gate:        NewGate(),
		store:       cfg.Store,
		sink:        cfg.Sink,
		presenter:   cfg.Presenter,
		status:      model.SessionStatusInProgress,
		startedAt:   time.Now(),
		currentQ:    1,
		completed:   make(chan model.SessionOutcome, 1),
		watcherStop: make(chan struct{}),
	}
	c.answers = NewAnswerStore(c.persistAnswer)

	c.clock.Start(durationSeconds)
	c.tracker.StartTracking(1)
	go c.watchExpiry()

	c.log.Info().
		Str("subject", subject).
		Int("questions", len(questions)).
		Int("duration_seconds", durationSeconds).
		Msg("Session started")

	return c, nil
}

func validateQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return &ValidationError{Reason: "question list is empty"}
	}
	for _, q := range questions {
		if q.ID == uuid.Nil {
			return &ValidationError{Reason: "question without id"}
		}
		if q.CorrectAnswer == "" {
			return &ValidationError{Reason: "question without correct answer"}
		}
	}
	return nil
}

// watchExpiry routes the clock's single expiry signal into Finalize.
func (c *Controller) watchExpiry() {
	select {
	case <-c.clock.Expired():
		if _, err := c.Finalize(context.Background(), TriggerExpiry); err != nil {
			c.log.Error().Err(err).Msg("Auto-submit on expiry failed")
		}
	case <-c.watcherStop:
	}
}

func (c *Controller) stopWatcher() {
	c.watcherOnce.Do(func() { close(c.watcherStop) })
}

// persistAnswer is the AnswerStore's async best-effort flush. Failures
// are swallowed: the in-memory answer remains authoritative and is
// re-sent at finalize time.
func (c *Controller) persistAnswer(q int, raw string) {
	if !c.gate.Mounted() || c.sink == nil {
		return
	}
	if q < 1 || q > len(c.questions) {
		return
	}
	rec := model.AnswerUpsert{
		SessionID:      c.id,
		QuestionID:     c.questions[q-1].ID,
		QuestionNumber: q,
		RawAnswer:      raw,
	}
	if err := c.sink.UpsertAnswer(context.Background(), rec); err != nil {
		c.log.Debug().Err(err).Int("question", q).Msg("Answer autosave failed")
	}
}

// ID returns the durable session id.
func (c *Controller) ID() uuid.UUID { return c.id }

// Subject returns the session's subject code.
func (c *Controller) Subject() string { return c.subject }

// Questions returns the session's question list.
func (c *Controller) Questions() []model.Question { return c.questions }

// Status returns the current lifecycle state.
func (c *Controller) Status() model.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RemainingSeconds returns the advisory countdown value.
func (c *Controller) RemainingSeconds() int { return c.clock.Remaining() }

// Completed delivers the outcome once the session finalizes successfully.
func (c *Controller) Completed() <-chan model.SessionOutcome { return c.completed }

// Outcome returns the finalized outcome, if any.
func (c *Controller) Outcome() (*model.SessionOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return nil, false
	}
	out := *c.outcome
	return &out, true
}

// Navigate moves the candidate to question q, shifting time attribution.
func (c *Controller) Navigate(q int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if q < 1 || q > len(c.questions) {
		return ErrQuestionOutOfRange
	}
	c.tracker.StartTracking(q)
	c.mu.Lock()
	c.currentQ = q
	c.mu.Unlock()
	return nil
}

// RecordAnswer overwrites the answer for question q. An empty string is a
// recorded value, not a cleared one.
func (c *Controller) RecordAnswer(q int, answer string) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if q < 1 || q > len(c.questions) {
		return ErrQuestionOutOfRange
	}
	c.answers.Set(q, answer)
	return nil
}

// ClearAnswer removes the entry for question q.
func (c *Controller) ClearAnswer(q int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if q < 1 || q > len(c.questions) {
		return ErrQuestionOutOfRange
	}
	c.answers.Clear(q)
	return nil
}

func (c *Controller) checkWritable() error {
	if !c.gate.Mounted() {
		return ErrSessionClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.SessionStatusInProgress {
		return ErrSessionClosed
	}
	return nil
}

// State returns a read snapshot for reload/recovery.
func (c *Controller) State() State {
	c.mu.Lock()
	status := c.status
	currentQ := c.currentQ
	c.mu.Unlock()

	return State{
		SessionID:        c.id,
		Subject:          c.subject,
		Status:           status,
		TotalQuestions:   len(c.questions),
		CurrentQuestion:  currentQ,
		RemainingSeconds: c.clock.Remaining(),
		AnsweredCount:    c.answers.CountAnswered(),
		Answers:          c.answers.All(),
	}
}

// Finalize runs the single scoring-and-persist pipeline. Both the manual
// submit action and the clock expiry land here; the gate admits exactly
// one caller. The loser gets ErrAlreadySubmitted, a benign duplicate.
//
// On a SubmitSession failure the gate is released, the session returns to
// IN_PROGRESS and the error is retryable. The clock stays stopped: a
// failed submit never resumes the countdown.
func (c *Controller) Finalize(ctx context.Context, trigger Trigger) (*model.SessionOutcome, error) {
	if c.id == uuid.Nil {
		return nil, &ValidationError{Reason: "session has no durable id"}
	}
	if err := validateQuestions(c.questions); err != nil {
		return nil, err
	}

	if !c.gate.Acquire() {
		c.log.Debug().Str("trigger", string(trigger)).Msg("Duplicate finalize ignored")
		return nil, ErrAlreadySubmitted
	}

	// Stop the clock before anything else so no further tick or expiry
	// can interleave with finalization.
	c.clock.Stop()

	c.setStatus(model.SessionStatusSubmitting)
	c.tracker.StopTracking()
	snapshot := c.tracker.Snapshot()

	answers := c.answers.All()
	result := ScoreAttempt(c.questions, answers)

	// The answered count comes from the same snapshot the score came
	// from. A write racing past checkWritable must not skew the
	// persisted count against the result.
	answered := 0
	for _, v := range answers {
		if normalizeAnswer(v) != "" {
			answered++
		}
	}

	now := time.Now()
	sub := model.Submission{
		EndTime:          now,
		AnsweredCount:    answered,
		Score:            result.Score,
		Percentage:       float64(result.Percentage),
		TimeTakenMinutes: round2(now.Sub(c.startedAt).Minutes()),
	}

	if err := c.store.SubmitSession(ctx, c.id, sub); err != nil {
		c.gate.Release()
		c.setStatus(model.SessionStatusInProgress)
		c.log.Error().Err(err).Str("trigger", string(trigger)).Msg("Session submit failed")
		return nil, &PersistenceError{Op: "submit_session", Retryable: true, Err: err}
	}

	c.resendGradedAnswers(ctx, answers, snapshot)

	outcome := model.SessionOutcome{
		SessionID:   c.id,
		Subject:     c.subject,
		Result:      result,
		Questions:   c.questions,
		Answers:     answers,
		TimeSpent:   snapshot,
		CompletedAt: now,
	}

	c.mu.Lock()
	c.status = model.SessionStatusCompleted
	c.outcome = &outcome
	c.mu.Unlock()
	c.stopWatcher()

	if c.presenter != nil {
		if err := c.presenter.Present(ctx, outcome); err != nil {
			c.log.Warn().Err(err).Msg("Result presentation failed")
		}
	}

	select {
	case c.completed <- outcome:
	default:
	}

	c.log.Info().
		Str("trigger", string(trigger)).
		Float64("score", result.Score).
		Int("percentage", result.Percentage).
		Int("answered", sub.AnsweredCount).
		Msg("Session completed")

	return &outcome, nil
}

// resendGradedAnswers pushes every recorded answer to the sink with its
// grading attached. Best-effort: the session record already carries the
// authoritative totals.
func (c *Controller) resendGradedAnswers(ctx context.Context, answers map[int]string, snapshot []model.TimeEntry) {
	if c.sink == nil {
		return
	}

	timeSpent := make(map[int]int, len(snapshot))
	for _, e := range snapshot {
		timeSpent[e.QuestionNumber] = e.TimeSpentSeconds
	}

	for i, q := range c.questions {
		num := i + 1
		raw, ok := answers[num]
		if !ok {
			continue
		}

		correct := normalizeAnswer(raw) != "" && normalizeAnswer(raw) == normalizeAnswer(q.CorrectAnswer)
		var awarded float64
		switch {
		case correct:
			awarded = q.Marks
		case normalizeAnswer(raw) == "":
			awarded = 0
		case q.Type == model.QuestionTypeMCQ:
			awarded = -penalty(q)
		}

		secs := timeSpent[num]
		rec := model.AnswerUpsert{
			SessionID:        c.id,
			QuestionID:       q.ID,
			QuestionNumber:   num,
			RawAnswer:        raw,
			IsCorrect:        &correct,
			MarksAwarded:     &awarded,
			TimeSpentSeconds: &secs,
		}
		if err := c.sink.UpsertAnswer(ctx, rec); err != nil {
			c.log.Debug().Err(err).Int("question", num).Msg("Final answer upsert failed")
		}
	}
}

func (c *Controller) setStatus(s model.SessionStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Close tears the session down: the clock is cancelled, the gate is
// unmounted and every later write — including async callbacks still in
// flight — becomes a no-op. Close never finalizes; an attempt abandoned
// before submission stays unscored.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.clock.Stop()
		c.gate.Unmount()
		c.stopWatcher()
		c.tracker.StopTracking()
		c.log.Info().Msg("Session closed")
	})
}
