package exam

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/model"
)

type fakeStore struct {
	mu          sync.Mutex
	failCreates int
	submitErr   error
	created     int
	submissions []model.Submission
	deleted     []uuid.UUID
}

func (f *fakeStore) CreateSession(ctx context.Context, subject string, totalQuestions int) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return uuid.Nil, errors.New("create failed")
	}
	f.created++
	return uuid.New(), nil
}

func (f *fakeStore) SubmitSession(ctx context.Context, sessionID uuid.UUID, sub model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submissions = append(f.submissions, sub)
	return nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeStore) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

func (f *fakeStore) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

type fakeSink struct {
	mu   sync.Mutex
	recs []model.AnswerUpsert
}

func (f *fakeSink) UpsertAnswer(ctx context.Context, rec model.AnswerUpsert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeSink) graded() []model.AnswerUpsert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AnswerUpsert
	for _, r := range f.recs {
		if r.IsCorrect != nil {
			out = append(out, r)
		}
	}
	return out
}

type fakePresenter struct {
	mu       sync.Mutex
	outcomes []model.SessionOutcome
}

func (f *fakePresenter) Present(ctx context.Context, outcome model.SessionOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakePresenter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

func testConfig(store *fakeStore, sink *fakeSink, presenter *fakePresenter) ControllerConfig {
	return ControllerConfig{
		Log:            zerolog.Nop(),
		Store:          store,
		Sink:           sink,
		Presenter:      presenter,
		ClockOptions:   []ClockOption{WithTickInterval(time.Hour)},
		MaxInitRetries: 3,
	}
}

func testQuestions() []model.Question {
	return []model.Question{
		mcq("EC", "A", 1, 0.33),
		mcq("EC", "B", 1, 0.33),
		nat("MA", "14", 2),
	}
}

func TestStartSessionRejectsInvalidQuestionList(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakeSink{}, &fakePresenter{})

	var ve *ValidationError
	if _, err := StartSession(context.Background(), cfg, "EC", nil, 600); !errors.As(err, &ve) {
		t.Fatalf("empty question list: err = %v, want ValidationError", err)
	}

	broken := testQuestions()
	broken[1].CorrectAnswer = ""
	if _, err := StartSession(context.Background(), cfg, "EC", broken, 600); !errors.As(err, &ve) {
		t.Fatalf("missing correct answer: err = %v, want ValidationError", err)
	}

	noID := testQuestions()
	noID[0].ID = uuid.Nil
	if _, err := StartSession(context.Background(), cfg, "EC", noID, 600); !errors.As(err, &ve) {
		t.Fatalf("missing id: err = %v, want ValidationError", err)
	}
}

func TestStartSessionRetriesCreation(t *testing.T) {
	store := &fakeStore{failCreates: 2}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start after transient failures: %v", err)
	}
	defer c.Close()

	if c.Status() != model.SessionStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", c.Status())
	}
}

func TestStartSessionGivesUpAfterBoundedRetries(t *testing.T) {
	store := &fakeStore{failCreates: 100}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	_, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}
	if pe.Retryable {
		t.Fatal("create_session failure must be fatal, not retryable")
	}
}

func TestManualFinalize(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	presenter := &fakePresenter{}
	cfg := testConfig(store, sink, presenter)

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	if err := c.RecordAnswer(1, "A"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.Navigate(3); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := c.RecordAnswer(3, "15"); err != nil {
		t.Fatalf("record: %v", err)
	}

	outcome, err := c.Finalize(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Q1 correct (+1), Q3 wrong NAT (no penalty), Q2 unanswered.
	if outcome.Result.Score != 1 {
		t.Fatalf("score = %v, want 1", outcome.Result.Score)
	}
	if outcome.Result.CorrectAnswers != 1 || outcome.Result.WrongAnswers != 1 || outcome.Result.Unanswered != 1 {
		t.Fatalf("partition = %+v", outcome.Result)
	}
	if c.Status() != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status())
	}
	if store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", store.submitCount())
	}
	if presenter.count() != 1 {
		t.Fatalf("presenter received %d outcomes, want 1", presenter.count())
	}
	if got := len(sink.graded()); got != 2 {
		t.Fatalf("graded answer rows = %d, want 2", got)
	}
}

func TestFinalizeDuplicateIsBenign(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	if _, err := c.Finalize(context.Background(), TriggerManual); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := c.Finalize(context.Background(), TriggerManual); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second finalize: err = %v, want ErrAlreadySubmitted", err)
	}
	if store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", store.submitCount())
	}
}

func TestFinalizeRaceHasOneWinner(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = c.Finalize(context.Background(), TriggerManual)
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrAlreadySubmitted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("%d finalize pipelines ran, want exactly 1", winners)
	}
	if store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", store.submitCount())
	}
}

func TestExpiryAutoSubmits(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})
	cfg.ClockOptions = []ClockOption{WithTickInterval(2 * time.Millisecond)}

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 3)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	select {
	case outcome := <-c.Completed():
		if outcome.Result.Unanswered != 3 {
			t.Fatalf("unanswered = %d, want 3", outcome.Result.Unanswered)
		}
	case <-time.After(time.Second):
		t.Fatal("expiry never finalized the session")
	}

	if store.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", store.submitCount())
	}
	if _, err := c.Finalize(context.Background(), TriggerManual); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("manual submit after expiry: err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestFinalizeFailureReleasesGate(t *testing.T) {
	store := &fakeStore{}
	store.setSubmitErr(errors.New("connection reset"))
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	_, err = c.Finalize(context.Background(), TriggerManual)
	var pe *PersistenceError
	if !errors.As(err, &pe) || !pe.Retryable {
		t.Fatalf("err = %v, want retryable PersistenceError", err)
	}
	if c.Status() != model.SessionStatusInProgress {
		t.Fatalf("status after failed submit = %s, want IN_PROGRESS", c.Status())
	}

	// Retry succeeds once the store recovers.
	store.setSubmitErr(nil)
	if _, err := c.Finalize(context.Background(), TriggerManual); err != nil {
		t.Fatalf("retry finalize: %v", err)
	}
	if c.Status() != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", c.Status())
	}
}

func TestCloseSuppressesAllMutation(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	c.Close()
	c.Close() // idempotent

	if err := c.RecordAnswer(1, "A"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("record after close: err = %v, want ErrSessionClosed", err)
	}
	if err := c.Navigate(2); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("navigate after close: err = %v, want ErrSessionClosed", err)
	}
	if _, err := c.Finalize(context.Background(), TriggerManual); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("finalize after close: err = %v, want ErrAlreadySubmitted", err)
	}
	if store.submitCount() != 0 {
		t.Fatal("torn-down session still persisted a submission")
	}
}

func TestNavigateBounds(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	if err := c.Navigate(0); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Fatalf("navigate 0: err = %v", err)
	}
	if err := c.Navigate(4); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Fatalf("navigate past end: err = %v", err)
	}
	if err := c.RecordAnswer(9, "A"); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Fatalf("record out of range: err = %v", err)
	}
}

func TestStateSnapshot(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()

	if err := c.RecordAnswer(1, "A"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.Navigate(2); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	st := c.State()
	if st.Status != model.SessionStatusInProgress {
		t.Fatalf("status = %s", st.Status)
	}
	if st.CurrentQuestion != 2 {
		t.Fatalf("current question = %d, want 2", st.CurrentQuestion)
	}
	if st.TotalQuestions != 3 || st.AnsweredCount != 1 {
		t.Fatalf("state = %+v", st)
	}
	if st.Answers[1] != "A" {
		t.Fatalf("answers = %+v", st.Answers)
	}
}

func TestFinalizeCountsAnswersFromScoredSnapshot(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig(store, &fakeSink{}, &fakePresenter{})

	c, err := StartSession(context.Background(), cfg, "EC", testQuestions(), 600)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	c.RecordAnswer(1, "A")

	// Hammer the store from other goroutines while Finalize runs. Writes
	// that slip past checkWritable before the gate flips must not make
	// the persisted count disagree with the scored snapshot.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				c.RecordAnswer(1+(g+i)%3, "B")
				c.ClearAnswer(1 + (g+i+1)%3)
			}
		}(g)
	}

	outcome, err := c.Finalize(context.Background(), TriggerManual)
	close(stop)
	wg.Wait()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	wantAnswered := 0
	for _, v := range outcome.Answers {
		if strings.TrimSpace(v) != "" {
			wantAnswered++
		}
	}

	store.mu.Lock()
	sub := store.submissions[0]
	store.mu.Unlock()
	if sub.AnsweredCount != wantAnswered {
		t.Fatalf("persisted answered count = %d, snapshot has %d non-empty answers",
			sub.AnsweredCount, wantAnswered)
	}

	snapshotResult := ScoreAttempt(c.Questions(), outcome.Answers)
	if sub.Score != snapshotResult.Score {
		t.Fatalf("persisted score = %v, snapshot scores to %v", sub.Score, snapshotResult.Score)
	}
}
