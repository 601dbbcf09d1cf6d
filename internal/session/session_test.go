package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRemote struct {
	mu         sync.Mutex
	fetchErr   error
	fetchCalls int
	submitErr  error
	submitted  [][]model.AnswerEntry
	// onSubmit runs inside SubmitAnswers before it returns.
	onSubmit func()
}

func (f *fakeRemote) FetchQuestionSet(ctx context.Context, id int64) (*model.ExamPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return scenarioPayload(), nil
}

func (f *fakeRemote) SubmitAnswers(ctx context.Context, id int64, answers []model.AnswerEntry) (*model.SubmissionResult, error) {
	if f.onSubmit != nil {
		f.onSubmit()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, answers)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.SubmissionResult{Message: "ok"}, nil
}

func (f *fakeRemote) submissions() [][]model.AnswerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

func scenarioPayload() *model.ExamPayload {
	return &model.ExamPayload{
		ExamTime: 60,
		Syllabus: "Physiology",
		Questions: []model.Question{
			{ID: 101, Type: model.QuestionTypeMultiFlag, Text: "<p>Q1</p>", Option1: "a", Option2: "b", Option3: "c"},
			{ID: 102, Type: model.QuestionTypeSingleChoice, Text: "<p>Q2</p>", Option1: "a", Option2: "b", Option3: "c", Option4: "d"},
		},
	}
}

func newTestSession(t *testing.T, store SnapshotStore, opts ...Option) (*Session, *fakeRemote, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	remote := &fakeRemote{}
	opts = append([]Option{WithClock(clock)}, opts...)
	s := New(remote, store, zerolog.Nop(), opts...)
	if store != nil {
		if err := s.Rehydrate(context.Background()); err != nil {
			t.Fatalf("Rehydrate: %v", err)
		}
	}
	return s, remote, clock
}

func startScenario(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Load(ctx, 9); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func assertEntries(t *testing.T, got []model.AnswerEntry, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	ids := []int64{101, 102}
	for i := range want {
		if got[i].QuestionID != ids[i] {
			t.Errorf("entry %d question = %d, want %d", i, got[i].QuestionID, ids[i])
		}
		if got[i].Answer != want[i] {
			t.Errorf("entry %d answer = %q, want %q", i, got[i].Answer, want[i])
		}
	}
}

func TestScenarioManualSubmit(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, repository.NewMemorySnapshotStore())
	startScenario(t, s)

	if err := s.SetAnswer(ctx, 101, model.MultiFlagAnswer(map[int]model.Mark{0: model.MarkTrue})); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := s.SetAnswer(ctx, 101, model.MultiFlagAnswer(map[int]model.Mark{2: model.MarkFalse})); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := s.SetAnswer(ctx, 102, model.SingleChoiceAnswer(1)); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	rec, err := s.Submit(ctx, model.SubmitManual)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	subs := remote.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	assertEntries(t, subs[0], "1-0-2-0-0", "1")

	if s.State() != model.SessionStateCompleted {
		t.Errorf("State = %s, want completed", s.State())
	}
	if s.Payload() != nil || len(s.Answers()) != 0 {
		t.Error("payload and answers should be cleared after submit")
	}
	if rec.Unconfirmed || rec.Reason != model.SubmitManual || rec.QuestionSetID != 9 {
		t.Errorf("unexpected receipt: %+v", rec)
	}
	if rec.Summary.TotalAnswered != 2 || rec.Summary.TotalQuestions != 2 {
		t.Errorf("unexpected summary: %+v", rec.Summary)
	}
	if st := s.Status(); !st.ExamCompleted || st.HasActiveExam {
		t.Errorf("unexpected status after completion: %+v", st)
	}
}

func TestScenarioTimeoutAutoSubmit(t *testing.T) {
	ctx := context.Background()
	s, remote, clock := newTestSession(t, nil)
	startScenario(t, s)

	clock.Advance(59 * time.Minute)
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(remote.submissions()) != 0 {
		t.Fatal("no submission expected before time is up")
	}

	clock.Advance(time.Minute)
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	subs := remote.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	assertEntries(t, subs[0], "0-0-0-0-0", "-1")

	st := s.Status()
	if st.State != model.SessionStateCompleted || st.Receipt == nil || st.Receipt.Reason != model.SubmitTimeout {
		t.Errorf("unexpected status: %+v", st)
	}

	if err := s.Tick(ctx); err != nil {
		t.Errorf("Tick after completion should be a no-op, got %v", err)
	}
	if len(remote.submissions()) != 1 {
		t.Error("no further submissions expected after completion")
	}
}

func TestScenarioResetDuringSubmit(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, repository.NewMemorySnapshotStore())
	startScenario(t, s)

	entered := make(chan struct{})
	release := make(chan struct{})
	remote.onSubmit = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(ctx, model.SubmitManual)
		done <- err
	}()

	<-entered
	if !s.Status().Submitting {
		t.Error("status should report the in-flight submission")
	}
	s.Reset(ctx)
	close(release)

	if err := <-done; !errors.Is(err, ErrStaleResponse) {
		t.Errorf("Submit error = %v, want ErrStaleResponse", err)
	}
	if s.State() != model.SessionStateIdle {
		t.Errorf("State = %s, want idle", s.State())
	}
	if st := s.Status(); st.Receipt != nil || st.ExamCompleted || st.Submitting {
		t.Errorf("stale response leaked into the session: %+v", st)
	}
}

func TestLoadReturnsCachedPayload(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, nil)

	first, err := s.Load(ctx, 9)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := s.Load(ctx, 9)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first != second || remote.fetchCalls != 1 {
		t.Errorf("expected cached payload and 1 fetch, got %d fetches", remote.fetchCalls)
	}
	if first.QuestionSetID != 9 {
		t.Errorf("QuestionSetID = %d, want 9", first.QuestionSetID)
	}

	if _, err := s.Load(ctx, 10); err != nil {
		t.Fatalf("Load other set while loaded: %v", err)
	}
	if remote.fetchCalls != 2 || s.QuestionSetID() != 10 {
		t.Errorf("loaded -> loaded refresh expected, fetches=%d id=%d", remote.fetchCalls, s.QuestionSetID())
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Load(ctx, 11); !errors.Is(err, ErrExamActive) {
		t.Errorf("Load of another set mid-exam = %v, want ErrExamActive", err)
	}
}

func TestLoadFetchError(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, nil)
	remote.fetchErr = errors.New("connection refused")

	_, err := s.Load(ctx, 9)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.QuestionSetID != 9 {
		t.Fatalf("Load error = %v, want *FetchError", err)
	}
	if s.State() != model.SessionStateIdle {
		t.Errorf("State = %s, want idle", s.State())
	}

	remote.fetchErr = nil
	if _, err := s.Load(ctx, 9); err != nil {
		t.Fatalf("retry Load: %v", err)
	}
	if s.State() != model.SessionStateLoaded {
		t.Errorf("State = %s, want loaded", s.State())
	}
}

func TestStartTwiceKeepsClock(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestSession(t, nil)
	startScenario(t, s)

	clock.Advance(10 * time.Minute)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if got := s.Status().TimeRemaining; got != 50*60 {
		t.Errorf("TimeRemaining = %d, want %d", got, 50*60)
	}
}

func TestStartRequiresLoadedExam(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	if err := s.Start(context.Background()); !errors.Is(err, ErrNoExamLoaded) {
		t.Errorf("Start from idle = %v, want ErrNoExamLoaded", err)
	}
}

func TestSubmitFailureKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, nil)
	startScenario(t, s)
	s.SetAnswer(ctx, 102, model.SingleChoiceAnswer(3))

	remote.submitErr = errors.New("502 bad gateway")
	_, err := s.Submit(ctx, model.SubmitManual)

	var se *SubmissionError
	if !errors.As(err, &se) || se.Reason != model.SubmitManual {
		t.Fatalf("Submit error = %v, want *SubmissionError", err)
	}
	if s.State() != model.SessionStateInProgress {
		t.Errorf("State = %s, want in_progress", s.State())
	}
	if a := s.Answers()[102]; a.Choice == nil || *a.Choice != 3 {
		t.Errorf("answer lost after failed submit: %+v", a)
	}

	remote.submitErr = nil
	if _, err := s.Submit(ctx, model.SubmitManual); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	subs := remote.submissions()
	assertEntries(t, subs[len(subs)-1], "0-0-0-0-0", "3")
}

func TestTimeoutRetryBudget(t *testing.T) {
	ctx := context.Background()
	s, remote, clock := newTestSession(t, nil, WithRetryBudget(3))
	startScenario(t, s)
	remote.submitErr = errors.New("timeout")

	clock.Advance(61 * time.Minute)

	for i := 1; i <= 2; i++ {
		err := s.Tick(ctx)
		var se *SubmissionError
		if !errors.As(err, &se) || se.Attempt != i {
			t.Fatalf("tick %d error = %v", i, err)
		}
		if s.State() != model.SessionStateInProgress {
			t.Fatalf("tick %d: State = %s, want in_progress", i, s.State())
		}
	}

	if err := s.Tick(ctx); err == nil {
		t.Fatal("expected the last failure to be surfaced")
	}

	st := s.Status()
	if st.State != model.SessionStateCompleted || !st.Unconfirmed {
		t.Errorf("expected unconfirmed completion, got %+v", st)
	}
	if got := len(remote.submissions()); got != 3 {
		t.Errorf("submissions = %d, want 3", got)
	}
}

func TestSetAnswer(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)

	if _, err := s.Load(ctx, 9); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.SetAnswer(ctx, 101, model.MultiFlagAnswer(nil)); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("SetAnswer before start = %v, want ErrNotInProgress", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	testCases := []struct {
		name   string
		qid    int64
		answer model.Answer
		want   error
	}{
		{"unknown question", 999, model.SingleChoiceAnswer(1), ErrUnknownQuestion},
		{"wrong shape", 101, model.SingleChoiceAnswer(1), ErrAnswerMismatch},
		{"missing group", 102, model.Answer{}, ErrAnswerMismatch},
		{"ok", 101, model.MultiFlagAnswer(map[int]model.Mark{0: model.MarkTrue, 1: model.MarkFalse}), nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.SetAnswer(ctx, tc.qid, tc.answer); !errors.Is(err, tc.want) {
				t.Errorf("SetAnswer() = %v, want %v", err, tc.want)
			}
		})
	}

	// Unset option 0, keep option 1.
	s.SetAnswer(ctx, 101, model.MultiFlagAnswer(map[int]model.Mark{0: model.MarkUnset}))
	marks := s.Answers()[101].Marks
	if _, ok := marks[0]; ok || marks[1] != model.MarkFalse {
		t.Errorf("unexpected marks after merge: %v", marks)
	}

	if _, err := s.Submit(ctx, model.SubmitManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.SetAnswer(ctx, 102, model.SingleChoiceAnswer(0)); err != nil {
		t.Errorf("SetAnswer after completion should be ignored, got %v", err)
	}
	if len(s.Answers()) != 0 {
		t.Error("answers must stay cleared after completion")
	}
}

func TestReloadRestoresRemainingTime(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()
	s, _, clock := newTestSession(t, store)
	startScenario(t, s)
	s.SetAnswer(ctx, 101, model.MultiFlagAnswer(map[int]model.Mark{4: model.MarkTrue}))

	clock.Advance(20 * time.Minute)

	reloaded := New(&fakeRemote{}, store, zerolog.Nop(), WithClock(clock))
	if err := reloaded.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	st := reloaded.Status()
	if st.State != model.SessionStateInProgress {
		t.Fatalf("State = %s, want in_progress", st.State)
	}
	if st.TimeRemaining != 3600-20*60 {
		t.Errorf("TimeRemaining = %d, want %d", st.TimeRemaining, 3600-20*60)
	}
	if !reloaded.HasActiveExam() || reloaded.QuestionSetID() != 9 {
		t.Error("restored session should report an active exam for set 9")
	}

	preview, err := reloaded.Preview()
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	assertEntries(t, preview, "0-0-0-0-1", "-1")
}

func TestTickWaitsForRehydrate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()
	s, _, clock := newTestSession(t, store)
	startScenario(t, s)

	clock.Advance(2 * time.Hour)

	remote := &fakeRemote{}
	reloaded := New(remote, store, zerolog.Nop(), WithClock(clock))

	if err := reloaded.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(remote.submissions()) != 0 {
		t.Fatal("tick before rehydration must not submit")
	}

	if err := reloaded.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if reloaded.HasActiveExam() {
		t.Error("expired exam should not count as active")
	}
	if err := reloaded.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(remote.submissions()) != 1 || reloaded.State() != model.SessionStateCompleted {
		t.Error("expired restored exam should be auto-submitted on the first tick")
	}
}

func TestCompletedSnapshotSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySnapshotStore()
	s, _, clock := newTestSession(t, store)
	startScenario(t, s)

	if _, err := s.Submit(ctx, model.SubmitManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	reloaded := New(&fakeRemote{}, store, zerolog.Nop(), WithClock(clock))
	if err := reloaded.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if reloaded.State() != model.SessionStateCompleted || reloaded.Payload() != nil {
		t.Errorf("expected a completed session without payload, got %s", reloaded.State())
	}

	reloaded.Reset(ctx)
	if snap, _ := store.ReadSnapshot(ctx); snap != nil {
		t.Error("Reset should clear the persisted snapshot")
	}
}

func TestForceComplete(t *testing.T) {
	ctx := context.Background()
	s, remote, _ := newTestSession(t, nil)
	startScenario(t, s)

	rec, err := s.ForceComplete(ctx)
	if err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}
	if !rec.Unconfirmed || rec.Reason != model.SubmitForced {
		t.Errorf("unexpected receipt: %+v", rec)
	}
	if len(remote.submissions()) != 0 {
		t.Error("ForceComplete must not submit")
	}
	if _, err := s.Submit(ctx, model.SubmitManual); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Submit after completion = %v, want ErrNotInProgress", err)
	}
}

func TestHasActiveExam(t *testing.T) {
	ctx := context.Background()
	s, _, clock := newTestSession(t, nil)

	if s.HasActiveExam() {
		t.Error("idle session has no active exam")
	}
	if _, err := s.Load(ctx, 9); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HasActiveExam() {
		t.Error("loaded but not started session has no active exam")
	}
	s.Start(ctx)
	if !s.HasActiveExam() {
		t.Error("started session should have an active exam")
	}
	clock.Advance(time.Hour)
	if s.HasActiveExam() {
		t.Error("session with no time left has no active exam")
	}
}

type recordingSink struct {
	mu       sync.Mutex
	receipts []model.Receipt
}

func (r *recordingSink) PublishReceipt(ctx context.Context, rec model.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, rec)
	return nil
}

func TestReceiptSinkGetsEveryCompletion(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s, _, _ := newTestSession(t, nil, WithReceiptSink(sink))

	startScenario(t, s)
	if _, err := s.Submit(ctx, model.SubmitManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s.Reset(ctx)
	startScenario(t, s)
	if _, err := s.ForceComplete(ctx); err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}

	if len(sink.receipts) != 2 {
		t.Fatalf("receipts = %d, want 2", len(sink.receipts))
	}
	if sink.receipts[0].Reason != model.SubmitManual || sink.receipts[1].Reason != model.SubmitForced {
		t.Errorf("unexpected receipts: %+v", sink.receipts)
	}
}

// flakyStore fails the first readFailures reads and then behaves like the
// wrapped store.
type flakyStore struct {
	*repository.MemorySnapshotStore
	mu           sync.Mutex
	readFailures int
}

func (f *flakyStore) ReadSnapshot(ctx context.Context) (*model.SessionSnapshot, error) {
	f.mu.Lock()
	if f.readFailures > 0 {
		f.readFailures--
		f.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	f.mu.Unlock()
	return f.MemorySnapshotStore.ReadSnapshot(ctx)
}

func TestRehydrateRetriesAfterReadFailure(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemorySnapshotStore()
	first, _, clock := newTestSession(t, mem)
	startScenario(t, first)
	if err := first.SetAnswer(ctx, 102, model.SingleChoiceAnswer(1)); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}

	store := &flakyStore{MemorySnapshotStore: mem, readFailures: 1}
	reloaded := New(&fakeRemote{}, store, zerolog.Nop(), WithClock(clock))

	if err := reloaded.Rehydrate(ctx); err == nil {
		t.Fatal("expected the first rehydrate to fail")
	}

	// Nothing may be written over the unread snapshot.
	if _, err := reloaded.Load(ctx, 9); err != nil {
		t.Fatalf("Load: %v", err)
	}
	reloaded.Reset(ctx)
	snap, err := mem.ReadSnapshot(ctx)
	if err != nil || snap == nil {
		t.Fatalf("stored snapshot = %v, %v", snap, err)
	}
	if !snap.ExamStarted || len(snap.Answers) != 1 {
		t.Fatalf("stored snapshot was overwritten: %+v", snap)
	}

	if err := reloaded.Rehydrate(ctx); err != nil {
		t.Fatalf("second Rehydrate: %v", err)
	}
	if reloaded.State() != model.SessionStateInProgress {
		t.Fatalf("State = %s, want in_progress", reloaded.State())
	}
	preview, err := reloaded.Preview()
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	assertEntries(t, preview, "0-0-0-0-0", "1")
}

func TestTickDoesNotOverlapTimeoutSubmit(t *testing.T) {
	ctx := context.Background()
	s, remote, clock := newTestSession(t, nil)
	startScenario(t, s)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	remote.onSubmit = func() {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}

	clock.Advance(60 * time.Minute)

	done := make(chan error, 1)
	go func() {
		done <- s.Tick(ctx)
	}()
	<-entered

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Tick(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("overlapping Tick: %v", err)
		}
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if n := len(remote.submissions()); n != 1 {
		t.Fatalf("remote submissions = %d, want 1", n)
	}
	if st := s.Status(); !st.ExamCompleted || st.Receipt == nil || st.Receipt.Reason != model.SubmitTimeout {
		t.Errorf("status after timeout = %+v", st)
	}
}
