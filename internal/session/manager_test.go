package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/arcade/internal/archive"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/pkg/logger"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	result rankings.SubmitResult
	got    []rankings.GamePlaySubmission
	ctxErr []error
}

func (f *fakeSubmitter) SubmitGamePlayData(ctx context.Context, sub rankings.GamePlaySubmission) rankings.SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sub)
	f.ctxErr = append(f.ctxErr, ctx.Err())
	return f.result
}

type fakeArchive struct {
	mu     sync.Mutex
	saved  []*archive.Submission
	status map[uuid.UUID]archive.Status
	errors map[uuid.UUID]string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{status: map[uuid.UUID]archive.Status{}, errors: map[uuid.UUID]string{}}
}

func (f *fakeArchive) Save(_ context.Context, s *archive.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	f.status[s.ID] = s.Status
	return nil
}

func (f *fakeArchive) MarkSubmitted(_ context.Context, id uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = archive.StatusSubmitted
	return nil
}

func (f *fakeArchive) MarkRejected(_ context.Context, id uuid.UUID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = archive.StatusRejected
	f.errors[id] = msg
	return nil
}

func (f *fakeArchive) MarkAttempt(_ context.Context, id uuid.UUID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[id] = msg
	return nil
}

func (f *fakeArchive) MarkUnconfirmed(_ context.Context, id uuid.UUID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = archive.StatusUnconfirmed
	f.errors[id] = msg
	return nil
}

func newTestManager(t *testing.T, sub Submitter, opts ...Option) (*Manager, *kvstore.Memory) {
	t.Helper()
	store := kvstore.NewMemory()
	opts = append([]Option{WithPollInterval(5 * time.Millisecond)}, opts...)
	m := NewManager(store, sub, logger.Nop(), opts...)
	t.Cleanup(m.Close)
	return m, store
}

func waitEvent(t *testing.T, ch <-chan Event, want EventType) Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed before %s", want)
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestManager_ResultReadyAndSubmit(t *testing.T) {
	sub := &fakeSubmitter{result: rankings.SubmitResult{OK: true, ID: "run-1"}}
	arc := newFakeArchive()
	m, store := newTestManager(t, sub, WithArchive(arc))

	info, err := m.Start("beginner")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "polling", info.State)

	events, unsubscribe, err := m.Subscribe(info.ID)
	require.NoError(t, err)
	defer unsubscribe()

	writeRun(t, store, validPayload, "100")

	ev := waitEvent(t, events, EventResultReady)
	require.NotNil(t, ev.Result)
	assert.Equal(t, float64(500), ev.Result.Score)
	assert.InDelta(t, 0.4, ev.Result.Accuracy, 1e-9)

	got, err := m.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "result_ready", got.State)
	require.NotNil(t, got.Pending)

	res, err := m.Submit(context.Background(), info.ID, "Ann")
	require.NoError(t, err)
	assert.True(t, res.OK)

	ev = waitEvent(t, events, EventSubmitted)
	assert.Equal(t, "run-1", ev.Submit.ID)

	require.Len(t, sub.got, 1)
	assert.Equal(t, "Ann", sub.got[0].Nickname)
	assert.Equal(t, "beginner", sub.got[0].ModelID)
	assert.JSONEq(t, validPayload, string(sub.got[0].Payload))

	require.Len(t, arc.saved, 1)
	assert.Equal(t, archive.StatusSubmitted, arc.status[arc.saved[0].ID])

	got, err = m.Get(info.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Pending)

	_, err = m.Submit(context.Background(), info.ID, "Ann")
	assert.ErrorIs(t, err, ErrNoPendingResult)
}

func TestManager_SubmitFailureKeepsPending(t *testing.T) {
	tests := []struct {
		name       string
		kind       rankings.ErrorKind
		wantStatus archive.Status
	}{
		{"unreachable stays pending", rankings.KindUnreachable, archive.StatusPending},
		{"rejected", rankings.KindRejected, archive.StatusRejected},
		{"unanswered is held out of resubmission", rankings.KindUnconfirmed, archive.StatusUnconfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{result: rankings.SubmitResult{Err: &rankings.APIError{Kind: tt.kind, Message: "nope"}}}
			arc := newFakeArchive()
			m, store := newTestManager(t, sub, WithArchive(arc))

			info, err := m.Start("")
			require.NoError(t, err)
			events, unsubscribe, err := m.Subscribe(info.ID)
			require.NoError(t, err)
			defer unsubscribe()

			writeRun(t, store, validPayload, "1")
			waitEvent(t, events, EventResultReady)

			res, err := m.Submit(context.Background(), info.ID, "Ann")
			require.NoError(t, err)
			assert.False(t, res.OK)

			ev := waitEvent(t, events, EventSubmitFailed)
			assert.Equal(t, tt.kind, ev.Submit.Err.Kind)

			got, err := m.Get(info.ID)
			require.NoError(t, err)
			assert.NotNil(t, got.Pending, "result stays available for another try")

			require.Len(t, arc.saved, 1)
			assert.Equal(t, tt.wantStatus, arc.status[arc.saved[0].ID])
			assert.Equal(t, "nope", arc.errors[arc.saved[0].ID])
		})
	}
}

func TestManager_SubmitOutlivesCaller(t *testing.T) {
	sub := &fakeSubmitter{result: rankings.SubmitResult{OK: true, ID: "run-1"}}
	arc := newFakeArchive()
	m, store := newTestManager(t, sub, WithArchive(arc))

	info, err := m.Start("")
	require.NoError(t, err)
	events, unsubscribe, err := m.Subscribe(info.ID)
	require.NoError(t, err)
	defer unsubscribe()

	writeRun(t, store, validPayload, "1")
	waitEvent(t, events, EventResultReady)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Submit(ctx, info.ID, "Ann")
	require.NoError(t, err)
	assert.True(t, res.OK)

	sub.mu.Lock()
	require.Len(t, sub.ctxErr, 1)
	assert.NoError(t, sub.ctxErr[0], "submission runs detached from the caller")
	sub.mu.Unlock()

	require.Len(t, arc.saved, 1)
	assert.Equal(t, archive.StatusSubmitted, arc.status[arc.saved[0].ID])
}

// hookStore runs hook once, right after the first timestamp read
type hookStore struct {
	kvstore.Store
	once sync.Once
	hook func()
}

func (s *hookStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.Store.Get(ctx, key)
	if key == kvstore.KeyGameTimestamp {
		s.once.Do(s.hook)
	}
	return v, ok, err
}

func TestManager_CompletionRightAfterStart(t *testing.T) {
	mem := kvstore.NewMemory()
	store := &hookStore{Store: mem}
	// The runtime finishes a run just after the bridge snapshots the timestamp
	store.hook = func() { writeRun(t, mem, validPayload, "2") }

	m := NewManager(store, &fakeSubmitter{}, logger.Nop(), WithPollInterval(time.Microsecond))
	t.Cleanup(m.Close)

	info, err := m.Start("")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := m.Get(info.ID)
		return err == nil && got.Pending != nil
	}, time.Second, time.Millisecond, "early completion must reach the session")
}

func TestManager_InvalidNickname(t *testing.T) {
	sub := &fakeSubmitter{result: rankings.SubmitResult{OK: true}}
	m, store := newTestManager(t, sub)

	info, err := m.Start("")
	require.NoError(t, err)
	events, unsubscribe, err := m.Subscribe(info.ID)
	require.NoError(t, err)
	defer unsubscribe()

	writeRun(t, store, validPayload, "1")
	waitEvent(t, events, EventResultReady)

	res, err := m.Submit(context.Background(), info.ID, "   ")
	require.NoError(t, err)
	require.NotNil(t, res.Err)
	assert.Equal(t, rankings.KindInvalid, res.Err.Kind)
	assert.Empty(t, sub.got)
}

func TestManager_SubmitErrors(t *testing.T) {
	m, _ := newTestManager(t, &fakeSubmitter{})

	_, err := m.Submit(context.Background(), "missing", "Ann")
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := m.Start("")
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), info.ID, "Ann")
	assert.ErrorIs(t, err, ErrNoPendingResult)
}

func TestManager_StartReplacesPrevious(t *testing.T) {
	m, _ := newTestManager(t, &fakeSubmitter{})

	first, err := m.Start("medium")
	require.NoError(t, err)
	events, _, err := m.Subscribe(first.ID)
	require.NoError(t, err)

	second, err := m.Start("master")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	waitEvent(t, events, EventStopped)
	_, ok := <-events
	assert.False(t, ok, "old subscribers are closed")

	_, err = m.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "master", active.ModelID)
}

func TestManager_UnknownModel(t *testing.T) {
	m, _ := newTestManager(t, &fakeSubmitter{})

	_, err := m.Start("grandmaster")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestManager_StopAndClose(t *testing.T) {
	m, _ := newTestManager(t, &fakeSubmitter{})

	info, err := m.Start("")
	require.NoError(t, err)
	_, unsubscribe, err := m.Subscribe(info.ID)
	require.NoError(t, err)

	require.NoError(t, m.Stop(info.ID))
	assert.ErrorIs(t, m.Stop(info.ID), ErrNotFound)
	unsubscribe() // after close: no panic

	_, ok := m.Active()
	assert.False(t, ok)

	m.Close()
	_, err = m.Start("")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_IgnoresCompletionPresentAtStart(t *testing.T) {
	m, store := newTestManager(t, &fakeSubmitter{})
	writeRun(t, store, validPayload, "77")

	info, err := m.Start("")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	got, err := m.Get(info.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Pending)
}
