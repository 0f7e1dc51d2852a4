package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/arcade/internal/archive"
	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/pkg/logger"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrNoPendingResult = errors.New("no result waiting for submission")
	ErrSubmitInFlight  = errors.New("submission already in progress")
	ErrUnknownModel    = errors.New("unknown model")
	ErrClosed          = errors.New("session manager closed")
)

const eventBuffer = 16

// Submitter sends a finished run to the backend
type Submitter interface {
	SubmitGamePlayData(ctx context.Context, sub rankings.GamePlaySubmission) rankings.SubmitResult
}

// Archive records submission attempts. Optional.
type Archive interface {
	Save(ctx context.Context, s *archive.Submission) error
	MarkSubmitted(ctx context.Context, id uuid.UUID, remoteID string) error
	MarkRejected(ctx context.Context, id uuid.UUID, message string) error
	MarkAttempt(ctx context.Context, id uuid.UUID, message string) error
	MarkUnconfirmed(ctx context.Context, id uuid.UUID, message string) error
}

// EventType names a session event
type EventType string

const (
	EventStarted      EventType = "started"
	EventResultReady  EventType = "result_ready"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submit_failed"
	EventStopped      EventType = "stopped"
)

// Event is published to session subscribers
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Time      time.Time              `json:"time"`
	Result    *ResultSummary         `json:"result,omitempty"`
	Submit    *rankings.SubmitResult `json:"submit,omitempty"`
}

// ResultSummary is the part of a pending result shown to the UI
type ResultSummary struct {
	Timestamp  string                   `json:"timestamp"`
	Score      float64                  `json:"score"`
	FinalStage int                      `json:"final_stage"`
	Statistics contracts.GameStatistics `json:"statistics"`
	Accuracy   float64                  `json:"accuracy"`
}

func summarize(c *Completion) *ResultSummary {
	if c == nil {
		return nil
	}
	return &ResultSummary{
		Timestamp:  c.Timestamp,
		Score:      c.Payload.Score,
		FinalStage: c.Payload.FinalStage,
		Statistics: c.Payload.Statistics,
		Accuracy:   c.Payload.Statistics.Accuracy(),
	}
}

// Info is a snapshot of a session
type Info struct {
	ID        string         `json:"id"`
	ModelID   string         `json:"model_id,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	State     string         `json:"state"`
	Pending   *ResultSummary `json:"pending,omitempty"`
}

type activeSession struct {
	id         string
	modelID    string
	startedAt  time.Time
	bridge     *Bridge
	pending    *Completion
	submitting bool
	subs       map[chan Event]struct{}
}

// Manager owns the single active play session. The runtime writes fixed
// store keys, so only one session can listen at a time.
// ⭐ SSOT: 플레이 세션 수명주기는 이 매니저에서만
type Manager struct {
	store     kvstore.Store
	submitter Submitter
	archive   Archive
	interval  time.Duration
	logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active *activeSession
	closed bool
}

// Option configures a Manager
type Option func(*Manager)

// WithArchive records every submission attempt in the outbox
func WithArchive(a Archive) Option {
	return func(m *Manager) { m.archive = a }
}

// WithPollInterval overrides the bridge poll interval
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates a session manager
func NewManager(store kvstore.Store, submitter Submitter, log *logger.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:     store,
		submitter: submitter,
		interval:  DefaultPollInterval,
		logger:    log.Component("session"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new session, ending any previous one
func (m *Manager) Start(modelID string) (Info, error) {
	if modelID != "" {
		if _, ok := contracts.ModelByID(modelID); !ok {
			return Info{}, ErrUnknownModel
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Info{}, ErrClosed
	}
	prev := m.detachLocked()
	m.mu.Unlock()

	if prev != nil {
		prev.bridge.Stop()
	}

	s := &activeSession{
		id:        uuid.NewString(),
		modelID:   modelID,
		startedAt: time.Now().UTC(),
		subs:      make(map[chan Event]struct{}),
	}
	s.bridge = NewBridge(m.store, m.interval, m.onCompletion(s.id), m.logger)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Info{}, ErrClosed
	}
	if m.active != nil {
		// Lost a race with a concurrent Start
		m.mu.Unlock()
		return Info{}, ErrAlreadyStarted
	}
	// The bridge starts under the lock so a completion from its first tick
	// waits in onCompletion until the session is active.
	if err := s.bridge.Start(m.ctx); err != nil {
		m.mu.Unlock()
		return Info{}, err
	}
	m.active = s
	info := m.infoLocked(s)
	m.publishLocked(s, Event{Type: EventStarted})
	m.mu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"session_id": s.id,
		"model_id":   modelID,
	}).Info("Session started")

	return info, nil
}

// Get returns a snapshot of the session
func (m *Manager) Get(id string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookupLocked(id)
	if err != nil {
		return Info{}, err
	}
	return m.infoLocked(s), nil
}

// Active returns the current session, if any
func (m *Manager) Active() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Info{}, false
	}
	return m.infoLocked(m.active), true
}

// Stop ends the session and closes its subscriber channels
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	if _, err := m.lookupLocked(id); err != nil {
		m.mu.Unlock()
		return err
	}
	s := m.detachLocked()
	m.mu.Unlock()

	s.bridge.Stop()

	m.logger.WithField("session_id", id).Info("Session stopped")
	return nil
}

// Close stops the active session and rejects further starts
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	s := m.detachLocked()
	m.mu.Unlock()

	if s != nil {
		s.bridge.Stop()
	}
	m.cancel()
}

// Subscribe returns a channel of session events and a func to stop listening.
// The channel is closed when the session ends.
func (m *Manager) Subscribe(id string) (<-chan Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookupLocked(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Event, eventBuffer)
	s.subs[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}

	return ch, unsubscribe, nil
}

// Submit sends the pending result under the given nickname.
// Submission failures come back in the result; the error is for session state problems.
func (m *Manager) Submit(ctx context.Context, id, nickname string) (rankings.SubmitResult, error) {
	m.mu.Lock()
	s, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return rankings.SubmitResult{}, err
	}
	if s.pending == nil {
		m.mu.Unlock()
		return rankings.SubmitResult{}, ErrNoPendingResult
	}
	if s.submitting {
		m.mu.Unlock()
		return rankings.SubmitResult{}, ErrSubmitInFlight
	}
	if err := rankings.ValidateNickname(nickname); err != nil {
		m.mu.Unlock()
		return rankings.SubmitResult{Err: &rankings.APIError{Kind: rankings.KindInvalid, Message: err.Error()}}, nil
	}
	s.submitting = true
	pending := s.pending
	modelID := s.modelID
	m.mu.Unlock()

	// Once the run goes out, a caller hanging up must not cut it short:
	// an unanswered submission cannot be told apart from a recorded one.
	ctx = context.WithoutCancel(ctx)

	var rec *archive.Submission
	if m.archive != nil {
		rec = archive.NewSubmission(id, strings.TrimSpace(nickname), modelID, pending.Payload.Score, pending.Payload.FinalStage, pending.Raw)
		if err := m.archive.Save(ctx, rec); err != nil {
			m.logger.WithError(err).Warn("Failed to archive submission")
			rec = nil
		}
	}

	res := m.submitter.SubmitGamePlayData(ctx, rankings.GamePlaySubmission{
		Nickname: nickname,
		ModelID:  modelID,
		Payload:  pending.Raw,
	})

	if rec != nil {
		m.recordOutcome(ctx, rec, res)
	}

	m.mu.Lock()
	s.submitting = false
	ev := Event{Type: EventSubmitted, Submit: &res}
	if res.OK {
		// A newer run may have replaced the pending result meanwhile
		if s.pending == pending {
			s.pending = nil
		}
	} else {
		ev.Type = EventSubmitFailed
	}
	if m.active == s {
		m.publishLocked(s, ev)
	}
	m.mu.Unlock()

	return res, nil
}

func (m *Manager) recordOutcome(ctx context.Context, rec *archive.Submission, res rankings.SubmitResult) {
	var err error
	switch {
	case res.OK:
		err = m.archive.MarkSubmitted(ctx, rec.ID, res.ID)
	case res.Err.Kind == rankings.KindUnreachable:
		err = m.archive.MarkAttempt(ctx, rec.ID, res.Err.Message)
	case res.Err.Kind == rankings.KindUnconfirmed:
		err = m.archive.MarkUnconfirmed(ctx, rec.ID, res.Err.Message)
	default:
		err = m.archive.MarkRejected(ctx, rec.ID, res.Err.Message)
	}
	if err != nil {
		m.logger.WithError(err).WithField("submission_id", rec.ID.String()).Warn("Failed to update archived submission")
	}
}

func (m *Manager) onCompletion(id string) Handler {
	return func(_ context.Context, c Completion) {
		m.mu.Lock()
		defer m.mu.Unlock()

		s := m.active
		if s == nil || s.id != id {
			return
		}

		s.pending = &c
		m.publishLocked(s, Event{Type: EventResultReady, Result: summarize(&c)})
	}
}

func (m *Manager) lookupLocked(id string) (*activeSession, error) {
	if m.active == nil || m.active.id != id {
		return nil, ErrNotFound
	}
	return m.active, nil
}

// detachLocked removes the active session and closes its subscribers.
// The caller stops the bridge after releasing the lock.
func (m *Manager) detachLocked() *activeSession {
	s := m.active
	if s == nil {
		return nil
	}
	m.active = nil

	m.publishLocked(s, Event{Type: EventStopped})
	for ch := range s.subs {
		close(ch)
	}
	s.subs = make(map[chan Event]struct{})
	return s
}

func (m *Manager) publishLocked(s *activeSession, ev Event) {
	ev.SessionID = s.id
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			m.logger.WithFields(map[string]interface{}{
				"session_id": s.id,
				"event":      string(ev.Type),
			}).Warn("Dropping event for slow subscriber")
		}
	}
}

func (m *Manager) infoLocked(s *activeSession) Info {
	state := s.bridge.State().String()
	if s.pending != nil {
		state = StateResultReady.String()
	}
	return Info{
		ID:        s.id,
		ModelID:   s.modelID,
		StartedAt: s.startedAt,
		State:     state,
		Pending:   summarize(s.pending),
	}
}
