// Package session watches the shared store for finished runs and keeps the
// host-side state of the current play session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/pkg/logger"
)

// DefaultPollInterval is used when no interval is configured
const DefaultPollInterval = 500 * time.Millisecond

// ErrAlreadyStarted is returned when Start is called on a polling bridge
var ErrAlreadyStarted = errors.New("bridge already started")

// State is the bridge lifecycle state
type State int

const (
	StateIdle State = iota
	StatePolling
	StateResultReady
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateResultReady:
		return "result_ready"
	default:
		return "idle"
	}
}

// Handler receives each completion exactly once. It runs on the poll
// goroutine and must not call Stop on the same bridge.
type Handler func(ctx context.Context, c Completion)

// Bridge polls the shared store for completion signals
// ⭐ SSOT: 런타임 → 호스트 완료 신호 감지는 이 브리지에서만
type Bridge struct {
	store    kvstore.Store
	interval time.Duration
	handler  Handler
	logger   *logger.Logger

	mu       sync.Mutex
	state    State
	lastSeen string
	cancel   context.CancelFunc

	// serialises ticks so a manual Poll never overlaps the loop
	pollMu sync.Mutex
	wg     sync.WaitGroup
}

// NewBridge creates an idle bridge
func NewBridge(store kvstore.Store, interval time.Duration, handler Handler, log *logger.Logger) *Bridge {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Bridge{
		store:    store,
		interval: interval,
		handler:  handler,
		logger:   log.Component("bridge"),
	}
}

// Start snapshots the current timestamp and begins polling. A completion
// already sitting in the store with that timestamp is never delivered.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateIdle {
		return ErrAlreadyStarted
	}

	ts, _, err := b.store.Get(ctx, kvstore.KeyGameTimestamp)
	if err != nil {
		return fmt.Errorf("read initial timestamp: %w", err)
	}

	if b.cancel != nil {
		b.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)

	b.lastSeen = ts
	b.cancel = cancel
	b.state = StatePolling

	b.wg.Add(1)
	go b.loop(loopCtx)

	b.logger.WithFields(map[string]interface{}{
		"interval":  b.interval,
		"last_seen": ts,
	}).Debug("Bridge started")
	return nil
}

// Stop halts polling and waits for the loop to exit. Safe to call repeatedly.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()

	b.mu.Lock()
	b.state = StateIdle
	b.mu.Unlock()
}

// State returns the current lifecycle state
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LastSeen returns the timestamp of the last delivered (or initial) signal
func (b *Bridge) LastSeen() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

func (b *Bridge) loop(ctx context.Context) {
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		b.state = StateIdle
		b.mu.Unlock()
	}()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Poll(ctx)
		}
	}
}

// Poll runs one tick and reports whether a completion was delivered.
// Fires only on completed == "true" with data present and a timestamp
// different from the last one seen.
func (b *Bridge) Poll(ctx context.Context) bool {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	sig, err := ReadSignal(ctx, b.store)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.WithError(err).Warn("Store read failed, skipping tick")
		}
		return false
	}

	if !sig.Completed || sig.Payload == "" || sig.Timestamp == b.LastSeen() {
		return false
	}

	c, err := ParseCompletion(sig)
	if err != nil {
		b.logger.WithError(err).WithField("timestamp", sig.Timestamp).Debug("Discarding unparseable completion")
		return false
	}

	if ctx.Err() != nil {
		return false
	}

	b.mu.Lock()
	b.lastSeen = sig.Timestamp
	prev := b.state
	b.state = StateResultReady
	b.mu.Unlock()

	if err := b.store.Delete(ctx, kvstore.KeyGameCompleted, kvstore.KeyGameData); err != nil {
		b.logger.WithError(err).Warn("Failed to clear completion keys")
	}

	b.logger.WithFields(map[string]interface{}{
		"timestamp": c.Timestamp,
		"score":     c.Payload.Score,
	}).Info("Game completion received")

	if b.handler != nil {
		b.handler(ctx, c)
	}

	b.mu.Lock()
	if b.state == StateResultReady {
		b.state = prev
	}
	b.mu.Unlock()

	return true
}
