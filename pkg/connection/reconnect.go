package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultInterval is the delay between a disconnect and the next attempt.
const DefaultInterval = 5 * time.Second

// Connection errors.
var (
	ErrClosed         = errors.New("connection manager closed")
	ErrAlreadyStarted = errors.New("connection manager already started")
	ErrNilConnectFunc = errors.New("connect function is nil")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection. A reconnect attempt
	// is pending unless the manager has not been started.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosed indicates the manager has been closed. It is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc is called to establish a connection.
// It should return nil on success or an error on failure. The context is
// cancelled when the manager is closed.
type ConnectFunc func(ctx context.Context) error

// Manager manages connection lifecycle with fixed-interval reconnection.
type Manager struct {
	mu sync.Mutex

	state    State
	started  bool
	interval time.Duration

	connectFn ConnectFunc

	// Pending reconnect attempt; nil when none is scheduled.
	timer *time.Timer

	// Consecutive failed attempts since the last successful connect.
	failures int
	lastErr  error

	ctx    context.Context
	cancel context.CancelFunc

	// Tracks the initial attempt and timer callbacks.
	wg sync.WaitGroup

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func(err error)
	onReconnecting func(failures int, delay time.Duration)
}

// NewManager creates a connection manager. An interval <= 0 selects
// DefaultInterval. The manager does nothing until Start is called.
func NewManager(connectFn ConnectFunc, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:     StateDisconnected,
		interval:  interval,
		connectFn: connectFn,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Interval returns the fixed reconnect delay.
func (m *Manager) Interval() time.Duration {
	return m.interval
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Failures returns the number of consecutive failed attempts.
func (m *Manager) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// LastError returns the error of the most recent failed attempt or the
// error passed to the most recent NotifyConnectionLost.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Start makes the first connection attempt in the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectFn == nil {
		return ErrNilConnectFunc
	}
	if m.state == StateClosed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.attempt()
	}()
	return nil
}

// NotifyConnectionLost should be called when an established connection
// fails. It moves the manager to Disconnected and schedules the next
// attempt. Calls in any other state are ignored, so repeated reports of
// the same loss are harmless.
func (m *Manager) NotifyConnectionLost(err error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.lastErr = err
	m.scheduleLocked()
	m.mu.Unlock()

	m.emitStateChange(StateConnected, StateDisconnected)
	m.emitDisconnected(err)
	m.emitReconnecting(0)
}

// Close stops the manager. A pending attempt is cancelled and an in-flight
// attempt sees its context cancelled. Close waits for the in-flight attempt
// to return, so it must not be called from a callback.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	oldState := m.state
	m.state = StateClosed
	m.stopTimerLocked()
	m.mu.Unlock()

	m.cancel()
	m.emitStateChange(oldState, StateClosed)
	m.wg.Wait()
}

// attempt runs one connection attempt. It is only entered from Start or
// from the reconnect timer, and the state check under the lock guarantees
// that at most one attempt runs at a time.
func (m *Manager) attempt() {
	m.mu.Lock()
	m.timer = nil
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()

	m.emitStateChange(StateDisconnected, StateConnecting)

	err := m.connectFn(m.ctx)

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	if err != nil {
		m.state = StateDisconnected
		m.failures++
		m.lastErr = err
		failures := m.failures
		m.scheduleLocked()
		m.mu.Unlock()

		m.emitStateChange(StateConnecting, StateDisconnected)
		m.emitReconnecting(failures)
		return
	}

	m.state = StateConnected
	m.failures = 0
	m.stopTimerLocked()
	m.mu.Unlock()

	m.emitStateChange(StateConnecting, StateConnected)
	m.emitConnected()
}

// scheduleLocked arms the reconnect timer unless one is already pending.
func (m *Manager) scheduleLocked() {
	if m.timer != nil {
		return
	}
	m.wg.Add(1)
	m.timer = time.AfterFunc(m.interval, func() {
		defer m.wg.Done()
		m.attempt()
	})
}

func (m *Manager) stopTimerLocked() {
	if m.timer == nil {
		return
	}
	if m.timer.Stop() {
		// The callback will never run, so release its wait group slot.
		m.wg.Done()
	}
	m.timer = nil
}

func (m *Manager) emitStateChange(oldState, newState State) {
	m.mu.Lock()
	fn := m.onStateChange
	m.mu.Unlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

func (m *Manager) emitConnected() {
	m.mu.Lock()
	fn := m.onConnected
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) emitDisconnected(err error) {
	m.mu.Lock()
	fn := m.onDisconnected
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (m *Manager) emitReconnecting(failures int) {
	m.mu.Lock()
	fn := m.onReconnecting
	m.mu.Unlock()
	if fn != nil {
		fn(failures, m.interval)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for loss of an established connection.
func (m *Manager) OnDisconnected(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback invoked whenever a reconnect attempt is
// scheduled. failures is the number of consecutive failed attempts (0 after
// the loss of an established connection).
func (m *Manager) OnReconnecting(fn func(failures int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}
