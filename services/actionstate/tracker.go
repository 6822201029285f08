// Package actionstate tracks the request state of named user actions.
//
// Each action key moves through idle, loading, success and error. Error
// messages are transient: they are cleared after a delay while the error
// state itself is kept until the next transition.
package actionstate

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services"
	"go.uber.org/zap"
)

const (
	// DefaultClearDelay is how long an error message stays visible
	DefaultClearDelay = 3000 * time.Millisecond

	// DefaultMaxKeys bounds the distinct action keys one session may track
	DefaultMaxKeys = 64
)

// Snapshot is the observable state of one action key
type Snapshot struct {
	Key     models.ActionKey    `json:"key"`
	State   models.RequestState `json:"state"`
	Message string              `json:"message,omitempty"`
}

type entry struct {
	state      models.RequestState
	message    string
	hasMessage bool
	generation uint64
	timer      clockwork.Timer
}

// Tracker holds per-key request state for one session
type Tracker struct {
	mu      sync.Mutex
	entries map[models.ActionKey]*entry

	session    string
	clock      clockwork.Clock
	clearDelay time.Duration
	maxKeys    int
	notifier   Notifier
	logger     *zap.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock sets the clock used for timestamps and the clear timer
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithClearDelay sets how long error messages stay visible
func WithClearDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.clearDelay = d
		}
	}
}

// WithMaxKeys bounds the number of distinct keys the tracker accepts
func WithMaxKeys(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxKeys = n
		}
	}
}

// WithNotifier sets the destination of transient notifications
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) {
		if n != nil {
			t.notifier = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSession tags notifications with the owning session
func WithSession(session string) Option {
	return func(t *Tracker) {
		t.session = session
	}
}

// New creates a new Tracker
func New(opts ...Option) *Tracker {
	t := &Tracker{
		entries:    make(map[models.ActionKey]*entry),
		clock:      clockwork.NewRealClock(),
		clearDelay: DefaultClearDelay,
		maxKeys:    DefaultMaxKeys,
		notifier:   nopNotifier{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetState transitions key to state. message is optional (empty means none)
// and only meaningful for success, where it is notified, and error, where it
// is also stored until the clear delay elapses.
//
// Every transition supersedes the pending clear timer of the key. A key not
// yet tracked is rejected once the tracker holds its maximum number of keys.
func (t *Tracker) SetState(key models.ActionKey, state models.RequestState, message string) error {
	if key == "" {
		return services.ErrInvalidActionKey
	}
	if !state.IsValid() {
		return services.ErrInvalidRequestState.WithDetail("state", string(state))
	}

	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		if len(t.entries) >= t.maxKeys {
			t.mu.Unlock()
			return services.ErrTooManyActionKeys.WithDetail("max_keys", t.maxKeys)
		}
		e = &entry{state: models.RequestIdle}
		t.entries[key] = e
	}
	e.generation++
	generation := e.generation
	stale := e.timer
	e.timer = nil

	e.state = state
	if state == models.RequestError && message != "" {
		e.message = message
		e.hasMessage = true
	} else {
		e.message = ""
		e.hasMessage = false
	}
	t.mu.Unlock()

	// Timer calls stay outside mu; clearMessage takes it.
	if stale != nil {
		stale.Stop()
	}

	t.logger.Debug("action state changed",
		zap.String("session", t.session),
		zap.String("action", string(key)),
		zap.String("state", string(state)))

	if message == "" {
		return nil
	}

	switch state {
	case models.RequestSuccess:
		t.notify(key, NotificationSuccess, message)
	case models.RequestError:
		t.notify(key, NotificationError, message)
		t.scheduleClear(key, generation)
	}
	return nil
}

func (t *Tracker) scheduleClear(key models.ActionKey, generation uint64) {
	timer := t.clock.AfterFunc(t.clearDelay, func() {
		t.clearMessage(key, generation)
	})

	t.mu.Lock()
	e := t.entries[key]
	current := e != nil && e.generation == generation
	if current {
		e.timer = timer
	}
	t.mu.Unlock()

	if !current {
		timer.Stop()
	}
}

// clearMessage drops the stored message if no transition happened since
// the timer for generation was armed.
func (t *Tracker) clearMessage(key models.ActionKey, generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || e.generation != generation {
		return
	}
	e.message = ""
	e.hasMessage = false
	e.timer = nil

	t.logger.Debug("action error message cleared",
		zap.String("session", t.session),
		zap.String("action", string(key)))
}

func (t *Tracker) notify(key models.ActionKey, kind NotificationKind, message string) {
	t.notifier.Notify(Notification{
		Session: t.session,
		Key:     key,
		Kind:    kind,
		Message: message,
		At:      t.clock.Now(),
	})
}

// State returns the current state of key. Unobserved keys are idle.
func (t *Tracker) State(key models.ActionKey) models.RequestState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		return e.state
	}
	return models.RequestIdle
}

// IsIdle reports whether key is idle
func (t *Tracker) IsIdle(key models.ActionKey) bool {
	return t.State(key) == models.RequestIdle
}

// IsLoading reports whether key has a request in flight
func (t *Tracker) IsLoading(key models.ActionKey) bool {
	return t.State(key) == models.RequestLoading
}

// IsSucceeded reports whether the last request for key succeeded
func (t *Tracker) IsSucceeded(key models.ActionKey) bool {
	return t.State(key) == models.RequestSuccess
}

// IsErrored reports whether the last request for key failed
func (t *Tracker) IsErrored(key models.ActionKey) bool {
	return t.State(key) == models.RequestError
}

// ErrorMessage returns the stored error text of key, if any
func (t *Tracker) ErrorMessage(key models.ActionKey) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok && e.hasMessage {
		return e.message, true
	}
	return "", false
}

// Snapshot returns state and message of key in one read
func (t *Tracker) Snapshot(key models.ActionKey) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{Key: key, State: models.RequestIdle}
	if e, ok := t.entries[key]; ok {
		snap.State = e.state
		snap.Message = e.message
	}
	return snap
}

// Keys returns the number of tracked keys
func (t *Tracker) Keys() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close stops every pending clear timer. Stored messages are left as they are.
func (t *Tracker) Close() {
	t.mu.Lock()
	timers := make([]clockwork.Timer, 0, len(t.entries))
	for _, e := range t.entries {
		if e.timer != nil {
			timers = append(timers, e.timer)
			e.timer = nil
		}
		e.generation++
	}
	t.mu.Unlock()

	for _, timer := range timers {
		timer.Stop()
	}
}
