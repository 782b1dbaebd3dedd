package sim

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/routeplay/internal/geo"
	"github.com/banshee-data/routeplay/internal/monitoring"
)

// DefaultTickInterval is the simulation clock period: 10 ticks per second.
const DefaultTickInterval = 100 * time.Millisecond

// Sink delivers one outbound protocol message to a connection. Sends are
// fire-and-forget; a returned error means the connection is gone and the
// registry tears the session down.
type Sink func(connID string, msg any) error

// entry pairs a session with its clock handle. The done channel closes when
// the tick goroutine has fully exited, so teardown can guarantee that no
// further updates will be emitted.
type entry struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// Registry binds connection identities to at most one live session each and
// owns the per-session clocks. The identity->entry map has its own lock;
// session state is guarded per-session, so unrelated simulations never
// serialize against each other.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry

	sink         Sink
	tickInterval time.Duration
	stepScale    float64
}

// NewRegistry creates a registry emitting through sink. Zero values for
// tickInterval and stepScale select the protocol defaults.
func NewRegistry(tickInterval time.Duration, stepScale float64, sink Sink) *Registry {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	if stepScale == 0 {
		stepScale = DefaultStepScale
	}
	return &Registry{
		sessions:     make(map[string]*entry),
		sink:         sink,
		tickInterval: tickInterval,
		stepScale:    stepScale,
	}
}

// Start validates the route, replaces any session the connection already
// owns (its clock is disarmed first, so the two update streams never
// interleave), emits SIMULATION_STARTED, and arms the new clock.
func (r *Registry) Start(connID string, waypoints []geo.Coordinate, speed float64) error {
	session, err := NewSession(waypoints, speed, r.stepScale)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{session: session, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	old := r.sessions[connID]
	r.sessions[connID] = e
	r.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
	}

	if err := r.sink(connID, NewStartedEvent(session.Position())); err != nil {
		// The clock goroutine was never launched, so done must be closed
		// here; waiting on it via Stop would block forever.
		monitoring.Logf("sim: dropping session for %s, started event failed: %v", connID, err)
		r.remove(connID, e)
		close(e.done)
		return nil
	}

	go r.run(ctx, connID, e)
	return nil
}

// run drives one session's clock. Ticks are strictly sequential for the
// session; the loop exits on completion, send failure, or cancellation.
func (r *Registry) run(ctx context.Context, connID string, e *entry) {
	defer close(e.done)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			update, emit := e.session.Advance()
			if !emit {
				continue
			}
			if err := r.sink(connID, update); err != nil {
				monitoring.Logf("sim: send to %s failed, tearing down session: %v", connID, err)
				r.remove(connID, e)
				return
			}
			if update.IsComplete {
				r.remove(connID, e)
				return
			}
		}
	}
}

// remove deregisters e without waiting for its goroutine. Called from the
// tick loop itself, where waiting on done would deadlock. The identity check
// keeps a finished clock from evicting a replacement session installed by a
// later start.
func (r *Registry) remove(connID string, e *entry) {
	r.mu.Lock()
	if cur, ok := r.sessions[connID]; ok && cur == e {
		delete(r.sessions, connID)
	}
	r.mu.Unlock()
	e.cancel()
}

// Stop discards the connection's session and disarms its clock. It blocks
// until the tick goroutine has exited, so once Stop returns no further
// updates are emitted for the old session. Stopping a connection with no
// session is a silent no-op; the same path serves explicit STOP_SIMULATION
// messages and disconnects.
func (r *Registry) Stop(connID string) {
	r.mu.Lock()
	e, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	e.cancel()
	<-e.done
}

// Pause suspends the connection's session, if any.
func (r *Registry) Pause(connID string) {
	if s := r.lookup(connID); s != nil {
		s.Pause()
	}
}

// Resume unpauses the connection's session, if any.
func (r *Registry) Resume(connID string) {
	if s := r.lookup(connID); s != nil {
		s.Resume()
	}
}

// SetSpeed updates the speed multiplier of the connection's session, if any.
func (r *Registry) SetSpeed(connID string, speed float64) {
	if s := r.lookup(connID); s != nil {
		s.SetSpeed(speed)
	}
}

// Active reports whether the connection currently owns a session.
func (r *Registry) Active(connID string) bool {
	return r.lookup(connID) != nil
}

// Session returns the connection's live session, or nil. Callers get a
// handle for inspection; ownership stays with the registry.
func (r *Registry) Session(connID string) *Session {
	return r.lookup(connID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) lookup(connID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[connID]; ok {
		return e.session
	}
	return nil
}
