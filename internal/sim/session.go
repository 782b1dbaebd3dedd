// Package sim implements the per-connection route playback engine: the
// session state machine that advances an interpolated position along a
// waypoint polyline on a fixed clock, and the registry that binds sessions to
// connections and owns their clocks.
package sim

import (
	"errors"
	"sync"

	"github.com/banshee-data/routeplay/internal/geo"
)

// ErrTooFewWaypoints is returned when a start request carries fewer than two
// waypoints. It is the only validated precondition in the protocol.
var ErrTooFewWaypoints = errors.New("at least two waypoints required")

// DefaultStepScale converts the abstract speed unit into degrees of
// coordinate space per 100ms tick: speed 1 moves 0.0001 degrees per second at
// 10 ticks per second. The playback protocol's observable output is defined
// against this exact constant.
const DefaultStepScale = 0.0001 / 10

// Session is the playback state for one connection. All methods are safe for
// concurrent use; a single mutex serializes control mutations with tick
// execution, scoped to this session only.
type Session struct {
	mu sync.Mutex

	waypoints     []geo.Coordinate
	totalDistance float64
	stepScale     float64

	currentIndex int
	nextIndex    int
	progress     float64
	speed        float64
	paused       bool
	position     geo.Coordinate
	complete     bool
}

// NewSession validates the route and builds a session positioned at the first
// waypoint. A zero speed falls back to the default multiplier of 1; any other
// value, including negatives, is accepted as-is.
func NewSession(waypoints []geo.Coordinate, speed, stepScale float64) (*Session, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	if speed == 0 {
		speed = 1
	}
	if stepScale == 0 {
		stepScale = DefaultStepScale
	}

	// The route is immutable for the session's lifetime; copy so later
	// mutation of the caller's slice cannot reach into a live simulation.
	route := make([]geo.Coordinate, len(waypoints))
	copy(route, waypoints)

	return &Session{
		waypoints:     route,
		totalDistance: geo.TotalDistance(route),
		stepScale:     stepScale,
		currentIndex:  0,
		nextIndex:     1,
		speed:         speed,
		position:      route[0],
	}, nil
}

// Advance executes one clock tick. The returned update should be emitted when
// emit is true; paused sessions tick as no-ops and sessions that have already
// reported completion stay terminal. Overshoot past a waypoint is discarded:
// progress resets to zero at each segment boundary.
func (s *Session) Advance() (update PositionUpdate, emit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused || s.complete {
		return PositionUpdate{}, false
	}

	if s.nextIndex >= len(s.waypoints) {
		s.complete = true
		return s.positionUpdateLocked(), true
	}

	current := s.waypoints[s.currentIndex]
	next := s.waypoints[s.nextIndex]
	segDist := geo.SegmentDistance(current, next)

	s.progress += s.speed * s.stepScale

	ratio := 1.0
	if segDist > 0 {
		ratio = s.progress / segDist
		if ratio > 1 {
			ratio = 1
		}
	}

	s.position = geo.Lerp(current, next, ratio)

	if ratio >= 1 {
		s.currentIndex++
		s.nextIndex++
		s.progress = 0
	}

	return s.positionUpdateLocked(), true
}

func (s *Session) positionUpdateLocked() PositionUpdate {
	return PositionUpdate{
		Type:            MsgPositionUpdate,
		Position:        s.position,
		Progress:        s.progress,
		CurrentWaypoint: s.currentIndex,
		IsComplete:      s.complete,
	}
}

// Pause suspends advancement. Idempotent.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume clears a pause. Idempotent.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// SetSpeed replaces the speed multiplier, effective on the next tick. No
// bounds are enforced: zero and negative values are accepted and simply stop
// or reverse progress accumulation.
func (s *Session) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = speed
}

// Position returns the last interpolated location.
func (s *Session) Position() geo.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Progress returns the accumulated distance within the current segment.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// CurrentIndex returns the index of the waypoint the session is moving from.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Speed returns the current speed multiplier.
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Paused reports whether the session is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Complete reports whether the session has reached the end of its route.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// TotalDistance returns the route length computed at session start.
func (s *Session) TotalDistance() float64 {
	return s.totalDistance
}

// injectState overwrites the traversal state directly. Test hook: long routes
// are completed by state injection rather than real-time waits.
func (s *Session) injectState(currentIndex, nextIndex int, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex = currentIndex
	s.nextIndex = nextIndex
	s.progress = progress
}
