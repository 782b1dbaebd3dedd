package sim

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/routeplay/internal/geo"
)

// Inbound message types understood by the playback protocol.
const (
	MsgStartSimulation  = "START_SIMULATION"
	MsgPauseSimulation  = "PAUSE_SIMULATION"
	MsgResumeSimulation = "RESUME_SIMULATION"
	MsgStopSimulation   = "STOP_SIMULATION"
	MsgUpdateSpeed      = "UPDATE_SPEED"
)

// Outbound message types emitted to the client.
const (
	MsgSimulationStarted = "SIMULATION_STARTED"
	MsgPositionUpdate    = "POSITION_UPDATE"
	MsgError             = "ERROR"
)

// Command is one decoded inbound control message. Each concrete command
// carries only the fields its message type defines.
type Command interface {
	isCommand()
}

// StartCommand begins a new simulation over the given route.
type StartCommand struct {
	Waypoints []geo.Coordinate
	Speed     float64
}

// PauseCommand suspends ticking without losing position.
type PauseCommand struct{}

// ResumeCommand clears a pause.
type ResumeCommand struct{}

// StopCommand discards the active simulation.
type StopCommand struct{}

// UpdateSpeedCommand replaces the speed multiplier of the live simulation.
type UpdateSpeedCommand struct {
	Speed float64
}

func (StartCommand) isCommand()       {}
func (PauseCommand) isCommand()       {}
func (ResumeCommand) isCommand()      {}
func (StopCommand) isCommand()        {}
func (UpdateSpeedCommand) isCommand() {}

// commandEnvelope is the union of all inbound payload fields; the type tag
// selects which ones are meaningful.
type commandEnvelope struct {
	Type      string           `json:"type"`
	Waypoints []geo.Coordinate `json:"waypoints"`
	Speed     float64          `json:"speed"`
}

// DecodeCommand parses one inbound protocol message. An undecodable or
// unrecognized message returns an error; the transport logs and drops it
// without closing the connection.
func DecodeCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unparseable message: %w", err)
	}

	switch env.Type {
	case MsgStartSimulation:
		return StartCommand{Waypoints: env.Waypoints, Speed: env.Speed}, nil
	case MsgPauseSimulation:
		return PauseCommand{}, nil
	case MsgResumeSimulation:
		return ResumeCommand{}, nil
	case MsgStopSimulation:
		return StopCommand{}, nil
	case MsgUpdateSpeed:
		return UpdateSpeedCommand{Speed: env.Speed}, nil
	default:
		return nil, fmt.Errorf("unrecognized message type %q", env.Type)
	}
}

// StartedEvent announces a newly created simulation and its starting point.
type StartedEvent struct {
	Type            string         `json:"type"`
	InitialPosition geo.Coordinate `json:"initialPosition"`
}

// NewStartedEvent builds a SIMULATION_STARTED message.
func NewStartedEvent(initial geo.Coordinate) StartedEvent {
	return StartedEvent{Type: MsgSimulationStarted, InitialPosition: initial}
}

// PositionUpdate is emitted once per clock tick for a running simulation.
// Progress is the accumulated distance within the current segment, not an
// overall route fraction.
type PositionUpdate struct {
	Type            string         `json:"type"`
	Position        geo.Coordinate `json:"position"`
	Progress        float64        `json:"progress"`
	CurrentWaypoint int            `json:"currentWaypoint"`
	IsComplete      bool           `json:"isComplete"`
}

// ErrorEvent surfaces a validation failure to the client.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorEvent builds an ERROR message.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: MsgError, Message: message}
}
