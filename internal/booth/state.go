package booth

import (
	"time"

	"github.com/dmitrijs2005/guestlens/internal/camera"
)

type State int

const (
	StateIdle State = iota
	StateArming
	StateCountingDown
	StateReviewing
	StateSaving
	StateDiscarding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArming:
		return "arming"
	case StateCountingDown:
		return "counting_down"
	case StateReviewing:
		return "reviewing"
	case StateSaving:
		return "saving"
	case StateDiscarding:
		return "discarding"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventState EventKind = iota
	EventTick
	EventSaved
	EventSaveFailed
	EventError
	EventFlash
	EventFacing
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventTick:
		return "tick"
	case EventSaved:
		return "saved"
	case EventSaveFailed:
		return "save_failed"
	case EventError:
		return "error"
	case EventFlash:
		return "flash"
	case EventFacing:
		return "facing"
	default:
		return "unknown"
	}
}

// Event is reported to the listener on every observable change.
type Event struct {
	Kind      EventKind
	State     State
	Remaining int
	Message   string
	Err       error
}

// Status is a point-in-time view of the machine for display.
type Status struct {
	State     State
	Remaining int
	Facing    camera.FacingMode
	Flash     bool
}

type Config struct {
	CaptureCountdown int
	ReviewCountdown  int
	Tick             time.Duration
}

func DefaultConfig() Config {
	return Config{CaptureCountdown: 5, ReviewCountdown: 9, Tick: time.Second}
}

type command int

const (
	cmdTap command = iota
	cmdSave
	cmdDiscard
	cmdFlip
	cmdFlash
	cmdClose
)

func (c command) String() string {
	return [...]string{"tap", "save", "discard", "flip", "flash", "close"}[c]
}
