package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/logging"
)

// Handle is the single active stream of a Session.
type Handle struct {
	stream Stream
	facing FacingMode
}

func (h *Handle) Stream() Stream     { return h.stream }
func (h *Handle) Facing() FacingMode { return h.facing }

// Session holds the camera device for one capture UI.
type Session struct {
	mu sync.Mutex

	device Device
	logger logging.Logger
	width  int
	height int

	handle    *Handle
	facing    FacingMode
	flash     bool // torch state applied to the current track
	wantFlash bool // torch state requested by the caller, kept across re-acquires
}

// NewSession creates a session that requests streams at the given ideal
// resolution. No stream is opened until Acquire.
func NewSession(device Device, width, height int, logger logging.Logger) *Session {
	return &Session{
		device: device,
		logger: logger,
		width:  width,
		height: height,
		facing: FacingEnvironment,
	}
}

// SetFacing sets the facing mode used by the next acquire that does not
// name one explicitly.
func (s *Session) SetFacing(f FacingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facing = f
}

// Acquire releases any current stream and opens a new one with the given
// facing mode. A torch request on a track without torch capability is
// dropped silently; Flash reports what was actually applied.
func (s *Session) Acquire(ctx context.Context, facing FacingMode, flash bool) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquireLocked(ctx, facing, flash)
}

func (s *Session) acquireLocked(ctx context.Context, facing FacingMode, flash bool) (*Handle, error) {
	s.releaseLocked()
	s.facing = facing
	s.wantFlash = flash

	stream, err := s.device.Open(ctx, Constraints{Facing: facing, IdealWidth: s.width, IdealHeight: s.height})
	if err != nil {
		s.logger.Warn(ctx, "camera open failed", "facing", facing, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrPermission, err)
	}

	s.handle = &Handle{stream: stream, facing: facing}
	s.flash = false

	if flash {
		if track := videoTrack(stream); track != nil && track.Capabilities().Torch {
			if err := track.ApplyTorch(true); err == nil {
				s.flash = true
			}
		}
		if !s.flash {
			s.logger.Info(ctx, "torch requested but not applied", "facing", facing)
		}
	}

	s.logger.Info(ctx, "camera acquired", "facing", facing, "flash", s.flash)
	return s.handle, nil
}

// ToggleFlash flips the torch on the active video track and returns the new
// state. ErrCapability leaves the state unchanged.
func (s *Session) ToggleFlash() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return s.flash, fmt.Errorf("%w: no active stream", common.ErrNotReady)
	}

	track := videoTrack(s.handle.stream)
	if track == nil || !track.Capabilities().Torch {
		return s.flash, fmt.Errorf("%w: torch", common.ErrCapability)
	}

	next := !s.flash
	if err := track.ApplyTorch(next); err != nil {
		return s.flash, fmt.Errorf("%w: torch: %v", common.ErrCapability, err)
	}
	s.flash = next
	s.wantFlash = next
	return s.flash, nil
}

// SwitchFacing re-acquires the stream with the opposite facing mode. The old
// stream is fully stopped before the new one is requested. The requested
// torch state carries over even when the other camera cannot apply it.
func (s *Session) SwitchFacing(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquireLocked(ctx, s.facing.Opposite(), s.wantFlash)
}

// Release stops every track of the current stream. Safe to call repeatedly.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.handle == nil {
		return
	}
	for _, t := range s.handle.stream.Tracks() {
		t.Stop()
	}
	s.handle = nil
	s.flash = false
}

// Handle returns the active handle or nil.
func (s *Session) Handle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Facing returns the facing mode of the last acquire.
func (s *Session) Facing() FacingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// Flash reports whether the torch is on.
func (s *Session) Flash() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flash
}
