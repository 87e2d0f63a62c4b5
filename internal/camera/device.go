// Package camera manages the live video device used by the capture booth.
//
// A Device opens Streams; a Stream exposes its Tracks and the most recent
// frame. Session owns at most one stream at a time and guarantees that every
// track is stopped before another stream is requested or the session ends.
package camera

import (
	"context"
	"image"
)

// FacingMode selects the physical camera.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Opposite returns the other facing mode.
func (f FacingMode) Opposite() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// ParseFacing accepts "user"/"front" and "environment"/"back"; anything else
// falls back to the environment camera.
func ParseFacing(s string) FacingMode {
	switch s {
	case "user", "front":
		return FacingUser
	default:
		return FacingEnvironment
	}
}

// Constraints describe the stream requested from a Device. Video only.
type Constraints struct {
	Facing      FacingMode
	IdealWidth  int
	IdealHeight int
}

// Capabilities reports optional hardware features of a track.
type Capabilities struct {
	Torch bool
}

// Track is one media track of a stream.
type Track interface {
	Kind() string
	Capabilities() Capabilities
	ApplyTorch(on bool) error
	Stop()
}

// Stream is a live device stream.
type Stream interface {
	Tracks() []Track
	// Ready reports whether metadata is loaded and a first frame was rendered.
	Ready() bool
	// Snapshot returns the current frame at the stream's native resolution.
	Snapshot() (image.Image, error)
}

// Device opens streams. Implementations return an error when access is denied
// or no matching camera exists.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// videoTrack returns the first video track of s, or nil.
func videoTrack(s Stream) Track {
	for _, t := range s.Tracks() {
		if t.Kind() == "video" {
			return t
		}
	}
	return nil
}
