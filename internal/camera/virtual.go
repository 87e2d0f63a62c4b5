package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

var (
	ErrAccessDenied  = errors.New("permission denied")
	ErrStreamStopped = errors.New("stream stopped")
)

// VirtualDevice is a synthetic camera that renders a test pattern at the
// requested resolution. It backs the booth CLI on machines without a camera
// and lets tests exercise torch and permission paths.
type VirtualDevice struct {
	// TorchFacings lists facing modes whose video track exposes a torch.
	TorchFacings map[FacingMode]bool
	// Deny makes every Open fail as if the user refused camera access.
	Deny bool
	// Unready keeps opened streams in the not-ready state.
	Unready bool

	opened atomic.Int64
}

// NewVirtualDevice returns a device whose environment camera has a torch,
// like most phones.
func NewVirtualDevice() *VirtualDevice {
	return &VirtualDevice{TorchFacings: map[FacingMode]bool{FacingEnvironment: true}}
}

func (d *VirtualDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Deny {
		return nil, ErrAccessDenied
	}

	w, h := c.IdealWidth, c.IdealHeight
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}

	seq := d.opened.Add(1)
	return &virtualStream{
		width:  w,
		height: h,
		ready:  !d.Unready,
		seed:   uint8(seq),
		track:  &virtualTrack{torchCapable: d.TorchFacings[c.Facing]},
	}, nil
}

// Opened returns how many streams the device has handed out.
func (d *VirtualDevice) Opened() int64 {
	return d.opened.Load()
}

type virtualStream struct {
	width, height int
	ready         bool
	seed          uint8
	frames        atomic.Int64
	track         *virtualTrack
}

func (s *virtualStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *virtualStream) Ready() bool {
	return s.ready && !s.track.isStopped()
}

func (s *virtualStream) Snapshot() (image.Image, error) {
	if s.track.isStopped() {
		return nil, ErrStreamStopped
	}

	shift := uint8(s.frames.Add(1)) + s.seed
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*255/s.width) + shift,
				G: uint8(y*255/s.height) + shift,
				B: 128,
				A: 255,
			})
		}
	}
	return img, nil
}

type virtualTrack struct {
	mu           sync.Mutex
	torchCapable bool
	torch        bool
	stops        int
}

func (t *virtualTrack) Kind() string { return "video" }

func (t *virtualTrack) Capabilities() Capabilities {
	return Capabilities{Torch: t.torchCapable}
}

func (t *virtualTrack) ApplyTorch(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.torchCapable {
		return errors.New("torch not supported")
	}
	if t.stops > 0 {
		return ErrStreamStopped
	}
	t.torch = on
	return nil
}

func (t *virtualTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	t.torch = false
}

func (t *virtualTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops > 0
}
