// Package capture turns the current frame of a live camera stream into an
// encoded still image.
package capture

import (
	"bytes"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/guestlens/internal/camera"
	"github.com/dmitrijs2005/guestlens/internal/common"
)

const MimeJPEG = "image/jpeg"

// Frame is an immutable still taken from a stream.
type Frame struct {
	Width      int
	Height     int
	Data       []byte
	MimeType   string
	CapturedAt time.Time
}

// FileName is a stable name for the frame, used for logging and transcoding.
func (f *Frame) FileName() string {
	return fmt.Sprintf("capture-%d.jpg", f.CapturedAt.UnixMilli())
}

// Capturer encodes stream snapshots as JPEG.
type Capturer struct {
	quality int
	now     func() time.Time
}

func NewCapturer(quality int) *Capturer {
	if quality <= 0 || quality > 100 {
		quality = 92
	}
	return &Capturer{quality: quality, now: time.Now}
}

// Capture draws the stream's current frame onto an off-screen surface at its
// native size and encodes it. ErrNotReady is returned instead of a frame when
// the stream is missing, stopped or has not rendered yet.
func (c *Capturer) Capture(h *camera.Handle) (*Frame, error) {
	if h == nil || h.Stream() == nil {
		return nil, fmt.Errorf("%w: no stream", common.ErrNotReady)
	}
	stream := h.Stream()
	if !stream.Ready() {
		return nil, fmt.Errorf("%w: stream not ready", common.ErrNotReady)
	}

	src, err := stream.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNotReady, err)
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty frame", common.ErrNotReady)
	}

	surface := imaging.Clone(src)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, surface, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	return &Frame{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Data:       buf.Bytes(),
		MimeType:   MimeJPEG,
		CapturedAt: c.now(),
	}, nil
}
