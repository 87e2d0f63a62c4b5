// Package transcode decodes uploaded or captured images and produces the
// full-size and thumbnail WebP variants on a dedicated worker goroutine.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/logging"
)

var errClosed = errors.New("transcoder closed")

// Observer receives the duration and outcome of every transcode.
type Observer interface {
	ObserveTranscode(d time.Duration, err error)
}

type Option func(*Transcoder)

func WithObserver(o Observer) Option {
	return func(t *Transcoder) { t.observer = o }
}

// Transcoder accepts one request at a time. Concurrent callers queue on the
// mutex.
type Transcoder struct {
	mu  sync.Mutex
	seq uint64

	reqs      chan request
	closeOnce sync.Once
	closed    chan struct{}

	logger   logging.Logger
	observer Observer
}

// New starts the worker. Close stops it.
func New(logger logging.Logger, opts ...Option) *Transcoder {
	t := &Transcoder{
		reqs:   make(chan request),
		closed: make(chan struct{}),
		logger: logger,
	}
	for _, o := range opts {
		o(t)
	}
	go runWorker(t.reqs, []Profile{FullProfile, ThumbnailProfile})
	return t
}

// Transcode produces both variants of raw or fails with ErrTranscode.
func (t *Transcoder) Transcode(ctx context.Context, raw []byte, fileName string) (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	res, err := t.roundTrip(ctx, raw, fileName)
	if t.observer != nil {
		t.observer.ObserveTranscode(time.Since(start), err)
	}
	if err != nil {
		t.logger.Warn(ctx, "transcode failed", "file", fileName, "error", err)
		return nil, err
	}

	t.logger.Debug(ctx, "transcoded",
		"file", fileName,
		"full_bytes", len(res.Full.Data),
		"thumb_bytes", len(res.Thumbnail.Data),
		"took", time.Since(start),
	)
	return res, nil
}

func (t *Transcoder) roundTrip(ctx context.Context, raw []byte, fileName string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTranscode, err)
	}
	// reqs is closed only under t.mu, after closed.
	select {
	case <-t.closed:
		return nil, fmt.Errorf("%w: %v", common.ErrTranscode, errClosed)
	default:
	}

	t.seq++
	id := t.seq
	reply := make(chan response, 1)

	select {
	case <-t.closed:
		return nil, fmt.Errorf("%w: %v", common.ErrTranscode, errClosed)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", common.ErrTranscode, ctx.Err())
	case t.reqs <- request{ID: id, ImageData: raw, FileName: fileName, reply: reply}:
	}

	var resp response
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", common.ErrTranscode, ctx.Err())
	case resp = <-reply:
	}

	if resp.ID != id {
		return nil, fmt.Errorf("%w: response %d for request %d", common.ErrTranscode, resp.ID, id)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", common.ErrTranscode, resp.Error)
	}
	return collect(resp.Result)
}

// collect requires exactly one variant per tier.
func collect(wr *workerResult) (*Result, error) {
	if wr == nil {
		return nil, fmt.Errorf("%w: empty result", common.ErrTranscode)
	}

	var res Result
	var haveFull, haveThumb bool
	for _, v := range wr.Variants {
		out := Variant{Data: v.Blob, MimeType: v.Type, Width: v.Width, Height: v.Height, Tier: v.Tier}
		switch {
		case v.Tier == TierFull && !haveFull:
			res.Full, haveFull = out, true
		case v.Tier == TierThumbnail && !haveThumb:
			res.Thumbnail, haveThumb = out, true
		default:
			return nil, fmt.Errorf("%w: unexpected variant %q", common.ErrTranscode, v.Tier)
		}
	}
	if !haveFull || !haveThumb {
		return nil, fmt.Errorf("%w: missing variant", common.ErrTranscode)
	}
	return &res, nil
}

// Close stops the worker. Pending and later calls fail with ErrTranscode.
func (t *Transcoder) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.mu.Lock()
		close(t.reqs)
		t.mu.Unlock()
	})
}
