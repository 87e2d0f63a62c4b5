// Package booth drives the capture flow: arm, count down, capture, review,
// then save or discard and re-arm.
package booth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/camera"
	"github.com/dmitrijs2005/guestlens/internal/capture"
	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/logging"
	"k8s.io/utils/clock"
)

// Camera is the part of camera.Session the machine drives.
type Camera interface {
	Acquire(ctx context.Context, facing camera.FacingMode, flash bool) (*camera.Handle, error)
	Release()
	Handle() *camera.Handle
	SwitchFacing(ctx context.Context) (*camera.Handle, error)
	ToggleFlash() (bool, error)
	Facing() camera.FacingMode
	Flash() bool
}

type FrameCapturer interface {
	Capture(h *camera.Handle) (*capture.Frame, error)
}

// Saver persists a reviewed frame. It runs outside the machine goroutine.
type Saver interface {
	Save(ctx context.Context, f *capture.Frame) error
}

type SaverFunc func(ctx context.Context, f *capture.Frame) error

func (fn SaverFunc) Save(ctx context.Context, f *capture.Frame) error { return fn(ctx, f) }

type Option func(*Machine)

func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithListener registers the event callback. Calls are serialized and must
// not block for long.
func WithListener(fn func(Event)) Option {
	return func(m *Machine) { m.listener = fn }
}

// Machine owns the booth state. All transitions happen on the goroutine
// running Run; other goroutines only post commands.
type Machine struct {
	cam      Camera
	capturer FrameCapturer
	saver    Saver
	cfg      Config
	clock    clock.Clock
	logger   logging.Logger

	cmds chan command
	done chan struct{}

	emitMu   sync.Mutex
	listener func(Event)

	statusMu sync.Mutex
	status   Status

	saves sync.WaitGroup

	state     State
	remaining int
	flash     bool // desired torch state, kept across re-acquires
	frame     *capture.Frame
	timer     clock.Timer
}

func New(cam Camera, capturer FrameCapturer, saver Saver, cfg Config, logger logging.Logger, opts ...Option) *Machine {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	if cfg.CaptureCountdown < 0 {
		cfg.CaptureCountdown = 0
	}
	if cfg.ReviewCountdown < 0 {
		cfg.ReviewCountdown = 0
	}

	m := &Machine{
		cam:      cam,
		capturer: capturer,
		saver:    saver,
		cfg:      cfg,
		clock:    clock.RealClock{},
		logger:   logger,
		cmds:     make(chan command, 8),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Machine) Tap()         { m.post(cmdTap) }
func (m *Machine) Save()        { m.post(cmdSave) }
func (m *Machine) Discard()     { m.post(cmdDiscard) }
func (m *Machine) Flip()        { m.post(cmdFlip) }
func (m *Machine) ToggleFlash() { m.post(cmdFlash) }
func (m *Machine) Close()       { m.post(cmdClose) }

func (m *Machine) post(c command) {
	select {
	case m.cmds <- c:
	case <-m.done:
	}
}

// Status returns the last published state.
func (m *Machine) Status() Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

// Wait blocks until every dispatched save has finished.
func (m *Machine) Wait() {
	m.saves.Wait()
}

// Run acquires the camera and processes commands and timer ticks until Close
// or ctx is done. Saves already dispatched keep running; use Wait.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.done)

	m.acquire(ctx)
	m.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		case c := <-m.cmds:
			m.handle(ctx, c)
			if m.state == StateClosed {
				return nil
			}
		case <-m.timerC():
			m.onTick(ctx)
		}
	}
}

func (m *Machine) handle(ctx context.Context, c command) {
	switch c {
	case cmdTap:
		if m.state != StateIdle {
			m.ignore(ctx, c)
			return
		}
		m.arm(ctx)
	case cmdSave:
		if m.state != StateReviewing {
			m.ignore(ctx, c)
			return
		}
		m.save(ctx)
	case cmdDiscard:
		if m.state != StateReviewing {
			m.ignore(ctx, c)
			return
		}
		m.discard(ctx)
	case cmdFlip:
		if m.state != StateIdle {
			m.ignore(ctx, c)
			return
		}
		m.flip(ctx)
	case cmdFlash:
		if m.state != StateIdle && m.state != StateCountingDown {
			m.ignore(ctx, c)
			return
		}
		m.toggleFlash(ctx)
	case cmdClose:
		m.shutdown()
	}
}

func (m *Machine) ignore(ctx context.Context, c command) {
	m.logger.Debug(ctx, "command ignored", "command", c.String(), "state", m.state.String())
}

func (m *Machine) arm(ctx context.Context) {
	if m.cam.Handle() == nil {
		if err := m.acquire(ctx); err != nil {
			return
		}
	}

	m.setState(StateArming)
	m.remaining = m.cfg.CaptureCountdown
	if m.remaining == 0 {
		m.capture(ctx)
		return
	}
	m.startTimer()
	m.setState(StateCountingDown)
}

func (m *Machine) onTick(ctx context.Context) {
	m.remaining--
	m.emit(Event{Kind: EventTick, State: m.state, Remaining: m.remaining})
	m.publish()

	if m.remaining > 0 {
		m.timer.Reset(m.cfg.Tick)
		return
	}

	m.stopTimer()
	switch m.state {
	case StateCountingDown:
		m.capture(ctx)
	case StateReviewing:
		m.save(ctx)
	}
}

func (m *Machine) capture(ctx context.Context) {
	frame, err := m.capturer.Capture(m.cam.Handle())
	if err != nil {
		if !errors.Is(err, common.ErrNotReady) {
			err = errors.Join(common.ErrNotReady, err)
		}
		m.logger.Warn(ctx, "capture failed", "error", err)
		m.remaining = 0
		m.setState(StateIdle)
		m.fail(err)
		return
	}

	m.logger.Info(ctx, "frame captured", "width", frame.Width, "height", frame.Height, "bytes", len(frame.Data))
	m.frame = frame
	m.cam.Release()

	m.remaining = m.cfg.ReviewCountdown
	if m.remaining == 0 {
		m.setState(StateReviewing)
		m.save(ctx)
		return
	}
	m.startTimer()
	m.setState(StateReviewing)
}

func (m *Machine) save(ctx context.Context) {
	m.stopTimer()
	frame := m.frame
	m.frame = nil
	m.remaining = 0
	m.setState(StateSaving)

	saveCtx := context.WithoutCancel(ctx)
	m.saves.Add(1)
	go func() {
		defer m.saves.Done()
		if err := m.saver.Save(saveCtx, frame); err != nil {
			m.logger.Error(saveCtx, "save failed", "error", err)
			m.emit(Event{Kind: EventSaveFailed, Message: common.UserMessage(err), Err: err})
			return
		}
		m.logger.Info(saveCtx, "photo saved", "captured_at", frame.CapturedAt)
		m.emit(Event{Kind: EventSaved, Message: "photo saved"})
	}()

	m.acquire(ctx)
	m.setState(StateIdle)
}

func (m *Machine) discard(ctx context.Context) {
	m.setState(StateDiscarding)
	m.stopTimer()
	m.frame = nil
	m.remaining = 0
	m.acquire(ctx)
	m.setState(StateIdle)
}

func (m *Machine) flip(ctx context.Context) {
	if _, err := m.cam.SwitchFacing(ctx); err != nil {
		m.fail(err)
		return
	}
	m.publish()
	m.emit(Event{Kind: EventFacing, State: m.state, Message: string(m.cam.Facing())})
}

func (m *Machine) toggleFlash(ctx context.Context) {
	on, err := m.cam.ToggleFlash()
	if err != nil {
		m.logger.Info(ctx, "flash toggle rejected", "error", err)
		m.fail(err)
		return
	}
	m.flash = on
	m.publish()
	msg := "flash off"
	if on {
		msg = "flash on"
	}
	m.emit(Event{Kind: EventFlash, State: m.state, Message: msg})
}

func (m *Machine) shutdown() {
	m.stopTimer()
	m.cam.Release()
	m.frame = nil
	m.remaining = 0
	m.setState(StateClosed)
}

// acquire opens the camera with the current facing and the desired flash.
// On failure the error is reported and the machine state is left as is.
func (m *Machine) acquire(ctx context.Context) error {
	if _, err := m.cam.Acquire(ctx, m.cam.Facing(), m.flash); err != nil {
		m.logger.Warn(ctx, "camera unavailable", "error", err)
		m.fail(err)
		return err
	}
	return nil
}

func (m *Machine) startTimer() {
	m.stopTimer()
	m.timer = m.clock.NewTimer(m.cfg.Tick)
}

func (m *Machine) stopTimer() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
}

func (m *Machine) timerC() <-chan time.Time {
	if m.timer == nil {
		return nil
	}
	return m.timer.C()
}

func (m *Machine) setState(s State) {
	m.state = s
	m.publish()
	m.emit(Event{Kind: EventState, State: s, Remaining: m.remaining})
}

func (m *Machine) fail(err error) {
	m.emit(Event{Kind: EventError, State: m.state, Message: common.UserMessage(err), Err: err})
}

func (m *Machine) publish() {
	st := Status{State: m.state, Remaining: m.remaining, Facing: m.cam.Facing(), Flash: m.cam.Flash()}
	m.statusMu.Lock()
	m.status = st
	m.statusMu.Unlock()
}

func (m *Machine) emit(e Event) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	if m.listener != nil {
		m.listener(e)
	}
}
