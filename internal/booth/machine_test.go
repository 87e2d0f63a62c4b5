package booth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/camera"
	"github.com/dmitrijs2005/guestlens/internal/capture"
	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"
)

const tick = time.Second

type countingCapturer struct {
	calls atomic.Int32
	frame *capture.Frame
	err   error
}

func (c *countingCapturer) Capture(h *camera.Handle) (*capture.Frame, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	if h == nil {
		return nil, common.ErrNotReady
	}
	return c.frame, nil
}

type recordingSaver struct {
	mu     sync.Mutex
	frames []*capture.Frame
	err    error
}

func (s *recordingSaver) Save(_ context.Context, f *capture.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSaver) saved() []*capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*capture.Frame(nil), s.frames...)
}

type trackedTimer struct {
	clock.Timer
	stopped atomic.Bool
}

func (t *trackedTimer) Stop() bool {
	t.stopped.Store(true)
	return t.Timer.Stop()
}

// recordingClock counts timers that were still live when a new one started.
type recordingClock struct {
	*clocktesting.FakeClock

	mu       sync.Mutex
	timers   []*trackedTimer
	overlaps int
}

func (c *recordingClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		if !t.stopped.Load() {
			c.overlaps++
		}
	}
	tt := &trackedTimer{Timer: c.FakeClock.NewTimer(d)}
	c.timers = append(c.timers, tt)
	return tt
}

func (c *recordingClock) stats() (created, overlaps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers), c.overlaps
}

type harness struct {
	m       *Machine
	clk     *recordingClock
	session *camera.Session
	device  *camera.VirtualDevice
	events  chan Event
	cancel  context.CancelFunc
}

func newHarness(t *testing.T, capturer FrameCapturer, saver Saver, cfg Config) *harness {
	t.Helper()
	return newHarnessWithDevice(t, camera.NewVirtualDevice(), capturer, saver, cfg)
}

func newHarnessWithDevice(t *testing.T, device *camera.VirtualDevice, capturer FrameCapturer, saver Saver, cfg Config) *harness {
	t.Helper()

	h := &harness{
		clk:    &recordingClock{FakeClock: clocktesting.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
		device: device,
		events: make(chan Event, 256),
	}
	h.session = camera.NewSession(device, 32, 24, logging.Nop())
	h.m = New(h.session, capturer, saver, cfg, logging.Nop(),
		WithClock(h.clk),
		WithListener(func(e Event) { h.events <- e }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		h.m.Wait()
	})

	h.waitState(t, StateIdle)
	return h
}

func (h *harness) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-h.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (h *harness) waitFor(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	for {
		if e := h.next(t); match(e) {
			return e
		}
	}
}

func (h *harness) waitState(t *testing.T, s State) Event {
	t.Helper()
	return h.waitFor(t, func(e Event) bool { return e.Kind == EventState && e.State == s })
}

func (h *harness) waitKind(t *testing.T, k EventKind) Event {
	t.Helper()
	return h.waitFor(t, func(e Event) bool { return e.Kind == k })
}

// advance steps the clock n ticks, waiting for the machine to observe each.
func (h *harness) advance(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		h.clk.Step(tick)
		h.waitKind(t, EventTick)
	}
}

func testConfig() Config {
	return Config{CaptureCountdown: 5, ReviewCountdown: 9, Tick: tick}
}

func testFrame() *capture.Frame {
	return &capture.Frame{Width: 32, Height: 24, Data: []byte{0xff, 0xd8}, MimeType: capture.MimeJPEG}
}

func TestMachine_CountdownCapturesExactlyOnce(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	saver := &recordingSaver{}
	h := newHarness(t, capt, saver, testConfig())

	h.m.Tap()
	h.waitState(t, StateArming)
	e := h.waitState(t, StateCountingDown)
	assert.Equal(t, 5, e.Remaining)

	h.advance(t, 4)
	assert.Equal(t, int32(0), capt.calls.Load())

	h.clk.Step(tick)
	e = h.waitState(t, StateReviewing)
	assert.Equal(t, 9, e.Remaining)
	assert.Equal(t, int32(1), capt.calls.Load())
	assert.Nil(t, h.session.Handle(), "stream released while reviewing")

	h.m.Save()
	h.waitState(t, StateSaving)
	h.waitState(t, StateIdle)
	h.waitKind(t, EventSaved)
	h.m.Wait()

	require.Len(t, saver.saved(), 1)
	assert.Same(t, capt.frame, saver.saved()[0])
	assert.NotNil(t, h.session.Handle(), "camera re-acquired after save")
	assert.Equal(t, int32(1), capt.calls.Load())
}

func TestMachine_ReviewExpirySavesLikeManualSave(t *testing.T) {
	run := func(t *testing.T, manual bool) ([]State, *capture.Frame) {
		capt := &countingCapturer{frame: testFrame()}
		saver := &recordingSaver{}
		h := newHarness(t, capt, saver, testConfig())

		h.m.Tap()
		h.waitState(t, StateCountingDown)
		h.advance(t, 5)
		h.waitState(t, StateReviewing)

		if manual {
			h.m.Save()
		} else {
			h.advance(t, 9)
		}

		var states []State
		states = append(states, h.waitState(t, StateSaving).State)
		states = append(states, h.waitState(t, StateIdle).State)
		h.waitKind(t, EventSaved)
		h.m.Wait()

		require.Len(t, saver.saved(), 1)
		return states, saver.saved()[0]
	}

	manualStates, manualFrame := run(t, true)
	autoStates, autoFrame := run(t, false)

	assert.Equal(t, manualStates, autoStates)
	assert.Equal(t, manualFrame, autoFrame)
}

func TestMachine_ZeroReviewSavesImmediately(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	saver := &recordingSaver{}
	cfg := testConfig()
	cfg.ReviewCountdown = 0
	h := newHarness(t, capt, saver, cfg)

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 5)
	h.waitState(t, StateSaving)
	h.waitState(t, StateIdle)
	h.waitKind(t, EventSaved)
	h.m.Wait()

	assert.Len(t, saver.saved(), 1)
}

func TestMachine_TapIgnoredOutsideIdle(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	h := newHarness(t, capt, &recordingSaver{}, testConfig())

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 2)

	h.m.Tap()
	h.m.Tap()

	h.advance(t, 3)
	h.waitState(t, StateReviewing)
	assert.Equal(t, int32(1), capt.calls.Load())

	created, _ := h.clk.stats()
	assert.Equal(t, 2, created, "one countdown timer and one review timer")
}

func TestMachine_AtMostOneLiveTimer(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	h := newHarness(t, capt, &recordingSaver{}, testConfig())

	for round := 0; round < 3; round++ {
		h.m.Tap()
		h.waitState(t, StateCountingDown)
		h.advance(t, 5)
		h.waitState(t, StateReviewing)
		h.advance(t, 3)
		h.m.Discard()
		h.waitState(t, StateDiscarding)
		h.waitState(t, StateIdle)
	}

	created, overlaps := h.clk.stats()
	assert.Equal(t, 6, created)
	assert.Zero(t, overlaps)

	h.clk.Step(10 * tick)
	assert.False(t, h.clk.HasWaiters(), "no timer left armed after discard")
}

func TestMachine_CaptureNotReadyReturnsToIdle(t *testing.T) {
	capt := &countingCapturer{err: common.ErrNotReady}
	saver := &recordingSaver{}
	h := newHarness(t, capt, saver, testConfig())

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 5)

	h.waitState(t, StateIdle)
	e := h.waitKind(t, EventError)
	require.ErrorIs(t, e.Err, common.ErrNotReady)
	assert.Equal(t, "camera not ready", e.Message)

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	assert.Empty(t, saver.saved())
}

func TestMachine_UnexpectedCaptureErrorIsNotReady(t *testing.T) {
	capt := &countingCapturer{err: errors.New("boom")}
	h := newHarness(t, capt, &recordingSaver{}, Config{CaptureCountdown: 1, ReviewCountdown: 1, Tick: tick})

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 1)

	e := h.waitKind(t, EventError)
	assert.ErrorIs(t, e.Err, common.ErrNotReady)
}

func TestMachine_DiscardReacquiresCamera(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	saver := &recordingSaver{}
	h := newHarness(t, capt, saver, testConfig())
	openedBefore := h.device.Opened()

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 5)
	h.waitState(t, StateReviewing)
	require.Nil(t, h.session.Handle())

	h.m.Discard()
	h.waitState(t, StateDiscarding)
	h.waitState(t, StateIdle)

	assert.NotNil(t, h.session.Handle())
	assert.Equal(t, openedBefore+1, h.device.Opened())
	assert.Empty(t, saver.saved())
	assert.Equal(t, StateIdle, h.m.Status().State)
}

func TestMachine_SaveFailureReported(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	saver := &recordingSaver{err: common.ErrStorage}
	h := newHarness(t, capt, saver, testConfig())

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 5)
	h.waitState(t, StateReviewing)
	h.m.Save()

	e := h.waitKind(t, EventSaveFailed)
	assert.ErrorIs(t, e.Err, common.ErrStorage)
	assert.Equal(t, "upload failed", e.Message)
}

func TestMachine_SaveOutlivesCancellation(t *testing.T) {
	capt := &countingCapturer{frame: testFrame()}
	release := make(chan struct{})
	var sawCancel atomic.Bool
	saver := SaverFunc(func(ctx context.Context, f *capture.Frame) error {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})
	h := newHarness(t, capt, saver, testConfig())

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.advance(t, 5)
	h.waitState(t, StateReviewing)
	h.m.Save()
	h.waitState(t, StateIdle)

	h.cancel()
	h.waitState(t, StateClosed)
	close(release)
	h.m.Wait()

	assert.False(t, sawCancel.Load())
	h.waitKind(t, EventSaved)
}

func TestMachine_CameraUnavailable(t *testing.T) {
	device := camera.NewVirtualDevice()
	device.Deny = true
	capt := &countingCapturer{frame: testFrame()}

	h := &harness{
		clk:    &recordingClock{FakeClock: clocktesting.NewFakeClock(time.Now())},
		device: device,
		events: make(chan Event, 64),
	}
	h.session = camera.NewSession(device, 32, 24, logging.Nop())
	h.m = New(h.session, capt, &recordingSaver{}, testConfig(), logging.Nop(),
		WithClock(h.clk), WithListener(func(e Event) { h.events <- e }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.m.Run(ctx) }()

	e := h.waitKind(t, EventError)
	assert.Equal(t, "camera unavailable", e.Message)
	h.waitState(t, StateIdle)

	h.m.Tap()
	e = h.waitKind(t, EventError)
	assert.ErrorIs(t, e.Err, common.ErrPermission)
	assert.Equal(t, StateIdle, h.m.Status().State)
	assert.Equal(t, int32(0), capt.calls.Load())

	h.m.Close()
	h.waitState(t, StateClosed)
}

func TestMachine_FlashAndFlip(t *testing.T) {
	h := newHarness(t, &countingCapturer{frame: testFrame()}, &recordingSaver{}, testConfig())

	h.m.ToggleFlash()
	e := h.waitKind(t, EventFlash)
	assert.Equal(t, "flash on", e.Message)
	assert.True(t, h.m.Status().Flash)

	h.m.Flip()
	e = h.waitFor(t, func(e Event) bool { return e.Kind == EventFacing || e.Kind == EventError })
	assert.Equal(t, EventFacing, e.Kind)
	assert.Equal(t, camera.FacingUser, h.session.Facing())

	// the user-facing virtual camera has no torch
	assert.False(t, h.session.Flash())
	h.m.ToggleFlash()
	e = h.waitKind(t, EventError)
	assert.ErrorIs(t, e.Err, common.ErrCapability)
	assert.Equal(t, "flash not supported on this camera", e.Message)
}

func TestMachine_FlipRoundTripKeepsFlash(t *testing.T) {
	h := newHarness(t, &countingCapturer{frame: testFrame()}, &recordingSaver{}, testConfig())

	h.m.ToggleFlash()
	h.waitKind(t, EventFlash)

	h.m.Flip()
	h.waitKind(t, EventFacing)
	assert.False(t, h.m.Status().Flash)

	h.m.Flip()
	h.waitKind(t, EventFacing)
	assert.Equal(t, camera.FacingEnvironment, h.session.Facing())
	assert.True(t, h.session.Flash())
	assert.True(t, h.m.Status().Flash)
}

func TestMachine_CloseReleasesCamera(t *testing.T) {
	h := newHarness(t, &countingCapturer{frame: testFrame()}, &recordingSaver{}, testConfig())

	h.m.Tap()
	h.waitState(t, StateCountingDown)
	h.m.Close()
	h.waitState(t, StateClosed)

	assert.Nil(t, h.session.Handle())
	assert.False(t, h.clk.HasWaiters())

	// commands after close do not block
	h.m.Tap()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "counting_down", StateCountingDown.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "save_failed", EventSaveFailed.String())
}
