// Package cli wires the capture pipeline together and drives it from an
// interactive booth prompt.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/booth"
	"github.com/dmitrijs2005/guestlens/internal/camera"
	"github.com/dmitrijs2005/guestlens/internal/capture"
	"github.com/dmitrijs2005/guestlens/internal/common"
	"github.com/dmitrijs2005/guestlens/internal/config"
	"github.com/dmitrijs2005/guestlens/internal/dbx"
	"github.com/dmitrijs2005/guestlens/internal/filex"
	"github.com/dmitrijs2005/guestlens/internal/logging"
	"github.com/dmitrijs2005/guestlens/internal/metrics"
	"github.com/dmitrijs2005/guestlens/internal/repositories/repomanager"
	"github.com/dmitrijs2005/guestlens/internal/services"
	"github.com/dmitrijs2005/guestlens/internal/storage"
	"github.com/dmitrijs2005/guestlens/internal/transcode"
	"github.com/dmitrijs2005/guestlens/internal/upload"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
)

// maxUploadBytes caps files read by the upload command.
const maxUploadBytes = 32 << 20

const logFileName = "booth.log"

// Test seams for the terminal.
var (
	stdin      io.Reader = os.Stdin
	isTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	logFile *os.File

	registry *prometheus.Registry
	metrics  *metrics.Pipeline

	db          *sql.DB
	store       storage.ObjectStore
	closeStore  func() error
	transcoder  *transcode.Transcoder
	coordinator *upload.Coordinator
	photos      *services.PhotoService
	albums      *services.AlbumService

	session *camera.Session
	machine *booth.Machine
}

// NewApp builds every pipeline component from c and applies the metadata
// store migrations. Logs go to a file in the data directory so that they do
// not interleave with the prompt.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	dataDir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir error: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dataDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("log file error: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logging.New(c.LogLevel, logFile),
		logFile:  logFile,
		registry: prometheus.NewRegistry(),
	}
	app.metrics = metrics.NewPipeline(app.registry)

	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := dbx.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.store, app.closeStore, err = newStore(ctx, c)
	if err != nil {
		return fmt.Errorf("storage init error: %w", err)
	}

	app.transcoder = transcode.New(app.logger, transcode.WithObserver(app.metrics))
	app.coordinator = upload.NewCoordinator(app.store, rm.Photos(db), app.transcoder, app.logger,
		upload.WithObserver(app.metrics),
		upload.WithTimeout(c.UploadTimeout),
	)
	app.photos = services.NewPhotoService(db, rm, app.store, app.logger, app.metrics)
	app.albums = services.NewAlbumService(db, rm, app.logger, app.metrics)

	app.session = camera.NewSession(camera.NewVirtualDevice(), c.CameraWidth, c.CameraHeight, app.logger)
	app.session.SetFacing(camera.ParseFacing(c.CameraFacing))

	app.machine = booth.New(
		app.session,
		capture.NewCapturer(c.JPEGQuality),
		app.coordinator.Saver(c.OwnerID),
		booth.Config{
			CaptureCountdown: c.CaptureCountdown,
			ReviewCountdown:  c.ReviewCountdown,
			Tick:             c.CountdownTick,
		},
		app.logger,
		booth.WithListener(app.onEvent),
	)
	return nil
}

// newStore returns the configured object store and its close function.
func newStore(ctx context.Context, c *config.Config) (storage.ObjectStore, func() error, error) {
	noop := func() error { return nil }

	switch c.StorageBackend {
	case "", "memory":
		return storage.NewMemoryStore(c.PublicBaseURL), noop, nil
	case "s3":
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:        c.S3Region,
			AccessKey:     c.S3RootUser,
			SecretKey:     c.S3RootPassword,
			Bucket:        c.S3Bucket,
			BaseEndpoint:  c.S3BaseEndpoint,
			PublicBaseURL: c.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "gcs":
		if c.GCSBucket == "" {
			return nil, nil, errors.New("gcs bucket is not set")
		}
		client, err := storage.NewGCSClient(ctx, "")
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewGCSStore(client, c.GCSBucket, c.PublicBaseURL)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startMetricsServer(ctx context.Context) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(app.registry))

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "metrics server error", "error", err)
		}
	}()
	app.logger.Info(ctx, "metrics server started", "addr", app.config.MetricsAddr)
	return srv
}

// Run starts the state machine and the prompt, and blocks until the user
// exits, stdin ends or a termination signal arrives. Pending saves are
// awaited before the components are closed.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)
	app.logger.Info(ctx, "Starting booth...")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "state machine stopped", "error", err)
		}
	}()

	var srv *http.Server
	if app.config.MetricsAddr != "" {
		srv = app.startMetricsServer(ctx)
	}

	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		runREPL(ctx, app, app.statusLine, bufio.NewScanner(stdin), isTerminal())
	}()

	select {
	case <-replDone:
	case <-ctx.Done():
	}

	app.machine.Close()
	wg.Wait()
	app.machine.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn(ctx, "metrics server shutdown", "error", err)
		}
	}

	app.logger.Info(ctx, "Booth stopped")
	return app.Close()
}

// Close releases the camera and closes the transcoder, store, database and
// log file. It is safe to call on a partially built App.
func (app *App) Close() error {
	var errs []error
	if app.session != nil {
		app.session.Release()
	}
	if app.transcoder != nil {
		app.transcoder.Close()
	}
	if app.closeStore != nil {
		errs = append(errs, app.closeStore())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.logFile != nil {
		errs = append(errs, app.logFile.Close())
	}
	return errors.Join(errs...)
}

func (app *App) Tap()         { app.machine.Tap() }
func (app *App) Save()        { app.machine.Save() }
func (app *App) Discard()     { app.machine.Discard() }
func (app *App) Flip()        { app.machine.Flip() }
func (app *App) ToggleFlash() { app.machine.ToggleFlash() }

// Upload runs a local image file through the same transcode and upload path
// as a captured frame.
func (app *App) Upload(ctx context.Context, path string) error {
	data, err := filex.ReadLimited(path, maxUploadBytes)
	if err != nil {
		app.logger.Warn(ctx, "upload read failed", "path", path, "error", err)
		printlnFn("Error:", err)
		return err
	}

	p, err := app.coordinator.UploadFile(ctx, data, filepath.Base(path), app.config.OwnerID)
	if err != nil {
		printlnFn("Error:", common.UserMessage(err))
		return err
	}
	printlnFn("Uploaded", p.ID, p.URL)
	return nil
}

func (app *App) List(ctx context.Context) error {
	list, err := app.photos.List(ctx, app.config.OwnerID)
	if err != nil {
		app.logger.Error(ctx, "list failed", "error", err)
		printlnFn("Error:", common.UserMessage(err))
		return err
	}
	if len(list) == 0 {
		printlnFn("No photos")
		return nil
	}
	for _, p := range list {
		printlnFn(fmt.Sprintf("%s  %s  %s", p.ID, p.CreatedAt.Format(time.DateTime), p.URL))
	}
	return nil
}

func (app *App) AlbumAdd(ctx context.Context, albumID string, photoIDs []string) error {
	res := app.albums.AddPhotos(ctx, albumID, photoIDs)
	printBatch(res, "added")
	return res.Err()
}

func (app *App) Delete(ctx context.Context, photoIDs []string) error {
	if len(photoIDs) == 1 {
		if err := app.photos.Delete(ctx, photoIDs[0]); err != nil {
			printlnFn("Error:", common.UserMessage(err))
			return err
		}
		printlnFn("Photo deleted")
		return nil
	}
	res := app.photos.DeleteMany(ctx, photoIDs)
	printBatch(res, "deleted")
	return res.Err()
}

func printBatch(res upload.BatchResult, verb string) {
	printlnFn(res.Message(verb))
	for _, it := range res.Items {
		if it.Outcome == upload.OutcomeError {
			printlnFn(fmt.Sprintf("  %s: %s", it.Key, common.UserMessage(it.Err)))
		}
	}
}

func (app *App) onEvent(e booth.Event) {
	app.metrics.ObserveBoothEvent(e.Kind.String())
	if line := formatEvent(e); line != "" {
		printlnFn(line)
	}
}

func (app *App) statusLine() string {
	return formatStatus(app.machine.Status())
}

// formatEvent renders a machine event for the prompt. Events with nothing
// to show return "".
func formatEvent(e booth.Event) string {
	switch e.Kind {
	case booth.EventState:
		switch e.State {
		case booth.StateCountingDown:
			return fmt.Sprintf("Get ready... %d", e.Remaining)
		case booth.StateReviewing:
			if e.Remaining == 0 {
				return "Saving..."
			}
			return fmt.Sprintf("Review: save or discard (auto-save in %d)", e.Remaining)
		case booth.StateIdle:
			return "Ready"
		default:
			return ""
		}
	case booth.EventTick:
		if e.State == booth.StateReviewing {
			return fmt.Sprintf("auto-save in %d", e.Remaining)
		}
		return fmt.Sprintf("%d", e.Remaining)
	case booth.EventSaved:
		return "Photo saved"
	case booth.EventSaveFailed, booth.EventError:
		return "Error: " + e.Message
	case booth.EventFlash:
		return e.Message
	case booth.EventFacing:
		return "Camera " + e.Message
	default:
		return ""
	}
}

func formatStatus(s booth.Status) string {
	out := s.State.String()
	if s.Remaining > 0 {
		out = fmt.Sprintf("%s %d", out, s.Remaining)
	}
	out = fmt.Sprintf("%s | %s", out, s.Facing)
	if s.Flash {
		out += " | flash"
	}
	return out
}
