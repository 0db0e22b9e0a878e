// Package recording drives a capture-to-artifact session through its state
// machine: Idle, Countdown, Recording, Finalizing and back to Idle for live
// sessions, Idle through Processing for uploaded files. All exit paths funnel
// through one teardown routine that runs exactly once per session.
package recording

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/framecast/framecast/internal/capture"
	"github.com/framecast/framecast/internal/config"
	"github.com/framecast/framecast/internal/encoder"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/overlay"
	"github.com/framecast/framecast/internal/render"
)

var (
	// ErrSessionActive is returned when a start request arrives while a
	// session is already past Idle. Callers treat it as a no-op.
	ErrSessionActive = errors.New("session already active")
	// ErrNoSession is returned when a stop request finds nothing running.
	ErrNoSession = errors.New("no session in progress")
	// ErrCancelled is the session result when a stop arrives before any
	// frame was recorded.
	ErrCancelled = errors.New("session cancelled before recording")
)

// frameSource is the part of a capture source the controller drives.
type frameSource interface {
	Frames() io.Reader
	FrameBytes() int
	PID() int
	Stop()
}

// frameEncoder is the part of an encoder session the controller drives.
type frameEncoder interface {
	WriteFrame(frame []byte) error
	PID() int
	Close() error
}

// Seams for tests; production wiring goes through capture and encoder.
var (
	openCameraSource = func(s *capture.Session, c capture.Constraints) (frameSource, error) {
		return s.StartCamera(c)
	}
	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		return encoder.Open(o)
	}
	openUploadDecode = func(path string, width, height, fps int) (io.ReadCloser, error) {
		return capture.DecodeFrames(path, width, height, fps)
	}
	openUploadSource = func(s *capture.Session, path string) (*capture.Source, error) {
		return s.StartFromFile(path)
	}
)

// StartOptions configure one live recording session.
type StartOptions struct {
	Tier        models.QualityTier
	Orientation models.Orientation
	Device      string
	WithAudio   bool
	AudioDevice string
	FPS         int

	Countdown    int
	TickInterval time.Duration // defaults to one second
	MaxDuration  time.Duration // hard ceiling, auto-finalizes when reached

	Overlay   image.Image
	Layers    []models.TextLayer
	Watermark string

	// OverlayLoader, when Overlay is nil, is retried in the background for
	// the lifetime of the session; the pipeline picks the asset up as soon
	// as a retry resolves it.
	OverlayLoader     *overlay.Loader
	OverlayRetryEvery time.Duration // defaults to two seconds

	Prober encoder.Prober

	// OnCountdown is called once per remaining second during the countdown.
	OnCountdown func(remaining int)

	// OnAudioDegraded is called when the session falls back to video-only
	// because the audio input could not be wired into the encoder.
	OnAudioDegraded func(err error)
}

// ProcessOptions configure one uploaded-file export.
type ProcessOptions struct {
	Tier      models.QualityTier
	FPS       int
	Overlay   image.Image
	Layers    []models.TextLayer
	Watermark string
	Prober    encoder.Prober

	// OnProgress receives the number of frames written so far.
	OnProgress func(frames int)

	// OnAudioDegraded is called when the export is retried video-only
	// after an encode including the source audio failed.
	OnAudioDegraded func(err error)
}

// run is the per-session mutable state. A fresh run is allocated for every
// session so the finalize-once guard can never leak across sessions.
type run struct {
	src      frameSource
	enc      frameEncoder
	codec    encoder.CodecOption
	profile  models.QualityProfile
	opts     StartOptions
	tmpPath  string
	started  time.Time
	capTimer *time.Timer
	cancel   context.CancelFunc

	loopDone    chan struct{}
	loopStarted bool // guarded by Controller.mu
	loopFrames  int
	loopErr     error

	finalizeOnce sync.Once
	done         chan struct{}
	artifact     *models.ExportArtifact
	err          error
}

// Controller owns the session state machine.
type Controller struct {
	cfg     *config.Config
	session *capture.Session

	mu      sync.Mutex
	state   models.RecordingState
	current *run
	// last keeps the most recently finished run so Stop and Wait can still
	// hand out its result after an auto-finalize (duration ceiling, stream
	// end) races them back to Idle. Cleared on the next Start.
	last *run
}

// New creates an idle controller.
func New(cfg *config.Config, session *capture.Session) *Controller {
	return &Controller{cfg: cfg, session: session, state: models.StateIdle}
}

// State returns the current state.
func (c *Controller) State() models.RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status reports the in-process session status.
func (c *Controller) Status() models.RecordingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := models.RecordingStatus{State: c.state, Mode: c.session.Mode()}
	if c.current != nil {
		status.Tier = c.current.profile.Tier
		if !c.current.started.IsZero() {
			status.StartTime = c.current.started
			status.Elapsed = time.Since(c.current.started)
		}
	}
	return status
}

// setState transitions the state machine and mirrors the state to disk.
func (c *Controller) setState(s models.RecordingState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	writeState(s)
}

// Start runs the countdown, opens camera and encoder, and enters Recording.
// It returns once recording is underway; the frame loop keeps running in the
// background until Stop, the duration ceiling, or end of stream. Starting
// while a session is active is rejected with ErrSessionActive.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	profile, err := models.ProfileFor(opts.Tier)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != models.StateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	cctx, cancel := context.WithCancel(ctx)
	r := &run{
		opts:     opts,
		profile:  profile,
		cancel:   cancel,
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.current = r
	c.last = nil
	c.state = models.StateCountdown
	c.mu.Unlock()
	writeState(models.StateCountdown)

	if err := c.countdown(cctx, opts); err != nil {
		c.abort(r, err)
		return err
	}

	if err := c.openPipeline(r); err != nil {
		c.abort(r, err)
		return err
	}

	if cctx.Err() != nil {
		// A stop raced the pipeline setup; unwind what was just opened.
		r.src.Stop()
		r.enc.Close()
		os.Remove(r.tmpPath)
		return ErrCancelled
	}

	r.started = time.Now()
	c.setState(models.StateRecording)
	writePID(config.CapturePIDFile, r.src.PID())
	writePID(config.EncoderPIDFile, r.enc.PID())
	os.WriteFile(config.StartTimeFile, []byte(r.started.Format(time.RFC3339)), 0644)

	if opts.MaxDuration > 0 {
		r.capTimer = time.AfterFunc(opts.MaxDuration, func() {
			c.finalize(r)
		})
	}

	c.mu.Lock()
	r.loopStarted = true
	c.mu.Unlock()
	go c.frameLoop(r)
	return nil
}

// countdown ticks down to zero, honoring cancellation.
func (c *Controller) countdown(ctx context.Context, opts StartOptions) error {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	for remaining := opts.Countdown; remaining > 0; remaining-- {
		if opts.OnCountdown != nil {
			opts.OnCountdown(remaining)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil
}

// openPipeline opens the capture source, picks a codec, and starts the
// encoder writing to a temp file.
func (c *Controller) openPipeline(r *run) error {
	opts := r.opts

	src, err := openCameraSource(c.session, capture.Constraints{
		Device:      opts.Device,
		Orientation: opts.Orientation,
		Profile:     r.profile,
		FPS:         opts.FPS,
		WithAudio:   opts.WithAudio,
		AudioDevice: opts.AudioDevice,
	})
	if err != nil {
		return err
	}
	r.src = src

	codec, err := c.selectCodec(opts.Prober)
	if err != nil {
		src.Stop()
		return err
	}
	r.codec = codec

	tmp, err := tempOutput(codec.Container)
	if err != nil {
		src.Stop()
		return err
	}
	r.tmpPath = tmp

	encOpts := encoder.Options{
		Codec:       codec,
		Profile:     r.profile,
		Orientation: opts.Orientation,
		FPS:         opts.FPS,
		OutPath:     tmp,
	}
	if opts.WithAudio {
		encOpts.Audio = encoder.AudioDevice
		encOpts.AudioDeviceName = opts.AudioDevice
	}

	enc, err := openEncoder(encOpts)
	if err != nil && encOpts.Audio != encoder.AudioNone {
		// Audio input could not be wired; record video-only rather than
		// failing the session.
		if opts.OnAudioDegraded != nil {
			opts.OnAudioDegraded(err)
		}
		encOpts.Audio = encoder.AudioNone
		encOpts.AudioDeviceName = ""
		enc, err = openEncoder(encOpts)
	}
	if err != nil {
		src.Stop()
		os.Remove(tmp)
		return err
	}
	r.enc = enc
	return nil
}

func (c *Controller) selectCodec(p encoder.Prober) (encoder.CodecOption, error) {
	if p == nil {
		p = encoder.NewFFmpegProber()
	}
	return encoder.SelectCodec(p, encoder.DefaultFallbacks)
}

// frameLoop composites captured frames into the encoder until the stream
// ends, then finalizes. Stop and the duration ceiling end the stream by
// stopping the capture source, so every exit converges here.
func (c *Controller) frameLoop(r *run) {
	w, h := r.profile.Dimensions(r.opts.Orientation)
	pipeline := render.NewPipeline(w, h, r.opts.Overlay, r.opts.Layers, r.opts.Watermark)

	if r.opts.Overlay == nil && r.opts.OverlayLoader != nil {
		go c.retryOverlay(r, pipeline)
	}

	frames, err := render.Export(context.Background(), r.src.Frames(), pipeline, r.enc)
	r.loopFrames = frames
	r.loopErr = err
	close(r.loopDone)

	c.finalize(r)
}

// retryOverlay re-attempts the overlay load while the session records and
// swaps the resolved asset into the pipeline. An overlay that never resolves
// leaves the session recording without one.
func (c *Controller) retryOverlay(r *run, pipeline *render.Pipeline) {
	every := r.opts.OverlayRetryEvery
	if every <= 0 {
		every = 2 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.loopDone:
			return
		case <-ticker.C:
			r.opts.OverlayLoader.Retry(context.Background())
			if a := r.opts.OverlayLoader.Asset(); a != nil {
				if img := a.Select(r.opts.Orientation); img != nil {
					pipeline.SetOverlay(img)
					return
				}
			}
		}
	}
}

// Stop ends the active recording and waits for the artifact. Safe to call
// from any goroutine; concurrent calls all get the same result. A Stop that
// arrives after the session finalized on its own (duration ceiling, stream
// end) returns the finished session's result rather than ErrNoSession.
func (c *Controller) Stop() (*models.ExportArtifact, error) {
	c.mu.Lock()
	r := c.current
	if r == nil {
		r = c.last
	}
	c.mu.Unlock()

	if r == nil {
		return nil, ErrNoSession
	}

	c.finalize(r)
	<-r.done
	return r.artifact, r.err
}

// Wait blocks until the current session ends and returns its artifact. Like
// Stop, it still returns the result of a session that already finished.
func (c *Controller) Wait() (*models.ExportArtifact, error) {
	c.mu.Lock()
	r := c.current
	if r == nil {
		r = c.last
	}
	c.mu.Unlock()

	if r == nil {
		return nil, ErrNoSession
	}
	<-r.done
	return r.artifact, r.err
}

// finalize is the single teardown routine. Every exit path calls it; the
// once guard makes the transition to Idle happen exactly one time no matter
// how many triggers race.
func (c *Controller) finalize(r *run) {
	r.finalizeOnce.Do(func() {
		c.setState(models.StateFinalizing)

		r.cancel()
		if r.capTimer != nil {
			r.capTimer.Stop()
		}

		c.mu.Lock()
		started := r.loopStarted
		c.mu.Unlock()

		var closeErr error
		if r.enc != nil {
			// Ending the capture stream makes the frame loop see EOF.
			r.src.Stop()
			if started {
				<-r.loopDone
			}
			closeErr = r.enc.Close()
		}

		switch {
		case r.enc == nil:
			r.err = ErrCancelled
		case !started:
			// A stop raced the pipeline setup; nothing was recorded.
			r.err = ErrCancelled
			os.Remove(r.tmpPath)
		case r.loopErr != nil:
			r.err = r.loopErr
			os.Remove(r.tmpPath)
		case closeErr != nil:
			r.err = closeErr
			os.Remove(r.tmpPath)
		default:
			r.artifact, r.err = c.publish(r)
		}

		c.mu.Lock()
		c.state = models.StateIdle
		c.current = nil
		c.last = r
		c.mu.Unlock()
		clearSessionFiles()

		close(r.done)
	})
}

// abort unwinds a session that failed before Recording was entered.
func (c *Controller) abort(r *run, err error) {
	r.finalizeOnce.Do(func() {
		r.cancel()
		if r.src != nil {
			r.src.Stop()
		}
		if r.tmpPath != "" {
			os.Remove(r.tmpPath)
		}
		r.err = err

		c.mu.Lock()
		c.state = models.StateIdle
		c.current = nil
		c.last = r
		c.mu.Unlock()
		clearSessionFiles()

		close(r.done)
	})
}

// publish moves the finished temp file into the exports directory under the
// campaign naming scheme and describes it as an artifact.
func (c *Controller) publish(r *run) (*models.ExportArtifact, error) {
	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return nil, err
	}

	name := models.ArtifactFilename(c.cfg.AppName, c.cfg.Campaign.Title,
		r.profile.Tier, r.opts.Orientation.String(), r.codec.Container)
	finalPath := filepath.Join(c.cfg.OutputDir, name)

	if err := os.Rename(r.tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("publishing artifact: %w", err)
	}
	os.WriteFile(config.ArtifactFile, []byte(finalPath), 0644)

	fps := r.opts.FPS
	if fps <= 0 {
		fps = 30
	}
	w, h := r.profile.Dimensions(r.opts.Orientation)

	return &models.ExportArtifact{
		Path:              finalPath,
		MIMEType:          r.codec.MIMEType,
		SuggestedFilename: name,
		Width:             w,
		Height:            h,
		Orientation:       r.opts.Orientation,
		Duration:          time.Duration(r.loopFrames) * time.Second / time.Duration(fps),
	}, nil
}

// ProcessFile exports an uploaded video file through the same compositing
// pipeline, Idle through Processing and back. It blocks until the artifact
// is ready.
func (c *Controller) ProcessFile(ctx context.Context, path string, opts ProcessOptions) (*models.ExportArtifact, error) {
	profile, err := models.ProfileFor(opts.Tier)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state != models.StateIdle {
		c.mu.Unlock()
		return nil, ErrSessionActive
	}
	c.state = models.StateProcessing
	c.mu.Unlock()
	writeState(models.StateProcessing)

	defer func() {
		c.setState(models.StateIdle)
		clearSessionFiles()
	}()

	src, err := openUploadSource(c.session, path)
	if err != nil {
		return nil, err
	}
	defer c.session.Stop()

	if src.IsImage {
		return nil, &capture.FormatError{Path: path,
			Err: errors.New("still images are exported with the still command")}
	}

	codec, err := c.selectCodec(opts.Prober)
	if err != nil {
		return nil, err
	}

	fps := opts.FPS
	if fps <= 0 {
		fps = c.cfg.Capture.FPS
	}
	w, h := profile.Dimensions(src.Orientation)

	written, tmp, err := c.exportUpload(ctx, path, src.Orientation, w, h, fps, codec, profile, opts, src.HasAudio)
	if err != nil && src.HasAudio && ctx.Err() == nil {
		// The encode including the source audio failed; retry video-only
		// so a bad audio track cannot sink the whole export.
		if opts.OnAudioDegraded != nil {
			opts.OnAudioDegraded(err)
		}
		written, tmp, err = c.exportUpload(ctx, path, src.Orientation, w, h, fps, codec, profile, opts, false)
	}
	if err != nil {
		return nil, err
	}

	r := &run{
		profile:    profile,
		codec:      codec,
		tmpPath:    tmp,
		loopFrames: written,
		opts:       StartOptions{Orientation: src.Orientation, FPS: fps},
	}
	return c.publish(r)
}

// exportUpload runs one decode-composite-encode pass over the uploaded file.
// The decode stream is opened fresh per attempt so a retry replays the file
// from the start.
func (c *Controller) exportUpload(ctx context.Context, path string, o models.Orientation,
	w, h, fps int, codec encoder.CodecOption, profile models.QualityProfile,
	opts ProcessOptions, withAudio bool) (int, string, error) {

	frames, err := openUploadDecode(path, w, h, fps)
	if err != nil {
		return 0, "", err
	}
	defer frames.Close()

	tmp, err := tempOutput(codec.Container)
	if err != nil {
		return 0, "", err
	}

	encOpts := encoder.Options{
		Codec:       codec,
		Profile:     profile,
		Orientation: o,
		FPS:         fps,
		OutPath:     tmp,
	}
	if withAudio {
		encOpts.Audio = encoder.AudioFile
		encOpts.AudioPath = path
	}

	enc, err := openEncoder(encOpts)
	if err != nil {
		os.Remove(tmp)
		return 0, "", err
	}

	pipeline := render.NewPipeline(w, h, opts.Overlay, opts.Layers, opts.Watermark)
	sink := render.FrameSink(enc)
	if opts.OnProgress != nil {
		sink = &progressSink{next: enc, fn: opts.OnProgress}
	}

	written, exportErr := render.Export(ctx, frames, pipeline, sink)
	closeErr := enc.Close()

	if exportErr != nil {
		os.Remove(tmp)
		return 0, "", exportErr
	}
	if closeErr != nil {
		os.Remove(tmp)
		return 0, "", closeErr
	}
	return written, tmp, nil
}

// progressSink counts frames on their way to the encoder.
type progressSink struct {
	next   render.FrameSink
	fn     func(frames int)
	frames int
}

func (p *progressSink) WriteFrame(frame []byte) error {
	if err := p.next.WriteFrame(frame); err != nil {
		return err
	}
	p.frames++
	p.fn(p.frames)
	return nil
}

// tempOutput creates the encoder's scratch output file.
func tempOutput(container string) (string, error) {
	f, err := os.CreateTemp("", "framecast-*."+container)
	if err != nil {
		return "", err
	}
	f.Close()
	return f.Name(), nil
}
