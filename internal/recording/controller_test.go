package recording

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/framecast/framecast/internal/capture"
	"github.com/framecast/framecast/internal/config"
	"github.com/framecast/framecast/internal/encoder"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/overlay"
)

// fakeStream serves preloaded frames, then blocks like a live camera until
// the source is stopped, at which point it reports EOF.
type fakeStream struct {
	mu      sync.Mutex
	buf     []byte
	stopped chan struct{}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if len(s.buf) > 0 {
		n := copy(p, s.buf)
		s.buf = s.buf[n:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	<-s.stopped
	return 0, io.EOF
}

type fakeSource struct {
	stream *fakeStream
	width  int
	height int

	stopOnce sync.Once
	stops    atomic.Int32
}

func newFakeSource(w, h, preloadedFrames int) *fakeSource {
	s := &fakeSource{
		stream: &fakeStream{stopped: make(chan struct{})},
		width:  w,
		height: h,
	}
	s.stream.buf = make([]byte, w*h*4*preloadedFrames)
	return s
}

func (s *fakeSource) Frames() io.Reader { return s.stream }
func (s *fakeSource) FrameBytes() int   { return s.width * s.height * 4 }
func (s *fakeSource) PID() int          { return 0 }
func (s *fakeSource) Stop() {
	s.stopOnce.Do(func() {
		s.stops.Add(1)
		close(s.stream.stopped)
	})
}

type fakeEncoder struct {
	frames atomic.Int32
	closes atomic.Int32

	mu   sync.Mutex
	last []byte
}

func (e *fakeEncoder) WriteFrame(frame []byte) error {
	e.frames.Add(1)
	e.mu.Lock()
	e.last = append(e.last[:0], frame...)
	e.mu.Unlock()
	return nil
}
func (e *fakeEncoder) PID() int { return 0 }
func (e *fakeEncoder) Close() error {
	e.closes.Add(1)
	return nil
}

func (e *fakeEncoder) lastFrame() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.last...)
}

// pipeSource feeds frames through a pipe so tests can deliver them while
// the session records. Stop closes the write end, ending the stream with a
// clean EOF the way a stopped capture process does.
type pipeSource struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	width  int
	height int

	stopOnce sync.Once
	stops    atomic.Int32
}

func newPipeSource(w, h int) *pipeSource {
	pr, pw := io.Pipe()
	return &pipeSource{r: pr, w: pw, width: w, height: h}
}

func (s *pipeSource) Frames() io.Reader { return s.r }
func (s *pipeSource) FrameBytes() int   { return s.width * s.height * 4 }
func (s *pipeSource) PID() int          { return 0 }
func (s *pipeSource) Stop() {
	s.stopOnce.Do(func() {
		s.stops.Add(1)
		s.w.Close()
	})
}

type allProber struct{}

func (allProber) Supports(string) bool { return true }

// stubSession wires the test doubles into the controller seams and restores
// them afterwards.
func stubSession(t *testing.T, src frameSource, enc *fakeEncoder) {
	t.Helper()

	origCam, origEnc := openCameraSource, openEncoder
	t.Cleanup(func() {
		openCameraSource, openEncoder = origCam, origEnc
		clearSessionFiles()
	})

	openCameraSource = func(s *capture.Session, c capture.Constraints) (frameSource, error) {
		return src, nil
	}
	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		return enc, nil
	}
}

func testController(t *testing.T) *Controller {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Campaign.Title = "Launch Party"
	return New(&cfg, capture.NewSession())
}

func startOpts() StartOptions {
	return StartOptions{
		Tier:         models.Tier480p,
		Orientation:  models.Landscape,
		Countdown:    0,
		TickInterval: time.Millisecond,
		Prober:       allProber{},
	}
}

func TestStartWhileActiveRejected(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	if err := c.Start(context.Background(), startOpts()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := c.Start(context.Background(), startOpts()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start() error = %v, want ErrSessionActive", err)
	}

	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	src := newFakeSource(854, 480, 3)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)

	var ticks []int
	opts := startOpts()
	opts.Countdown = 2
	opts.OnCountdown = func(remaining int) { ticks = append(ticks, remaining) }

	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(ticks) != 2 || ticks[0] != 2 || ticks[1] != 1 {
		t.Errorf("countdown ticks = %v, want [2 1]", ticks)
	}
	if got := c.State(); got != models.StateRecording {
		t.Errorf("State() after Start = %v, want recording", got)
	}

	artifact, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if artifact == nil {
		t.Fatal("Stop() returned no artifact")
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Errorf("artifact file missing: %v", err)
	}
	if !strings.HasPrefix(artifact.SuggestedFilename, "framecast-Launch-Party-480p-landscape-") {
		t.Errorf("SuggestedFilename = %q, unexpected shape", artifact.SuggestedFilename)
	}
	if artifact.Width != 854 || artifact.Height != 480 {
		t.Errorf("artifact dimensions = %dx%d, want 854x480", artifact.Width, artifact.Height)
	}

	if got := enc.closes.Load(); got != 1 {
		t.Errorf("encoder closed %d times, want exactly 1", got)
	}
	if got := c.State(); got != models.StateIdle {
		t.Errorf("State() after Stop = %v, want idle", got)
	}
}

func TestConcurrentStopFinalizesOnce(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	if err := c.Start(context.Background(), startOpts()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			artifact, err := c.Stop()
			if err != nil {
				t.Errorf("Stop() error = %v", err)
				return
			}
			if artifact == nil {
				t.Error("Stop() returned no artifact")
			}
		}()
	}
	wg.Wait()

	if got := enc.closes.Load(); got != 1 {
		t.Errorf("encoder closed %d times under concurrent stops, want 1", got)
	}
	if got := src.stops.Load(); got != 1 {
		t.Errorf("capture stopped %d times, want 1", got)
	}
}

func TestDurationCeilingAutoFinalizes(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	opts := startOpts()
	opts.MaxDuration = 20 * time.Millisecond

	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	artifact, err := c.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if artifact == nil {
		t.Fatal("Wait() returned no artifact after the ceiling fired")
	}
	if got := c.State(); got != models.StateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
	if got := enc.closes.Load(); got != 1 {
		t.Errorf("encoder closed %d times, want 1", got)
	}
}

func TestStopAfterCeilingReturnsArtifact(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	opts := startOpts()
	opts.MaxDuration = 20 * time.Millisecond

	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Let the ceiling finalize the session on its own before asking for
	// the result.
	deadline := time.After(2 * time.Second)
	for c.State() != models.StateIdle {
		select {
		case <-deadline:
			t.Fatal("ceiling never finalized the session")
		case <-time.After(time.Millisecond):
		}
	}

	artifact, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop() after auto-finalize error = %v", err)
	}
	if artifact == nil {
		t.Fatal("Stop() after auto-finalize returned no artifact")
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Errorf("artifact file missing: %v", err)
	}

	waited, err := c.Wait()
	if err != nil {
		t.Fatalf("Wait() after auto-finalize error = %v", err)
	}
	if waited != artifact {
		t.Error("Wait() returned a different artifact than Stop()")
	}
	if got := enc.closes.Load(); got != 1 {
		t.Errorf("encoder closed %d times, want 1", got)
	}
}

func TestStopDuringCountdownCancels(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	opts := startOpts()
	opts.Countdown = 100
	opts.TickInterval = 20 * time.Millisecond

	startErr := make(chan error, 1)
	go func() { startErr <- c.Start(context.Background(), opts) }()

	deadline := time.After(2 * time.Second)
	for c.State() != models.StateCountdown {
		select {
		case <-deadline:
			t.Fatal("controller never entered countdown")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := c.Stop(); !errors.Is(err, ErrCancelled) {
		t.Errorf("Stop() during countdown error = %v, want ErrCancelled", err)
	}
	if err := <-startErr; err == nil {
		t.Error("Start() should report the cancelled countdown")
	}
	if got := enc.closes.Load(); got != 0 {
		t.Errorf("encoder touched %d times before recording began, want 0", got)
	}
	if got := c.State(); got != models.StateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
}

func TestOverlayResolvedMidSession(t *testing.T) {
	overlayPath := filepath.Join(t.TempDir(), "frame.png")
	loader := overlay.NewLoader("", overlayPath)
	loader.SetRetryInterval(0)

	src := newPipeSource(854, 480)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	opts := startOpts()
	opts.OverlayLoader = loader
	opts.OverlayRetryEvery = time.Millisecond

	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	frame := make([]byte, src.FrameBytes())
	if _, err := src.w.Write(frame); err != nil {
		t.Fatalf("writing first frame: %v", err)
	}

	// The overlay file appears only after recording has begun; the loader
	// should pick it up and later frames should carry its ink.
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
		img.Pix[i+3] = 255
	}
	f, err := os.Create(overlayPath)
	if err != nil {
		t.Fatalf("creating overlay file: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding overlay: %v", err)
	}
	f.Close()

	center := ((240*854)+427)*4
	deadline := time.After(5 * time.Second)
	for {
		if _, err := src.w.Write(frame); err != nil {
			t.Fatalf("writing frame: %v", err)
		}
		if last := enc.lastFrame(); len(last) > center && last[center] > 200 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("overlay never reached the composited frames")
		case <-time.After(2 * time.Millisecond):
		}
	}

	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestStartDegradesToVideoOnlyWhenAudioFails(t *testing.T) {
	src := newFakeSource(854, 480, 2)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		if o.Audio != encoder.AudioNone {
			return nil, errors.New("pulse device busy")
		}
		return enc, nil
	}

	var degraded atomic.Int32
	c := testController(t)
	opts := startOpts()
	opts.WithAudio = true
	opts.AudioDevice = "default"
	opts.OnAudioDegraded = func(err error) {
		if err == nil {
			t.Error("audio degrade callback ran without an error")
		}
		degraded.Add(1)
	}

	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	artifact, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if artifact == nil {
		t.Fatal("Stop() returned no artifact")
	}
	if got := degraded.Load(); got != 1 {
		t.Errorf("audio degrade callback ran %d times, want 1", got)
	}
	if got := enc.frames.Load(); got != 2 {
		t.Errorf("encoder received %d frames, want 2", got)
	}
}

func TestStopWithoutSession(t *testing.T) {
	c := testController(t)
	if _, err := c.Stop(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop() error = %v, want ErrNoSession", err)
	}
}

func stubUpload(t *testing.T, src *capture.Source, frames []byte, enc *fakeEncoder) {
	t.Helper()

	origSrc, origDec, origEnc := openUploadSource, openUploadDecode, openEncoder
	t.Cleanup(func() {
		openUploadSource, openUploadDecode, openEncoder = origSrc, origDec, origEnc
		clearSessionFiles()
	})

	openUploadSource = func(s *capture.Session, path string) (*capture.Source, error) {
		return src, nil
	}
	openUploadDecode = func(path string, width, height, fps int) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(frames)), nil
	}
	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		return enc, nil
	}
}

func TestProcessFileExportsToEOF(t *testing.T) {
	enc := &fakeEncoder{}
	src := &capture.Source{
		Mode:        models.ModeUpload,
		Orientation: models.Portrait,
		Width:       1080,
		Height:      1920,
	}
	// Three full portrait 480p frames.
	frames := make([]byte, 480*854*4*3)
	stubUpload(t, src, frames, enc)

	c := testController(t)

	var progress []int
	artifact, err := c.ProcessFile(context.Background(), "/tmp/in.mp4", ProcessOptions{
		Tier:       models.Tier480p,
		Prober:     allProber{},
		OnProgress: func(n int) { progress = append(progress, n) },
	})
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	if got := enc.frames.Load(); got != 3 {
		t.Errorf("encoder received %d frames, want 3", got)
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("progress = %v, want [1 2 3]", progress)
	}
	if artifact.Orientation != models.Portrait {
		t.Errorf("artifact orientation = %v, want portrait", artifact.Orientation)
	}
	if artifact.Width != 480 || artifact.Height != 854 {
		t.Errorf("artifact dimensions = %dx%d, want 480x854", artifact.Width, artifact.Height)
	}
	if filepath.Dir(artifact.Path) == os.TempDir() {
		t.Errorf("artifact left in temp dir: %s", artifact.Path)
	}
	if got := c.State(); got != models.StateIdle {
		t.Errorf("State() after ProcessFile = %v, want idle", got)
	}
	if got := enc.closes.Load(); got != 1 {
		t.Errorf("encoder closed %d times, want 1", got)
	}
}

func TestProcessFileRetriesVideoOnlyWhenAudioFails(t *testing.T) {
	enc := &fakeEncoder{}
	src := &capture.Source{
		Mode:        models.ModeUpload,
		Orientation: models.Landscape,
		Width:       1920,
		Height:      1080,
		HasAudio:    true,
	}
	frames := make([]byte, 854*480*4*2)
	stubUpload(t, src, frames, enc)

	var decodes atomic.Int32
	openUploadDecode = func(path string, width, height, fps int) (io.ReadCloser, error) {
		decodes.Add(1)
		return io.NopCloser(bytes.NewReader(frames)), nil
	}
	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		if o.Audio != encoder.AudioNone {
			return nil, errors.New("aac track unreadable")
		}
		return enc, nil
	}

	var degraded atomic.Int32
	c := testController(t)
	artifact, err := c.ProcessFile(context.Background(), "/tmp/in.mp4", ProcessOptions{
		Tier:            models.Tier480p,
		Prober:          allProber{},
		OnAudioDegraded: func(err error) { degraded.Add(1) },
	})
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if artifact == nil {
		t.Fatal("ProcessFile() returned no artifact")
	}
	if got := degraded.Load(); got != 1 {
		t.Errorf("audio degrade callback ran %d times, want 1", got)
	}
	if got := enc.frames.Load(); got != 2 {
		t.Errorf("encoder received %d frames, want 2", got)
	}
	// The decode is replayed from the start of the file on the second pass.
	if got := decodes.Load(); got != 2 {
		t.Errorf("decode opened %d times, want 2", got)
	}
}

// muxFailEncoder accepts the open but rejects every frame, like a muxer that
// chokes on a corrupt audio track partway through.
type muxFailEncoder struct{ fakeEncoder }

func (e *muxFailEncoder) WriteFrame([]byte) error { return errors.New("mux failed") }

func TestProcessFileRetriesAfterAudioMuxFailure(t *testing.T) {
	enc := &fakeEncoder{}
	src := &capture.Source{
		Mode:        models.ModeUpload,
		Orientation: models.Landscape,
		Width:       1920,
		Height:      1080,
		HasAudio:    true,
	}
	frames := make([]byte, 854*480*4*2)
	stubUpload(t, src, frames, enc)

	openEncoder = func(o encoder.Options) (frameEncoder, error) {
		if o.Audio != encoder.AudioNone {
			return &muxFailEncoder{}, nil
		}
		return enc, nil
	}

	var degraded atomic.Int32
	c := testController(t)
	artifact, err := c.ProcessFile(context.Background(), "/tmp/in.mp4", ProcessOptions{
		Tier:            models.Tier480p,
		Prober:          allProber{},
		OnAudioDegraded: func(err error) { degraded.Add(1) },
	})
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if artifact == nil {
		t.Fatal("ProcessFile() returned no artifact")
	}
	if got := degraded.Load(); got != 1 {
		t.Errorf("audio degrade callback ran %d times, want 1", got)
	}
	if got := enc.frames.Load(); got != 2 {
		t.Errorf("video-only pass wrote %d frames, want 2", got)
	}
}

func TestProcessFileRejectsImages(t *testing.T) {
	enc := &fakeEncoder{}
	src := &capture.Source{
		Mode:        models.ModeUpload,
		Orientation: models.Landscape,
		IsImage:     true,
	}
	stubUpload(t, src, nil, enc)

	c := testController(t)
	_, err := c.ProcessFile(context.Background(), "/tmp/in.png", ProcessOptions{
		Tier:   models.Tier480p,
		Prober: allProber{},
	})

	var formatErr *capture.FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("ProcessFile() on image error = %v, want FormatError", err)
	}
}

func TestProcessFileWhileRecordingRejected(t *testing.T) {
	src := newFakeSource(854, 480, 0)
	enc := &fakeEncoder{}
	stubSession(t, src, enc)

	c := testController(t)
	if err := c.Start(context.Background(), startOpts()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	_, err := c.ProcessFile(context.Background(), "/tmp/in.mp4", ProcessOptions{
		Tier: models.Tier480p, Prober: allProber{},
	})
	if !errors.Is(err, ErrSessionActive) {
		t.Errorf("ProcessFile() while recording error = %v, want ErrSessionActive", err)
	}
}

func TestUnknownTierRejected(t *testing.T) {
	c := testController(t)
	if err := c.Start(context.Background(), StartOptions{Tier: "4k"}); err == nil {
		t.Error("Start() with unknown tier should fail")
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	t.Cleanup(clearSessionFiles)

	writeState(models.StateRecording)
	if got := readState(); got != models.StateRecording {
		t.Errorf("readState() = %v, want recording", got)
	}

	writeState(models.StateIdle)
	if got := readState(); got != models.StateIdle {
		t.Errorf("readState() after idle = %v, want idle (file removed)", got)
	}
}
