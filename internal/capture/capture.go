package capture

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/framecast/framecast/internal/models"
)

// AccessError reports that the camera or microphone could not be opened
// (permission denied, no device). Callers degrade to an idle retry state.
type AccessError struct {
	Device string
	Err    error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access capture device %q: %v", e.Device, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// FormatError reports that a supplied file is not a supported media type.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported media file %q: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Constraints describe the capture the camera should attempt. The requested
// resolution follows the current device orientation: tall for portrait, wide
// for landscape.
type Constraints struct {
	Device      string
	Orientation models.Orientation
	Profile     models.QualityProfile
	FPS         int
	WithAudio   bool
	AudioDevice string
}

// Source is one open capture source: either a live camera stream decoded to
// raw frames, or an uploaded video/image file. Only one Source may be open at
// a time; Stop is idempotent and releases the hardware handle exactly once.
type Source struct {
	Mode        models.CaptureMode
	Orientation models.Orientation
	Width       int
	Height      int
	FPS         float64
	HasAudio    bool
	AudioDevice string

	// Upload mode only.
	Path     string
	Duration float64
	IsImage  bool

	cmd      *exec.Cmd
	frames   io.ReadCloser
	stopOnce sync.Once
}

// Frames returns the raw RGBA frame stream for a camera source. Each frame is
// exactly Width*Height*4 bytes. Returns nil for upload sources.
func (s *Source) Frames() io.Reader {
	return s.frames
}

// FrameBytes returns the size of one raw frame in bytes.
func (s *Source) FrameBytes() int {
	return s.Width * s.Height * 4
}

// PID returns the capture process ID, or 0 for upload sources.
func (s *Source) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop releases the source. Safe to call any number of times from any exit
// path; only the first call releases resources.
//
// The process is signalled and reaped before the frames pipe is closed: a
// frame loop blocked on the pipe must see the stream end with EOF, not a
// closed-pipe error.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		if s.cmd != nil && s.cmd.Process != nil {
			// SIGINT first for a clean ffmpeg shutdown, then escalate.
			if err := s.cmd.Process.Signal(syscall.SIGINT); err != nil {
				s.cmd.Process.Kill()
			}
			done := make(chan struct{})
			go func() {
				s.cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(3 * time.Second):
				s.cmd.Process.Kill()
				<-done
			}
		}
		if s.frames != nil {
			s.frames.Close()
		}
	})
}

// Session owns the single active capture source. Starting a new source stops
// and releases the previous one first.
type Session struct {
	mu     sync.Mutex
	active *Source
}

// NewSession creates an empty capture session in Idle mode.
func NewSession() *Session {
	return &Session{}
}

// Mode returns the current capture mode.
func (s *Session) Mode() models.CaptureMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.ModeIdle
	}
	return s.active.Mode
}

// Active returns the currently open source, or nil.
func (s *Session) Active() *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StartCamera opens the live camera at the constrained resolution.
func (s *Session) StartCamera(c Constraints) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	src, err := openCamera(c)
	if err != nil {
		return nil, err
	}

	s.active = src
	return src, nil
}

// StartFromFile opens an uploaded video or image file.
func (s *Session) StartFromFile(path string) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	src, err := openFile(path)
	if err != nil {
		return nil, err
	}

	s.active = src
	return src, nil
}

// Stop releases the active source, if any. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.active != nil {
		s.active.Stop()
		s.active = nil
	}
}
