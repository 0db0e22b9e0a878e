package capture

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/framecast/framecast/internal/models"
)

func TestSource_Stop_Idempotent(t *testing.T) {
	src := &Source{Mode: models.ModeUpload, Path: "/tmp/clip.mp4"}

	// Calling Stop repeatedly on an already-stopped source is a no-op.
	src.Stop()
	src.Stop()
	src.Stop()
}

func TestSession_Mode_Idle(t *testing.T) {
	s := NewSession()

	if s.Mode() != models.ModeIdle {
		t.Errorf("expected idle mode, got %v", s.Mode())
	}

	if s.Active() != nil {
		t.Error("expected no active source")
	}

	// Stop on an idle session is a no-op.
	s.Stop()
}

func TestStartFromFile_Missing(t *testing.T) {
	s := NewSession()

	_, err := s.StartFromFile("/nonexistent/clip.mp4")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("expected *FormatError, got %T", err)
	}

	if s.Mode() != models.ModeIdle {
		t.Error("session must stay idle after a failed start")
	}
}

func TestStartFromFile_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("just some text, definitely not media"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	s := NewSession()
	_, err := s.StartFromFile(path)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected *FormatError for text file, got %v", err)
	}
}

func TestStartFromFile_OrientationFromIntrinsicDimensions(t *testing.T) {
	origProbe := probeMedia
	defer func() { probeMedia = origProbe }()

	tests := []struct {
		name     string
		width    int
		height   int
		expected models.Orientation
	}{
		{"landscape clip", 1920, 1080, models.Landscape},
		{"portrait clip", 1080, 1920, models.Portrait},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("stub"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probeMedia = func(string) (*MediaInfo, error) {
				return &MediaInfo{Width: tt.width, Height: tt.height, FPS: 30, Duration: 5, HasAudio: true}, nil
			}

			s := NewSession()
			src, err := s.StartFromFile(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if src.Orientation != tt.expected {
				t.Errorf("expected %v orientation, got %v", tt.expected, src.Orientation)
			}

			if src.Mode != models.ModeUpload {
				t.Errorf("expected upload mode, got %v", src.Mode)
			}

			if !src.HasAudio {
				t.Error("expected audio track to be detected")
			}
		})
	}
}

func TestStartFromFile_ReplacesActiveSource(t *testing.T) {
	origProbe := probeMedia
	defer func() { probeMedia = origProbe }()
	probeMedia = func(string) (*MediaInfo, error) {
		return &MediaInfo{Width: 640, Height: 480, FPS: 30}, nil
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "a.mp4")
	second := filepath.Join(dir, "b.mp4")
	os.WriteFile(first, []byte("stub"), 0644)
	os.WriteFile(second, []byte("stub"), 0644)

	s := NewSession()
	a, err := s.StartFromFile(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := s.StartFromFile(second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Active() != b {
		t.Error("expected the second source to be active")
	}

	if s.Active() == a {
		t.Error("the first source must have been replaced")
	}
}

func TestDetectMIME_ByExtension(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"clip.mp4", "video/mp4"},
		{"clip.MOV", "video/quicktime"},
		{"photo.jpeg", "image/jpeg"},
		{"frame.png", "image/png"},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		path := filepath.Join(dir, tt.path)
		os.WriteFile(path, []byte("stub"), 0644)

		mime, err := detectMIME(path)
		if err != nil {
			t.Errorf("detectMIME(%s): unexpected error %v", tt.path, err)
			continue
		}
		if mime != tt.expected {
			t.Errorf("detectMIME(%s) = %s, want %s", tt.path, mime, tt.expected)
		}
	}
}

func TestFrameBytes(t *testing.T) {
	src := &Source{Width: 1280, Height: 720}

	if got := src.FrameBytes(); got != 1280*720*4 {
		t.Errorf("expected %d bytes per frame, got %d", 1280*720*4, got)
	}
}

func TestAspectRatioLabel(t *testing.T) {
	tests := []struct {
		width    int
		height   int
		expected string
	}{
		{1920, 1080, "16:9"},
		{1080, 1920, "9:16"},
		{640, 480, "4:3"},
		{1080, 1080, "1:1"},
		{0, 100, "unknown"},
		{854, 480, "16:9"}, // 480p canonical is within the 16:9 window
	}

	for _, tt := range tests {
		if got := AspectRatioLabel(tt.width, tt.height); got != tt.expected {
			t.Errorf("AspectRatioLabel(%d, %d) = %s, want %s", tt.width, tt.height, got, tt.expected)
		}
	}
}

func TestSource_Stop_FrameReaderSeesEOF(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("signal-driven shutdown is not exercised on windows")
	}

	// cat with an open stdin blocks forever, standing in for a live
	// capture process. Stop must end its output stream with EOF for a
	// reader blocked mid-frame, never with a closed-pipe error.
	cmd := exec.Command("cat")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("StdinPipe() error = %v", err)
	}
	defer stdin.Close()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("StdoutPipe() error = %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}

	src := &Source{Mode: models.ModeCamera, cmd: cmd, frames: stdout}

	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		_, err := io.ReadFull(src.Frames(), buf)
		readErr <- err
	}()

	// Let the reader block on the empty pipe before stopping.
	time.Sleep(50 * time.Millisecond)
	src.Stop()

	select {
	case err := <-readErr:
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			t.Errorf("frame read after Stop() = %v, want EOF", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("frame read still blocked after Stop()")
	}
}
