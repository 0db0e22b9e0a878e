package encoder

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/framecast/framecast/internal/audiograph"
	"github.com/framecast/framecast/internal/models"
)

// AudioSource selects where the encoder's audio track comes from.
type AudioSource int

const (
	// AudioNone records video only.
	AudioNone AudioSource = iota
	// AudioDevice captures from a system microphone.
	AudioDevice
	// AudioFile takes the audio track of an input media file.
	AudioFile
)

// Options describes one encoding session.
type Options struct {
	Codec       CodecOption
	Profile     models.QualityProfile
	Orientation models.Orientation
	FPS         int
	OutPath     string

	Audio AudioSource
	// AudioDeviceName names the capture device when Audio is AudioDevice.
	AudioDeviceName string
	// AudioPath names the media file when Audio is AudioFile.
	AudioPath string
}

// BuildArgs assembles the ffmpeg argument list for an encoding session that
// reads raw RGBA frames on stdin. Kept separate from process startup so the
// argument construction stays testable.
func BuildArgs(opts Options) ([]string, error) {
	w, h := opts.Profile.Dimensions(opts.Orientation)
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", strconv.Itoa(fps),
		"-i", "pipe:0",
	}

	switch opts.Audio {
	case AudioDevice:
		in, err := audiograph.MicInputArgs(opts.AudioDeviceName)
		if err != nil {
			return nil, err
		}
		args = append(args, in...)
	case AudioFile:
		if opts.AudioPath == "" {
			return nil, fmt.Errorf("audio source is a file but no path given")
		}
		args = append(args, "-i", opts.AudioPath)
	}

	args = append(args, "-map", "0:v")
	if opts.Audio != AudioNone {
		args = append(args,
			"-map", "1:a?",
			"-af", audiograph.UnityGainFilter,
			"-c:a", opts.Codec.AudioCodec,
			"-b:a", opts.Profile.AudioBitrate,
		)
	}

	args = append(args,
		"-c:v", opts.Codec.VideoCodec,
		"-b:v", opts.Profile.VideoBitrate,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
	)
	if opts.Audio != AudioNone {
		args = append(args, "-shortest")
	}
	args = append(args, opts.OutPath)

	return args, nil
}

// startEncoderCmd starts the encoder process. Hook for tests.
var startEncoderCmd = func(args []string) (*exec.Cmd, io.WriteCloser, error) {
	cmd := exec.Command("ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdin, nil
}

// Session is one running encoder process. Frames go in through WriteFrame,
// Close flushes by closing stdin and waits for the container to finalize.
type Session struct {
	opts  Options
	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

// Open starts an encoder for the given options.
func Open(opts Options) (*Session, error) {
	args, err := BuildArgs(opts)
	if err != nil {
		return nil, err
	}

	cmd, stdin, err := startEncoderCmd(args)
	if err != nil {
		return nil, fmt.Errorf("starting encoder: %w", err)
	}

	return &Session{opts: opts, cmd: cmd, stdin: stdin}, nil
}

// WriteFrame sends one raw RGBA frame to the encoder.
func (s *Session) WriteFrame(frame []byte) error {
	_, err := s.stdin.Write(frame)
	return err
}

// PID returns the encoder process id, or 0 when not running.
func (s *Session) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Close ends the stream and waits for the encoder to write out the container.
// Safe to call more than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.stdin != nil {
			s.closeErr = s.stdin.Close()
		}
		if s.cmd != nil {
			if err := s.cmd.Wait(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("encoder exit: %w", err)
			}
		}
	})
	return s.closeErr
}
