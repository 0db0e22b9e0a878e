package capture

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/framecast/framecast/internal/compose"
	"github.com/framecast/framecast/internal/models"
)

// startCameraCmd starts the capture process; a test hook.
var startCameraCmd = func(cmd *exec.Cmd) error { return cmd.Start() }

// DetectDevice finds the first available camera device on Linux.
func DetectDevice() (string, error) {
	devices := []string{"video0", "video1", "video2", "video3"}

	for _, dev := range devices {
		path := "/dev/" + dev
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return path, nil
		}
	}

	return "", fmt.Errorf("no camera device found")
}

// openCamera spawns ffmpeg to decode the camera into raw RGBA frames on
// stdout. The render loop consumes them one frame at a time.
func openCamera(c Constraints) (*Source, error) {
	width, height := c.Profile.Dimensions(c.Orientation)
	fps := c.FPS
	if fps <= 0 {
		fps = 30
	}

	inputArgs, device, err := cameraInputArgs(c.Device)
	if err != nil {
		return nil, &AccessError{Device: c.Device, Err: err}
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, inputArgs...)
	args = append(args,
		"-vf", compose.ScalePadFilter(width, height),
		"-r", strconv.Itoa(fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stderr = nil

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &AccessError{Device: device, Err: err}
	}

	if err := startCameraCmd(cmd); err != nil {
		return nil, &AccessError{Device: device, Err: err}
	}

	return &Source{
		Mode:        models.ModeCamera,
		Orientation: c.Orientation,
		Width:       width,
		Height:      height,
		FPS:         float64(fps),
		HasAudio:    c.WithAudio,
		AudioDevice: c.AudioDevice,
		cmd:         cmd,
		frames:      stdout,
	}, nil
}

// cameraInputArgs builds the per-OS ffmpeg input arguments for the camera.
func cameraInputArgs(device string) ([]string, string, error) {
	switch runtime.GOOS {
	case "linux":
		dev := device
		if dev == "" {
			var err error
			dev, err = DetectDevice()
			if err != nil {
				return nil, dev, err
			}
		}
		return []string{"-f", "v4l2", "-input_format", "mjpeg", "-i", dev}, dev, nil

	case "darwin":
		// "0:none" means video device 0 (default camera), no audio; the
		// audio graph taps the microphone separately.
		dev := device
		if dev == "" {
			dev = "0"
		}
		return []string{"-f", "avfoundation", "-i", dev + ":none"}, dev, nil

	case "windows":
		if device != "" {
			return []string{"-f", "dshow", "-i", "video=" + device}, device, nil
		}
		// Empty video= lets ffmpeg pick the default device
		return []string{"-f", "dshow", "-i", "video="}, device, nil

	default:
		return nil, device, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}
