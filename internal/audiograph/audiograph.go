// Package audiograph taps capture audio for level metering and routes source
// audio into exported streams. The meter is purely observational: it reads
// the device through its own ffmpeg analysis process and never alters the
// signal that reaches the encoder.
package audiograph

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// silenceFloorLUFS is where the level meter bottoms out. Momentary loudness
// at or below this maps to 0; 0 LUFS maps to 1.
const silenceFloorLUFS = -60.0

// Meter measures a normalized audio energy level in [0,1] from a live input
// device. It spawns one ffmpeg ebur128 analysis process and follows its
// momentary loudness readings.
type Meter struct {
	cmd      *exec.Cmd
	stopOnce sync.Once

	mu    sync.Mutex
	level float64
}

// startMeterCmd starts the analysis process; a test hook.
var startMeterCmd = func(cmd *exec.Cmd) error { return cmd.Start() }

// StartMeter opens a metering tap on the audio input device. The returned
// error is an acquisition failure: callers treat it as "no meter", not as a
// reason to abort capture.
func StartMeter(device string) (*Meter, error) {
	inputArgs, err := MicInputArgs(device)
	if err != nil {
		return nil, err
	}

	args := append([]string{"-hide_banner"}, inputArgs...)
	args = append(args, "-af", "ebur128", "-f", "null", "-")

	cmd := exec.Command("ffmpeg", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := startMeterCmd(cmd); err != nil {
		return nil, fmt.Errorf("failed to start level meter: %w", err)
	}

	m := &Meter{cmd: cmd}
	go m.follow(stderr)
	return m, nil
}

// Level returns the most recent normalized level in [0,1].
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Stop shuts the metering tap down. Idempotent.
func (m *Meter) Stop() {
	m.stopOnce.Do(func() {
		if m.cmd != nil && m.cmd.Process != nil {
			if err := m.cmd.Process.Signal(syscall.SIGINT); err != nil {
				m.cmd.Process.Kill()
			}
			m.cmd.Wait()
		}
	})
}

func (m *Meter) follow(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if lufs, ok := ParseMomentary(scanner.Text()); ok {
			m.mu.Lock()
			m.level = NormalizeLUFS(lufs)
			m.mu.Unlock()
		}
	}
}

// ParseMomentary extracts the momentary loudness from one ffmpeg ebur128
// status line, e.g. "[Parsed_ebur128_0 @ ...] t: 2.1 TARGET:-23 LUFS M: -18.3 S: ...".
func ParseMomentary(line string) (float64, bool) {
	idx := strings.Index(line, " M: ")
	if idx < 0 {
		return 0, false
	}

	rest := strings.TrimSpace(line[idx+4:])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}

	lufs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}

	return lufs, true
}

// NormalizeLUFS maps momentary loudness onto [0,1] for the preview meter.
func NormalizeLUFS(lufs float64) float64 {
	v := (lufs - silenceFloorLUFS) / -silenceFloorLUFS
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MicInputArgs builds the per-OS ffmpeg input arguments for the microphone.
func MicInputArgs(device string) ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		dev := device
		if dev == "" {
			dev = "default"
		}
		return []string{"-f", "pulse", "-i", dev}, nil

	case "darwin":
		// ":0" means no video, audio device 0.
		dev := device
		if dev == "" {
			dev = "0"
		}
		return []string{"-f", "avfoundation", "-i", ":" + dev}, nil

	case "windows":
		if device == "" {
			return nil, fmt.Errorf("windows requires an explicit dshow audio device name")
		}
		return []string{"-f", "dshow", "-i", "audio=" + device}, nil

	default:
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// UnityGainFilter is the pass-through audio filter applied when routing
// source audio into an export: levels are preserved, nothing is mixed in.
const UnityGainFilter = "volume=1.0"
