package recording

import (
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/framecast/framecast/internal/config"
	"github.com/framecast/framecast/internal/models"
)

// The controller mirrors its state into small files under /tmp so the status
// and stop commands work from a different process than the one recording.

func writeState(state models.RecordingState) {
	if state == models.StateIdle {
		os.Remove(config.StateFile)
		return
	}
	os.WriteFile(config.StateFile, []byte(state.String()), 0644)
}

func readState() models.RecordingState {
	data, err := os.ReadFile(config.StateFile)
	if err != nil {
		return models.StateIdle
	}

	switch string(data) {
	case "countdown":
		return models.StateCountdown
	case "recording":
		return models.StateRecording
	case "finalizing":
		return models.StateFinalizing
	case "processing":
		return models.StateProcessing
	default:
		return models.StateIdle
	}
}

func writePID(pidFile string, pid int) {
	if pid <= 0 {
		return
	}
	os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func readPID(pidFile string) int {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return pid
}

// checkPID reports whether the process named by a PID file is still alive.
func checkPID(pidFile string) bool {
	pid := readPID(pidFile)
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func clearSessionFiles() {
	os.Remove(config.EncoderPIDFile)
	os.Remove(config.CapturePIDFile)
	os.Remove(config.StartTimeFile)
	os.Remove(config.StateFile)
}

// SessionActive reports whether any framecast process on this machine is in
// the middle of a session, judged by the state file and live PIDs.
func SessionActive() bool {
	if readState() != models.StateIdle {
		return checkPID(config.CapturePIDFile) || checkPID(config.EncoderPIDFile) ||
			readState() == models.StateCountdown || readState() == models.StateProcessing
	}
	return false
}

// ReadStatus builds a cross-process status report from the session files.
func ReadStatus() models.RecordingStatus {
	status := models.RecordingStatus{State: readState()}

	if status.State == models.StateRecording {
		if data, err := os.ReadFile(config.StartTimeFile); err == nil {
			if t, err := time.Parse(time.RFC3339, string(data)); err == nil {
				status.StartTime = t
				status.Elapsed = time.Since(t)
			}
		}
	}

	return status
}

// SignalStop asks a recording session in another process to finish. It stops
// the capture process; the recording loop sees end of stream and finalizes
// normally.
func SignalStop() error {
	pid := readPID(config.CapturePIDFile)
	if pid <= 0 {
		return ErrNoSession
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGINT); err != nil {
		return process.Kill()
	}
	return nil
}
