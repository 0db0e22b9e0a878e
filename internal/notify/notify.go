package notify

import (
	"os/exec"
)

// Urgency levels for notifications
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// Send sends a desktop notification using notify-send
func Send(title, body string, urgency Urgency, icon string) error {
	args := []string{title, body}

	if urgency != "" {
		args = append(args, "--urgency="+string(urgency))
	}

	if icon != "" {
		args = append(args, "--icon="+icon)
	}

	cmd := exec.Command("notify-send", args...)
	return cmd.Run()
}

// Info sends an informational notification
func Info(title, body string) error {
	return Send(title, body, UrgencyNormal, "camera-video")
}

// Warning sends a warning notification
func Warning(title, body string) error {
	return Send(title, body, UrgencyLow, "dialog-warning")
}

// Error sends an error notification
func Error(title, body string) error {
	return Send(title, body, UrgencyCritical, "dialog-error")
}

// RecordingStarted notifies that a camera session began
func RecordingStarted(tier string) error {
	return Info("Framecast", "Recording at "+tier+"...")
}

// RecordingStopped notifies that the session ended and the export is on
// its way
func RecordingStopped() error {
	return Info("Framecast", "Recording stopped, preparing your export...")
}

// ArtifactReady notifies that an export finished
func ArtifactReady(filename string) error {
	return Info("Framecast Export Complete", filename+" saved!")
}

// OverlayUnavailable warns that the campaign overlay could not be loaded
func OverlayUnavailable() error {
	return Warning("Framecast", "Campaign overlay unavailable, continuing without it")
}

// AudioUnavailable warns that the export degraded to video only
func AudioUnavailable() error {
	return Warning("Framecast", "Audio unavailable, exporting video only")
}
