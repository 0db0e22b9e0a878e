package models

import "time"

// CaptureMode is the closed set of capture session modes.
type CaptureMode int

const (
	ModeIdle CaptureMode = iota
	ModeCamera
	ModeUpload
)

func (m CaptureMode) String() string {
	switch m {
	case ModeCamera:
		return "camera"
	case ModeUpload:
		return "upload"
	default:
		return "idle"
	}
}

// RecordingState is the finite state machine governing a recording session:
// Idle -> Countdown -> Recording -> Finalizing -> Idle, with the file-export
// alternate path Idle -> Processing -> Idle.
type RecordingState int

const (
	StateIdle RecordingState = iota
	StateCountdown
	StateRecording
	StateFinalizing
	StateProcessing
)

func (s RecordingState) String() string {
	switch s {
	case StateCountdown:
		return "countdown"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateProcessing:
		return "processing"
	default:
		return "idle"
	}
}

// FieldKind is the closed set of positioned text layer kinds drawn on still
// and document exports.
type FieldKind int

const (
	FieldName FieldKind = iota
	FieldDate
	FieldCustom
)

// TextLayer is one positioned text element on a still export. X and Y are the
// anchor center in design-space coordinates; the compositor scales them by
// destSize/designSize.
type TextLayer struct {
	Kind     FieldKind
	Text     string
	X        float64
	Y        float64
	FontSize float64 // design-space point size
	Color    string  // hex RGB, e.g. "#FFFFFF"
	Bold     bool
}

// RecordingStatus reports the controller state for the CLI status surface.
type RecordingStatus struct {
	State     RecordingState `json:"state"`
	Mode      CaptureMode    `json:"-"`
	StartTime time.Time      `json:"start_time,omitempty"`
	Tier      QualityTier    `json:"tier,omitempty"`
	Elapsed   time.Duration  `json:"elapsed,omitempty"`
}
