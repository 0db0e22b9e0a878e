package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/framecast/framecast/internal/models"
)

// keyMsg builds the key message for a named key or single rune.
func keyMsg(key string) tea.KeyMsg {
	if key == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func TestNewProcessingState(t *testing.T) {
	p := NewProcessingState()

	if p == nil {
		t.Fatal("NewProcessingState returned nil")
	}

	if len(p.Steps) != 5 {
		t.Errorf("expected 5 steps, got %d", len(p.Steps))
	}

	if p.CurrentStep != -1 {
		t.Errorf("expected CurrentStep to be -1, got %d", p.CurrentStep)
	}

	if p.IsProcessing {
		t.Error("expected IsProcessing to be false")
	}

	for i, step := range p.Steps {
		if step.Status != StepPending {
			t.Errorf("expected step %d to be StepPending, got %d", i, step.Status)
		}
	}
}

func TestProcessingState_Start(t *testing.T) {
	p := NewProcessingState()

	p.Start()

	if !p.IsProcessing {
		t.Error("expected IsProcessing to be true after Start")
	}

	if p.CurrentStep != 0 {
		t.Errorf("expected CurrentStep to be 0, got %d", p.CurrentStep)
	}

	if p.Steps[0].Status != StepRunning {
		t.Errorf("expected first step to be StepRunning, got %d", p.Steps[0].Status)
	}

	if p.StartTime.IsZero() {
		t.Error("expected StartTime to be set")
	}
}

func TestProcessingState_NextStep(t *testing.T) {
	p := NewProcessingState()
	p.Start()

	p.NextStep()

	if p.Steps[0].Status != StepComplete {
		t.Errorf("expected first step to be StepComplete, got %d", p.Steps[0].Status)
	}

	if p.Steps[0].EndTime.IsZero() {
		t.Error("expected first step EndTime to be set")
	}

	if p.CurrentStep != 1 {
		t.Errorf("expected CurrentStep to be 1, got %d", p.CurrentStep)
	}

	if p.Steps[1].Status != StepRunning {
		t.Errorf("expected second step to be StepRunning, got %d", p.Steps[1].Status)
	}
}

func TestProcessingState_SkipStep(t *testing.T) {
	p := NewProcessingState()
	p.Start()

	p.SkipStep()

	if p.Steps[0].Status != StepSkipped {
		t.Errorf("expected first step to be StepSkipped, got %d", p.Steps[0].Status)
	}

	if p.CurrentStep != 1 {
		t.Errorf("expected CurrentStep to be 1, got %d", p.CurrentStep)
	}
}

func TestProcessingState_FailStep(t *testing.T) {
	p := NewProcessingState()
	p.Start()

	failErr := errors.New("encode failed")
	p.FailStep(failErr)

	if p.Steps[0].Status != StepFailed {
		t.Errorf("expected first step to be StepFailed, got %d", p.Steps[0].Status)
	}

	if p.Error != failErr {
		t.Errorf("expected Error to be set, got %v", p.Error)
	}
}

func TestProcessingState_Complete(t *testing.T) {
	p := NewProcessingState()
	p.Start()

	for i := 0; i < len(p.Steps)-1; i++ {
		p.NextStep()
	}
	p.Complete()

	if p.IsProcessing {
		t.Error("expected IsProcessing to be false after Complete")
	}

	for i, step := range p.Steps {
		if step.Status != StepComplete {
			t.Errorf("expected step %d to be StepComplete, got %d", i, step.Status)
		}
	}
}

func TestProcessingState_Reset(t *testing.T) {
	p := NewProcessingState()
	p.Start()
	p.NextStep()
	p.Percent = 0.5
	p.FailStep(errors.New("boom"))

	p.Reset()

	if p.CurrentStep != -1 {
		t.Errorf("expected CurrentStep to be -1 after Reset, got %d", p.CurrentStep)
	}
	if p.Error != nil {
		t.Errorf("expected Error to be nil after Reset, got %v", p.Error)
	}
	if p.Percent != 0 {
		t.Errorf("expected Percent to be 0 after Reset, got %f", p.Percent)
	}
	for i, step := range p.Steps {
		if step.Status != StepPending {
			t.Errorf("expected step %d to be StepPending after Reset, got %d", i, step.Status)
		}
		if !step.StartTime.IsZero() || !step.EndTime.IsZero() {
			t.Errorf("expected step %d times to be cleared after Reset", i)
		}
	}
}

func TestProcessingState_SetStepByIndex(t *testing.T) {
	p := NewProcessingState()

	p.SetStepByIndex(2, StepRunning)

	if p.CurrentStep != 2 {
		t.Errorf("expected CurrentStep to be 2, got %d", p.CurrentStep)
	}
	if p.Steps[2].Status != StepRunning {
		t.Errorf("expected step 2 to be StepRunning, got %d", p.Steps[2].Status)
	}

	p.SetStepByIndex(2, StepComplete)
	if p.Steps[2].EndTime.IsZero() {
		t.Error("expected step 2 EndTime to be set")
	}

	// Out of range indexes are ignored
	p.SetStepByIndex(99, StepRunning)
	p.SetStepByIndex(-1, StepRunning)
}

func TestCountdownModelClampsCount(t *testing.T) {
	if NewCountdownModel(0).count != 3 {
		t.Error("expected zero seconds to fall back to 3")
	}
	if NewCountdownModel(9).count != 5 {
		t.Error("expected counts above 5 to clamp to 5")
	}
	if NewCountdownModel(4).count != 4 {
		t.Error("expected 4 to be kept as-is")
	}
}

func TestCountdownCancel(t *testing.T) {
	c := NewCountdownModel(3)

	model, _ := c.Update(keyMsg("esc"))

	m, ok := model.(*CountdownModel)
	if !ok {
		t.Fatal("Update returned unexpected model type")
	}
	if !m.IsCancelled() || !m.IsDone() {
		t.Error("expected esc to cancel and finish the countdown")
	}
}

func TestCountdownTicksToDone(t *testing.T) {
	c := NewCountdownModel(1)

	// 1 -> 0 (GO), then below zero finishes.
	c.Update(countdownTickMsg{})
	if c.IsDone() {
		t.Fatal("countdown finished while GO should still show")
	}
	c.Update(countdownTickMsg{})
	if !c.IsDone() {
		t.Error("expected countdown to finish after GO")
	}
	if c.IsCancelled() {
		t.Error("a completed countdown must not read as cancelled")
	}
}

func TestRecordingModelStopKeys(t *testing.T) {
	m := NewRecordingModel(models.Tier720p, models.Landscape, time.Minute, nil)
	m.started = time.Now()

	model, _ := m.Update(keyMsg("q"))
	if rm, ok := model.(*RecordingModel); !ok || !rm.Stopped() {
		t.Error("expected q to stop the recording screen")
	}
}
