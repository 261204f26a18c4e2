package gui

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
)

func newTestWizard(t *testing.T) *Wizard {
	t.Helper()
	test.NewApp()
	return NewWizard()
}

func TestWizardGateBlocksNext(t *testing.T) {
	w := newTestWizard(t)
	ready := false
	w.Register(StepBatch, widget.NewLabel("batch"), func() bool { return ready }, nil)

	w.Next()
	assert.Equal(t, StepBatch, w.Current())

	ready = true
	w.Next()
	assert.Equal(t, StepStore, w.Current())
}

func TestWizardRunsEnterHook(t *testing.T) {
	w := newTestWizard(t)
	var entered []WizardStep
	for step := StepBatch; step < stepCount; step++ {
		s := step
		w.Register(s, widget.NewLabel(stepInfos[s].title), nil, func() { entered = append(entered, s) })
	}

	w.Next()
	w.Next()
	w.Previous()
	assert.Equal(t, []WizardStep{StepStore, StepReview, StepStore}, entered)
}

func TestWizardButtons(t *testing.T) {
	w := newTestWizard(t)
	assert.True(t, w.back.Disabled())
	assert.Equal(t, "Next", w.next.Text)

	w.Next()
	assert.False(t, w.back.Disabled())
	assert.Equal(t, "Preview", w.next.Text)

	w.Next()
	assert.Equal(t, "Save IDs", w.next.Text)

	w.SetNextEnabled(false)
	w.Previous()
	assert.False(t, w.next.Disabled(), "a step change re-enables next")

	w.Previous()
	w.Previous()
	assert.Equal(t, StepBatch, w.Current())
	w.SetBackEnabled(true)
	assert.True(t, w.back.Disabled())
}

func TestWizardFinish(t *testing.T) {
	w := newTestWizard(t)
	finished := 0
	w.SetOnFinish(func() { finished++ })

	for w.Current() != StepSave {
		w.Next()
	}
	assert.Equal(t, "Done", w.next.Text)
	assert.Zero(t, finished)

	w.Next()
	assert.Equal(t, 1, finished)
	assert.Equal(t, StepSave, w.Current())
}

func TestWizardStatusAndTrail(t *testing.T) {
	w := newTestWizard(t)
	w.SetStatus("Store: file")
	assert.Equal(t, "Store: file", w.status.Text)
	assert.NotNil(t, w.Build())

	w.Next()
	assert.Equal(t, ColorStepComplete, w.titles[StepBatch].Color)
	assert.Equal(t, ColorPrimaryAccent, w.titles[StepStore].Color)
	assert.Equal(t, ColorTextSecondary, w.titles[StepSave].Color)
	assert.Equal(t, stepInfos[StepStore].hint, w.hint.Text)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, stateDone, stateOf(StepBatch, StepReview))
	assert.Equal(t, stateCurrent, stateOf(StepReview, StepReview))
	assert.Equal(t, stateTodo, stateOf(StepSave, StepReview))
}
