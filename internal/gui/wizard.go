package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// WizardStep is one page of an id run.
type WizardStep int

const (
	StepBatch  WizardStep = iota // batch source and secret key
	StepStore                    // aliases, mapping and export
	StepReview                   // dry run
	StepSave                     // reconcile and save
	stepCount
)

type stepInfo struct {
	title string
	hint  string
	next  string
}

var stepInfos = [stepCount]stepInfo{
	StepBatch:  {"Batch", "Choose the patients to reconcile and the secret key.", "Next"},
	StepStore:  {"Store", "Aliases, the mapping that keeps ids stable, and the shareable export.", "Preview"},
	StepReview: {"Review", "Dry run against the current mapping. Nothing is saved yet.", "Save IDs"},
	StepSave:   {"Save", "Reconciled ids are written to the mapping.", "Done"},
}

type stepState int

const (
	stateTodo stepState = iota
	stateCurrent
	stateDone
)

func stateOf(step, current WizardStep) stepState {
	switch {
	case step < current:
		return stateDone
	case step == current:
		return stateCurrent
	default:
		return stateTodo
	}
}

type page struct {
	content fyne.CanvasObject
	gate    func() bool
	enter   func()
}

// Wizard walks the user through one id run. Each step registers a gate that
// must pass before leaving it and a hook that runs on entering it.
type Wizard struct {
	current  WizardStep
	pages    [stepCount]page
	onFinish func()

	back   *widget.Button
	next   *widget.Button
	titles [stepCount]*canvas.Text
	hint   *widget.Label
	status *widget.Label
	body   *fyne.Container
}

// NewWizard returns a wizard positioned on the batch step.
func NewWizard() *Wizard {
	w := &Wizard{
		hint:   widget.NewLabel(""),
		status: widget.NewLabel(""),
		body:   container.NewStack(),
	}
	w.hint.Wrapping = fyne.TextWrapWord
	w.back = widget.NewButton("Back", w.Previous)
	w.next = widget.NewButton("", w.Next)
	w.next.Importance = widget.HighImportance

	for i, info := range stepInfos {
		t := canvas.NewText(fmt.Sprintf("%d  %s", i+1, info.title), ColorTextSecondary)
		t.TextSize = 13
		w.titles[i] = t
	}
	w.refresh()
	return w
}

// Register sets the content of step. gate and enter may be nil.
func (w *Wizard) Register(step WizardStep, content fyne.CanvasObject, gate func() bool, enter func()) {
	w.pages[step] = page{content: content, gate: gate, enter: enter}
	if step == w.current {
		w.refresh()
	}
}

// SetOnFinish sets what "Done" on the last step does.
func (w *Wizard) SetOnFinish(fn func()) {
	w.onFinish = fn
}

// SetStatus shows text in the footer between the navigation buttons.
func (w *Wizard) SetStatus(text string) {
	w.status.SetText(text)
}

// Current returns the visible step.
func (w *Wizard) Current() WizardStep {
	return w.current
}

// Next leaves the current step if its gate passes.
func (w *Wizard) Next() {
	if g := w.pages[w.current].gate; g != nil && !g() {
		return
	}
	if w.current == StepSave {
		if w.onFinish != nil {
			w.onFinish()
		}
		return
	}
	w.show(w.current + 1)
}

// Previous returns to the step before. The batch step has none.
func (w *Wizard) Previous() {
	if w.current > StepBatch {
		w.show(w.current - 1)
	}
}

func (w *Wizard) show(step WizardStep) {
	w.current = step
	w.refresh()
	if enter := w.pages[step].enter; enter != nil {
		enter()
	}
}

func (w *Wizard) refresh() {
	info := stepInfos[w.current]
	w.hint.SetText(info.hint)
	w.next.SetText(info.next)
	w.next.Enable()
	if w.current == StepBatch {
		w.back.Disable()
	} else {
		w.back.Enable()
	}

	for i, t := range w.titles {
		switch stateOf(WizardStep(i), w.current) {
		case stateDone:
			t.Color = ColorStepComplete
			t.TextStyle = fyne.TextStyle{}
		case stateCurrent:
			t.Color = ColorPrimaryAccent
			t.TextStyle = fyne.TextStyle{Bold: true}
		default:
			t.Color = ColorTextSecondary
			t.TextStyle = fyne.TextStyle{}
		}
		t.Refresh()
	}

	w.body.Objects = nil
	if c := w.pages[w.current].content; c != nil {
		w.body.Objects = []fyne.CanvasObject{c}
	}
	w.body.Refresh()
}

// SetNextEnabled enables or disables the next button
func (w *Wizard) SetNextEnabled(enabled bool) {
	if enabled {
		w.next.Enable()
	} else {
		w.next.Disable()
	}
}

// SetNextText sets the text of the next button
func (w *Wizard) SetNextText(text string) {
	w.next.SetText(text)
}

// SetBackEnabled enables or disables the back button. The batch step never
// has one.
func (w *Wizard) SetBackEnabled(enabled bool) {
	if enabled && w.current > StepBatch {
		w.back.Enable()
	} else {
		w.back.Disable()
	}
}

// Build lays out the step trail, the current page and the navigation row.
func (w *Wizard) Build() fyne.CanvasObject {
	var trail []fyne.CanvasObject
	for i, t := range w.titles {
		if i > 0 {
			trail = append(trail, canvas.NewText("›", ColorBorder))
		}
		trail = append(trail, t)
	}

	separator := canvas.NewRectangle(ColorBorder)
	separator.SetMinSize(fyne.NewSize(0, 1))

	header := container.NewVBox(
		container.NewCenter(container.NewHBox(trail...)),
		w.hint,
		separator,
	)
	footer := container.NewBorder(nil, nil, w.back, w.next,
		container.NewHBox(layout.NewSpacer(), w.status, layout.NewSpacer()))

	return container.NewBorder(
		container.NewPadded(header),
		container.NewPadded(footer),
		nil, nil,
		container.NewPadded(createCard("", w.body)),
	)
}
