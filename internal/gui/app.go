package gui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"hmf-id-generator/internal/config"
)

const (
	AppTitle  = "HMF Patient ID Generator"
	AppWidth  = 680
	AppHeight = 620
)

// App represents the GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	wizard     *Wizard
	steps      *StepBuilder

	cfg    *config.Config
	logger *slog.Logger
}

// NewApp creates the desktop wizard. cfg supplies defaults for the form and
// the store backend.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	a := app.NewWithID("nl.hartwig.idgenerator")
	a.Settings().SetTheme(idTheme{})

	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{fyneApp: a, cfg: cfg, logger: logger}
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow = a.fyneApp.NewWindow(AppTitle)
	a.mainWindow.Resize(fyne.NewSize(AppWidth, AppHeight))
	a.mainWindow.CenterOnScreen()

	a.wizard = NewWizard()
	a.steps = NewStepBuilder(a.mainWindow, a.wizard, a.cfg, a.logger)
	a.wizard.SetStatus("Store: " + a.cfg.Store.Location())

	a.wizard.Register(StepBatch, a.steps.BuildInputStep(), a.steps.ValidateInput, nil)
	a.wizard.Register(StepStore, a.steps.BuildSettingsStep(), a.steps.ValidateSettings, nil)
	a.wizard.Register(StepReview, a.steps.BuildPreviewStep(), a.steps.PreviewComplete, a.steps.RunPreview)
	a.wizard.Register(StepSave, a.steps.BuildProcessStep(), nil, a.steps.RunProcess)
	a.wizard.SetOnFinish(func() {
		if !a.steps.IsProcessing() {
			a.mainWindow.Close()
		}
	})

	a.mainWindow.SetContent(a.wizard.Build())

	a.mainWindow.SetCloseIntercept(func() {
		if a.steps.IsProcessing() {
			dialog.ShowConfirm("Confirm Exit",
				"IDs are being saved. Are you sure you want to exit?",
				func(confirm bool) {
					if confirm {
						a.mainWindow.Close()
					}
				}, a.mainWindow)
		} else {
			a.mainWindow.Close()
		}
	})

	a.mainWindow.ShowAndRun()
}
