package gui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"hmf-id-generator/internal/anonymizer"
	"hmf-id-generator/internal/config"
	dcm "hmf-id-generator/internal/dicom"
	"hmf-id-generator/internal/store"
)

const (
	inputSamples = "Sample list"
	inputDicom   = "DICOM folder"
)

// StepBuilder handles creating UI content for each wizard step
type StepBuilder struct {
	window fyne.Window
	wizard *Wizard
	cfg    *config.Config
	logger *slog.Logger

	// Input step
	inputMode        *widget.RadioGroup
	inputPathEntry   *widget.Entry
	inputInfoLabel   *widget.Label
	secretKeyEntry   *widget.Entry
	secretKeyShowBtn *widget.Button

	// Settings step
	aliasesEntry   *widget.Entry
	mappingEntry   *widget.Entry
	exportEntry    *widget.Entry
	recursiveCheck *widget.Check

	// Preview step
	previewProgress *widget.ProgressBarInfinite
	previewStatus   *widget.Label
	previewSummary  *widget.Label
	previewDetails  *widget.Label
	previewDone     bool
	previewMu       sync.Mutex

	// Process step
	processProgress *widget.ProgressBarInfinite
	processStatus   *widget.Label
	processSummary  *widget.Label
	processing      bool
	processingMu    sync.Mutex
}

// NewStepBuilder creates a new step builder
func NewStepBuilder(window fyne.Window, wizard *Wizard, cfg *config.Config, logger *slog.Logger) *StepBuilder {
	return &StepBuilder{
		window: window,
		wizard: wizard,
		cfg:    cfg,
		logger: logger,
	}
}

func stepTitle(text string) *canvas.Text {
	title := canvas.NewText(text, ColorTextPrimary)
	title.TextSize = 18
	title.TextStyle = fyne.TextStyle{Bold: true}
	return title
}

// createCard draws content on a rounded card, with an optional heading.
func createCard(title string, content fyne.CanvasObject) fyne.CanvasObject {
	bg := canvas.NewRectangle(ColorCardBackground)
	bg.CornerRadius = 8

	var heading fyne.CanvasObject
	if title != "" {
		t := canvas.NewText(title, ColorTextPrimary)
		t.TextSize = 15
		t.TextStyle = fyne.TextStyle{Bold: true}
		heading = t
	}
	return container.NewStack(bg, container.NewPadded(container.NewBorder(heading, nil, nil, nil, content)))
}

func boldLabel(text string) *widget.Label {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}

// BuildInputStep creates the Input step content
func (s *StepBuilder) BuildInputStep() fyne.CanvasObject {
	s.inputPathEntry = widget.NewEntry()
	s.inputInfoLabel = widget.NewLabel("")
	s.inputInfoLabel.Wrapping = fyne.TextWrapWord

	s.inputMode = widget.NewRadioGroup([]string{inputSamples, inputDicom}, func(mode string) {
		if mode == inputDicom {
			s.inputPathEntry.SetPlaceHolder("/path/to/dicom/files")
		} else {
			s.inputPathEntry.SetPlaceHolder("/path/to/samples.txt")
		}
		s.updateInputInfo()
	})
	s.inputMode.Horizontal = true

	switch {
	case s.cfg.Input.DicomFolder != "":
		s.inputMode.SetSelected(inputDicom)
		s.inputPathEntry.SetText(s.cfg.Input.DicomFolder)
	default:
		s.inputMode.SetSelected(inputSamples)
		s.inputPathEntry.SetText(s.cfg.Input.Samples)
	}
	s.inputPathEntry.OnChanged = func(string) { s.updateInputInfo() }

	browseBtn := widget.NewButton("Browse", func() {
		if s.inputMode.Selected == inputDicom {
			dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
				if err != nil || uri == nil {
					return
				}
				s.inputPathEntry.SetText(uri.Path())
			}, s.window)
			return
		}
		s.showFileOpen(s.inputPathEntry)
	})
	inputRow := container.NewBorder(nil, nil, nil, browseBtn, s.inputPathEntry)

	s.secretKeyEntry = widget.NewPasswordEntry()
	s.secretKeyEntry.SetPlaceHolder("Enter the secret key")
	s.secretKeyEntry.SetText(s.cfg.Secret)

	s.secretKeyShowBtn = widget.NewButton("Show", func() {
		s.secretKeyEntry.Password = !s.secretKeyEntry.Password
		if s.secretKeyEntry.Password {
			s.secretKeyShowBtn.SetText("Show")
		} else {
			s.secretKeyShowBtn.SetText("Hide")
		}
		s.secretKeyEntry.Refresh()
	})
	genBtn := widget.NewButton("Generate", s.showGeneratedKey)
	secretKeyRow := container.NewBorder(nil, nil, nil, container.NewHBox(s.secretKeyShowBtn, genBtn), s.secretKeyEntry)

	keyExplanation := widget.NewLabel("Use the same key on every run. A new key changes the digest of every patient in the batch.")
	keyExplanation.Wrapping = fyne.TextWrapWord

	content := container.NewVBox(
		stepTitle("Select Input"),
		widget.NewSeparator(),
		container.NewVBox(boldLabel("Input"), s.inputMode, inputRow, s.inputInfoLabel),
		widget.NewSeparator(),
		container.NewVBox(boldLabel("Secret Key"), keyExplanation, secretKeyRow),
	)
	return container.NewPadded(content)
}

func (s *StepBuilder) showGeneratedKey() {
	key := anonymizer.GenerateSecretKey()
	s.secretKeyEntry.SetText(key)
	s.secretKeyEntry.Password = false
	s.secretKeyShowBtn.SetText("Hide")
	s.secretKeyEntry.Refresh()

	keyLabel := widget.NewLabel(key)
	keyLabel.TextStyle = fyne.TextStyle{Monospace: true}
	copyBtn := widget.NewButton("Copy to Clipboard", func() {
		s.window.Clipboard().SetContent(key)
	})

	content := container.NewVBox(
		widget.NewLabel("Your secret key has been generated:"),
		container.NewCenter(keyLabel),
		container.NewCenter(copyBtn),
		widget.NewSeparator(),
		widget.NewLabel("Store this key with the mapping file.\nWithout it, existing ids cannot be reproduced."),
	)
	d := dialog.NewCustom("Save Your Secret Key", "OK", content, s.window)
	d.Resize(fyne.NewSize(450, 260))
	d.Show()
}

func (s *StepBuilder) showFileOpen(target *widget.Entry) {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		target.SetText(reader.URI().Path())
		reader.Close()
	}, s.window)
}

// updateInputInfo counts DICOM files in the background when a folder is selected.
func (s *StepBuilder) updateInputInfo() {
	if s.inputInfoLabel == nil || s.inputMode == nil {
		return
	}
	path := strings.TrimSpace(s.inputPathEntry.Text)
	if path == "" || s.inputMode.Selected != inputDicom {
		s.inputInfoLabel.SetText("")
		return
	}

	s.inputInfoLabel.SetText("Scanning...")
	recursive := s.recursiveCheck == nil || s.recursiveCheck.Checked
	go func() {
		files, err := dcm.FindDicomFiles(path, recursive)
		switch {
		case err != nil:
			s.inputInfoLabel.SetText(fmt.Sprintf("Cannot read folder: %v", err))
		case len(files) == 0:
			s.inputInfoLabel.SetText("No DICOM files found")
		default:
			s.inputInfoLabel.SetText(fmt.Sprintf("Found %d DICOM file(s)", len(files)))
		}
	}()
}

// BuildSettingsStep creates the Settings step content
func (s *StepBuilder) BuildSettingsStep() fyne.CanvasObject {
	s.aliasesEntry = widget.NewEntry()
	s.aliasesEntry.SetPlaceHolder("Optional: patient,canonical CSV")
	s.aliasesEntry.SetText(s.cfg.Input.Aliases)
	aliasesRow := container.NewBorder(nil, nil, nil,
		widget.NewButton("Browse", func() { s.showFileOpen(s.aliasesEntry) }), s.aliasesEntry)

	s.mappingEntry = widget.NewEntry()
	s.mappingEntry.SetText(s.cfg.Store.File.Path)
	mappingRow := container.NewBorder(nil, nil, nil, widget.NewButton("Browse", func() {
		dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil || writer == nil {
				return
			}
			s.mappingEntry.SetText(writer.URI().Path())
			writer.Close()
		}, s.window)
	}), s.mappingEntry)
	if s.cfg.Store.Backend != "" && s.cfg.Store.Backend != store.BackendFile {
		s.mappingEntry.SetText(s.cfg.Store.Location())
		s.mappingEntry.Disable()
	}

	s.exportEntry = widget.NewEntry()
	s.exportEntry.SetPlaceHolder("Optional: shareable id list (CSV)")
	s.exportEntry.SetText(s.cfg.Output.Export)

	s.recursiveCheck = widget.NewCheck("Search subdirectories (DICOM input)", nil)
	s.recursiveCheck.SetChecked(s.cfg.Input.Recursive)

	content := container.NewVBox(
		stepTitle("Configure Settings"),
		widget.NewSeparator(),
		container.NewVBox(boldLabel("Aliases"), widget.NewLabel("Declares patients that are the same person"), aliasesRow),
		widget.NewSeparator(),
		container.NewVBox(boldLabel("Mapping File"), widget.NewLabel("Holds every issued id. Keep it in the secure environment."), mappingRow),
		widget.NewSeparator(),
		container.NewVBox(boldLabel("Export"), s.exportEntry),
		widget.NewSeparator(),
		s.recursiveCheck,
	)
	return container.NewPadded(content)
}

// BuildPreviewStep creates the Preview step content
func (s *StepBuilder) BuildPreviewStep() fyne.CanvasObject {
	s.previewProgress = widget.NewProgressBarInfinite()
	s.previewProgress.Stop()
	s.previewStatus = widget.NewLabel("")
	s.previewSummary = widget.NewLabel("")
	s.previewDetails = widget.NewLabel("")
	s.previewDetails.Wrapping = fyne.TextWrapWord

	header := container.NewVBox(
		stepTitle("Preview (Dry Run)"),
		widget.NewSeparator(),
		s.previewProgress,
		s.previewStatus,
		createCard("", s.previewSummary),
		widget.NewSeparator(),
	)
	scroll := container.NewVScroll(s.previewDetails)
	scroll.SetMinSize(fyne.NewSize(0, 200))

	return container.NewBorder(container.NewPadded(header), nil, nil, nil, container.NewPadded(scroll))
}

// BuildProcessStep creates the Process step content
func (s *StepBuilder) BuildProcessStep() fyne.CanvasObject {
	s.processProgress = widget.NewProgressBarInfinite()
	s.processProgress.Stop()
	s.processStatus = widget.NewLabel("Ready")
	s.processSummary = widget.NewLabel("")
	s.processSummary.Wrapping = fyne.TextWrapWord

	header := container.NewVBox(
		stepTitle("Saving IDs"),
		widget.NewSeparator(),
		s.processProgress,
		s.processStatus,
		widget.NewSeparator(),
	)
	scroll := container.NewVScroll(s.processSummary)
	scroll.SetMinSize(fyne.NewSize(0, 150))

	return container.NewBorder(container.NewPadded(header), nil, nil, nil, container.NewPadded(scroll))
}

// ValidateInput validates the input step
func (s *StepBuilder) ValidateInput() bool {
	path := strings.TrimSpace(s.inputPathEntry.Text)
	if path == "" {
		dialog.ShowError(fmt.Errorf("please select a %s", strings.ToLower(s.inputMode.Selected)), s.window)
		return false
	}
	if strings.TrimSpace(s.secretKeyEntry.Text) == "" {
		dialog.ShowError(fmt.Errorf("please enter a secret key or click 'Generate' to create one"), s.window)
		return false
	}
	return true
}

// ValidateSettings validates the settings step
func (s *StepBuilder) ValidateSettings() bool {
	if s.mappingEntry.Disabled() {
		return true
	}
	if strings.TrimSpace(s.mappingEntry.Text) == "" {
		dialog.ShowError(fmt.Errorf("please choose a mapping file"), s.window)
		return false
	}
	return true
}

// runConfig builds the run configuration from the current form values.
func (s *StepBuilder) runConfig(dryRun bool) (anonymizer.Config, store.Config) {
	path := strings.TrimSpace(s.inputPathEntry.Text)
	cfg := anonymizer.Config{
		AliasesFile: strings.TrimSpace(s.aliasesEntry.Text),
		Recursive:   s.recursiveCheck.Checked,
		ExportFile:  strings.TrimSpace(s.exportEntry.Text),
		Secret:      strings.TrimSpace(s.secretKeyEntry.Text),
		ScanCache:   s.cfg.Input.ScanCache,
		ErrorLog:    s.cfg.Input.ErrorLog,
		DryRun:      dryRun,
	}
	if s.inputMode.Selected == inputDicom {
		cfg.DicomFolder = path
		if cfg.ScanCache == "" {
			cfg.ScanCache = filepath.Join(path, ".idgen", "scan.json")
		}
	} else {
		cfg.SamplesFile = path
	}

	storeCfg := s.cfg.Store
	if !s.mappingEntry.Disabled() {
		storeCfg.Backend = store.BackendFile
		storeCfg.File.Path = strings.TrimSpace(s.mappingEntry.Text)
	}
	return cfg, storeCfg
}

func (s *StepBuilder) execute(cfg anonymizer.Config, storeCfg store.Config) (*anonymizer.Result, error) {
	ctx := context.Background()
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return anonymizer.Run(ctx, cfg, st, s.logger)
}

// PreviewComplete reports whether the dry run finished successfully.
func (s *StepBuilder) PreviewComplete() bool {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	return s.previewDone
}

// RunPreview executes a dry run when entering the preview step
func (s *StepBuilder) RunPreview() {
	s.previewMu.Lock()
	s.previewDone = false
	s.previewMu.Unlock()

	s.previewProgress.Start()
	s.previewStatus.SetText("Reconciling...")
	s.previewSummary.SetText("")
	s.previewDetails.SetText("")
	s.wizard.SetNextEnabled(false)

	cfg, storeCfg := s.runConfig(true)
	cfg.Progress = func(current, total int, filename, status string) {
		s.previewStatus.SetText(fmt.Sprintf("Reading %d/%d: %s", current, total, filepath.Base(filename)))
	}

	go func() {
		res, err := s.execute(cfg, storeCfg)
		s.previewProgress.Stop()
		if err != nil {
			s.previewStatus.SetText("Error!")
			s.previewDetails.SetText(fmt.Sprintf("Error: %v\n\nGo back and check the input.", err))
			return
		}

		s.previewStatus.SetText("Preview complete. Nothing has been saved yet.")
		s.previewSummary.SetText(FormatStats(res.Stats))
		s.previewDetails.SetText(FormatChanges(res) + "\n\nLooks good? Click \"Save IDs\" to continue.")

		s.previewMu.Lock()
		s.previewDone = true
		s.previewMu.Unlock()
		s.wizard.SetNextEnabled(true)
	}()
}

// RunProcess reconciles and saves when entering the process step
func (s *StepBuilder) RunProcess() {
	s.processingMu.Lock()
	if s.processing {
		s.processingMu.Unlock()
		return
	}
	s.processing = true
	s.processingMu.Unlock()

	s.processProgress.Start()
	s.processStatus.SetText("Saving...")
	s.processSummary.SetText("")
	s.wizard.SetBackEnabled(false)
	s.wizard.SetNextEnabled(false)

	cfg, storeCfg := s.runConfig(false)

	go func() {
		defer func() {
			s.processingMu.Lock()
			s.processing = false
			s.processingMu.Unlock()
		}()

		res, err := s.execute(cfg, storeCfg)
		s.processProgress.Stop()
		if err != nil {
			s.processStatus.SetText("Error!")
			s.processSummary.SetText(fmt.Sprintf("Error: %v\n\nThe previous mapping was left unchanged.", err))
		} else {
			s.processStatus.SetText("Complete!")
			summary := FormatStats(res.Stats) + "\n\nMapping: " + storeCfg.Location()
			if cfg.ExportFile != "" {
				summary += "\nExport:  " + cfg.ExportFile
			}
			s.processSummary.SetText(summary)
			s.wizard.SetStatus("Saved to " + storeCfg.Location())
		}

		s.wizard.SetNextText("Done")
		s.wizard.SetNextEnabled(true)
	}()
}

// IsProcessing returns whether processing is in progress
func (s *StepBuilder) IsProcessing() bool {
	s.processingMu.Lock()
	defer s.processingMu.Unlock()
	return s.processing
}
