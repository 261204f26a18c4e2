// Package anonymizer runs one id generation pass: it builds the batch, loads
// the previous output, reconciles and persists the result.
package anonymizer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	dcm "hmf-id-generator/internal/dicom"
	"hmf-id-generator/internal/identity"
	"hmf-id-generator/internal/progress"
	"hmf-id-generator/internal/samples"
	"hmf-id-generator/internal/store"
)

// ErrSecretRequired is returned when no secret is given for a store that
// already holds ids. A fresh secret would rehash every touched patient.
var ErrSecretRequired = errors.New("secret key is required once ids have been issued")

// Config holds the run configuration
type Config struct {
	SamplesFile string
	AliasesFile string
	DicomFolder string
	Recursive   bool
	ScanCache   string
	ErrorLog    string
	ExportFile  string
	Secret      string
	DryRun      bool

	// Progress is called for every scanned DICOM file. Optional.
	Progress dcm.ProgressCallback
}

// Stats holds run statistics
type Stats struct {
	Samples      int
	Files        int
	CachedFiles  int
	SkippedFiles int
	Patients     int
	Aliases      int

	NewEntries     int
	UpdatedEntries int
	CarriedEntries int
	Identities     int
	Superseded     int
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Output *identity.Output
	Prior  *identity.Output
	Stats  Stats

	// Superseded lists ids folded into another identity, ever.
	Superseded []identity.SupersededAlias

	// GeneratedSecret is set when the run created the secret itself.
	GeneratedSecret string
	ErrorSummary    string
}

// Run executes one reconciliation pass against st. In dry-run mode nothing is
// saved or exported.
func Run(ctx context.Context, cfg Config, st store.Store, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{RunID: uuid.NewString()}
	logger = logger.With("run_id", res.RunID)

	src, err := loadSource(ctx, cfg, res, logger)
	if err != nil {
		return nil, err
	}
	batch, err := src.Batch()
	if err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	prior, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous ids: %w", err)
	}
	logger.Info("loaded previous ids", "entries", prior.Len(), "max_sequence", prior.MaxSequence())

	secret := cfg.Secret
	if secret == "" {
		if prior.Len() > 0 {
			return nil, ErrSecretRequired
		}
		secret = GenerateSecretKey()
		res.GeneratedSecret = secret
		logger.Warn("secret key was generated for an empty store")
	}

	out, err := identity.Reconcile(secret, batch, prior)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	res.Prior = prior
	res.Output = out
	res.Superseded = out.SupersededAliases()
	res.Stats.Samples = src.Samples
	res.Stats.Patients = len(batch.Patients)
	res.Stats.Aliases = len(batch.Aliases)
	countEntries(&res.Stats, prior, out)
	res.Stats.Superseded = len(res.Superseded)

	logger.Info("reconciled",
		"patients", res.Stats.Patients,
		"aliases", res.Stats.Aliases,
		"new", res.Stats.NewEntries,
		"updated", res.Stats.UpdatedEntries,
		"carried", res.Stats.CarriedEntries,
		"identities", res.Stats.Identities,
		"superseded", res.Stats.Superseded,
	)

	if cfg.DryRun {
		logger.Info("dry run, nothing saved")
		return res, nil
	}

	if err := st.Save(ctx, out); err != nil {
		return nil, fmt.Errorf("save ids: %w", err)
	}
	logger.Info("saved ids", "entries", out.Len())

	if cfg.ExportFile != "" {
		if err := ExportPublicFile(cfg.ExportFile, out); err != nil {
			return nil, err
		}
		logger.Info("exported shareable ids", "path", cfg.ExportFile, "identities", res.Stats.Identities)
	}
	return res, nil
}

// loadSource builds the batch source from a sample list or a DICOM folder.
func loadSource(ctx context.Context, cfg Config, res *Result, logger *slog.Logger) (samples.Source, error) {
	switch {
	case cfg.SamplesFile != "" && cfg.DicomFolder != "":
		return samples.Source{}, errors.New("a sample list and a DICOM folder cannot be combined")
	case cfg.SamplesFile != "":
		src, err := samples.LoadBatch(cfg.SamplesFile, cfg.AliasesFile)
		if err != nil {
			return samples.Source{}, err
		}
		logger.Info("read sample list", "path", cfg.SamplesFile, "samples", src.Samples, "patients", len(src.Patients))
		return src, nil
	case cfg.DicomFolder != "":
		return scanDicom(ctx, cfg, res, logger)
	default:
		return samples.Source{}, errors.New("either a sample list or a DICOM folder is required")
	}
}

func scanDicom(ctx context.Context, cfg Config, res *Result, logger *slog.Logger) (samples.Source, error) {
	files, err := dcm.FindDicomFiles(cfg.DicomFolder, cfg.Recursive)
	if err != nil {
		return samples.Source{}, fmt.Errorf("could not find DICOM files: %w", err)
	}
	logger.Info("found DICOM files", "folder", cfg.DicomFolder, "files", len(files))

	tracker, err := progress.NewTracker(cfg.ScanCache)
	if err != nil {
		return samples.Source{}, err
	}
	errLog, err := progress.NewErrorLogger(cfg.ErrorLog)
	if err != nil {
		return samples.Source{}, fmt.Errorf("could not create error logger: %w", err)
	}
	defer errLog.Close()

	scan, err := dcm.CollectPatients(ctx, files, tracker, errLog, cfg.Progress)
	if err != nil {
		return samples.Source{}, err
	}
	if err := tracker.Save(); err != nil {
		logger.Warn("could not save scan cache", "error", err)
	}

	for _, e := range errLog.Entries() {
		logger.Debug("skipped file", "file", e.File, "error", e.Error)
	}
	res.Stats.Files = scan.Files
	res.Stats.CachedFiles = scan.Cached
	res.Stats.SkippedFiles = scan.Skipped
	res.ErrorSummary = errLog.Summary()
	logger.Info("scanned DICOM files", "patients", len(scan.Patients), "cached", scan.Cached, "skipped", scan.Skipped)

	aliases, err := samples.LoadAliases(cfg.AliasesFile)
	if err != nil {
		return samples.Source{}, err
	}
	return samples.Source{Patients: scan.Patients, Samples: scan.Files - scan.Skipped, Aliases: aliases}, nil
}

func countEntries(stats *Stats, prior, out *identity.Output) {
	for _, e := range out.Entries() {
		before, ok := prior.Entry(e.Source)
		switch {
		case !ok:
			stats.NewEntries++
		case before != e:
			stats.UpdatedEntries++
		default:
			stats.CarriedEntries++
		}
	}
	stats.Identities = len(out.Identities())
}

// GenerateSecretKey generates a cryptographically secure 32-character hex key
func GenerateSecretKey() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(bytes)
}
