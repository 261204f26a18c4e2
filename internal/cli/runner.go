package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hmf-id-generator/internal/anonymizer"
	"hmf-id-generator/internal/config"
	"hmf-id-generator/internal/store"
)

// NewLogger builds the run logger from the log settings.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Run executes one id generation pass from the command line
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return run(ctx, cfg, logger, os.Stdout)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Input.DicomFolder != "" {
		info, err := os.Stat(cfg.Input.DicomFolder)
		if err != nil {
			return fmt.Errorf("input folder does not exist: %s", cfg.Input.DicomFolder)
		}
		if !info.IsDir() {
			return fmt.Errorf("input path is not a directory: %s", cfg.Input.DicomFolder)
		}
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	printHeader(out, cfg)

	runCfg := anonymizer.Config{
		SamplesFile: cfg.Input.Samples,
		AliasesFile: cfg.Input.Aliases,
		DicomFolder: cfg.Input.DicomFolder,
		Recursive:   cfg.Input.Recursive,
		ScanCache:   cfg.Input.ScanCache,
		ErrorLog:    cfg.Input.ErrorLog,
		ExportFile:  cfg.Output.Export,
		Secret:      cfg.Secret,
		DryRun:      cfg.DryRun,
	}
	if runCfg.DicomFolder != "" && runCfg.ScanCache == "" {
		runCfg.ScanCache = filepath.Join(runCfg.DicomFolder, ".idgen", "scan.json")
	}

	pb := newProgressBar(out, 50)
	if runCfg.DicomFolder != "" {
		runCfg.Progress = func(current, total int, filename, status string) {
			pb.update(current, total)
		}
	}

	res, err := anonymizer.Run(ctx, runCfg, st, logger)
	if pb.drawn {
		fmt.Fprintln(out)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printSummary(out, cfg, res)
	return nil
}

// PrintUsage prints CLI usage information
func PrintUsage() {
	fmt.Println(`HMF Patient ID Generator

USAGE:
  idgenerator                               Launch GUI (default)
  idgenerator -s <samples> [flags]          Run on a sample list
  idgenerator -d <dicom folder> [flags]     Run on the PatientIDs of a DICOM folder

SECRET KEY:
  The secret key (-k) keys the HMAC digest of every patient id.

  * Use the SAME key on every run. A new key rehashes every patient in the
    batch; sequence ids (HMF000001, ...) are kept.
  * A key is only generated automatically while the mapping is empty.
  * Keep the key and the mapping file inside the secure environment.

FLAGS:
  -c, --config <path>     YAML configuration file (flags override it)
  -s, --samples <path>    Sample list, one sample id per line
  -d, --dicom <path>      DICOM folder; each file's PatientID is a patient
  -a, --aliases <path>    CSV of patient,canonical pairs declaring the same person
  -k, --key <key>         Secret key
  -m, --mapping <path>    Mapping file (default: patient_mapping.json)
      --store <backend>   file, redis or postgres
      --redis <url>       Redis URL for the redis store
      --postgres <url>    Postgres URL for the postgres store
  -e, --export <path>     Write the shareable id list (no patient ids)
  -r, --recursive         Search subdirectories of the DICOM folder (default: true)
  -n, --dry-run           Reconcile and report, save nothing
      --log-level <lvl>   debug, info, warn or error
      --log-format <fmt>  text or json
  -h, --help              Show this help message

ENVIRONMENT:
  Every setting can also be given as IDGEN_* variables, e.g. IDGEN_SECRET,
  IDGEN_SAMPLES, IDGEN_STORE, IDGEN_REDIS_URL, IDGEN_POSTGRES_URL.

EXAMPLES:
  # Preview what a new batch changes
  ./idgenerator -s samples.txt -a aliases.csv -k YOUR_SECRET_KEY -n

  # Assign ids and export the shareable list
  ./idgenerator -s samples.txt -a aliases.csv -k YOUR_SECRET_KEY -e share/ids.csv

  # Rotate the key: same sequence ids, new digests for the batch
  ./idgenerator -s samples.txt -k NEW_SECRET_KEY

SECURITY - KEEP THESE SECRET:
  1. Secret Key   - Anyone with the key and a patient id can recompute its digest.
  2. Mapping File - Maps patient ids to anonymized ids.

  Only the export file (-e) may be shared.`)
}

// printHeader prints the CLI header with configuration
func printHeader(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "HMF Patient ID Generator")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if cfg.Input.Samples != "" {
		fmt.Fprintf(w, "Samples:   %s\n", cfg.Input.Samples)
	} else {
		fmt.Fprintf(w, "DICOM:     %s\n", cfg.Input.DicomFolder)
	}
	if cfg.Input.Aliases != "" {
		fmt.Fprintf(w, "Aliases:   %s\n", cfg.Input.Aliases)
	}
	fmt.Fprintf(w, "Mapping:   %s\n", cfg.Store.Location())

	switch {
	case cfg.Secret == "":
		fmt.Fprintln(w, "Key:       (none, generated if the mapping is empty)")
	case len(cfg.Secret) > 8:
		fmt.Fprintf(w, "Key:       %s... (provided)\n", cfg.Secret[:8])
	default:
		fmt.Fprintln(w, "Key:       (provided)")
	}
	if cfg.DryRun {
		fmt.Fprintln(w, "Options:   Dry run")
	}
	fmt.Fprintln(w)
}

// printSummary prints the run summary
func printSummary(w io.Writer, cfg *config.Config, res *anonymizer.Result) {
	st := res.Stats
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if cfg.DryRun {
		fmt.Fprintln(w, "[DRY RUN] Nothing was saved.")
	} else {
		fmt.Fprintln(w, "Complete!")
	}
	if st.Files > 0 {
		fmt.Fprintf(w, "Files:      %d (%d cached, %d skipped)\n", st.Files, st.CachedFiles, st.SkippedFiles)
		if res.ErrorSummary != "" {
			fmt.Fprintf(w, "            %s\n", res.ErrorSummary)
		}
	} else {
		fmt.Fprintf(w, "Samples:    %d\n", st.Samples)
	}
	fmt.Fprintf(w, "Patients:   %d in batch, %d aliases\n", st.Patients, st.Aliases)
	fmt.Fprintf(w, "Entries:    %d new, %d updated, %d unchanged\n", st.NewEntries, st.UpdatedEntries, st.CarriedEntries)
	fmt.Fprintf(w, "Identities: %d (highest %s)\n", st.Identities, highestLabel(res))
	fmt.Fprintf(w, "Run:        %s\n", res.RunID)

	if len(res.Superseded) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Superseded ids:")
		for _, a := range res.Superseded {
			fmt.Fprintf(w, "  %s -> %s\n", a.Old.Label(), a.Canonical.Label())
		}
	}

	if res.GeneratedSecret != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Key:        %s\n", res.GeneratedSecret)
		fmt.Fprintln(w, "WARNING: Secret key was auto-generated!")
		fmt.Fprintln(w, "         SAVE THIS KEY. Every later run needs it.")
		fmt.Fprintln(w, "         Re-run with: -k "+res.GeneratedSecret)
	}
}

func highestLabel(res *anonymizer.Result) string {
	ids := res.Output.Identities()
	if len(ids) == 0 {
		return "none"
	}
	return ids[len(ids)-1].Label()
}

// progressBar represents a terminal progress bar
type progressBar struct {
	w     io.Writer
	width int
	drawn bool
}

// newProgressBar creates a new progress bar with specified width
func newProgressBar(w io.Writer, width int) *progressBar {
	return &progressBar{w: w, width: width}
}

// update updates the progress bar display
func (pb *progressBar) update(current, total int) {
	if total == 0 {
		return
	}

	percent := float64(current) / float64(total)
	filled := int(percent * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}

	bar := strings.Repeat("#", filled) + strings.Repeat("-", pb.width-filled)
	fmt.Fprintf(pb.w, "\r[%s] %3.0f%%  (%d/%d)", bar, percent*100, current, total)
	pb.drawn = true
}
