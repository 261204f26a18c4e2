package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hmf-id-generator/internal/cli"
	"hmf-id-generator/internal/config"
	"hmf-id-generator/internal/gui"
)

// options holds every command line flag. Long and short names share one
// destination, so the last one given wins.
type options struct {
	configFile  string
	samples     string
	dicomFolder string
	aliases     string
	key         string
	mapping     string
	backend     string
	redisURL    string
	postgresURL string
	export      string
	recursive   bool
	dryRun      bool
	logLevel    string
	logFormat   string
	help        bool
}

func newFlagSet() (*flag.FlagSet, *options) {
	o := &options{}
	fs := flag.NewFlagSet("idgenerator", flag.ContinueOnError)

	fs.StringVar(&o.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&o.configFile, "c", "", "Config file (shorthand)")

	fs.StringVar(&o.samples, "samples", "", "Sample list file")
	fs.StringVar(&o.samples, "s", "", "Sample list (shorthand)")

	fs.StringVar(&o.dicomFolder, "dicom", "", "DICOM folder")
	fs.StringVar(&o.dicomFolder, "d", "", "DICOM folder (shorthand)")

	fs.StringVar(&o.aliases, "aliases", "", "Alias CSV file")
	fs.StringVar(&o.aliases, "a", "", "Alias file (shorthand)")

	fs.StringVar(&o.key, "key", "", "Secret key")
	fs.StringVar(&o.key, "k", "", "Secret key (shorthand)")

	fs.StringVar(&o.mapping, "mapping", "", "Mapping file path")
	fs.StringVar(&o.mapping, "m", "", "Mapping file (shorthand)")

	fs.StringVar(&o.backend, "store", "", "Store backend: file, redis or postgres")
	fs.StringVar(&o.redisURL, "redis", "", "Redis URL")
	fs.StringVar(&o.postgresURL, "postgres", "", "Postgres URL")

	fs.StringVar(&o.export, "export", "", "Shareable id list")
	fs.StringVar(&o.export, "e", "", "Export file (shorthand)")

	fs.BoolVar(&o.recursive, "recursive", true, "Search subdirectories")
	fs.BoolVar(&o.recursive, "r", true, "Recursive (shorthand)")

	fs.BoolVar(&o.dryRun, "dry-run", false, "Reconcile without saving")
	fs.BoolVar(&o.dryRun, "n", false, "Dry run (shorthand)")

	fs.StringVar(&o.logLevel, "log-level", "", "Log level")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format: text or json")

	fs.BoolVar(&o.help, "help", false, "Show help message")
	fs.BoolVar(&o.help, "h", false, "Help (shorthand)")

	fs.Usage = cli.PrintUsage
	return fs, o
}

// apply copies the flags given on the command line onto cfg. Flags left at
// their defaults do not touch values from the config file or environment.
func (o *options) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "samples", "s":
			cfg.Input.Samples = o.samples
		case "dicom", "d":
			cfg.Input.DicomFolder = o.dicomFolder
		case "aliases", "a":
			cfg.Input.Aliases = o.aliases
		case "key", "k":
			cfg.Secret = o.key
		case "mapping", "m":
			cfg.Store.File.Path = o.mapping
		case "store":
			cfg.Store.Backend = o.backend
		case "redis":
			cfg.Store.Redis.URL = o.redisURL
		case "postgres":
			cfg.Store.Postgres.URL = o.postgresURL
		case "export", "e":
			cfg.Output.Export = o.export
		case "recursive", "r":
			cfg.Input.Recursive = o.recursive
		case "dry-run", "n":
			cfg.DryRun = o.dryRun
		case "log-level":
			cfg.Log.Level = o.logLevel
		case "log-format":
			cfg.Log.Format = o.logFormat
		}
	})
}

// loadConfig resolves the configuration: the -c file if given, otherwise
// IDGEN_* environment variables, then explicit flags on top.
func loadConfig(fs *flag.FlagSet, o *options) (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	o.apply(fs, cfg)
	return cfg, nil
}

func main() {
	fs, opts := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if opts.help {
		cli.PrintUsage()
		return
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cli.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// No input = GUI mode
	if cfg.Input.Samples == "" && cfg.Input.DicomFolder == "" {
		gui.NewApp(cfg, logger).Run()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
