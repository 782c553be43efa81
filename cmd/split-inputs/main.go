package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/cache"
	"github.com/raaihank/regex-splitter/internal/config"
	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/logger"
	"github.com/raaihank/regex-splitter/internal/matcher"
	"github.com/raaihank/regex-splitter/internal/report"
	"github.com/raaihank/regex-splitter/internal/source"
	"github.com/raaihank/regex-splitter/internal/splitter"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	format      string
	dialect     string
	average     string
	percentiles bool
	noCache     bool
	clearCache  bool
	showVersion bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("split-inputs", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "configs/default.yaml", "Configuration file path")
	fs.StringVar(&opts.format, "format", "", "Source format: jsonl, csv, parquet or postgres (default: detect)")
	fs.StringVar(&opts.dialect, "dialect", "", "Regex dialect: ecmascript or re2 (default: from config)")
	fs.StringVar(&opts.average, "average", "", "Report the averages of an existing output file and exit")
	fs.BoolVar(&opts.percentiles, "percentiles", false, "With --average, also report the percentile distribution")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Disable the Redis result cache for this run")
	fs.BoolVar(&opts.clearCache, "clear-cache", false, "Delete all cached results and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "split-inputs %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	if opts.average == "" && !opts.clearCache && fs.NArg() == 0 {
		err := &dataset.UsageError{Msg: "Input file path is required"}
		fmt.Fprintln(stderr, err)
		usage(fs)
		return 1
	}

	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if opts.dialect != "" {
		cfg.Splitter.Dialect = opts.dialect
	}
	if opts.format != "" {
		cfg.Splitter.SourceFormat = opts.format
	}

	log, err := newLogger(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log = log.WithRunID(uuid.NewString())

	if opts.clearCache {
		return clearCache(ctx, cfg, log)
	}

	if opts.average != "" {
		averager := report.NewAverager(log.Logger)
		averager.Report(opts.average)
		if opts.percentiles {
			averager.ReportPercentiles(opts.average, report.DefaultPercentiles())
		}
		return 0
	}

	input := fs.Arg(0)
	output := cfg.Splitter.DefaultOutput
	if fs.NArg() > 1 {
		output = fs.Arg(1)
	}

	sp, cleanup, err := newSplitter(cfg, log, opts.noCache)
	if err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return 1
	}
	defer cleanup()

	log.Info("Starting split",
		zap.String("version", version),
		zap.String("input", input),
		zap.String("output", output),
		zap.String("dialect", string(sp.Config().Dialect)))

	if _, err := sp.SplitFile(ctx, input, output); err != nil {
		log.Error("Split failed", zap.Error(err))
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [options] <input_file_path> [output_file_path]\n", fs.Name())
	fmt.Fprintf(out, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(out, "\nExamples:\n")
	fmt.Fprintf(out, "  %s entries.jsonl\n", fs.Name())
	fmt.Fprintf(out, "  %s --dialect re2 entries.csv split.json\n", fs.Name())
	fmt.Fprintf(out, "  %s --average split.json --percentiles\n", fs.Name())
	fmt.Fprintf(out, "  %s --clear-cache\n", fs.Name())
}

// newLogger builds the diagnostic logger on the configured stream
func newLogger(cfg *config.Config, stdout, stderr io.Writer) (*logger.Logger, error) {
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Writer: stderr,
	}
	if cfg.Logging.Output == "stdout" {
		loggerConfig.Writer = stdout
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}
	return logger.New(loggerConfig)
}

// newSplitter wires the splitter with the optional result cache. A cache
// that cannot connect is reported and skipped.
func newSplitter(cfg *config.Config, log *logger.Logger, noCache bool) (*splitter.Splitter, func(), error) {
	dialect, err := matcher.ParseDialect(cfg.Splitter.Dialect)
	if err != nil {
		return nil, nil, err
	}

	var opts []splitter.Option
	cleanup := func() {}

	if cfg.Cache.Enabled && !noCache {
		mc, err := newMatchCache(cfg, log)
		if err != nil {
			log.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			opts = append(opts, splitter.WithCache(mc))
			cleanup = func() { mc.Close() }
		}
	}

	sp := splitter.New(splitter.Config{
		Dialect:      dialect,
		MatchTimeout: cfg.Splitter.MatchTimeout,
		Separator:    cfg.Splitter.Separator,
		Source: source.Options{
			Format:       source.Format(cfg.Splitter.SourceFormat),
			CSVHasHeader: cfg.Source.CSV.HasHeader,
			Postgres: source.PostgresOptions{
				Query:           cfg.Source.Postgres.Query,
				MaxOpenConns:    cfg.Source.Postgres.MaxOpenConns,
				MaxIdleConns:    cfg.Source.Postgres.MaxIdleConns,
				ConnMaxLifetime: cfg.Source.Postgres.ConnMaxLifetime,
			},
			Logger: log.WithComponent("source").Logger,
		},
	}, log.WithComponent("splitter").Logger, opts...)

	return sp, cleanup, nil
}

func newMatchCache(cfg *config.Config, log *logger.Logger) (*cache.MatchCache, error) {
	return cache.NewMatchCache(&cache.Config{
		RedisURL:       cfg.Cache.RedisURL,
		MaxConnections: cfg.Cache.MaxConnections,
		MinIdleConns:   cfg.Cache.MinIdleConns,
		DefaultTTL:     cfg.Cache.DefaultTTL,
		KeyPrefix:      cfg.Cache.KeyPrefix,
	}, log.WithComponent("cache").Logger)
}

// clearCache empties the configured result cache, whether or not
// cache.enabled is set
func clearCache(ctx context.Context, cfg *config.Config, log *logger.Logger) int {
	mc, err := newMatchCache(cfg, log)
	if err != nil {
		log.Error("Failed to connect to result cache", zap.Error(err))
		return 1
	}
	defer mc.Close()

	deleted, err := mc.Clear(ctx)
	if err != nil {
		log.Error("Failed to clear result cache", zap.Error(err))
		return 1
	}
	log.Info("Result cache cleared", zap.Int("deleted_keys", deleted))
	return 0
}
