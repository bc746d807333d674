package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/config"
	"github.com/iwvelando/cashflow-planner/internal/dispatch"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/server"
	"github.com/iwvelando/cashflow-planner/internal/store/seed"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/output"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// Process modes.
const (
	modeOptimize = "optimize"
	modeServe    = "serve"
	modeWorker   = "worker"
	modeSeed     = "seed"
	modeDispatch = "dispatch"
	modeEnqueue  = "enqueue"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	// stdout carries reports; logs go to stderr unless a file is configured.
	zapConfig.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

type options struct {
	configLocation string
	envFile        string
	outputFormat   string
	logLevel       string
	mode           string
	scenario       string
	objective      string
	cash           string
	seed           int64
	op             string
	payload        string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fset := flag.NewFlagSet("cashflow-planner", flag.ContinueOnError)
	fset.StringVar(&opts.configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	fset.StringVar(&opts.envFile, "env", ".env", "optional dotenv file loaded before the configuration")
	fset.StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json, yaml")
	fset.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	fset.StringVar(&opts.mode, "mode", modeOptimize, "optimize, serve, worker, seed, dispatch or enqueue")
	fset.StringVar(&opts.scenario, "scenario", string(workingcapital.ScenarioBase), "working-capital scenario: base, conservative, aggressive")
	fset.StringVar(&opts.objective, "objective", string(receivables.ObjectiveBalanced), "collection objective: cash_flow, relationship, balanced")
	fset.StringVar(&opts.cash, "cash", "", "cash position override; defaults to the configured initial cash")
	fset.Int64Var(&opts.seed, "seed", 42, "random seed for sample data")
	fset.StringVar(&opts.op, "op", "", "operation name for dispatch and enqueue modes")
	fset.StringVar(&opts.payload, "payload", "", "JSON payload for dispatch and enqueue modes")
	if err := fset.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// loadEnv reads a dotenv file into the process environment. A missing file is
// not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := loadEnv(opts.envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load environment\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	conf, err := config.LoadConfiguration(opts.configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", opts.configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if opts.outputFormat != "" {
		conf.Output.Format = opts.outputFormat
	}
	if err := conf.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.String("op", "main"), zap.Error(err))
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, conf, opts, datetime.SystemClock, os.Stdout); err != nil {
		logger.Error("run failed",
			zap.String("op", "main"),
			zap.String("mode", opts.mode),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run executes one process mode. Reports and dispatch responses go to out.
func run(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts options, clock datetime.Clock, out io.Writer) error {
	switch opts.mode {
	case modeEnqueue:
		return runEnqueue(ctx, logger, conf, opts, out)
	case modeOptimize, modeServe, modeWorker, modeSeed, modeDispatch:
	default:
		return validation.Errorf("mode", "unknown mode %q", opts.mode)
	}

	// Seed mode writes the sample itself, so boot-time seeding is skipped.
	seedOnBoot := conf.Storage.SeedSample && opts.mode != modeSeed
	if !seedOnBoot {
		c := *conf
		c.Storage.SeedSample = false
		conf = &c
	}

	a, err := buildApp(ctx, logger, conf, clock, opts.seed)
	if err != nil {
		return err
	}
	defer a.Close()

	switch opts.mode {
	case modeOptimize:
		return runOptimize(ctx, a, conf, opts, out)
	case modeServe:
		return runServe(ctx, logger, a, conf)
	case modeWorker:
		return runWorker(ctx, a, conf)
	case modeSeed:
		n, err := seed.Apply(ctx, logger, a.seedTarget, seed.Generate(opts.seed, clock()))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "created %d sample invoices\n", n)
		return err
	case modeDispatch:
		resp := a.service.Dispatch(ctx, opts.op, json.RawMessage(opts.payload))
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if resp.Status != dispatch.StatusSuccess {
			return errors.New(resp.Error)
		}
	}
	return nil
}

func parseCash(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	cash, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, validation.Errorf("cash", "invalid cash position %q", value)
	}
	return &cash, nil
}

// runOptimize plans working capital and both ledgers from one cash position
// and writes a combined report.
func runOptimize(ctx context.Context, a *app, conf *config.Configuration, opts options, out io.Writer) error {
	cash, err := parseCash(opts.cash)
	if err != nil {
		return err
	}
	scenario, err := workingcapital.ParseScenario(opts.scenario)
	if err != nil {
		return err
	}
	objective, err := receivables.ParseObjective(opts.objective)
	if err != nil {
		return err
	}

	wc, err := a.service.OptimizeWorkingCapital(ctx, dispatch.WorkingCapitalRequest{
		CashPosition: cash,
		Scenario:     string(scenario),
		Objective:    string(objective),
	})
	if err != nil {
		return err
	}
	position := wc.InitialCash

	ap, err := a.service.OptimizePayables(ctx, dispatch.PayablesRequest{CashPosition: position})
	if err != nil {
		return err
	}
	ar, err := a.service.OptimizeReceivables(ctx, dispatch.ReceivablesRequest{CashPosition: position, Objective: string(objective)})
	if err != nil {
		return err
	}

	return output.Write(out, conf.Output.Format, output.Report{
		WorkingCapital: wc,
		Payables:       ap,
		Receivables:    ar,
	})
}

func runServe(ctx context.Context, logger *zap.Logger, a *app, conf *config.Configuration) error {
	handler, err := server.NewHandler(logger, a.service, server.NewMetrics(a.registry), server.Options{
		RateLimit:   conf.Server.RateLimit,
		MaxBodySize: conf.Server.MaxBodySize,
		Version:     version,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server listening",
		zap.String("op", "main.runServe"),
		zap.String("address", conf.Server.Address),
		zap.String("version", version),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("server shutting down", zap.String("op", "main.runServe"))
	return srv.Shutdown(shutdownCtx)
}

func runWorker(ctx context.Context, a *app, conf *config.Configuration) error {
	worker, err := dispatch.NewWorker(a.service, dispatch.WorkerConfig{
		RedisAddr:   conf.Worker.RedisAddr,
		Concurrency: conf.Worker.Concurrency,
		Queue:       conf.Worker.Queue,
	})
	if err != nil {
		return err
	}
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runEnqueue hands one operation to the worker queue instead of running it.
func runEnqueue(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts options, out io.Writer) error {
	if conf.Worker.RedisAddr == "" {
		return validation.Errorf("worker.redisAddr", "enqueue requires a redis address")
	}
	if !dispatch.KnownOperation(opts.op) {
		return validation.Errorf("op", "unknown operation %q", opts.op)
	}
	var payload json.RawMessage
	if opts.payload != "" {
		payload = json.RawMessage(opts.payload)
		if !json.Valid(payload) {
			return validation.Errorf("payload", "payload is not valid JSON")
		}
	}

	client := dispatch.NewClient(conf.Worker.RedisAddr, conf.Worker.Queue)
	defer func() {
		_ = client.Close()
	}()
	id, err := client.Enqueue(ctx, opts.op, payload)
	if err != nil {
		return err
	}
	logger.Info("operation enqueued",
		zap.String("op", "main.runEnqueue"),
		zap.String("operation", opts.op),
		zap.String("task", id),
	)
	_, err = fmt.Fprintln(out, id)
	return err
}
