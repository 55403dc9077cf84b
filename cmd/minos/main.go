// Command minos bulk-checks a CSV of postal-code/address records against
// the lookup service and writes a result CSV. Run events stream to the log
// and, optionally, to a NATS subject; finished results can be archived to
// Azure Blob Storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/wehubfusion/Minos/internal/tracing"
	"github.com/wehubfusion/Minos/pkg/csvio"
	"github.com/wehubfusion/Minos/pkg/engine"
	"github.com/wehubfusion/Minos/pkg/lookup"
	"github.com/wehubfusion/Minos/pkg/report"
	"github.com/wehubfusion/Minos/pkg/row"
	"github.com/wehubfusion/Minos/pkg/settings"
	"github.com/wehubfusion/Minos/pkg/storage"
	"go.uber.org/zap"
)

func main() {
	var (
		inputPath     = flag.String("input", "", "input CSV path (required)")
		outputPath    = flag.String("output", "result.csv", "result CSV path")
		lookupURL     = flag.String("lookup-url", "http://127.0.0.1:8787", "base URL of the lookup service")
		parallel      = flag.Int("parallel", 1, "worker count (1-8)")
		scopeFlag     = flag.String("scope", "all", "run scope: all | single | from")
		targetLine    = flag.Int("line", 0, "target line for single/from scopes")
		settingsPath  = flag.String("settings", settings.DefaultPath, "settings file path")
		natsURL       = flag.String("nats-url", "", "publish run events to this NATS server (optional)")
		natsSubject   = flag.String("nats-subject", "minos.events", "NATS subject for run events")
		blobContainer = flag.String("blob-container", "minos-results", "blob container for result archives")
		otlpEndpoint  = flag.String("otlp-endpoint", "", "OTLP HTTP endpoint for traces (optional)")
		devLog        = flag.Bool("dev-log", false, "use human-readable development logging")
	)
	flag.Parse()

	logger := newLogger(*devLog)
	defer logger.Sync()

	if *inputPath == "" {
		logger.Fatal("missing -input flag")
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: "minos"}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(logger, config{
		inputPath:     *inputPath,
		outputPath:    *outputPath,
		lookupURL:     *lookupURL,
		parallel:      *parallel,
		scope:         engine.RunScope(*scopeFlag),
		targetLine:    *targetLine,
		settingsPath:  *settingsPath,
		natsURL:       *natsURL,
		natsSubject:   *natsSubject,
		blobContainer: *blobContainer,
		otlpEndpoint:  *otlpEndpoint,
	}); err != nil {
		sentry.CaptureException(err)
		logger.Fatal("run failed", zap.Error(err))
	}
}

type config struct {
	inputPath     string
	outputPath    string
	lookupURL     string
	parallel      int
	scope         engine.RunScope
	targetLine    int
	settingsPath  string
	natsURL       string
	natsSubject   string
	blobContainer string
	otlpEndpoint  string
}

func run(logger *zap.Logger, cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.otlpEndpoint != "" {
		tc := tracing.DefaultConfig("minos")
		tc.OTLPEndpoint = cfg.otlpEndpoint
		shutdown, err := tracing.Setup(ctx, tc, logger)
		if err != nil {
			logger.Warn("tracing setup failed, continuing without tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(shutdown, logger)
		}
	}

	// The settings file is shared with the lookup process; loading validates
	// it and materializes defaults on first run.
	cfgSettings, err := settings.Load(cfg.settingsPath)
	if err != nil {
		return err
	}
	if err := settings.Save(cfg.settingsPath, cfgSettings); err != nil {
		return err
	}

	records, err := csvio.ReadFile(cfg.inputPath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s", cfg.inputPath)
	}

	rows, defective := row.ValidateRecords(records)
	logger.Info("csv loaded",
		zap.String("path", cfg.inputPath),
		zap.Int("rows", len(rows)),
		zap.Ints("defective_lines", defective))

	service, err := lookup.NewHTTPService(lookup.HTTPConfig{
		BaseURL: cfg.lookupURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		Service: service,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// A stop signal halts new task pickup and aborts in-flight lookups;
	// rows already judged keep their results and are still written out.
	go func() {
		<-ctx.Done()
		eng.Stop()
	}()

	rowPtrs := make([]*row.Row, len(rows))
	for i := range rows {
		rowPtrs[i] = &rows[i]
	}

	runID := uuid.NewString()
	events, err := eng.Run(ctx, engine.RunRequest{
		Rows:        rowPtrs,
		Scope:       cfg.scope,
		TargetLine:  cfg.targetLine,
		Parallelism: cfg.parallel,
		RunID:       runID,
	})
	if err != nil {
		return err
	}

	if cfg.natsURL != "" {
		bridge, err := report.NewBridge(report.Config{
			URL:     cfg.natsURL,
			Subject: cfg.natsSubject,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer bridge.Close()
		events = bridge.Tee(ctx, runID, events)
	}

	done := consume(logger, events)

	if err := csvio.WriteResults(cfg.outputPath, rows); err != nil {
		return err
	}
	logger.Info("result csv written", zap.String("path", cfg.outputPath))

	if conn := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); conn != "" {
		if err := archive(ctx, logger, conn, cfg.blobContainer, runID, rows, done); err != nil {
			logger.Warn("result archive failed", zap.Error(err))
		}
	}

	if done.Cancelled {
		logger.Warn("run cancelled", zap.Ints("failed_lines", done.FailedLines))
		return nil
	}
	if len(done.FailedLines) > 0 {
		logger.Warn("run completed with failures", zap.Ints("failed_lines", done.FailedLines))
	} else {
		logger.Info("run completed")
	}
	return nil
}

// consume drains the event stream, logging as it goes, and returns the
// final Done event.
func consume(logger *zap.Logger, events <-chan engine.Event) engine.Done {
	var done engine.Done
	for ev := range events {
		switch e := ev.(type) {
		case engine.RowUpdated:
			logger.Info("row judged",
				zap.Int("line", e.Row.LineNumber),
				zap.String("judgement", string(e.Row.Judgement)),
				zap.String("note", e.Row.Note))
		case engine.WorkerLog:
			logger.Debug("worker log",
				zap.Int("workerID", e.WorkerID),
				zap.String("message", e.Message))
		case engine.Progress:
			logger.Info("progress",
				zap.Int("current", e.Current),
				zap.Int("total", e.Total))
		case engine.Done:
			done = e
		}
	}
	return done
}

func archive(ctx context.Context, logger *zap.Logger, conn, container, runID string, rows []row.Row, done engine.Done) error {
	archiver, err := storage.NewArchiver(conn, container, logger)
	if err != nil {
		return err
	}
	data, err := csvio.MarshalResults(rows)
	if err != nil {
		return err
	}
	url, err := archiver.Archive(ctx, data, storage.RunMetadata{
		RunID:       runID,
		TotalRows:   len(rows),
		FailedRows:  len(done.FailedLines),
		Cancelled:   done.Cancelled,
		CompletedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	logger.Info("result archived", zap.String("blob_url", url))
	return nil
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
