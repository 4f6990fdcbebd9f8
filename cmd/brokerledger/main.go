package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"github.com/brokerledger/brokerledger/cmd/brokerledger/cli"
	"github.com/brokerledger/brokerledger/internal/app"
	"github.com/brokerledger/brokerledger/internal/ingest"
	jobmetrics "github.com/brokerledger/brokerledger/internal/jobs"
	"github.com/brokerledger/brokerledger/internal/ledger"
	"github.com/brokerledger/brokerledger/internal/observability"
	reportinghttp "github.com/brokerledger/brokerledger/internal/reporting/http"
	"github.com/brokerledger/brokerledger/jobs"
	"github.com/brokerledger/brokerledger/report"
)

const usage = `usage: brokerledger <command> [flags]

commands:
  serve                              run the HTTP API (default)
  init-db [-drop]                    create the database and the transactions table
  ingest [-parallel n] [-json] f.pdf parse statements and store their records
  report [-kind k] [-format f]       print reports (kind: all|brokers|totals|tiers, format: json|csv|xlsx)
  loan-total -from d -to d           sum of loans settled in [from, to] (YYYY-MM-DD)
  max-loan -broker name              largest loan settled by a broker
  jobs stats|warmup                  inspect the queue or trigger a report warmup
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping startup")
		return
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "init-db":
		return initDB(ctx, cfg, logger, args)
	case "ingest", "report", "loan-total", "max-loan":
		return ledgerCommand(ctx, cfg, logger, command, args)
	case "jobs":
		return jobsCommand(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "brokerledger: unknown command %q\n\n%s", command, usage)
		return 2
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	services, err := app.NewServices(ctx, cfg, logger, jobMetrics)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		return 1
	}
	defer services.Close()

	if err := services.Reports.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}

	redisOpts := cfg.QueueRedis()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		return 1
	}
	defer func() { _ = jobClient.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		logger.Error("create upload dir", slog.String("dir", cfg.UploadDir), slog.Any("error", err))
		return 1
	}

	renderer := report.NewRenderer(report.NewClient(cfg.GotenbergURL))
	if err := renderer.Ping(ctx); err != nil {
		logger.Warn("gotenberg unavailable, pdf reports will fail", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		IngestHandler: ingest.NewHandler(ingest.HandlerConfig{
			Ingester:  services.Ingest,
			Queue:     jobClient,
			UploadDir: cfg.UploadDir,
			MaxBytes:  cfg.UploadMaxBytes,
			Logger:    logger,
		}),
		ReportingHandler: reportinghttp.NewHandler(logger, services.Reports, services.Ledger, renderer),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
		return 1
	}
	logger.Info("http server stopped")
	return 0
}

func initDB(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)
	drop := fs.Bool("drop", false, "drop the database before creating it")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *drop {
		name, err := ledger.DatabaseName(cfg.PGDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init-db: %v\n", err)
			return 1
		}
		admin, err := pgx.Connect(ctx, cfg.PGAdminDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init-db: connect admin: %v\n", err)
			return 1
		}
		err = ledger.DropDatabase(ctx, admin, name)
		_ = admin.Close(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init-db: %v\n", err)
			return 1
		}
		logger.Info("database dropped", slog.String("database", name))
	}

	if err := ledger.Bootstrap(ctx, cfg.PGAdminDSN, cfg.PGDSN, ledger.TransactionSchema(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "init-db: %v\n", err)
		return 1
	}
	return 0
}

func ledgerCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	parallel := fs.Int("parallel", 2, "statements parsed concurrently (ingest)")
	jsonOut := fs.Bool("json", false, "print JSON summaries (ingest)")
	kind := fs.String("kind", cli.ReportKindAll, "report kind (report)")
	format := fs.String("format", "json", "output format (report)")
	from := fs.String("from", "", "first settlement date, YYYY-MM-DD (loan-total)")
	to := fs.String("to", "", "last settlement date, YYYY-MM-DD (loan-total)")
	broker := fs.String("broker", "", "broker name (max-loan)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	services, err := app.NewServices(ctx, cfg, logger, jobmetrics.NewMetrics(nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		return 1
	}
	defer services.Close()

	c := cli.NewLedgerCLI(services.Ingest, services.Reports, services.Ledger)
	switch command {
	case "ingest":
		return c.IngestCommand(ctx, cli.IngestOptions{Paths: fs.Args(), Parallel: *parallel, JSONOutput: *jsonOut})
	case "report":
		return c.ReportCommand(ctx, cli.ReportOptions{Kind: *kind, Format: *format})
	case "loan-total":
		return c.LoanTotalCommand(ctx, cli.LoanTotalOptions{From: *from, To: *to})
	default:
		return c.MaxLoanCommand(ctx, cli.MaxLoanOptions{Broker: *broker})
	}
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	action := "stats"
	if len(args) > 0 {
		action = args[0]
	}
	c, err := cli.NewJobsCLI(cfg.QueueRedis())
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = c.Close() }()
	return c.JobsCommand(ctx, cli.JobsOptions{Action: action})
}
