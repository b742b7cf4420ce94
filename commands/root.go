package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"classconnect-scraper/config"
	"classconnect-scraper/models"
	"classconnect-scraper/scraper/registration"
	"classconnect-scraper/services"
	"classconnect-scraper/storage"
	"classconnect-scraper/utils"
)

const retryBaseDelay = 500 * time.Millisecond

type app struct {
	stdout io.Writer
	stderr io.Writer
	failed []models.PersistResult
}

type errorOutput struct {
	Error  string                 `json:"error"`
	Hints  []string               `json:"hints,omitempty"`
	Failed []models.PersistResult `json:"failed,omitempty"`
}

// Execute runs the CLI with args (without the program name) and returns the process
// exit code. SIGINT and SIGTERM cancel the run.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: stdout, stderr: stderr}
	root := a.newRootCommand()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		a.writeError(err)
		return 1
	}
	return 0
}

func (a *app) newRootCommand() *cobra.Command {
	flags := config.DefaultScraperConfig()

	root := &cobra.Command{
		Use:   "classconnect-scraper",
		Short: "Scrape the YES class catalog and optionally load it into PocketBase.",
		Long: `classconnect-scraper pulls courses, subjects or terms from the registration system,
deduplicates and sorts them, prints them as JSON and, with --save, creates them in the
configured backend one record at a time.`,
		Example: `  classconnect-scraper --function=subjects
  classconnect-scraper --function=courses --term=1040 --limit=50
  classconnect-scraper --function=courses --save --offset=200 --batchSize=100`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE:               a.run,
	}
	// Registered for usage output only; parsing goes through config.ParseArgs.
	config.RegisterFlags(root.Flags(), &flags)

	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.AddCommand(newFunctionsCommand())
	return root
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	sc, err := config.ParseArgs(args)
	if err != nil {
		return errors.WithHint(err, "run with --help for usage")
	}
	if sc.Help {
		return cmd.Help()
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	env, err := config.Load(sc.ConfigFile)
	if err != nil {
		return err
	}

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: env.LogLevel, JSON: env.LogJSON, Output: a.stderr})
	defer func() { _ = logger.Sync() }()
	if !env.EnvFileLoaded {
		logger.Debug("[config] No .env file found, using process environment")
	}

	ctx := cmd.Context()
	if sc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
	}

	catalog, closeCatalog, err := newCatalog(env, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	opts := services.RunnerOptions{}

	if sc.RawCSV != "" {
		rawWriter, err := storage.NewCSVWriter(sc.RawCSV)
		if err != nil {
			return err
		}
		defer func() {
			if err := rawWriter.Close(); err != nil {
				logger.Warn("[main] Closing %s: %v", sc.RawCSV, err)
				return
			}
			logger.Info("[main] Raw records saved to %s (%d rows)", sc.RawCSV, rawWriter.Rows())
		}()
		opts.Raw = rawWriter
	}

	if sc.Save {
		backend, err := openSink(ctx, sc.Sink, env, logger)
		if err != nil {
			return err
		}
		defer backend.close()
		opts.Persister = services.NewPersister(backend.writer, services.PersisterOptions{
			Interval:       env.RateLimit(),
			MaxConcurrency: env.MaxConcurrency,
		}, logger)
		opts.Counter = backend.counter
	}

	result, err := services.NewRunner(catalog, opts, logger).Run(ctx, sc)
	if result != nil && result.Report != nil {
		summary := services.NewSummaryService(logger)
		summary.Print(a.stderr, summary.Generate(result))
		a.failed = result.Report.Failures()
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result.Records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode result")
	}
	_, err = fmt.Fprintln(a.stdout, string(out))
	return err
}

func (a *app) writeError(err error) {
	out := errorOutput{
		Error:  err.Error(),
		Hints:  errors.GetAllHints(err),
		Failed: a.failed,
	}
	enc := json.NewEncoder(a.stderr)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		fmt.Fprintln(a.stderr, err)
	}
}

func newCatalog(env *config.Config, logger *utils.Logger) (*registration.Client, func(), error) {
	retry := &utils.RetryConfig{MaxAttempts: env.MaxRetries, BaseDelay: retryBaseDelay, Logger: logger}

	if env.RegistrationBrowser {
		browser, err := registration.NewBrowserLoader(env.RegistrationBaseURL, env.ChromeBin, env.HTTPTimeout, retry, logger)
		if err != nil {
			return nil, nil, err
		}
		return registration.NewClient(browser, env.RegistrationMaxPages, logger), browser.Close, nil
	}

	loader, err := registration.NewHTTPLoader(env.RegistrationBaseURL, registration.LoaderOptions{
		Timeout: env.HTTPTimeout,
		RPS:     env.RegistrationRPS,
		Retry:   retry,
	})
	if err != nil {
		return nil, nil, err
	}
	return registration.NewClient(loader, env.RegistrationMaxPages, logger), func() {}, nil
}

type sink struct {
	writer  storage.RecordWriter
	counter storage.Counter
	close   func()
}

// openSink builds and authenticates the backend client before any record is fetched, so
// bad credentials fail the run early.
func openSink(ctx context.Context, name string, env *config.Config, logger *utils.Logger) (*sink, error) {
	switch name {
	case config.SinkPostgres:
		pg, err := storage.NewPostgresWriter(ctx, env.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("[main] Writing to PostgreSQL (table catalog_records)")
		return &sink{writer: pg, counter: pg, close: func() { _ = pg.Close() }}, nil

	default:
		pb := storage.NewPocketBaseClient(env.PocketBaseURL, env.HTTPTimeout, logger)
		if err := pb.Authenticate(ctx, env.PocketBaseAuthCollection, env.PocketBaseUsername, env.PocketBasePassword); err != nil {
			return nil, err
		}
		return &sink{writer: pb, counter: pb, close: func() {}}, nil
	}
}
