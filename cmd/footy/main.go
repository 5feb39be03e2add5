package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/richard-senior/footy/internal/config"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/internal/processor"
	"github.com/richard-senior/footy/pkg/api"
	"github.com/richard-senior/footy/pkg/datasource"
	"github.com/richard-senior/footy/pkg/notify"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/richard-senior/footy/pkg/server"
	"github.com/richard-senior/footy/pkg/store"
	"github.com/richard-senior/footy/pkg/tools"
	"github.com/richard-senior/footy/pkg/transport"
	"github.com/robfig/cron/v3"
)

const usage = `Usage:
  footy [-config file] [-mcp]           serve the HTTP API, or MCP over stdio with -mcp
  footy [-config file] predict [-input file] [-details=false]
                                        predict a raw match JSON document (stdin when no file)
`

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	mcpMode := flag.Bool("mcp", false, "Serve MCP over stdin/stdout instead of HTTP")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *mcpMode {
		logger.SetMCPMode(true)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}
	if err := cfg.ApplyLogging(); err != nil {
		logger.Fatal("Failed to configure logging", err)
	}
	if *mcpMode {
		logger.SetMCPMode(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		logger.Fatal("Failed to initialise", err)
	}

	var runErr error
	args := flag.Args()
	switch {
	case len(args) > 0 && args[0] == "predict":
		// stdout is reserved for the prediction document
		logger.SetMCPMode(true)
		runErr = runPredict(ctx, a, args[1:])
	case len(args) > 0:
		flag.Usage()
		runErr = fmt.Errorf("unknown command: %s", args[0])
	case *mcpMode:
		a.startCron()
		runErr = runMCP(ctx, a)
	default:
		a.startCron()
		runErr = runHTTP(ctx, cfg, a)
	}

	a.Close()
	if runErr != nil {
		logger.Error("footy stopped with error", runErr)
		os.Exit(1)
	}
}

/////////////////////////////////////////////////////////////////////////
////// Wiring
/////////////////////////////////////////////////////////////////////////

type app struct {
	db     *store.DB
	client *datasource.Client
	engine *predictor.Engine
	cron   *cron.Cron
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{}

	var history *predictor.History
	if path := cfg.Storage.DBPath; path != "" {
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		a.db = db
		if history, err = predictor.NewHistory(db); err != nil {
			return nil, err
		}
	}

	cache, err := datasource.NewCache(cfg.DataSource.CacheTTL, a.db)
	if err != nil {
		return nil, err
	}

	httpClient := transport.NewHTTPClient(cfg.DataSource.Timeout)
	var news *datasource.TeamNews
	if cfg.DataSource.TeamNewsURL != "" {
		var fetcher datasource.PageFetcher = &datasource.HTTPPageFetcher{Client: httpClient}
		if cfg.DataSource.RenderJS {
			fetcher = &datasource.BrowserPageFetcher{Timeout: cfg.DataSource.Timeout}
		}
		news = &datasource.TeamNews{URLTemplate: cfg.DataSource.TeamNewsURL, Fetcher: fetcher}
	}

	a.client = datasource.NewClient(datasource.Config{
		BaseURL:       cfg.DataSource.BaseURL,
		APIKey:        cfg.DataSource.APIKey,
		Timeout:       cfg.DataSource.Timeout,
		FormMatches:   cfg.DataSource.FormMatches,
		H2HMatches:    cfg.DataSource.H2HMatches,
		RateLimitWait: cfg.DataSource.RateLimitWait,
	}, httpClient, cache, news)
	if cfg.DataSource.APIKey == "" {
		logger.Warn("No football-data.org API key configured, predictions will use default statistics")
	}

	opts := predictor.Options{
		ModelType: cfg.Model.Type,
		Normalize: cfg.Normalizer.Enabled,
		History:   history,
	}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, 2*time.Second)
		if err != nil {
			return nil, err
		}
		opts.Notifier = tg
	}
	a.engine = predictor.NewEngine(a.client, opts)
	return a, nil
}

// startCron purges expired cache rows every hour
func (a *app) startCron() {
	a.cron = cron.New()
	_, err := a.cron.AddFunc("@hourly", func() {
		n, err := a.client.PurgeExpired()
		if err != nil {
			logger.Warn("Cache purge failed", err)
			return
		}
		logger.Debug("Purged expired cache entries", n)
	})
	if err != nil {
		logger.Error("Failed to schedule cache purge", err)
		return
	}
	a.cron.Start()
}

func (a *app) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	// let pending notifications finish
	a.engine.Wait()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", err)
		}
	}
}

/////////////////////////////////////////////////////////////////////////
////// Modes
/////////////////////////////////////////////////////////////////////////

func runHTTP(ctx context.Context, cfg *config.Config, a *app) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewHandler(a.engine).SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Football prediction server listening on", srv.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(ctx context.Context, a *app) error {
	s := server.New(transport.NewStdioTransport())
	s.RegisterPredictionTools(tools.New(a.engine))
	return s.Serve(ctx)
}

// runPredict prints the prediction for a raw match document. The error payload is
// printed as well when the prediction fails.
func runPredict(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	inputFile := fs.String("input", "", "Input file path (if not provided, stdin will be used)")
	details := fs.Bool("details", true, "Include analysis and betting insights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var input []byte
	var err error
	if *inputFile != "" {
		input, err = os.ReadFile(*inputFile)
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	out, err := processor.ProcessRequest(ctx, a.engine, input, *details)
	if out != nil {
		fmt.Println(string(out))
	}
	return err
}
