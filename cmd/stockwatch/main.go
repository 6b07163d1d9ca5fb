package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/allstar/stockwatch/pkg/auth"
	"github.com/allstar/stockwatch/pkg/config"
	"github.com/allstar/stockwatch/pkg/digest"
	"github.com/allstar/stockwatch/pkg/limiter"
	"github.com/allstar/stockwatch/pkg/llm"
	"github.com/allstar/stockwatch/pkg/news"
	"github.com/allstar/stockwatch/pkg/notify"
	"github.com/allstar/stockwatch/pkg/repository"
	"github.com/allstar/stockwatch/pkg/scheduler"
	"github.com/allstar/stockwatch/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address override"`

	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config from %s: %v", opts.Config, err)
		os.Exit(1)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Finnhub.APIKey, cfg.LLM.APIKey, cfg.SMTP.Password)

	log.Printf("[INFO] starting stockwatch version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires all components together and blocks until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] database close error: %v", err)
		}
	}()

	newsClient := news.NewClient(cfg.GetFinnhubConfig())
	aggregator := news.NewAggregator(newsClient)
	summarizer := llm.NewSummarizer(cfg.GetLLMConfig())
	sender := notify.NewEmailSender(cfg.SMTP)

	dispatcher := digest.NewDispatcher(repos.User, repos.Watchlist, aggregator, summarizer,
		sender, repos.DigestLog, cfg.Digest.MaxWorkers)

	sched := scheduler.NewScheduler(dispatcher, scheduler.Config{Hour: *cfg.Digest.Hour})
	sched.Start(ctx)
	defer sched.Stop()

	rateLimiter := limiter.New(cfg.GetRateLimits())
	go rateLimiter.Run(ctx)

	authService := auth.NewService(repos.User)

	srv := server.New(cfg, authService, repos.Watchlist, repos.User, newsClient, rateLimiter,
		&digestService{scheduler: sched, dispatcher: dispatcher}, revision, debug)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	secrets := make([]string, 0, len(secs))
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
