package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"infracal/internal/classify"
	"infracal/internal/config"
	"infracal/internal/crawler"
	"infracal/internal/extract"
	"infracal/internal/ollama"
	"infracal/internal/pipeline"
	"infracal/internal/store"
	"infracal/internal/web"

	appLog "infracal/internal/log"
)

// flagConfig holds CLI flag values applied on top of the config file.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("infracal starting", "version", "0.1.0")

	// .env is optional; environment variables win over the config file.
	if err := godotenv.Load(); err == nil {
		appLog.Debug("loaded .env file")
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"database", conf.Database,
		"refresh", conf.RefreshCron,
		"crawler_url", conf.Crawler.BaseURL,
		"ollama_url", conf.Ollama.URL,
		"extraction_mode", extractionMode(conf),
		"source_count", len(conf.Sources),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, err := store.Open(conf.Database)
	if err != nil {
		appLog.Error("failed to open store", err, "database", conf.Database)
		os.Exit(1)
	}
	defer st.Close()

	crawl := crawler.NewClient(conf.Crawler.BaseURL, conf.Crawler.Token,
		time.Duration(conf.Crawler.TimeoutSeconds)*time.Second)

	classifier, extractor, gateway := buildStrategies(conf)
	if gateway != nil {
		defer gateway.Close()
	}

	pipe := pipeline.New(st, crawl, classifier, extractor, pipeline.Config{
		MinDescriptionLen: conf.Extraction.MinDescriptionLen,
		AllMatches:        conf.Extraction.AllMatches,
		Version:           conf.Extraction.Version,
	})

	if flags.once {
		refreshAll(ctx, conf, pipe)
		appLog.Info("single-shot run complete, exiting")
		return
	}

	if conf.RefreshCron != "" {
		sched := cron.New()
		_, err := sched.AddFunc(conf.RefreshCron, func() {
			refreshAll(ctx, conf, pipe)
		})
		if err != nil {
			appLog.Error("invalid refresh cron spec", err, "refresh", conf.RefreshCron)
			os.Exit(1)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
		appLog.Info("refresh scheduler started", "spec", conf.RefreshCron)
	}

	srv := web.NewServer(conf, st, pipe)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	appLog.Info("infracal exiting")
}

// buildStrategies selects the classification/extraction strategy pair.
// Model strategies need a gateway; without an Ollama URL (or with mode
// "heuristic") the pure-computation fallbacks are used.
func buildStrategies(conf *config.Config) (classify.Classifier, extract.Extractor, *ollama.Client) {
	if extractionMode(conf) == "heuristic" {
		return classify.Heuristic{}, extract.Heuristic{}, nil
	}

	gateway := ollama.NewClient(conf.Ollama.URL, conf.Ollama.Model,
		time.Duration(conf.Ollama.TimeoutSeconds)*time.Second,
		conf.Ollama.MaxConcurrent)
	return classify.NewModel(gateway, conf.Extraction.ClassifyTruncateLen),
		extract.NewModel(gateway, conf.Extraction.PageTruncateLen),
		gateway
}

func extractionMode(conf *config.Config) string {
	if conf.Extraction.Mode != "" {
		return conf.Extraction.Mode
	}
	if conf.Ollama.URL == "" {
		return "heuristic"
	}
	return "model"
}

// refreshAll runs one fetch+extract cycle for every configured source.
// Per-source failures are logged and skipped so one broken crawl config
// cannot starve the rest.
func refreshAll(ctx context.Context, conf *config.Config, pipe *pipeline.Pipeline) {
	for _, src := range conf.Sources {
		if ctx.Err() != nil {
			return
		}
		if _, err := pipe.FetchAndStore(ctx, src.Config, src.Limit); err != nil {
			appLog.Error("source fetch failed", err, "config", src.Config)
			continue
		}
		if _, err := pipe.Run(ctx, src.Config, 0, true); err != nil {
			appLog.Error("source extraction failed", err, "config", src.Config)
		}
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/infracal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+extract cycle over all sources and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
