package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"oiflow/config"
	"oiflow/logger"
	"oiflow/pipeline"
	"oiflow/processor"
	"oiflow/reader/nse"
	"oiflow/reader/yahoo"
	"oiflow/server"
	"oiflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	mode := flag.String("mode", "daily", "Run mode: daily, historical, or serve")
	symbol := flag.String("symbol", "", "Symbol for historical mode")
	fromStr := flag.String("from", "", "Historical range start (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Historical range end (YYYY-MM-DD)")

	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath, "config/config.yml"))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Oiflow.Name,
		"version": cfg.Oiflow.Version,
		"mode":    *mode,
	}).Info("starting oiflow")

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "Oiflow", cfg.Oiflow.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	chains, err := nse.NewClient(cfg.Source.NSE)
	if err != nil {
		log.WithError(err).Error("failed to create NSE client")
		os.Exit(1)
	}
	aggregator, err := processor.NewAggregator(cfg.Pipeline)
	if err != nil {
		log.WithError(err).Error("failed to create aggregator")
		os.Exit(1)
	}

	switch strings.ToLower(*mode) {
	case "daily":
		err = runDaily(ctx, cfg, chains, aggregator)
	case "historical":
		err = runHistorical(ctx, cfg, chains, aggregator, *symbol, *fromStr, *toStr)
	case "serve":
		err = runServe(ctx, cfg, chains, aggregator)
	default:
		err = fmt.Errorf("unknown mode '%s'", *mode)
	}
	if err != nil {
		log.WithError(err).Error("run failed")
		os.Exit(1)
	}

	log.Info("oiflow stopped")
}

func runDaily(ctx context.Context, cfg *config.Config, chains *nse.Client, aggregator *processor.Aggregator) error {
	log := logger.GetLogger()

	symbols, err := config.LoadSymbolUniverse(cfg.Pipeline.SymbolsFile)
	if err != nil {
		return fmt.Errorf("load symbol universe: %w", err)
	}

	run, err := pipeline.NewCrossSection(cfg, chains, aggregator).Run(ctx, symbols)
	if err != nil {
		return err
	}

	writer.RenderTopMovers(os.Stdout, run.Results, cfg.Pipeline.TopMovers)

	if cfg.Writer.CSV {
		path, err := writer.NewCSVWriter(cfg.Writer.OutputDir).Write(run.Results, writer.DailyFileName(run.Date))
		if err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		log.WithFields(logger.Fields{"path": path}).Info("daily csv written")
	}

	if cfg.Storage.S3.Enabled {
		archiver, err := writer.NewS3Archiver(ctx, cfg.Storage.S3)
		if err != nil {
			log.WithError(err).Warn("s3 archiver unavailable, skipping archive")
		} else if _, err := archiver.Archive(ctx, run.Results, run.Date); err != nil {
			log.WithError(err).Warn("failed to archive results")
		}
	}

	if cfg.Notify.Telegram.Enabled() {
		notifier, err := writer.NewTelegramNotifier(cfg.Notify.Telegram)
		if err != nil {
			log.WithError(err).Warn("telegram notifier unavailable")
		} else if err := notifier.NotifyTopMovers(run.Date, run.Results, cfg.Pipeline.TopMovers, len(run.Failures)); err != nil {
			log.WithError(err).Warn("failed to send telegram notification")
		}
	}

	return nil
}

func runHistorical(ctx context.Context, cfg *config.Config, chains *nse.Client, aggregator *processor.Aggregator, symbol, fromStr, toStr string) error {
	log := logger.GetLogger()

	if symbol == "" {
		return fmt.Errorf("-symbol is required in historical mode")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	to := time.Now().In(cfg.Location())
	from := to.AddDate(0, 0, -60)
	var err error
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return fmt.Errorf("invalid -to date: %w", err)
		}
	}
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
	}

	prices := yahoo.NewClient(cfg.Source.Yahoo)
	run, err := pipeline.NewHistorical(cfg, chains, prices, aggregator).Run(ctx, symbol, from, to)
	if err != nil {
		return err
	}

	if cfg.Writer.CSV {
		path, err := writer.NewCSVWriter(cfg.Writer.OutputDir).Write(run.Results, writer.HistoricalFileName(symbol, run.From, run.To))
		if err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		log.WithFields(logger.Fields{"path": path}).Info("historical csv written")
	}

	log.WithFields(logger.Fields{
		"symbol":         symbol,
		"days_collected": len(run.Results),
		"days_skipped":   len(run.Skipped),
	}).Info("historical run finished")
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, chains *nse.Client, aggregator *processor.Aggregator) error {
	symbols, err := config.LoadSymbolUniverse(cfg.Pipeline.SymbolsFile)
	if err != nil {
		return fmt.Errorf("load symbol universe: %w", err)
	}

	runner := pipeline.NewCrossSection(cfg, chains, aggregator)
	return server.New(cfg, runner, symbols).Run(ctx)
}
