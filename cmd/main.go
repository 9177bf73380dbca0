package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"monitoring-service/internal/api"
	"monitoring-service/internal/config"
	"monitoring-service/internal/db"
	"monitoring-service/internal/dispatch"
	"monitoring-service/internal/kafka"
	"monitoring-service/internal/logging"
	"monitoring-service/internal/monitor"
	"monitoring-service/internal/providers"
	"monitoring-service/internal/reminder"
	"monitoring-service/internal/sources"
	"monitoring-service/internal/summary"
	"monitoring-service/internal/utils"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	var dbConn *db.DB
	err = utils.Retry(ctx, logger, 5, 2*time.Second, 2.0, func() error {
		var connErr error
		dbConn, connErr = db.New(ctx, cfg.DB.DSN)
		return connErr
	})
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Telegram transport
	transport, err := providers.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.RatePerSecond)
	if err != nil {
		logger.Errorf("Failed to init Telegram transport: %v", err)
		log.Fatalf("Telegram init failed: %v", err)
	}

	// Alert dispatcher
	hub := dispatch.NewHub(logger)
	dispatcher := dispatch.New(transport, dbConn, hub, logger, dispatch.Options{
		QueueSize:         cfg.Alert.QueueSize,
		Workers:           cfg.Alert.MaxWorkers,
		MaxAttempts:       cfg.Alert.MaxAttempts,
		RetryDelay:        cfg.Alert.RetryDelay,
		BackoffFactor:     cfg.Alert.BackoffFactor,
		RepeatCount:       cfg.Alert.RepeatCount,
		ReinforceInterval: cfg.Alert.ReinforceInterval,
	})
	var wg sync.WaitGroup
	dispatcher.Start(&wg)

	// Detection pipeline
	detector := monitor.NewDetector(dbConn)
	classifier := monitor.NewClassifier(cfg.PriorityRules)
	pipeline := monitor.NewPipeline(detector, classifier, dispatcher, dbConn, logger, monitor.PipelineOptions{
		ChatID:      cfg.Telegram.AlertChatID,
		MaxAttempts: cfg.Alert.MaxAttempts,
		RepeatCount: cfg.Alert.RepeatCount,
	})

	// Periodic probes
	probes := make([]sources.Source, 0, len(cfg.Monitor.Targets))
	for _, t := range cfg.Monitor.Targets {
		probes = append(probes, sources.NewHTTPProbe(t.Name, t.URL, t.Label, cfg.Monitor.FetchTimeout))
	}
	poller := monitor.NewPoller(pipeline, probes, cfg.Monitor.PollInterval, logger)
	poller.Start(ctx, &wg)

	loc, err := time.LoadLocation(cfg.Summary.Timezone)
	if err != nil {
		logger.Warnf("Unknown timezone %q, using UTC: %v", cfg.Summary.Timezone, err)
		loc = time.UTC
	}

	// Reminder queue
	reminders := reminder.New(dbConn, dispatcher, dbConn, logger, reminder.Options{
		PollInterval: cfg.Reminder.PollInterval,
		RetryLimit:   cfg.Reminder.SendRetryLimit,
		Timezone:     loc,
	})
	wg.Add(1)
	go reminders.Run(ctx, &wg)

	// Daily summaries
	morningHour, morningMinute, _ := config.ParseClock(cfg.Summary.MorningTime)
	nightHour, nightMinute, _ := config.ParseClock(cfg.Summary.NightTime)
	summaries := summary.New(dbConn, dbConn, dispatcher, logger, summary.Options{
		ChatID:   cfg.Telegram.AlertChatID,
		Morning:  summary.Slot{Name: "morning", Hour: morningHour, Minute: morningMinute},
		Night:    summary.Slot{Name: "night", Hour: nightHour, Minute: nightMinute},
		Timezone: loc,
	})
	wg.Add(1)
	go summaries.Run(ctx, &wg)

	// Kafka snapshot ingest (optional)
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, pipeline, logger)
		consumer.Start(ctx, &wg)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	handler := api.NewHandler(dbConn, dispatcher, hub, logger, cfg)
	router := api.NewRouter(logger, cfg, handler)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	dispatcher.Stop()
	if consumer != nil {
		consumer.Close()
	}
	wg.Wait()
	logger.Infof("Service stopped")
}
