package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"pump-sync/internal/config"
	"pump-sync/internal/convert"
	"pump-sync/internal/database"
	"pump-sync/internal/handler"
	"pump-sync/internal/health"
	"pump-sync/internal/profile"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	log.Println("Starting Pump-Sync Service...")
	cfg := config.LoadConfig()
	setupLogging(cfg.LogToConsole)
	logConfiguration(cfg)

	basal, err := profile.Parse(cfg.BasalScheduleJSON, cfg.CurrentBasalRate)
	if err != nil {
		log.Fatalf("FATAL: Invalid BASAL_SCHEDULE: %v", err)
	}

	repo, err := database.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	registry := prometheus.NewRegistry()
	tracker := health.NewTracker(registry)

	convertCfg := convert.Config{
		EnableManualBgSync:          cfg.EnableManualBgSync,
		EnableMealCarbConsolidation: cfg.EnableMealCarbConsolidation,
		EnableDomainRecords:         cfg.EnableDomainRecords,
		Basal:                       basal,
	}
	processor, err := handler.NewSyncProcessor(repo, cfg.DataSource, convertCfg, tracker)
	if err != nil {
		log.Fatalf("Failed to initialize processor: %v", err)
	}

	mqttClient, err := handler.InitializeMQTT(cfg, processor)
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Disconnect(250)

	healthServer := health.NewServer(tracker, registry, "Pump Connector", map[string]any{
		"dataSource":                  cfg.DataSource,
		"enableManualBgSync":          cfg.EnableManualBgSync,
		"enableMealCarbConsolidation": cfg.EnableMealCarbConsolidation,
		"enableDomainRecords":         cfg.EnableDomainRecords,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, closing consumers...")
		cancel()
	}()

	go func() {
		if err := healthServer.Run(":" + cfg.HealthPort); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3) // MQTT, Kafka Consumer, Housekeeping

	go func() {
		defer wg.Done()
		<-ctx.Done()
		log.Println("Shutting down MQTT client...")
	}()

	go func() {
		defer wg.Done()
		runConsumer(ctx, cfg, cfg.RawEventsTopic, processor.HandleBatchMessage)
	}()

	go func() {
		defer wg.Done()
		processor.RunHousekeepingCycle(ctx)
	}()

	log.Println("Service started successfully. Waiting for raw event batches...")
	wg.Wait()
	log.Println("All services closed. Exiting.")
}

func runConsumer(ctx context.Context, cfg *config.Config, topic string, handlerFunc func([]byte)) {
	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers": cfg.KafkaBrokers,
		"group.id":          cfg.ConsumerGroup,
		"auto.offset.reset": "earliest",
	}

	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		log.Fatalf("Failed to create consumer for topic %s: %v", topic, err)
	}
	defer consumer.Close()

	if err := consumer.Subscribe(topic, nil); err != nil {
		log.Fatalf("Failed to subscribe to topic %s: %v", topic, err)
	}

	log.Printf("Consumer started for topic '%s' with group ID '%s'", topic, cfg.ConsumerGroup)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopping consumer for topic: %s", topic)
			return
		default:
			ev := consumer.Poll(100)
			if ev == nil {
				continue
			}
			switch e := ev.(type) {
			case *kafka.Message:
				handlerFunc(e.Value)
			case kafka.Error:
				fmt.Fprintf(os.Stderr, "%% Kafka Error: %v\n", e)
			}
		}
	}
}

func setupLogging(logToConsole bool) {
	logFile := &lumberjack.Logger{
		Filename:   "./logs/pumpsync.log",
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	if logToConsole {
		mw := io.MultiWriter(os.Stdout, logFile)
		log.SetOutput(mw)
	} else {
		log.SetOutput(logFile)
	}
}

func logConfiguration(cfg *config.Config) {
	log.Println("--- Service Configuration ---")
	log.Printf("Kafka Brokers: %s", cfg.KafkaBrokers)
	log.Printf("Raw Events Topic: %s", cfg.RawEventsTopic)
	log.Printf("MQTT Broker URL: %s", cfg.MQTTBroker)
	log.Printf("Data Source: %s", cfg.DataSource)
	log.Printf("DB Path: %s", cfg.DBPath)
	log.Printf("Manual BG Sync: %t", cfg.EnableManualBgSync)
	log.Printf("Meal Carb Consolidation: %t", cfg.EnableMealCarbConsolidation)
	log.Printf("Domain Records: %t", cfg.EnableDomainRecords)

	if cfg.MQTTPassword != "" {
		log.Println("MQTT Password: [SET]")
	} else {
		log.Println("MQTT Password: [NOT SET]")
	}
	log.Println("---------------------------")
}
