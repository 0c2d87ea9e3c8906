package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	KafkaBrokers   string
	RawEventsTopic string
	ConsumerGroup  string
	DataSource     string
	DBPath         string
	HealthPort     string
	LogToConsole   bool
	MQTTBroker     string
	MQTTClientID   string
	MQTTUsername   string
	MQTTPassword   string

	// Conversion options.
	EnableManualBgSync          bool
	EnableMealCarbConsolidation bool
	EnableDomainRecords         bool
	BasalScheduleJSON           string
	CurrentBasalRate            float64
}

func LoadConfig() *Config {
	err := godotenv.Load() // Looks for ".env" in the current directory
	if err != nil {
		log.Println("No .env file found, using environment variables or default values")
	}

	return &Config{
		KafkaBrokers:   getEnv("KAFKA_BROKERS", "localhost:9092"),
		RawEventsTopic: getEnv("RAW_EVENTS_TOPIC", "pump-raw-events-topic"),
		ConsumerGroup:  getEnv("CONSUMER_GROUP", "pump_sync"),
		DataSource:     getEnv("DATA_SOURCE", "pump-sync"),
		DBPath:         getEnv("DB_PATH", "pumpsync.db"),
		HealthPort:     getEnv("HEALTH_PORT", "8000"),
		LogToConsole:   boolEnv("LOG_TO_CONSOLE", "false"),
		MQTTBroker:     getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "PumpSyncService_local"),
		MQTTUsername:   getEnv("MQTT_USERNAME", ""),
		MQTTPassword:   getEnv("MQTT_PASSWORD", ""),

		EnableManualBgSync:          boolEnv("ENABLE_MANUAL_BG_SYNC", "true"),
		EnableMealCarbConsolidation: boolEnv("ENABLE_MEAL_CARB_CONSOLIDATION", "true"),
		EnableDomainRecords:         boolEnv("ENABLE_DOMAIN_RECORDS", "false"),
		BasalScheduleJSON:           getEnv("BASAL_SCHEDULE", ""),
		CurrentBasalRate:            floatEnv("CURRENT_BASAL_RATE", 1.0),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func boolEnv(key, fallback string) bool {
	return strings.EqualFold(getEnv(key, fallback), "true")
}

func floatEnv(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %.2f", key, raw, fallback)
		return fallback
	}
	return value
}
