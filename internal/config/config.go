package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-data-bufr/internal/filter"
)

// DefaultColumns is the row layout produced when BUFR_COLUMNS is unset.
const DefaultColumns = "station_id,data_datetime,lat,lon,elevation,t2m,td2m,ws,tp"

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Extraction request applied to every decoded message.
	Columns        []string
	Required       []string
	Filters        map[string]any
	ParamsFile     string
	RankedKeys     bool
	RaiseOnMissing bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	filters, err := filter.ParseFilters(os.Getenv("BUFR_FILTERS"), ";")
	if err != nil {
		return nil, fmt.Errorf("invalid BUFR_FILTERS: %w", err)
	}

	rankedKeys, err := parseBool("BUFR_RANKED_KEYS")
	if err != nil {
		return nil, err
	}
	raiseOnMissing, err := parseBool("BUFR_RAISE_ON_MISSING")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "decoded-bufr"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "bufr-observations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-data-bufr"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Columns:        SplitList(sharedcfg.EnvOrDefault("BUFR_COLUMNS", DefaultColumns)),
		Required:       SplitList(os.Getenv("BUFR_REQUIRED_COLUMNS")),
		Filters:        filters,
		ParamsFile:     os.Getenv("BUFR_PARAMS_FILE"),
		RankedKeys:     rankedKeys,
		RaiseOnMissing: raiseOnMissing,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	// "*" selects every key of the observation.
	if len(cfg.Columns) == 1 && cfg.Columns[0] == "*" {
		cfg.Columns = nil
		if len(cfg.Required) > 0 {
			return nil, errors.New("BUFR_REQUIRED_COLUMNS cannot be combined with BUFR_COLUMNS=*")
		}
	}

	return cfg, nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
