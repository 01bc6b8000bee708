package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/adapter/topology"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data sources: local paths or http(s) URLs.
	TopologySource string
	TopologyObject string
	AlarmsSource   string
	BrigadesSource string
	SourceTimeout  time.Duration
	Timezone       string

	InitialMonth     int
	SummaryCacheSize int
	Limits           Limits

	// Kafka summary publishing.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Limits caps each chart series. It can be overridden from the YAML file
// named by DASHBOARD_CONFIG.
type Limits struct {
	TopAlarmTypes   int `yaml:"top_alarm_types"`
	TopBrigades     int `yaml:"top_brigades"`
	AverageDuration int `yaml:"average_duration"`
	DaysPerMonth    int `yaml:"days_per_month"`
}

type fileConfig struct {
	Limits Limits `yaml:"limits"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SOURCE_TIMEOUT", "10s"))
	if err != nil || sourceTimeout <= 0 {
		return nil, errors.New("invalid SOURCE_TIMEOUT")
	}

	initialMonth, err := strconv.Atoi(sharedcfg.EnvOrDefault("INITIAL_MONTH", "1"))
	if err != nil || initialMonth < 1 || initialMonth > 12 {
		return nil, errors.New("INITIAL_MONTH must be between 1 and 12")
	}

	limits, err := LoadLimits(os.Getenv("DASHBOARD_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TopologySource: sharedcfg.EnvOrDefault("TOPOLOGY_SOURCE", "data/bezirke_95_topo.json"),
		TopologyObject: sharedcfg.EnvOrDefault("TOPOLOGY_OBJECT", topology.DefaultObject),
		AlarmsSource:   sharedcfg.EnvOrDefault("ALARMS_SOURCE", "data/alarms-splitted.csv"),
		BrigadesSource: sharedcfg.EnvOrDefault("BRIGADES_SOURCE", "data/brigades-splitted.csv"),
		SourceTimeout:  sourceTimeout,
		Timezone:       sharedcfg.EnvOrDefault("TIMEZONE", "Europe/Vienna"),

		InitialMonth:     initialMonth,
		SummaryCacheSize: parseSummaryCacheSize(),
		Limits:           limits,

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "dashboard-summaries"),
	}

	if cfg.AlarmsSource == "" || cfg.BrigadesSource == "" || cfg.TopologySource == "" {
		return nil, errors.New("TOPOLOGY_SOURCE, ALARMS_SOURCE and BRIGADES_SOURCE are required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SUMMARY_TOPIC is empty")
	}

	return cfg, nil
}

// DefaultLimits are the chart sizes of the dashboard.
func DefaultLimits() Limits {
	return Limits{
		TopAlarmTypes:   10,
		TopBrigades:     10,
		AverageDuration: 20,
		DaysPerMonth:    31,
	}
}

// LoadLimits reads the limits section of the YAML file at path over the
// defaults. An empty path yields DefaultLimits.
func LoadLimits(path string) (Limits, error) {
	fc := fileConfig{Limits: DefaultLimits()}
	if path == "" {
		return fc.Limits, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("read DASHBOARD_CONFIG: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Limits{}, fmt.Errorf("parse DASHBOARD_CONFIG: %w", err)
	}

	l := fc.Limits
	if l.TopAlarmTypes <= 0 || l.TopBrigades <= 0 || l.AverageDuration <= 0 || l.DaysPerMonth <= 0 {
		return Limits{}, errors.New("DASHBOARD_CONFIG limits must be positive")
	}
	return l, nil
}

func parseSummaryCacheSize() int {
	if s := os.Getenv("SUMMARY_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 64
}
