package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers       []string
	KafkaFeaturesTopic string
	KafkaReportsTopic  string
	KafkaGroupID       string

	RedisAddr   string
	PostgresDSN string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FetchMaxBatch      int
	FetchFlushInterval time.Duration

	// Named policy profiles; see internal/domain.
	RuleProfile    string
	TriggerProfile string

	// Governance limits.
	MinGap      time.Duration // dedup TTL between near-duplicate posts
	DailyBudget int
	CycleCap    int
	Cooldown    time.Duration
	EtaShift    time.Duration // window shift that overrides cooldown
	HourlyCap   int
	LeaseTTL    time.Duration

	// Posting (X API). When disabled or unconfigured every approved
	// candidate is dry-logged.
	PostEnabled   bool
	PostTimeout   time.Duration
	XAPIKey       string
	XAPISecret    string
	XAccessToken  string
	XAccessSecret string

	// Primary formatter (OpenAI). Unset key means fallback-only formatting.
	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	FormatterTimeout time.Duration

	// Display timezone for window labels.
	Timezone string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	flushInterval, err := durationEnv("FETCH_FLUSH_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	maxBatch, err := intEnv("FETCH_MAX_BATCH", 200, 1, 2000)
	if err != nil {
		return nil, err
	}

	minGap, err := durationEnv("NOTIFY_MIN_GAP", 60*time.Minute)
	if err != nil {
		return nil, err
	}
	cooldown, err := durationEnv("NOTIFY_COOLDOWN", 180*time.Minute)
	if err != nil {
		return nil, err
	}
	etaShift, err := durationEnv("NOTIFY_ETA_SHIFT", 20*time.Minute)
	if err != nil {
		return nil, err
	}
	leaseTTL, err := durationEnv("CYCLE_LEASE_TTL", 90*time.Second)
	if err != nil {
		return nil, err
	}
	dailyBudget, err := intEnv("NOTIFY_DAILY_BUDGET", 100, 1, 100000)
	if err != nil {
		return nil, err
	}
	cycleCap, err := intEnv("NOTIFY_CYCLE_CAP", 6, 1, 1000)
	if err != nil {
		return nil, err
	}
	hourlyCap, err := intEnv("NOTIFY_HOURLY_CAP", 3, 1, 1000)
	if err != nil {
		return nil, err
	}

	postTimeout, err := durationEnv("POST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	formatterTimeout, err := durationEnv("FORMATTER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeaturesTopic: envOrDefault("KAFKA_FEATURES_TOPIC", "area-features"),
		KafkaReportsTopic:  envOrDefault("KAFKA_REPORTS_TOPIC", "decision-reports"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "rain-alert-service"),

		RedisAddr:   envOrDefault("REDIS_ADDR", "localhost:6379"),
		PostgresDSN: envOrDefault("POSTGRES_DSN", "postgres://localhost:5432/rainalert?sslmode=disable"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FetchMaxBatch:      maxBatch,
		FetchFlushInterval: flushInterval,

		RuleProfile:    envOrDefault("RULE_PROFILE", "standard"),
		TriggerProfile: envOrDefault("TRIGGER_PROFILE", "standard"),

		MinGap:      minGap,
		DailyBudget: dailyBudget,
		CycleCap:    cycleCap,
		Cooldown:    cooldown,
		EtaShift:    etaShift,
		HourlyCap:   hourlyCap,
		LeaseTTL:    leaseTTL,

		PostEnabled:   os.Getenv("POST_ENABLE") == "true",
		PostTimeout:   postTimeout,
		XAPIKey:       os.Getenv("X_API_KEY"),
		XAPISecret:    os.Getenv("X_API_SECRET"),
		XAccessToken:  os.Getenv("X_ACCESS_TOKEN"),
		XAccessSecret: os.Getenv("X_ACCESS_SECRET"),

		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		FormatterTimeout: formatterTimeout,

		Timezone: envOrDefault("DISPLAY_TIMEZONE", "Asia/Kolkata"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.KafkaFeaturesTopic == "" {
		return nil, fmt.Errorf("KAFKA_FEATURES_TOPIC is required")
	}
	if cfg.RuleProfile != "standard" && cfg.RuleProfile != "relaxed" {
		return nil, fmt.Errorf("invalid RULE_PROFILE %q", cfg.RuleProfile)
	}
	if cfg.TriggerProfile != "standard" && cfg.TriggerProfile != "widened" {
		return nil, fmt.Errorf("invalid TRIGGER_PROFILE %q", cfg.TriggerProfile)
	}
	if cfg.PostEnabled && (cfg.XAPIKey == "" || cfg.XAPISecret == "" || cfg.XAccessToken == "" || cfg.XAccessSecret == "") {
		return nil, fmt.Errorf("POST_ENABLE is true but X API credentials are incomplete")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func intEnv(key string, def, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s %q (want %d..%d)", key, s, minVal, maxVal)
	}
	return n, nil
}
