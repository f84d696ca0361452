package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "area-features", cfg.KafkaFeaturesTopic)
	assert.Equal(t, "decision-reports", cfg.KafkaReportsTopic)
	assert.Equal(t, "rain-alert-service", cfg.KafkaGroupID)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 200, cfg.FetchMaxBatch)
	assert.Equal(t, 2*time.Second, cfg.FetchFlushInterval)

	assert.Equal(t, "standard", cfg.RuleProfile)
	assert.Equal(t, "standard", cfg.TriggerProfile)
	assert.Equal(t, 60*time.Minute, cfg.MinGap)
	assert.Equal(t, 100, cfg.DailyBudget)
	assert.Equal(t, 6, cfg.CycleCap)
	assert.Equal(t, 180*time.Minute, cfg.Cooldown)
	assert.Equal(t, 20*time.Minute, cfg.EtaShift)
	assert.Equal(t, 3, cfg.HourlyCap)
	assert.Equal(t, 90*time.Second, cfg.LeaseTTL)

	assert.False(t, cfg.PostEnabled)
	assert.Equal(t, 5*time.Second, cfg.PostTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 5*time.Second, cfg.FormatterTimeout)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_FEATURES_TOPIC", "custom-features")
	t.Setenv("KAFKA_REPORTS_TOPIC", "custom-reports")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RULE_PROFILE", "relaxed")
	t.Setenv("TRIGGER_PROFILE", "widened")
	t.Setenv("NOTIFY_MIN_GAP", "45m")
	t.Setenv("NOTIFY_DAILY_BUDGET", "50")
	t.Setenv("NOTIFY_CYCLE_CAP", "4")
	t.Setenv("NOTIFY_HOURLY_CAP", "2")
	t.Setenv("CYCLE_LEASE_TTL", "2m")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-features", cfg.KafkaFeaturesTopic)
	assert.Equal(t, "custom-reports", cfg.KafkaReportsTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "relaxed", cfg.RuleProfile)
	assert.Equal(t, "widened", cfg.TriggerProfile)
	assert.Equal(t, 45*time.Minute, cfg.MinGap)
	assert.Equal(t, 50, cfg.DailyBudget)
	assert.Equal(t, 4, cfg.CycleCap)
	assert.Equal(t, 2, cfg.HourlyCap)
	assert.Equal(t, 2*time.Minute, cfg.LeaseTTL)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoad_InvalidRuleProfile(t *testing.T) {
	t.Setenv("RULE_PROFILE", "aggressive")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RULE_PROFILE")
}

func TestLoad_InvalidTriggerProfile(t *testing.T) {
	t.Setenv("TRIGGER_PROFILE", "narrow")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRIGGER_PROFILE")
}

func TestLoad_InvalidMinGap(t *testing.T) {
	t.Setenv("NOTIFY_MIN_GAP", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_MIN_GAP")
}

func TestLoad_NegativeCooldown(t *testing.T) {
	t.Setenv("NOTIFY_COOLDOWN", "-1h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_COOLDOWN")
}

func TestLoad_InvalidDailyBudget(t *testing.T) {
	t.Setenv("NOTIFY_DAILY_BUDGET", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFY_DAILY_BUDGET")
}

func TestLoad_BatchTooLarge(t *testing.T) {
	t.Setenv("FETCH_MAX_BATCH", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_MAX_BATCH")
}

func TestLoad_PostEnabledRequiresCredentials(t *testing.T) {
	t.Setenv("POST_ENABLE", "true")
	t.Setenv("X_API_KEY", "key")
	t.Setenv("X_API_SECRET", "secret")
	// Access token pair missing.
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestLoad_PostEnabledWithFullCredentials(t *testing.T) {
	t.Setenv("POST_ENABLE", "true")
	t.Setenv("X_API_KEY", "key")
	t.Setenv("X_API_SECRET", "secret")
	t.Setenv("X_ACCESS_TOKEN", "token")
	t.Setenv("X_ACCESS_SECRET", "token-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.PostEnabled)
}
