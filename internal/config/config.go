package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"monitoring-service/internal/models"
)

// Target is one monitored endpoint polled by the HTTP probe.
type Target struct {
	Name  string
	URL   string
	Label string
}

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Telegram struct {
		BotToken      string
		AlertChatID   int64
		RatePerSecond int
	}
	API struct {
		Port     string
		BasePath string
		Key      string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Monitor struct {
		PollInterval time.Duration
		FetchTimeout time.Duration
		Targets      []Target
	}
	Alert struct {
		QueueSize         int
		MaxWorkers        int
		MaxAttempts       int
		RetryDelay        time.Duration
		BackoffFactor     float64
		RepeatCount       int
		ReinforceInterval time.Duration
	}
	Reminder struct {
		PollInterval   time.Duration
		SendRetryLimit int
	}
	Summary struct {
		MorningTime string
		NightTime   string
		Timezone    string
	}
	Logging struct {
		Dir   string
		Level string
	}
	PriorityRules []models.PriorityRule
}

// Load reads environment variables, applies defaults, and returns a Config.
// Invalid priority rules or summary times fail here, not at runtime.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("ALERT_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.AlertChatID = id
	}
	cfg.Telegram.RatePerSecond = readInt("TELEGRAM_RATE_PER_SECOND", 20)

	cfg.API.Port = getenvDefault("API_PORT", ":8080")
	cfg.API.BasePath = getenvDefault("API_BASE_PATH", "/api/v1")
	cfg.API.Key = os.Getenv("API_KEY")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = getenvDefault("KAFKA_TOPIC", "source_snapshots")
	cfg.Kafka.GroupID = getenvDefault("KAFKA_GROUP_ID", "monitoring-service")

	var err error
	if cfg.Monitor.PollInterval, err = readDuration("POLL_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Monitor.FetchTimeout, err = readDuration("FETCH_TIMEOUT", 20*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Monitor.Targets, err = parseTargets(os.Getenv("MONITOR_TARGETS")); err != nil {
		return Config{}, err
	}

	cfg.Alert.QueueSize = readInt("ALERT_QUEUE_SIZE", 500)
	cfg.Alert.MaxWorkers = readInt("ALERT_MAX_WORKERS", 4)
	cfg.Alert.MaxAttempts = readInt("ALERT_MAX_ATTEMPTS", 3)
	if cfg.Alert.RetryDelay, err = readDuration("ALERT_RETRY_DELAY", 2*time.Second); err != nil {
		return Config{}, err
	}
	cfg.Alert.BackoffFactor = readFloat("ALERT_RETRY_BACKOFF_FACTOR", 2.0)
	if cfg.Alert.BackoffFactor < 1.0 {
		return Config{}, fmt.Errorf("ALERT_RETRY_BACKOFF_FACTOR must be >= 1.0, got %v", cfg.Alert.BackoffFactor)
	}
	cfg.Alert.RepeatCount = readInt("CRITICAL_REPEAT_COUNT", 3)
	if cfg.Alert.ReinforceInterval, err = readDuration("REINFORCE_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.Reminder.PollInterval, err = readDuration("REMINDER_POLL_INTERVAL", 15*time.Second); err != nil {
		return Config{}, err
	}
	cfg.Reminder.SendRetryLimit = readInt("REMINDER_SEND_RETRY_LIMIT", 3)

	cfg.Summary.MorningTime = getenvDefault("SUMMARY_MORNING_TIME", "08:00")
	cfg.Summary.NightTime = getenvDefault("SUMMARY_NIGHT_TIME", "22:00")
	cfg.Summary.Timezone = getenvDefault("TIMEZONE", "America/Sao_Paulo")
	for _, raw := range []string{cfg.Summary.MorningTime, cfg.Summary.NightTime} {
		if _, _, err := ParseClock(raw); err != nil {
			return Config{}, err
		}
	}

	cfg.Logging.Dir = getenvDefault("LOG_DIR", "logs")
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", "info")

	if cfg.PriorityRules, err = ParsePriorityRules(os.Getenv("PRIORITY_RULES")); err != nil {
		return Config{}, err
	}

	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.AlertChatID == 0 {
		missing = append(missing, "ALERT_CHAT_ID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	return cfg, nil
}

// ParsePriorityRules parses the ordered rule list from its env encoding:
// "pattern|client|system|priority;..." where priority is one of
// low/normal/high/critical, with an optional trailing "!" marking the source
// as critical for call-mode escalation.
func ParsePriorityRules(raw string) ([]models.PriorityRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var rules []models.PriorityRule
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid priority rule %q: want pattern|client|system|priority", entry)
		}
		pattern := strings.TrimSpace(fields[0])
		if pattern == "" {
			return nil, fmt.Errorf("invalid priority rule %q: empty pattern", entry)
		}
		prioRaw := strings.TrimSpace(fields[3])
		critical := strings.HasSuffix(prioRaw, "!")
		prio, err := models.ParsePriority(strings.TrimSuffix(prioRaw, "!"))
		if err != nil {
			return nil, fmt.Errorf("invalid priority rule %q: %w", entry, err)
		}
		rules = append(rules, models.PriorityRule{
			Pattern:  pattern,
			Client:   strings.TrimSpace(fields[1]),
			System:   strings.TrimSpace(fields[2]),
			Priority: prio,
			Critical: critical,
		})
	}
	return rules, nil
}

// ParseClock parses an HH:MM time-of-day string.
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

func parseTargets(raw string) ([]Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var targets []Target
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("invalid monitor target %q: want name|url[|label]", entry)
		}
		t := Target{Name: strings.TrimSpace(fields[0]), URL: strings.TrimSpace(fields[1])}
		if t.Name == "" || t.URL == "" {
			return nil, fmt.Errorf("invalid monitor target %q: empty name or url", entry)
		}
		if len(fields) == 3 {
			t.Label = strings.TrimSpace(fields[2])
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func getenvDefault(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func readInt(name string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name))); err == nil {
		return v
	}
	return def
}

func readFloat(name string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(name)), 64); err == nil {
		return v
	}
	return def
}

func readDuration(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return d, nil
}
