package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Weather cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all run settings. Values come from defaults, then an optional
// YAML/JSON file, then environment variables.
type Config struct {
	TicketsCSV   string `yaml:"tickets_csv"`
	ReportPrefix string `yaml:"report_prefix"`

	// Aggregation thresholds.
	IdleThreshold     int `yaml:"idle_threshold"`
	OverloadThreshold int `yaml:"overload_threshold"`
	BacklogDays       int `yaml:"backlog_days"`
	OpenDays          int `yaml:"open_days"`
	NGramSize         int `yaml:"ngram_size"`
	TopSubjectWords   int `yaml:"top_subject_words"`

	// Weather enrichment.
	WeatherAPIKey       string        `yaml:"weather_api_key"`
	Location            string        `yaml:"location"`
	WeatherCacheFile    string        `yaml:"weather_cache_file"`
	WeatherTTL          time.Duration `yaml:"weather_ttl"`
	WeatherTimeout      time.Duration `yaml:"weather_timeout"`
	WeatherBaseURL      string        `yaml:"weather_base_url"`
	WeatherCacheBackend string        `yaml:"weather_cache_backend"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Delivery.
	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaSummaryTopic string   `yaml:"kafka_summary_topic"`

	EmailOnExec  bool     `yaml:"email_on_exec"`
	SMTPHost     string   `yaml:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port"`
	EmailFrom    string   `yaml:"email_from"`
	EmailTo      []string `yaml:"email_to"`
	SMTPUsername string   `yaml:"smtp_username"`
	SMTPPassword string   `yaml:"smtp_password"`

	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		TicketsCSV:          "tickets.csv",
		ReportPrefix:        "ticket_analysis_report",
		IdleThreshold:       2,
		OverloadThreshold:   6,
		BacklogDays:         7,
		OpenDays:            7,
		NGramSize:           2,
		TopSubjectWords:     10,
		Location:            "hosur",
		WeatherCacheFile:    "weather_cache.json",
		WeatherTTL:          600 * time.Second,
		WeatherTimeout:      5 * time.Second,
		WeatherBaseURL:      "https://api.openweathermap.org",
		WeatherCacheBackend: CacheBackendFile,
		RedisAddr:           "localhost:6379",
		KafkaSummaryTopic:   "ticket-metrics-summary",
		SMTPHost:            "localhost",
		SMTPPort:            25,
		HTTPAddr:            ":8080",
		ShutdownTimeout:     10 * time.Second,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load builds the configuration. file may be empty; TICKET_METRICS_CONFIG is
// used when it is. A .env file in the working directory is loaded first if present.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if file == "" {
		file = os.Getenv("TICKET_METRICS_CONFIG")
	}
	if file != "" {
		if err := cfg.mergeFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durationKeys are file keys decoded into time.Duration. A bare integer
// there means seconds, as it does in the environment.
var durationKeys = map[string]bool{
	"weather_ttl":     true,
	"weather_timeout": true,
}

// mergeFile overlays a YAML (or JSON) document onto cfg.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if doc.Kind == 0 {
		return nil
	}
	secondsAsDurations(&doc)
	if err := doc.Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// secondsAsDurations rewrites integer values of duration keys to "<n>s".
func secondsAsDurations(doc *yaml.Node) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if durationKeys[key.Value] && val.Kind == yaml.ScalarNode && val.ShortTag() == "!!int" {
			val.Value += "s"
			val.Tag = "!!str"
		}
	}
}

func (c *Config) applyEnv() error {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return err
	}
	c.ShutdownTimeout = shutdownTimeout

	c.TicketsCSV = sharedcfg.EnvOrDefault("TICKETS_CSV", c.TicketsCSV)
	c.ReportPrefix = sharedcfg.EnvOrDefault("REPORT_PREFIX", c.ReportPrefix)
	c.WeatherAPIKey = sharedcfg.EnvOrDefault("WEATHER_API_KEY", c.WeatherAPIKey)
	c.Location = sharedcfg.EnvOrDefault("LOCATION", c.Location)
	c.WeatherCacheFile = sharedcfg.EnvOrDefault("WEATHER_CACHE_FILE", c.WeatherCacheFile)
	c.WeatherBaseURL = sharedcfg.EnvOrDefault("WEATHER_BASE_URL", c.WeatherBaseURL)
	c.WeatherCacheBackend = strings.ToLower(sharedcfg.EnvOrDefault("WEATHER_CACHE_BACKEND", c.WeatherCacheBackend))
	c.RedisAddr = sharedcfg.EnvOrDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = sharedcfg.EnvOrDefault("REDIS_PASSWORD", c.RedisPassword)
	c.KafkaSummaryTopic = sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", c.KafkaSummaryTopic)
	c.SMTPHost = sharedcfg.EnvOrDefault("ALERT_SMTP_HOST", c.SMTPHost)
	c.EmailFrom = sharedcfg.EnvOrDefault("ALERT_EMAIL_FROM", c.EmailFrom)
	c.SMTPUsername = sharedcfg.EnvOrDefault("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = sharedcfg.EnvOrDefault("SMTP_PASSWORD", c.SMTPPassword)
	c.HTTPAddr = sharedcfg.EnvOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.MetricsTextfile = sharedcfg.EnvOrDefault("METRICS_TEXTFILE", c.MetricsTextfile)
	c.LogLevel = sharedcfg.EnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = sharedcfg.EnvOrDefault("LOG_FORMAT", c.LogFormat)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}
	if v := os.Getenv("EXEC_EMAIL_TO"); v != "" {
		c.EmailTo = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"IDLE_THRESHOLD", &c.IdleThreshold},
		{"OVERLOAD_THRESHOLD", &c.OverloadThreshold},
		{"BACKLOG_DAYS", &c.BacklogDays},
		{"OPEN_DAYS", &c.OpenDays},
		{"NGRAM_SIZE", &c.NGramSize},
		{"TOP_SUBJECT_WORDS", &c.TopSubjectWords},
		{"REDIS_DB", &c.RedisDB},
		{"ALERT_SMTP_PORT", &c.SMTPPort},
	}
	for _, i := range ints {
		if err := envInt(i.key, i.dst); err != nil {
			return err
		}
	}

	if err := envDuration("WEATHER_TTL", &c.WeatherTTL); err != nil {
		return err
	}
	if err := envDuration("WEATHER_TIMEOUT", &c.WeatherTimeout); err != nil {
		return err
	}

	if v := os.Getenv("EMAIL_ON_EXEC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EMAIL_ON_EXEC %q: %w", v, err)
		}
		c.EmailOnExec = b
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.TicketsCSV == "" {
		return errors.New("TICKETS_CSV is required")
	}
	if c.ReportPrefix == "" {
		return errors.New("REPORT_PREFIX is required")
	}
	for name, v := range map[string]int{
		"IDLE_THRESHOLD":     c.IdleThreshold,
		"OVERLOAD_THRESHOLD": c.OverloadThreshold,
		"BACKLOG_DAYS":       c.BacklogDays,
		"OPEN_DAYS":          c.OpenDays,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.IdleThreshold >= c.OverloadThreshold {
		return errors.New("IDLE_THRESHOLD must be less than OVERLOAD_THRESHOLD")
	}
	if c.NGramSize < 1 {
		return errors.New("NGRAM_SIZE must be at least 1")
	}
	if c.TopSubjectWords < 1 {
		return errors.New("TOP_SUBJECT_WORDS must be at least 1")
	}
	if c.WeatherTTL <= 0 {
		return errors.New("WEATHER_TTL must be positive")
	}
	if c.WeatherTimeout <= 0 {
		return errors.New("WEATHER_TIMEOUT must be positive")
	}
	switch c.WeatherCacheBackend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("WEATHER_CACHE_BACKEND %q is not one of file, redis, memory", c.WeatherCacheBackend)
	}
	if c.KafkaSummaryTopic == "" && len(c.KafkaBrokers) > 0 {
		return errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.EmailOnExec && (c.EmailFrom == "" || len(c.EmailTo) == 0) {
		return errors.New("EMAIL_ON_EXEC is true but ALERT_EMAIL_FROM or EXEC_EMAIL_TO is not set")
	}
	if c.SMTPPort <= 0 {
		return errors.New("ALERT_SMTP_PORT must be positive")
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Plain integers are seconds.
		secs, convErr := strconv.Atoi(v)
		if convErr != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		d = time.Duration(secs) * time.Second
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
