package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DataDir       string
	RawDir        string
	ProcessedDir  string
	ReferencesDir string
	DocsDir       string

	WaterChunkSize     int
	LivestockChunkSize int
	ReferenceChunkSize int

	DownloadTimeout time.Duration
	DownloadRetries int
	XLSBConverter   string

	// DVC artifact store.
	DVCEnabled    bool
	DVCRemote     string
	DVCRemoteName string

	// S3-compatible artifact store.
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Prefix    string

	KafkaBrokers []string
	KafkaTopic   string

	ReportEnabled  bool
	ReportPublish  bool
	ReportRemote   string
	GitAuthorName  string
	GitAuthorEmail string
	GitToken       string

	PushgatewayURL  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	downloadTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("DOWNLOAD_TIMEOUT", "5m"))
	if err != nil || downloadTimeout <= 0 {
		return nil, errors.New("invalid DOWNLOAD_TIMEOUT")
	}

	waterChunk, err := positiveInt("WATER_CHUNK_SIZE", 10)
	if err != nil {
		return nil, err
	}
	livestockChunk, err := positiveInt("LIVESTOCK_CHUNK_SIZE", 100)
	if err != nil {
		return nil, err
	}
	referenceChunk, err := positiveInt("REFERENCE_CHUNK_SIZE", 5)
	if err != nil {
		return nil, err
	}
	retries, err := positiveInt("DOWNLOAD_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	dvcEnabled, err := parseBool("DVC_ENABLED", false)
	if err != nil {
		return nil, err
	}
	s3UseSSL, err := parseBool("S3_USE_SSL", true)
	if err != nil {
		return nil, err
	}
	reportEnabled, err := parseBool("REPORT_ENABLED", true)
	if err != nil {
		return nil, err
	}
	reportPublish, err := parseBool("REPORT_PUBLISH", false)
	if err != nil {
		return nil, err
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")
	cfg := &Config{
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		ProcessedDir:  filepath.Join(dataDir, "processed"),
		ReferencesDir: sharedcfg.EnvOrDefault("REFERENCES_DIR", "references"),
		DocsDir:       sharedcfg.EnvOrDefault("DOCS_DIR", "docs"),

		WaterChunkSize:     waterChunk,
		LivestockChunkSize: livestockChunk,
		ReferenceChunkSize: referenceChunk,

		DownloadTimeout: downloadTimeout,
		DownloadRetries: retries,
		XLSBConverter:   envOrDefaultAllowEmpty("XLSB_CONVERTER", "soffice"),

		DVCEnabled:    dvcEnabled,
		DVCRemote:     os.Getenv("DVC_REMOTE"),
		DVCRemoteName: sharedcfg.EnvOrDefault("DVC_REMOTE_NAME", "origin"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:    s3UseSSL,
		S3Prefix:    os.Getenv("S3_PREFIX"),

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "dataset-artifacts"),

		ReportEnabled:  reportEnabled,
		ReportPublish:  reportPublish,
		ReportRemote:   sharedcfg.EnvOrDefault("REPORT_REMOTE", "origin"),
		GitAuthorName:  sharedcfg.EnvOrDefault("GIT_AUTHOR_NAME", "rio-sonora-etl"),
		GitAuthorEmail: sharedcfg.EnvOrDefault("GIT_AUTHOR_EMAIL", "etl@localhost"),
		GitToken:       os.Getenv("GIT_TOKEN"),

		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.DVCEnabled && cfg.DVCRemote == "" {
		return nil, errors.New("DVC_ENABLED is true but DVC_REMOTE is not set")
	}
	if (cfg.S3Endpoint == "") != (cfg.S3Bucket == "") {
		return nil, errors.New("S3_ENDPOINT and S3_BUCKET must be set together")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// S3Enabled reports whether artifacts are uploaded to object storage.
func (c *Config) S3Enabled() bool { return c.S3Endpoint != "" && c.S3Bucket != "" }

// KafkaEnabled reports whether artifact notifications are published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func positiveInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", name)
	}
	return n, nil
}

func parseBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

// parseBrokers leaves notifications disabled when KAFKA_BROKERS is unset.
func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

// envOrDefaultAllowEmpty distinguishes an unset variable from one set to "",
// which disables the feature.
func envOrDefaultAllowEmpty(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
