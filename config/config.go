package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pnl_dashboard/logger"
)

// Config holds service configuration derived from the config file and
// environment variables.
type Config struct {
	HTTPPort       string
	Backend        string
	DBPath         string
	SnapshotDir    string
	WatchSnapshots bool
	Google         GoogleConfig
	Cache          CacheConfig
	Refresh        RefreshConfig
	Log            LogConfig
	Tables         Tables
	StrictConfig   bool
	ConfigPath     string
}

// GoogleConfig carries service-account credentials. ServiceAccountKey is the
// full JSON key; ClientEmail and PrivateKey are the split form.
type GoogleConfig struct {
	ServiceAccountKey string
	ClientEmail       string
	PrivateKey        string
}

func (g GoogleConfig) HasCredentials() bool {
	return strings.TrimSpace(g.ServiceAccountKey) != "" ||
		(strings.TrimSpace(g.ClientEmail) != "" && strings.TrimSpace(g.PrivateKey) != "")
}

type CacheConfig struct {
	Backend   string
	TTLSec    int
	RedisURL  string
	KeyPrefix string
}

// RefreshConfig drives background cache warming.
type RefreshConfig struct {
	IntervalSec   int
	WorkerCount   int
	QueueSize     int
	JobTimeoutSec int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
	MaxAge int
}

type fileConfig struct {
	HTTPPort       string            `json:"http_port" yaml:"http_port"`
	Backend        string            `json:"backend" yaml:"backend"`
	DBPath         string            `json:"db_path" yaml:"db_path"`
	SnapshotDir    string            `json:"snapshot_dir" yaml:"snapshot_dir"`
	WatchSnapshots *bool             `json:"watch_snapshots" yaml:"watch_snapshots"`
	Cache          cacheFileConfig   `json:"cache" yaml:"cache"`
	Refresh        refreshFileConfig `json:"refresh" yaml:"refresh"`
	Log            logFileConfig     `json:"log" yaml:"log"`
	Tables         Tables            `json:"tables" yaml:"tables"`
}

type cacheFileConfig struct {
	Backend   string `json:"backend" yaml:"backend"`
	TTLSec    *int   `json:"ttl_sec" yaml:"ttl_sec"`
	RedisURL  string `json:"redis_url" yaml:"redis_url"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type refreshFileConfig struct {
	IntervalSec   *int `json:"interval_sec" yaml:"interval_sec"`
	WorkerCount   *int `json:"worker_count" yaml:"worker_count"`
	QueueSize     *int `json:"queue_size" yaml:"queue_size"`
	JobTimeoutSec *int `json:"job_timeout_sec" yaml:"job_timeout_sec"`
}

type logFileConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
	MaxAge *int   `json:"max_age" yaml:"max_age"`
}

const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendCSV    = "csv"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

const (
	defaultPort          = ":8000"
	defaultBackend       = BackendSheets
	defaultDBPath        = "runtime/tables.db"
	defaultSnapshotDir   = "runtime/snapshots"
	defaultCacheTTLSec   = 900
	defaultKeyPrefix     = "pnl:"
	defaultRefreshSec    = 300
	minQueueSize         = 1
	defaultQueueSize     = 32
	maxQueueSize         = 1024
	defaultWorkerCount   = 2
	defaultJobTimeoutSec = 60
)

func defaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		IntervalSec:   defaultRefreshSec,
		WorkerCount:   defaultWorkerCount,
		QueueSize:     defaultQueueSize,
		JobTimeoutSec: defaultJobTimeoutSec,
	}
}

// Load reads configuration from the optional .env file, the config file and
// environment variables, in increasing order of precedence.
func Load() (Config, error) {
	log := logger.GetLogger().WithComponent("config")

	envFile := getEnv("ENV_FILE", ".env")
	if err := LoadDotEnv(envFile); err != nil {
		log.Warnf("dotenv load failed (%s): %v", envFile, err)
	}

	cfg := Config{
		StrictConfig: parseBoolEnv("STRICT_CONFIG"),
		Google: GoogleConfig{
			ServiceAccountKey: os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY"),
			ClientEmail:       os.Getenv("GOOGLE_CLIENT_EMAIL"),
			PrivateKey:        os.Getenv("GOOGLE_PRIVATE_KEY"),
		},
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	cfg.ConfigPath = configPath

	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Debugf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	cfg.Backend = strings.ToLower(firstNonEmpty(os.Getenv("DATA_BACKEND"), fileCfg.Backend, defaultBackend))
	cfg.DBPath = firstNonEmpty(os.Getenv("DB_PATH"), fileCfg.DBPath, defaultDBPath)
	cfg.SnapshotDir = firstNonEmpty(os.Getenv("SNAPSHOT_DIR"), fileCfg.SnapshotDir, defaultSnapshotDir)
	cfg.WatchSnapshots = true
	if fileCfg.WatchSnapshots != nil {
		cfg.WatchSnapshots = *fileCfg.WatchSnapshots
	}
	cfg.WatchSnapshots = parseBoolEnvDefault("WATCH_SNAPSHOTS", cfg.WatchSnapshots)

	cfg.Tables = applyTableOverrides(defaultTables(), fileCfg.Tables)

	cfg.Cache = CacheConfig{
		Backend:   strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fileCfg.Cache.Backend, CacheMemory)),
		TTLSec:    defaultCacheTTLSec,
		RedisURL:  firstNonEmpty(os.Getenv("REDIS_URL"), fileCfg.Cache.RedisURL),
		KeyPrefix: firstNonEmpty(os.Getenv("CACHE_KEY_PREFIX"), fileCfg.Cache.KeyPrefix, defaultKeyPrefix),
	}
	if fileCfg.Cache.TTLSec != nil && *fileCfg.Cache.TTLSec >= 0 {
		cfg.Cache.TTLSec = *fileCfg.Cache.TTLSec
	}
	if v, ok, err := parseIntEnv("CACHE_TTL"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		log.Warnf("invalid CACHE_TTL: %v (using %d)", err, cfg.Cache.TTLSec)
	} else if ok && v >= 0 {
		cfg.Cache.TTLSec = v
	}

	cfg.Refresh = applyRefreshOverrides(defaultRefreshConfig(), fileCfg.Refresh)
	if v, ok, err := parseIntEnv("REFRESH_INTERVAL_SEC"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid REFRESH_INTERVAL_SEC: %w", err)
		}
		log.Warnf("invalid REFRESH_INTERVAL_SEC: %v (using default)", err)
	} else if ok && v >= 0 {
		cfg.Refresh.IntervalSec = v
	}

	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warnf("invalid WORKER_COUNT=%q, using default %d", v, defaultWorkerCount)
			n = defaultWorkerCount
		}
		if n <= 0 {
			log.Warnf("WORKER_COUNT must be positive, using default %d", defaultWorkerCount)
			n = defaultWorkerCount
		}
		cfg.Refresh.WorkerCount = n
	}

	if v := os.Getenv("JOB_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warnf("invalid JOB_QUEUE_SIZE=%q, using default %d", v, defaultQueueSize)
			n = defaultQueueSize
		}
		cfg.Refresh.QueueSize = n
	}
	if cfg.Refresh.QueueSize < minQueueSize {
		log.Warnf("JOB_QUEUE_SIZE raised to minimum %d (was %d)", minQueueSize, cfg.Refresh.QueueSize)
		cfg.Refresh.QueueSize = minQueueSize
	}
	if cfg.Refresh.QueueSize > maxQueueSize {
		log.Warnf("JOB_QUEUE_SIZE capped at %d (was %d)", maxQueueSize, cfg.Refresh.QueueSize)
		cfg.Refresh.QueueSize = maxQueueSize
	}
	if cfg.Refresh.QueueSize < cfg.Refresh.WorkerCount {
		log.Warnf("JOB_QUEUE_SIZE must be >= WORKER_COUNT; using %d", max(defaultQueueSize, cfg.Refresh.WorkerCount))
		cfg.Refresh.QueueSize = max(defaultQueueSize, cfg.Refresh.WorkerCount)
	}

	if v := os.Getenv("JOB_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid JOB_TIMEOUT_SEC: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("JOB_TIMEOUT_SEC must be positive")
		}
		cfg.Refresh.JobTimeoutSec = n
	}

	cfg.Log = LogConfig{
		Level:  firstNonEmpty(os.Getenv("LOG_LEVEL"), fileCfg.Log.Level, "info"),
		Format: firstNonEmpty(os.Getenv("LOG_FORMAT"), fileCfg.Log.Format, "json"),
		Output: firstNonEmpty(os.Getenv("LOG_OUTPUT"), fileCfg.Log.Output, "stdout"),
	}
	if fileCfg.Log.MaxAge != nil {
		cfg.Log.MaxAge = *fileCfg.Log.MaxAge
	}
	if v, ok, err := parseIntEnv("LOG_MAX_AGE"); err == nil && ok {
		cfg.Log.MaxAge = v
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Warnf("config validation failed: %v (continuing)", err)
	}

	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	switch cfg.Backend {
	case BackendSheets:
		if !cfg.Google.HasCredentials() {
			return errors.New("sheets backend requires GOOGLE_SERVICE_ACCOUNT_KEY or GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY")
		}
		for _, name := range cfg.Tables.Names() {
			ref, _ := cfg.Tables.Lookup(name)
			if strings.TrimSpace(ref.SheetID) == "" {
				return fmt.Errorf("sheet id missing for table %s", name)
			}
		}
	case BackendSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return errors.New("DB_PATH is required for the sqlite backend")
		}
	case BackendCSV:
		if strings.TrimSpace(cfg.SnapshotDir) == "" {
			return errors.New("SNAPSHOT_DIR is required for the csv backend")
		}
	default:
		return fmt.Errorf("unknown DATA_BACKEND %q", cfg.Backend)
	}
	switch cfg.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(cfg.Cache.RedisURL) == "" {
			return errors.New("REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend)
	}
	if cfg.Refresh.WorkerCount <= 0 {
		return errors.New("refresh worker count must be positive")
	}
	return nil
}

func applyRefreshOverrides(base RefreshConfig, override refreshFileConfig) RefreshConfig {
	if override.IntervalSec != nil && *override.IntervalSec >= 0 {
		base.IntervalSec = *override.IntervalSec
	}
	if override.WorkerCount != nil && *override.WorkerCount > 0 {
		base.WorkerCount = *override.WorkerCount
	}
	if override.QueueSize != nil && *override.QueueSize > 0 {
		base.QueueSize = *override.QueueSize
	}
	if override.JobTimeoutSec != nil && *override.JobTimeoutSec > 0 {
		base.JobTimeoutSec = *override.JobTimeoutSec
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}
