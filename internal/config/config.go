package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
)

// DefaultCameraName is used when the file configures a single source without cameras.
const DefaultCameraName = "default_cam"

// Error is returned for a missing or malformed configuration. It is fatal at startup.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RunMode selects how camera workers are scheduled.
type RunMode string

const (
	ModeSharedThread    RunMode = "shared-thread"
	ModeIsolatedProcess RunMode = "isolated-process"
)

// ParseRunMode accepts both the mode names and the legacy "threading"/"multiprocessing".
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "threading", "thread", string(ModeSharedThread):
		return ModeSharedThread, nil
	case "multiprocessing", "process", string(ModeIsolatedProcess):
		return ModeIsolatedProcess, nil
	default:
		return "", fmt.Errorf("invalid run_mode %q (use threading or multiprocessing)", s)
	}
}

type System struct {
	ModelPath       string   `json:"model_path"`
	SourcePath      string   `json:"source_path"`
	IntervalSeconds float64  `json:"interval_seconds"`
	ConfThreshold   float64  `json:"conf_threshold"`
	FrameSkip       int      `json:"frame_skip"`
	UseGPU          bool     `json:"use_gpu"`
	RunMode         string   `json:"run_mode"`
	TrackerCommand  []string `json:"tracker_command"` // detection/tracking process; source path is appended
	RegionDir       string   `json:"roi_dir"`
	HTTPAddr        string   `json:"http_addr"`
	FlushOnExit     bool     `json:"flush_on_exit"`
	RetryAttempts   int      `json:"retry_attempts"`
	PendingLimit    int      `json:"pending_limit"`
}

type Camera struct {
	Name       string `json:"name"`
	SourcePath string `json:"source_path"`
	// PreviewPath is the video or stream setuprois grabs a frame from. Defaults to SourcePath.
	PreviewPath string `json:"preview_path"`
}

type Database struct {
	Driver   string `json:"driver"` // mysql or sqlite
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
	DB       string `json:"db"` // database name, or file path for sqlite
}

type Kafka struct {
	BootstrapServers string `json:"bootstrap_servers"`
	Topic            string `json:"topic"`
	SecurityProtocol string `json:"security_protocol"`
	SASLMechanism    string `json:"sasl_mechanism"`
	SASLUsername     string `json:"sasl_username"`
	SASLPassword     string `json:"sasl_password"`
}

// Enabled reports whether records should also be published to Kafka.
func (k Kafka) Enabled() bool {
	return k.BootstrapServers != ""
}

type Log struct {
	Dir   string `json:"dir"`
	Level string `json:"level"`
}

// Config is the immutable startup configuration. Workers only read it.
type Config struct {
	System   System
	Cameras  []Camera
	Classes  model.ClassNames
	Database Database
	Kafka    Kafka
	Log      Log
	Mode     RunMode
	Path     string
}

type fileConfig struct {
	System   System            `json:"system"`
	Cameras  []Camera          `json:"cameras"`
	Classes  map[string]string `json:"classes"`
	Database Database          `json:"database"`
	Kafka    Kafka             `json:"kafka"`
	Log      Log               `json:"log"`
}

// Load reads the JSON configuration at path (CONFIG_PATH or config.json when empty),
// applies .env and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// a missing .env is normal; the environment is used as is
	_ = godotenv.Load()

	if path == "" {
		path = getEnv("CONFIG_PATH", "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse builds a Config from raw JSON. path is only used in error messages.
func Parse(path string, data []byte) (*Config, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("invalid json: %w", err)}
	}

	cfg := &Config{
		System:   fc.System,
		Cameras:  fc.Cameras,
		Database: fc.Database,
		Kafka:    fc.Kafka,
		Log:      fc.Log,
		Path:     path,
	}
	applyDefaults(cfg)
	applyEnv(cfg)

	var errs error
	cfg.Classes, errs = parseClasses(fc.Classes)

	mode, err := ParseRunMode(cfg.System.RunMode)
	errs = multierr.Append(errs, err)
	cfg.Mode = mode

	errs = multierr.Append(errs, cfg.validate())
	if errs != nil {
		return nil, &Error{Path: path, Err: errs}
	}
	return cfg, nil
}

// Interval returns the aggregation interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.System.IntervalSeconds * float64(time.Second))
}

// Camera returns the configured camera with the given name.
func (c *Config) Camera(name string) (Camera, bool) {
	for _, cam := range c.Cameras {
		if cam.Name == name {
			return cam, true
		}
	}
	return Camera{}, false
}

func applyDefaults(cfg *Config) {
	if len(cfg.Cameras) == 0 && cfg.System.SourcePath != "" {
		cfg.Cameras = []Camera{{Name: DefaultCameraName, SourcePath: cfg.System.SourcePath}}
	}
	for i := range cfg.Cameras {
		if cfg.Cameras[i].SourcePath == "" {
			cfg.Cameras[i].SourcePath = cfg.System.SourcePath
		}
		if cfg.Cameras[i].PreviewPath == "" {
			cfg.Cameras[i].PreviewPath = cfg.Cameras[i].SourcePath
		}
	}
	if cfg.System.RegionDir == "" {
		cfg.System.RegionDir = "rois"
	}
	if cfg.System.RetryAttempts <= 0 {
		cfg.System.RetryAttempts = 3
	}
	if cfg.System.PendingLimit <= 0 {
		cfg.System.PendingLimit = 1000
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "roi-counts"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Username = getEnv("DB_USER", cfg.Database.Username)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.DB = getEnv("DB_NAME", cfg.Database.DB)

	cfg.Kafka.BootstrapServers = getEnv("KAFKA_BOOTSTRAP_SERVERS", cfg.Kafka.BootstrapServers)
	cfg.Kafka.SASLUsername = getEnv("KAFKA_SASL_USERNAME", cfg.Kafka.SASLUsername)
	cfg.Kafka.SASLPassword = getEnv("KAFKA_SASL_PASSWORD", cfg.Kafka.SASLPassword)

	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.System.HTTPAddr = getEnv("HTTP_ADDR", cfg.System.HTTPAddr)
	cfg.System.RunMode = getEnv("RUN_MODE", cfg.System.RunMode)
}

func parseClasses(raw map[string]string) (model.ClassNames, error) {
	names := make(model.ClassNames, len(raw))
	var errs error
	for key, name := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < 0 {
			errs = multierr.Append(errs, fmt.Errorf("classes: invalid class id %q", key))
			continue
		}
		names[model.ClassID(id)] = name
	}
	return names, errs
}

func (c *Config) validate() error {
	var errs error

	if c.System.IntervalSeconds <= 0 {
		errs = multierr.Append(errs, errors.New("system.interval_seconds must be greater than 0"))
	}
	if c.System.FrameSkip < 0 {
		errs = multierr.Append(errs, errors.New("system.frame_skip must not be negative"))
	}
	if c.System.ConfThreshold < 0 || c.System.ConfThreshold > 1 {
		errs = multierr.Append(errs, errors.New("system.conf_threshold must be within [0, 1]"))
	}
	if len(c.Cameras) == 0 {
		errs = multierr.Append(errs, errors.New("at least one camera is required"))
	}

	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		switch {
		case cam.Name == "":
			errs = multierr.Append(errs, fmt.Errorf("cameras[%d].name is required", i))
		case seen[cam.Name]:
			errs = multierr.Append(errs, fmt.Errorf("cameras[%d].name %q is duplicated", i, cam.Name))
		case strings.ContainsAny(cam.Name, `/\`):
			errs = multierr.Append(errs, fmt.Errorf("cameras[%d].name %q must not contain path separators", i, cam.Name))
		}
		seen[cam.Name] = true
		if cam.SourcePath == "" {
			errs = multierr.Append(errs, fmt.Errorf("cameras[%d].source_path is required", i))
		}
	}

	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" || c.Database.DB == "" {
			errs = multierr.Append(errs, errors.New("database.host and database.db are required for mysql"))
		}
	case "sqlite":
		if c.Database.DB == "" {
			errs = multierr.Append(errs, errors.New("database.db (file path) is required for sqlite"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	return errs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
