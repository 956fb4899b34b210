package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phillip-england/lmsportal/internal/envutil"
)

const (
	DefaultAPIBaseURL  = "http://127.0.0.1:8000"
	DefaultEmpAuthPath = "/api/v1/Emp_auth"
	DefaultEmpDashPath = "/api/v1/Emp_Dash"
	DefaultManAuthPath = "/api/v1/Man_auth"
	DefaultManDashPath = "/api/v1/Man_Dash"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config holds runtime configuration for every lmsportal front end.
type Config struct {
	APIBaseURL     string
	EmpAuthPath    string
	EmpDashPath    string
	ManAuthPath    string
	ManDashPath    string
	RequestTimeout time.Duration

	SessionFile    string
	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	ClientAddr           string
	DevAPIAddr           string
	DevAPISecret         string
	EmployeePollInterval time.Duration

	LogLevel string
	LogFile  string
}

// Load reads .env (LMS_ENV_FILE, default ".env"), the environment and the
// optional YAML overlay named by LMS_CONFIG_FILE, then validates the result.
func Load() (Config, error) {
	if err := envutil.LoadDotEnv(fallback(os.Getenv("LMS_ENV_FILE"), ".env")); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := FromEnv()
	if path := strings.TrimSpace(os.Getenv("LMS_CONFIG_FILE")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables and defaults only.
func FromEnv() Config {
	return Config{
		APIBaseURL:     strings.TrimRight(fallback(os.Getenv("LMS_API_BASE_URL"), DefaultAPIBaseURL), "/"),
		EmpAuthPath:    fallback(os.Getenv("LMS_EMP_AUTH_PATH"), DefaultEmpAuthPath),
		EmpDashPath:    fallback(os.Getenv("LMS_EMP_DASH_PATH"), DefaultEmpDashPath),
		ManAuthPath:    fallback(os.Getenv("LMS_MAN_AUTH_PATH"), DefaultManAuthPath),
		ManDashPath:    fallback(os.Getenv("LMS_MAN_DASH_PATH"), DefaultManDashPath),
		RequestTimeout: getEnvDuration("LMS_REQUEST_TIMEOUT", 0),

		SessionFile:    fallback(os.Getenv("LMS_SESSION_FILE"), defaultSessionFile()),
		SessionBackend: strings.ToLower(fallback(os.Getenv("LMS_SESSION_BACKEND"), SessionBackendMemory)),
		SessionTTL:     getEnvDuration("LMS_SESSION_TTL", 12*time.Hour),
		RedisAddr:      fallback(os.Getenv("LMS_REDIS_ADDR"), "127.0.0.1:6379"),
		RedisPassword:  os.Getenv("LMS_REDIS_PASSWORD"),
		RedisDB:        getEnvInt("LMS_REDIS_DB", 0),

		ClientAddr:           fallback(os.Getenv("LMS_CLIENT_ADDR"), ":3000"),
		DevAPIAddr:           fallback(os.Getenv("LMS_DEV_API_ADDR"), ":8000"),
		DevAPISecret:         fallback(os.Getenv("LMS_DEV_API_SECRET"), "lmsportal-dev-secret"),
		EmployeePollInterval: getEnvDuration("LMS_EMPLOYEE_POLL_INTERVAL", 5*time.Second),

		LogLevel: strings.TrimSpace(os.Getenv("LMS_LOG_LEVEL")),
		LogFile:  strings.TrimSpace(os.Getenv("LMS_LOG_FILE")),
	}
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid LMS_API_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid LMS_API_BASE_URL %q: must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.EmployeePollInterval <= 0 {
		return errors.New("LMS_EMPLOYEE_POLL_INTERVAL must be positive")
	}
	if c.RequestTimeout < 0 {
		return errors.New("LMS_REQUEST_TIMEOUT must not be negative")
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown LMS_SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// overlayFile applies the non-zero fields of a YAML file on top of c.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	file.apply(c)
	return nil
}

// fileConfig mirrors Config with string durations so YAML can say "5s".
type fileConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	Endpoints  struct {
		EmpAuth string `yaml:"emp_auth"`
		EmpDash string `yaml:"emp_dash"`
		ManAuth string `yaml:"man_auth"`
		ManDash string `yaml:"man_dash"`
	} `yaml:"endpoints"`
	RequestTimeout string `yaml:"request_timeout"`
	Session        struct {
		File          string `yaml:"file"`
		Backend       string `yaml:"backend"`
		TTL           string `yaml:"ttl"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       *int   `yaml:"redis_db"`
	} `yaml:"session"`
	ClientAddr           string `yaml:"client_addr"`
	EmployeePollInterval string `yaml:"employee_poll_interval"`
	LogLevel             string `yaml:"log_level"`
	LogFile              string `yaml:"log_file"`
}

func (f fileConfig) apply(c *Config) {
	setString(&c.APIBaseURL, strings.TrimRight(f.APIBaseURL, "/"))
	setString(&c.EmpAuthPath, f.Endpoints.EmpAuth)
	setString(&c.EmpDashPath, f.Endpoints.EmpDash)
	setString(&c.ManAuthPath, f.Endpoints.ManAuth)
	setString(&c.ManDashPath, f.Endpoints.ManDash)
	setDuration(&c.RequestTimeout, f.RequestTimeout)
	setString(&c.SessionFile, f.Session.File)
	setString(&c.SessionBackend, strings.ToLower(f.Session.Backend))
	setDuration(&c.SessionTTL, f.Session.TTL)
	setString(&c.RedisAddr, f.Session.RedisAddr)
	setString(&c.RedisPassword, f.Session.RedisPassword)
	if f.Session.RedisDB != nil {
		c.RedisDB = *f.Session.RedisDB
	}
	setString(&c.ClientAddr, f.ClientAddr)
	setDuration(&c.EmployeePollInterval, f.EmployeePollInterval)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogFile, f.LogFile)
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, value string) {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
		*dst = d
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".lmsportal", "session.json")
	}
	return filepath.Join(dir, "lmsportal", "session.json")
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func getEnvInt(key string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return value
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// bare numbers are seconds
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
