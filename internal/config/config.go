package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// RedisConfig Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GeocodeConfig reverse-geocoding lookup settings (Nominatim).
type GeocodeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// WorkdayConfig drives status derivation on check-in/check-out.
type WorkdayConfig struct {
	ShiftStart      string        `yaml:"shift_start"` // "09:00"
	ShiftEnd        string        `yaml:"shift_end"`   // "18:00"
	LateGrace       time.Duration `yaml:"late_grace"`
	BreakDuration   time.Duration `yaml:"break_duration"`
	HalfDayMaxHours float64       `yaml:"half_day_max_hours"`
}

// AgentConfig settings for the self-attendance agent binary.
type AgentConfig struct {
	ServerBaseURL      string        `yaml:"server_base_url"`
	EmployeeID         string        `yaml:"employee_id"`
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	TrackInterval      time.Duration `yaml:"track_interval"`
}

// Config attendance platform configuration (server + agent).
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Geocode  GeocodeConfig  `yaml:"geocode"`
	Workday  WorkdayConfig  `yaml:"workday"`
	Agent    AgentConfig    `yaml:"agent"`
	Log      struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load builds the configuration from environment variables, optionally
// overlaid by a YAML file named in CONFIG_FILE. Env vars win for anything
// the file leaves at its zero value.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "attendance")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Geocode.BaseURL = getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org")
	cfg.Geocode.UserAgent = getEnv("GEOCODE_USER_AGENT", "attendance-backend/1.0 (self-attendance)")
	cfg.Geocode.Timeout = parseDuration(getEnv("GEOCODE_TIMEOUT", "10s"), 10*time.Second)

	cfg.Workday.ShiftStart = getEnv("WORKDAY_SHIFT_START", "09:00")
	cfg.Workday.ShiftEnd = getEnv("WORKDAY_SHIFT_END", "18:00")
	cfg.Workday.LateGrace = parseDuration(getEnv("WORKDAY_LATE_GRACE", "15m"), 15*time.Minute)
	cfg.Workday.BreakDuration = parseDuration(getEnv("WORKDAY_BREAK", "1h"), time.Hour)
	cfg.Workday.HalfDayMaxHours = parseFloat(getEnv("WORKDAY_HALF_DAY_MAX_HOURS", "5"), 5)

	cfg.Agent.ServerBaseURL = getEnv("AGENT_SERVER_URL", "http://localhost:8080")
	cfg.Agent.EmployeeID = getEnv("AGENT_EMPLOYEE_ID", "")
	cfg.Agent.StatusPollInterval = parseDuration(getEnv("AGENT_STATUS_POLL_INTERVAL", "30s"), 30*time.Second)
	cfg.Agent.TrackInterval = parseDuration(getEnv("AGENT_TRACK_INTERVAL", "30s"), 30*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// DSN builds a lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
