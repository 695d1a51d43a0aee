package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vaughan0/go-ini"
)

const (
	defaultSessionCookieName = "sessionId"
	defaultSessionLifetime   = 24 * time.Hour
)

type HTTPConfig struct {
	ListenAddress string
	ListenPort    string
	StaticURL     string
}

// DatabaseConfig holds the connection settings. It is populated once by LoadConfig and never modified afterwards.
type DatabaseConfig struct {
	URL      string
	User     string
	Password string
}

type LogConfig struct {
	Level    string
	PgxLevel string
}

type SessionConfig struct {
	Store      string // "postgres" or "redis"
	RedisURL   string
	CookieName string
	Secure     bool
	Lifetime   time.Duration
}

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Log      LogConfig
	Session  SessionConfig
}

// Environment variable names for the database settings.
const (
	EnvDatabaseURL      = "DB_URL"
	EnvDatabaseUser     = "DB_USER"
	EnvDatabasePassword = "DB_PASS"
)

// MissingConfigError reports required settings that were not found in any configuration source.
type MissingConfigError struct {
	Names []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Names, ", "))
}

// LoadConfig reads the ini file at path and the dotenv file at envPath. Either file may be absent. Database settings
// are resolved with precedence process environment, then dotenv file, then the ini [database] section. lookupEnv is
// normally os.LookupEnv.
func LoadConfig(path, envPath string, lookupEnv func(string) (string, bool)) (*Config, error) {
	file, err := loadIniFile(path)
	if err != nil {
		return nil, err
	}

	dotenv, err := loadDotenv(envPath)
	if err != nil {
		return nil, err
	}

	config := &Config{}

	config.HTTP.ListenAddress, _ = file.Get("server", "address")
	config.HTTP.ListenPort, _ = file.Get("server", "port")
	config.HTTP.StaticURL, _ = file.Get("server", "static_url")

	config.Log.Level, _ = file.Get("log", "level")
	config.Log.PgxLevel, _ = file.Get("log", "pgx_level")

	config.Session, err = loadSessionConfig(file)
	if err != nil {
		return nil, err
	}

	lookup := func(envName, iniKey string) (string, bool) {
		if v, ok := lookupEnv(envName); ok {
			return v, true
		}
		if v, ok := dotenv[envName]; ok {
			return v, true
		}
		return file.Get("database", iniKey)
	}

	var missing []string
	var ok bool

	if config.Database.URL, ok = lookup(EnvDatabaseURL, "url"); !ok || config.Database.URL == "" {
		missing = append(missing, EnvDatabaseURL)
	}
	if config.Database.User, ok = lookup(EnvDatabaseUser, "user"); !ok || config.Database.User == "" {
		missing = append(missing, EnvDatabaseUser)
	}
	// An explicitly empty password is allowed (e.g. trust authentication) but it must be set.
	if config.Database.Password, ok = lookup(EnvDatabasePassword, "password"); !ok {
		missing = append(missing, EnvDatabasePassword)
	}

	if len(missing) > 0 {
		return nil, &MissingConfigError{Names: missing}
	}

	config.Database.URL = strings.TrimPrefix(config.Database.URL, "jdbc:")

	return config, nil
}

func loadIniFile(path string) (ini.File, error) {
	if path == "" {
		return ini.File{}, nil
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := ini.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ini.File{}, nil
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return file, nil
}

func loadDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	return env, nil
}

func loadSessionConfig(file ini.File) (SessionConfig, error) {
	sc := SessionConfig{
		Store:      "postgres",
		CookieName: defaultSessionCookieName,
		Lifetime:   defaultSessionLifetime,
	}

	if s, ok := file.Get("session", "store"); ok && s != "" {
		sc.Store = s
	}
	switch sc.Store {
	case "postgres":
	case "redis":
		sc.RedisURL, _ = file.Get("session", "redis_url")
		if sc.RedisURL == "" {
			return sc, errors.New("config must contain session.redis_url when session.store is redis")
		}
	default:
		return sc, fmt.Errorf("bad session.store: %q", sc.Store)
	}

	if s, ok := file.Get("session", "cookie_name"); ok && s != "" {
		sc.CookieName = s
	}

	if s, ok := file.Get("session", "secure"); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return sc, fmt.Errorf("bad session.secure: %w", err)
		}
		sc.Secure = b
	}

	if s, ok := file.Get("session", "lifetime"); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return sc, fmt.Errorf("bad session.lifetime: %w", err)
		}
		if d <= 0 {
			return sc, fmt.Errorf("bad session.lifetime: must be positive")
		}
		sc.Lifetime = d
	}

	return sc, nil
}
