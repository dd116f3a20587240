package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Test server, it fakes a reply as if the posted object had been created
	defaultURL    = "http://jsonplaceholder.typicode.com/posts"
	defaultCAInfo = "curl-ca-bundle.crt"
)

// Config is resolved from the environment, optionally seeded from a .env file.
// The positional name and value never come from here.
type Config struct {
	URL       string `env:"POSTJSON_URL"`
	CAInfo    string `env:"POSTJSON_CA_BUNDLE"`
	Verbose   bool   `env:"POSTJSON_VERBOSE" default:"true"`
	LogLevel  slog.Level
	ConfigDir string `env:"POSTJSON_CONFIG_DIR"`
}

var allowedLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func LoadConfig() (*Config, error) {
	// We ignore the error as the .env file is optional
	_ = godotenv.Load()

	target := getOrDefault("POSTJSON_URL", defaultURL)
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid POSTJSON_URL %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid POSTJSON_URL %q: scheme and host are required", target)
	}

	verbose, err := strconv.ParseBool(getOrDefault("POSTJSON_VERBOSE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTJSON_VERBOSE: %w", err)
	}

	logLevel := strings.ToLower(getOrDefault("POSTJSON_LOG_LEVEL", "info"))
	level, ok := allowedLogLevels[logLevel]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}

	return &Config{
		URL:       target,
		CAInfo:    getOrDefault("POSTJSON_CA_BUNDLE", defaultCAInfo),
		Verbose:   verbose,
		LogLevel:  level,
		ConfigDir: configDir,
	}, nil
}

// LogFile returns where the CLI writes its internal log
func (c *Config) LogFile() string {
	return filepath.Join(c.ConfigDir, "logs", "postjson.log")
}

// resolveConfigDir uses POSTJSON_CONFIG_DIR if set, otherwise defaults to ~/.postjson/
func resolveConfigDir() (string, error) {
	if dir := os.Getenv("POSTJSON_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".postjson"), nil
}

// getOrDefault returns the value of the environment variable with the given key
// or the default value if the variable is not set
func getOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
