// Package config loads and validates generator configuration via Viper.
package config

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OGCARDS_SERVER_PORT.
const EnvPrefix = "OGCARDS"

// DefaultPort is used when no port is configured.
const DefaultPort = 3000

// Config captures all knobs of a build run.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Browser BrowserConfig `mapstructure:"browser"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the loopback content server.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

// PathsConfig locates the card template and the blog posts.
type PathsConfig struct {
	Templates string `mapstructure:"templates"`
	Posts     string `mapstructure:"posts"`
}

// BrowserConfig configures the headless browser and render loop.
type BrowserConfig struct {
	ExecPath          string        `mapstructure:"exec_path"`
	Headless          bool          `mapstructure:"headless"`
	ContainerSelector string        `mapstructure:"container_selector"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"port":            "server.port",
	"template-folder": "paths.templates",
	"blog-folder":     "paths.posts",
	"chrome-path":     "browser.exec_path",
	"job-timeout":     "browser.job_timeout",
	"dev-logging":     "logging.development",
	"log-level":       "logging.level",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that were set explicitly.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, errors.Wrapf(err, "bind flag --%s", name)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("paths.templates", "")
	v.SetDefault("paths.posts", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.container_selector", "#container")
	v.SetDefault("browser.job_timeout", "30s")
	v.SetDefault("browser.window_width", 1200)
	v.SetDefault("browser.window_height", 630)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be within 0..65535, got %d", c.Server.Port)
	}
	if !isLoopback(c.Server.Host) {
		return errors.WithHint(
			errors.Newf("server.host must be a loopback address, got %q", c.Server.Host),
			"use 127.0.0.1, ::1 or localhost",
		)
	}
	if c.Server.ShutdownTimeout < 0 || c.Server.ReadHeaderTimeout < 0 {
		return errors.New("server timeouts must be >= 0")
	}
	if c.Browser.JobTimeout < 0 {
		return errors.New("browser.job_timeout must be >= 0")
	}
	if c.Browser.ExecPath == "" {
		return errors.WithHint(errors.New("browser.exec_path is required"), "pass --chrome-path")
	}
	if err := requireDir("paths.templates", c.Paths.Templates, "--template-folder"); err != nil {
		return err
	}
	return requireDir("paths.posts", c.Paths.Posts, "--blog-folder")
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func requireDir(key, dir, flag string) error {
	if dir == "" {
		return errors.WithHintf(errors.Newf("%s is required", key), "pass %s", flag)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	if !info.IsDir() {
		return errors.Newf("%s: %s is not a directory", key, dir)
	}
	return nil
}
