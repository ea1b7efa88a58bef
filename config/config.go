// Package config holds the settings shared by the shell, the bot and the
// self-play runner.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug             = "debug"
	ConfigCPUProfile        = "cpu-profile"
	ConfigMemProfile        = "mem-profile"
	ConfigBoardSize         = "board-size"
	ConfigWinLength         = "win-length"
	ConfigSearchMaxMillis   = "search-max-millis"
	ConfigSearchDepth       = "search-depth"
	ConfigTTableMemFraction = "ttable-mem-fraction"
	ConfigNatsURL           = "nats-url"
	ConfigBotChannel        = "bot-channel"
	ConfigHTTPAddr          = "http-addr"
	ConfigDBPath            = "db-path"
	ConfigDataPath          = "data-path"
	ConfigLambdaFunction    = "lambda-function"
	ConfigConfigFile        = "config"
)

// Config wraps a viper instance. Values come from, in increasing order of
// priority: defaults, an optional YAML file, GRIDWAR_ environment
// variables and command-line flags.
type Config struct {
	sync.Mutex
	v *viper.Viper
	// positional arguments left after the flags
	args []string
}

func defaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigCPUProfile, "")
	v.SetDefault(ConfigMemProfile, "")
	v.SetDefault(ConfigBoardSize, 3)
	v.SetDefault(ConfigWinLength, 3)
	v.SetDefault(ConfigSearchMaxMillis, 0)
	v.SetDefault(ConfigSearchDepth, 0)
	v.SetDefault(ConfigTTableMemFraction, 0.02)
	v.SetDefault(ConfigNatsURL, "")
	v.SetDefault(ConfigBotChannel, "gridwar.bot")
	v.SetDefault(ConfigHTTPAddr, ":8088")
	v.SetDefault(ConfigDBPath, "./data/gridwar.db")
	v.SetDefault(ConfigDataPath, "./data")
	v.SetDefault(ConfigLambdaFunction, "")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("gridwar")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	defaults(v)
	return v
}

// DefaultConfig returns a config with default values, still overridable
// through the environment.
func DefaultConfig() *Config {
	return &Config{v: newViper()}
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gridwar", pflag.ContinueOnError)
	fs.String(ConfigConfigFile, "", "path to an optional YAML config file")
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigCPUProfile, "", "write a cpu profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	fs.Int(ConfigBoardSize, 3, "default board size for new games")
	fs.Int(ConfigWinLength, 3, "default line length for new games")
	fs.Int(ConfigSearchMaxMillis, 0, "search time budget in milliseconds, 0 for none")
	fs.Int(ConfigSearchDepth, 0, "search depth, 0 for the board default")
	fs.Float64(ConfigTTableMemFraction, 0.02, "fraction of total memory for the transposition table")
	fs.String(ConfigNatsURL, "", "the NATS server URL")
	fs.String(ConfigBotChannel, "gridwar.bot", "the NATS subject the bot listens on")
	fs.String(ConfigHTTPAddr, ":8088", "address for the bot HTTP server")
	fs.String(ConfigDBPath, "./data/gridwar.db", "path of the sqlite game database")
	fs.String(ConfigDataPath, "./data", "directory for logs and exports")
	fs.String(ConfigLambdaFunction, "", "name or ARN of the move lambda function")
	return fs
}

// Load parses command-line args and reads the config file, if one is
// named. Unknown flags are an error.
func (c *Config) Load(args []string) error {
	c.Lock()
	defer c.Unlock()
	v := newViper()
	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if cfgFile := v.GetString(ConfigConfigFile); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
		log.Info().Str("file", cfgFile).Msg("loaded-config-file")
	}
	c.v = v
	c.args = fs.Args()
	return nil
}

// Args returns the non-flag arguments of the last Load. Everything after
// a "--" is included verbatim.
func (c *Config) Args() []string {
	c.Lock()
	defer c.Unlock()
	return c.args
}

func (c *Config) viper() *viper.Viper {
	if c.v == nil {
		c.v = newViper()
	}
	return c.v
}

func (c *Config) GetString(key string) string {
	c.Lock()
	defer c.Unlock()
	return c.viper().GetString(key)
}

func (c *Config) GetInt(key string) int {
	c.Lock()
	defer c.Unlock()
	return c.viper().GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	c.Lock()
	defer c.Unlock()
	return c.viper().GetBool(key)
}

func (c *Config) GetFloat64(key string) float64 {
	c.Lock()
	defer c.Unlock()
	return c.viper().GetFloat64(key)
}

func (c *Config) Set(key string, value interface{}) {
	c.Lock()
	defer c.Unlock()
	c.viper().Set(key, value)
}

// Write saves the current settings as YAML.
func (c *Config) Write(path string) error {
	c.Lock()
	defer c.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return c.viper().WriteConfigAs(path)
}

// SanitizedSettings returns all settings, with anything that looks like
// a credential masked. Useful for logging.
func (c *Config) SanitizedSettings() map[string]interface{} {
	c.Lock()
	defer c.Unlock()
	settings := c.viper().AllSettings()
	for k, val := range settings {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "token") || strings.Contains(lk, "secret") ||
			strings.Contains(lk, "password") {
			if s, ok := val.(string); ok && s != "" {
				settings[k] = "********"
			}
		}
	}
	return settings
}

// AdjustRelativePaths makes the data and database paths relative to
// basePath, unless they are already absolute. Binaries call this with
// the directory of the executable so they work from any cwd.
func (c *Config) AdjustRelativePaths(basePath string) {
	c.Lock()
	defer c.Unlock()
	v := c.viper()
	for _, key := range []string{ConfigDataPath, ConfigDBPath} {
		p := v.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		v.Set(key, filepath.Join(basePath, p))
	}
}

var ErrBadSetting = errors.New("bad setting")

// Validate checks ranges of the numeric settings.
func (c *Config) Validate() error {
	if f := c.GetFloat64(ConfigTTableMemFraction); f <= 0 || f > 0.5 {
		return fmt.Errorf("%w: %s=%v", ErrBadSetting, ConfigTTableMemFraction, f)
	}
	if ms := c.GetInt(ConfigSearchMaxMillis); ms < 0 {
		return fmt.Errorf("%w: %s=%v", ErrBadSetting, ConfigSearchMaxMillis, ms)
	}
	if d := c.GetInt(ConfigSearchDepth); d < 0 {
		return fmt.Errorf("%w: %s=%v", ErrBadSetting, ConfigSearchDepth, d)
	}
	return nil
}
