package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

const (
	DefaultConfigFile = "codepilot.yaml"
	DefaultEnvFile    = ".env"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	AI      AIConfig      `koanf:"ai"`
	Log     LogConfig     `koanf:"log"`
	Prompts PromptsConfig `koanf:"prompts"`
}

type ServerConfig struct {
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	APIKeys          []string      `koanf:"api-keys"`
	MaxBodyBytes     int64         `koanf:"max-body-bytes"`
	ReadTimeout      time.Duration `koanf:"read-timeout"`
	WriteTimeout     time.Duration `koanf:"write-timeout"`
	ShutdownTimeout  time.Duration `koanf:"shutdown-timeout"`
	ValidateRequests bool          `koanf:"validate-requests"`
}

type AIConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Provider     string        `koanf:"provider"`
	Model        string        `koanf:"model"`
	BaseURL      string        `koanf:"base-url"`
	Temperature  float64       `koanf:"temperature"`
	MaxTokens    int           `koanf:"max-tokens"`
	Timeout      time.Duration `koanf:"timeout"`
	Redact       bool          `koanf:"redact"`
	OpenAIKey    string        `koanf:"openai-key"`
	AnthropicKey string        `koanf:"anthropic-key"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type PromptsConfig struct {
	Dir string `koanf:"dir"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIKey returns the credential for the configured provider.
func (a AIConfig) APIKey() string {
	switch strings.ToLower(a.Provider) {
	case "claude", "anthropic":
		return a.AnthropicKey
	default:
		return a.OpenAIKey
	}
}

// Active reports whether model calls should be attempted at all.
func (a AIConfig) Active() bool {
	return a.Enabled && a.APIKey() != ""
}

func defaults() map[string]any {
	return map[string]any{
		"server.host":              "0.0.0.0",
		"server.port":              3000,
		"server.max-body-bytes":    int64(1 << 20),
		"server.read-timeout":      "15s",
		"server.write-timeout":     "90s",
		"server.shutdown-timeout":  "10s",
		"server.validate-requests": true,
		"ai.enabled":               false,
		"ai.provider":              "openai",
		"ai.temperature":           0.1,
		"ai.timeout":               "60s",
		"ai.redact":                true,
		"log.level":                "info",
		"log.format":               "json",
	}
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string]string{
	"HOST":               "server.host",
	"PORT":               "server.port",
	"CODEPILOT_API_KEYS": "server.api-keys",
	"AI_ENABLED":         "ai.enabled",
	"AI_PROVIDER":        "ai.provider",
	"AI_MODEL":           "ai.model",
	"AI_BASE_URL":        "ai.base-url",
	"AI_TIMEOUT":         "ai.timeout",
	"AI_REDACT":          "ai.redact",
	"OPENAI_API_KEY":     "ai.openai-key",
	"ANTHROPIC_API_KEY":  "ai.anthropic-key",
	"LOG_LEVEL":          "log.level",
	"LOG_FORMAT":         "log.format",
	"PROMPTS_DIR":        "prompts.dir",
}

// BindCommonFlags binds the flags every command understands.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: codepilot.yaml)")
	flags.String("env-file", DefaultEnvFile, "Dotenv file read before the environment")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "Log format: json, console")
	flags.Bool("ai", false, "Use the model-backed analysis path")
	flags.String("provider", "", "Model provider: openai, claude")
	flags.String("model", "", "Model name")
	flags.String("prompts", "", "Directory of prompt templates overriding the built-in ones")
}

// BindServerFlags binds the flags of the serve command.
func BindServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("host", "", "Listen host")
	flags.IntP("port", "p", 0, "Listen port")
	flags.StringSlice("api-keys", nil, "Keys accepted in the X-API-Key header (empty disables the check)")
}

// Load merges, lowest first: defaults, the YAML file, the dotenv file and
// process environment, then explicitly set flags.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile := getString(cmd, "config")
	if configFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configFile = DefaultConfigFile
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	envFile := getString(cmd, "env-file")
	env, err := environment(envFile)
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		if err := k.Load(confmap.Provider(env, "."), nil); err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// environment collects the known variables from the process, falling back
// to envFile for unset or empty ones. The process environment is not modified.
func environment(envFile string) (map[string]any, error) {
	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		if m != nil {
			dotenv = m
		}
	}

	out := make(map[string]any)
	for name, key := range envKeys {
		v := os.Getenv(name)
		if v == "" {
			v = dotenv[name]
		}
		if v == "" {
			continue
		}

		switch key {
		case "ai.enabled":
			// Only the literal "true" turns the model path on.
			out[key] = v == "true"
		case "server.api-keys":
			out[key] = splitList(v)
		default:
			out[key] = v
		}
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(cmd *cobra.Command, name string) string {
	if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
		return v
	}
	if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
		return v
	}
	return ""
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getStringSlice := func(name string) []string {
		if v, err := cmd.Flags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		if v, err := cmd.PersistentFlags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		return nil
	}

	flagChanged := func(name string) bool {
		return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
	}

	getBool := func(name string) bool {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
		if v, err := cmd.PersistentFlags().GetBool(name); err == nil {
			return v
		}
		return false
	}

	if v := getString(cmd, "log-level"); v != "" {
		m["log.level"] = v
	}
	if v := getString(cmd, "log-format"); v != "" {
		m["log.format"] = v
	}
	if v := getString(cmd, "provider"); v != "" {
		m["ai.provider"] = v
	}
	if v := getString(cmd, "model"); v != "" {
		m["ai.model"] = v
	}
	if v := getString(cmd, "prompts"); v != "" {
		m["prompts.dir"] = v
	}
	if flagChanged("ai") {
		m["ai.enabled"] = getBool("ai")
	}

	if v := getString(cmd, "host"); v != "" {
		m["server.host"] = v
	}
	if flagChanged("port") {
		if v, err := cmd.Flags().GetInt("port"); err == nil {
			m["server.port"] = v
		}
	}
	if v := getStringSlice("api-keys"); len(v) > 0 {
		m["server.api-keys"] = v
	}

	return m
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	validProviders := map[string]bool{"openai": true, "claude": true, "anthropic": true}
	if !validProviders[strings.ToLower(c.AI.Provider)] {
		return fmt.Errorf("invalid AI provider: %s (valid: openai, claude)", c.AI.Provider)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %s (valid: 0-2)", strconv.FormatFloat(c.AI.Temperature, 'f', -1, 64))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error, disabled)", c.Log.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Log.Format)
	}

	return nil
}
