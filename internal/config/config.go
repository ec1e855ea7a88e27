package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// DefaultFile is read when --config is not given and the file exists.
const DefaultFile = "talkit.yaml"

type Config struct {
	Spec      string         `koanf:"spec"`
	Strict    bool           `koanf:"strict"`
	API       APIConfig      `koanf:"api"`
	Tools     ToolsConfig    `koanf:"tools"`
	Templates TemplateConfig `koanf:"templates"`
	Log       LogConfig      `koanf:"log"`
}

type APIConfig struct {
	BaseURL     string                      `koanf:"base-url"`
	Headers     map[string]string           `koanf:"headers"`
	Timeout     time.Duration               `koanf:"timeout"`
	Credentials map[string]CredentialConfig `koanf:"credentials"`
}

// CredentialConfig holds the secret for one security scheme of the OpenAPI
// document. Values may reference environment variables as ${NAME}.
type CredentialConfig struct {
	Token    string `koanf:"token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type ToolsConfig struct {
	IncludeTags []string `koanf:"include-tags"`
	ExcludeTags []string `koanf:"exclude-tags"`
	Prefix      string   `koanf:"prefix"`
}

type TemplateConfig struct {
	Dir string `koanf:"dir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// BindCommonFlags binds the flags every command shares.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: talkit.yaml)")
	flags.StringP("spec", "s", "", "OpenAPI spec file path (JSON or YAML)")
	flags.Bool("strict", false, "Also run full OpenAPI model validation")
	flags.String("base-url", "", "Base URL of the API that tools call")
	flags.StringArrayP("header", "H", nil, "Request header as Key=Value (repeatable)")
	flags.Duration("timeout", 0, "Timeout for one tool call")
	flags.StringSlice("include-tags", nil, "Tags to include (exclusive)")
	flags.StringSlice("exclude-tags", nil, "Tags to exclude")
	flags.String("prefix", "", "Prefix added to every tool name")
	flags.String("templates", "", "Custom prompt templates directory")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console, json")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"log.level":   "warn",
		"log.format":  "console",
		"api.timeout": "30s",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap, err := buildFlagsMap(cmd)
	if err != nil {
		return nil, err
	}
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

func buildFlagsMap(cmd *cobra.Command) (map[string]any, error) {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	getStringSlice := func(name string) []string {
		if v, err := cmd.Flags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		if v, err := cmd.PersistentFlags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		return nil
	}

	getStringArray := func(name string) []string {
		if v, err := cmd.Flags().GetStringArray(name); err == nil && len(v) > 0 {
			return v
		}
		if v, err := cmd.PersistentFlags().GetStringArray(name); err == nil && len(v) > 0 {
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

	getDuration := func(name string) time.Duration {
		if v, err := cmd.Flags().GetDuration(name); err == nil {
			return v
		}
		if v, err := cmd.PersistentFlags().GetDuration(name); err == nil {
			return v
		}
		return 0
	}

	if v := getString("spec"); v != "" {
		m["spec"] = v
	}
	if v := getString("base-url"); v != "" {
		m["api.base-url"] = v
	}
	if v := getString("prefix"); v != "" {
		m["tools.prefix"] = v
	}
	if v := getString("templates"); v != "" {
		m["templates.dir"] = v
	}
	if v := getString("log-level"); v != "" {
		m["log.level"] = v
	}
	if v := getString("log-format"); v != "" {
		m["log.format"] = v
	}
	if v := getStringSlice("include-tags"); len(v) > 0 {
		m["tools.include-tags"] = v
	}
	if v := getStringSlice("exclude-tags"); len(v) > 0 {
		m["tools.exclude-tags"] = v
	}
	if flagChanged("strict") {
		m["strict"] = getBool("strict")
	}
	if flagChanged("timeout") {
		m["api.timeout"] = getDuration("timeout").String()
	}

	if headers := getStringArray("header"); len(headers) > 0 {
		parsed := make(map[string]any, len(headers))
		for _, h := range headers {
			name, value, ok := strings.Cut(h, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid header %q (want Key=Value)", h)
			}
			parsed[name] = value
		}
		m["api.headers"] = parsed
	}

	return m, nil
}

func (c *Config) Validate() error {
	if c.Spec == "" {
		return fmt.Errorf("spec file is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}

	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Log.Format)
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.API.Timeout)
	}

	return nil
}
