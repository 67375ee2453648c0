package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/unread-assistant/inbox"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/fileutils"
	"github.com/theimaginaryfoundation/unread-assistant/inbox/provider"
)

// defaultConfigFile is picked up from the working directory when -config is not given.
const defaultConfigFile = "unread-agent.yaml"

type Config struct {
	ConfigPath      string
	RecordsPath     string
	Provider        string
	Model           string
	MaxOutputTokens int
	APIKey          string
	BaseURL         string
	JournalPath     string
	LogLevel        string
	LogFormat       string
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	RecordsPath     string `yaml:"records_path"`
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	JournalPath     string `yaml:"journal_path"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
}

func (c Config) Validate() error {
	if c.RecordsPath == "" {
		return errors.New("missing -records")
	}
	switch c.Provider {
	case provider.OpenAI, provider.Anthropic:
	default:
		return fmt.Errorf("unknown -provider %q (valid: openai, anthropic)", c.Provider)
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max-output-tokens must be > 0")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown -log-format %q (valid: text, json)", c.LogFormat)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		RecordsPath:     inbox.DefaultRecordsPath,
		Provider:        provider.OpenAI,
		MaxOutputTokens: inbox.DefaultMaxOutputTokens,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// parseFlags resolves the configuration: defaults, then the YAML file, then the environment, then flags.
func parseFlags(fs *flag.FlagSet, args []string, getenv func(string) string) (Config, error) {
	def := defaultConfig()
	var fl Config
	fs.SetOutput(os.Stderr)

	fs.StringVar(&fl.ConfigPath, "config", "", "Optional YAML config file (default: ./"+defaultConfigFile+" if present)")
	fs.StringVar(&fl.RecordsPath, "records", def.RecordsPath, "Path to the unread message records file")
	fs.StringVar(&fl.Provider, "provider", def.Provider, "Completion provider: openai or anthropic")
	fs.StringVar(&fl.Model, "model", "", "Model to use (default: gpt-4-turbo for openai, claude-3-5-haiku-latest for anthropic)")
	fs.IntVar(&fl.MaxOutputTokens, "max-output-tokens", def.MaxOutputTokens, "Upper bound on tokens generated per reply")
	fs.StringVar(&fl.APIKey, "api-key", "", "API key (overrides OPENAI_API_KEY / ANTHROPIC_API_KEY)")
	fs.StringVar(&fl.BaseURL, "base-url", "", "Optional API base URL override")
	fs.StringVar(&fl.JournalPath, "journal", "", "Optional SQLite file to journal every exchange into")
	fs.StringVar(&fl.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&fl.LogFormat, "log-format", def.LogFormat, "Log format: text or json")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/unread-agent")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/unread-agent -provider anthropic -journal unread.db")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	cfgPath := fl.ConfigPath
	if cfgPath == "" && fileutils.FileExists(defaultConfigFile) {
		cfgPath = defaultConfigFile
	}
	if cfgPath != "" {
		fc, err := loadConfigFile(cfgPath)
		if err != nil {
			return Config{}, err
		}
		cfg.applyFile(fc)
		cfg.ConfigPath = filepath.Clean(cfgPath)
	}

	cfg.applyEnv(getenv)

	baseURLFlag := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "records":
			cfg.RecordsPath = fl.RecordsPath
		case "provider":
			cfg.Provider = fl.Provider
		case "model":
			cfg.Model = fl.Model
		case "max-output-tokens":
			cfg.MaxOutputTokens = fl.MaxOutputTokens
		case "api-key":
			cfg.APIKey = fl.APIKey
		case "base-url":
			cfg.BaseURL = fl.BaseURL
			baseURLFlag = true
		case "journal":
			cfg.JournalPath = fl.JournalPath
		case "log-level":
			cfg.LogLevel = fl.LogLevel
		case "log-format":
			cfg.LogFormat = fl.LogFormat
		}
	})

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel(cfg.Provider)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = getenv(provider.APIKeyEnv(cfg.Provider))
	}
	if !baseURLFlag {
		setString(&cfg.BaseURL, getenv(baseURLEnv(cfg.Provider)))
	}
	if cfg.RecordsPath != "" {
		cfg.RecordsPath = filepath.Clean(cfg.RecordsPath)
	}
	if cfg.JournalPath != "" {
		cfg.JournalPath = filepath.Clean(cfg.JournalPath)
	}
	return cfg, nil
}

func loadConfigFile(path string) (fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func (c *Config) applyFile(fc fileConfig) {
	setString(&c.RecordsPath, fc.RecordsPath)
	setString(&c.Provider, fc.Provider)
	setString(&c.Model, fc.Model)
	setString(&c.APIKey, fc.APIKey)
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.JournalPath, fc.JournalPath)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	if fc.MaxOutputTokens != 0 {
		c.MaxOutputTokens = fc.MaxOutputTokens
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString(&c.Provider, getenv("UNREAD_PROVIDER"))
	setString(&c.Model, getenv("UNREAD_MODEL"))
	setString(&c.RecordsPath, getenv("UNREAD_RECORDS"))
	setString(&c.JournalPath, getenv("UNREAD_JOURNAL"))
	setString(&c.LogLevel, getenv("UNREAD_LOG_LEVEL"))
}

// baseURLEnv names the base URL override variable for the resolved provider.
func baseURLEnv(name string) string {
	if name == provider.Anthropic {
		return "ANTHROPIC_BASE_URL"
	}
	return "OPENAI_BASE_URL"
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
