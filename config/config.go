package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bassamadnan/mailagent/llm"
)

const (
	DefaultPath      = "mailagent.toml"
	DefaultDataDir   = "data"
	DefaultInboxFile = "mock_inbox.json"
	DefaultPrompts   = "prompts.json"
	DefaultDrafts    = "drafts.json"
	DefaultLogFile   = "mailagent.log"
	DefaultLogLevel  = "info"
)

// Config holds the application settings. Zero fields are filled from the
// defaults above when the file is loaded.
type Config struct {
	DataDir string      `toml:"data_dir" yaml:"data_dir"`
	Files   FilesConfig `toml:"files" yaml:"files"`
	LLM     LLMConfig   `toml:"llm" yaml:"llm"`
	Log     LogConfig   `toml:"log" yaml:"log"`
	Import  Filters     `toml:"import" yaml:"import"`

	path string
}

type FilesConfig struct {
	Inbox   string `toml:"inbox" yaml:"inbox"`
	Prompts string `toml:"prompts" yaml:"prompts"`
	Drafts  string `toml:"drafts" yaml:"drafts"`
}

type LLMConfig struct {
	Provider    string `toml:"provider" yaml:"provider"`
	Model       string `toml:"model" yaml:"model"`
	BaseURL     string `toml:"base_url" yaml:"base_url"`
	APIKey      string `toml:"api_key" yaml:"api_key"`
	Timeout     string `toml:"timeout" yaml:"timeout"`
	MaxFailures uint32 `toml:"max_failures" yaml:"max_failures"`

	timeout time.Duration
}

type LogConfig struct {
	File  string `toml:"file" yaml:"file"`
	Level string `toml:"level" yaml:"level"`
}

// Filters lists the rules that keep messages out of the inbox on import.
// Matching is a case-insensitive substring test.
type Filters struct {
	IgnoreSenders           []string `toml:"ignore_senders" yaml:"ignore_senders"`
	IgnoreKeywordsInSubject []string `toml:"ignore_subject_keywords" yaml:"ignore_subject_keywords"`
	IgnoreKeywordsInBody    []string `toml:"ignore_body_keywords" yaml:"ignore_body_keywords"`
}

// Load reads the settings file at path, then applies .env and environment
// overrides. A missing file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

func (c *Config) applyEnv() {
	setFromEnv(&c.LLM.Provider, "MAILAGENT_PROVIDER")
	setFromEnv(&c.LLM.Model, "MAILAGENT_MODEL")
	setFromEnv(&c.LLM.BaseURL, "MAILAGENT_BASE_URL")
	setFromEnv(&c.DataDir, "MAILAGENT_DATA_DIR")
	setFromEnv(&c.Log.Level, "MAILAGENT_LOG_LEVEL")

	provider := strings.ToLower(c.LLM.Provider)
	if provider == "" {
		provider = llm.ProviderGemini
	}
	switch provider {
	case llm.ProviderGemini:
		setFromEnv(&c.LLM.APIKey, "GEMINI_API_KEY")
	case llm.ProviderOpenAI:
		setFromEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) resolve() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Files.Inbox == "" {
		c.Files.Inbox = DefaultInboxFile
	}
	if c.Files.Prompts == "" {
		c.Files.Prompts = DefaultPrompts
	}
	if c.Files.Drafts == "" {
		c.Files.Drafts = DefaultDrafts
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	switch c.LLM.Provider {
	case "":
		c.LLM.Provider = llm.ProviderGemini
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not one of %q, %q", c.LLM.Provider, llm.ProviderGemini, llm.ProviderOpenAI)
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == llm.ProviderOpenAI {
			c.LLM.Model = llm.DefaultOpenAIModel
		} else {
			c.LLM.Model = llm.DefaultGeminiModel
		}
	}

	c.LLM.timeout = llm.DefaultTimeout
	if c.LLM.Timeout != "" {
		d, err := time.ParseDuration(c.LLM.Timeout)
		if err != nil {
			return fmt.Errorf("llm.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
		}
		c.LLM.timeout = d
	}
	return nil
}

// Path is the settings file the config was loaded from (it may not exist).
func (c *Config) Path() string { return c.path }

func (c *Config) InboxPath() string   { return c.dataFile(c.Files.Inbox) }
func (c *Config) PromptsPath() string { return c.dataFile(c.Files.Prompts) }
func (c *Config) DraftsPath() string  { return c.dataFile(c.Files.Drafts) }

func (c *Config) dataFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Gateway returns the settings the LLM gateway is constructed with. An empty
// APIKey yields a gateway that reports itself as not configured.
func (c *Config) Gateway() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		BaseURL:     c.LLM.BaseURL,
		Timeout:     c.LLM.timeout,
		MaxFailures: c.LLM.MaxFailures,
	}
}

// Ignore reports whether a message matches one of the filter rules and, if
// so, which rule.
func (f Filters) Ignore(sender, subject, body string) (bool, string) {
	if rule, ok := matchAny(sender, f.IgnoreSenders); ok {
		return true, "sender: " + rule
	}
	if rule, ok := matchAny(subject, f.IgnoreKeywordsInSubject); ok {
		return true, "subject: " + rule
	}
	if rule, ok := matchAny(body, f.IgnoreKeywordsInBody); ok {
		return true, "body: " + rule
	}
	return false, ""
}

func matchAny(s string, rules []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, rule := range rules {
		if rule == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(rule)) {
			return rule, true
		}
	}
	return "", false
}
