// =============================================================================
// config.go - Pipeline configuration
// =============================================================================
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. Built-in defaults (thresholds, timeouts, embedded sources.yaml)
//  2. YAML file (--config flag or AI_RELAY_CONFIG)
//  3. Environment variables (a .env file is loaded by the CLI beforehand)
//
// The CLI's --sources flag only narrows the registry of a run.
//
// Config groups:
//   - HTTP:       user agents and per-call timeouts
//   - Content:    resolution thresholds
//   - PDF:        paper extraction mode
//   - Community:  non-feed endpoints
//   - Output:     directories and metrics textfile
//   - Email:      SMTP notifications (EMAIL_* variables)
//   - Log:        logger settings
//
// =============================================================================
package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ai-relay/internal/logger"
)

//go:embed sources.yaml
var defaultRegistryYAML []byte

// Environment variables consulted by LoadConfig.
const (
	EnvConfigPath    = "AI_RELAY_CONFIG"
	envLogLevel      = "AI_RELAY_LOG_LEVEL"
	envLogFile       = "AI_RELAY_LOG_FILE"
	envDataDir       = "AI_RELAY_DATA_DIR"
	envTranscriptDir = "AI_RELAY_TRANSCRIPT_DIR"
	envMetricsFile   = "AI_RELAY_METRICS_FILE"
	envPDFMode       = "AI_RELAY_PDF_MODE"
	envPDFMaxPages   = "AI_RELAY_PDF_MAX_PAGES"
	envConcurrency   = "AI_RELAY_CONCURRENCY"
	envPerSource     = "AI_RELAY_ARTICLES_PER_SOURCE"

	envEmailFrom     = "EMAIL_FROM"
	envEmailPassword = "EMAIL_PASSWORD"
	envEmailTo       = "EMAIL_TO"
)

// PDF extraction modes.
const (
	PDFModeFull     = "full"
	PDFModeSections = "sections"
)

// =============================================================================
// Config structs
// =============================================================================

// Config holds every setting of a run.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Content   ContentConfig   `yaml:"content"`
	PDF       PDFConfig       `yaml:"pdf"`
	Community CommunityConfig `yaml:"community"`
	Output    OutputConfig    `yaml:"output"`
	Email     EmailConfig     `yaml:"email"`
	Log       logger.Config   `yaml:"log"`

	// ArticlesPerSource caps entries taken from each feed.
	ArticlesPerSource int `yaml:"articles_per_source"`

	// Concurrency caps simultaneously running source tasks (0 = unbounded).
	Concurrency int `yaml:"concurrency"`

	Sources            []SourcePolicy `yaml:"sources"`
	ArticleSelectors   []string       `yaml:"article_selectors"`
	BoilerplateMarkers []string       `yaml:"boilerplate_markers"`
}

// HTTPConfig holds request identity and timeouts.
type HTTPConfig struct {
	UserAgent          string        `yaml:"user_agent"`
	PaperUserAgent     string        `yaml:"paper_user_agent"`
	CommunityUserAgent string        `yaml:"community_user_agent"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	PaperTimeout       time.Duration `yaml:"paper_timeout"`
	AuxTimeout         time.Duration `yaml:"aux_timeout"`
}

// ContentConfig holds resolution thresholds, measured in runes.
type ContentConfig struct {
	// MinContentLength is the RSS body length under which a page fetch is tried.
	MinContentLength int `yaml:"min_content_length"`
	// MaxContentLength caps stored content for non-paper sources.
	MaxContentLength int `yaml:"max_content_length"`
	// SummaryLength caps Article.Summary.
	SummaryLength int `yaml:"summary_length"`
	// MinSelectorText is the text a selector match needs to be accepted.
	MinSelectorText int `yaml:"min_selector_text"`
	// MinParagraphText is the length a paragraph needs in paragraph fallbacks.
	MinParagraphText int `yaml:"min_paragraph_text"`
}

// PDFConfig selects how much of a paper is kept.
type PDFConfig struct {
	// Mode is "full" (entire text) or "sections" (labeled digest).
	Mode string `yaml:"mode"`
	// MaxPages limits decoded pages; 0 decodes every page.
	MaxPages int `yaml:"max_pages"`
}

// CommunityConfig points at the non-feed endpoints.
type CommunityConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Limit             int    `yaml:"limit"`
	RedditURL         string `yaml:"reddit_url"`
	HuggingFaceURL    string `yaml:"huggingface_url"`
	GitHubTrendingURL string `yaml:"github_trending_url"`
	GitHubBaseURL     string `yaml:"github_base_url"`
	GitHubRawURL      string `yaml:"github_raw_url"`
	ReadmeExcerpt     int    `yaml:"readme_excerpt"`
}

// EmailConfig configures SMTP notifications. Mail is sent only when From,
// Password and To are all set.
type EmailConfig struct {
	From string `yaml:"from"`
	// Password is an app password; it is only read from EMAIL_PASSWORD.
	Password string   `yaml:"-"`
	To       []string `yaml:"to"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort string   `yaml:"smtp_port"`
	// OnFailure mails the failed-source report when any source failed.
	OnFailure bool `yaml:"on_failure"`
	// Newsletter mails the Markdown digest after every run.
	Newsletter bool `yaml:"newsletter"`
}

// Enabled reports whether enough is configured to send mail.
func (e EmailConfig) Enabled() bool {
	return e.From != "" && e.Password != "" && len(e.To) > 0
}

// OutputConfig holds output locations.
type OutputConfig struct {
	DataDir       string `yaml:"data_dir"`
	TranscriptDir string `yaml:"transcript_dir"`
	// MetricsFile, when set, receives the run's metrics in textfile format.
	MetricsFile string `yaml:"metrics_file"`
	// Newsletter toggles the Markdown/Atom digest.
	Newsletter bool `yaml:"newsletter"`
}

// =============================================================================
// Defaults and loading
// =============================================================================

// DefaultUserAgent is sent on feed and page requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultConfig returns the built-in configuration including the embedded
// source registry.
func DefaultConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{
			UserAgent:          DefaultUserAgent,
			PaperUserAgent:     "Mozilla/5.0 (compatible; AI Newsletter Bot/1.0; +https://github.com/ai-fo/news)",
			CommunityUserAgent: "AI Newsletter Bot 1.0",
			RequestTimeout:     30 * time.Second,
			PaperTimeout:       60 * time.Second,
			AuxTimeout:         10 * time.Second,
		},
		Content: ContentConfig{
			MinContentLength: 500,
			MaxContentLength: 5000,
			SummaryLength:    500,
			MinSelectorText:  200,
			MinParagraphText: 50,
		},
		PDF: PDFConfig{Mode: PDFModeFull},
		Community: CommunityConfig{
			Enabled:           true,
			Limit:             10,
			RedditURL:         "https://www.reddit.com/r/MachineLearning/.json",
			HuggingFaceURL:    "https://huggingface.co/api/models",
			GitHubTrendingURL: "https://github.com/trending?since=daily",
			GitHubBaseURL:     "https://github.com",
			GitHubRawURL:      "https://raw.githubusercontent.com",
			ReadmeExcerpt:     1500,
		},
		Output: OutputConfig{
			DataDir:       "data",
			TranscriptDir: "transcripts",
			Newsletter:    true,
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  "587",
			OnFailure: true,
		},
		Log:               logger.Config{Level: "info"},
		ArticlesPerSource: 10,
	}

	// The embedded file is part of the binary; failing to parse it is a
	// build defect.
	if err := yaml.Unmarshal(defaultRegistryYAML, &cfg); err != nil {
		panic(fmt.Sprintf("embedded sources.yaml: %v", err))
	}
	return cfg
}

// LoadConfig resolves defaults, the optional YAML file and the environment.
// path may be empty; AI_RELAY_CONFIG is consulted then.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		// Keys present in the file overwrite defaults; lists are replaced.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(envLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envLogFile); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(envDataDir); v != "" {
		c.Output.DataDir = v
	}
	if v := os.Getenv(envTranscriptDir); v != "" {
		c.Output.TranscriptDir = v
	}
	if v := os.Getenv(envMetricsFile); v != "" {
		c.Output.MetricsFile = v
	}
	if v := os.Getenv(envEmailFrom); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv(envEmailPassword); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(envEmailTo); v != "" {
		c.Email.To = splitList(v)
	}
	if v := os.Getenv(envPDFMode); v != "" {
		c.PDF.Mode = strings.ToLower(strings.TrimSpace(v))
	}

	ints := []struct {
		env string
		dst *int
	}{
		{envPDFMaxPages, &c.PDF.MaxPages},
		{envConcurrency, &c.Concurrency},
		{envPerSource, &c.ArticlesPerSource},
	}
	for _, it := range ints {
		v := os.Getenv(it.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.env, err)
		}
		*it.dst = n
	}
	return nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks invariants the pipeline relies on.
func (c *Config) Validate() error {
	switch c.PDF.Mode {
	case PDFModeFull, PDFModeSections:
	default:
		return fmt.Errorf("pdf.mode must be %q or %q, got %q", PDFModeFull, PDFModeSections, c.PDF.Mode)
	}
	if c.PDF.MaxPages < 0 {
		return fmt.Errorf("pdf.max_pages must be >= 0")
	}
	if c.Content.MaxContentLength <= 0 || c.Content.MinContentLength < 0 || c.Content.SummaryLength <= 0 {
		return fmt.Errorf("content thresholds must be positive")
	}
	if c.ArticlesPerSource <= 0 {
		return fmt.Errorf("articles_per_source must be positive")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0")
	}
	if len(c.ArticleSelectors) == 0 {
		return fmt.Errorf("article_selectors must not be empty")
	}
	if _, err := NewRegistry(c.Sources); err != nil {
		return err
	}
	return nil
}
