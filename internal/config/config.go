// Package config loads pagesync settings.
//
// Settings come from, in increasing precedence: built-in defaults, the TOML
// file at $XDG_CONFIG_HOME/pagesync/config.toml, environment variables
// prefixed PAGESYNC_ (optionally loaded from a .env file), and command line
// flags applied by the caller.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/metcalfc/pagesync/internal/gateway"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/ocr"
	"github.com/metcalfc/pagesync/internal/resolve"
)

const fileName = "config.toml"

// Config holds every tunable.
type Config struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	Match  MatchConfig  `toml:"match"`
	Window WindowConfig `toml:"window"`
	OCR    OCRConfig    `toml:"ocr"`
	Reader ReaderConfig `toml:"reader"`

	// MaxConcurrent bounds resolutions running at once.
	MaxConcurrent int `toml:"max_concurrent"`
}

type MatchConfig struct {
	Threshold       float64 `toml:"threshold"`
	MinGap          float64 `toml:"min_gap"`
	MaxQueryTokens  int     `toml:"max_query_tokens"`
	TokenSimilarity float64 `toml:"token_similarity"`
	Slack           float64 `toml:"slack"`
}

// WindowConfig holds the page radii of the delta searches.
type WindowConfig struct {
	SearchBefore int `toml:"search_before"`
	SearchAfter  int `toml:"search_after"`
	AnchorBefore int `toml:"anchor_before"`
	AnchorAfter  int `toml:"anchor_after"`
}

type OCRConfig struct {
	Language    string `toml:"language"`
	PageSegMode int    `toml:"page_seg_mode"`
}

type ReaderConfig struct {
	// ParagraphsPerPage splits long sections into pages of at most this
	// many paragraphs.
	ParagraphsPerPage int `toml:"paragraphs_per_page"`
}

// Default returns the built-in settings.
func Default() Config {
	m := match.DefaultConfig()
	w := resolve.DefaultOptions()
	o := ocr.DefaultOptions()
	return Config{
		LogLevel: "info",
		Match: MatchConfig{
			Threshold:       m.Threshold,
			MinGap:          m.MinGap,
			MaxQueryTokens:  m.MaxQueryTokens,
			TokenSimilarity: m.TokenSimilarity,
			Slack:           m.Slack,
		},
		Window: WindowConfig{
			SearchBefore: w.SearchBefore,
			SearchAfter:  w.SearchAfter,
			AnchorBefore: w.AnchorBefore,
			AnchorAfter:  w.AnchorAfter,
		},
		OCR:           OCRConfig{Language: o.Language, PageSegMode: o.PageSegMode},
		Reader:        ReaderConfig{ParagraphsPerPage: 12},
		MaxConcurrent: int(gateway.DefaultOptions().MaxConcurrent),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/pagesync/config.toml or
// ~/.config/pagesync/config.toml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pagesync", fileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pagesync", fileName)
}

// LoadDotEnv loads environment files, skipping ones that do not exist.
// Variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the TOML file at path (DefaultPath when empty; a missing file
// is not an error), applies PAGESYNC_ environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"PAGESYNC_LOG_LEVEL", &c.LogLevel},
		{"PAGESYNC_LOG_FILE", &c.LogFile},
		{"PAGESYNC_OCR_LANGUAGE", &c.OCR.Language},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PAGESYNC_MAX_QUERY_TOKENS", &c.Match.MaxQueryTokens},
		{"PAGESYNC_SEARCH_BEFORE", &c.Window.SearchBefore},
		{"PAGESYNC_SEARCH_AFTER", &c.Window.SearchAfter},
		{"PAGESYNC_ANCHOR_BEFORE", &c.Window.AnchorBefore},
		{"PAGESYNC_ANCHOR_AFTER", &c.Window.AnchorAfter},
		{"PAGESYNC_OCR_PSM", &c.OCR.PageSegMode},
		{"PAGESYNC_PARAGRAPHS_PER_PAGE", &c.Reader.ParagraphsPerPage},
		{"PAGESYNC_MAX_CONCURRENT", &c.MaxConcurrent},
	}
	for _, s := range ints {
		v := os.Getenv(s.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", s.key, v)
		}
		*s.dst = n
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"PAGESYNC_THRESHOLD", &c.Match.Threshold},
		{"PAGESYNC_MIN_GAP", &c.Match.MinGap},
		{"PAGESYNC_TOKEN_SIMILARITY", &c.Match.TokenSimilarity},
		{"PAGESYNC_SLACK", &c.Match.Slack},
	}
	for _, s := range floats {
		v := os.Getenv(s.key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number, got %q", s.key, v)
		}
		*s.dst = f
	}
	return nil
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	if _, ok := logging.LookupLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("match.threshold must be in (0, 1], got %v", c.Match.Threshold)
	}
	if c.Match.MinGap <= 0 || c.Match.MinGap > 1 {
		return fmt.Errorf("match.min_gap must be in (0, 1], got %v", c.Match.MinGap)
	}
	if c.Match.TokenSimilarity <= 0 || c.Match.TokenSimilarity > 1 {
		return fmt.Errorf("match.token_similarity must be in (0, 1], got %v", c.Match.TokenSimilarity)
	}
	if c.Match.Slack < 0 || c.Match.Slack > 2 {
		return fmt.Errorf("match.slack must be between 0 and 2, got %v", c.Match.Slack)
	}
	if c.Match.MaxQueryTokens < 4 || c.Match.MaxQueryTokens > 512 {
		return fmt.Errorf("match.max_query_tokens must be between 4 and 512, got %d", c.Match.MaxQueryTokens)
	}
	w := c.Window
	if w.SearchBefore < 0 || w.SearchAfter < 0 || w.AnchorBefore < 0 || w.AnchorAfter < 0 {
		return fmt.Errorf("window radii must not be negative, got %+v", w)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("ocr.language is required")
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be between 0 and 13, got %d", c.OCR.PageSegMode)
	}
	if c.Reader.ParagraphsPerPage < 1 {
		return fmt.Errorf("reader.paragraphs_per_page must be positive, got %d", c.Reader.ParagraphsPerPage)
	}
	if c.MaxConcurrent < 1 || c.MaxConcurrent > 64 {
		return fmt.Errorf("max_concurrent must be between 1 and 64, got %d", c.MaxConcurrent)
	}
	return nil
}

// MatcherConfig converts to the matcher's configuration.
func (c *Config) MatcherConfig() match.Config {
	return match.Config{
		Threshold:       c.Match.Threshold,
		MinGap:          c.Match.MinGap,
		MaxQueryTokens:  c.Match.MaxQueryTokens,
		TokenSimilarity: c.Match.TokenSimilarity,
		Slack:           c.Match.Slack,
	}
}

func (c *Config) ResolveOptions() resolve.Options {
	return resolve.Options{
		SearchBefore: c.Window.SearchBefore,
		SearchAfter:  c.Window.SearchAfter,
		AnchorBefore: c.Window.AnchorBefore,
		AnchorAfter:  c.Window.AnchorAfter,
	}
}

func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{Language: c.OCR.Language, PageSegMode: c.OCR.PageSegMode}
}

func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{MaxConcurrent: int64(c.MaxConcurrent)}
}

// Level returns the configured log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}
