// Package models defines data structures for configuration, markups and pages.
package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Combiner and converter back ends selectable from configuration.
const (
	CombinerEngine = "engine"
	CombinerPDF    = "pdfcpu"

	ConverterInkscape = "inkscape"
	ConverterChrome   = "chrome"

	EncodingGBK  = "gbk"
	EncodingUTF8 = "utf-8"
)

// DefaultAnchorColor is the markup color reserved for anchors.
const DefaultAnchorColor = "#7A0000"

// Config holds every external path and tunable the pipeline needs.
// A Config is built once by the CLI and handed to each component constructor;
// nothing in the module keeps configuration in package-level state.
type Config struct {
	EnginePath    string        `yaml:"engine_path"`
	InkscapePath  string        `yaml:"inkscape_path"`
	MutoolPath    string        `yaml:"mutool_path"`
	ChromePath    string        `yaml:"chrome_path"`
	TempDir       string        `yaml:"temp_dir"`
	Workers       int           `yaml:"workers"`
	EngineTimeout time.Duration `yaml:"engine_timeout"`
	AnchorColor   string        `yaml:"anchor_color"`
	AnchorScale   [2]float64    `yaml:"anchor_scale"`
	ReplyEncoding string        `yaml:"reply_encoding"`
	Combiner      string        `yaml:"combiner"`
	Converter     string        `yaml:"converter"`
	DBPath        string        `yaml:"db_path"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		EnginePath:    "ScriptEngine.exe",
		InkscapePath:  "inkscape",
		MutoolPath:    "mutool",
		TempDir:       os.TempDir(),
		Workers:       20,
		EngineTimeout: 5 * time.Minute,
		AnchorColor:   DefaultAnchorColor,
		AnchorScale:   [2]float64{28.3463544, 28.3463544},
		ReplyEncoding: EncodingGBK,
		Combiner:      CombinerEngine,
		Converter:     ConverterInkscape,
		DBPath:        "drawing-sync.db",
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults and then
// applies environment overrides (including a .env file in the working
// directory, if present). A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DRAWSYNC_ENGINE_PATH", &c.EnginePath)
	setString("DRAWSYNC_INKSCAPE_PATH", &c.InkscapePath)
	setString("DRAWSYNC_MUTOOL_PATH", &c.MutoolPath)
	setString("DRAWSYNC_CHROME_PATH", &c.ChromePath)
	setString("DRAWSYNC_TEMP_DIR", &c.TempDir)
	setString("DRAWSYNC_DB_PATH", &c.DBPath)

	if v := os.Getenv("DRAWSYNC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DRAWSYNC_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("DRAWSYNC_ENGINE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DRAWSYNC_ENGINE_TIMEOUT %q: %w", v, err)
		}
		c.EngineTimeout = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("engine_timeout must be positive, got %s", c.EngineTimeout)
	}
	if c.AnchorScale[0] == 0 || c.AnchorScale[1] == 0 {
		return fmt.Errorf("anchor_scale components must be non-zero")
	}
	switch c.ReplyEncoding {
	case EncodingGBK, EncodingUTF8:
	default:
		return fmt.Errorf("unknown reply_encoding %q", c.ReplyEncoding)
	}
	switch c.Combiner {
	case CombinerEngine, CombinerPDF:
	default:
		return fmt.Errorf("unknown combiner %q", c.Combiner)
	}
	switch c.Converter {
	case ConverterInkscape, ConverterChrome:
	default:
		return fmt.Errorf("unknown converter %q", c.Converter)
	}
	return nil
}
