// Package common holds the bootstrap shared by every CLI action: logger,
// configuration, service wiring, the run ledger and output helpers.
package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/align"
	"github.com/dtnitsch/drawing-sync/pkg/combine"
	"github.com/dtnitsch/drawing-sync/pkg/compositor"
	"github.com/dtnitsch/drawing-sync/pkg/convert"
	"github.com/dtnitsch/drawing-sync/pkg/db"
	"github.com/dtnitsch/drawing-sync/pkg/engine"
	"github.com/dtnitsch/drawing-sync/pkg/markup"
	"github.com/dtnitsch/drawing-sync/pkg/mix"
	"github.com/dtnitsch/drawing-sync/pkg/pagecontent"
	"github.com/dtnitsch/drawing-sync/pkg/recolor"
	"github.com/dtnitsch/drawing-sync/pkg/render"
	"github.com/dtnitsch/drawing-sync/pkg/transfer"
	"github.com/dtnitsch/drawing-sync/pkg/workspace"
)

// NewLogger builds the JSON stderr logger from --quiet and --verbose.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies the global flag overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("engine") {
		cfg.EnginePath = c.String("engine")
	}
	if c.IsSet("temp-dir") {
		cfg.TempDir = c.String("temp-dir")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		cfg.EngineTimeout = c.Duration("timeout")
	}
	if c.IsSet("encoding") {
		cfg.ReplyEncoding = c.String("encoding")
	}
	if c.IsSet("combiner") {
		cfg.Combiner = c.String("combiner")
	}
	if c.IsSet("converter") {
		cfg.Converter = c.String("converter")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Services is the fully wired component graph for one CLI invocation.
type Services struct {
	Config     *models.Config
	Logger     *slog.Logger
	Engine     *engine.Client
	Markups    *markup.Registry
	Renderer   *render.Renderer
	Aligner    *align.Aligner
	Transfers  *transfer.Pipeline
	Converter  convert.Converter
	Combiner   combine.Combiner
	Jobs       *workspace.Manager
	Content    *pagecontent.Transformer
	Compositor *compositor.Compositor
	Recolorer  *recolor.Recolorer
	Mixer      *mix.Mixer
	Ledger     *db.DB
}

// NewServices wires every component from cfg. The caller must Close the
// result.
func NewServices(cfg *models.Config, logger *slog.Logger) (*Services, error) {
	runner := engine.ExecRunner{}
	s := &Services{Config: cfg, Logger: logger}

	s.Engine = engine.NewClient(cfg, runner, logger)
	s.Markups = markup.NewRegistry(s.Engine, logger)
	s.Renderer = render.NewRenderer(cfg, runner, logger)
	s.Aligner = align.NewAligner(s.Markups, s.Renderer, logger)
	s.Transfers = transfer.NewPipeline(s.Markups, s.Engine, s.Aligner, logger)

	var err error
	if s.Converter, err = convert.New(cfg, runner, logger); err != nil {
		return nil, err
	}
	if s.Combiner, err = combine.New(cfg, s.Engine, logger); err != nil {
		return nil, err
	}
	s.Jobs = workspace.NewManager(cfg.TempDir, logger)
	s.Content = pagecontent.NewTransformer(cfg, s.Combiner, s.Jobs, logger)
	s.Compositor = compositor.New()
	s.Recolorer = recolor.NewRecolorer(cfg, s.Renderer, s.Converter, s.Combiner, s.Jobs, logger)
	s.Mixer = mix.NewMixer(mix.Deps{
		Aligner:    s.Aligner,
		Renderer:   s.Renderer,
		Compositor: s.Compositor,
		Converter:  s.Converter,
		Content:    s.Content,
		Markups:    s.Engine,
		Transfers:  s.Transfers,
		Combiner:   s.Combiner,
		Jobs:       s.Jobs,
	}, logger)

	if s.Ledger, err = db.Open(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, nil
}

func (s *Services) Close() {
	if s.Ledger != nil {
		_ = s.Ledger.Close()
	}
}

// Setup is the common preamble of an action: logger, config and services.
func Setup(c *cli.Context) (*Services, error) {
	logger := NewLogger(c)
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}
	return NewServices(cfg, logger)
}

// Track records the current command as a ledger run around fn. Ledger
// failures after the run has started are logged, never returned.
func (s *Services) Track(c *cli.Context, fn func(runID int64) error) error {
	runID, err := s.Ledger.StartRun(c.Command.Name, commandArgs(c))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	runErr := fn(runID)
	if err := s.Ledger.FinishRun(runID, runErr); err != nil {
		s.Logger.Warn("Failed to finish run", "run_id", runID, "error", err)
	}
	return runErr
}

func commandArgs(c *cli.Context) []string {
	var args []string
	for _, name := range c.LocalFlagNames() {
		if values := c.StringSlice(name); len(values) > 0 {
			for _, v := range values {
				args = append(args, fmt.Sprintf("--%s=%s", name, v))
			}
			continue
		}
		args = append(args, fmt.Sprintf("--%s=%v", name, c.Value(name)))
	}
	return append(args, c.Args().Slice()...)
}
