// Package engine drives the external annotation engine through its
// line-oriented scripting protocol.
//
// Every call is one process invocation: the commands are written to a
// transient script file, the engine runs it, and the file is removed before
// the call returns. The engine locks the documents it opens, so calls that
// touch the same document must not run concurrently; the client does not
// serialise them itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/drawing-sync/models"
	"github.com/dtnitsch/drawing-sync/pkg/quasijson"
	"github.com/dtnitsch/drawing-sync/pkg/syncerr"
)

// Client executes command scripts against the engine.
type Client struct {
	cfg    *models.Config
	runner Runner
	logger *slog.Logger
}

// NewClient creates a client. A nil runner means ExecRunner, a nil logger
// means slog.Default().
func NewClient(cfg *models.Config, runner Runner, logger *slog.Logger) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, runner: runner, logger: logger}
}

// Execute runs commands as one script and returns the engine's raw output.
// Failures are not retried.
func (c *Client) Execute(ctx context.Context, commands []string) ([]byte, error) {
	return c.execute(ctx, commands)
}

func (c *Client) execute(ctx context.Context, commands []string, paths ...string) ([]byte, error) {
	f, err := os.CreateTemp(c.cfg.TempDir, "script-*.bci")
	if err != nil {
		return nil, fmt.Errorf("failed to create script file: %w", err)
	}
	scriptPath := f.Name()
	defer func() {
		if rmErr := os.Remove(scriptPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("Failed to remove script file", "script", scriptPath, "error", rmErr)
		}
	}()

	_, err = f.WriteString(strings.Join(commands, "\n"))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write script file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.EngineTimeout)
	defer cancel()

	c.logger.Debug("Running engine script", "script", scriptPath, "command_count", len(commands))
	out, err := c.runner.Run(runCtx, c.cfg.EnginePath, Script(scriptPath))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, syncerr.NewEngineTimeout(
				fmt.Sprintf("engine did not finish within %s", c.cfg.EngineTimeout), err, paths...)
		}
		return nil, syncerr.NewExternalEngine("engine exited with error", err, paths...)
	}
	return out, nil
}

func (c *Client) blocks(ctx context.Context, commands []string, doc string) ([][]string, error) {
	out, err := c.execute(ctx, commands, doc)
	if err != nil {
		return nil, err
	}
	text, err := DecodeText(out, c.cfg.ReplyEncoding)
	if err != nil {
		return nil, err
	}
	blocks, err := Blocks(text)
	if err != nil {
		return nil, withPath(err, doc)
	}
	return blocks, nil
}

func withPath(err error, path string) error {
	var e *syncerr.Error
	if errors.As(err, &e) && len(e.Paths) == 0 {
		e.Paths = []string{path}
	}
	return err
}

// MarkupList returns the decoded markup table of one page.
func (c *Client) MarkupList(ctx context.Context, doc string, page models.PageNumber) (*quasijson.Object, error) {
	blocks, err := c.blocks(ctx, []string{Open(doc), MarkupGetExList(page), Close()}, doc)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 || len(blocks[0]) == 0 {
		return quasijson.Decode(nil)
	}
	obj, err := quasijson.Decode([]byte(blocks[0][0]))
	if err != nil {
		e := syncerr.NewExternalEngine("malformed markup list", err, doc)
		e.Page = int(page)
		return nil, e
	}
	return obj, nil
}

// CopyMarkups copies the given markups in one invocation and returns the
// paste format string of each, in input order.
func (c *Client) CopyMarkups(ctx context.Context, doc string, page models.PageNumber, ids []string) ([]string, error) {
	commands := make([]string, 0, len(ids)+2)
	commands = append(commands, Open(doc))
	for _, id := range ids {
		commands = append(commands, MarkupCopy(page, id))
	}
	commands = append(commands, Close())

	c.logger.Info("Copying markups", "document", doc, "page", int(page), "markup_count", len(ids))
	blocks, err := c.blocks(ctx, commands, doc)
	if err != nil {
		return nil, err
	}
	if len(blocks) != len(ids) {
		e := syncerr.NewExternalEngine(fmt.Sprintf("copied %d markups, engine answered %d", len(ids), len(blocks)), nil, doc)
		e.Page = int(page)
		return nil, e
	}
	formats := make([]string, len(ids))
	for i, b := range blocks {
		if len(b) == 0 {
			e := syncerr.NewExternalEngine(fmt.Sprintf("engine returned nothing for markup %s", ids[i]), nil, doc)
			e.Page = int(page)
			return nil, e
		}
		formats[i] = b[0]
	}
	return formats, nil
}

// Paste is one MarkupPaste request.
type Paste struct {
	Format string
	X, Y   float64
}

// PasteMarkups pastes markups, saves the document and returns the ids the
// engine assigned to each paste, in input order.
func (c *Client) PasteMarkups(ctx context.Context, doc string, page models.PageNumber, pastes []Paste) ([][]string, error) {
	commands := make([]string, 0, len(pastes)+3)
	commands = append(commands, Open(doc))
	for _, p := range pastes {
		commands = append(commands, MarkupPaste(page, p.Format, p.X, p.Y))
	}
	commands = append(commands, Save(), Close())

	c.logger.Info("Pasting markups", "document", doc, "page", int(page), "markup_count", len(pastes))
	blocks, err := c.blocks(ctx, commands, doc)
	if err != nil {
		return nil, err
	}
	if len(blocks) != len(pastes) {
		e := syncerr.NewExternalEngine(fmt.Sprintf("pasted %d markups, engine answered %d", len(pastes), len(blocks)), nil, doc)
		e.Page = int(page)
		return nil, e
	}
	for _, b := range blocks {
		for j := range b {
			b[j] = strings.TrimSpace(b[j])
		}
	}
	return blocks, nil
}

// Update is one MarkupSet request.
type Update struct {
	ID    string
	Props map[string]string
}

// SetMarkups applies property updates in one invocation and saves the
// document. An empty update list does nothing.
func (c *Client) SetMarkups(ctx context.Context, doc string, page models.PageNumber, updates []Update) error {
	if len(updates) == 0 {
		c.logger.Debug("No markup updates", "document", doc, "page", int(page))
		return nil
	}
	commands := make([]string, 0, len(updates)+3)
	commands = append(commands, Open(doc))
	for _, u := range updates {
		cmd, err := MarkupSet(page, u.ID, u.Props)
		if err != nil {
			return err
		}
		commands = append(commands, cmd)
	}
	commands = append(commands, Save(), Close())

	c.logger.Info("Setting markups", "document", doc, "page", int(page), "markup_count", len(updates))
	_, err := c.execute(ctx, commands, doc)
	return err
}

// Combine concatenates documents into output.
func (c *Client) Combine(ctx context.Context, inputs []string, output string) error {
	commands := []string{Combine(inputs...), SaveAs(output), Close()}
	_, err := c.execute(ctx, commands, append(append([]string{}, inputs...), output)...)
	return err
}
