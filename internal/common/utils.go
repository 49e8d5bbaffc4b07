package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dtnitsch/lilypads/models"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// anyBool reports whether name is set to true on the command or any of its
// parents, so a global flag works before or after the subcommand.
func anyBool(c *cli.Context, name string) bool {
	for _, ctx := range c.Lineage() {
		if ctx != nil && ctx.Bool(name) {
			return true
		}
	}
	return false
}

// Quiet reports whether --quiet was given anywhere on the command line.
func Quiet(c *cli.Context) bool {
	return anyBool(c, "quiet")
}

// LogLevel returns Error with --quiet, Debug with --verbose, else Info.
func LogLevel(c *cli.Context) slog.Level {
	switch {
	case Quiet(c):
		return slog.LevelError
	case anyBool(c, "verbose"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a JSON logger writing to w at the level chosen by the
// global flags.
func NewLogger(c *cli.Context, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: LogLevel(c)}))
}

// LoadConfig reads the file named by --config. The default file may be
// absent; an explicitly named one must exist.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	path := c.String("config")
	if path == "" {
		path = models.DefaultConfigFile
	}
	cfg, err := models.LoadConfig(path, c.IsSet("config"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogWriter returns a size-rotated file writer for path, or stderr when
// path is empty. The caller closes the returned closer.
func LogWriter(path string, cfg models.ServerConfig) (io.Writer, func() error) {
	if path == "" {
		return os.Stderr, func() error { return nil }
	}
	l := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogBackups,
		Compress:   true,
	}
	return l, l.Close
}

// Args returns exactly n positional arguments or a usage error.
func Args(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("expected %d arguments, got %d (usage: %s %s)", n, c.NArg(), c.Command.FullName(), c.Command.ArgsUsage)
	}
	return c.Args().Slice(), nil
}
