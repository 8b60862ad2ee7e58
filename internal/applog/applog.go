// Package applog builds the structured logger shared by the storage
// engine and its command-line front end.
//
// EDUCATIONAL NOTES:
// ------------------
// The reference ForgeDB implementation traces structural events
// (splits, merges, CRC mismatches, pool exhaustion) with plain
// std::cout/std::cerr lines. forgedb keeps the same places those
// traces fire from, but routes them through a zap.Logger writing
// JSON lines to a lumberjack-rotated file, which is the shape this
// pack's services reach for when they need durable, greppable logs
// rather than a scrollback that vanishes with the terminal.
package applog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	// Path is the log file path. Defaults to "forgedb.log".
	Path string
	// MaxSizeMB is the rotation threshold in megabytes. Defaults to 10.
	MaxSizeMB int
	// MaxBackups is how many rotated files to retain. Defaults to 3.
	MaxBackups int
	// Verbose also mirrors logs to stderr with a human-readable
	// console encoder, for interactive REPL sessions run with -v.
	Verbose bool
}

// New builds a *zap.Logger per cfg. The returned logger's Sync should
// be called before process exit; forgedb's engine does this on Close.
func New(cfg Config) (*zap.Logger, error) {
	path := cfg.Path
	if path == "" {
		path = "forgedb.log"
	}
	maxSize := cfg.MaxSizeMB
	if maxSize == 0 {
		maxSize = 10
	}
	maxBackups := cfg.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   false,
	}

	jsonEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), zapcore.DebugLevel),
	}

	if cfg.Verbose {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), zapcore.InfoLevel))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Nop returns a logger that discards everything. Used as the fallback
// when New fails to open its log file (forgedb should never refuse to
// open a database just because logging setup failed) and as the
// engine's zero-value default when no WithLogger option is given.
func Nop() *zap.Logger { return zap.NewNop() }
